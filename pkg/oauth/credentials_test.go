package oauth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"golang.org/x/oauth2"
)

type stubStrategy struct {
	name string
	cred *Credential
	err  error
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Acquire(context.Context) (*Credential, error) {
	return s.cred, s.err
}

func TestProviderOrder(t *testing.T) {
	t.Parallel()

	service := &Credential{Strategy: StrategyService}
	delegated := &Credential{Strategy: StrategyDelegated}

	tests := []struct {
		name       string
		strategies []Strategy
		want       string
		wantErr    bool
	}{
		{
			name: "service wins when available",
			strategies: []Strategy{
				&stubStrategy{name: StrategyService, cred: service},
				&stubStrategy{name: StrategyDelegated, cred: delegated},
			},
			want: StrategyService,
		},
		{
			name: "falls through to delegated",
			strategies: []Strategy{
				&stubStrategy{name: StrategyService, err: errors.New("not configured")},
				&stubStrategy{name: StrategyDelegated, cred: delegated},
			},
			want: StrategyDelegated,
		},
		{
			name: "all strategies failing",
			strategies: []Strategy{
				&stubStrategy{name: StrategyService, err: errors.New("not configured")},
				&stubStrategy{name: StrategyDelegated, err: errors.New("no token")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := NewProvider(tt.strategies...).Acquire(context.Background())
			if tt.wantErr {
				if !errors.Is(err, ErrNoCredential) {
					t.Fatalf("Acquire() error = %v, want ErrNoCredential", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}
			if cred.Strategy != tt.want {
				t.Errorf("Acquire() strategy = %q, want %q", cred.Strategy, tt.want)
			}
		})
	}
}

func TestServiceAccountFailsFast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		strategy *ServiceAccountStrategy
	}{
		{"missing material", &ServiceAccountStrategy{}},
		{"missing key", &ServiceAccountStrategy{Email: "svc@example.iam.gserviceaccount.com"}},
		{"malformed key", &ServiceAccountStrategy{
			Email:      "svc@example.iam.gserviceaccount.com",
			PrivateKey: "not a pem block",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.strategy.Acquire(context.Background()); err == nil {
				t.Error("Acquire() = nil error, want failure")
			}
		})
	}
}

func TestDelegatedRequiresCapturedToken(t *testing.T) {
	t.Parallel()

	store := NewTokenStore()
	strategy := &DelegatedStrategy{Store: store}

	if _, err := strategy.Acquire(context.Background()); err == nil {
		t.Fatal("Acquire() with empty store = nil error, want failure")
	}

	store.Set(&oauth2.Token{AccessToken: "at", RefreshToken: "rt"})
	cred, err := strategy.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if cred.Strategy != StrategyDelegated {
		t.Errorf("strategy = %q, want %q", cred.Strategy, StrategyDelegated)
	}
}

func TestTokenStoreSnapshot(t *testing.T) {
	t.Parallel()

	store := NewTokenStore()
	if store.Get() != nil {
		t.Fatal("Get() on fresh store != nil")
	}

	original := &oauth2.Token{AccessToken: "first"}
	store.Set(original)

	// Mutating the caller's token after Set must not leak into the store.
	original.AccessToken = "mutated"
	if got := store.Get().AccessToken; got != "first" {
		t.Errorf("Get().AccessToken = %q, want %q", got, "first")
	}

	// Concurrent readers always see a whole pair, never a torn write.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tok := store.Get()
				if tok.AccessToken == "" {
					t.Error("Get() returned token with empty access token")
					return
				}
			}
		}()
	}
	for j := 0; j < 100; j++ {
		store.Set(&oauth2.Token{AccessToken: "replacement", RefreshToken: "rt"})
	}
	wg.Wait()
}
