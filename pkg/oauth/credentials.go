// Package oauth obtains Google Calendar credentials. Two strategies are
// supported, tried in a fixed order: a non-interactive service-account
// identity configured through the environment, then a user-delegated OAuth
// token captured earlier by the web consent flow. Neither strategy ever
// blocks waiting for a user to authenticate.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/calendar/v3"
)

// ErrNoCredential is returned by Provider.Acquire only after every strategy
// has been tried and failed.
var ErrNoCredential = errors.New("no calendar credential available")

// Strategy names reported on resolved credentials.
const (
	StrategyService   = "service"
	StrategyDelegated = "delegated"
)

// Credential is a usable calendar-backend credential together with the name
// of the strategy that produced it.
type Credential struct {
	Strategy    string
	TokenSource oauth2.TokenSource
}

// Strategy is one way of acquiring a credential. Acquire must fail fast
// when its material is absent rather than waiting for anything.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context) (*Credential, error)
}

// Provider tries an ordered list of strategies until one succeeds.
type Provider struct {
	strategies []Strategy
}

func NewProvider(strategies ...Strategy) *Provider {
	return &Provider{strategies: strategies}
}

// Acquire returns the first credential any strategy produces. When all of
// them fail, the returned error wraps ErrNoCredential along with each
// strategy's failure.
func (p *Provider) Acquire(ctx context.Context) (*Credential, error) {
	var failures []string
	for _, s := range p.strategies {
		cred, err := s.Acquire(ctx)
		if err == nil {
			return cred, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", s.Name(), err))
	}
	return nil, fmt.Errorf("%w (%s)", ErrNoCredential, strings.Join(failures, "; "))
}

// ServiceAccountStrategy builds a JWT credential from statically configured
// service-account material.
type ServiceAccountStrategy struct {
	Email      string
	PrivateKey string
	Scopes     []string
}

// ServiceAccountFromEnv reads GOOGLE_SERVICE_ACCOUNT_EMAIL and
// GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY. Keys pasted into env files usually
// carry literal "\n" sequences, so those are unescaped here.
func ServiceAccountFromEnv() *ServiceAccountStrategy {
	return &ServiceAccountStrategy{
		Email:      os.Getenv("GOOGLE_SERVICE_ACCOUNT_EMAIL"),
		PrivateKey: strings.ReplaceAll(os.Getenv("GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY"), `\n`, "\n"),
		Scopes:     []string{calendar.CalendarScope, calendar.CalendarEventsScope},
	}
}

func (s *ServiceAccountStrategy) Name() string { return StrategyService }

func (s *ServiceAccountStrategy) Acquire(ctx context.Context) (*Credential, error) {
	if s.Email == "" || s.PrivateKey == "" {
		return nil, errors.New("service account credentials not configured")
	}
	if !strings.Contains(s.PrivateKey, "PRIVATE KEY") {
		return nil, errors.New("service account private key is malformed")
	}

	config := &jwt.Config{
		Email:      s.Email,
		PrivateKey: []byte(s.PrivateKey),
		Scopes:     s.Scopes,
		TokenURL:   google.JWTTokenURL,
	}
	return &Credential{
		Strategy:    StrategyService,
		TokenSource: config.TokenSource(ctx),
	}, nil
}

// TokenStore holds the process-wide delegated token pair. It is written
// exactly once per completed consent flow and read by every request, so the
// whole pair is swapped atomically rather than mutated field by field.
type TokenStore struct {
	token atomic.Pointer[oauth2.Token]
}

func NewTokenStore() *TokenStore { return &TokenStore{} }

// Set installs a freshly captured token pair, replacing any previous one.
func (s *TokenStore) Set(token *oauth2.Token) {
	copied := *token
	s.token.Store(&copied)
}

// Get returns a snapshot of the current token pair, or nil when no consent
// flow has completed in this process.
func (s *TokenStore) Get() *oauth2.Token {
	return s.token.Load()
}

// DelegatedStrategy builds a credential from the captured token pair. The
// token source refreshes through the OAuth client config when one is
// available, and falls back to the static token otherwise.
type DelegatedStrategy struct {
	Store  *TokenStore
	Config *oauth2.Config
}

func (s *DelegatedStrategy) Name() string { return StrategyDelegated }

func (s *DelegatedStrategy) Acquire(ctx context.Context) (*Credential, error) {
	token := s.Store.Get()
	if token == nil {
		return nil, errors.New("no delegated token captured yet")
	}

	var source oauth2.TokenSource
	if s.Config != nil {
		source = s.Config.TokenSource(ctx, token)
	} else {
		source = oauth2.StaticTokenSource(token)
	}
	return &Credential{
		Strategy:    StrategyDelegated,
		TokenSource: source,
	}, nil
}

// ConsentConfig builds the OAuth client config used by the web consent
// flow and for refreshing delegated tokens. Returns an error when the
// client id/secret are not configured.
func ConsentConfig() (*oauth2.Config, error) {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("google OAuth not configured, set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		Scopes:       []string{calendar.CalendarScope, calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}, nil
}
