package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/mattkuda/calendar-copilot/core/orchestrator"
	"github.com/mattkuda/calendar-copilot/pkg/llm"
	"github.com/mattkuda/calendar-copilot/pkg/oauth"
	"github.com/mattkuda/calendar-copilot/pkg/xlog"
	"github.com/mattkuda/calendar-copilot/services/calendar"
	"github.com/mattkuda/calendar-copilot/services/compose"
	"github.com/mattkuda/calendar-copilot/services/intent"
	"github.com/mattkuda/calendar-copilot/webui"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	llmClient := llm.NewClient(
		os.Getenv("OPENAI_API_KEY"),
		os.Getenv("OPENAI_API_URL"),
		envOr("OPENAI_MODEL", "gpt-4o"),
	)

	tokens := oauth.NewTokenStore()
	consent, err := oauth.ConsentConfig()
	if err != nil {
		xlog.Warn("delegated OAuth disabled", "error", err)
	}
	provider := oauth.NewProvider(
		oauth.ServiceAccountFromEnv(),
		&oauth.DelegatedStrategy{Store: tokens, Config: consent},
	)

	queries := orchestrator.New(
		intent.NewExtractor(llmClient),
		provider,
		func(cred *oauth.Credential) calendar.EventSource { return calendar.NewGateway(cred) },
		calendar.NewFallbackPolicy(calendar.NewSampleSource()),
		compose.NewComposer(llmClient),
	)

	app := webui.NewApp(queries, tokens,
		webui.WithListenAddr(":"+envOr("PORT", "3100")),
		webui.WithAllowedOrigin(envOr("ALLOWED_ORIGIN", "*")),
		webui.WithDefaultCalendarID(os.Getenv("GOOGLE_CALENDAR_ID")),
	)

	if err := app.Run(); err != nil {
		xlog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
