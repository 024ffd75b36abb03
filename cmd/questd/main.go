// Command questd serves the questplan API, the MCP endpoint and the ops
// endpoints (health, readiness, metrics).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/questplan/internal/api"
	"github.com/p-blackswan/questplan/internal/assistant"
	"github.com/p-blackswan/questplan/internal/auth"
	"github.com/p-blackswan/questplan/internal/config"
	"github.com/p-blackswan/questplan/internal/export"
	"github.com/p-blackswan/questplan/internal/health"
	"github.com/p-blackswan/questplan/internal/llm"
	"github.com/p-blackswan/questplan/internal/mcpserver"
	"github.com/p-blackswan/questplan/internal/metrics"
	"github.com/p-blackswan/questplan/internal/notify"
	"github.com/p-blackswan/questplan/internal/retry"
	"github.com/p-blackswan/questplan/internal/store"
	"github.com/p-blackswan/questplan/internal/tool"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("version", version).
		Str("environment", cfg.Environment).
		Int("http_port", cfg.HTTPPort).
		Str("api_addr", cfg.APIListenAddr).
		Str("database", cfg.DatabaseDriver).
		Str("ai_provider", cfg.AIProvider).
		Bool("ai_enabled", cfg.AIEnabled()).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Bool("github_enabled", cfg.GitHubEnabled()).
		Msg("starting questplan")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	st, err := store.New(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	authn, err := auth.New(auth.Config{
		Mode:      cfg.AuthMode,
		Secret:    []byte(cfg.AuthJWTSecret),
		Issuer:    cfg.AuthJWTIssuer,
		Audience:  cfg.AuthJWTAudience,
		DevUserID: cfg.AuthDevUserID,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure auth")
	}
	if cfg.AuthMode == auth.ModeNone {
		logger.Warn().Str("user_id", cfg.AuthDevUserID).Msg("Authentication disabled, every request acts as the dev user")
	}

	m := metrics.New()

	checker := health.NewChecker(logger)
	checker.Register("database", health.PingCheck(st))
	checker.Register("ai", health.ConfiguredCheck(cfg.AIEnabled()))

	catalog, err := assistant.LoadCatalog(cfg.PromptsPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.PromptsPath).Msg("failed to load prompt catalog")
	}

	notifiers := notify.Multi{notify.NewLog(logger)}
	if cfg.SlackEnabled() {
		notifiers = append(notifiers, notify.NewSlack(cfg.SlackWebhookURL, logger))
		logger.Info().Msg("Slack achievement notifications enabled")
	} else {
		logger.Info().Msg("Slack not configured, skipping")
	}

	bridge := tool.NewBridge(st,
		tool.WithNotifier(notifiers),
		tool.WithMetrics(m),
		tool.WithLogger(logger),
	)

	var asst *assistant.Assistant
	if cfg.AIEnabled() {
		apiKey := cfg.AnthropicAPIKey
		if strings.EqualFold(cfg.AIProvider, llm.ProviderOpenAI) {
			apiKey = cfg.OpenAIAPIKey
		}
		opts := []llm.Option{
			llm.WithHTTPClient(&http.Client{Timeout: cfg.AITimeout}),
			llm.WithLogger(logger),
		}
		if cfg.AIModel != "" {
			opts = append(opts, llm.WithModel(cfg.AIModel))
		}
		if cfg.AIBaseURL != "" {
			opts = append(opts, llm.WithBaseURL(cfg.AIBaseURL))
		}
		provider, err := llm.NewProvider(cfg.AIProvider, apiKey, opts...)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init language model provider")
		}
		asst = assistant.New(provider, catalog, st, bridge, assistant.Settings{
			ChatTemperature:    cfg.ChatTemperature,
			ChatMaxTokens:      cfg.ChatMaxTokens,
			PlanTemperature:    cfg.PlanTemperature,
			PlanMaxTokens:      cfg.PlanMaxTokens,
			AssistantMaxTokens: cfg.AssistantMaxTokens,
			MaxToolRounds:      cfg.AssistantMaxToolRounds,
			Retry:              retry.DefaultConfig(),
		}, m, logger)
		logger.Info().Str("provider", cfg.AIProvider).Str("model", provider.ModelID()).Msg("Assistant initialized")
	} else {
		logger.Warn().Msg("No language model credentials, chat and plan generation are disabled")
	}

	var exporter api.Exporter
	if cfg.GitHubEnabled() {
		exporter = export.NewGitHub(cfg.GitHubToken, logger)
		logger.Info().Msg("GitHub export enabled")
	} else {
		logger.Info().Msg("GitHub not configured, skipping")
	}

	if !checker.IsReady(ctx) {
		logger.Warn().Interface("checks", checker.RunAll(ctx)).Msg("starting with failing readiness checks")
	}

	apiServer := api.NewServer(api.Config{
		ListenAddr:      cfg.APIListenAddr,
		CORSOrigins:     cfg.CORSOriginList(),
		TLSCert:         cfg.APITLSCert,
		TLSKey:          cfg.APITLSKey,
		RateLimitMax:    cfg.APIRateLimitMax,
		RateLimitWindow: cfg.APIRateLimitWindow,
	}, api.Deps{
		Store:     st,
		Auth:      authn,
		Assistant: asst,
		Catalog:   catalog,
		Exporter:  exporter,
		Notifier:  notifiers,
		Metrics:   m,
		Logger:    logger,
	})

	// Ops server: probes, metrics and MCP.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", health.LivenessHandler())
	mux.HandleFunc("/ready", checker.ReadinessHandler())
	mux.Handle("/metrics", m.Handler())
	mux.Handle(mcpserver.Path, mcpserver.New(bridge, version, logger).Handler(authn))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// MCP responses may stream for as long as a tool call runs.
		WriteTimeout: 0,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Int("port", cfg.HTTPPort).Msg("ops server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("ops server error")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown error")
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all servers stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("questplan stopped")
}
