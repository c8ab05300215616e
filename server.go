package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"

	"github.com/Conceptual-Machines/prompt-architect/internal/api"
	"github.com/Conceptual-Machines/prompt-architect/internal/api/middleware"
	"github.com/Conceptual-Machines/prompt-architect/internal/catalog"
	"github.com/Conceptual-Machines/prompt-architect/internal/config"
	"github.com/Conceptual-Machines/prompt-architect/internal/database"
	"github.com/Conceptual-Machines/prompt-architect/internal/kvstore"
	"github.com/Conceptual-Machines/prompt-architect/internal/llm"
	"github.com/Conceptual-Machines/prompt-architect/internal/metrics"
	"github.com/Conceptual-Machines/prompt-architect/internal/observability"
	"github.com/Conceptual-Machines/prompt-architect/internal/prompt"
	"github.com/Conceptual-Machines/prompt-architect/internal/services"
	"github.com/Conceptual-Machines/prompt-architect/internal/studio"
)

const (
	sentryFlushTimeout = 2 * time.Second
	shutdownTimeout    = 10 * time.Second
	sweepInterval      = 10 * time.Minute
)

type serveOptions struct {
	envFile string
	port    string
	dbType  string
	dbURL   string
}

func serve(ctx context.Context, opts serveOptions) error {
	if err := godotenv.Load(opts.envFile); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if opts.port != "" {
		cfg.Port = opts.port
	}
	if opts.dbType != "" {
		cfg.DatabaseType = opts.dbType
	}
	if opts.dbURL != "" {
		cfg.DatabaseURL = opts.dbURL
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "prompt-architect@" + GetVersion(),
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            !cfg.IsProduction(),
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, GetVersion())
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	store, err := database.New(cfg.DatabaseType, cfg.DatabaseURL, cfg.DatabaseDebug)
	if err != nil {
		return err
	}
	if err := store.Start(ctx); err != nil {
		sentry.CaptureException(err)
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()
	if err := store.Migrate(); err != nil {
		sentry.CaptureException(err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	observability.InitializeLangfuse(ctx, cfg)

	cloudwatch, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		log.Printf("⚠️  CloudWatch metrics disabled: %v", err)
	}
	recorder := metrics.NewRecorder(metrics.NewSentryMetrics(), cloudwatch)

	provider, err := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey).GetProvider(ctx, cfg.LLMModel, cfg.LLMProvider)
	if err != nil {
		return fmt.Errorf("failed to create llm provider: %w", err)
	}
	builder, err := prompt.NewPromptBuilder(cfg.LLMModel)
	if err != nil {
		return fmt.Errorf("failed to load prompt templates: %w", err)
	}
	generator := services.NewPromptService(provider, builder, recorder, nil)

	cat := catalog.Default()
	registry := studio.NewRegistry(studio.Config{
		Catalog:     cat,
		Generator:   generator,
		Store:       kvstore.NewSettings(store),
		Recorder:    recorder,
		MaxUpload:   cfg.MaxUploadBytes(),
		IdleTimeout: cfg.SessionIdleTimeout,
	})
	go registry.Run(ctx, sweepInterval)

	publicURL, err := url.Parse(cfg.PublicURL)
	if err != nil {
		return fmt.Errorf("invalid PUBLIC_URL %q: %w", cfg.PublicURL, err)
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		log.Println("⚠️  SESSION_SECRET not set, sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.Deps{
		Config:    cfg,
		Catalog:   cat,
		Registry:  registry,
		Sessions:  middleware.NewSessionStore(secret, publicURL.Scheme == "https"),
		Recorder:  recorder,
		DB:        store,
		PublicURL: publicURL,
		Provider:  provider.Name(),
		Version:   GetVersion(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("🚀 Starting server on port %s (provider: %s, model: %s, db: %s)", cfg.Port, provider.Name(), cfg.LLMModel, store.Type())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
