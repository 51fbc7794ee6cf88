package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonny/insight-bot/internal/adapter/inbound/slackbot"
	"github.com/jonny/insight-bot/internal/adapter/inbound/webhook"
	"github.com/jonny/insight-bot/internal/adapter/outbound/datasource"
	"github.com/jonny/insight-bot/internal/adapter/outbound/datasource/random"
	"github.com/jonny/insight-bot/internal/adapter/outbound/llm"
	"github.com/jonny/insight-bot/internal/adapter/outbound/llm/gemini"
	"github.com/jonny/insight-bot/internal/adapter/outbound/llm/ollama"
	"github.com/jonny/insight-bot/internal/adapter/outbound/notification"
	slackmessenger "github.com/jonny/insight-bot/internal/adapter/outbound/notification/slack"
	"github.com/jonny/insight-bot/internal/adapter/outbound/persistence/postgres"
	"github.com/jonny/insight-bot/internal/adapter/outbound/persistence/sqlite"
	"github.com/jonny/insight-bot/internal/config"
	"github.com/jonny/insight-bot/internal/domain/port/inbound"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
	"github.com/jonny/insight-bot/internal/domain/prompt"
	"github.com/jonny/insight-bot/internal/domain/service"
	"github.com/jonny/insight-bot/internal/domain/view"
	"github.com/jonny/insight-bot/pkg/health"
	"github.com/jonny/insight-bot/pkg/version"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	printVersion := flag.Bool("version", false, "print version and exit")
	simulate := flag.String("simulate", "", "run the customer flow once for this customer ID and exit")
	channel := flag.String("channel", "C-SIMULATED", "channel ID used with -simulate")
	user := flag.String("user", "U-SIMULATED", "user ID used with -simulate")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker(0)

	// --- Data source ---
	data, closeData, err := buildDataSource(ctx, cfg.DataSource, checker, logger)
	if err != nil {
		logger.Error("failed to build data source", "error", err)
		os.Exit(1)
	}
	defer closeData()

	// --- Summarizer ---
	summarizer, err := buildSummarizer(ctx, cfg.Summarizer)
	if err != nil {
		logger.Error("failed to create summarizer", "error", err)
		os.Exit(1)
	}
	checker.Register("summarizer", summarizer.HealthCheck)
	info := summarizer.ModelInfo()
	logger.Info("summarizer ready", "provider", info.Provider, "model", info.Model)

	// --- Domain services ---
	prompts, err := prompt.NewBuilder(cfg.Summarizer.MaxWords)
	if err != nil {
		logger.Error("failed to build prompts", "error", err)
		os.Exit(1)
	}
	enricher := service.NewEnricher(data, summarizer, prompts, service.EnricherConfig{
		MaxTokens:       cfg.Summarizer.MaxTokens,
		MaxSummaryChars: cfg.Summarizer.MaxSummaryChars,
	}, logger)
	scheduler := service.NewScheduler(logger)
	orchestrator, err := service.NewOrchestrator(enricher, scheduler, service.OrchestratorConfig{
		RenderDelay:    cfg.Interaction.RenderDelay,
		HandlerTimeout: cfg.Interaction.HandlerTimeout,
		FirstPageSize:  cfg.Interaction.FirstPageSize,
		NextPageSize:   cfg.Interaction.NextPageSize,
		LoadingText:    cfg.Interaction.LoadingText,
	}, logger)
	if err != nil {
		logger.Error("failed to create orchestrator", "error", err)
		os.Exit(1)
	}

	if *simulate != "" {
		if err := runSimulation(ctx, orchestrator, scheduler, cfg.Interaction.DrainTimeout, *simulate, *channel, *user, logger); err != nil {
			logger.Error("simulation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// --- Slack transport ---
	var (
		bot         *slackbot.Bot
		httpHandler *slackbot.HTTPHandler
	)
	if cfg.Slack.Enabled {
		messenger := slackmessenger.NewMessenger(slackmessenger.Config{BotToken: cfg.Slack.BotToken})
		checker.Register("slack", messenger.HealthCheck)

		switch cfg.Slack.Mode {
		case "http":
			httpHandler = slackbot.NewHTTPHandler(orchestrator, messenger, cfg.Slack.AckTimeout, logger)
		default:
			bot = slackbot.NewBot(slackbot.Config{
				BotToken: cfg.Slack.BotToken,
				AppToken: cfg.Slack.AppToken,
				Debug:    cfg.Slack.Debug,
			}, orchestrator, messenger, logger)
		}
	} else {
		logger.Info("slack disabled; serving health endpoints only")
	}

	var registrar webhook.RouteRegistrar
	if httpHandler != nil {
		registrar = httpHandler
	}
	webhookServer := webhook.NewServer(webhook.ServerConfig{
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		RateLimitEnabled:  cfg.Server.RateLimit.Enabled,
		RequestsPerMinute: cfg.Server.RateLimit.RequestsPerMinute,
		Burst:             cfg.Server.RateLimit.Burst,
		SigningSecret:     cfg.Slack.SigningSecret,
	}, registrar, logger)

	// --- Metrics/health server ---
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", checker.LivenessHandler())
	metricsMux.HandleFunc("/readyz", checker.ReadinessHandler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting webhook server", "port", cfg.Server.Port)
		return webhookServer.Start(gCtx)
	})

	g.Go(func() error {
		logger.Info("starting metrics server", "port", cfg.Server.MetricsPort, "checks", checker.Names())
		errCh := make(chan error, 1)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()
		select {
		case <-gCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	})

	if bot != nil {
		g.Go(func() error {
			logger.Info("starting slack bot in socket mode")
			return bot.Start(gCtx)
		})
	}

	logger.Info("insight-bot started", "version", version.String(), "slack_mode", cfg.Slack.Mode)

	runErr := g.Wait()

	// In-flight handlers may still schedule renders until they return.
	if httpHandler != nil {
		httpHandler.Wait()
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Interaction.DrainTimeout)
	if err := scheduler.Drain(drainCtx); err != nil {
		logger.Warn("pending renders were canceled", "error", err)
	}
	cancel()

	if runErr != nil {
		logger.Error("server exited with error", "error", runErr)
		os.Exit(1)
	}

	logger.Info("insight-bot stopped")
}

// buildDataSource returns the configured data source and a function releasing
// its resources.
func buildDataSource(ctx context.Context, cfg config.DataSourceConfig, checker *health.Checker, logger *slog.Logger) (outbound.DataSource, func(), error) {
	gen, err := random.New(random.Config{HistorySize: cfg.Random.HistorySize, Seed: cfg.Random.Seed})
	if err != nil {
		return nil, nil, fmt.Errorf("creating generator: %w", err)
	}

	var (
		store   outbound.RecordStore
		closeFn func()
	)
	switch cfg.Driver {
	case "random":
		logger.Info("using random data source", "history_size", cfg.Random.HistorySize)
		return gen, func() {}, nil
	case "sqlite":
		s, err := sqlite.NewStore(ctx, sqlite.Config{
			Path:              cfg.SQLite.Path,
			MaxOpenConns:      cfg.SQLite.MaxOpenConns,
			PragmaJournalMode: cfg.SQLite.PragmaJournalMode,
			PragmaBusyTimeout: cfg.SQLite.PragmaBusyTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		store = sqlite.NewCustomerRepo(s)
		closeFn = func() { _ = s.Close() }
	case "postgres":
		db, err := postgres.Connect(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			ConnectTimeout:  cfg.Postgres.ConnectTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		store = postgres.NewCustomers(db)
		closeFn = db.Close
	default:
		return nil, nil, fmt.Errorf("unknown data source driver %q", cfg.Driver)
	}

	checker.Register("datasource", store.Ping)
	logger.Info("using persistent data source", "driver", cfg.Driver, "seed_missing", cfg.SeedMissing)
	if cfg.SeedMissing {
		return datasource.NewSeeding(store, gen, logger), closeFn, nil
	}
	return store, closeFn, nil
}

func buildSummarizer(ctx context.Context, cfg config.SummarizerConfig) (outbound.Summarizer, error) {
	var next outbound.Summarizer
	switch cfg.Provider {
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:       cfg.Gemini.APIKey,
			Model:        cfg.Gemini.Model,
			BaseURL:      cfg.Gemini.BaseURL,
			Timeout:      cfg.Gemini.Timeout,
			SystemPrompt: cfg.Gemini.SystemPrompt,
			Temperature:  cfg.Gemini.Temperature,
		})
		if err != nil {
			return nil, err
		}
		next = c
	default:
		c, err := ollama.NewClient(ollama.Config{
			BaseURL:      cfg.Ollama.BaseURL,
			Model:        cfg.Ollama.Model,
			Timeout:      cfg.Ollama.Timeout,
			MaxRetries:   cfg.Ollama.MaxRetries,
			SystemPrompt: cfg.Ollama.SystemPrompt,
			Temperature:  cfg.Ollama.Temperature,
		})
		if err != nil {
			return nil, err
		}
		next = c
	}
	return llm.NewRateLimited(next, cfg.RequestsPerSecond, cfg.Burst), nil
}

// runSimulation drives one /insight command through a log-only messenger and
// flushes the delayed render before returning.
func runSimulation(ctx context.Context, port inbound.InteractionPort, scheduler *service.Scheduler, drainTimeout time.Duration, customerID, channel, user string, logger *slog.Logger) error {
	logger.Info("simulating customer flow", "customer_id", customerID, "channel", channel, "user", user)

	evt := inbound.TriggerEvent{
		Kind:      inbound.EventSlashCommand,
		ID:        view.CommandInsight,
		UserID:    user,
		ChannelID: channel,
		TriggerID: "simulated-trigger",
		Text:      "customer " + customerID,
	}
	ack := func(payload any) error {
		logger.Info("acknowledged", "payload", payload)
		return nil
	}
	if err := port.Dispatch(ctx, evt, notification.NewLogMessenger(logger), ack); err != nil {
		return err
	}

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	return scheduler.Drain(drainCtx)
}

// buildLogger constructs a slog.Logger based on config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
