// Package main runs the chess agent: an A2A JSON-RPC server that plays the
// black pieces against its users with a UCI engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chessagent/cmd/chess-agent/cli"
	"chessagent/internal/a2a"
	"chessagent/internal/classifier"
	"chessagent/internal/config"
	"chessagent/internal/delivery"
	"chessagent/internal/engine"
	agenthttp "chessagent/internal/http"
	"chessagent/internal/metrics"
	"chessagent/internal/processor"
	"chessagent/internal/render"
	"chessagent/internal/storage"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const gracefulShutdownTimeout = 10 * time.Second

// sessionStore is what both the processor and the health check need.
type sessionStore interface {
	processor.Store
	agenthttp.Pinger
}

func main() {
	// Admin subcommands bypass the server
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "db", "token":
			if err := cli.Run(os.Args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "CLI error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	var (
		dev     = flag.Bool("dev", false, "Development mode (console logs, relaxed rate limits)")
		envFile = flag.String("env", "", "Optional .env file (default: ./.env if present)")
		pidPath = flag.String("pid", "", "Optional path to write PID file")
		pidLock = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")
	)
	flag.Parse()

	if *pidLock && *pidPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -pid-lock flag requires the -pid flag to be set")
		os.Exit(2)
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, *dev || cfg.Local())

	if *pidPath != "" {
		cleanup, err := managePIDFile(*pidPath, *pidLock)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to manage PID file")
		}
		defer cleanup()
		logger.Info().Str("path", *pidPath).Bool("lock", *pidLock).Msg("PID file created")
	}

	if err := run(cfg, *dev, logger); err != nil {
		logger.Error().Err(err).Msg("agent stopped with error")
		os.Exit(1)
	}
}

func newLogger(level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if console {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func run(cfg *config.Config, dev bool, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// 1. Session store
	store, closeStore, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// 2. Archive (optional)
	var archive *storage.Archive
	if cfg.ArchivePath != "" {
		archive, err = storage.OpenArchive(cfg.ArchivePath, logger)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		if err := archive.InitDB(); err != nil {
			archive.Close()
			return fmt.Errorf("initializing archive schema: %w", err)
		}
		defer archive.Close()
		logger.Info().Str("path", cfg.ArchivePath).Msg("archive enabled")
	}

	// 3. Engine pool
	pool := engine.NewPool(cfg.EnginePoolSize, engine.UCIFactory(cfg.EnginePath, cfg.EngineSkill), logger)
	m.RegisterGauge("chessagent_engine_pool_idle", "Idle engine processes.", func() float64 { return float64(pool.Idle()) })
	m.RegisterGauge("chessagent_engine_pool_in_use", "Leased engine processes.", func() float64 { return float64(pool.InUse()) })

	// 4. Classifier and renderer
	cls, err := newClassifier(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return err
	}
	renderer, err := newRenderer(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return err
	}

	// 5. Processor
	deps := processor.Deps{
		Store:           store,
		Engines:         pool,
		Classifier:      cls,
		Renderer:        renderer,
		Metrics:         m,
		Logger:          logger,
		EngineTimeLimit: cfg.EngineTimeLimit,
	}
	if archive != nil {
		deps.Archive = archive
	}
	proc, err := processor.New(deps)
	if err != nil {
		pool.Close()
		return err
	}

	// 6. Delivery
	var (
		strategy delivery.Strategy
		webhook  *delivery.Webhook
	)
	if cfg.Webhook() {
		webhook = delivery.NewWebhook(proc, delivery.WebhookConfig{
			PipelineTimeout: cfg.PipelineTimeout,
			PostTimeout:     cfg.WebhookTimeout,
			Metrics:         m,
		}, logger)
		strategy = webhook
	} else {
		strategy = delivery.NewBlocking(proc, cfg.PipelineTimeout, logger)
	}

	// 7. HTTP
	opts := agenthttp.Options{
		Delivery: strategy,
		Tasks:    proc,
		Storage:  store,
		Metrics:  m,
		Card: agenthttp.CardOptions{
			Local:           cfg.Local(),
			NameSuffix:      a2a.NewID()[:8],
			TelexExtensions: cfg.WithTelexExtensions,
		},
		JWTSecret: []byte(cfg.AuthJWTSecret),
		RateLimit: cfg.RateLimitPerMinute,
		DevMode:   dev,
		Logger:    logger,
	}
	if archive != nil {
		opts.Archive = archive
	}
	app := agenthttp.NewFiberApp(opts)

	logger.Info().
		Str("addr", cfg.Addr()).
		Str("deployment", cfg.DeploymentType).
		Str("engine", cfg.EnginePath).
		Int("pool_size", cfg.EnginePoolSize).
		Bool("auth", cfg.AuthJWTSecret != "").
		Msg("chess agent starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.Listen(cfg.Addr()); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		var errs []error
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if webhook != nil {
			if err := webhook.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("webhook shutdown: %w", err))
			}
		}
		if err := pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("engine pool: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("chess agent exited")
	return nil
}

func openSessionStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (sessionStore, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, sessions are kept in memory")
		return storage.NewMemoryStore(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rs, err := storage.NewRedisStore(connectCtx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	return rs, func() {
		if err := rs.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing redis")
		}
	}, nil
}

func newClassifier(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (classifier.Classifier, error) {
	if !cfg.GeminiEnabled() {
		logger.Info().Msg("GEMINI_API_KEY not set, using keyword classifier")
		return classifier.Rules{}, nil
	}
	gem, err := classifier.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("creating gemini classifier: %w", err)
	}
	return &classifier.Fallback{
		Primary:   gem,
		Secondary: classifier.Rules{},
		Logger:    logger,
	}, nil
}

func newRenderer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (render.Renderer, error) {
	if !cfg.MinioEnabled() {
		return render.Inline{}, nil
	}
	up, err := render.NewMinioUploader(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := up.Check(checkCtx); err != nil {
		logger.Warn().Err(err).Str("bucket", cfg.MinioBucket).Msg("bucket check failed, uploads may fail")
	}
	return render.NewPublished(up, cfg.MinioBucket, cfg.MediaBaseURL), nil
}
