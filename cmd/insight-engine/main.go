package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vistaceo/insight-engine/internal/app"
	"github.com/vistaceo/insight-engine/internal/core/domain"
	"github.com/vistaceo/insight-engine/internal/platform/config"
	"github.com/vistaceo/insight-engine/internal/process/generate"
	db "github.com/vistaceo/insight-engine/internal/storage"
)

func main() {
	mode := flag.String("mode", "scheduler", "Service mode (scheduler, once)")
	kind := flag.String("kind", "prediction", "Artifact kind (prediction, blog_post, mission_plan)")
	subject := flag.String("subject", "", "Subject ID (required for once mode)")
	title := flag.String("title", "", "Requested topic title (optional)")
	force := flag.Bool("force", false, "Generate even when the publish window already has an artifact")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolOpts := db.PoolOptions{
		MaxConns:          cfg.DBMaxConnections,
		MinConns:          cfg.DBMinConnections,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	}

	database, err := db.New(ctx, cfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application, err := app.New(ctx, cfg, database, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build application")
	}

	// Start health server in background
	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode, domain.ArtifactKind(*kind), *subject, *title, *force); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string, kind domain.ArtifactKind, subject, title string, force bool) error {
	switch mode {
	case "scheduler":
		return application.RunScheduler(ctx, kind)
	case "once":
		if subject == "" {
			log.Fatalf("Usage: %s --mode=once --subject=<id> [--kind=...] [--title=...] [--force]", os.Args[0])
		}

		return application.RunOnce(ctx, generate.Request{
			SubjectID: subject,
			Kind:      kind,
			Title:     title,
			Force:     force,
		})
	default:
		log.Fatalf("Usage: %s --mode=[scheduler|once]", os.Args[0])

		return nil
	}
}
