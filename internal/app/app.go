// Package app wires the engine's dependencies and exposes its operational
// modes:
//
//   - Once mode: run a single generation request and exit
//   - Scheduler mode: poll for eligible subjects and generate on a cadence
//
// Both modes share the same pipeline; the scheduler only adds eligibility
// listing and a daily cap on top.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	"github.com/vistaceo/insight-engine/internal/core/llm"
	"github.com/vistaceo/insight-engine/internal/events"
	"github.com/vistaceo/insight-engine/internal/notify"
	"github.com/vistaceo/insight-engine/internal/platform/config"
	"github.com/vistaceo/insight-engine/internal/platform/observability"
	"github.com/vistaceo/insight-engine/internal/platform/worker"
	"github.com/vistaceo/insight-engine/internal/playbook"
	"github.com/vistaceo/insight-engine/internal/process/assemble"
	"github.com/vistaceo/insight-engine/internal/process/audit"
	"github.com/vistaceo/insight-engine/internal/process/gate"
	"github.com/vistaceo/insight-engine/internal/process/generate"
	"github.com/vistaceo/insight-engine/internal/process/promptgen"
	"github.com/vistaceo/insight-engine/internal/storage"
)

// App holds the application dependencies and provides methods to run the
// operational modes.
type App struct {
	cfg      *config.Config
	database *storage.DB
	logger   *zerolog.Logger

	engine  *generate.Engine
	auditor *audit.Auditor
}

// New creates the App and builds the generation pipeline. Returns an error
// when the playbook file is missing or invalid.
func New(ctx context.Context, cfg *config.Config, database *storage.DB, logger *zerolog.Logger) (*App, error) {
	a := &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}

	playbooks, err := playbook.Load(cfg.PlaybookPath, nil)
	if err != nil {
		return nil, fmt.Errorf("load playbooks: %w", err)
	}

	logger.Info().Strs("categories", playbooks.Categories()).Msg("playbooks loaded")

	emitter := events.NewLogEmitter(ctx, logger)
	notifier := a.newNotifier()
	client := llm.New(ctx, cfg, logger)

	assembler := assemble.New(database, playbooks, cfg.HistoryLimit, logger)
	renderer := promptgen.New(cfg.PromptBudgetChars, cfg.CalibrationMinimum)
	qualityGate := gate.New(gate.DefaultConfig())

	a.engine = generate.New(cfg, database, assembler, renderer, qualityGate, client, emitter, notifier, logger)
	a.auditor = audit.New(audit.Config{
		MinScore:      cfg.AuditMinScore,
		MinConfidence: cfg.AuditMinConfidence,
		BlockList:     cfg.BlockList(),
		TopN:          cfg.AuditTopN,
	}, emitter, logger)

	return a, nil
}

func (a *App) newNotifier() notify.Notifier {
	if a.cfg.AlertBotToken == "" || a.cfg.AlertChatID == 0 {
		return notify.Nop{}
	}

	notifier, err := notify.NewTelegram(a.cfg.AlertBotToken, a.cfg.AlertChatID, a.logger)
	if err != nil {
		a.logger.Warn().Err(err).Msg("operator alerts disabled, bot init failed")

		return notify.Nop{}
	}

	a.logger.Info().Int64("chat_id", a.cfg.AlertChatID).Msg("operator alerts enabled")

	return notifier
}

// StartHealthServer starts the health check and metrics server. Blocks until
// the context is canceled.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunOnce runs a single generation request.
func (a *App) RunOnce(ctx context.Context, req generate.Request) error {
	result, err := a.engine.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generation: %w", err)
	}

	logEvent := a.logger.Info().
		Str("subject_id", req.SubjectID).
		Str("outcome", string(result.Run.Outcome)).
		Int("attempts", len(result.Run.Attempts))

	if result.Run.Reason != "" {
		logEvent = logEvent.Str("reason", result.Run.Reason)
	}

	if result.Artifact != nil {
		logEvent = logEvent.Str("artifact_id", result.Artifact.ID).Str("title", result.Artifact.Title)
	}

	logEvent.Msg("generation finished")

	return nil
}

// RunScheduler polls for subjects without a current artifact and generates
// for them, up to the batch size per tick and the daily cap per subject.
func (a *App) RunScheduler(ctx context.Context, kind domain.ArtifactKind) error {
	return worker.Loop(ctx, worker.Config{
		Name:         "generation-scheduler",
		PollInterval: a.cfg.SchedulerTickInterval,
		Logger:       a.logger,
		Process: func(ctx context.Context) error {
			return a.schedulerTick(ctx, kind)
		},
	})
}

func (a *App) schedulerTick(ctx context.Context, kind domain.ArtifactKind) error {
	bucketStart := dayStart(time.Now().UTC())

	subjects, err := a.database.ListEligibleSubjects(ctx, kind, bucketStart,
		a.cfg.FailureCooldown, a.cfg.FailureCooldownRuns, a.cfg.SchedulerBatchSize)
	if err != nil {
		return fmt.Errorf("list eligible subjects: %w", err)
	}

	observability.SchedulerEligibleSubjects.Set(float64(len(subjects)))

	for _, subjectID := range subjects {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		count, err := a.database.CountRunsSince(ctx, subjectID, bucketStart)
		if err != nil {
			a.logger.Warn().Err(err).Str("subject_id", subjectID).Msg("daily cap check failed, skipping subject")

			continue
		}

		if count >= a.cfg.DailyGenerationCap {
			a.logger.Debug().Str("subject_id", subjectID).Int("runs_today", count).Msg("subject hit daily generation cap")

			continue
		}

		if err := a.RunOnce(ctx, generate.Request{SubjectID: subjectID, Kind: kind}); err != nil {
			a.logger.Error().Err(err).Str("subject_id", subjectID).Msg("scheduled generation failed")
		}
	}

	return nil
}

// AuditedView recomputes the audited projection of a subject's active
// artifacts. Never cached; identical inputs always produce the same view.
func (a *App) AuditedView(ctx context.Context, subjectID string) (domain.AuditedView, error) {
	artifacts, err := a.database.QueryArtifacts(ctx, subjectID, storage.ArtifactFilters{})
	if err != nil {
		return domain.AuditedView{}, fmt.Errorf("load artifacts: %w", err)
	}

	return a.auditor.BuildView(subjectID, artifacts), nil
}

// SetArtifactStatus applies a user-initiated status transition.
func (a *App) SetArtifactStatus(ctx context.Context, artifactID, status string) error {
	switch status {
	case domain.ArtifactStatusActive, domain.ArtifactStatusDismissed,
		domain.ArtifactStatusConverted, domain.ArtifactStatusArchived:
	default:
		return fmt.Errorf("unknown artifact status %q", status)
	}

	if err := a.database.UpdateArtifactStatus(ctx, artifactID, status); err != nil {
		return fmt.Errorf("update artifact status: %w", err)
	}

	return nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
