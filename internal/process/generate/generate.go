// Package generate orchestrates one generation request end to end: assemble
// context once, then render, complete, parse and gate in a bounded retry
// loop, persisting an artifact on acceptance and a run record always.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
	"github.com/vistaceo/insight-engine/internal/core/llm"
	"github.com/vistaceo/insight-engine/internal/events"
	"github.com/vistaceo/insight-engine/internal/notify"
	"github.com/vistaceo/insight-engine/internal/platform/config"
	"github.com/vistaceo/insight-engine/internal/platform/observability"
	"github.com/vistaceo/insight-engine/internal/process/assemble"
	"github.com/vistaceo/insight-engine/internal/process/audit"
	"github.com/vistaceo/insight-engine/internal/process/gate"
	"github.com/vistaceo/insight-engine/internal/process/parse"
	"github.com/vistaceo/insight-engine/internal/process/promptgen"
)

// Skip and failure reasons recorded on the run.
const (
	ReasonAlreadyProduced  = "already-produced"
	ReasonCannibalization  = "cannibalization"
	ReasonContext          = "context-unavailable"
	ReasonRateLimited      = "rate-limited"
	ReasonQuotaExceeded    = "quota-exceeded"
	ReasonProviderFailure  = "provider-failure"
	ReasonQualityExhausted = "quality-gate-exhausted"
	ReasonPersistence      = "persistence-failure"
)

// Budgets for writes that must not inherit the request deadline.
const (
	runLogTimeout = 5 * time.Second
	alertTimeout  = 5 * time.Second
)

// Store is the persistence surface the engine writes through.
type Store interface {
	HasArtifactSince(ctx context.Context, subjectID string, kind domain.ArtifactKind, bucketStart time.Time) (bool, error)
	InsertArtifact(ctx context.Context, artifact *domain.Artifact) error
	SaveEmbedding(ctx context.Context, artifactID string, embedding []float32) error
	FindSimilarArtifact(ctx context.Context, subjectID string, embedding []float32, threshold float32, minCreatedAt time.Time) (string, error)
	InsertRun(ctx context.Context, run *domain.GenerationRun) error
}

// Request is one generation request.
type Request struct {
	SubjectID string
	Kind      domain.ArtifactKind
	Facets    domain.Facets
	Title     string
	Force     bool
}

// Result pairs the logged run with the artifact published by it, when any.
type Result struct {
	Run      domain.GenerationRun
	Artifact *domain.Artifact
}

// Engine runs generation requests. Safe for concurrent use.
type Engine struct {
	cfg       *config.Config
	store     Store
	assembler *assemble.Assembler
	renderer  *promptgen.Renderer
	gate      *gate.Gate
	client    llm.Client
	emitter   events.Emitter
	notifier  notify.Notifier
	logger    *zerolog.Logger
	now       func() time.Time
}

// New creates an Engine.
func New(
	cfg *config.Config,
	store Store,
	assembler *assemble.Assembler,
	renderer *promptgen.Renderer,
	qualityGate *gate.Gate,
	client llm.Client,
	emitter events.Emitter,
	notifier notify.Notifier,
	logger *zerolog.Logger,
) *Engine {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}

	if notifier == nil {
		notifier = notify.Nop{}
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Engine{
		cfg:       cfg,
		store:     store,
		assembler: assembler,
		renderer:  renderer,
		gate:      qualityGate,
		client:    client,
		emitter:   emitter,
		notifier:  notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate runs one request through the pipeline. The returned error covers
// infrastructure problems only; rejected or skipped requests come back as a
// Result with the matching run outcome.
func (e *Engine) Generate(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestDeadline)
	defer cancel()

	requestID := uuid.NewString()
	logger := e.logger.With().
		Str("request_id", requestID).
		Str("subject_id", req.SubjectID).
		Str("kind", string(req.Kind)).
		Logger()

	run := domain.GenerationRun{
		SubjectID: req.SubjectID,
		Kind:      req.Kind,
		StartedAt: e.now(),
	}

	// One artifact per subject, kind and UTC day; skip before spending a
	// model call unless forced.
	if !req.Force {
		produced, err := e.store.HasArtifactSince(ctx, req.SubjectID, req.Kind, e.bucketStart())
		if err != nil {
			return Result{}, fmt.Errorf("eligibility check: %w", err)
		}

		if produced {
			logger.Info().Msg("artifact already produced in this publish window")

			return e.finish(ctx, &run, domain.RunSkipped, ReasonAlreadyProduced, nil, nil), nil
		}
	}

	bundle, err := e.assembler.Assemble(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, coreerrors.ErrContextUnavailable) {
			logger.Warn().Err(err).Msg("context unavailable")

			return e.finish(ctx, &run, domain.RunFailed, ReasonContext, nil, nil), nil
		}

		return Result{}, fmt.Errorf("assemble context: %w", err)
	}

	if skip := e.cannibalizes(ctx, req, bundle, &logger); skip {
		return e.finish(ctx, &run, domain.RunSkipped, ReasonCannibalization, nil, &bundle), nil
	}

	artifact, outcome, reason := e.attemptLoop(ctx, req, bundle, &run, &logger)

	return e.finish(ctx, &run, outcome, reason, artifact, &bundle), nil
}

// attemptLoop drives the bounded render/complete/parse/gate cycle. The bundle
// is assembled once; each retry re-renders with the union of prior issues.
func (e *Engine) attemptLoop(ctx context.Context, req Request, bundle domain.ContextBundle, run *domain.GenerationRun, logger *zerolog.Logger) (*domain.Artifact, domain.RunOutcome, string) {
	var priorIssues []string

	for attemptNo := 1; attemptNo <= e.cfg.MaxAttempts; attemptNo++ {
		prompt, err := e.renderer.Render(promptgen.Request{
			Bundle:      bundle,
			Kind:        req.Kind,
			Facets:      req.Facets,
			PriorIssues: priorIssues,
		})
		if err != nil {
			logger.Error().Err(err).Msg("prompt render failed")

			return nil, domain.RunFailed, ReasonProviderFailure
		}

		attempt := domain.GenerationAttempt{
			AttemptNumber: attemptNo,
			PromptDigest:  prompt.Digest,
		}

		result, err := e.complete(ctx, prompt.Text)
		if err != nil {
			attempt.Outcome = domain.AttemptErrored
			attempt.Error = err.Error()
			run.Attempts = append(run.Attempts, attempt)

			return nil, domain.RunFailed, e.classifyCompletionFailure(ctx, err, logger)
		}

		attempt.RawModelOutput = result.Text

		payload := parse.Parse(req.Kind, result.Text, req.Title)
		attempt.RepairedOutput = payload.Markdown
		attempt.RepairsApplied = payload.Repairs

		report := e.gate.Evaluate(payload)
		attempt.Report = report

		for name, ok := range report.Checks {
			if !ok {
				observability.GateChecksFailed.WithLabelValues(name).Inc()
			}
		}

		if report.Passed {
			attempt.Outcome = domain.AttemptAccepted
			run.Attempts = append(run.Attempts, attempt)

			artifact, reason := e.publish(ctx, req, bundle, payload, logger)
			if artifact == nil {
				return nil, outcomeForReason(reason), reason
			}

			// A non-empty reason on a published run flags a partial
			// persistence failure among the remaining candidates.
			return artifact, domain.RunPublished, reason
		}

		attempt.Outcome = domain.AttemptRejected
		run.Attempts = append(run.Attempts, attempt)

		priorIssues = mergeIssues(priorIssues, report.Issues)

		logger.Info().
			Int("attempt", attemptNo).
			Int("score", report.Score).
			Strs("issues", report.Issues).
			Msg("attempt rejected by quality gate")

		e.emitter.Emit(events.Event{
			Category:  "generation",
			Severity:  events.SeverityWarn,
			Action:    "attempt_rejected",
			SubjectID: req.SubjectID,
			Payload:   map[string]any{"attempt": attemptNo, "score": report.Score},
		})
	}

	return nil, domain.RunFailed, ReasonQualityExhausted
}

// alert pages the operator on a context detached from the request, so the
// deadline that caused the problem cannot also suppress the page.
func (e *Engine) alert(ctx context.Context, message string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()

	e.notifier.Alert(ctx, message)
}

func (e *Engine) complete(ctx context.Context, prompt string) (llm.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CompletionTimeout)
	defer cancel()

	return e.client.Complete(ctx, prompt, llm.Params{
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
}

// classifyCompletionFailure maps a provider error onto a run reason. Rate
// limit and quota abort without retry; quota additionally pages the operator.
func (e *Engine) classifyCompletionFailure(ctx context.Context, err error, logger *zerolog.Logger) string {
	switch {
	case errors.Is(err, coreerrors.ErrQuotaExceeded):
		logger.Error().Err(err).Msg("provider quota exhausted")
		e.alert(ctx, "insight-engine: completion provider quota exhausted, generation halted")

		return ReasonQuotaExceeded
	case errors.Is(err, coreerrors.ErrRateLimited):
		logger.Warn().Err(err).Msg("provider rate limited")

		return ReasonRateLimited
	default:
		logger.Error().Err(err).Msg("completion failed")

		return ReasonProviderFailure
	}
}

// publish turns a gated payload into persisted artifacts. Candidates whose
// fingerprint already appears in history, or that lose the unique-index race
// at insert, are dropped; when everything is a duplicate the run is a
// cannibalization skip, not a publish. A non-duplicate insert failure after
// the model call is money already spent, so it pages the operator and is
// recorded on the run even when earlier candidates made it through.
func (e *Engine) publish(ctx context.Context, req Request, bundle domain.ContextBundle, payload parse.Payload, logger *zerolog.Logger) (*domain.Artifact, string) {
	seen := make(map[string]struct{}, len(bundle.History))
	for _, h := range bundle.History {
		seen[h.Fingerprint] = struct{}{}
	}

	artifacts := buildArtifacts(req, bundle, payload)

	fresh := artifacts[:0]

	for i := range artifacts {
		if _, dup := seen[artifacts[i].Fingerprint]; dup {
			logger.Info().Str("title", artifacts[i].Title).Msg("dropping duplicate of prior artifact")

			continue
		}

		fresh = append(fresh, artifacts[i])
	}

	if len(fresh) == 0 {
		return nil, ReasonCannibalization
	}

	var (
		first         *domain.Artifact
		persistFailed bool
	)

	for i := range fresh {
		if err := e.store.InsertArtifact(ctx, &fresh[i]); err != nil {
			if errors.Is(err, coreerrors.ErrDuplicateArtifact) {
				logger.Info().Str("title", fresh[i].Title).Msg("dropping candidate already published in this window")

				continue
			}

			logger.Error().Err(err).Msg("artifact persistence failed after model spend")
			e.alert(ctx, fmt.Sprintf("insight-engine: failed to persist artifact for subject %s after model spend", req.SubjectID))
			persistFailed = true

			break
		}

		e.saveEmbedding(ctx, &fresh[i], logger)

		if first == nil {
			first = &fresh[i]
		}

		e.emitter.Emit(events.Event{
			Category:  "generation",
			Severity:  events.SeverityInfo,
			Action:    "artifact_published",
			SubjectID: req.SubjectID,
			Payload:   map[string]any{"artifact_id": fresh[i].ID, "kind": string(req.Kind)},
		})
	}

	switch {
	case persistFailed:
		return first, ReasonPersistence
	case first == nil:
		// Every surviving candidate lost the index race.
		return nil, ReasonCannibalization
	default:
		return first, ""
	}
}

// saveEmbedding is best-effort: the artifact is already durable and a missing
// embedding only weakens future similarity checks.
func (e *Engine) saveEmbedding(ctx context.Context, artifact *domain.Artifact, logger *zerolog.Logger) {
	if !e.client.SupportsEmbeddings() {
		return
	}

	embedding, err := e.client.Embed(ctx, artifact.Title+"\n"+artifact.Summary)
	if err != nil {
		logger.Warn().Err(err).Msg("embedding failed, similarity checks will miss this artifact")

		return
	}

	if err := e.store.SaveEmbedding(ctx, artifact.ID, embedding); err != nil {
		logger.Warn().Err(err).Msg("failed to save embedding")
	}
}

// cannibalizes reports whether a requested topic duplicates recent output.
// Exact duplicates are caught by fingerprint; near-duplicates by embedding
// similarity when the provider supports it.
func (e *Engine) cannibalizes(ctx context.Context, req Request, bundle domain.ContextBundle, logger *zerolog.Logger) bool {
	if req.Title == "" {
		return false
	}

	requested := audit.Fingerprint(req.Title, "")
	for _, h := range bundle.History {
		if h.Fingerprint == requested || audit.Fingerprint(h.Title, "") == requested {
			logger.Info().Str("title", req.Title).Msg("requested topic duplicates prior artifact")

			return true
		}
	}

	if !e.client.SupportsEmbeddings() {
		return false
	}

	embedding, err := e.client.Embed(ctx, req.Title)
	if err != nil {
		logger.Warn().Err(err).Msg("topic embedding failed, skipping similarity check")

		return false
	}

	since := e.now().Add(-e.cfg.SimilarityWindow)

	similarID, err := e.store.FindSimilarArtifact(ctx, req.SubjectID, embedding, e.cfg.SimilarityThreshold, since)
	if err != nil {
		logger.Warn().Err(err).Msg("similarity lookup failed, proceeding without it")

		return false
	}

	if similarID != "" {
		logger.Info().Str("similar_artifact_id", similarID).Msg("requested topic too similar to recent artifact")

		return true
	}

	return false
}

// finish closes out the run record: calibration hint, metrics, events and the
// append-only run log. Run logging failures are logged, never surfaced.
func (e *Engine) finish(ctx context.Context, run *domain.GenerationRun, outcome domain.RunOutcome, reason string, artifact *domain.Artifact, bundle *domain.ContextBundle) Result {
	run.Outcome = outcome
	run.Reason = reason
	run.FinishedAt = e.now()

	if artifact != nil {
		run.ArtifactID = artifact.ID
	}

	if bundle != nil && bundle.QualityHints.Completeness < e.cfg.CalibrationMinimum {
		run.CalibrationHint = fmt.Sprintf(
			"context completeness %d is below %d; enrich the subject profile for better output",
			bundle.QualityHints.Completeness, e.cfg.CalibrationMinimum,
		)
	}

	observability.GenerationsTotal.WithLabelValues(string(run.Kind), string(outcome)).Inc()

	if len(run.Attempts) > 0 {
		observability.GenerationAttempts.Observe(float64(len(run.Attempts)))
	}

	if outcome != domain.RunPublished {
		observability.DropsTotal.WithLabelValues(reason).Inc()
	}

	// The run log must outlive the request: a deadline that killed the run is
	// exactly the case that still needs an audit record.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runLogTimeout)
	defer cancel()

	if err := e.store.InsertRun(logCtx, run); err != nil {
		e.logger.Error().Err(err).Str("subject_id", run.SubjectID).Msg("failed to log generation run")
	}

	e.emitter.Emit(events.Event{
		Category:  "generation",
		Severity:  severityFor(outcome),
		Action:    "run_" + string(outcome),
		SubjectID: run.SubjectID,
		Payload:   map[string]any{"reason": reason, "attempts": len(run.Attempts)},
	})

	return Result{Run: *run, Artifact: artifact}
}

func severityFor(outcome domain.RunOutcome) string {
	if outcome == domain.RunFailed {
		return events.SeverityError
	}

	return events.SeverityInfo
}

func outcomeForReason(reason string) domain.RunOutcome {
	if reason == ReasonCannibalization {
		return domain.RunSkipped
	}

	return domain.RunFailed
}

// bucketStart is the opening instant of the current publish window, a UTC
// calendar day.
func (e *Engine) bucketStart() time.Time {
	now := e.now()

	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// mergeIssues unions prior and new issues preserving first-seen order, so
// retry prompts carry every distinct problem reported so far.
func mergeIssues(prior, next []string) []string {
	seen := make(map[string]struct{}, len(prior)+len(next))
	merged := make([]string, 0, len(prior)+len(next))

	for _, issue := range prior {
		if _, ok := seen[issue]; ok {
			continue
		}

		seen[issue] = struct{}{}
		merged = append(merged, issue)
	}

	for _, issue := range next {
		if _, ok := seen[issue]; ok {
			continue
		}

		seen[issue] = struct{}{}
		merged = append(merged, issue)
	}

	return merged
}
