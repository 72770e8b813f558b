// Package audit is the read-side of the pipeline: deduplication, composite
// scoring with a block-list penalty, threshold filtering, and grouped view
// aggregation. It never mutates persisted artifacts; views are recomputed on
// every build.
package audit

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	"github.com/vistaceo/insight-engine/internal/events"
	"github.com/vistaceo/insight-engine/internal/platform/observability"
)

// Composite score weights and the fixed block-list deduction.
const (
	weightConfidence  = 0.4
	weightProbability = 0.3
	weightEvidence    = 0.3
	blockListPenalty  = 0.15
)

// Filter reasons for observability events.
const (
	reasonDuplicate     = "duplicate"
	reasonLowScore      = "low_score"
	reasonLowConfidence = "low_confidence"
)

// Config tunes the audit thresholds.
type Config struct {
	MinScore      float32
	MinConfidence float32
	BlockList     []string
	TopN          int
}

// Auditor builds audited views over persisted artifacts.
type Auditor struct {
	cfg     Config
	emitter events.Emitter
	logger  *zerolog.Logger
}

// New creates an Auditor. Block-list entries are matched case-insensitively
// as substrings.
func New(cfg Config, emitter events.Emitter, logger *zerolog.Logger) *Auditor {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	lowered := make([]string, len(cfg.BlockList))
	for i, phrase := range cfg.BlockList {
		lowered[i] = strings.ToLower(phrase)
	}

	cfg.BlockList = lowered

	return &Auditor{cfg: cfg, emitter: emitter, logger: logger}
}

// Score computes the composite audit score. A block-list match applies the
// fixed penalty; the item still participates in scoring so the match lowers
// rank rather than hiding the occurrence.
func (a *Auditor) Score(artifact domain.Artifact) (float32, bool) {
	score := weightConfidence*artifact.Confidence +
		weightProbability*artifact.Probability +
		weightEvidence*artifact.Evidence

	penalized := a.blockListed(artifact)
	if penalized {
		score -= blockListPenalty
	}

	if score < 0 {
		score = 0
	}

	return score, penalized
}

func (a *Auditor) blockListed(artifact domain.Artifact) bool {
	haystack := strings.ToLower(artifact.Title + " " + artifact.Summary + " " + artifact.Body)

	for _, phrase := range a.cfg.BlockList {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}

	return false
}

// Deduplicate removes items whose normalized fingerprints were already seen
// in the same pass. First-seen wins; output preserves input order.
func Deduplicate(artifacts []domain.Artifact) []domain.Artifact {
	seen := make(map[string]bool, len(artifacts))
	out := make([]domain.Artifact, 0, len(artifacts))

	for _, artifact := range artifacts {
		fp := artifact.Fingerprint
		if fp == "" {
			fp = Fingerprint(artifact.Title, artifact.Summary)
		}

		if seen[fp] {
			continue
		}

		seen[fp] = true
		out = append(out, artifact)
	}

	return out
}

// BuildView derives the audited projection for one subject: dedup, score,
// filter by thresholds, rank by score, cap at TopN, and aggregate by horizon
// and category.
// Events for filtered items are emitted non-blocking and never influence the
// filtering decision.
func (a *Auditor) BuildView(subjectID string, artifacts []domain.Artifact) domain.AuditedView {
	start := time.Now()
	defer func() {
		observability.ViewBuildDuration.Observe(time.Since(start).Seconds())
	}()

	before := len(artifacts)
	deduped := Deduplicate(artifacts)

	for i := 0; i < before-len(deduped); i++ {
		observability.AuditFilteredTotal.WithLabelValues(reasonDuplicate).Inc()
	}

	view := domain.AuditedView{
		SubjectID: subjectID,
		BuiltAt:   time.Now().UTC(),
	}

	for _, artifact := range deduped {
		score, penalized := a.Score(artifact)

		switch {
		case score < a.cfg.MinScore:
			a.filterOut(artifact, reasonLowScore, score)
		case artifact.Confidence < a.cfg.MinConfidence:
			a.filterOut(artifact, reasonLowConfidence, score)
		default:
			view.Items = append(view.Items, domain.ScoredArtifact{
				Artifact:   artifact,
				AuditScore: score,
				Penalized:  penalized,
			})
		}
	}

	// Rank by composite score before capping so a block-list penalty actually
	// lowers an item's position. Stable sort keeps input (recency) order
	// between equal scores.
	sort.SliceStable(view.Items, func(i, j int) bool {
		return view.Items[i].AuditScore > view.Items[j].AuditScore
	})

	if a.cfg.TopN > 0 && len(view.Items) > a.cfg.TopN {
		view.Items = view.Items[:a.cfg.TopN]
	}

	view.ByHorizon = groupBy(view.Items, func(item domain.ScoredArtifact) string {
		return string(item.Horizon)
	})
	view.ByCategory = groupBy(view.Items, func(item domain.ScoredArtifact) string {
		return item.Category
	})

	return view
}

func (a *Auditor) filterOut(artifact domain.Artifact, reason string, score float32) {
	observability.AuditFilteredTotal.WithLabelValues(reason).Inc()

	a.emitter.Emit(events.Event{
		Category:  "audit",
		Severity:  events.SeverityInfo,
		Action:    "artifact_filtered",
		SubjectID: artifact.SubjectID,
		Payload: map[string]any{
			"artifact_id": artifact.ID,
			"reason":      reason,
			"score":       score,
		},
	})
}

// groupBy aggregates per-group count and averages, preserving first-seen
// group order.
func groupBy(items []domain.ScoredArtifact, key func(domain.ScoredArtifact) string) []domain.GroupStats {
	order := make([]string, 0)
	groups := make(map[string]*domain.GroupStats)

	for _, item := range items {
		k := key(item)

		g, ok := groups[k]
		if !ok {
			g = &domain.GroupStats{Key: k}
			groups[k] = g
			order = append(order, k)
		}

		g.Count++
		g.AvgConfidence += item.Confidence
		g.AvgProbability += item.Probability
	}

	out := make([]domain.GroupStats, 0, len(order))

	for _, k := range order {
		g := groups[k]
		g.AvgConfidence /= float32(g.Count)
		g.AvgProbability /= float32(g.Count)
		out = append(out, *g)
	}

	return out
}
