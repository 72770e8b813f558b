// Package domain contains the value types shared across the generation
// pipeline. Everything here is plain data; behavior lives in the process
// packages.
package domain

import "time"

// ArtifactKind identifies the type of content a generation request produces.
type ArtifactKind string

const (
	KindPrediction  ArtifactKind = "prediction"
	KindBlogPost    ArtifactKind = "blog_post"
	KindMissionPlan ArtifactKind = "mission_plan"
)

// Artifact status constants. Content is immutable after creation; only the
// status field transitions.
const (
	ArtifactStatusActive    = "active"
	ArtifactStatusDismissed = "dismissed"
	ArtifactStatusConverted = "converted"
	ArtifactStatusArchived  = "archived"
)

// Horizon buckets predictions into named future time windows.
type Horizon string

const (
	HorizonShort  Horizon = "short"  // 0-30 days
	HorizonMedium Horizon = "medium" // 1-6 months
	HorizonLong   Horizon = "long"   // 6-18 months
)

// ValidHorizon reports whether h is one of the known horizon buckets.
func ValidHorizon(h Horizon) bool {
	switch h {
	case HorizonShort, HorizonMedium, HorizonLong:
		return true
	}

	return false
}

// Profile holds the key/value facts known about a subject.
type Profile struct {
	SubjectID string
	Name      string
	Category  string
	Locale    string
	Currency  string
	Scale     map[string]string
	Facts     map[string]string
}

// HistoryEntry is a prior derived artifact, used for continuity and
// anti-duplication. Most-recent-first in ContextBundle.History.
type HistoryEntry struct {
	ArtifactID  string
	Kind        ArtifactKind
	Title       string
	Summary     string
	Fingerprint string
	CreatedAt   time.Time
}

// Playbook is the static sector reference data selected by category.
type Playbook struct {
	Category        string   `yaml:"category"`
	Drivers         []string `yaml:"drivers"`
	Risks           []string `yaml:"risks"`
	SeasonalFactors []string `yaml:"seasonal_factors"`
	Voice           string   `yaml:"voice"`
}

// QualityHints carries the computed context completeness used to decide how
// conservative the requested output must be.
type QualityHints struct {
	Completeness int // 0-100
}

// ContextBundle is the immutable snapshot assembled once per generation
// request. Each attempt reuses the same bundle; only the rendered prompt
// changes.
type ContextBundle struct {
	SubjectID    string
	Profile      Profile
	History      []HistoryEntry
	Playbook     Playbook
	QualityHints QualityHints
	AssembledAt  time.Time
}

// AttemptOutcome is the terminal state of a single generation attempt.
type AttemptOutcome string

const (
	AttemptAccepted AttemptOutcome = "accepted"
	AttemptRejected AttemptOutcome = "rejected"
	AttemptErrored  AttemptOutcome = "errored"
)

// GenerationAttempt records one request/response cycle. Created by the
// renderer, filled in by the parser and gate, terminal once Outcome is set.
type GenerationAttempt struct {
	AttemptNumber  int
	PromptDigest   string
	RawModelOutput string
	RepairedOutput string
	RepairsApplied []string
	Report         QualityReport
	Outcome        AttemptOutcome
	Error          string
}

// QualityReport is the pure result of gating one repaired output.
type QualityReport struct {
	Checks map[string]bool
	Score  int
	Passed bool
	Issues []string
}

// Artifact is an accepted, persisted generation output.
type Artifact struct {
	ID          string
	SubjectID   string
	Kind        ArtifactKind
	Title       string
	Summary     string
	Body        string
	Category    string
	Horizon     Horizon
	Confidence  float32
	Probability float32
	Evidence    float32
	Fingerprint string
	Status      string
	CreatedAt   time.Time
}

// RunOutcome classifies a whole generation request.
type RunOutcome string

const (
	RunPublished RunOutcome = "published"
	RunSkipped   RunOutcome = "skipped"
	RunFailed    RunOutcome = "failed"
)

// GenerationRun is the append-only log record for one request, win or lose.
type GenerationRun struct {
	ID              string
	SubjectID       string
	Kind            ArtifactKind
	Outcome         RunOutcome
	Reason          string
	Attempts        []GenerationAttempt
	ArtifactID      string
	CalibrationHint string
	StartedAt       time.Time
	FinishedAt      time.Time
}

// GroupStats is one bucket of an audited view aggregation.
type GroupStats struct {
	Key            string
	Count          int
	AvgConfidence  float32
	AvgProbability float32
}

// AuditedView is the recomputed-on-read projection of a subject's artifacts.
// Never persisted; always rebuildable.
type AuditedView struct {
	SubjectID  string
	Items      []ScoredArtifact
	ByHorizon  []GroupStats
	ByCategory []GroupStats
	BuiltAt    time.Time
}

// ScoredArtifact pairs an artifact with its composite audit score.
type ScoredArtifact struct {
	Artifact
	AuditScore float32
	Penalized  bool
}
