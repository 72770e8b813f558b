// Package assemble builds the ContextBundle for one generation request.
// Sub-fetches run in parallel and degrade independently: a failed history
// fetch produces an empty history, not a failed assembly. Only an
// unresolvable subject aborts.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
	"github.com/vistaceo/insight-engine/internal/playbook"
)

// HistoryRecord is a prior artifact as returned by the context source.
// CreatedAt is kept as the store's raw string because upstream rows carry
// mixed timestamp formats; it is normalized during assembly.
type HistoryRecord struct {
	ArtifactID  string
	Kind        domain.ArtifactKind
	Title       string
	Summary     string
	Fingerprint string
	CreatedAt   string
}

// ContextSource is implemented by the external collaborator (the database
// client). Fetches return empty results for missing data, never an error.
type ContextSource interface {
	FetchProfile(ctx context.Context, subjectID string) (domain.Profile, error)
	FetchHistory(ctx context.Context, subjectID string, limit int) ([]HistoryRecord, error)
}

// Completeness weights. The sum of all weights is 100.
const (
	weightProfile  = 40
	weightHistory  = 25
	weightPlaybook = 20
	weightLocale   = 10
	weightScale    = 5
)

// Assembler produces one ContextBundle per generation request. Read-only.
type Assembler struct {
	source       ContextSource
	playbooks    *playbook.Store
	historyLimit int
	logger       *zerolog.Logger
}

// New creates an Assembler.
func New(source ContextSource, playbooks *playbook.Store, historyLimit int, logger *zerolog.Logger) *Assembler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Assembler{
		source:       source,
		playbooks:    playbooks,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Assemble gathers profile, history and playbook data for the subject.
// Returns ErrContextUnavailable only when the subject cannot be resolved.
func (a *Assembler) Assemble(ctx context.Context, subjectID string) (domain.ContextBundle, error) {
	var (
		profile domain.Profile
		records []HistoryRecord
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		profile, err = a.source.FetchProfile(gctx, subjectID)
		if err != nil {
			if errors.Is(err, coreerrors.ErrSubjectNotFound) {
				return fmt.Errorf("%w: subject %s: %v", coreerrors.ErrContextUnavailable, subjectID, err)
			}

			// Infrastructure failure, not a missing subject. Propagate as-is
			// so the caller can retry instead of recording a context failure.
			return fmt.Errorf("fetch profile for subject %s: %w", subjectID, err)
		}

		return nil
	})

	g.Go(func() error {
		var err error

		records, err = a.source.FetchHistory(gctx, subjectID, a.historyLimit)
		if err != nil {
			// Degrade: generation must be possible with partial data.
			a.logger.Warn().Err(err).Str("subject_id", subjectID).Msg("history fetch failed, degrading to empty history")

			records = nil
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.ContextBundle{}, err
	}

	history := normalizeHistory(records, a.logger)

	pb, pbFound := a.playbooks.Get(profile.Category)
	if !pbFound {
		a.logger.Debug().Str("category", profile.Category).Msg("no playbook for category")
	}

	bundle := domain.ContextBundle{
		SubjectID:   subjectID,
		Profile:     profile,
		History:     history,
		Playbook:    pb,
		AssembledAt: time.Now().UTC(),
	}
	bundle.QualityHints.Completeness = completeness(profile, history, pbFound)

	return bundle, nil
}

// normalizeHistory parses loose timestamps and orders most-recent-first.
func normalizeHistory(records []HistoryRecord, logger *zerolog.Logger) []domain.HistoryEntry {
	entries := make([]domain.HistoryEntry, 0, len(records))

	for _, r := range records {
		entry := domain.HistoryEntry{
			ArtifactID:  r.ArtifactID,
			Kind:        r.Kind,
			Title:       r.Title,
			Summary:     r.Summary,
			Fingerprint: r.Fingerprint,
		}

		if r.CreatedAt != "" {
			t, err := dateparse.ParseAny(r.CreatedAt)
			if err != nil {
				logger.Debug().Str("artifact_id", r.ArtifactID).Str("created_at", r.CreatedAt).Msg("unparseable history timestamp")
			} else {
				entry.CreatedAt = t
			}
		}

		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	return entries
}

func completeness(profile domain.Profile, history []domain.HistoryEntry, pbFound bool) int {
	score := weightProfile // profile resolved or assembly would have failed

	if len(history) > 0 {
		score += weightHistory
	}

	if pbFound {
		score += weightPlaybook
	}

	if profile.Locale != "" && profile.Currency != "" {
		score += weightLocale
	}

	if len(profile.Scale) > 0 {
		score += weightScale
	}

	return score
}
