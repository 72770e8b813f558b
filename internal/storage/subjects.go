package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
	"github.com/vistaceo/insight-engine/internal/process/assemble"
)

// FetchProfile resolves a subject's profile. Returns ErrSubjectNotFound when
// the subject does not exist; the assembler maps that to ErrContextUnavailable.
func (db *DB) FetchProfile(ctx context.Context, subjectID string) (domain.Profile, error) {
	var (
		profile   domain.Profile
		scaleJSON []byte
		factsJSON []byte
	)

	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, category, locale, currency, scale, facts
		 FROM subjects WHERE id = $1`,
		subjectID,
	).Scan(&profile.SubjectID, &profile.Name, &profile.Category, &profile.Locale, &profile.Currency, &scaleJSON, &factsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, fmt.Errorf("%w: %s", coreerrors.ErrSubjectNotFound, subjectID)
		}

		return domain.Profile{}, fmt.Errorf("fetch profile: %w", err)
	}

	if len(scaleJSON) > 0 {
		if err := json.Unmarshal(scaleJSON, &profile.Scale); err != nil {
			db.Logger.Warn().Err(err).Str("subject_id", subjectID).Msg("invalid scale json, degrading to empty")
		}
	}

	if len(factsJSON) > 0 {
		if err := json.Unmarshal(factsJSON, &profile.Facts); err != nil {
			db.Logger.Warn().Err(err).Str("subject_id", subjectID).Msg("invalid facts json, degrading to empty")
		}
	}

	return profile, nil
}

// FetchHistory returns the subject's prior artifacts, most recent first.
// Timestamps are passed through as text; the assembler normalizes them.
func (db *DB) FetchHistory(ctx context.Context, subjectID string, limit int) ([]assemble.HistoryRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, kind, title, summary, fingerprint, created_at::text
		 FROM artifacts
		 WHERE subject_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		subjectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer rows.Close()

	var records []assemble.HistoryRecord

	for rows.Next() {
		var r assemble.HistoryRecord
		if err := rows.Scan(&r.ArtifactID, &r.Kind, &r.Title, &r.Summary, &r.Fingerprint, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		records = append(records, r)
	}

	return records, rows.Err()
}

// ListEligibleSubjects returns subjects with no artifact of the given kind in
// the window starting at bucketStart, excluding subjects whose last runs all
// failed within the cooldown.
func (db *DB) ListEligibleSubjects(ctx context.Context, kind domain.ArtifactKind, bucketStart time.Time, cooldown time.Duration, cooldownRuns, limit int) ([]string, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT s.id
		 FROM subjects s
		 WHERE NOT EXISTS (
		   SELECT 1 FROM artifacts a
		   WHERE a.subject_id = s.id AND a.kind = $1 AND a.created_at >= $2
		 )
		 AND NOT EXISTS (
		   SELECT 1 FROM (
		     SELECT r.outcome
		     FROM generation_runs r
		     WHERE r.subject_id = s.id AND r.kind = $1 AND r.finished_at >= $3
		     ORDER BY r.finished_at DESC
		     LIMIT $4
		   ) recent
		   HAVING COUNT(*) >= $4 AND bool_and(recent.outcome = 'failed')
		 )
		 ORDER BY s.id
		 LIMIT $5`,
		kind, bucketStart, time.Now().Add(-cooldown), cooldownRuns, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list eligible subjects: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subject id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}
