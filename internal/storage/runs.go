package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
)

// InsertRun appends one generation run to the audit log. Attempts are stored
// as a jsonb document so the per-attempt reports survive schema-free.
func (db *DB) InsertRun(ctx context.Context, run *domain.GenerationRun) error {
	attempts, err := json.Marshal(run.Attempts)
	if err != nil {
		return fmt.Errorf("marshal run attempts: %w", err)
	}

	var artifactID *string
	if run.ArtifactID != "" {
		artifactID = &run.ArtifactID
	}

	err = db.Pool.QueryRow(ctx,
		`INSERT INTO generation_runs
		   (subject_id, kind, outcome, reason, attempts, artifact_id,
		    calibration_hint, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		run.SubjectID, run.Kind, run.Outcome, run.Reason, attempts,
		artifactID, run.CalibrationHint, run.StartedAt, run.FinishedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("%w: insert run: %v", coreerrors.ErrPersistence, err)
	}

	return nil
}

// CountRunsSince counts runs for a subject started at or after the cutoff.
// The scheduler uses this to enforce the per-subject daily request cap.
func (db *DB) CountRunsSince(ctx context.Context, subjectID string, since time.Time) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM generation_runs
		 WHERE subject_id = $1 AND started_at >= $2`,
		subjectID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}

	return count, nil
}
