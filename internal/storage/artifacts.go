package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
)

// Postgres error code raised by the per-bucket content index.
const uniqueViolationCode = "23505"

// InsertArtifact persists an accepted artifact and fills in its generated ID
// and creation time. Content is never updated afterwards. A unique violation
// on the per-bucket content index comes back as ErrDuplicateArtifact.
func (db *DB) InsertArtifact(ctx context.Context, artifact *domain.Artifact) error {
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO artifacts
		   (subject_id, kind, title, summary, body, category, horizon,
		    confidence, probability, evidence, fingerprint, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at`,
		artifact.SubjectID, artifact.Kind, artifact.Title, artifact.Summary,
		artifact.Body, artifact.Category, artifact.Horizon,
		artifact.Confidence, artifact.Probability, artifact.Evidence,
		artifact.Fingerprint, domain.ArtifactStatusActive,
	).Scan(&artifact.ID, &artifact.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("%w: fingerprint %s", coreerrors.ErrDuplicateArtifact, artifact.Fingerprint)
		}

		return fmt.Errorf("%w: insert artifact: %v", coreerrors.ErrPersistence, err)
	}

	artifact.Status = domain.ArtifactStatusActive

	return nil
}

// UpdateArtifactStatus applies a status transition. Single row,
// last-writer-wins; these transitions are user-initiated.
func (db *DB) UpdateArtifactStatus(ctx context.Context, artifactID, status string) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE artifacts SET status = $2 WHERE id = $1`,
		artifactID, status,
	)
	if err != nil {
		return fmt.Errorf("%w: update artifact status: %v", coreerrors.ErrPersistence, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: artifact %s", coreerrors.ErrNotFound, artifactID)
	}

	return nil
}

// ArtifactFilters narrows QueryArtifacts results.
type ArtifactFilters struct {
	Kind     domain.ArtifactKind
	Statuses []string
	Limit    int
}

// QueryArtifacts returns a subject's artifacts, newest first.
func (db *DB) QueryArtifacts(ctx context.Context, subjectID string, filters ArtifactFilters) ([]domain.Artifact, error) {
	statuses := filters.Statuses
	if len(statuses) == 0 {
		statuses = []string{domain.ArtifactStatusActive}
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id, subject_id, kind, title, summary, body, category, horizon,
		        confidence, probability, evidence, fingerprint, status, created_at
		 FROM artifacts
		 WHERE subject_id = $1
		   AND ($2 = '' OR kind = $2)
		   AND status = ANY($3)
		 ORDER BY created_at DESC
		 LIMIT $4`,
		subjectID, string(filters.Kind), statuses, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []domain.Artifact

	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(
			&a.ID, &a.SubjectID, &a.Kind, &a.Title, &a.Summary, &a.Body,
			&a.Category, &a.Horizon, &a.Confidence, &a.Probability,
			&a.Evidence, &a.Fingerprint, &a.Status, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan artifact row: %w", err)
		}

		artifacts = append(artifacts, a)
	}

	return artifacts, rows.Err()
}

// HasArtifactSince reports whether the subject already has an artifact of the
// given kind created at or after bucketStart. The engine uses this as the
// "already produced for this period" short-circuit before spending a model
// call; the unique index on (subject_id, kind, day, fingerprint) backstops
// the content itself.
func (db *DB) HasArtifactSince(ctx context.Context, subjectID string, kind domain.ArtifactKind, bucketStart time.Time) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM artifacts
		   WHERE subject_id = $1 AND kind = $2 AND created_at >= $3
		 )`,
		subjectID, kind, bucketStart,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check artifact bucket: %w", err)
	}

	return exists, nil
}

// SaveEmbedding stores the topic embedding for an artifact.
func (db *DB) SaveEmbedding(ctx context.Context, artifactID string, embedding []float32) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO artifact_embeddings (artifact_id, embedding)
		 VALUES ($1, $2)
		 ON CONFLICT (artifact_id) DO NOTHING`,
		artifactID, pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}

	return nil
}

// FindSimilarArtifact returns the ID of a recent artifact whose embedding is
// within the cosine-similarity threshold, or empty when none matches.
func (db *DB) FindSimilarArtifact(ctx context.Context, subjectID string, embedding []float32, threshold float32, minCreatedAt time.Time) (string, error) {
	var id string

	err := db.Pool.QueryRow(ctx,
		`SELECT a.id
		 FROM artifacts a
		 JOIN artifact_embeddings e ON e.artifact_id = a.id
		 WHERE a.subject_id = $1
		   AND a.created_at >= $2
		   AND (e.embedding <=> $3) < $4
		 ORDER BY e.embedding <=> $3
		 LIMIT 1`,
		subjectID, minCreatedAt, pgvector.NewVector(embedding), 1.0-threshold,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("find similar artifact: %w", err)
	}

	return id, nil
}
