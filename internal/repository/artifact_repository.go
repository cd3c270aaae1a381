package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promptpix/api/internal/models"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactRepository is the record-store collaborator for generated images.
type ArtifactRepository struct {
	pool *pgxpool.Pool
}

func NewArtifactRepository(pool *pgxpool.Pool) *ArtifactRepository {
	return &ArtifactRepository{pool: pool}
}

func (r *ArtifactRepository) Create(ctx context.Context, artifact models.Artifact) error {
	const query = `
		INSERT INTO artifacts (
			id, owner_id, prompt, bucket, object_key, storage_url, mime_type, size_bytes, signature, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		artifact.ID,
		artifact.OwnerID,
		artifact.Prompt,
		artifact.Bucket,
		artifact.ObjectKey,
		artifact.StorageURL,
		artifact.MIMEType,
		artifact.SizeBytes,
		artifact.Signature,
	)
	return err
}

func (r *ArtifactRepository) GetByID(ctx context.Context, id string) (models.Artifact, error) {
	const query = `
		SELECT id, owner_id, prompt, bucket, object_key, storage_url, mime_type, size_bytes, signature, created_at
		FROM artifacts WHERE id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)
	var artifact models.Artifact
	if err := row.Scan(
		&artifact.ID,
		&artifact.OwnerID,
		&artifact.Prompt,
		&artifact.Bucket,
		&artifact.ObjectKey,
		&artifact.StorageURL,
		&artifact.MIMEType,
		&artifact.SizeBytes,
		&artifact.Signature,
		&artifact.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Artifact{}, ErrArtifactNotFound
		}
		return models.Artifact{}, err
	}
	return artifact, nil
}

// ListByOwner returns the owner's artifacts newest first.
func (r *ArtifactRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Artifact, error) {
	const query = `
		SELECT id, owner_id, prompt, bucket, object_key, storage_url, mime_type, size_bytes, signature, created_at
		FROM artifacts
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

func (r *ArtifactRepository) List(ctx context.Context, limit, offset int) ([]models.Artifact, error) {
	const query = `
		SELECT id, owner_id, prompt, bucket, object_key, storage_url, mime_type, size_bytes, signature, created_at
		FROM artifacts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

func (r *ArtifactRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM artifacts WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrArtifactNotFound
	}
	return nil
}

// ExistsByObjectKey reports whether any record references the storage key.
// The orphan sweeper uses it to decide whether a blob is reclaimable.
func (r *ArtifactRepository) ExistsByObjectKey(ctx context.Context, objectKey string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM artifacts WHERE object_key = $1)`
	row := r.pool.QueryRow(ctx, query, objectKey)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ArtifactRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM artifacts WHERE owner_id = $1`
	row := r.pool.QueryRow(ctx, query, ownerID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanArtifacts(rows pgx.Rows) ([]models.Artifact, error) {
	var artifacts []models.Artifact
	for rows.Next() {
		var artifact models.Artifact
		if err := rows.Scan(
			&artifact.ID,
			&artifact.OwnerID,
			&artifact.Prompt,
			&artifact.Bucket,
			&artifact.ObjectKey,
			&artifact.StorageURL,
			&artifact.MIMEType,
			&artifact.SizeBytes,
			&artifact.Signature,
			&artifact.CreatedAt,
		); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}
