package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"promptpix/api/internal/config"
	"promptpix/api/internal/ids"
	"promptpix/api/internal/media/sniffer"
	"promptpix/api/internal/models"
	"promptpix/api/internal/security"
	"promptpix/api/internal/storage"
)

var (
	// ErrNotAuthenticated blocks persistence; generation itself is still
	// available to anonymous identities.
	ErrNotAuthenticated = errors.New("service: active session required to save artifacts")
	ErrArtifactNotFound = errors.New("service: artifact not found")
	ErrNotOwner         = errors.New("service: artifact belongs to another user")
)

// PartialFailureError reports an upload that succeeded while the record
// insert failed. The orphaned blob is acceptable collateral; reporting the
// save as successful would not be.
type PartialFailureError struct {
	ObjectKey string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("service: artifact record insert failed after upload of %s: %v", e.ObjectKey, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

// artifactStore is the slice of the object store the gateway needs.
type artifactStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
	Bucket() string
}

// artifactRecords is the slice of the record store the gateway needs.
type artifactRecords interface {
	Create(ctx context.Context, artifact models.Artifact) error
	GetByID(ctx context.Context, id string) (models.Artifact, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Artifact, error)
	Delete(ctx context.Context, id string) error
}

// ArtifactService is the persistence gateway: binary content goes to object
// storage, the queryable record goes to Postgres, and deletion keeps the two
// from drifting apart in the direction that hurts (a dangling record).
type ArtifactService struct {
	records artifactRecords
	store   artifactStore
	cfg     *config.AppConfig
	log     zerolog.Logger
	now     func() time.Time
}

func NewArtifactService(records artifactRecords, store artifactStore, cfg *config.AppConfig, log zerolog.Logger) *ArtifactService {
	return &ArtifactService{
		records: records,
		store:   store,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

type SaveInput struct {
	OwnerID  string
	Prompt   string
	Bytes    []byte
	MIMEType string
}

// Save uploads the image and inserts its record. The object key combines
// owner, millisecond timestamp, and a ksuid so two saves by the same owner
// in the same millisecond cannot collide.
func (s *ArtifactService) Save(ctx context.Context, input SaveInput) (models.Artifact, error) {
	if input.OwnerID == "" {
		return models.Artifact{}, ErrNotAuthenticated
	}
	if len(input.Bytes) == 0 {
		return models.Artifact{}, &ValidationError{Field: "image", Reason: "empty image payload"}
	}

	mimeType := input.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	artifactID := ids.New()
	objectKey := s.buildObjectKey(input.OwnerID, artifactID, mimeType)

	if err := s.store.Upload(ctx, objectKey, input.Bytes, mimeType); err != nil {
		return models.Artifact{}, fmt.Errorf("upload artifact: %w", err)
	}

	artifact := models.Artifact{
		ID:         artifactID,
		OwnerID:    input.OwnerID,
		Prompt:     input.Prompt,
		Bucket:     s.store.Bucket(),
		ObjectKey:  objectKey,
		StorageURL: s.store.PublicURL(objectKey),
		MIMEType:   mimeType,
		SizeBytes:  int64(len(input.Bytes)),
		Signature:  security.SignResource(s.cfg.Security.ResourceSecret, artifactID, objectKey),
		CreatedAt:  s.now().UTC(),
	}

	if err := s.records.Create(ctx, artifact); err != nil {
		s.log.Error().Err(err).Str("object_key", objectKey).Msg("artifact record insert failed after upload")
		return models.Artifact{}, &PartialFailureError{ObjectKey: objectKey, Err: err}
	}

	return artifact, nil
}

// List returns the owner's artifacts, newest first.
func (s *ArtifactService) List(ctx context.Context, ownerID string) ([]models.Artifact, error) {
	if ownerID == "" {
		return nil, ErrNotAuthenticated
	}
	return s.records.ListByOwner(ctx, ownerID)
}

// Delete removes the stored object and then the record. Storage removal is
// best effort: a failure there is logged but never blocks record deletion,
// so the gallery can never show an entry that refuses to die.
func (s *ArtifactService) Delete(ctx context.Context, artifactID, ownerID string) error {
	artifact, err := s.records.GetByID(ctx, artifactID)
	if err != nil {
		return ErrArtifactNotFound
	}
	if artifact.OwnerID != ownerID {
		return ErrNotOwner
	}

	key := s.storageKey(artifact)
	if err := s.store.Remove(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("artifact_id", artifactID).Str("object_key", key).
			Msg("storage removal failed, deleting record anyway")
	}

	return s.records.Delete(ctx, artifactID)
}

// storageKey derives the object key for removal. The stored URL is parsed
// for the path after the bucket marker; when that fails the key is
// reconstructed from owner id and the URL's filename.
func (s *ArtifactService) storageKey(artifact models.Artifact) string {
	if key, ok := storage.KeyFromPublicURL(artifact.StorageURL, artifact.Bucket); ok {
		return key
	}
	if artifact.ObjectKey != "" {
		return artifact.ObjectKey
	}
	filename := artifact.StorageURL
	if idx := strings.LastIndex(filename, "/"); idx >= 0 {
		filename = filename[idx+1:]
	}
	return artifact.OwnerID + "/" + filename
}

func (s *ArtifactService) buildObjectKey(ownerID, artifactID, mimeType string) string {
	return fmt.Sprintf("%s/%s-%d-%s.%s",
		ownerID, ownerID, s.now().UnixMilli(), artifactID, sniffer.ExtForMIME(mimeType))
}
