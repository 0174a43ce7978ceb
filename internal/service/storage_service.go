package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/jobs"
	"github.com/noah-isme/folio-api/pkg/storage"
)

// JobKindRemoveObject identifies queued stored-object removals.
const JobKindRemoveObject = "storage.remove_object"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type objectStore interface {
	Put(bucket, key string, r io.Reader) (int64, error)
	Open(bucket, key string) (*os.File, error)
	Delete(bucket, key string) error
	Exists(bucket, key string) (bool, error)
}

type urlSigner interface {
	Sign(bucket, key string) (string, time.Time, error)
	Verify(token string) (string, string, time.Time, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ObjectRef addresses one stored object.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// StorageServiceConfig configures the object store front.
type StorageServiceConfig struct {
	Bucket       string
	MaxFileSize  int64
	AllowedMIMEs []string
	// DownloadBaseURL prefixes signed download tokens, for example /api/v1/storage/objects/.
	DownloadBaseURL string
}

// StorageService uploads objects, signs download links and removes stored content.
type StorageService struct {
	store   objectStore
	signer  urlSigner
	cleanup jobEnqueuer
	metrics *MetricsService
	logger  *zap.Logger
	cfg     StorageServiceConfig
	allowed map[string]struct{}
}

// NewStorageService constructs the storage service. cleanup may be attached later with SetCleanupQueue.
func NewStorageService(store objectStore, signer urlSigner, metrics *MetricsService, logger *zap.Logger, cfg StorageServiceConfig) *StorageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(m)] = struct{}{}
	}
	return &StorageService{store: store, signer: signer, metrics: metrics, logger: logger, cfg: cfg, allowed: allowed}
}

// SetCleanupQueue attaches the queue retrying failed removals.
func (s *StorageService) SetCleanupQueue(queue jobEnqueuer) {
	s.cleanup = queue
}

// Bucket returns the organization bucket documents must live in.
func (s *StorageService) Bucket() string {
	return s.cfg.Bucket
}

// Upload stores a file under <callerID>/<random>-<name> and returns its location.
func (s *StorageService) Upload(ctx context.Context, actor *models.Principal, filename, contentType string, size int64, r io.Reader) (*dto.UploadResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid content type")
	}
	mediaType = strings.ToLower(mediaType)
	if len(s.allowed) > 0 {
		if _, ok := s.allowed[mediaType]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", mediaType))
		}
	}
	if s.cfg.MaxFileSize > 0 && size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSize))
	}

	key := ObjectKey(actor.UserID, filename)
	reader := r
	if s.cfg.MaxFileSize > 0 {
		reader = io.LimitReader(r, s.cfg.MaxFileSize+1)
	}
	written, err := s.store.Put(s.cfg.Bucket, key, reader)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store file")
	}
	if s.cfg.MaxFileSize > 0 && written > s.cfg.MaxFileSize {
		_ = s.store.Delete(s.cfg.Bucket, key)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSize))
	}
	return &dto.UploadResponse{StorageBucket: s.cfg.Bucket, StorageKey: key, FileType: mediaType, FileSize: written}, nil
}

// ObjectKey builds the owner-prefixed key for an uploaded file.
func ObjectKey(ownerID, filename string) string {
	name := unsafeFileChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, `\`, "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%s-%s", ownerID, uuid.NewString(), name)
}

// Exists reports whether the object is present.
func (s *StorageService) Exists(ref ObjectRef) (bool, error) {
	return s.store.Exists(ref.Bucket, ref.Key)
}

// SignedURL returns a short-lived download link for the object.
func (s *StorageService) SignedURL(ref ObjectRef) (*dto.SignedURLResponse, error) {
	token, expiresAt, err := s.signer.Sign(ref.Bucket, ref.Key)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign download url")
	}
	return &dto.SignedURLResponse{URL: s.cfg.DownloadBaseURL + token, ExpiresAt: expiresAt.UTC().Format(time.RFC3339)}, nil
}

// OpenSigned verifies a download token and opens the object it grants.
func (s *StorageService) OpenSigned(token string) (*os.File, ObjectRef, error) {
	bucket, key, _, err := s.signer.Verify(token)
	if err != nil {
		return nil, ObjectRef{}, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	ref := ObjectRef{Bucket: bucket, Key: key}
	file, err := s.store.Open(bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ref, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, ref, appErrors.Internal(err, "failed to open file")
	}
	return file, ref, nil
}

// Remove deletes the object now and reports failure to the caller.
func (s *StorageService) Remove(ref ObjectRef) error {
	if err := s.store.Delete(ref.Bucket, ref.Key); err != nil {
		s.metrics.StorageCleanup("failed")
		return err
	}
	s.metrics.StorageCleanup("removed")
	return nil
}

// RemoveEventually deletes the object, queueing retries when the first attempt fails.
func (s *StorageService) RemoveEventually(ref ObjectRef) {
	err := s.Remove(ref)
	if err == nil {
		return
	}
	s.logger.Warn("stored object removal failed, scheduling retry",
		zap.String("bucket", ref.Bucket), zap.String("key", ref.Key), zap.Error(err))
	if s.cleanup == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Kind: JobKindRemoveObject, Payload: ref}
	if qErr := s.cleanup.Enqueue(job); qErr != nil {
		s.logger.Error("failed to queue stored object removal",
			zap.String("bucket", ref.Bucket), zap.String("key", ref.Key), zap.Error(qErr))
	}
}

// HandleCleanupJob is the queue handler for JobKindRemoveObject.
func (s *StorageService) HandleCleanupJob(ctx context.Context, job jobs.Job) error {
	ref, ok := job.Payload.(ObjectRef)
	if !ok {
		s.logger.Error("unexpected cleanup payload", zap.String("job_id", job.ID), zap.String("kind", job.Kind))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Remove(ref)
}
