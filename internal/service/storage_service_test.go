package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/jobs"
	"github.com/noah-isme/folio-api/pkg/storage"
)

type enqueuerStub struct {
	jobs []jobs.Job
}

func (e *enqueuerStub) Enqueue(job jobs.Job) error {
	e.jobs = append(e.jobs, job)
	return nil
}

type failingDeleteStore struct {
	*storage.ObjectStore
	err error
}

func (s *failingDeleteStore) Delete(bucket, key string) error {
	if s.err != nil {
		return s.err
	}
	return s.ObjectStore.Delete(bucket, key)
}

func newStorageFixture(t *testing.T) *StorageService {
	t.Helper()
	store, err := storage.NewObjectStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Minute)
	svc := NewStorageService(store, signer, nil, nil, StorageServiceConfig{
		Bucket:          testBucket,
		MaxFileSize:     16,
		AllowedMIMEs:    []string{"application/pdf", "text/plain"},
		DownloadBaseURL: "/api/v1/storage/objects/",
	})
	return svc
}

func TestStorageServiceUploadAndSignedDownload(t *testing.T) {
	svc := newStorageFixture(t)

	upload, err := svc.Upload(context.Background(), memberPrincipal("u-2"), "../Q1 report.txt", "text/plain; charset=utf-8", 5, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, testBucket, upload.StorageBucket)
	assert.True(t, strings.HasPrefix(upload.StorageKey, "u-2/"))
	assert.True(t, strings.HasSuffix(upload.StorageKey, "-Q1_report.txt"))
	assert.Equal(t, "text/plain", upload.FileType)
	assert.Equal(t, int64(5), upload.FileSize)

	ref := ObjectRef{Bucket: upload.StorageBucket, Key: upload.StorageKey}
	exists, err := svc.Exists(ref)
	require.NoError(t, err)
	assert.True(t, exists)

	link, err := svc.SignedURL(ref)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link.URL, "/api/v1/storage/objects/"))
	_, err = time.Parse(time.RFC3339, link.ExpiresAt)
	require.NoError(t, err)

	file, gotRef, err := svc.OpenSigned(strings.TrimPrefix(link.URL, "/api/v1/storage/objects/"))
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, ref, gotRef)

	_, _, err = svc.OpenSigned("tampered")
	assertAppError(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.Remove(ref))
	_, _, err = svc.OpenSigned(strings.TrimPrefix(link.URL, "/api/v1/storage/objects/"))
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestStorageServiceUploadLimits(t *testing.T) {
	svc := newStorageFixture(t)
	actor := memberPrincipal("u-2")

	_, err := svc.Upload(context.Background(), actor, "run.sh", "application/x-sh", 4, strings.NewReader("echo"))
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = svc.Upload(context.Background(), actor, "big.pdf", "application/pdf", 64, strings.NewReader("x"))
	assertAppError(t, err, appErrors.ErrValidation)

	// Declared size lies; the stream is cut at the limit and the partial object removed.
	upload, err := svc.Upload(context.Background(), actor, "liar.pdf", "application/pdf", 1, bytes.NewReader(make([]byte, 64)))
	assertAppError(t, err, appErrors.ErrValidation)
	assert.Nil(t, upload)
}

func TestStorageServiceRemoveEventuallyQueuesRetry(t *testing.T) {
	base, err := storage.NewObjectStore(t.TempDir())
	require.NoError(t, err)
	store := &failingDeleteStore{ObjectStore: base, err: errors.New("volume busy")}
	queue := &enqueuerStub{}
	svc := NewStorageService(store, storage.NewSignedURLSigner("secret", time.Minute), nil, nil, StorageServiceConfig{Bucket: testBucket})
	svc.SetCleanupQueue(queue)

	ref := ObjectRef{Bucket: testBucket, Key: "u-2/memo.pdf"}
	svc.RemoveEventually(ref)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobKindRemoveObject, queue.jobs[0].Kind)
	assert.Equal(t, ref, queue.jobs[0].Payload)

	assert.Error(t, svc.HandleCleanupJob(context.Background(), queue.jobs[0]))
	store.err = nil
	assert.NoError(t, svc.HandleCleanupJob(context.Background(), queue.jobs[0]))
	assert.NoError(t, svc.HandleCleanupJob(context.Background(), jobs.Job{ID: "j", Kind: JobKindRemoveObject, Payload: "garbage"}))
}
