package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/service"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

type storageServiceStub struct {
	filename    string
	contentType string
	size        int64
	content     string
	token       string
	path        string
	err         error
}

func (s *storageServiceStub) Upload(_ context.Context, actor *models.Principal, filename, contentType string, size int64, r io.Reader) (*dto.UploadResponse, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.filename, s.contentType, s.size, s.content = filename, contentType, size, string(data)
	if s.err != nil {
		return nil, s.err
	}
	return &dto.UploadResponse{StorageBucket: "documents", StorageKey: actor.UserID + "/k-" + filename, FileType: contentType, FileSize: size}, nil
}

func (s *storageServiceStub) OpenSigned(token string) (*os.File, service.ObjectRef, error) {
	s.token = token
	if s.err != nil {
		return nil, service.ObjectRef{}, s.err
	}
	file, err := os.Open(s.path)
	return file, service.ObjectRef{Bucket: "documents", Key: "u-1/k-memo.txt"}, err
}

func multipartBody(t *testing.T, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestStorageHandlerUpload(t *testing.T) {
	stub := &storageServiceStub{}
	h := NewStorageHandler(stub)
	body, contentType := multipartBody(t, "memo.pdf", "application/pdf", "%PDF-1.4 memo")
	c, rec := newTestContext(http.MethodPost, "/storage/uploads", "", managerPrincipal())
	c.Request, _ = http.NewRequest(http.MethodPost, "/storage/uploads", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Upload(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "memo.pdf", stub.filename)
	assert.Equal(t, "application/pdf", stub.contentType)
	assert.Equal(t, int64(len("%PDF-1.4 memo")), stub.size)
	assert.Equal(t, "%PDF-1.4 memo", stub.content)
	var uploaded dto.UploadResponse
	decodeData(t, rec, &uploaded)
	assert.Equal(t, "u-manager/k-memo.pdf", uploaded.StorageKey)
}

func TestStorageHandlerUploadRequiresFile(t *testing.T) {
	h := NewStorageHandler(&storageServiceStub{})
	c, rec := newTestContext(http.MethodPost, "/storage/uploads", `{}`, managerPrincipal())

	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStorageHandlerUploadRejectedType(t *testing.T) {
	stub := &storageServiceStub{err: appErrors.Clone(appErrors.ErrValidation, "file type application/x-msdownload is not allowed")}
	h := NewStorageHandler(stub)
	body, contentType := multipartBody(t, "setup.exe", "application/x-msdownload", "MZ")
	c, rec := newTestContext(http.MethodPost, "/storage/uploads", "", managerPrincipal())
	c.Request, _ = http.NewRequest(http.MethodPost, "/storage/uploads", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStorageHandlerDownloadServesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.txt")
	require.NoError(t, os.WriteFile(path, []byte("quarterly memo"), 0o600))
	stub := &storageServiceStub{path: path}
	h := NewStorageHandler(stub)
	c, rec := newTestContext(http.MethodGet, "/storage/objects/abc.def", "", nil)
	c.AddParam("token", "/abc.def")

	h.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc.def", stub.token)
	assert.Equal(t, "quarterly memo", rec.Body.String())
	assert.Equal(t, "private, no-store", rec.Header().Get("Cache-Control"))
}

func TestStorageHandlerDownloadRejectsBadToken(t *testing.T) {
	stub := &storageServiceStub{err: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")}
	h := NewStorageHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/storage/objects/forged", "", nil)
	c.AddParam("token", "/forged")
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/storage/objects/", "", nil)
	c.AddParam("token", "/")
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forged", stub.token)
}
