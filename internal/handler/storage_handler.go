package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/service"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/response"
)

const uploadFormField = "file"

type storageService interface {
	Upload(ctx context.Context, actor *models.Principal, filename, contentType string, size int64, r io.Reader) (*dto.UploadResponse, error)
	OpenSigned(token string) (*os.File, service.ObjectRef, error)
}

// StorageHandler accepts uploads and serves signed downloads.
type StorageHandler struct {
	service storageService
}

// NewStorageHandler constructs the handler.
func NewStorageHandler(svc storageService) *StorageHandler {
	return &StorageHandler{service: svc}
}

// Upload godoc
// @Summary Upload file
// @Description Store file content. Register it afterwards with POST /documents.
// @Tags Storage
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File content"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /storage/uploads [post]
func (h *StorageHandler) Upload(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	header, err := c.FormFile(uploadFormField)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read upload"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	uploaded, err := h.service.Upload(c.Request.Context(), actor, header.Filename, contentType, header.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, uploaded)
}

// Download godoc
// @Summary Download file
// @Description Serve stored content for a signed, unexpired link
// @Tags Storage
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /storage/objects/{token} [get]
func (h *StorageHandler) Download(c *gin.Context) {
	token := strings.TrimPrefix(c.Param("token"), "/")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link"))
		return
	}
	file, ref, err := h.service.OpenSigned(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read file"))
		return
	}
	c.Header("Cache-Control", "private, no-store")
	http.ServeContent(c.Writer, c.Request, path.Base(ref.Key), info.ModTime(), file)
}
