package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/retzius/attendance-api/internal/service"
	appErrors "github.com/retzius/attendance-api/pkg/errors"
	"github.com/retzius/attendance-api/pkg/response"
	"github.com/retzius/attendance-api/pkg/storage"
)

// PhotoHandler issues signed photo links and serves the files behind them.
// The download endpoint is public; the token is the only credential, so a
// leaked link goes stale once its timestamp expires.
type PhotoHandler struct {
	students *service.StudentService
	signer   *storage.PhotoURLSigner
	store    *storage.LocalPhotoStore
}

// NewPhotoHandler creates a new handler.
func NewPhotoHandler(students *service.StudentService, signer *storage.PhotoURLSigner, store *storage.LocalPhotoStore) *PhotoHandler {
	return &PhotoHandler{students: students, signer: signer, store: store}
}

// SignURL godoc
// @Summary Signed photo link
// @Description Issue a short-lived signed link for a student's photo
// @Tags Photos
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/photo-url [get]
func (h *PhotoHandler) SignURL(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if student.PhotoURL == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student has no photo"))
		return
	}

	token, expiresAt, err := h.signer.Generate(*student.PhotoURL)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign photo link"))
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"url":        "/api/v1/photos?token=" + token,
		"expires_at": expiresAt,
	}, nil)
}

// Download godoc
// @Summary Download photo
// @Description Serve a photo file referenced by a signed token
// @Tags Photos
// @Produce png
// @Param token query string true "Signed photo token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /photos [get]
func (h *PhotoHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	ref, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired photo token"))
		return
	}

	file, err := h.store.Open(ref)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "photo not found"))
		return
	}
	defer file.Close()

	size := int64(-1)
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}

	c.Header("Cache-Control", "private, max-age=60")
	c.DataFromReader(http.StatusOK, size, "image/png", file, nil)
}
