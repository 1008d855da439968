package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-vault-api/internal/dto"
	"github.com/noah-isme/study-vault-api/internal/models"
	"github.com/noah-isme/study-vault-api/internal/service"
	appErrors "github.com/noah-isme/study-vault-api/pkg/errors"
	"github.com/noah-isme/study-vault-api/pkg/export"
	"github.com/noah-isme/study-vault-api/pkg/response"
	"github.com/noah-isme/study-vault-api/pkg/storage"
)

type noteService interface {
	ListCategories() []string
	Upload(ctx context.Context, meta dto.UploadNoteRequest, upload service.NoteUpload, actor *models.JWTClaims) (string, error)
	List(ctx context.Context, category, sortKey string) ([]models.Note, error)
	Get(ctx context.Context, id string) (*models.Note, error)
	Update(ctx context.Context, id string, req dto.UpdateNoteRequest, actor *models.JWTClaims) error
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	GetBlob(ctx context.Context, ref string) (*storage.Object, error)
	Export(ctx context.Context, category, sortKey string, format export.Format) (*service.NoteExport, error)
}

// NoteHandler serves the note catalog endpoints.
type NoteHandler struct {
	service        noteService
	maxUploadBytes int64
}

// NewNoteHandler constructs the handler. maxUploadBytes bounds the multipart body.
func NewNoteHandler(svc noteService, maxUploadBytes int64) *NoteHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &NoteHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// Categories godoc
// @Summary List note categories
// @Tags Notes
// @Produce json
// @Success 200 {object} dto.CategoriesResponse
// @Router /categories [get]
func (h *NoteHandler) Categories(c *gin.Context) {
	response.OK(c, dto.CategoriesResponse{Categories: h.service.ListCategories()})
}

// Upload godoc
// @Summary Upload a PDF note
// @Tags Notes
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param category formData string true "Category"
// @Param file formData file true "PDF document"
// @Success 200 {object} dto.UploadNoteResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /notes/upload [post]
func (h *NoteHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	var req dto.UploadNoteRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, uploadError(err, "invalid upload form"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, uploadError(err, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file"))
		return
	}

	id, err := h.service.Upload(c.Request.Context(), req, service.NoteUpload{
		Filename: fileHeader.Filename,
		Content:  content,
	}, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.UploadNoteResponse{Message: "Note uploaded successfully", NoteID: id})
}

// List godoc
// @Summary List notes
// @Tags Notes
// @Produce json
// @Param category query string false "Category filter, All for every category"
// @Param sort_by query string false "date_desc, date_asc, name_asc, name_desc, category or custom"
// @Success 200 {array} models.Note
// @Router /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	var q dto.ListNotesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query"))
		return
	}
	notes, err := h.service.List(c.Request.Context(), q.Category, q.SortBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, notes)
}

// Get godoc
// @Summary Get a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} models.Note
// @Failure 404 {object} response.ErrorBody
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	note, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, note)
}

// Update godoc
// @Summary Update note metadata
// @Tags Notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Param payload body dto.UpdateNoteRequest true "Fields to change"
// @Success 200 {object} response.MessageBody
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	var req dto.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload"))
		return
	}
	if err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "Note updated successfully")
}

// Delete godoc
// @Summary Delete a note and its PDF
// @Tags Notes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 200 {object} response.MessageBody
// @Failure 404 {object} response.ErrorBody
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "Note deleted successfully")
}

// PDF godoc
// @Summary Download the PDF of a note
// @Description Accepts a blob id, a note id or a share link
// @Tags Notes
// @Produce application/pdf
// @Param blob_id path string true "Blob id or share link"
// @Success 200 {file} binary
// @Failure 404 {object} response.ErrorBody
// @Router /pdf/{blob_id} [get]
func (h *NoteHandler) PDF(c *gin.Context) {
	obj, err := h.service.GetBlob(c.Request.Context(), c.Param("blob_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": obj.Filename}))
	c.Data(http.StatusOK, "application/pdf", obj.Data)
}

// Export godoc
// @Summary Export the note listing
// @Tags Notes
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param category query string false "Category filter"
// @Param sort_by query string false "Sort key"
// @Success 200 {file} binary
// @Failure 400 {object} response.ErrorBody
// @Router /export/notes [get]
func (h *NoteHandler) Export(c *gin.Context) {
	var q dto.ListNotesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query"))
		return
	}
	format := export.Format(c.DefaultQuery("format", string(export.FormatCSV)))
	out, err := h.service.Export(c.Request.Context(), q.Category, q.SortBy, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

func uploadError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, "upload exceeds size limit")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
