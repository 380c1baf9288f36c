package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/bettersystems/crm-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	documentService *service.DocumentService
	logger          *zap.Logger
}

func NewDocumentHandler(documentService *service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// @Summary Upload document
// @Description Attaches a file to a deal, client or project
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Param entityType formData string true "deal, client or project"
// @Param entityId formData int true "Entity ID"
// @Param title formData string false "Title (defaults to the file name)"
// @Param description formData string false "Description"
// @Param category formData string false "Category"
// @Param tags formData string false "Comma separated tags"
// @Success 201 {object} domain.DocumentDTO
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents [post]
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.documentService.MaxUploadBytes()
	// multipart framing needs a little room above the file itself
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large: maximum size is %dMB", maxBytes>>20))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	entityID, err := strconv.ParseUint(r.FormValue("entityId"), 10, 64)
	if err != nil || entityID == 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid entityId")
		return
	}

	var tags []string
	for _, tag := range strings.Split(r.FormValue("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	doc, err := h.documentService.Upload(r.Context(), service.UploadDocumentInput{
		EntityType:  r.FormValue("entityType"),
		EntityID:    uint(entityID),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Tags:        tags,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        file,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "upload document")
		return
	}

	respondJSON(w, http.StatusCreated, doc)
}

// @Summary List documents of an entity
// @Tags Documents
// @Produce json
// @Param entityType path string true "deal, client or project"
// @Param entityId path int true "Entity ID"
// @Success 200 {array} domain.DocumentDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{entityType}/{entityId} [get]
func (h *DocumentHandler) ListByEntity(w http.ResponseWriter, r *http.Request) {
	entityID, err := parseUintParam(r, "entityId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid entity ID")
		return
	}

	docs, err := h.documentService.ListByEntity(r.Context(), chi.URLParam(r, "entityType"), entityID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list documents")
		return
	}

	respondJSON(w, http.StatusOK, docs)
}

// @Summary Download document
// @Tags Documents
// @Produce application/octet-stream
// @Param id path int true "Document ID"
// @Success 200
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	doc, reader, err := h.documentService.Download(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "download document")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.Header().Set("Content-Type", doc.MimeType)
	if doc.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	}

	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("failed to stream document", zap.Uint("document_id", id), zap.Error(err))
	}
}

// @Summary Delete document
// @Tags Documents
// @Param id path int true "Document ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	if err := h.documentService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
