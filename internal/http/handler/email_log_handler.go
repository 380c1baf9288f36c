package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type EmailLogHandler struct {
	emailLogService *service.EmailLogService
	syncService     *service.EmailSyncService
	logger          *zap.Logger
}

func NewEmailLogHandler(emailLogService *service.EmailLogService, syncService *service.EmailSyncService, logger *zap.Logger) *EmailLogHandler {
	return &EmailLogHandler{
		emailLogService: emailLogService,
		syncService:     syncService,
		logger:          logger,
	}
}

// @Summary List email logs
// @Description Bodies are omitted from list rows
// @Tags Email
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param category query string false "Filter by category"
// @Param status query string false "Filter by delivery status"
// @Param direction query string false "inbound or outbound"
// @Param search query string false "Search subject and sender"
// @Param clientId query int false "Filter by linked client"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.EmailLogDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /email-logs [get]
func (h *EmailLogHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	result, err := h.emailLogService.List(r.Context(), service.EmailLogListParams{
		Category:  q.Get("category"),
		Status:    q.Get("status"),
		Direction: q.Get("direction"),
		Search:    strings.TrimSpace(q.Get("search")),
		ClientID:  parseOptionalUint(r, "clientId"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "list email logs")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Email statistics
// @Tags Email
// @Produce json
// @Success 200 {object} domain.EmailStatsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /email-logs/stats [get]
func (h *EmailLogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.emailLogService.Stats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get email stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// @Summary Get email log
// @Tags Email
// @Produce json
// @Param id path int true "Email log ID"
// @Success 200 {object} domain.EmailLogDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /email-logs/{id} [get]
func (h *EmailLogHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid email log ID")
		return
	}

	log, err := h.emailLogService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get email log")
		return
	}

	respondJSON(w, http.StatusOK, log)
}

// @Summary Sync mailbox
// @Description Imports messages from Gmail into the email log and discovers new contacts
// @Tags Email
// @Accept json
// @Produce json
// @Param request body domain.EmailSyncRequest false "Sync options"
// @Success 200 {object} domain.EmailSyncResultDTO
// @Failure 500 {object} domain.APIError "Gmail not configured"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /email-logs/sync [post]
func (h *EmailLogHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.syncService.Sync(r.Context(), h.syncService.OptionsFromRequest(&req))
	if err != nil {
		handleServiceError(w, h.logger, err, "sync email")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
