package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	apiKeyHeader = "X-API-Key"
	sourceHeader = "X-Application-Source"
)

type ExternalTicketHandler struct {
	externalService *service.ExternalTicketService
	logger          *zap.Logger
}

func NewExternalTicketHandler(externalService *service.ExternalTicketService, logger *zap.Logger) *ExternalTicketHandler {
	return &ExternalTicketHandler{
		externalService: externalService,
		logger:          logger,
	}
}

// @Summary Submit an external ticket
// @Description Partner applications authenticate with their source and API key, in headers or the body.
// @Description Resubmitting the same externalTicketId returns the existing ticket with 200.
// @Tags External Tickets
// @Accept json
// @Produce json
// @Param X-API-Key header string false "Source API key"
// @Param X-Application-Source header string false "Application source"
// @Param request body domain.ExternalTicketRequest true "Ticket"
// @Success 201 {object} domain.ExternalTicketReceiptDTO
// @Success 200 {object} domain.ExternalTicketReceiptDTO "Already received"
// @Failure 401 {object} domain.APIError
// @Router /external-tickets [post]
func (h *ExternalTicketHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req domain.ExternalTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		req.APIKey = key
	}
	if source := strings.TrimSpace(r.Header.Get(sourceHeader)); source != "" {
		req.ApplicationSource = source
	}

	// credentials are checked before the payload
	if err := h.externalService.Authenticate(req.ApplicationSource, req.APIKey); err != nil {
		h.logger.Warn("external ticket rejected",
			zap.String("source", req.ApplicationSource),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		handleServiceError(w, h.logger, err, "authenticate external ticket")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	receipt, created, err := h.externalService.Receive(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "receive external ticket")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, receipt)
}

// @Summary External ticket status
// @Tags External Tickets
// @Produce json
// @Param externalId path string true "External ticket ID"
// @Param X-API-Key header string true "Source API key"
// @Param X-Application-Source header string true "Application source"
// @Success 200 {object} domain.ExternalTicketStatusDTO
// @Failure 404 {object} domain.APIError
// @Router /external-tickets/{externalId}/status [get]
func (h *ExternalTicketHandler) Status(w http.ResponseWriter, r *http.Request) {
	source := r.Header.Get(sourceHeader)
	if source == "" {
		source = r.URL.Query().Get("applicationSource")
	}

	status, err := h.externalService.Status(r.Context(), source, r.Header.Get(apiKeyHeader), chi.URLParam(r, "externalId"))
	if err != nil {
		handleServiceError(w, h.logger, err, "get external ticket status")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// @Summary External ingestion health
// @Description Lists the configured application sources
// @Tags External Tickets
// @Produce json
// @Success 200 {object} domain.ExternalSourcesDTO
// @Router /external-tickets/health [get]
func (h *ExternalTicketHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, domain.ExternalSourcesDTO{
		Status:  "ok",
		Sources: h.externalService.Sources(),
	})
}
