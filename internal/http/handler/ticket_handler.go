package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type TicketHandler struct {
	ticketService *service.TicketService
	logger        *zap.Logger
}

func NewTicketHandler(ticketService *service.TicketService, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		logger:        logger,
	}
}

// @Summary List tickets
// @Description Rows carry effective hourly rate and calculated billable amount; the response carries counts per status
// @Tags Tickets
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by status (pending, in_progress, resolved, billed, closed, all)"
// @Param clientId query int false "Filter by client"
// @Param dealId query int false "Filter by deal"
// @Param priority query string false "Filter by priority"
// @Param applicationSource query string false "Filter by application source"
// @Param readyToBill query bool false "Filter by ready-to-bill flag"
// @Param search query string false "Search title, description and submitter email"
// @Param sortBy query string false "Sort field"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} domain.TicketListResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets [get]
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	result, err := h.ticketService.List(r.Context(), service.TicketListParams{
		Status:            q.Get("status"),
		ClientID:          parseOptionalUint(r, "clientId"),
		DealID:            parseOptionalUint(r, "dealId"),
		Priority:          q.Get("priority"),
		ApplicationSource: q.Get("applicationSource"),
		ReadyToBill:       parseOptionalBool(r, "readyToBill"),
		Search:            strings.TrimSpace(q.Get("search")),
		SortBy:            q.Get("sortBy"),
		SortOrder:         q.Get("sortOrder"),
		Page:              page,
		PageSize:          pageSize,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "list tickets")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Ticket statistics
// @Tags Tickets
// @Produce json
// @Success 200 {object} domain.TicketStatsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets/stats [get]
func (h *TicketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ticketService.Stats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get ticket stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// @Summary Billable tickets
// @Description Resolved or ready-to-bill tickets that have not been billed
// @Tags Tickets
// @Produce json
// @Param clientId query int false "Filter by client"
// @Param dealId query int false "Filter by deal"
// @Success 200 {array} domain.TicketDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets/billable [get]
func (h *TicketHandler) Billable(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.ticketService.Billable(r.Context(), parseOptionalUint(r, "clientId"), parseOptionalUint(r, "dealId"))
	if err != nil {
		handleServiceError(w, h.logger, err, "list billable tickets")
		return
	}

	respondJSON(w, http.StatusOK, tickets)
}

// @Summary Mark tickets billed
// @Description Bills tickets that are still unbilled and links them to the invoice; others are reported as skipped
// @Tags Tickets
// @Accept json
// @Produce json
// @Param request body domain.MarkBilledRequest true "Tickets and invoice"
// @Success 200 {object} domain.MarkBilledResultDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets/mark-billed [post]
func (h *TicketHandler) MarkBilled(w http.ResponseWriter, r *http.Request) {
	var req domain.MarkBilledRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.ticketService.MarkBilled(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "mark tickets billed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create ticket
// @Tags Tickets
// @Accept json
// @Produce json
// @Param request body domain.CreateTicketRequest true "Ticket data"
// @Success 201 {object} domain.TicketDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets [post]
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTicketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ticket, err := h.ticketService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create ticket")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tickets/%d", ticket.ID))
	respondJSON(w, http.StatusCreated, ticket)
}

// @Summary Get ticket
// @Tags Tickets
// @Produce json
// @Param id path int true "Ticket ID"
// @Success 200 {object} domain.TicketDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets/{id} [get]
func (h *TicketHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	ticket, err := h.ticketService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get ticket")
		return
	}

	respondJSON(w, http.StatusOK, ticket)
}

// @Summary Update ticket
// @Description Billed tickets are immutable and status billed can only be set by mark-billed
// @Tags Tickets
// @Accept json
// @Produce json
// @Param id path int true "Ticket ID"
// @Param request body domain.UpdateTicketRequest true "Fields to change"
// @Success 200 {object} domain.TicketDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets/{id} [put]
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	var req domain.UpdateTicketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ticket, err := h.ticketService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update ticket")
		return
	}

	respondJSON(w, http.StatusOK, ticket)
}

// @Summary Delete ticket
// @Tags Tickets
// @Param id path int true "Ticket ID"
// @Success 204
// @Failure 400 {object} domain.APIError "Cannot delete a billed ticket"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets/{id} [delete]
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	if err := h.ticketService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete ticket")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
