package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type DealHandler struct {
	dealService         *service.DealService
	notificationService *service.DealNotificationService
	logger              *zap.Logger
}

func NewDealHandler(dealService *service.DealService, notificationService *service.DealNotificationService, logger *zap.Logger) *DealHandler {
	return &DealHandler{
		dealService:         dealService,
		notificationService: notificationService,
		logger:              logger,
	}
}

// @Summary List deals
// @Description Rows carry the primary client and interaction, document and stakeholder counts
// @Tags Deals
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param search query string false "Search deal and client name"
// @Param stage query string false "Filter by stage"
// @Param clientId query int false "Filter by primary client"
// @Param priority query string false "Filter by priority (low, medium, high, urgent)"
// @Param sortBy query string false "Sort field (createdAt, value, name, expectedCloseDate)"
// @Param sortOrder query string false "asc or desc" default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.DealListItemDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals [get]
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	result, err := h.dealService.List(r.Context(), service.DealListParams{
		Search:    strings.TrimSpace(q.Get("search")),
		Stage:     q.Get("stage"),
		ClientID:  parseOptionalUint(r, "clientId"),
		Priority:  q.Get("priority"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "list deals")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create deal
// @Description A lead client advances to prospect
// @Tags Deals
// @Accept json
// @Produce json
// @Param request body domain.CreateDealRequest true "Deal data"
// @Success 201 {object} domain.DealDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals [post]
func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	deal, err := h.dealService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create deal")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/deals/%d", deal.ID))
	respondJSON(w, http.StatusCreated, deal)
}

// @Summary Get deal
// @Description Deal with client, interactions, documents, projects, invoices, tickets, stakeholders and billing
// @Tags Deals
// @Produce json
// @Param id path int true "Deal ID"
// @Success 200 {object} domain.DealDetailDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id} [get]
func (h *DealHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	deal, err := h.dealService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get deal")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// @Summary Update deal
// @Description Changing hourlyRate reprices unbilled tickets that have no rate of their own
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path int true "Deal ID"
// @Param request body domain.UpdateDealRequest true "Fields to change"
// @Success 200 {object} domain.DealDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id} [put]
func (h *DealHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	var req domain.UpdateDealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	deal, err := h.dealService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update deal")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// @Summary Delete deal
// @Tags Deals
// @Param id path int true "Deal ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id} [delete]
func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	if err := h.dealService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete deal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary List deal interactions
// @Tags Deals
// @Produce json
// @Param id path int true "Deal ID"
// @Success 200 {array} domain.InteractionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/interactions [get]
func (h *DealHandler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	interactions, err := h.dealService.ListInteractions(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "list interactions")
		return
	}

	respondJSON(w, http.StatusOK, interactions)
}

// @Summary Add deal interaction
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path int true "Deal ID"
// @Param request body domain.CreateInteractionRequest true "Interaction"
// @Success 201 {object} domain.InteractionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/interactions [post]
func (h *DealHandler) AddInteraction(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	var req domain.CreateInteractionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	interaction, err := h.dealService.AddInteraction(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "add interaction")
		return
	}

	respondJSON(w, http.StatusCreated, interaction)
}

// @Summary Email a deal update
// @Description Sends rendered markdown to the primary client and stakeholders receiving updates
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path int true "Deal ID"
// @Param request body domain.SendDealUpdateRequest true "Update"
// @Success 200 {object} domain.FanOutResultDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/send-update [post]
func (h *DealHandler) SendUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	var req domain.SendDealUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.notificationService.SendDealUpdate(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "send deal update")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Email a billing notice
// @Description Sends the deal's billing summary to the primary client and billing stakeholders
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path int true "Deal ID"
// @Param request body domain.BillingNoticeRequest false "Optional subject and note"
// @Success 200 {object} domain.FanOutResultDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/billing-notice [post]
func (h *DealHandler) SendBillingNotice(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	// the body is optional
	var req domain.BillingNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.notificationService.SendBillingNotice(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "send billing notice")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
