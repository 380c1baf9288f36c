package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type ClientHandler struct {
	clientService *service.ClientService
	logger        *zap.Logger
}

func NewClientHandler(clientService *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		logger:        logger,
	}
}

// @Summary List clients
// @Description Hidden clients are suppressed unless label=hidden or hideHidden=false
// @Tags Clients
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param search query string false "Search name, email and contact name"
// @Param status query string false "Filter by status (lead, prospect, active, inactive, churned, all)"
// @Param label query string false "Filter by label"
// @Param hideHidden query bool false "Suppress hidden clients" default(true)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ClientListItemDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients [get]
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	hideHidden := true
	if v, err := strconv.ParseBool(q.Get("hideHidden")); err == nil {
		hideHidden = v
	}

	result, err := h.clientService.List(r.Context(), service.ClientListParams{
		Search:     strings.TrimSpace(q.Get("search")),
		Status:     q.Get("status"),
		Label:      q.Get("label"),
		HideHidden: hideHidden,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "list clients")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Client statistics
// @Tags Clients
// @Produce json
// @Success 200 {object} domain.ClientStatsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/stats [get]
func (h *ClientHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.clientService.Stats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get client stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// @Summary Create client
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body domain.CreateClientRequest true "Client data"
// @Success 201 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients [post]
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateClientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client, err := h.clientService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create client")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/clients/%d", client.ID))
	respondJSON(w, http.StatusCreated, client)
}

// @Summary Get client
// @Description Client with projects, deals and matching email logs
// @Tags Clients
// @Produce json
// @Param id path int true "Client ID"
// @Success 200 {object} domain.ClientDetailDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{id} [get]
func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid client ID")
		return
	}

	client, err := h.clientService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get client")
		return
	}

	respondJSON(w, http.StatusOK, client)
}

// @Summary Update client
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path int true "Client ID"
// @Param request body domain.UpdateClientRequest true "Fields to change"
// @Success 200 {object} domain.ClientDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{id} [put]
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid client ID")
		return
	}

	var req domain.UpdateClientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client, err := h.clientService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update client")
		return
	}

	respondJSON(w, http.StatusOK, client)
}

// @Summary Delete client
// @Description Refused while the client has projects or owns deals
// @Tags Clients
// @Param id path int true "Client ID"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{id} [delete]
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid client ID")
		return
	}

	if err := h.clientService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete client")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
