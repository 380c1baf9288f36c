package handler

import (
	"fmt"
	"net/http"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type SystemUpdateHandler struct {
	updateService *service.SystemUpdateService
	logger        *zap.Logger
}

func NewSystemUpdateHandler(updateService *service.SystemUpdateService, logger *zap.Logger) *SystemUpdateHandler {
	return &SystemUpdateHandler{
		updateService: updateService,
		logger:        logger,
	}
}

// @Summary List system updates
// @Tags System Updates
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.SystemUpdateDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /system-updates [get]
func (h *SystemUpdateHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	result, err := h.updateService.List(r.Context(), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list system updates")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Send system update
// @Description Emails the primary client of each selected deal; every deal gets a recipient row
// @Tags System Updates
// @Accept json
// @Produce json
// @Param request body domain.SendSystemUpdateRequest true "Update"
// @Success 201 {object} domain.SystemUpdateDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /system-updates [post]
func (h *SystemUpdateHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendSystemUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	update, err := h.updateService.Send(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "send system update")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/system-updates/%d", update.ID))
	respondJSON(w, http.StatusCreated, update)
}

// @Summary Get system update
// @Tags System Updates
// @Produce json
// @Param id path int true "Update ID"
// @Success 200 {object} domain.SystemUpdateDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /system-updates/{id} [get]
func (h *SystemUpdateHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid system update ID")
		return
	}

	update, err := h.updateService.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get system update")
		return
	}

	respondJSON(w, http.StatusOK, update)
}

// @Summary Delete system update
// @Tags System Updates
// @Param id path int true "Update ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /system-updates/{id} [delete]
func (h *SystemUpdateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid system update ID")
		return
	}

	if err := h.updateService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete system update")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
