package handler

import (
	"net/http"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type StakeholderHandler struct {
	stakeholderService *service.StakeholderService
	logger             *zap.Logger
}

func NewStakeholderHandler(stakeholderService *service.StakeholderService, logger *zap.Logger) *StakeholderHandler {
	return &StakeholderHandler{
		stakeholderService: stakeholderService,
		logger:             logger,
	}
}

// @Summary List deal stakeholders
// @Tags Stakeholders
// @Produce json
// @Param dealId path int true "Deal ID"
// @Success 200 {array} domain.StakeholderDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{dealId}/stakeholders [get]
func (h *StakeholderHandler) List(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseUintParam(r, "dealId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	stakeholders, err := h.stakeholderService.List(r.Context(), dealID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list stakeholders")
		return
	}

	respondJSON(w, http.StatusOK, stakeholders)
}

// @Summary Add stakeholder
// @Tags Stakeholders
// @Accept json
// @Produce json
// @Param dealId path int true "Deal ID"
// @Param request body domain.AddStakeholderRequest true "Stakeholder"
// @Success 201 {object} domain.StakeholderDTO
// @Failure 400 {object} domain.APIError "Already a stakeholder"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{dealId}/stakeholders [post]
func (h *StakeholderHandler) Add(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseUintParam(r, "dealId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	var req domain.AddStakeholderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	stakeholder, err := h.stakeholderService.Add(r.Context(), dealID, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "add stakeholder")
		return
	}

	respondJSON(w, http.StatusCreated, stakeholder)
}

// @Summary Update stakeholder preferences
// @Tags Stakeholders
// @Accept json
// @Produce json
// @Param dealId path int true "Deal ID"
// @Param id path int true "Stakeholder ID"
// @Param request body domain.UpdateStakeholderRequest true "Fields to change"
// @Success 200 {object} domain.StakeholderDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{dealId}/stakeholders/{id} [put]
func (h *StakeholderHandler) Update(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseUintParam(r, "dealId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stakeholder ID")
		return
	}

	var req domain.UpdateStakeholderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	stakeholder, err := h.stakeholderService.Update(r.Context(), dealID, id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update stakeholder")
		return
	}

	respondJSON(w, http.StatusOK, stakeholder)
}

// @Summary Remove stakeholder
// @Tags Stakeholders
// @Param dealId path int true "Deal ID"
// @Param id path int true "Stakeholder ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{dealId}/stakeholders/{id} [delete]
func (h *StakeholderHandler) Remove(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseUintParam(r, "dealId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stakeholder ID")
		return
	}

	if err := h.stakeholderService.Remove(r.Context(), dealID, id); err != nil {
		handleServiceError(w, h.logger, err, "remove stakeholder")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
