package handler

import (
	"net/http"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type ActivityHandler struct {
	activityService *service.ActivityService
	logger          *zap.Logger
}

func NewActivityHandler(activityService *service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		logger:          logger,
	}
}

// @Summary List activity
// @Description Append-only audit trail, newest first
// @Tags Activity
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param entityType query string false "Filter by entity type"
// @Param entityId query int false "Filter by entity ID"
// @Param userId query int false "Filter by user"
// @Param action query string false "Filter by action"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ActivityDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /activity [get]
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	filters := &repository.ActivityFilters{
		EntityID: parseOptionalUint(r, "entityId"),
		UserID:   parseOptionalUint(r, "userId"),
		Action:   r.URL.Query().Get("action"),
	}
	if et := r.URL.Query().Get("entityType"); et != "" {
		entityType := domain.ActivityEntityType(et)
		filters.EntityType = &entityType
	}

	result, err := h.activityService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		handleServiceError(w, h.logger, err, "list activity")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Activity statistics
// @Description Counts by entity type and action over the last N days
// @Tags Activity
// @Produce json
// @Param days query int false "Window in days" default(30)
// @Success 200 {object} domain.ActivityStatsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /activity/stats [get]
func (h *ActivityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days := parseIntQuery(r, "days", 30)
	if days < 1 || days > 365 {
		respondWithError(w, http.StatusBadRequest, "days must be between 1 and 365")
		return
	}

	stats, err := h.activityService.Stats(r.Context(), days)
	if err != nil {
		handleServiceError(w, h.logger, err, "get activity stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
