package handler

import (
	"fmt"
	"net/http"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	logger         *zap.Logger
}

func NewProjectHandler(projectService *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// @Summary List projects
// @Tags Projects
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param clientId query int false "Filter by client"
// @Param status query string false "Filter by status"
// @Param search query string false "Match name or description"
// @Param sortBy query string false "createdAt, updatedAt, name, budget, startDate or endDate"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ProjectDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /projects [get]
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	result, err := h.projectService.List(r.Context(), service.ProjectListParams{
		ClientID:  parseOptionalUint(r, "clientId"),
		Status:    q.Get("status"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "list projects")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Project statistics
// @Tags Projects
// @Produce json
// @Success 200 {object} domain.ProjectStatsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /projects/stats [get]
func (h *ProjectHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.projectService.Stats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get project stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// @Summary Create project
// @Description A lead or prospect client becomes active
// @Tags Projects
// @Accept json
// @Produce json
// @Param request body domain.CreateProjectRequest true "Project data"
// @Success 201 {object} domain.ProjectDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /projects [post]
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	project, err := h.projectService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create project")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/projects/%d", project.ID))
	respondJSON(w, http.StatusCreated, project)
}

// @Summary Get project
// @Tags Projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} domain.ProjectDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.projectService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get project")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// @Summary Update project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param request body domain.UpdateProjectRequest true "Fields to change"
// @Success 200 {object} domain.ProjectDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /projects/{id} [put]
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var req domain.UpdateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	project, err := h.projectService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update project")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// @Summary Delete project
// @Tags Projects
// @Param id path int true "Project ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	if err := h.projectService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete project")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
