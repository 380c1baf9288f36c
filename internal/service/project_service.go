package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
)

type ProjectListParams struct {
	ClientID  *uint
	Status    string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

type ProjectService struct {
	projectRepo *repository.ProjectRepository
	clientRepo  *repository.ClientRepository
	activity    *ActivityService
	logger      *zap.Logger
}

func NewProjectService(
	projectRepo *repository.ProjectRepository,
	clientRepo *repository.ClientRepository,
	activity *ActivityService,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		clientRepo:  clientRepo,
		activity:    activity,
		logger:      logger,
	}
}

func (s *ProjectService) List(ctx context.Context, params ProjectListParams) (*domain.PaginatedResponse, error) {
	page, pageSize := clampPagination(params.Page, params.PageSize)

	filters := &repository.ProjectFilters{
		ClientID: params.ClientID,
		Search:   strings.TrimSpace(params.Search),
	}
	if params.Status != "" && params.Status != "all" {
		status := domain.ProjectStatus(params.Status)
		filters.Status = &status
	}

	sort := repository.DefaultSortConfig()
	if params.SortBy != "" {
		sort.Field = params.SortBy
	}
	if params.SortOrder != "" {
		sort.Order = repository.ParseSortOrder(params.SortOrder)
	}

	projects, total, err := s.projectRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return paginatedResponse(mapper.ToProjectDTOs(projects), total, page, pageSize), nil
}

func (s *ProjectService) GetByID(ctx context.Context, id uint) (*domain.ProjectDTO, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapper.FormatError("project", "get", notFound(err, ErrProjectNotFound))
	}
	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

// Create adds a project and advances a lead or prospect client to active
func (s *ProjectService) Create(ctx context.Context, req *domain.CreateProjectRequest) (*domain.ProjectDTO, error) {
	client, err := s.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}

	status := req.Status
	if status == "" {
		status = domain.ProjectStatusPlanning
	}

	project := &domain.Project{
		ClientID:    client.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Status:      status,
		Budget:      req.Budget,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if client.Status == domain.ClientStatusLead || client.Status == domain.ClientStatusProspect {
		if err := s.clientRepo.UpdateStatus(ctx, client.ID, domain.ClientStatusActive); err != nil {
			s.logger.Warn("failed to activate client after project creation",
				zap.Uint("client_id", client.ID),
				zap.Error(err))
		} else {
			s.activity.Log(ctx, domain.ActivityEntityClient, client.ID, domain.ActivityActionStatusChanged, map[string]interface{}{
				"from": client.Status,
				"to":   domain.ClientStatusActive,
			})
			client.Status = domain.ClientStatusActive
		}
	}

	s.activity.Log(ctx, domain.ActivityEntityProject, project.ID, domain.ActivityActionCreated, map[string]interface{}{
		"name":     project.Name,
		"clientId": client.ID,
	})

	project.Client = client
	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

func (s *ProjectService) Update(ctx context.Context, id uint, req *domain.UpdateProjectRequest) (*domain.ProjectDTO, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}
	oldStatus := project.Status

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		project.Status = *req.Status
	}
	if req.Budget != nil {
		project.Budget = req.Budget
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	action := domain.ActivityActionUpdated
	var details map[string]interface{}
	if project.Status != oldStatus {
		action = domain.ActivityActionStatusChanged
		details = map[string]interface{}{"from": oldStatus, "to": project.Status}
	}
	s.activity.Log(ctx, domain.ActivityEntityProject, project.ID, action, details)

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

func (s *ProjectService) Delete(ctx context.Context, id uint) error {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrProjectNotFound)
	}
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.activity.Log(ctx, domain.ActivityEntityProject, id, domain.ActivityActionDeleted, map[string]interface{}{
		"name": project.Name,
	})
	return nil
}

func (s *ProjectService) Stats(ctx context.Context) (*domain.ProjectStatsDTO, error) {
	byStatus, err := s.projectRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	var total int64
	for _, n := range byStatus {
		total += n
	}
	return &domain.ProjectStatsDTO{Total: total, ByStatus: byStatus}, nil
}
