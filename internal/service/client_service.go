package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// clientEmailLogLimit caps the email history embedded in a client detail
const clientEmailLogLimit = 50

// ClientListParams are the query options accepted by ClientService.List
type ClientListParams struct {
	Search     string
	Status     string
	Label      string
	HideHidden bool
	Page       int
	PageSize   int
}

type ClientService struct {
	clientRepo   *repository.ClientRepository
	projectRepo  *repository.ProjectRepository
	dealRepo     *repository.DealRepository
	emailLogRepo *repository.EmailLogRepository
	activity     *ActivityService
	logger       *zap.Logger
}

func NewClientService(
	clientRepo *repository.ClientRepository,
	projectRepo *repository.ProjectRepository,
	dealRepo *repository.DealRepository,
	emailLogRepo *repository.EmailLogRepository,
	activity *ActivityService,
	logger *zap.Logger,
) *ClientService {
	return &ClientService{
		clientRepo:   clientRepo,
		projectRepo:  projectRepo,
		dealRepo:     dealRepo,
		emailLogRepo: emailLogRepo,
		activity:     activity,
		logger:       logger,
	}
}

// List returns a page of clients, each annotated with its latest deal
func (s *ClientService) List(ctx context.Context, params ClientListParams) (*domain.PaginatedResponse, error) {
	page, pageSize := clampPagination(params.Page, params.PageSize)

	filters := &repository.ClientFilters{
		Search:     strings.TrimSpace(params.Search),
		HideHidden: params.HideHidden,
	}
	if params.Status != "" && params.Status != "all" {
		status := domain.ClientStatus(params.Status)
		filters.Status = &status
	}
	if params.Label != "" {
		label := params.Label
		filters.Label = &label
	}

	clients, total, err := s.clientRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	ids := make([]uint, len(clients))
	for i := range clients {
		ids[i] = clients[i].ID
	}
	latest, err := s.dealRepo.LatestByClients(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest deals: %w", err)
	}

	items := make([]domain.ClientListItemDTO, len(clients))
	for i := range clients {
		items[i] = domain.ClientListItemDTO{ClientDTO: mapper.ToClientDTO(&clients[i])}
		if deal, ok := latest[clients[i].ID]; ok {
			dto := mapper.ToDealDTO(&deal)
			items[i].Deal = &dto
		}
	}

	return paginatedResponse(items, total, page, pageSize), nil
}

// GetByID returns a client with its projects, owned deals and email history
func (s *ClientService) GetByID(ctx context.Context, id uint) (*domain.ClientDetailDTO, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapper.FormatError("client", "get", notFound(err, ErrClientNotFound))
	}

	projects, err := s.projectRepo.ListByClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load client projects: %w", err)
	}
	deals, err := s.dealRepo.ListByClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load client deals: %w", err)
	}

	logs := []domain.EmailLog{}
	if client.Email != "" {
		logs, err = s.emailLogRepo.ListForAddress(ctx, client.Email, clientEmailLogLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load client emails: %w", err)
		}
	}

	return &domain.ClientDetailDTO{
		ClientDTO: mapper.ToClientDTO(client),
		Projects:  mapper.ToProjectDTOs(projects),
		Deals:     mapper.ToDealDTOs(deals),
		EmailLogs: mapper.ToEmailLogDTOs(logs),
	}, nil
}

func (s *ClientService) Create(ctx context.Context, req *domain.CreateClientRequest) (*domain.ClientDTO, error) {
	status := req.Status
	if status == "" {
		status = domain.ClientStatusLead
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	client := &domain.Client{
		Name:        strings.TrimSpace(req.Name),
		ContactName: req.ContactName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       strings.TrimSpace(req.Email),
		Phone:       req.Phone,
		Company:     req.Company,
		Status:      status,
		Source:      req.Source,
		Label:       emptyToNil(req.Label),
		Notes:       req.Notes,
		Tags:        datatypes.JSONSlice[string](tags),
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.activity.Log(ctx, domain.ActivityEntityClient, client.ID, domain.ActivityActionCreated, map[string]interface{}{
		"name":   client.Name,
		"status": client.Status,
	})

	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

// Update applies a partial patch. A status change is logged as status_changed.
func (s *ClientService) Update(ctx context.Context, id uint, req *domain.UpdateClientRequest) (*domain.ClientDTO, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}
	oldStatus := client.Status

	if req.Name != nil {
		client.Name = strings.TrimSpace(*req.Name)
	}
	if req.ContactName != nil {
		client.ContactName = *req.ContactName
	}
	if req.FirstName != nil {
		client.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		client.LastName = *req.LastName
	}
	if req.Email != nil {
		client.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Company != nil {
		client.Company = *req.Company
	}
	if req.Status != nil {
		client.Status = *req.Status
	}
	if req.Source != nil {
		client.Source = *req.Source
	}
	if req.Label != nil {
		client.Label = emptyToNil(req.Label)
	}
	if req.Notes != nil {
		client.Notes = *req.Notes
	}
	if req.Tags != nil {
		client.Tags = datatypes.JSONSlice[string](req.Tags)
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}

	if client.Status != oldStatus {
		s.activity.Log(ctx, domain.ActivityEntityClient, client.ID, domain.ActivityActionStatusChanged, map[string]interface{}{
			"from": oldStatus,
			"to":   client.Status,
		})
	} else {
		s.activity.Log(ctx, domain.ActivityEntityClient, client.ID, domain.ActivityActionUpdated, nil)
	}

	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

// Delete removes a client that owns no projects and no deals
func (s *ClientService) Delete(ctx context.Context, id uint) error {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrClientNotFound)
	}

	projectCount, err := s.clientRepo.GetProjectsCount(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count client projects: %w", err)
	}
	if projectCount > 0 {
		return ErrClientHasProjects
	}

	dealCount, err := s.clientRepo.GetDealsCount(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count client deals: %w", err)
	}
	if dealCount > 0 {
		return ErrClientHasDeals
	}

	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	s.activity.Log(ctx, domain.ActivityEntityClient, id, domain.ActivityActionDeleted, map[string]interface{}{
		"name": client.Name,
	})
	return nil
}

func (s *ClientService) Stats(ctx context.Context) (*domain.ClientStatsDTO, error) {
	byStatus, err := s.clientRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}
	var total int64
	for _, n := range byStatus {
		total += n
	}
	return &domain.ClientStatsDTO{Total: total, ByStatus: byStatus}, nil
}

// emptyToNil treats an empty label as clearing it
func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
