package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
)

// recentEmailWindow is the period counted as "recent" in email stats
const recentEmailWindow = 7 * 24 * time.Hour

// EmailLogListParams are the query options accepted by EmailLogService.List
type EmailLogListParams struct {
	Category  string
	Status    string
	Direction string
	Search    string
	ClientID  *uint
	Page      int
	PageSize  int
}

type EmailLogService struct {
	emailLogRepo *repository.EmailLogRepository
	logger       *zap.Logger
}

func NewEmailLogService(emailLogRepo *repository.EmailLogRepository, logger *zap.Logger) *EmailLogService {
	return &EmailLogService{
		emailLogRepo: emailLogRepo,
		logger:       logger,
	}
}

// List returns a page of email logs without bodies. Direction is stored as
// the category, so a direction filter applies only when no category is given.
func (s *EmailLogService) List(ctx context.Context, params EmailLogListParams) (*domain.PaginatedResponse, error) {
	page, pageSize := clampPagination(params.Page, params.PageSize)

	filters := &repository.EmailLogFilters{
		Category: params.Category,
		Status:   params.Status,
		ClientID: params.ClientID,
		Search:   strings.TrimSpace(params.Search),
	}
	if filters.Category == "all" {
		filters.Category = ""
	}
	if filters.Category == "" && (params.Direction == domain.EmailCategoryInbound || params.Direction == domain.EmailCategoryOutbound) {
		filters.Category = params.Direction
	}
	if filters.Status == "all" {
		filters.Status = ""
	}

	logs, total, err := s.emailLogRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list email logs: %w", err)
	}
	return paginatedResponse(mapper.ToEmailLogDTOs(logs), total, page, pageSize), nil
}

// GetByID returns one email including its bodies
func (s *EmailLogService) GetByID(ctx context.Context, id uint) (*domain.EmailLogDTO, error) {
	log, err := s.emailLogRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapper.FormatError("email log", "get", notFound(err, ErrEmailLogNotFound))
	}
	dto := mapper.ToEmailLogDTO(log, true)
	return &dto, nil
}

func (s *EmailLogService) Stats(ctx context.Context) (*domain.EmailStatsDTO, error) {
	total, err := s.emailLogRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count email logs: %w", err)
	}
	recent, err := s.emailLogRepo.CountSince(ctx, time.Now().UTC().Add(-recentEmailWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent email logs: %w", err)
	}
	byCategory, err := s.emailLogRepo.CountBy(ctx, "category")
	if err != nil {
		return nil, fmt.Errorf("failed to count email logs by category: %w", err)
	}
	byStatus, err := s.emailLogRepo.CountBy(ctx, "status")
	if err != nil {
		return nil, fmt.Errorf("failed to count email logs by status: %w", err)
	}

	return &domain.EmailStatsDTO{
		Total:      total,
		Recent:     recent,
		ByCategory: byCategory,
		ByStatus:   byStatus,
	}, nil
}
