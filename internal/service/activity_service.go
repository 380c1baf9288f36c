package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// defaultStatsDays is the window used by Stats when none is given
const defaultStatsDays = 30

// ActivityService appends to and reads the activity log
type ActivityService struct {
	activityRepo *repository.ActivityRepository
	logger       *zap.Logger
}

// NewActivityService creates a new ActivityService instance
func NewActivityService(activityRepo *repository.ActivityRepository, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// Log records an action by the authenticated caller. Calls without a caller in
// context (email sync, background jobs) are not recorded. Failures are logged
// and never fail the surrounding operation.
func (s *ActivityService) Log(ctx context.Context, entityType domain.ActivityEntityType, entityID uint, action string, details map[string]interface{}) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return
	}
	s.write(ctx, entityType, entityID, action, userCtx.UserIDPtr(), details)
}

// LogAnonymous records an action with no user, used for partner ingestion
func (s *ActivityService) LogAnonymous(ctx context.Context, entityType domain.ActivityEntityType, entityID uint, action string, details map[string]interface{}) {
	s.write(ctx, entityType, entityID, action, nil, details)
}

func (s *ActivityService) write(ctx context.Context, entityType domain.ActivityEntityType, entityID uint, action string, userID *uint, details map[string]interface{}) {
	entry := &domain.ActivityLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     userID,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			s.logger.Warn("failed to encode activity details", zap.Error(err))
		} else {
			entry.Details = datatypes.JSON(raw)
		}
	}

	if err := s.activityRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to log activity",
			zap.String("entity_type", string(entityType)),
			zap.Uint("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// List returns activity entries, newest first
func (s *ActivityService) List(ctx context.Context, page, pageSize int, filters *repository.ActivityFilters) (*domain.PaginatedResponse, error) {
	page, pageSize = clampPagination(page, pageSize)

	entries, total, err := s.activityRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	dtos := make([]domain.ActivityDTO, len(entries))
	for i := range entries {
		dtos[i] = mapper.ToActivityDTO(&entries[i])
	}
	return paginatedResponse(dtos, total, page, pageSize), nil
}

// Stats counts entries in the last days days by entity type and action
func (s *ActivityService) Stats(ctx context.Context, days int) (*domain.ActivityStatsDTO, error) {
	if days < 1 {
		days = defaultStatsDays
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	total, err := s.activityRepo.CountSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}
	byEntity, err := s.activityRepo.CountSinceBy(ctx, since, "entity_type")
	if err != nil {
		return nil, fmt.Errorf("failed to count activity by entity: %w", err)
	}
	byAction, err := s.activityRepo.CountSinceBy(ctx, since, "action")
	if err != nil {
		return nil, fmt.Errorf("failed to count activity by action: %w", err)
	}

	return &domain.ActivityStatsDTO{
		Days:         days,
		Total:        total,
		ByEntityType: byEntity,
		ByAction:     byAction,
	}, nil
}
