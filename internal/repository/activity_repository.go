package repository

import (
	"context"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
)

// ActivityFilters narrows the activity log listing
type ActivityFilters struct {
	EntityType *domain.ActivityEntityType
	EntityID   *uint
	UserID     *uint
	Action     string
}

// ActivityRepository reads and appends activity log rows. There is no update or delete.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ActivityRepository) List(ctx context.Context, page, pageSize int, filters *ActivityFilters) ([]domain.ActivityLog, int64, error) {
	var entries []domain.ActivityLog
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.ActivityLog{})
	if filters != nil {
		if filters.EntityType != nil {
			query = query.Where("entity_type = ?", *filters.EntityType)
		}
		if filters.EntityID != nil {
			query = query.Where("entity_id = ?", *filters.EntityID)
		}
		if filters.UserID != nil {
			query = query.Where("user_id = ?", *filters.UserID)
		}
		if filters.Action != "" {
			query = query.Where("action = ?", filters.Action)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).Order("created_at DESC, id DESC").Find(&entries).Error
	return entries, total, err
}

// ListByEntity returns the most recent entries for one entity
func (r *ActivityRepository) ListByEntity(ctx context.Context, entityType domain.ActivityEntityType, entityID uint, limit int) ([]domain.ActivityLog, error) {
	var entries []domain.ActivityLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *ActivityRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ActivityLog{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// CountSinceBy groups entries created after since by entity_type or action
func (r *ActivityRepository) CountSinceBy(ctx context.Context, since time.Time, column string) (map[string]int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.ActivityLog{}).Where("created_at >= ?", since)
	return countGroupedBy(query, column)
}
