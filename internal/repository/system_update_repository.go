package repository

import (
	"context"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SystemUpdateRepository struct {
	db *gorm.DB
}

func NewSystemUpdateRepository(db *gorm.DB) *SystemUpdateRepository {
	return &SystemUpdateRepository{db: db}
}

func (r *SystemUpdateRepository) Create(ctx context.Context, update *domain.SystemUpdate) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(update).Error
}

func (r *SystemUpdateRepository) Update(ctx context.Context, update *domain.SystemUpdate) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(update).Error
}

func (r *SystemUpdateRepository) CreateRecipient(ctx context.Context, recipient *domain.SystemUpdateRecipient) error {
	return r.db.WithContext(ctx).Create(recipient).Error
}

// GetByID returns the update with its recipient rows
func (r *SystemUpdateRepository) GetByID(ctx context.Context, id uint) (*domain.SystemUpdate, error) {
	var update domain.SystemUpdate
	err := r.db.WithContext(ctx).
		Preload("Recipients", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("id = ?", id).
		First(&update).Error
	if err != nil {
		return nil, err
	}
	return &update, nil
}

func (r *SystemUpdateRepository) List(ctx context.Context, page, pageSize int) ([]domain.SystemUpdate, int64, error) {
	var updates []domain.SystemUpdate
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.SystemUpdate{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).Order("created_at DESC, id DESC").Find(&updates).Error
	return updates, total, err
}

// Delete removes the update and its recipient rows
func (r *SystemUpdateRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.SystemUpdateRecipient{}, "update_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.SystemUpdate{}, "id = ?", id).Error
	})
}
