package repository

import (
	"context"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
)

type InteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) Create(ctx context.Context, interaction *domain.DealInteraction) error {
	return r.db.WithContext(ctx).Create(interaction).Error
}

// ListByDeal returns the interactions of a deal, newest first
func (r *InteractionRepository) ListByDeal(ctx context.Context, dealID uint) ([]domain.DealInteraction, error) {
	var interactions []domain.DealInteraction
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at DESC, id DESC").
		Find(&interactions).Error
	return interactions, err
}

func (r *InteractionRepository) CountByDeals(ctx context.Context, dealIDs []uint) (map[uint]int64, error) {
	return countByDeal(r.db.WithContext(ctx).Model(&domain.DealInteraction{}), dealIDs)
}
