package repository

import (
	"context"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StakeholderRepository struct {
	db *gorm.DB
}

func NewStakeholderRepository(db *gorm.DB) *StakeholderRepository {
	return &StakeholderRepository{db: db}
}

// Create inserts the stakeholder. A second row for the same deal and client
// fails with ErrDuplicate.
func (r *StakeholderRepository) Create(ctx context.Context, s *domain.DealStakeholder) error {
	return translateDuplicate(r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error)
}

func (r *StakeholderRepository) GetByID(ctx context.Context, dealID, id uint) (*domain.DealStakeholder, error) {
	var s domain.DealStakeholder
	err := r.db.WithContext(ctx).Preload("Client").
		Where("id = ? AND deal_id = ?", id, dealID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Exists reports whether the client is already a stakeholder on the deal
func (r *StakeholderRepository) Exists(ctx context.Context, dealID, clientID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.DealStakeholder{}).
		Where("deal_id = ? AND client_id = ?", dealID, clientID).
		Count(&count).Error
	return count > 0, err
}

// ListByDeal returns the stakeholders of a deal with their clients, oldest first
func (r *StakeholderRepository) ListByDeal(ctx context.Context, dealID uint) ([]domain.DealStakeholder, error) {
	var stakeholders []domain.DealStakeholder
	err := r.db.WithContext(ctx).Preload("Client").
		Where("deal_id = ?", dealID).
		Order("created_at ASC, id ASC").
		Find(&stakeholders).Error
	return stakeholders, err
}

func (r *StakeholderRepository) Update(ctx context.Context, s *domain.DealStakeholder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(s).Error
}

func (r *StakeholderRepository) Delete(ctx context.Context, dealID, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.DealStakeholder{}, "id = ? AND deal_id = ?", id, dealID).Error
}

func (r *StakeholderRepository) CountByDeals(ctx context.Context, dealIDs []uint) (map[uint]int64, error) {
	return countByDeal(r.db.WithContext(ctx).Model(&domain.DealStakeholder{}), dealIDs)
}
