package repository

import (
	"context"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClientFilters contains filter options for listing clients
type ClientFilters struct {
	Search string
	Status *domain.ClientStatus
	Label  *string
	// HideHidden suppresses clients labelled hidden unless Label asks for them
	HideHidden bool
}

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(client).Error
}

func (r *ClientRepository) GetByID(ctx context.Context, id uint) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// GetByEmail returns the oldest client whose email matches case-insensitively
func (r *ClientRepository) GetByEmail(ctx context.Context, email string) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("id ASC").
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) Update(ctx context.Context, client *domain.Client) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(client).Error
}

func (r *ClientRepository) UpdateStatus(ctx context.Context, id uint, status domain.ClientStatus) error {
	return r.db.WithContext(ctx).Model(&domain.Client{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *ClientRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Client{}, "id = ?", id).Error
}

func (r *ClientRepository) List(ctx context.Context, page, pageSize int, filters *ClientFilters) ([]domain.Client, int64, error) {
	var clients []domain.Client
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Client{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).Order("created_at DESC, id DESC").Find(&clients).Error
	return clients, total, err
}

func (r *ClientRepository) applyFilters(query *gorm.DB, filters *ClientFilters) *gorm.DB {
	if filters == nil {
		return query
	}

	if filters.Search != "" {
		pattern := likePattern(filters.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(contact_name) LIKE ?", pattern, pattern, pattern)
	}

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	if filters.Label != nil {
		query = query.Where("label = ?", *filters.Label)
	} else if filters.HideHidden {
		query = query.Where("label IS NULL OR label <> ?", domain.ClientLabelHidden)
	}

	return query
}

// CountByStatus returns the number of clients per status
func (r *ClientRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return countGroupedBy(r.db.WithContext(ctx).Model(&domain.Client{}), "status")
}

func (r *ClientRepository) GetProjectsCount(ctx context.Context, clientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Project{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, err
}

func (r *ClientRepository) GetDealsCount(ctx context.Context, clientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Deal{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, err
}
