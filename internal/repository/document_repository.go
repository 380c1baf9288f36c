package repository

import (
	"context"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByID returns an active document
func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, domain.DocumentStatusActive).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByEntity returns active documents attached to an entity, newest first
func (r *DocumentRepository) ListByEntity(ctx context.Context, entityType string, entityID uint) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND status = ?", entityType, entityID, domain.DocumentStatusActive).
		Order("created_at DESC, id DESC").
		Find(&docs).Error
	return docs, err
}

// MarkDeleted soft-deletes a document
func (r *DocumentRepository) MarkDeleted(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.DocumentStatusDeleted,
			"updated_at": time.Now().UTC(),
		}).Error
}

// CountActiveByDeals counts active deal documents per deal
func (r *DocumentRepository) CountActiveByDeals(ctx context.Context, dealIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(dealIDs))
	if len(dealIDs) == 0 {
		return counts, nil
	}
	var rows []dealCount
	err := r.db.WithContext(ctx).Model(&domain.Document{}).
		Select("entity_id AS deal_id, COUNT(*) AS count").
		Where("entity_type = ? AND status = ? AND entity_id IN ?", domain.DocumentEntityDeal, domain.DocumentStatusActive, dealIDs).
		Group("entity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.DealID] = row.Count
	}
	return counts, nil
}
