package repository

import (
	"context"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceFilters contains filter options for listing invoices
type InvoiceFilters struct {
	ClientID *uint
	DealID   *uint
	Status   *domain.InvoiceStatus
}

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uint) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.WithContext(ctx).Preload("Client").Where("id = ?", id).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error
}

func (r *InvoiceRepository) List(ctx context.Context, page, pageSize int, filters *InvoiceFilters) ([]domain.Invoice, int64, error) {
	var invoices []domain.Invoice
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Invoice{})
	if filters != nil {
		if filters.ClientID != nil {
			query = query.Where("client_id = ?", *filters.ClientID)
		}
		if filters.DealID != nil {
			query = query.Where("deal_id = ?", *filters.DealID)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).Preload("Client").Order("created_at DESC, id DESC").Find(&invoices).Error
	return invoices, total, err
}

// ListByDeal returns the invoices scoped to a deal, newest first
func (r *InvoiceRepository) ListByDeal(ctx context.Context, dealID uint) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at DESC, id DESC").
		Find(&invoices).Error
	return invoices, err
}

// ListAll returns every invoice with its client, for dashboard aggregation
func (r *InvoiceRepository) ListAll(ctx context.Context) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.WithContext(ctx).Preload("Client").Order("created_at ASC, id ASC").Find(&invoices).Error
	return invoices, err
}

func (r *InvoiceRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *InvoiceRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).Where("invoice_number = ?", number).Count(&count).Error
	return count > 0, err
}
