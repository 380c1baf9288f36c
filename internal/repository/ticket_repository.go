package repository

import (
	"context"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketFilters contains filter options for listing tickets
type TicketFilters struct {
	Status            *domain.TicketStatus
	ClientID          *uint
	DealID            *uint
	Priority          *domain.Priority
	ApplicationSource string
	ReadyToBill       *bool
	Search            string
}

var ticketSortFields = map[string]string{
	"createdAt":      "created_at",
	"updatedAt":      "updated_at",
	"priority":       "priority",
	"status":         "status",
	"timeSpent":      "time_spent",
	"billableAmount": "billable_amount",
}

// unbilledCondition selects tickets that count as unbilled work; billed_at is authoritative
const unbilledCondition = "(status = ? OR ready_to_bill = ?) AND billed_at IS NULL"

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create inserts the ticket. Reusing an external ticket id within the same
// application source fails with ErrDuplicate.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.SupportTicket) error {
	return translateDuplicate(r.db.WithContext(ctx).Omit(clause.Associations).Create(ticket).Error)
}

func (r *TicketRepository) GetByID(ctx context.Context, id uint) (*domain.SupportTicket, error) {
	var ticket domain.SupportTicket
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Deal").
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetByExternalID finds a ticket previously ingested from an application
func (r *TicketRepository) GetByExternalID(ctx context.Context, source, externalID string) (*domain.SupportTicket, error) {
	var ticket domain.SupportTicket
	err := r.db.WithContext(ctx).
		Where("application_source = ? AND external_ticket_id = ?", source, externalID).
		Order("id ASC").
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepository) Update(ctx context.Context, ticket *domain.SupportTicket) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(ticket).Error
}

func (r *TicketRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.SupportTicket{}, "id = ?", id).Error
}

func (r *TicketRepository) List(ctx context.Context, page, pageSize int, filters *TicketFilters, sort SortConfig) ([]domain.SupportTicket, int64, error) {
	var tickets []domain.SupportTicket
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.SupportTicket{}), filters, true)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Preload("Client").
		Preload("Deal").
		Order(BuildOrderClause(sort, ticketSortFields, "created_at")).
		Order("id DESC").
		Find(&tickets).Error

	return tickets, total, err
}

// CountByStatus counts tickets per status under every filter except status itself
func (r *TicketRepository) CountByStatus(ctx context.Context, filters *TicketFilters) (map[string]int64, error) {
	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.SupportTicket{}), filters, false)
	return countGroupedBy(query, "status")
}

func (r *TicketRepository) applyFilters(query *gorm.DB, filters *TicketFilters, withStatus bool) *gorm.DB {
	if filters == nil {
		return query
	}

	if withStatus && filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	if filters.ClientID != nil {
		query = query.Where("client_id = ?", *filters.ClientID)
	}

	if filters.DealID != nil {
		query = query.Where("deal_id = ?", *filters.DealID)
	}

	if filters.Priority != nil {
		query = query.Where("priority = ?", *filters.Priority)
	}

	if filters.ApplicationSource != "" {
		query = query.Where("application_source = ?", filters.ApplicationSource)
	}

	if filters.ReadyToBill != nil {
		query = query.Where("ready_to_bill = ?", *filters.ReadyToBill)
	}

	if filters.Search != "" {
		pattern := likePattern(filters.Search)
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(submitter_email) LIKE ?", pattern, pattern, pattern)
	}

	return query
}

// ListByDeal returns every ticket of a deal, newest first
func (r *TicketRepository) ListByDeal(ctx context.Context, dealID uint) ([]domain.SupportTicket, error) {
	var tickets []domain.SupportTicket
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at DESC, id DESC").
		Find(&tickets).Error
	return tickets, err
}

// ListUnbilled returns resolved or ready-to-bill tickets that have not been billed
func (r *TicketRepository) ListUnbilled(ctx context.Context, clientID, dealID *uint) ([]domain.SupportTicket, error) {
	var tickets []domain.SupportTicket
	query := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Deal").
		Where(unbilledCondition, domain.TicketStatusResolved, true)

	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}
	if dealID != nil {
		query = query.Where("deal_id = ?", *dealID)
	}

	err := query.Order("created_at ASC, id ASC").Find(&tickets).Error
	return tickets, err
}

// ListRateInheriting returns not-yet-billed tickets of a deal that have no override rate
func (r *TicketRepository) ListRateInheriting(ctx context.Context, dealID uint) ([]domain.SupportTicket, error) {
	var tickets []domain.SupportTicket
	err := r.db.WithContext(ctx).
		Where("deal_id = ? AND hourly_rate IS NULL AND billed_at IS NULL", dealID).
		Find(&tickets).Error
	return tickets, err
}

// UpdateBillableAmounts persists recomputed billable amounts
func (r *TicketRepository) UpdateBillableAmounts(ctx context.Context, amounts map[uint]float64) error {
	if len(amounts) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, amount := range amounts {
			err := tx.Model(&domain.SupportTicket{}).
				Where("id = ? AND billed_at IS NULL", id).
				Updates(map[string]interface{}{
					"billable_amount": amount,
					"updated_at":      now,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkBilled stamps each ticket whose billed_at is still null and returns the ids
// that transitioned. Tickets already billed are left untouched.
func (r *TicketRepository) MarkBilled(ctx context.Context, ids []uint, invoiceID *uint, billedAt time.Time) ([]uint, error) {
	var billed []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			result := tx.Model(&domain.SupportTicket{}).
				Where("id = ? AND billed_at IS NULL", id).
				Updates(map[string]interface{}{
					"status":     domain.TicketStatusBilled,
					"invoice_id": invoiceID,
					"billed_at":  billedAt,
					"updated_at": billedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 1 {
				billed = append(billed, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return billed, nil
}

// ListByIDs returns tickets by id with client and deal
func (r *TicketRepository) ListByIDs(ctx context.Context, ids []uint) ([]domain.SupportTicket, error) {
	var tickets []domain.SupportTicket
	if len(ids) == 0 {
		return tickets, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Deal").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&tickets).Error
	return tickets, err
}

// CountBy counts all tickets grouped by a column (status, priority, application_source)
func (r *TicketRepository) CountBy(ctx context.Context, column string) (map[string]int64, error) {
	return countGroupedBy(r.db.WithContext(ctx).Model(&domain.SupportTicket{}), column)
}

func (r *TicketRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SupportTicket{}).Count(&count).Error
	return count, err
}
