package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
)

// EmailLogFilters contains filter options for listing email logs
type EmailLogFilters struct {
	Category string
	Status   string
	ClientID *uint
	Search   string
}

// recipientMatch compares an address against the sender and the serialized recipient list
const recipientMatch = "LOWER(from_address) LIKE ? OR LOWER(CAST(to_addresses AS TEXT)) LIKE ?"

type EmailLogRepository struct {
	db *gorm.DB
}

func NewEmailLogRepository(db *gorm.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

func (r *EmailLogRepository) Create(ctx context.Context, log *domain.EmailLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *EmailLogRepository) GetByID(ctx context.Context, id uint) (*domain.EmailLog, error) {
	var log domain.EmailLog
	err := r.db.WithContext(ctx).First(&log, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *EmailLogRepository) GetByGmailID(ctx context.Context, gmailID string) (*domain.EmailLog, error) {
	var log domain.EmailLog
	err := r.db.WithContext(ctx).First(&log, "gmail_id = ?", gmailID).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *EmailLogRepository) Update(ctx context.Context, log *domain.EmailLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

func (r *EmailLogRepository) List(ctx context.Context, page, pageSize int, filters *EmailLogFilters) ([]domain.EmailLog, int64, error) {
	var logs []domain.EmailLog
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.EmailLog{})
	if filters != nil {
		if filters.Category != "" {
			query = query.Where("category = ?", filters.Category)
		}
		if filters.Status != "" {
			query = query.Where("status = ?", filters.Status)
		}
		if filters.ClientID != nil {
			query = query.Where("client_id = ?", *filters.ClientID)
		}
		if filters.Search != "" {
			pattern := likePattern(filters.Search)
			query = query.Where("LOWER(subject) LIKE ? OR LOWER(from_address) LIKE ?", pattern, pattern)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).Order("sent_at DESC, id DESC").Find(&logs).Error
	return logs, total, err
}

// ListForAddress returns emails sent from or to an address, newest first
func (r *EmailLogRepository) ListForAddress(ctx context.Context, address string, limit int) ([]domain.EmailLog, error) {
	var logs []domain.EmailLog
	if strings.TrimSpace(address) == "" {
		return logs, nil
	}
	pattern := likePattern(address)
	err := r.db.WithContext(ctx).
		Where(recipientMatch, pattern, pattern).
		Order("sent_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// LinkClient assigns clientID to unlinked emails sent from or to address
func (r *EmailLogRepository) LinkClient(ctx context.Context, address string, clientID uint) (int64, error) {
	pattern := likePattern(address)
	result := r.db.WithContext(ctx).Model(&domain.EmailLog{}).
		Where("client_id IS NULL").
		Where(recipientMatch, pattern, pattern).
		Updates(map[string]interface{}{
			"client_id":  clientID,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *EmailLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.EmailLog{}).Count(&count).Error
	return count, err
}

func (r *EmailLogRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.EmailLog{}).Where("sent_at >= ?", since).Count(&count).Error
	return count, err
}

func (r *EmailLogRepository) CountBy(ctx context.Context, column string) (map[string]int64, error) {
	return countGroupedBy(r.db.WithContext(ctx).Model(&domain.EmailLog{}), column)
}
