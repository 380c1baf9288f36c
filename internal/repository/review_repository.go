package repository

import (
	"context"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
)

// ReviewFilters contains filter options for the admin review list
type ReviewFilters struct {
	Status    *domain.ReviewStatus
	IsPublic  *bool
	MinRating *int
	MaxRating *int
}

// ReviewStats aggregates review counts
type ReviewStats struct {
	Total         int64
	AverageRating float64
	Approved      int64
	New           int64
	Hidden        int64
	Public        int64
}

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *ReviewRepository) GetByID(ctx context.Context, id uint) (*domain.Review, error) {
	var review domain.Review
	err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	return r.db.WithContext(ctx).Save(review).Error
}

func (r *ReviewRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Review{}, "id = ?", id).Error
}

func (r *ReviewRepository) List(ctx context.Context, page, pageSize int, filters *ReviewFilters) ([]domain.Review, int64, error) {
	var reviews []domain.Review
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Review{})
	if filters != nil {
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.IsPublic != nil {
			query = query.Where("is_public = ?", *filters.IsPublic)
		}
		if filters.MinRating != nil {
			query = query.Where("rating >= ?", *filters.MinRating)
		}
		if filters.MaxRating != nil {
			query = query.Where("rating <= ?", *filters.MaxRating)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).Order("submitted_at DESC, id DESC").Find(&reviews).Error
	return reviews, total, err
}

// ListPublic returns approved reviews flagged public, newest first
func (r *ReviewRepository) ListPublic(ctx context.Context, limit int) ([]domain.Review, error) {
	var reviews []domain.Review
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_public = ?", domain.ReviewStatusApproved, true).
		Order("submitted_at DESC, id DESC").
		Limit(limit).
		Find(&reviews).Error
	return reviews, err
}

func (r *ReviewRepository) Stats(ctx context.Context) (*ReviewStats, error) {
	var row struct {
		Total         int64
		AverageRating *float64
		ApprovedCount int64
		NewCount      int64
		HiddenCount   int64
		PublicCount   int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Review{}).
		Select(`COUNT(*) AS total,
			AVG(rating) AS average_rating,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS approved_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS new_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS hidden_count,
			COALESCE(SUM(CASE WHEN is_public = ? THEN 1 ELSE 0 END), 0) AS public_count`,
			domain.ReviewStatusApproved, domain.ReviewStatusNew, domain.ReviewStatusHidden, true).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	stats := &ReviewStats{
		Total:    row.Total,
		Approved: row.ApprovedCount,
		New:      row.NewCount,
		Hidden:   row.HiddenCount,
		Public:   row.PublicCount,
	}
	if row.AverageRating != nil {
		stats.AverageRating = domain.RoundCurrency(*row.AverageRating)
	}
	return stats, nil
}
