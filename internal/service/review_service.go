package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
)

// publicReviewLimit caps the number of reviews shown on the public site
const publicReviewLimit = 50

// ReviewListParams are the admin list filters
type ReviewListParams struct {
	Status    string
	IsPublic  *bool
	MinRating *int
	MaxRating *int
	Page      int
	PageSize  int
}

type ReviewService struct {
	reviewRepo *repository.ReviewRepository
	activity   *ActivityService
	logger     *zap.Logger
}

func NewReviewService(reviewRepo *repository.ReviewRepository, activity *ActivityService, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		activity:   activity,
		logger:     logger,
	}
}

// Submit stores a review from the public survey. Reviews start hidden from
// the public list until an admin approves them.
func (s *ReviewService) Submit(ctx context.Context, req *domain.SubmitReviewRequest) (*domain.ReviewDTO, error) {
	review := &domain.Review{
		ClientID:      req.ClientID,
		ProjectID:     req.ProjectID,
		Phase:         strings.TrimSpace(req.Phase),
		ReviewerName:  strings.TrimSpace(req.ReviewerName),
		ReviewerEmail: strings.ToLower(strings.TrimSpace(req.ReviewerEmail)),
		CompanyName:   strings.TrimSpace(req.CompanyName),
		Rating:        req.Rating,
		Comment:       strings.TrimSpace(req.Comment),
		Status:        domain.ReviewStatusNew,
		IsPublic:      false,
		Source:        domain.ReviewSourcePhaseSurvey,
		SubmittedAt:   time.Now().UTC(),
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.Info("review submitted",
		zap.Uint("review_id", review.ID),
		zap.Int("rating", review.Rating),
	)
	// Staff entering a review on a client's behalf leave a trail; anonymous
	// submissions do not.
	s.activity.Log(ctx, domain.ActivityEntityReview, review.ID, domain.ActivityActionCreated, map[string]interface{}{
		"reviewerEmail": review.ReviewerEmail,
		"rating":        review.Rating,
	})

	dto := mapper.ToReviewDTO(review)
	return &dto, nil
}

func (s *ReviewService) List(ctx context.Context, params ReviewListParams) (*domain.PaginatedResponse, error) {
	page, pageSize := clampPagination(params.Page, params.PageSize)

	filters := &repository.ReviewFilters{
		IsPublic:  params.IsPublic,
		MinRating: params.MinRating,
		MaxRating: params.MaxRating,
	}
	if params.Status != "" && params.Status != "all" {
		status := domain.ReviewStatus(params.Status)
		filters.Status = &status
	}

	reviews, total, err := s.reviewRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	dtos := make([]domain.ReviewDTO, len(reviews))
	for i := range reviews {
		dtos[i] = mapper.ToReviewDTO(&reviews[i])
	}
	return paginatedResponse(dtos, total, page, pageSize), nil
}

// ListPublic returns approved reviews marked public, without reviewer emails
func (s *ReviewService) ListPublic(ctx context.Context) ([]domain.ReviewDTO, error) {
	reviews, err := s.reviewRepo.ListPublic(ctx, publicReviewLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list public reviews: %w", err)
	}

	dtos := make([]domain.ReviewDTO, len(reviews))
	for i := range reviews {
		dtos[i] = mapper.ToPublicReviewDTO(&reviews[i])
	}
	return dtos, nil
}

func (s *ReviewService) Stats(ctx context.Context) (*domain.ReviewStatsDTO, error) {
	stats, err := s.reviewRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get review stats: %w", err)
	}
	return &domain.ReviewStatsDTO{
		Total:         stats.Total,
		AverageRating: stats.AverageRating,
		Approved:      stats.Approved,
		New:           stats.New,
		Hidden:        stats.Hidden,
		Public:        stats.Public,
	}, nil
}

// Update moderates a review. Any status transition is allowed.
func (s *ReviewService) Update(ctx context.Context, id uint, req *domain.UpdateReviewRequest) (*domain.ReviewDTO, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapper.FormatError("review", "get", notFound(err, ErrReviewNotFound))
	}

	oldStatus := review.Status
	if req.Status != nil {
		review.Status = *req.Status
	}
	if req.IsPublic != nil {
		review.IsPublic = *req.IsPublic
	}

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	if review.Status != oldStatus {
		s.activity.Log(ctx, domain.ActivityEntityReview, review.ID, domain.ActivityActionStatusChanged, map[string]interface{}{
			"from": oldStatus,
			"to":   review.Status,
		})
	} else {
		s.activity.Log(ctx, domain.ActivityEntityReview, review.ID, domain.ActivityActionUpdated, map[string]interface{}{
			"isPublic": review.IsPublic,
		})
	}

	dto := mapper.ToReviewDTO(review)
	return &dto, nil
}

func (s *ReviewService) Delete(ctx context.Context, id uint) error {
	if _, err := s.reviewRepo.GetByID(ctx, id); err != nil {
		return notFound(err, ErrReviewNotFound)
	}
	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	s.activity.Log(ctx, domain.ActivityEntityReview, id, domain.ActivityActionDeleted, nil)
	return nil
}
