package handler

import (
	"net/http"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
	logger        *zap.Logger
}

func NewReviewHandler(reviewService *service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
	}
}

// @Summary Submit a review
// @Description Public endpoint; reviews start as new and private until moderated
// @Tags Reviews
// @Accept json
// @Produce json
// @Param request body domain.SubmitReviewRequest true "Review"
// @Success 201 {object} domain.ReviewDTO
// @Failure 400 {object} domain.APIError
// @Router /reviews [post]
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	review, err := h.reviewService.Submit(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "submit review")
		return
	}

	respondJSON(w, http.StatusCreated, review)
}

// @Summary Public reviews
// @Description Approved reviews marked public
// @Tags Reviews
// @Produce json
// @Success 200 {array} domain.ReviewDTO
// @Router /reviews/public [get]
func (h *ReviewHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.ListPublic(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list public reviews")
		return
	}

	respondJSON(w, http.StatusOK, reviews)
}

// @Summary List reviews for moderation
// @Tags Reviews
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by status (new, approved, hidden, all)"
// @Param isPublic query bool false "Filter by visibility"
// @Param minRating query int false "Minimum rating"
// @Param maxRating query int false "Maximum rating"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ReviewDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/reviews [get]
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	result, err := h.reviewService.List(r.Context(), service.ReviewListParams{
		Status:    r.URL.Query().Get("status"),
		IsPublic:  parseOptionalBool(r, "isPublic"),
		MinRating: parseOptionalInt(r, "minRating"),
		MaxRating: parseOptionalInt(r, "maxRating"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "list reviews")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Review statistics
// @Tags Reviews
// @Produce json
// @Success 200 {object} domain.ReviewStatsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/reviews/stats [get]
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reviewService.Stats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get review stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// @Summary Moderate review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param request body domain.UpdateReviewRequest true "Status and visibility"
// @Success 200 {object} domain.ReviewDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/reviews/{id} [put]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var req domain.UpdateReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	review, err := h.reviewService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update review")
		return
	}

	respondJSON(w, http.StatusOK, review)
}

// @Summary Delete review
// @Tags Reviews
// @Param id path int true "Review ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.reviewService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete review")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
