package service_test

import (
	"context"
	"testing"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitReview(t *testing.T, env *testEnv, name string, rating int) *domain.ReviewDTO {
	t.Helper()
	review, err := env.reviews.Submit(context.Background(), &domain.SubmitReviewRequest{
		ReviewerName:  name,
		ReviewerEmail: "  " + name + "@Example.test ",
		Rating:        rating,
		Comment:       "Great work on the project, thanks!",
		Phase:         "Discovery",
	})
	require.NoError(t, err)
	return review
}

func TestReviewService_Submit(t *testing.T) {
	env := newTestEnv(t)

	review := submitReview(t, env, "dana", 5)

	assert.Equal(t, domain.ReviewStatusNew, review.Status)
	assert.False(t, review.IsPublic)
	assert.Equal(t, domain.ReviewSourcePhaseSurvey, review.Source)
	assert.Equal(t, "dana@example.test", review.ReviewerEmail)
	assert.NotEmpty(t, review.SubmittedAt)

	public, err := env.reviews.ListPublic(context.Background())
	require.NoError(t, err)
	assert.Empty(t, public)
	assert.Zero(t, env.activityCount(t, domain.ActivityEntityReview, review.ID), "anonymous submissions leave no activity")

	t.Run("staff submission is recorded", func(t *testing.T) {
		staffReview, err := env.reviews.Submit(adminContext(), &domain.SubmitReviewRequest{
			ReviewerName:  "Entered by staff",
			ReviewerEmail: "client@example.test",
			Rating:        4,
			Comment:       "Feedback collected over the phone.",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, env.activityCount(t, domain.ActivityEntityReview, staffReview.ID))
	})
}

func TestReviewService_Moderation(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	approved := submitReview(t, env, "dana", 5)
	approvedPrivate := submitReview(t, env, "eli", 4)
	hidden := submitReview(t, env, "fay", 1)

	status := domain.ReviewStatusApproved
	_, err := env.reviews.Update(ctx, approved.ID, &domain.UpdateReviewRequest{Status: &status, IsPublic: boolPtr(true)})
	require.NoError(t, err)
	_, err = env.reviews.Update(ctx, approvedPrivate.ID, &domain.UpdateReviewRequest{Status: &status})
	require.NoError(t, err)
	hiddenStatus := domain.ReviewStatusHidden
	_, err = env.reviews.Update(ctx, hidden.ID, &domain.UpdateReviewRequest{Status: &hiddenStatus, IsPublic: boolPtr(true)})
	require.NoError(t, err)

	t.Run("public list needs approved and public", func(t *testing.T) {
		public, err := env.reviews.ListPublic(ctx)
		require.NoError(t, err)
		require.Len(t, public, 1)
		assert.Equal(t, approved.ID, public[0].ID)
		assert.Empty(t, public[0].ReviewerEmail)
	})

	t.Run("admin filters", func(t *testing.T) {
		resp, err := env.reviews.List(ctx, service.ReviewListParams{Status: "approved"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Total)

		minRating := 4
		resp, err = env.reviews.List(ctx, service.ReviewListParams{Status: "all", MinRating: &minRating})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Total)

		resp, err = env.reviews.List(ctx, service.ReviewListParams{IsPublic: boolPtr(true)})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Total)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := env.reviews.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.Total)
		assert.Equal(t, int64(2), stats.Approved)
		assert.Equal(t, int64(1), stats.Hidden)
		assert.Equal(t, int64(0), stats.New)
		assert.Equal(t, int64(2), stats.Public)
		assert.InDelta(t, 3.33, stats.AverageRating, 0.01)
	})

	t.Run("status change is logged", func(t *testing.T) {
		entries, err := env.activityRepo.ListByEntity(ctx, domain.ActivityEntityReview, approved.ID, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.ActivityActionStatusChanged, entries[0].Action)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, env.reviews.Delete(ctx, hidden.ID))
		assert.ErrorIs(t, env.reviews.Delete(ctx, hidden.ID), service.ErrReviewNotFound)
	})
}
