package repository_test

import (
	"context"
	"testing"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStakeholderRepository_Create_Duplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewStakeholderRepository(db)
	ctx := context.Background()

	owner := testutil.CreateTestClient(t, db, "Owner", "owner@acme.test")
	partner := testutil.CreateTestClient(t, db, "Partner", "partner@acme.test")
	deal := testutil.CreateTestDeal(t, db, owner.ID, "Rollout", nil)

	stakeholder := func() *domain.DealStakeholder {
		return &domain.DealStakeholder{DealID: deal.ID, ClientID: partner.ID, Role: "sponsor", ReceivesUpdates: true}
	}

	require.NoError(t, repo.Create(ctx, stakeholder()))

	err := repo.Create(ctx, stakeholder())
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	exists, err := repo.Exists(ctx, deal.ID, partner.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	counts, err := repo.CountByDeals(ctx, []uint{deal.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[deal.ID])
}
