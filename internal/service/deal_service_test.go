package service_test

import (
	"testing"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/bettersystems/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	t.Run("defaults and lead client advances to prospect", func(t *testing.T) {
		client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")

		deal, err := env.deals.Create(ctx, &domain.CreateDealRequest{
			ClientID: client.ID,
			Name:     "Website rebuild",
			Value:    12000.456,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.DealStageProspect, deal.Stage)
		assert.Equal(t, domain.PriorityMedium, deal.Priority)
		assert.Equal(t, 12000.46, deal.Value)
		require.NotNil(t, deal.OwnerID)
		assert.Equal(t, uint(7), *deal.OwnerID)

		got, err := env.clients.GetByID(ctx, client.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ClientStatusProspect, got.Status)
	})

	t.Run("active client keeps status", func(t *testing.T) {
		client := testutil.CreateTestClient(t, env.db, "Steady", "steady@example.test")
		require.NoError(t, env.db.Model(client).Update("status", domain.ClientStatusActive).Error)

		_, err := env.deals.Create(ctx, &domain.CreateDealRequest{ClientID: client.ID, Name: "Retainer"})
		require.NoError(t, err)

		got, err := env.clients.GetByID(ctx, client.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ClientStatusActive, got.Status)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := env.deals.Create(ctx, &domain.CreateDealRequest{ClientID: 999, Name: "Ghost"})
		assert.ErrorIs(t, err, service.ErrClientNotFound)
	})
}

func TestDealService_Update_RateChangeRefreshesTickets(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	deal := testutil.CreateTestDeal(t, env.db, client.ID, "Support", testutil.Float64Ptr(100))

	inheriting, err := env.tickets.Create(ctx, &domain.CreateTicketRequest{
		DealID:      &deal.ID,
		Title:       "Fix login",
		Description: "Users cannot log in",
		TimeSpent:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, 200.0, inheriting.BillableAmount)

	override, err := env.tickets.Create(ctx, &domain.CreateTicketRequest{
		DealID:      &deal.ID,
		Title:       "Migration",
		Description: "Move data",
		TimeSpent:   2,
		HourlyRate:  testutil.Float64Ptr(80),
	})
	require.NoError(t, err)
	assert.Equal(t, 160.0, override.BillableAmount)

	billed := testutil.CreateTestTicket(t, env.db, func(tk *domain.SupportTicket) {
		tk.DealID = &deal.ID
		tk.TimeSpent = 1
		tk.BillableAmount = 100
	})
	_, err = env.tickets.MarkBilled(ctx, &domain.MarkBilledRequest{TicketIDs: []uint{billed.ID}})
	require.NoError(t, err)

	_, err = env.deals.Update(ctx, deal.ID, &domain.UpdateDealRequest{HourlyRate: testutil.Float64Ptr(150)})
	require.NoError(t, err)

	got, err := env.tickets.GetByID(ctx, inheriting.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, got.BillableAmount)

	got, err = env.tickets.GetByID(ctx, override.ID)
	require.NoError(t, err)
	assert.Equal(t, 160.0, got.BillableAmount)

	got, err = env.tickets.GetByID(ctx, billed.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.BillableAmount)
}

func TestDealService_Update_StageChangeLogged(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	deal := testutil.CreateTestDeal(t, env.db, client.ID, "Support", nil)

	stage := domain.DealStageClosedWon
	updated, err := env.deals.Update(ctx, deal.ID, &domain.UpdateDealRequest{Stage: &stage})
	require.NoError(t, err)
	assert.Equal(t, domain.DealStageClosedWon, updated.Stage)

	entries, err := env.activityRepo.ListByEntity(ctx, domain.ActivityEntityDeal, deal.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActivityActionStatusChanged, entries[0].Action)
}

func TestDealService_GetByID(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	deal := testutil.CreateTestDeal(t, env.db, client.ID, "Support", testutil.Float64Ptr(120))

	testutil.CreateTestTicket(t, env.db, func(tk *domain.SupportTicket) {
		tk.DealID = &deal.ID
		tk.Status = domain.TicketStatusResolved
		tk.TimeSpent = 1.5
	})
	testutil.CreateTestTicket(t, env.db, func(tk *domain.SupportTicket) {
		tk.DealID = &deal.ID
		tk.ReadyToBill = true
		tk.TimeSpent = 1
		tk.HourlyRate = testutil.Float64Ptr(90)
	})
	testutil.CreateTestTicket(t, env.db, func(tk *domain.SupportTicket) {
		tk.DealID = &deal.ID
		tk.TimeSpent = 4
	})
	testutil.CreateTestInvoice(t, env.db, client.ID, &deal.ID, "INV-1", 1000, 400)

	_, err := env.deals.AddInteraction(ctx, deal.ID, &domain.CreateInteractionRequest{
		Type:    domain.InteractionTypeCall,
		Subject: "Kickoff",
	})
	require.NoError(t, err)

	detail, err := env.deals.GetByID(ctx, deal.ID)
	require.NoError(t, err)

	require.NotNil(t, detail.Client)
	assert.Equal(t, client.ID, detail.Client.ID)
	assert.Len(t, detail.Tickets, 3)
	assert.Len(t, detail.Interactions, 1)
	assert.Len(t, detail.Invoices, 1)

	assert.Equal(t, 2, detail.UnbilledWork.TicketCount)
	assert.Equal(t, 2.5, detail.UnbilledWork.TotalHours)
	assert.Equal(t, 270.0, detail.UnbilledWork.TotalAmount)

	assert.Equal(t, 1000.0, detail.Billing.TotalInvoiced)
	assert.Equal(t, 400.0, detail.Billing.TotalPaid)
	assert.Equal(t, 600.0, detail.Billing.TotalOutstanding)

	t.Run("unknown deal", func(t *testing.T) {
		_, err := env.deals.GetByID(ctx, 999)
		assert.ErrorIs(t, err, service.ErrDealNotFound)
	})
}

func TestStakeholderService(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	owner := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	finance := testutil.CreateTestClient(t, env.db, "Finance", "finance@acme.test")
	deal := testutil.CreateTestDeal(t, env.db, owner.ID, "Support", nil)

	var stakeholderID uint

	t.Run("add applies defaults", func(t *testing.T) {
		sh, err := env.stakeholders.Add(ctx, deal.ID, &domain.AddStakeholderRequest{ClientID: finance.ID})
		require.NoError(t, err)

		stakeholderID = sh.ID
		assert.Equal(t, "stakeholder", sh.Role)
		assert.False(t, sh.IsPrimary)
		assert.True(t, sh.ReceivesUpdates)
		assert.False(t, sh.ReceivesBilling)
		assert.Equal(t, "finance@acme.test", sh.Email)
	})

	t.Run("duplicate pair rejected", func(t *testing.T) {
		_, err := env.stakeholders.Add(ctx, deal.ID, &domain.AddStakeholderRequest{ClientID: finance.ID, Role: "billing"})
		assert.ErrorIs(t, err, service.ErrDuplicateStakeholder)
	})

	t.Run("unknown deal", func(t *testing.T) {
		_, err := env.stakeholders.Add(ctx, 999, &domain.AddStakeholderRequest{ClientID: finance.ID})
		assert.ErrorIs(t, err, service.ErrDealNotFound)
	})

	t.Run("update flags", func(t *testing.T) {
		receivesBilling := true
		sh, err := env.stakeholders.Update(ctx, deal.ID, stakeholderID, &domain.UpdateStakeholderRequest{
			ReceivesBilling: &receivesBilling,
		})
		require.NoError(t, err)
		assert.True(t, sh.ReceivesBilling)
		assert.True(t, sh.ReceivesUpdates)
	})

	t.Run("remove scoped to deal", func(t *testing.T) {
		other := testutil.CreateTestDeal(t, env.db, owner.ID, "Other", nil)
		err := env.stakeholders.Remove(ctx, other.ID, stakeholderID)
		assert.ErrorIs(t, err, service.ErrStakeholderNotFound)

		require.NoError(t, env.stakeholders.Remove(ctx, deal.ID, stakeholderID))

		list, err := env.stakeholders.List(ctx, deal.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
