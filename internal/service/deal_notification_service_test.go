package service_test

import (
	"testing"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/email"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/bettersystems/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func boolPtr(v bool) *bool {
	return &v
}

func TestDealNotificationService_SendDealUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	owner := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	deal := testutil.CreateTestDeal(t, env.db, owner.ID, "Website", nil)

	cto := testutil.CreateTestClient(t, env.db, "CTO", "cto@acme.test")
	ceo := testutil.CreateTestClient(t, env.db, "CEO", "ceo@acme.test")
	muted := testutil.CreateTestClient(t, env.db, "Muted", "muted@acme.test")
	duplicate := testutil.CreateTestClient(t, env.db, "Ops again", "OPS@acme.test")

	for _, c := range []*domain.Client{cto, ceo, duplicate} {
		_, err := env.stakeholders.Add(ctx, deal.ID, &domain.AddStakeholderRequest{ClientID: c.ID})
		require.NoError(t, err)
	}
	_, err := env.stakeholders.Add(ctx, deal.ID, &domain.AddStakeholderRequest{ClientID: muted.ID, ReceivesUpdates: boolPtr(false)})
	require.NoError(t, err)

	env.mailer.failFor = map[string]bool{"ceo@acme.test": true}

	result, err := env.notifications.SendDealUpdate(ctx, deal.ID, &domain.SendDealUpdateRequest{
		Subject: "Sprint 3 shipped",
		Content: "The **new checkout** is live.",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Recipients, 3)
	assert.Equal(t, []string{"ops@acme.test", "cto@acme.test"}, env.mailer.recipients())
	require.NotNil(t, result.InteractionID)

	for _, r := range result.Recipients {
		if r.Email == "ceo@acme.test" {
			assert.False(t, r.Sent)
			assert.NotEmpty(t, r.Error)
		}
	}

	interactions, err := env.deals.ListInteractions(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, domain.InteractionTypeEmail, interactions[0].Type)
	assert.True(t, interactions[0].EmailSent)
	assert.Equal(t, "Sprint 3 shipped", interactions[0].Subject)

	sent := env.mailer.sent[0]
	assert.Equal(t, "Sprint 3 shipped", sent.Subject)
	assert.Contains(t, sent.HTML, "<strong>new checkout</strong>")
}

func TestDealNotificationService_SendBillingNotice(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	owner := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	deal := testutil.CreateTestDeal(t, env.db, owner.ID, "Website", testutil.Float64Ptr(100))
	finance := testutil.CreateTestClient(t, env.db, "Finance", "finance@acme.test")
	updatesOnly := testutil.CreateTestClient(t, env.db, "PM", "pm@acme.test")

	_, err := env.stakeholders.Add(ctx, deal.ID, &domain.AddStakeholderRequest{ClientID: finance.ID, ReceivesBilling: boolPtr(true)})
	require.NoError(t, err)
	_, err = env.stakeholders.Add(ctx, deal.ID, &domain.AddStakeholderRequest{ClientID: updatesOnly.ID})
	require.NoError(t, err)

	testutil.CreateTestInvoice(t, env.db, owner.ID, &deal.ID, "INV-1", 800, 300)

	result, err := env.notifications.SendBillingNotice(ctx, deal.ID, &domain.BillingNoticeRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	assert.ElementsMatch(t, []string{"ops@acme.test", "finance@acme.test"}, env.mailer.recipients())
	assert.Equal(t, "Billing summary for Website", env.mailer.sent[0].Subject)
	assert.Contains(t, env.mailer.sent[0].Text, "500.00")
}

func TestDealNotificationService_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	t.Run("unknown deal", func(t *testing.T) {
		_, err := env.notifications.SendDealUpdate(ctx, 999, &domain.SendDealUpdateRequest{Subject: "x", Content: "y"})
		assert.ErrorIs(t, err, service.ErrDealNotFound)
	})

	t.Run("no mailer configured", func(t *testing.T) {
		client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
		deal := testutil.CreateTestDeal(t, env.db, client.ID, "Website", nil)

		svc := service.NewDealNotificationService(
			repository.NewDealRepository(env.db),
			repository.NewStakeholderRepository(env.db),
			repository.NewInteractionRepository(env.db),
			repository.NewInvoiceRepository(env.db),
			env.ticketRepo,
			nil,
			email.NewRenderer("Better Systems", "https://example.com"),
			env.activity,
			zap.NewNop(),
		)
		_, err := svc.SendDealUpdate(ctx, deal.ID, &domain.SendDealUpdateRequest{Subject: "x", Content: "y"})
		assert.ErrorIs(t, err, service.ErrIntegrationNotConfigured)
	})
}
