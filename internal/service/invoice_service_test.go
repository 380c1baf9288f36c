package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/bettersystems/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInvoiceService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	other := testutil.CreateTestClient(t, env.db, "Other", "other@example.test")
	deal := testutil.CreateTestDeal(t, env.db, client.ID, "Support", nil)

	t.Run("totals and generated number", func(t *testing.T) {
		inv, err := env.invoices.Create(ctx, &domain.CreateInvoiceRequest{
			ClientID:   client.ID,
			DealID:     &deal.ID,
			Subtotal:   1000,
			Tax:        250,
			AmountPaid: 50,
		})
		require.NoError(t, err)

		assert.Equal(t, 1250.0, inv.Total)
		assert.Equal(t, 1200.0, inv.AmountDue)
		assert.Equal(t, "USD", inv.Currency)
		assert.Equal(t, domain.InvoiceStatusOpen, inv.Status)
		assert.Equal(t, fmt.Sprintf("INV-%s-0001", time.Now().UTC().Format("200601")), inv.InvoiceNumber)
	})

	t.Run("sequence increments", func(t *testing.T) {
		inv, err := env.invoices.Create(ctx, &domain.CreateInvoiceRequest{ClientID: client.ID, Subtotal: 10})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("INV-%s-0002", time.Now().UTC().Format("200601")), inv.InvoiceNumber)
	})

	t.Run("subtotal from line items", func(t *testing.T) {
		inv, err := env.invoices.Create(ctx, &domain.CreateInvoiceRequest{
			ClientID:      client.ID,
			InvoiceNumber: "MANUAL-1",
			LineItems: []domain.InvoiceLineItem{
				{Description: "Hosting", Amount: 20, Quantity: 3},
				{Description: "Setup", Amount: 40},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 100.0, inv.Subtotal)
		assert.Equal(t, 100.0, inv.AmountDue)
	})

	t.Run("duplicate number", func(t *testing.T) {
		_, err := env.invoices.Create(ctx, &domain.CreateInvoiceRequest{ClientID: client.ID, InvoiceNumber: "MANUAL-1", Subtotal: 1})
		assert.ErrorIs(t, err, service.ErrDuplicateInvoice)
	})

	t.Run("deal of another client", func(t *testing.T) {
		_, err := env.invoices.Create(ctx, &domain.CreateInvoiceRequest{ClientID: other.ID, DealID: &deal.ID, Subtotal: 1})
		assert.ErrorIs(t, err, service.ErrDealClientMismatch)
	})

	t.Run("overpayment", func(t *testing.T) {
		_, err := env.invoices.Create(ctx, &domain.CreateInvoiceRequest{ClientID: client.ID, Subtotal: 100, AmountPaid: 150})
		assert.ErrorIs(t, err, service.ErrPaymentExceedsDue)
	})

	t.Run("fully paid on creation", func(t *testing.T) {
		inv, err := env.invoices.Create(ctx, &domain.CreateInvoiceRequest{ClientID: client.ID, Subtotal: 100, AmountPaid: 100})
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusPaid, inv.Status)
		assert.NotNil(t, inv.PaidAt)
	})
}

func TestInvoiceService_RecordPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	inv := testutil.CreateTestInvoice(t, env.db, client.ID, nil, "INV-1", 500, 0)

	t.Run("partial payment", func(t *testing.T) {
		got, err := env.invoices.RecordPayment(ctx, inv.ID, 200)
		require.NoError(t, err)
		assert.Equal(t, 200.0, got.AmountPaid)
		assert.Equal(t, 300.0, got.AmountDue)
		assert.Equal(t, domain.InvoiceStatusOpen, got.Status)
	})

	t.Run("payment above due", func(t *testing.T) {
		_, err := env.invoices.RecordPayment(ctx, inv.ID, 300.01)
		assert.ErrorIs(t, err, service.ErrPaymentExceedsDue)
	})

	t.Run("non positive payment", func(t *testing.T) {
		_, err := env.invoices.RecordPayment(ctx, inv.ID, 0)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("final payment marks paid", func(t *testing.T) {
		got, err := env.invoices.RecordPayment(ctx, inv.ID, 300)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.AmountDue)
		assert.Equal(t, domain.InvoiceStatusPaid, got.Status)
		assert.NotNil(t, got.PaidAt)
		assert.Equal(t, 2, env.activityCount(t, domain.ActivityEntityInvoice, inv.ID))
	})

	t.Run("paid invoice cannot be voided", func(t *testing.T) {
		_, err := env.invoices.Void(ctx, inv.ID)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestInvoiceService_Void(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	inv := testutil.CreateTestInvoice(t, env.db, client.ID, nil, "INV-1", 500, 0)

	got, err := env.invoices.Void(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusVoid, got.Status)

	_, err = env.invoices.Void(ctx, inv.ID)
	assert.ErrorIs(t, err, service.ErrInvoiceVoid)

	_, err = env.invoices.RecordPayment(ctx, inv.ID, 10)
	assert.ErrorIs(t, err, service.ErrInvoiceVoid)

	_, err = env.invoices.GetByID(ctx, 999)
	assert.ErrorIs(t, err, service.ErrInvoiceNotFound)
}

func TestBillingService_DealSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	deal := testutil.CreateTestDeal(t, env.db, client.ID, "Support", testutil.Float64Ptr(100))

	testutil.CreateTestInvoice(t, env.db, client.ID, &deal.ID, "INV-1", 1000, 1000)
	testutil.CreateTestInvoice(t, env.db, client.ID, &deal.ID, "INV-2", 500, 100)
	testutil.CreateTestInvoice(t, env.db, client.ID, nil, "INV-3", 9999, 0)

	testutil.CreateTestTicket(t, env.db, func(tk *domain.SupportTicket) {
		tk.ClientID = &client.ID
		tk.DealID = &deal.ID
		tk.Status = domain.TicketStatusResolved
		tk.TimeSpent = 3
	})
	testutil.CreateTestTicket(t, env.db, func(tk *domain.SupportTicket) {
		tk.ClientID = &client.ID
		tk.DealID = &deal.ID
		tk.TimeSpent = 5
	})

	summary, err := env.billing.DealSummary(ctx, deal.ID)
	require.NoError(t, err)

	require.NotNil(t, summary.Client)
	assert.Equal(t, client.ID, summary.Client.ID)
	assert.Len(t, summary.Invoices, 2)
	assert.Len(t, summary.Transactions, 2)
	assert.Equal(t, 1500.0, summary.Summary.TotalInvoiced)
	assert.Equal(t, 1100.0, summary.Summary.TotalPaid)
	assert.Equal(t, 400.0, summary.Summary.TotalOutstanding)
	assert.Equal(t, 400.0, summary.Summary.CurrentBalance)

	assert.Equal(t, 1, summary.UnbilledWork.TicketCount)
	assert.Equal(t, 300.0, summary.UnbilledWork.TotalAmount)
	assert.Len(t, summary.Tickets, 1)

	_, err = env.billing.DealSummary(ctx, 999)
	assert.ErrorIs(t, err, service.ErrDealNotFound)
}

func TestBillingService_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()

	big := testutil.CreateTestClient(t, env.db, "Big", "big@example.test")
	small := testutil.CreateTestClient(t, env.db, "Small", "small@example.test")
	testutil.CreateTestClient(t, env.db, "Idle", "idle@example.test")

	testutil.CreateTestInvoice(t, env.db, big.ID, nil, "INV-1", 1000, 200)
	void := testutil.CreateTestInvoice(t, env.db, big.ID, nil, "INV-2", 300, 0)
	require.NoError(t, env.db.Model(void).Update("status", domain.InvoiceStatusVoid).Error)

	testutil.CreateTestTicket(t, env.db, func(tk *domain.SupportTicket) {
		tk.ClientID = &small.ID
		tk.ReadyToBill = true
		tk.TimeSpent = 2
	})
	testutil.CreateTestTicket(t, env.db, func(tk *domain.SupportTicket) {
		tk.TimeSpent = 10
		tk.Status = domain.TicketStatusResolved
	})

	dashboard, err := env.billing.Dashboard(ctx)
	require.NoError(t, err)

	require.Len(t, dashboard.Clients, 2)

	first := dashboard.Clients[0]
	assert.Equal(t, big.ID, first.ClientID)
	assert.Equal(t, "Big", first.ClientName)
	assert.Equal(t, 1300.0, first.TotalBilled)
	assert.Equal(t, 200.0, first.TotalPaid)
	assert.Equal(t, 800.0, first.Balance)
	assert.Equal(t, 800.0, first.NextCharge)
	assert.Equal(t, 2, first.InvoiceCount)
	assert.NotNil(t, first.LastInvoiceDate)

	second := dashboard.Clients[1]
	assert.Equal(t, small.ID, second.ClientID)
	assert.Equal(t, 130.0, second.UnbilledWork)
	assert.Equal(t, 130.0, second.NextCharge)
	assert.Nil(t, second.LastInvoiceDate)

	assert.Equal(t, 800.0, dashboard.TotalOutstanding)
	assert.Equal(t, 130.0, dashboard.TotalUnbilledWork)
	assert.Equal(t, 200.0, dashboard.TotalPaid)
}

func TestNumberSequenceService_SkipsManualNumbers(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminContext()
	now := time.Now().UTC()
	numbers := service.NewNumberSequenceService(
		repository.NewNumberSequenceRepository(env.db),
		repository.NewInvoiceRepository(env.db),
		zap.NewNop(),
	)

	client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	manual := service.InvoicePrefix(now) + "0001"
	_, err := env.invoices.Create(ctx, &domain.CreateInvoiceRequest{ClientID: client.ID, InvoiceNumber: manual, Subtotal: 5})
	require.NoError(t, err)

	current, err := numbers.GetCurrentSequence(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, current)

	number, err := numbers.GenerateInvoiceNumber(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, service.InvoicePrefix(now)+"0002", number)

	current, err = numbers.GetCurrentSequence(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, current)

	lastYear, err := numbers.GetCurrentSequence(ctx, now.AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, lastYear)
}
