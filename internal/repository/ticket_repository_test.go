package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticketTitles(tickets []domain.SupportTicket) []string {
	titles := make([]string, len(tickets))
	for i, tk := range tickets {
		titles[i] = tk.Title
	}
	return titles
}

func TestTicketRepository_ListUnbilled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTicketRepository(db)
	ctx := context.Background()

	client := testutil.CreateTestClient(t, db, "Acme", "ops@acme.test")
	other := testutil.CreateTestClient(t, db, "Other", "other@example.test")
	deal := testutil.CreateTestDeal(t, db, client.ID, "Support", testutil.Float64Ptr(100))
	billedAt := time.Now().UTC()

	ticket := func(title string, fn func(*domain.SupportTicket)) {
		testutil.CreateTestTicket(t, db, func(tk *domain.SupportTicket) {
			tk.Title = title
			tk.ClientID = &client.ID
			tk.DealID = &deal.ID
			fn(tk)
		})
	}
	ticket("resolved", func(tk *domain.SupportTicket) { tk.Status = domain.TicketStatusResolved })
	ticket("ready", func(tk *domain.SupportTicket) { tk.ReadyToBill = true })
	ticket("pending", func(tk *domain.SupportTicket) {})
	ticket("billed", func(tk *domain.SupportTicket) {
		tk.Status = domain.TicketStatusBilled
		tk.ReadyToBill = true
		tk.BilledAt = &billedAt
	})
	ticket("other client", func(tk *domain.SupportTicket) {
		tk.ClientID = &other.ID
		tk.DealID = nil
		tk.Status = domain.TicketStatusResolved
	})

	t.Run("all", func(t *testing.T) {
		tickets, err := repo.ListUnbilled(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"resolved", "ready", "other client"}, ticketTitles(tickets))
	})

	t.Run("by deal preloads the deal", func(t *testing.T) {
		tickets, err := repo.ListUnbilled(ctx, nil, &deal.ID)
		require.NoError(t, err)
		require.Len(t, tickets, 2)
		for _, tk := range tickets {
			require.NotNil(t, tk.Deal)
			assert.Equal(t, deal.ID, tk.Deal.ID)
		}
	})

	t.Run("by client", func(t *testing.T) {
		tickets, err := repo.ListUnbilled(ctx, &other.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"other client"}, ticketTitles(tickets))
	})
}

func TestTicketRepository_MarkBilled_IsConditional(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTicketRepository(db)
	ctx := context.Background()

	tk := testutil.CreateTestTicket(t, db, func(tk *domain.SupportTicket) {
		tk.Status = domain.TicketStatusResolved
	})
	invoiceID := uint(7)

	billed, err := repo.MarkBilled(ctx, []uint{tk.ID}, &invoiceID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, []uint{tk.ID}, billed)

	billed, err = repo.MarkBilled(ctx, []uint{tk.ID}, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, billed)

	stored, err := repo.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.InvoiceID)
	assert.Equal(t, invoiceID, *stored.InvoiceID, "a second run does not clear the invoice")
}

func TestTicketRepository_Create_DuplicateExternalID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTicketRepository(db)
	ctx := context.Background()

	newTicket := func(source string, externalID *string) *domain.SupportTicket {
		return &domain.SupportTicket{
			ApplicationSource: source,
			ExternalTicketID:  externalID,
			Title:             "Report broken",
			Description:       "The weekly report is empty",
			Priority:          domain.PriorityMedium,
			Status:            domain.TicketStatusPending,
		}
	}
	id := "EXT-1"

	require.NoError(t, repo.Create(ctx, newTicket("portal", &id)))

	err := repo.Create(ctx, newTicket("portal", &id))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	assert.NoError(t, repo.Create(ctx, newTicket("kiosk", &id)), "ids are scoped to the source")
	assert.NoError(t, repo.Create(ctx, newTicket("portal", nil)))
	assert.NoError(t, repo.Create(ctx, newTicket("portal", nil)), "direct tickets carry no external id")
}
