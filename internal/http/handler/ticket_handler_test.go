package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketHandler_MarkBilled(t *testing.T) {
	env := newHandlerEnv(t)
	client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	deal := testutil.CreateTestDeal(t, env.db, client.ID, "Retainer", testutil.Float64Ptr(100))
	ready := testutil.CreateTestTicket(t, env.db, func(tk *domain.SupportTicket) {
		tk.DealID = &deal.ID
		tk.Status = domain.TicketStatusResolved
		tk.TimeSpent = 2
		tk.BillableAmount = 200
		tk.ReadyToBill = true
	})

	markBilled := func(body interface{}) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		env.tickets.MarkBilled(rr, newRequest(t, http.MethodPost, "/tickets/mark-billed", body, nil))
		return rr
	}

	t.Run("requires ticket ids", func(t *testing.T) {
		rr := markBilled(domain.MarkBilledRequest{})

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, domain.ErrorTypeValidation, decodeAPIError(t, rr).Type)
	})

	t.Run("bills once and skips on repeat", func(t *testing.T) {
		rr := markBilled(domain.MarkBilledRequest{TicketIDs: []uint{ready.ID}})
		require.Equal(t, http.StatusOK, rr.Code)
		var result domain.MarkBilledResultDTO
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Billed)
		assert.Empty(t, result.Skipped)
		require.Len(t, result.Tickets, 1)
		assert.Equal(t, domain.TicketStatusBilled, result.Tickets[0].Status)
		assert.NotNil(t, result.Tickets[0].BilledAt)

		rr = markBilled(domain.MarkBilledRequest{TicketIDs: []uint{ready.ID}})
		require.Equal(t, http.StatusOK, rr.Code)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, 0, result.Billed)
		assert.Equal(t, []uint{ready.ID}, result.Skipped)
	})

	t.Run("unknown invoice id is stored as given", func(t *testing.T) {
		pending := testutil.CreateTestTicket(t, env.db, func(tk *domain.SupportTicket) {
			tk.DealID = &deal.ID
			tk.Status = domain.TicketStatusResolved
		})
		invoiceID := uint(404)
		rr := markBilled(domain.MarkBilledRequest{TicketIDs: []uint{pending.ID}, InvoiceID: &invoiceID})

		require.Equal(t, http.StatusOK, rr.Code)
		var result domain.MarkBilledResultDTO
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Billed)
		require.Len(t, result.Tickets, 1)
		require.NotNil(t, result.Tickets[0].InvoiceID)
		assert.Equal(t, invoiceID, *result.Tickets[0].InvoiceID)
	})
}
