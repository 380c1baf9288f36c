package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestEffectiveHourlyRate(t *testing.T) {
	tests := []struct {
		name       string
		ticketRate *float64
		dealRate   *float64
		want       float64
	}{
		{"ticket override wins", ptr(50), ptr(100), 50},
		{"deal rate when no override", nil, ptr(100), 100},
		{"default when neither", nil, nil, DefaultHourlyRate},
		{"zero override is still an override", ptr(0), ptr(100), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveHourlyRate(tt.ticketRate, tt.dealRate))
		})
	}
}

func TestCalculateBillableAmount(t *testing.T) {
	assert.Equal(t, 200.0, CalculateBillableAmount(2, 100))
	assert.Equal(t, 50.0, CalculateBillableAmount(1, 50))
	assert.Equal(t, 0.0, CalculateBillableAmount(0, 999))
	assert.Equal(t, 16.25, CalculateBillableAmount(0.25, 65))
}

func TestSupportTicket_IsUnbilled(t *testing.T) {
	now := time.Now()

	assert.True(t, (&SupportTicket{Status: TicketStatusResolved}).IsUnbilled())
	assert.True(t, (&SupportTicket{Status: TicketStatusPending, ReadyToBill: true}).IsUnbilled())
	assert.False(t, (&SupportTicket{Status: TicketStatusInProgress}).IsUnbilled())
	assert.False(t, (&SupportTicket{Status: TicketStatusResolved, BilledAt: &now}).IsUnbilled())
	// billedAt is the single source of truth for "already billed"
	assert.True(t, (&SupportTicket{Status: TicketStatusBilled, ReadyToBill: true}).IsUnbilled())
}

func TestSummarizeUnbilledWork(t *testing.T) {
	now := time.Now()
	dealID := uint(1)
	tickets := []SupportTicket{
		{DealID: &dealID, Status: TicketStatusResolved, TimeSpent: 2},
		{DealID: &dealID, Status: TicketStatusPending, ReadyToBill: true, TimeSpent: 1, HourlyRate: ptr(50)},
		{DealID: &dealID, Status: TicketStatusResolved, TimeSpent: 3, BilledAt: &now},
		{DealID: &dealID, Status: TicketStatusInProgress, TimeSpent: 5},
		{Status: TicketStatusResolved, TimeSpent: 1},
	}

	work := SummarizeUnbilledWork(tickets, func(t *SupportTicket) *float64 {
		if t.DealID != nil {
			return ptr(100)
		}
		return nil
	})

	assert.Equal(t, 3, work.TicketCount)
	assert.Equal(t, 4.0, work.TotalHours)
	assert.Equal(t, 200.0+50.0+65.0, work.TotalAmount)
}

func TestSummarizeUnbilledWork_ZeroTimeContributesNothing(t *testing.T) {
	tickets := []SupportTicket{{Status: TicketStatusResolved, TimeSpent: 0, HourlyRate: ptr(500)}}

	work := SummarizeUnbilledWork(tickets, nil)

	assert.Equal(t, 1, work.TicketCount)
	assert.Equal(t, 0.0, work.TotalAmount)
}

func TestSummarizeInvoices(t *testing.T) {
	invoices := []Invoice{
		{Total: 1000, AmountPaid: 400, AmountDue: 600, Status: InvoiceStatusOpen},
		{Total: 250.5, AmountPaid: 250.5, AmountDue: 0, Status: InvoiceStatusPaid},
	}

	s := SummarizeInvoices(invoices)

	assert.Equal(t, 1250.5, s.TotalInvoiced)
	assert.Equal(t, 650.5, s.TotalPaid)
	assert.Equal(t, 600.0, s.TotalOutstanding)
	assert.Equal(t, 2, s.InvoiceCount)
}

func TestBuildLedger_RunningBalance(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	invoices := []Invoice{
		{BaseModel: BaseModel{ID: 2, CreatedAt: base.Add(48 * time.Hour)}, InvoiceNumber: "INV-2", Total: 300, AmountPaid: 100},
		{BaseModel: BaseModel{ID: 1, CreatedAt: base}, InvoiceNumber: "INV-1", Total: 500, AmountPaid: 500},
	}

	ledger := BuildLedger(invoices)

	assert.Len(t, ledger, 2)
	assert.Equal(t, uint(1), ledger[0].InvoiceID)
	assert.Equal(t, 0.0, ledger[0].RunningBalance)
	assert.Equal(t, "Invoice INV-1", ledger[0].Description)
	assert.Equal(t, 200.0, ledger[1].RunningBalance)
}

func TestOutstandingBalance_SkipsPaidAndVoid(t *testing.T) {
	invoices := []Invoice{
		{AmountDue: 100, Status: InvoiceStatusOpen},
		{AmountDue: 50, Status: InvoiceStatusVoid},
		{AmountDue: 0, Status: InvoiceStatusPaid},
		{AmountDue: 25, Status: InvoiceStatusUncollectible},
	}

	assert.Equal(t, 125.0, OutstandingBalance(invoices))
}

func TestInvoice_ApplyTotals(t *testing.T) {
	inv := &Invoice{
		Tax:        20,
		AmountPaid: 50,
		LineItems: []InvoiceLineItem{
			{Description: "Consulting", Amount: 100, Quantity: 1},
			{Description: "Support", Amount: 40, Quantity: 2},
		},
	}

	inv.ApplyTotals()

	assert.Equal(t, 180.0, inv.Subtotal)
	assert.Equal(t, 200.0, inv.Total)
	assert.Equal(t, 150.0, inv.AmountDue)
}
