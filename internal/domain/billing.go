package domain

import (
	"math"
	"sort"
	"time"
)

// DefaultHourlyRate is used when neither the ticket nor its deal carries a rate
const DefaultHourlyRate = 65.0

// EffectiveHourlyRate resolves the rate used to bill a ticket.
// Resolution order: ticket override, then deal rate, then DefaultHourlyRate.
func EffectiveHourlyRate(ticketRate, dealRate *float64) float64 {
	if ticketRate != nil {
		return *ticketRate
	}
	if dealRate != nil {
		return *dealRate
	}
	return DefaultHourlyRate
}

// CalculateBillableAmount multiplies hours by rate, rounded to cents
func CalculateBillableAmount(timeSpent, rate float64) float64 {
	return RoundCurrency(timeSpent * rate)
}

// RoundCurrency rounds a monetary amount to two decimals
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}

// IsUnbilled reports whether a ticket counts as unbilled work.
// A ticket is billable once resolved or flagged readyToBill, and stays
// unbilled until billedAt is stamped by the mark-billed operation.
func (t *SupportTicket) IsUnbilled() bool {
	return (t.Status == TicketStatusResolved || t.ReadyToBill) && t.BilledAt == nil
}

// IsBilled reports whether the ticket reached its terminal billed state
func (t *SupportTicket) IsBilled() bool {
	return t.Status == TicketStatusBilled || t.BilledAt != nil
}

// UnbilledWork aggregates billable but not yet invoiced tickets
type UnbilledWork struct {
	TicketCount int     `json:"ticketCount"`
	TotalHours  float64 `json:"totalHours"`
	TotalAmount float64 `json:"totalAmount"`
}

// SummarizeUnbilledWork totals unbilled tickets. dealRate returns the hourly
// rate of the ticket's deal, or nil when the ticket has no deal or the deal has no rate.
func SummarizeUnbilledWork(tickets []SupportTicket, dealRate func(t *SupportTicket) *float64) UnbilledWork {
	var work UnbilledWork
	for i := range tickets {
		t := &tickets[i]
		if !t.IsUnbilled() {
			continue
		}
		var dr *float64
		if dealRate != nil {
			dr = dealRate(t)
		}
		work.TicketCount++
		work.TotalHours += t.TimeSpent
		work.TotalAmount += t.TimeSpent * EffectiveHourlyRate(t.HourlyRate, dr)
	}
	work.TotalHours = RoundCurrency(work.TotalHours)
	work.TotalAmount = RoundCurrency(work.TotalAmount)
	return work
}

// InvoiceSummary aggregates the invoices of a deal or client
type InvoiceSummary struct {
	TotalInvoiced    float64 `json:"totalInvoiced"`
	TotalPaid        float64 `json:"totalPaid"`
	TotalOutstanding float64 `json:"totalOutstanding"`
	InvoiceCount     int     `json:"invoiceCount"`
}

// SummarizeInvoices sums totals, payments and amounts due
func SummarizeInvoices(invoices []Invoice) InvoiceSummary {
	var s InvoiceSummary
	for _, inv := range invoices {
		s.TotalInvoiced += inv.Total
		s.TotalPaid += inv.AmountPaid
		s.TotalOutstanding += inv.AmountDue
	}
	s.InvoiceCount = len(invoices)
	s.TotalInvoiced = RoundCurrency(s.TotalInvoiced)
	s.TotalPaid = RoundCurrency(s.TotalPaid)
	s.TotalOutstanding = RoundCurrency(s.TotalOutstanding)
	return s
}

// LedgerEntry is one invoice line in a running-balance ledger
type LedgerEntry struct {
	Date           time.Time     `json:"date"`
	InvoiceID      uint          `json:"invoiceId"`
	InvoiceNumber  string        `json:"invoiceNumber"`
	Description    string        `json:"description"`
	Amount         float64       `json:"amount"`
	AmountPaid     float64       `json:"amountPaid"`
	Status         InvoiceStatus `json:"status"`
	RunningBalance float64       `json:"runningBalance"`
}

// BuildLedger orders invoices by creation date and accumulates the unpaid balance
func BuildLedger(invoices []Invoice) []LedgerEntry {
	sorted := make([]Invoice, len(invoices))
	copy(sorted, invoices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	entries := make([]LedgerEntry, 0, len(sorted))
	balance := 0.0
	for _, inv := range sorted {
		balance += inv.Total - inv.AmountPaid
		desc := inv.Description
		if desc == "" {
			desc = "Invoice " + inv.InvoiceNumber
		}
		entries = append(entries, LedgerEntry{
			Date:           inv.CreatedAt,
			InvoiceID:      inv.ID,
			InvoiceNumber:  inv.InvoiceNumber,
			Description:    desc,
			Amount:         inv.Total,
			AmountPaid:     inv.AmountPaid,
			Status:         inv.Status,
			RunningBalance: RoundCurrency(balance),
		})
	}
	return entries
}

// OutstandingBalance sums amountDue over invoices that can still be collected
func OutstandingBalance(invoices []Invoice) float64 {
	total := 0.0
	for _, inv := range invoices {
		if inv.Status == InvoiceStatusVoid || inv.Status == InvoiceStatusPaid {
			continue
		}
		total += inv.AmountDue
	}
	return RoundCurrency(total)
}

// ApplyTotals derives subtotal (from line items when unset), total and amount due
func (inv *Invoice) ApplyTotals() {
	if inv.Subtotal == 0 && len(inv.LineItems) > 0 {
		for _, li := range inv.LineItems {
			qty := li.Quantity
			if qty == 0 {
				qty = 1
			}
			inv.Subtotal += li.Amount * qty
		}
	}
	inv.Subtotal = RoundCurrency(inv.Subtotal)
	inv.Total = RoundCurrency(inv.Subtotal + inv.Tax)
	inv.AmountDue = RoundCurrency(inv.Total - inv.AmountPaid)
	if inv.AmountDue < 0 {
		inv.AmountDue = 0
	}
}
