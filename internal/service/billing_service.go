package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
)

// BillingService reconciles tickets and invoices per deal and per client
type BillingService struct {
	dealRepo    *repository.DealRepository
	invoiceRepo *repository.InvoiceRepository
	ticketRepo  *repository.TicketRepository
	logger      *zap.Logger
}

func NewBillingService(
	dealRepo *repository.DealRepository,
	invoiceRepo *repository.InvoiceRepository,
	ticketRepo *repository.TicketRepository,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		dealRepo:    dealRepo,
		invoiceRepo: invoiceRepo,
		ticketRepo:  ticketRepo,
		logger:      logger,
	}
}

// DealSummary returns the billing position of a deal. Only invoices scoped to
// the deal count; other invoices of the same client are ignored.
func (s *BillingService) DealSummary(ctx context.Context, dealID uint) (*domain.DealBillingDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, mapper.FormatError("deal billing", "get", notFound(err, ErrDealNotFound))
	}

	invoices, err := s.invoiceRepo.ListByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	tickets, err := s.ticketRepo.ListUnbilled(ctx, nil, &dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unbilled tickets: %w", err)
	}

	ledger := domain.BuildLedger(invoices)
	totals := domain.BillingTotals{InvoiceSummary: domain.SummarizeInvoices(invoices)}
	if len(ledger) > 0 {
		totals.CurrentBalance = ledger[len(ledger)-1].RunningBalance
	}

	result := &domain.DealBillingDTO{
		Deal:         mapper.ToDealDTO(deal),
		Invoices:     mapper.ToInvoiceDTOs(invoices),
		Transactions: ledger,
		Summary:      totals,
		UnbilledWork: domain.SummarizeUnbilledWork(tickets, preloadedDealRate),
		Tickets:      mapper.ToTicketDTOs(tickets),
	}
	if deal.Client != nil {
		client := mapper.ToClientDTO(deal.Client)
		result.Client = &client
	}
	return result, nil
}

// Dashboard groups invoices and unbilled work per client. Only clients with
// at least one invoice or some unbilled work are listed.
func (s *BillingService) Dashboard(ctx context.Context) (*domain.BillingDashboardDTO, error) {
	invoices, err := s.invoiceRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	tickets, err := s.ticketRepo.ListUnbilled(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load unbilled tickets: %w", err)
	}

	type group struct {
		name     string
		invoices []domain.Invoice
		lastAt   *time.Time
		unbilled float64
	}
	groups := make(map[uint]*group)
	get := func(id uint, client *domain.Client) *group {
		g, ok := groups[id]
		if !ok {
			g = &group{}
			groups[id] = g
		}
		if g.name == "" && client != nil {
			g.name = client.Name
		}
		return g
	}

	for _, inv := range invoices {
		g := get(inv.ClientID, inv.Client)
		g.invoices = append(g.invoices, inv)
		created := inv.CreatedAt
		if g.lastAt == nil || created.After(*g.lastAt) {
			g.lastAt = &created
		}
	}
	for i := range tickets {
		t := &tickets[i]
		if t.ClientID == nil {
			continue
		}
		g := get(*t.ClientID, t.Client)
		g.unbilled += t.TimeSpent * domain.EffectiveHourlyRate(t.HourlyRate, preloadedDealRate(t))
	}

	dashboard := &domain.BillingDashboardDTO{Clients: []domain.ClientBillingDTO{}}
	for id, g := range groups {
		summary := domain.SummarizeInvoices(g.invoices)
		unbilled := domain.RoundCurrency(g.unbilled)
		if summary.InvoiceCount == 0 && unbilled <= 0 {
			continue
		}
		balance := domain.OutstandingBalance(g.invoices)

		row := domain.ClientBillingDTO{
			ClientID:     id,
			ClientName:   g.name,
			TotalBilled:  summary.TotalInvoiced,
			TotalPaid:    summary.TotalPaid,
			Balance:      balance,
			UnbilledWork: unbilled,
			NextCharge:   domain.RoundCurrency(balance + unbilled),
			InvoiceCount: summary.InvoiceCount,
		}
		if g.lastAt != nil {
			last := g.lastAt.UTC().Format(time.RFC3339)
			row.LastInvoiceDate = &last
		}
		dashboard.Clients = append(dashboard.Clients, row)

		dashboard.TotalOutstanding += balance
		dashboard.TotalUnbilledWork += unbilled
		dashboard.TotalPaid += summary.TotalPaid
	}

	sort.Slice(dashboard.Clients, func(i, j int) bool {
		if dashboard.Clients[i].NextCharge != dashboard.Clients[j].NextCharge {
			return dashboard.Clients[i].NextCharge > dashboard.Clients[j].NextCharge
		}
		return dashboard.Clients[i].ClientID < dashboard.Clients[j].ClientID
	})
	dashboard.TotalOutstanding = domain.RoundCurrency(dashboard.TotalOutstanding)
	dashboard.TotalUnbilledWork = domain.RoundCurrency(dashboard.TotalUnbilledWork)
	dashboard.TotalPaid = domain.RoundCurrency(dashboard.TotalPaid)

	return dashboard, nil
}
