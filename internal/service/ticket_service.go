package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/lock"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// markBilledLockKey serializes bulk billing across API instances
const markBilledLockKey = "tickets:mark-billed"

// TicketListParams are the query options accepted by TicketService.List
type TicketListParams struct {
	Status            string
	ClientID          *uint
	DealID            *uint
	Priority          string
	ApplicationSource string
	ReadyToBill       *bool
	Search            string
	SortBy            string
	SortOrder         string
	Page              int
	PageSize          int
}

type TicketService struct {
	ticketRepo  *repository.TicketRepository
	clientRepo  *repository.ClientRepository
	dealRepo    *repository.DealRepository
	invoiceRepo *repository.InvoiceRepository
	locker      lock.Locker
	activity    *ActivityService
	logger      *zap.Logger
}

func NewTicketService(
	ticketRepo *repository.TicketRepository,
	clientRepo *repository.ClientRepository,
	dealRepo *repository.DealRepository,
	invoiceRepo *repository.InvoiceRepository,
	locker lock.Locker,
	activity *ActivityService,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		ticketRepo:  ticketRepo,
		clientRepo:  clientRepo,
		dealRepo:    dealRepo,
		invoiceRepo: invoiceRepo,
		locker:      locker,
		activity:    activity,
		logger:      logger,
	}
}

// List returns a page of tickets plus per-status counts under the same filters
func (s *TicketService) List(ctx context.Context, params TicketListParams) (*domain.TicketListResponse, error) {
	page, pageSize := clampPagination(params.Page, params.PageSize)

	filters := &repository.TicketFilters{
		ClientID:          params.ClientID,
		DealID:            params.DealID,
		ApplicationSource: params.ApplicationSource,
		ReadyToBill:       params.ReadyToBill,
		Search:            strings.TrimSpace(params.Search),
	}
	if params.Status != "" && params.Status != "all" {
		status := domain.TicketStatus(params.Status)
		filters.Status = &status
	}
	if params.Priority != "" && params.Priority != "all" {
		priority := domain.Priority(params.Priority)
		filters.Priority = &priority
	}

	sort := repository.DefaultSortConfig()
	if params.SortBy != "" {
		sort.Field = params.SortBy
	}
	if params.SortOrder != "" {
		sort.Order = repository.ParseSortOrder(params.SortOrder)
	}

	tickets, total, err := s.ticketRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	counts, err := s.ticketRepo.CountByStatus(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets by status: %w", err)
	}

	return &domain.TicketListResponse{
		PaginatedResponse: *paginatedResponse(mapper.ToTicketDTOs(tickets), total, page, pageSize),
		StatusCounts:      counts,
	}, nil
}

func (s *TicketService) GetByID(ctx context.Context, id uint) (*domain.TicketDTO, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapper.FormatError("ticket", "get", notFound(err, ErrTicketNotFound))
	}
	dto := mapper.ToTicketDTO(ticket)
	return &dto, nil
}

// Create logs a ticket directly in the CRM. The billable amount is computed
// from the ticket rate, then the deal rate, then the default rate.
func (s *TicketService) Create(ctx context.Context, req *domain.CreateTicketRequest) (*domain.TicketDTO, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrBlankTitle
	}
	client, deal, err := s.resolveLinks(ctx, req.ClientID, req.DealID)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.TicketStatusPending
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	ticket := &domain.SupportTicket{
		ApplicationSource: domain.ApplicationSourceDirect,
		SubmitterEmail:    strings.TrimSpace(req.SubmitterEmail),
		SubmitterName:     req.SubmitterName,
		Title:             strings.TrimSpace(req.Title),
		Description:       req.Description,
		ScreenshotURL:     optionalString(req.ScreenshotURL),
		Page:              optionalString(req.Page),
		Priority:          priority,
		Status:            status,
		TimeSpent:         req.TimeSpent,
		HourlyRate:        req.HourlyRate,
		ReadyToBill:       req.ReadyToBill,
	}
	if client != nil {
		ticket.ClientID = &client.ID
		ticket.Client = client
	}
	if deal != nil {
		ticket.DealID = &deal.ID
		ticket.Deal = deal
	}
	if status == domain.TicketStatusResolved {
		now := time.Now().UTC()
		ticket.ResolvedAt = &now
	}
	ticket.BillableAmount = billableAmount(ticket)

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.activity.Log(ctx, domain.ActivityEntityTicket, ticket.ID, domain.ActivityActionCreated, map[string]interface{}{
		"title":          ticket.Title,
		"billableAmount": ticket.BillableAmount,
	})

	dto := mapper.ToTicketDTO(ticket)
	return &dto, nil
}

// Update applies a partial patch. Billed tickets are immutable and the billed
// status can only be reached through MarkBilled.
func (s *TicketService) Update(ctx context.Context, id uint, req *domain.UpdateTicketRequest) (*domain.TicketDTO, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	if ticket.IsBilled() {
		return nil, ErrTicketImmutable
	}
	if req.Status != nil && *req.Status == domain.TicketStatusBilled {
		return nil, ErrBillViaMarkBilled
	}

	oldStatus := ticket.Status
	recompute := false

	if req.ClientID != nil || req.DealID != nil {
		clientID := ticket.ClientID
		if req.ClientID != nil {
			clientID = req.ClientID
		}
		dealID := ticket.DealID
		if req.DealID != nil {
			dealID = req.DealID
			recompute = true
		}
		client, deal, err := s.resolveLinks(ctx, clientID, dealID)
		if err != nil {
			return nil, err
		}
		ticket.ClientID, ticket.Client = nil, nil
		if client != nil {
			ticket.ClientID, ticket.Client = &client.ID, client
		}
		ticket.DealID, ticket.Deal = nil, nil
		if deal != nil {
			ticket.DealID, ticket.Deal = &deal.ID, deal
		}
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrBlankTitle
		}
		ticket.Title = title
	}
	if req.Description != nil {
		ticket.Description = *req.Description
	}
	if req.Resolution != nil {
		ticket.Resolution = optionalString(*req.Resolution)
	}
	if req.Priority != nil {
		ticket.Priority = *req.Priority
	}
	if req.TimeSpent != nil {
		ticket.TimeSpent = *req.TimeSpent
		recompute = true
	}
	if req.HourlyRate != nil {
		ticket.HourlyRate = req.HourlyRate
		recompute = true
	}
	if req.ReadyToBill != nil {
		ticket.ReadyToBill = *req.ReadyToBill
	}
	if req.Status != nil {
		ticket.Status = *req.Status
		if ticket.Status == domain.TicketStatusResolved && oldStatus != domain.TicketStatusResolved {
			now := time.Now().UTC()
			ticket.ResolvedAt = &now
		}
	}

	if recompute {
		ticket.BillableAmount = billableAmount(ticket)
	}

	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}

	if ticket.Status != oldStatus {
		s.activity.Log(ctx, domain.ActivityEntityTicket, ticket.ID, domain.ActivityActionStatusChanged, map[string]interface{}{
			"from": oldStatus,
			"to":   ticket.Status,
		})
	} else {
		s.activity.Log(ctx, domain.ActivityEntityTicket, ticket.ID, domain.ActivityActionUpdated, nil)
	}

	dto := mapper.ToTicketDTO(ticket)
	return &dto, nil
}

// Delete removes a ticket that has not been billed
func (s *TicketService) Delete(ctx context.Context, id uint) error {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrTicketNotFound)
	}
	if ticket.IsBilled() {
		return ErrTicketBilled
	}
	if err := s.ticketRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	s.activity.Log(ctx, domain.ActivityEntityTicket, id, domain.ActivityActionDeleted, map[string]interface{}{
		"title": ticket.Title,
	})
	return nil
}

// Billable returns unbilled work, optionally scoped to a client or deal
func (s *TicketService) Billable(ctx context.Context, clientID, dealID *uint) ([]domain.TicketDTO, error) {
	tickets, err := s.ticketRepo.ListUnbilled(ctx, clientID, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list billable tickets: %w", err)
	}
	return mapper.ToTicketDTOs(tickets), nil
}

// MarkBilled bills every listed ticket whose billedAt is still unset. Tickets
// that were already billed, or do not exist, are reported as skipped. The
// invoice id is stored as given even when no such invoice exists.
func (s *TicketService) MarkBilled(ctx context.Context, req *domain.MarkBilledRequest) (*domain.MarkBilledResultDTO, error) {
	ids := uniqueIDs(req.TicketIDs)
	if len(ids) == 0 {
		return nil, ErrNoTicketsSelected
	}
	if req.InvoiceID != nil {
		// invoice references are loose; an unknown id is kept and only logged
		exists, err := s.invoiceRepo.Exists(ctx, *req.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("failed to check invoice: %w", err)
		}
		if !exists {
			s.logger.Warn("marking tickets billed against unknown invoice",
				zap.Uint("invoice_id", *req.InvoiceID),
				zap.Int("tickets", len(ids)))
		}
	}

	release, err := s.locker.Acquire(ctx, markBilledLockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire billing lock: %w", err)
	}
	defer release()

	billed, err := s.ticketRepo.MarkBilled(ctx, ids, req.InvoiceID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark tickets billed: %w", err)
	}

	billedSet := make(map[uint]bool, len(billed))
	for _, id := range billed {
		billedSet[id] = true
		s.activity.Log(ctx, domain.ActivityEntityTicket, id, domain.ActivityActionBilled, map[string]interface{}{
			"invoiceId": req.InvoiceID,
		})
	}
	skipped := []uint{}
	for _, id := range ids {
		if !billedSet[id] {
			skipped = append(skipped, id)
		}
	}

	tickets, err := s.ticketRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to reload tickets: %w", err)
	}

	s.logger.Info("tickets marked billed",
		zap.Int("billed", len(billed)),
		zap.Int("skipped", len(skipped)))

	return &domain.MarkBilledResultDTO{
		Tickets: mapper.ToTicketDTOs(tickets),
		Billed:  len(billed),
		Skipped: skipped,
	}, nil
}

func (s *TicketService) Stats(ctx context.Context) (*domain.TicketStatsDTO, error) {
	byStatus, err := s.ticketRepo.CountBy(ctx, "status")
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets by status: %w", err)
	}
	byPriority, err := s.ticketRepo.CountBy(ctx, "priority")
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets by priority: %w", err)
	}
	bySource, err := s.ticketRepo.CountBy(ctx, "application_source")
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets by source: %w", err)
	}
	unbilled, err := s.ticketRepo.ListUnbilled(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load unbilled tickets: %w", err)
	}

	var total int64
	for _, n := range byStatus {
		total += n
	}
	work := domain.SummarizeUnbilledWork(unbilled, preloadedDealRate)

	return &domain.TicketStatsDTO{
		Total:               total,
		ByStatus:            byStatus,
		ByPriority:          byPriority,
		ByApplicationSource: bySource,
		TotalUnbilledAmount: work.TotalAmount,
	}, nil
}

// resolveLinks loads the referenced client and deal. A deal without an explicit
// client links the ticket to the deal's primary client.
func (s *TicketService) resolveLinks(ctx context.Context, clientID, dealID *uint) (*domain.Client, *domain.Deal, error) {
	var client *domain.Client
	var deal *domain.Deal

	if dealID != nil {
		d, err := s.dealRepo.GetByID(ctx, *dealID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, nil, fmt.Errorf("%w: deal %d does not exist", ErrInvalidInput, *dealID)
			}
			return nil, nil, fmt.Errorf("failed to load deal: %w", err)
		}
		deal = d
		if clientID == nil {
			client = d.Client
		}
	}
	if clientID != nil {
		c, err := s.clientRepo.GetByID(ctx, *clientID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, nil, fmt.Errorf("%w: client %d does not exist", ErrInvalidInput, *clientID)
			}
			return nil, nil, fmt.Errorf("failed to load client: %w", err)
		}
		client = c
	}
	return client, deal, nil
}

// billableAmount applies the ticket, deal, default rate chain
func billableAmount(t *domain.SupportTicket) float64 {
	return domain.CalculateBillableAmount(t.TimeSpent, domain.EffectiveHourlyRate(t.HourlyRate, preloadedDealRate(t)))
}

func preloadedDealRate(t *domain.SupportTicket) *float64 {
	if t.Deal == nil {
		return nil
	}
	return t.Deal.HourlyRate
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// optionalString trims s and returns nil when nothing is left
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
