package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// DealListParams are the query options accepted by DealService.List
type DealListParams struct {
	Search    string
	Stage     string
	ClientID  *uint
	Priority  string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

type DealService struct {
	dealRepo        *repository.DealRepository
	clientRepo      *repository.ClientRepository
	projectRepo     *repository.ProjectRepository
	stakeholderRepo *repository.StakeholderRepository
	interactionRepo *repository.InteractionRepository
	documentRepo    *repository.DocumentRepository
	ticketRepo      *repository.TicketRepository
	invoiceRepo     *repository.InvoiceRepository
	activity        *ActivityService
	logger          *zap.Logger
}

func NewDealService(
	dealRepo *repository.DealRepository,
	clientRepo *repository.ClientRepository,
	projectRepo *repository.ProjectRepository,
	stakeholderRepo *repository.StakeholderRepository,
	interactionRepo *repository.InteractionRepository,
	documentRepo *repository.DocumentRepository,
	ticketRepo *repository.TicketRepository,
	invoiceRepo *repository.InvoiceRepository,
	activity *ActivityService,
	logger *zap.Logger,
) *DealService {
	return &DealService{
		dealRepo:        dealRepo,
		clientRepo:      clientRepo,
		projectRepo:     projectRepo,
		stakeholderRepo: stakeholderRepo,
		interactionRepo: interactionRepo,
		documentRepo:    documentRepo,
		ticketRepo:      ticketRepo,
		invoiceRepo:     invoiceRepo,
		activity:        activity,
		logger:          logger,
	}
}

// List returns a page of deals joined with their primary client and annotated
// with interaction, document and stakeholder counts
func (s *DealService) List(ctx context.Context, params DealListParams) (*domain.PaginatedResponse, error) {
	page, pageSize := clampPagination(params.Page, params.PageSize)

	filters := &repository.DealFilters{
		Search:   strings.TrimSpace(params.Search),
		ClientID: params.ClientID,
	}
	if params.Stage != "" && params.Stage != "all" {
		stage := domain.DealStage(params.Stage)
		filters.Stage = &stage
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

	deals, total, err := s.dealRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	ids := make([]uint, len(deals))
	for i := range deals {
		ids[i] = deals[i].ID
	}
	interactions, err := s.interactionRepo.CountByDeals(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count interactions: %w", err)
	}
	documents, err := s.documentRepo.CountActiveByDeals(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	stakeholders, err := s.stakeholderRepo.CountByDeals(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count stakeholders: %w", err)
	}

	items := make([]domain.DealListItemDTO, len(deals))
	for i := range deals {
		id := deals[i].ID
		items[i] = domain.DealListItemDTO{
			DealDTO:           mapper.ToDealDTO(&deals[i]),
			InteractionsCount: interactions[id],
			DocumentsCount:    documents[id],
			StakeholdersCount: stakeholders[id],
		}
	}

	return paginatedResponse(items, total, page, pageSize), nil
}

// GetByID returns the deal with every related record and its billing position
func (s *DealService) GetByID(ctx context.Context, id uint) (*domain.DealDetailDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapper.FormatError("deal", "get", notFound(err, ErrDealNotFound))
	}

	interactions, err := s.interactionRepo.ListByDeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load interactions: %w", err)
	}
	documents, err := s.documentRepo.ListByEntity(ctx, domain.DocumentEntityDeal, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	projects, err := s.projectRepo.ListByClient(ctx, deal.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	invoices, err := s.invoiceRepo.ListByDeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	tickets, err := s.ticketRepo.ListByDeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	for i := range tickets {
		tickets[i].Deal = deal
	}
	stakeholders, err := s.stakeholderRepo.ListByDeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stakeholders: %w", err)
	}

	detail := &domain.DealDetailDTO{
		DealDTO:      mapper.ToDealDTO(deal),
		Interactions: mapper.ToInteractionDTOs(interactions),
		Documents:    mapper.ToDocumentDTOs(documents),
		Projects:     mapper.ToProjectDTOs(projects),
		Invoices:     mapper.ToInvoiceDTOs(invoices),
		Tickets:      mapper.ToTicketDTOs(tickets),
		Stakeholders: mapper.ToStakeholderDTOs(stakeholders),
		Billing:      domain.SummarizeInvoices(invoices),
		UnbilledWork: domain.SummarizeUnbilledWork(tickets, func(*domain.SupportTicket) *float64 {
			return deal.HourlyRate
		}),
	}
	if deal.Client != nil {
		client := mapper.ToClientDTO(deal.Client)
		detail.Client = &client
	}
	return detail, nil
}

// Create adds a deal for an existing client and advances a lead client to prospect
func (s *DealService) Create(ctx context.Context, req *domain.CreateDealRequest) (*domain.DealDTO, error) {
	client, err := s.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}

	stage := req.Stage
	if stage == "" {
		stage = domain.DealStageProspect
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	ownerID := req.OwnerID
	if ownerID == nil {
		ownerID = auth.UserIDFromContext(ctx)
	}

	deal := &domain.Deal{
		ClientID:          client.ID,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		Value:             domain.RoundCurrency(req.Value),
		Stage:             stage,
		Priority:          priority,
		Probability:       req.Probability,
		HourlyRate:        req.HourlyRate,
		ExpectedCloseDate: req.ExpectedCloseDate,
		OwnerID:           ownerID,
		Source:            req.Source,
		NextSteps:         req.NextSteps,
		Notes:             req.Notes,
		Tags:              datatypes.JSONSlice[string](tags),
	}
	if err := s.dealRepo.Create(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	if client.Status == domain.ClientStatusLead {
		if err := s.clientRepo.UpdateStatus(ctx, client.ID, domain.ClientStatusProspect); err != nil {
			s.logger.Warn("failed to advance client to prospect",
				zap.Uint("client_id", client.ID),
				zap.Error(err))
		} else {
			s.activity.Log(ctx, domain.ActivityEntityClient, client.ID, domain.ActivityActionStatusChanged, map[string]interface{}{
				"from": client.Status,
				"to":   domain.ClientStatusProspect,
			})
			client.Status = domain.ClientStatusProspect
		}
	}

	s.activity.Log(ctx, domain.ActivityEntityDeal, deal.ID, domain.ActivityActionCreated, map[string]interface{}{
		"name":     deal.Name,
		"clientId": client.ID,
		"value":    deal.Value,
	})

	deal.Client = client
	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// Update applies a partial patch. A changed hourly rate is pushed into the
// stored billable amount of unbilled tickets that inherit it.
func (s *DealService) Update(ctx context.Context, id uint, req *domain.UpdateDealRequest) (*domain.DealDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrDealNotFound)
	}
	oldStage := deal.Stage
	oldRate := deal.HourlyRate

	if req.Name != nil {
		deal.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		deal.Description = *req.Description
	}
	if req.Value != nil {
		deal.Value = domain.RoundCurrency(*req.Value)
	}
	if req.Stage != nil {
		deal.Stage = *req.Stage
	}
	if req.Priority != nil {
		deal.Priority = *req.Priority
	}
	if req.Probability != nil {
		deal.Probability = *req.Probability
	}
	if req.HourlyRate != nil {
		deal.HourlyRate = req.HourlyRate
	}
	if req.ExpectedCloseDate != nil {
		deal.ExpectedCloseDate = req.ExpectedCloseDate
	}
	if req.ActualCloseDate != nil {
		deal.ActualCloseDate = req.ActualCloseDate
	}
	if req.OwnerID != nil {
		deal.OwnerID = req.OwnerID
	}
	if req.Source != nil {
		deal.Source = *req.Source
	}
	if req.NextSteps != nil {
		deal.NextSteps = *req.NextSteps
	}
	if req.Notes != nil {
		deal.Notes = *req.Notes
	}
	if req.Tags != nil {
		deal.Tags = datatypes.JSONSlice[string](req.Tags)
	}

	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to update deal: %w", err)
	}

	if !sameRate(oldRate, deal.HourlyRate) {
		if err := s.refreshTicketAmounts(ctx, deal); err != nil {
			return nil, fmt.Errorf("failed to refresh ticket amounts: %w", err)
		}
	}

	if deal.Stage != oldStage {
		s.activity.Log(ctx, domain.ActivityEntityDeal, deal.ID, domain.ActivityActionStatusChanged, map[string]interface{}{
			"from": oldStage,
			"to":   deal.Stage,
		})
	} else {
		s.activity.Log(ctx, domain.ActivityEntityDeal, deal.ID, domain.ActivityActionUpdated, nil)
	}

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// refreshTicketAmounts recomputes billableAmount for unbilled tickets of the
// deal that carry no rate of their own
func (s *DealService) refreshTicketAmounts(ctx context.Context, deal *domain.Deal) error {
	tickets, err := s.ticketRepo.ListRateInheriting(ctx, deal.ID)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return nil
	}

	rate := domain.EffectiveHourlyRate(nil, deal.HourlyRate)
	amounts := make(map[uint]float64, len(tickets))
	for _, t := range tickets {
		amounts[t.ID] = domain.CalculateBillableAmount(t.TimeSpent, rate)
	}
	if err := s.ticketRepo.UpdateBillableAmounts(ctx, amounts); err != nil {
		return err
	}

	s.logger.Info("refreshed ticket billable amounts after rate change",
		zap.Uint("deal_id", deal.ID),
		zap.Float64("rate", rate),
		zap.Int("tickets", len(tickets)))
	return nil
}

// Delete removes the deal and its stakeholders
func (s *DealService) Delete(ctx context.Context, id uint) error {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrDealNotFound)
	}
	if err := s.dealRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	s.activity.Log(ctx, domain.ActivityEntityDeal, id, domain.ActivityActionDeleted, map[string]interface{}{
		"name": deal.Name,
	})
	return nil
}

func (s *DealService) ListInteractions(ctx context.Context, dealID uint) ([]domain.InteractionDTO, error) {
	if _, err := s.dealRepo.GetByID(ctx, dealID); err != nil {
		return nil, notFound(err, ErrDealNotFound)
	}
	interactions, err := s.interactionRepo.ListByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return mapper.ToInteractionDTOs(interactions), nil
}

func (s *DealService) AddInteraction(ctx context.Context, dealID uint, req *domain.CreateInteractionRequest) (*domain.InteractionDTO, error) {
	if _, err := s.dealRepo.GetByID(ctx, dealID); err != nil {
		return nil, notFound(err, ErrDealNotFound)
	}

	status := req.Status
	if status == "" {
		status = "completed"
	}
	interaction := &domain.DealInteraction{
		DealID:        dealID,
		Type:          req.Type,
		Subject:       req.Subject,
		Content:       req.Content,
		ContactPerson: req.ContactPerson,
		OwnerID:       auth.UserIDFromContext(ctx),
		Status:        status,
		ScheduledAt:   req.ScheduledAt,
		CompletedAt:   req.CompletedAt,
	}
	if err := s.interactionRepo.Create(ctx, interaction); err != nil {
		return nil, fmt.Errorf("failed to create interaction: %w", err)
	}

	s.activity.Log(ctx, domain.ActivityEntityDeal, dealID, domain.ActivityActionUpdated, map[string]interface{}{
		"interactionId": interaction.ID,
		"type":          interaction.Type,
	})

	dto := mapper.ToInteractionDTO(interaction)
	return &dto, nil
}

func sameRate(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
