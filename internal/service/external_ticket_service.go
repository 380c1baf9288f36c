package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/config"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/lock"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExternalTicketService ingests tickets submitted by partner applications.
// Each application authenticates with its own static API key.
type ExternalTicketService struct {
	apiKeys    map[string]string
	ticketRepo *repository.TicketRepository
	clientRepo *repository.ClientRepository
	dealRepo   *repository.DealRepository
	locker     lock.Locker
	activity   *ActivityService
	logger     *zap.Logger
}

func NewExternalTicketService(
	cfg *config.ExternalTicketsConfig,
	ticketRepo *repository.TicketRepository,
	clientRepo *repository.ClientRepository,
	dealRepo *repository.DealRepository,
	locker lock.Locker,
	activity *ActivityService,
	logger *zap.Logger,
) *ExternalTicketService {
	keys := make(map[string]string, len(cfg.APIKeys))
	for source, key := range cfg.APIKeys {
		keys[strings.ToLower(source)] = key
	}
	return &ExternalTicketService{
		apiKeys:    keys,
		ticketRepo: ticketRepo,
		clientRepo: clientRepo,
		dealRepo:   dealRepo,
		locker:     locker,
		activity:   activity,
		logger:     logger,
	}
}

// Authenticate checks the API key of an application source.
// Missing key and mismatched key are unauthorized; an unknown source is invalid input.
func (s *ExternalTicketService) Authenticate(source, apiKey string) error {
	if apiKey == "" {
		return ErrMissingAPIKey
	}
	expected, ok := s.apiKeys[strings.ToLower(strings.TrimSpace(source))]
	if !ok {
		return ErrUnknownSource
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
		return ErrInvalidAPIKey
	}
	return nil
}

// Sources lists the configured application sources
func (s *ExternalTicketService) Sources() []string {
	sources := make([]string, 0, len(s.apiKeys))
	for source := range s.apiKeys {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}

// Receive creates a ticket from a partner submission. A repeated submission
// with the same (source, externalTicketId) returns the existing ticket and
// created is false.
func (s *ExternalTicketService) Receive(ctx context.Context, req *domain.ExternalTicketRequest) (receipt *domain.ExternalTicketReceiptDTO, created bool, err error) {
	if err := s.Authenticate(req.ApplicationSource, req.APIKey); err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, false, ErrBlankTitle
	}
	source := strings.ToLower(strings.TrimSpace(req.ApplicationSource))
	externalID := strings.TrimSpace(req.ExternalTicketID)

	if externalID != "" {
		release, err := s.locker.Acquire(ctx, "external-ticket:"+source+":"+externalID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to acquire ingestion lock: %w", err)
		}
		defer release()

		receipt, err := s.existingReceipt(ctx, source, externalID)
		if err == nil {
			return receipt, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("failed to look up external ticket: %w", err)
		}
	}

	submitter := strings.ToLower(strings.TrimSpace(req.SubmitterEmail))
	ticket := &domain.SupportTicket{
		ApplicationSource: source,
		SubmitterEmail:    submitter,
		SubmitterName:     req.SubmitterName,
		Title:             strings.TrimSpace(req.Title),
		Description:       req.Description,
		ScreenshotURL:     optionalString(req.ScreenshotURL),
		Page:              optionalString(req.Page),
		Priority:          req.Priority,
		Status:            domain.TicketStatusPending,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.PriorityMedium
	}
	if externalID != "" {
		ticket.ExternalTicketID = &externalID
	}

	client, err := s.clientRepo.GetByEmail(ctx, submitter)
	switch {
	case err == nil:
		ticket.ClientID = &client.ID
		deal, err := s.dealRepo.FindOpenForClient(ctx, client.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to match deal: %w", err)
		}
		if deal != nil {
			ticket.DealID = &deal.ID
			ticket.Deal = deal
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("failed to match client: %w", err)
	}
	ticket.BillableAmount = billableAmount(ticket)

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		// another instance stored the same external ticket first
		if externalID != "" && errors.Is(err, repository.ErrDuplicate) {
			receipt, lookupErr := s.existingReceipt(ctx, source, externalID)
			if lookupErr == nil {
				return receipt, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.activity.LogAnonymous(ctx, domain.ActivityEntityTicket, ticket.ID, domain.ActivityActionCreatedExternal, map[string]interface{}{
		"applicationSource": source,
		"externalTicketId":  externalID,
		"submitterEmail":    submitter,
		"clientMatched":     ticket.ClientID != nil,
		"dealMatched":       ticket.DealID != nil,
	})

	s.logger.Info("external ticket received",
		zap.String("source", source),
		zap.Uint("ticket_id", ticket.ID),
		zap.Bool("client_matched", ticket.ClientID != nil),
		zap.Bool("deal_matched", ticket.DealID != nil))

	return toReceipt(ticket), true, nil
}

// existingReceipt returns a duplicate receipt for a ticket already stored
// under (source, externalID)
func (s *ExternalTicketService) existingReceipt(ctx context.Context, source, externalID string) (*domain.ExternalTicketReceiptDTO, error) {
	existing, err := s.ticketRepo.GetByExternalID(ctx, source, externalID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("duplicate external ticket submission",
		zap.String("source", source),
		zap.String("external_id", externalID),
		zap.Uint("ticket_id", existing.ID))
	receipt := toReceipt(existing)
	receipt.Duplicate = true
	return receipt, nil
}

// Status returns what a partner application may see of its own ticket
func (s *ExternalTicketService) Status(ctx context.Context, source, apiKey, externalID string) (*domain.ExternalTicketStatusDTO, error) {
	if err := s.Authenticate(source, apiKey); err != nil {
		return nil, err
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, ErrMissingExternalID
	}
	ticket, err := s.ticketRepo.GetByExternalID(ctx, strings.ToLower(strings.TrimSpace(source)), externalID)
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	dto := mapper.ToExternalTicketStatusDTO(ticket)
	return &dto, nil
}

func toReceipt(t *domain.SupportTicket) *domain.ExternalTicketReceiptDTO {
	return &domain.ExternalTicketReceiptDTO{
		ID:            t.ID,
		Title:         t.Title,
		Status:        t.Status,
		ClientMatched: t.ClientID != nil,
		DealMatched:   t.DealID != nil,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
	}
}
