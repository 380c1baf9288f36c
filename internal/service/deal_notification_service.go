package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/email"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
)

// DealNotificationService emails deal updates and billing notices to the
// primary client and opted-in stakeholders
type DealNotificationService struct {
	dealRepo        *repository.DealRepository
	stakeholderRepo *repository.StakeholderRepository
	interactionRepo *repository.InteractionRepository
	invoiceRepo     *repository.InvoiceRepository
	ticketRepo      *repository.TicketRepository
	mailer          email.Mailer
	renderer        *email.Renderer
	activity        *ActivityService
	logger          *zap.Logger
}

// NewDealNotificationService creates the service; mailer may be nil when SMTP is not configured
func NewDealNotificationService(
	dealRepo *repository.DealRepository,
	stakeholderRepo *repository.StakeholderRepository,
	interactionRepo *repository.InteractionRepository,
	invoiceRepo *repository.InvoiceRepository,
	ticketRepo *repository.TicketRepository,
	mailer email.Mailer,
	renderer *email.Renderer,
	activity *ActivityService,
	logger *zap.Logger,
) *DealNotificationService {
	return &DealNotificationService{
		dealRepo:        dealRepo,
		stakeholderRepo: stakeholderRepo,
		interactionRepo: interactionRepo,
		invoiceRepo:     invoiceRepo,
		ticketRepo:      ticketRepo,
		mailer:          mailer,
		renderer:        renderer,
		activity:        activity,
		logger:          logger,
	}
}

// SendDealUpdate emails markdown content to the primary client and every
// stakeholder that receives updates
func (s *DealNotificationService) SendDealUpdate(ctx context.Context, dealID uint, req *domain.SendDealUpdateRequest) (*domain.FanOutResultDTO, error) {
	if s.mailer == nil {
		return nil, ErrIntegrationNotConfigured
	}
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, notFound(err, ErrDealNotFound)
	}

	recipients, err := s.recipients(ctx, deal, func(sh *domain.DealStakeholder) bool { return sh.ReceivesUpdates })
	if err != nil {
		return nil, err
	}

	subject := req.Subject
	if subject == "" {
		subject = fmt.Sprintf("Update on %s", deal.Name)
	}
	content := email.Content{
		Heading:  subject,
		Markdown: req.Content,
		Lines: []string{
			fmt.Sprintf("This is an update regarding your project: %s.", deal.Name),
			"If you have any questions, just reply to this email.",
		},
	}

	return s.deliver(ctx, deal, recipients, subject, req.Content, content)
}

// SendBillingNotice emails the deal's outstanding balance and unbilled work to
// the primary client and every stakeholder that receives billing
func (s *DealNotificationService) SendBillingNotice(ctx context.Context, dealID uint, req *domain.BillingNoticeRequest) (*domain.FanOutResultDTO, error) {
	if s.mailer == nil {
		return nil, ErrIntegrationNotConfigured
	}
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, notFound(err, ErrDealNotFound)
	}

	recipients, err := s.recipients(ctx, deal, func(sh *domain.DealStakeholder) bool { return sh.ReceivesBilling })
	if err != nil {
		return nil, err
	}

	invoices, err := s.invoiceRepo.ListByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	tickets, err := s.ticketRepo.ListUnbilled(ctx, nil, &dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unbilled tickets: %w", err)
	}
	summary := domain.SummarizeInvoices(invoices)
	unbilled := domain.SummarizeUnbilledWork(tickets, func(*domain.SupportTicket) *float64 { return deal.HourlyRate })

	subject := req.Subject
	if subject == "" {
		subject = fmt.Sprintf("Billing summary for %s", deal.Name)
	}
	markdown := fmt.Sprintf("| | Amount |\n|---|---:|\n| Invoiced | $%.2f |\n| Paid | $%.2f |\n| Outstanding | $%.2f |\n| Unbilled work (%d tickets, %.2f h) | $%.2f |\n",
		summary.TotalInvoiced, summary.TotalPaid, summary.TotalOutstanding,
		unbilled.TicketCount, unbilled.TotalHours, unbilled.TotalAmount)
	if req.Message != "" {
		markdown = req.Message + "\n\n" + markdown
	}
	content := email.Content{
		Heading:  subject,
		Markdown: markdown,
		Lines:    []string{"Please reply to this email with any billing questions."},
	}

	return s.deliver(ctx, deal, recipients, subject, markdown, content)
}

func (s *DealNotificationService) recipients(ctx context.Context, deal *domain.Deal, include func(*domain.DealStakeholder) bool) ([]recipient, error) {
	var list recipientList
	if deal.Client != nil {
		list.add(deal.Client.Email, displayName(deal.Client))
	}

	stakeholders, err := s.stakeholderRepo.ListByDeal(ctx, deal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stakeholders: %w", err)
	}
	for i := range stakeholders {
		sh := &stakeholders[i]
		if sh.Client == nil || !include(sh) {
			continue
		}
		list.add(sh.Client.Email, displayName(sh.Client))
	}

	if len(list.items) == 0 {
		return nil, ErrNoRecipients
	}
	return list.items, nil
}

// deliver renders per recipient, sends, and records one email interaction on the deal
func (s *DealNotificationService) deliver(ctx context.Context, deal *domain.Deal, recipients []recipient, subject, body string, content email.Content) (*domain.FanOutResultDTO, error) {
	results := fanOut(ctx, s.mailer, s.logger, recipients, func(r recipient) email.Message {
		c := content
		if r.Name != "" {
			c.Greeting = fmt.Sprintf("Hi %s,", r.Name)
		}
		html, text, err := s.renderer.Render(c)
		if err != nil {
			s.logger.Warn("failed to render email, sending plain text", zap.Error(err))
			text = body
		}
		return email.Message{To: r.Email, ToName: r.Name, Subject: subject, HTML: html, Text: text}
	})
	sent, failed := countDelivered(results)

	contactPerson := ""
	if deal.Client != nil {
		contactPerson = deal.Client.ContactName
		if contactPerson == "" {
			contactPerson = deal.Client.Name
		}
	}
	now := time.Now().UTC()
	interaction := &domain.DealInteraction{
		DealID:        deal.ID,
		Type:          domain.InteractionTypeEmail,
		Subject:       subject,
		Content:       body,
		ContactPerson: contactPerson,
		OwnerID:       auth.UserIDFromContext(ctx),
		Status:        "completed",
		EmailSent:     sent > 0,
		CompletedAt:   &now,
	}

	result := &domain.FanOutResultDTO{Sent: sent, Failed: failed, Recipients: results}
	if err := s.interactionRepo.Create(ctx, interaction); err != nil {
		s.logger.Warn("failed to record email interaction", zap.Uint("deal_id", deal.ID), zap.Error(err))
	} else {
		result.InteractionID = &interaction.ID
	}

	s.activity.Log(ctx, domain.ActivityEntityDeal, deal.ID, domain.ActivityActionEmailSent, map[string]interface{}{
		"subject": subject,
		"sent":    sent,
		"failed":  failed,
	})

	s.logger.Info("deal email fan-out finished",
		zap.Uint("deal_id", deal.ID),
		zap.Int("sent", sent),
		zap.Int("failed", failed))
	return result, nil
}
