package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/airtable"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/email"
	"go.uber.org/zap"
)

const contactFormType = "Contact Form"

// LeadRecorder stores a lead in an external CRM table
type LeadRecorder interface {
	CreateRecord(ctx context.Context, fields airtable.Fields) (*airtable.Record, error)
}

// ContactService fans a public contact form out to the admin inbox, the
// submitter and the lead table. Nothing is stored in the database.
type ContactService struct {
	mailer          email.Mailer
	renderer        *email.Renderer
	leads           LeadRecorder
	adminRecipients []string
	logger          *zap.Logger
}

// NewContactService creates the service. mailer and leads may be nil; the
// corresponding branch is then skipped.
func NewContactService(mailer email.Mailer, renderer *email.Renderer, leads LeadRecorder, adminRecipients []string, logger *zap.Logger) *ContactService {
	return &ContactService{
		mailer:          mailer,
		renderer:        renderer,
		leads:           leads,
		adminRecipients: adminRecipients,
		logger:          logger,
	}
}

// Submit runs every configured branch. It fails only when no branch is
// configured or every configured branch failed.
func (s *ContactService) Submit(ctx context.Context, req *domain.ContactFormRequest) (*domain.ContactFormResultDTO, error) {
	result := &domain.ContactFormResultDTO{}
	attempted := 0
	var errs []error

	if s.mailer != nil && len(s.adminRecipients) > 0 {
		attempted++
		if err := s.notifyAdmins(ctx, req); err != nil {
			s.logger.Error("failed to send contact notification", zap.String("email", req.Email), zap.Error(err))
			errs = append(errs, err)
		} else {
			result.NotificationSent = true
		}
	}

	if s.mailer != nil {
		attempted++
		if err := s.confirm(ctx, req); err != nil {
			s.logger.Warn("failed to send contact confirmation", zap.String("email", req.Email), zap.Error(err))
			errs = append(errs, err)
		} else {
			result.ConfirmationSent = true
		}
	}

	if s.leads != nil {
		attempted++
		if _, err := s.leads.CreateRecord(ctx, contactFields(req, time.Now().UTC())); err != nil {
			s.logger.Error("failed to save contact to airtable", zap.String("email", req.Email), zap.Error(err))
			errs = append(errs, err)
		} else {
			result.CRMSynced = true
		}
	}

	if attempted == 0 {
		return nil, fmt.Errorf("%w: contact form has no delivery channel", ErrIntegrationNotConfigured)
	}
	if len(errs) == attempted {
		return nil, fmt.Errorf("failed to process contact form: %w", errors.Join(errs...))
	}

	s.logger.Info("contact form processed",
		zap.String("email", req.Email),
		zap.Bool("notification_sent", result.NotificationSent),
		zap.Bool("confirmation_sent", result.ConfirmationSent),
		zap.Bool("crm_synced", result.CRMSynced),
	)
	return result, nil
}

func (s *ContactService) notifyAdmins(ctx context.Context, req *domain.ContactFormRequest) error {
	lines := []string{
		"Name: " + req.Name,
		"Email: " + req.Email,
	}
	if req.Company != "" {
		lines = append(lines, "Company: "+req.Company)
	}
	if req.Phone != "" {
		lines = append(lines, "Phone: "+req.Phone)
	}
	if req.Service != "" {
		lines = append(lines, "Service: "+req.Service)
	}

	subject := fmt.Sprintf("New contact form submission from %s", req.Name)
	html, text, err := s.renderer.Render(email.Content{
		Heading:  subject,
		Markdown: req.Message,
		Lines:    lines,
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, to := range s.adminRecipients {
		err := s.mailer.Send(ctx, email.Message{
			To:      to,
			ReplyTo: req.Email,
			Subject: subject,
			HTML:    html,
			Text:    text,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", to, err))
		}
	}
	if len(errs) == len(s.adminRecipients) {
		return errors.Join(errs...)
	}
	return nil
}

func (s *ContactService) confirm(ctx context.Context, req *domain.ContactFormRequest) error {
	firstName := req.Name
	if parts := strings.Fields(req.Name); len(parts) > 0 {
		firstName = parts[0]
	}
	subject := "Thanks for reaching out"
	html, text, err := s.renderer.Render(email.Content{
		Heading:  subject,
		Greeting: fmt.Sprintf("Hi %s,", firstName),
		Lines: []string{
			"We received your message and will get back to you within one business day.",
			"If anything is urgent, just reply to this email.",
		},
	})
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, email.Message{
		To:      req.Email,
		ToName:  req.Name,
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
}

func contactFields(req *domain.ContactFormRequest, at time.Time) airtable.Fields {
	fields := airtable.Fields{
		"Name":         req.Name,
		"Email":        req.Email,
		"Phone":        req.Phone,
		"Company":      req.Company,
		"Form Type":    contactFormType,
		"Submitted At": at.UTC().Format(time.RFC3339),
		"Status":       "New",
		"Message":      req.Message,
	}
	if req.Service != "" {
		fields["Service"] = req.Service
	}
	return fields
}
