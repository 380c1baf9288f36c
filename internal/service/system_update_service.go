package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/email"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
)

// SystemUpdateService broadcasts announcements to the primary clients of deals
type SystemUpdateService struct {
	updateRepo *repository.SystemUpdateRepository
	dealRepo   *repository.DealRepository
	mailer     email.Mailer
	renderer   *email.Renderer
	activity   *ActivityService
	logger     *zap.Logger
}

// NewSystemUpdateService creates the service; mailer may be nil when SMTP is not configured
func NewSystemUpdateService(
	updateRepo *repository.SystemUpdateRepository,
	dealRepo *repository.DealRepository,
	mailer email.Mailer,
	renderer *email.Renderer,
	activity *ActivityService,
	logger *zap.Logger,
) *SystemUpdateService {
	return &SystemUpdateService{
		updateRepo: updateRepo,
		dealRepo:   dealRepo,
		mailer:     mailer,
		renderer:   renderer,
		activity:   activity,
		logger:     logger,
	}
}

// Send stores the update and emails one message per selected deal. Every deal
// gets a recipient row recording whether its email went out.
func (s *SystemUpdateService) Send(ctx context.Context, req *domain.SendSystemUpdateRequest) (*domain.SystemUpdateDTO, error) {
	if s.mailer == nil {
		return nil, fmt.Errorf("%w: smtp", ErrIntegrationNotConfigured)
	}

	deals, err := s.dealRepo.ListByIDs(ctx, uniqueIDs(req.DealIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load deals: %w", err)
	}
	if len(deals) == 0 {
		return nil, fmt.Errorf("%w: none of the selected deals exist", ErrInvalidInput)
	}

	now := time.Now().UTC()
	update := &domain.SystemUpdate{
		Title:          strings.TrimSpace(req.Title),
		Content:        req.Content,
		Category:       req.Category,
		SentAt:         &now,
		RecipientCount: len(deals),
		CreatedBy:      auth.UserIDFromContext(ctx),
	}
	if err := s.updateRepo.Create(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to create system update: %w", err)
	}

	subject := fmt.Sprintf("%s: %s", update.Category.Label(), update.Title)
	for i := range deals {
		deal := &deals[i]
		row := &domain.SystemUpdateRecipient{
			UpdateID: update.ID,
			DealID:   deal.ID,
		}
		if deal.Client != nil {
			row.Email = deal.Client.Email
		}

		if err := s.deliver(ctx, deal, subject, update.Content); err != nil {
			s.logger.Warn("failed to send system update",
				zap.Uint("update_id", update.ID),
				zap.Uint("deal_id", deal.ID),
				zap.String("to", row.Email),
				zap.Error(err))
			row.Error = err.Error()
		} else {
			sentAt := time.Now().UTC()
			row.EmailSent = true
			row.EmailSentAt = &sentAt
		}

		if err := s.updateRepo.CreateRecipient(ctx, row); err != nil {
			s.logger.Error("failed to record system update recipient",
				zap.Uint("update_id", update.ID),
				zap.Uint("deal_id", deal.ID),
				zap.Error(err))
		}
	}

	s.activity.Log(ctx, domain.ActivityEntitySystemUpdate, update.ID, domain.ActivityActionEmailSent, map[string]interface{}{
		"title":      update.Title,
		"recipients": len(deals),
	})

	return s.Get(ctx, update.ID)
}

func (s *SystemUpdateService) deliver(ctx context.Context, deal *domain.Deal, subject, content string) error {
	if deal.Client == nil || strings.TrimSpace(deal.Client.Email) == "" {
		return fmt.Errorf("deal %d has no client email", deal.ID)
	}

	name := displayName(deal.Client)
	html, text, err := s.renderer.Render(email.Content{
		Heading:  subject,
		Greeting: fmt.Sprintf("Hello %s,", name),
		Markdown: content,
		Lines:    []string{fmt.Sprintf("This update is regarding: %s", deal.Name)},
	})
	if err != nil {
		return err
	}

	return s.mailer.Send(ctx, email.Message{
		To:      deal.Client.Email,
		ToName:  name,
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
}

func (s *SystemUpdateService) List(ctx context.Context, page, pageSize int) (*domain.PaginatedResponse, error) {
	page, pageSize = clampPagination(page, pageSize)

	updates, total, err := s.updateRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list system updates: %w", err)
	}

	dtos := make([]domain.SystemUpdateDTO, len(updates))
	for i := range updates {
		dtos[i] = mapper.ToSystemUpdateDTO(&updates[i])
	}
	return paginatedResponse(dtos, total, page, pageSize), nil
}

// Get returns an update with its recipient rows
func (s *SystemUpdateService) Get(ctx context.Context, id uint) (*domain.SystemUpdateDTO, error) {
	update, err := s.updateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapper.FormatError("system update", "get", notFound(err, ErrSystemUpdateNotFound))
	}
	dto := mapper.ToSystemUpdateDTO(update)
	return &dto, nil
}

func (s *SystemUpdateService) Delete(ctx context.Context, id uint) error {
	if _, err := s.updateRepo.GetByID(ctx, id); err != nil {
		return notFound(err, ErrSystemUpdateNotFound)
	}
	if err := s.updateRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete system update: %w", err)
	}
	s.activity.Log(ctx, domain.ActivityEntitySystemUpdate, id, domain.ActivityActionDeleted, nil)
	return nil
}
