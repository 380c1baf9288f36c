package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/gmail"
	"github.com/bettersystems/crm-api/internal/lock"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	emailSyncLockKey      = "email-sync"
	defaultSyncMaxResults = 50
	syncedStatus          = "delivered"
	syncedEvent           = "email.synced"
)

// excludedSenders are marketing and notification senders never stored
var excludedSenders = []string{
	"noreply@", "no-reply@", "notifications@", "newsletter@", "marketing@",
	"mailer-daemon@", "@google.com", "@stripe.com", "@resend.dev",
	"@amazonses.com", "@linkedin.com", "@facebook.com", "@facebookmail.com",
}

// hiddenContactPatterns mark automated addresses whose contacts are created hidden
var hiddenContactPatterns = []string{
	"noreply", "no-reply", "no_reply", "do-not-reply", "donotreply",
	"notifications@", "notification@", "notify@",
	"newsletter@", "marketing@", "promo@", "promotions@",
	"support@", "security@", "team@", "hello@",
	"onboarding@", "billing@", "accounts@", "info@",
	"mailer-daemon", "postmaster@", "bounce@",
	"@google.com", "@stripe.com", "@twilio.com", "@vercel.com", "@resend.dev",
	"@hubspot.com", "@mailchimp.com", "@sendgrid.com", "@amazonses.com",
}

// MessageSource lists and fetches mailbox messages
type MessageSource interface {
	ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error)
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
}

// SyncOptions control a single sync run
type SyncOptions struct {
	MaxResults         int64
	Query              string
	Type               string
	FilterBusinessOnly bool
}

// EmailSyncService imports mailbox messages into the email log and discovers
// new contacts from inbound senders
type EmailSyncService struct {
	source          MessageSource
	emailLogRepo    *repository.EmailLogRepository
	clientRepo      *repository.ClientRepository
	locker          lock.Locker
	internalDomains []string
	maxResults      int64
	logger          *zap.Logger
}

// NewEmailSyncService creates the sync service. source may be nil when Gmail is
// not configured; Sync then fails with ErrIntegrationNotConfigured.
func NewEmailSyncService(
	source MessageSource,
	emailLogRepo *repository.EmailLogRepository,
	clientRepo *repository.ClientRepository,
	locker lock.Locker,
	internalDomains []string,
	maxResults int64,
	logger *zap.Logger,
) *EmailSyncService {
	domains := make([]string, 0, len(internalDomains))
	for _, d := range internalDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	if maxResults <= 0 {
		maxResults = defaultSyncMaxResults
	}
	return &EmailSyncService{
		source:          source,
		emailLogRepo:    emailLogRepo,
		clientRepo:      clientRepo,
		locker:          locker,
		internalDomains: domains,
		maxResults:      maxResults,
		logger:          logger,
	}
}

// Configured reports whether a mailbox is available
func (s *EmailSyncService) Configured() bool {
	return s.source != nil
}

// DefaultOptions returns the options used by scheduled runs
func (s *EmailSyncService) DefaultOptions() SyncOptions {
	return SyncOptions{MaxResults: s.maxResults, Type: "all", FilterBusinessOnly: true}
}

// OptionsFromRequest fills unset request fields with defaults
func (s *EmailSyncService) OptionsFromRequest(req *domain.EmailSyncRequest) SyncOptions {
	opts := s.DefaultOptions()
	if req == nil {
		return opts
	}
	if req.MaxResults > 0 {
		opts.MaxResults = req.MaxResults
	}
	if req.Type != "" {
		opts.Type = req.Type
	}
	if req.FilterBusinessOnly != nil {
		opts.FilterBusinessOnly = *req.FilterBusinessOnly
	}
	opts.Query = strings.TrimSpace(req.Query)
	return opts
}

// Sync imports messages matching opts. Runs are serialized; a failing message
// is counted and does not stop the run.
func (s *EmailSyncService) Sync(ctx context.Context, opts SyncOptions) (*domain.EmailSyncResultDTO, error) {
	if s.source == nil {
		return nil, fmt.Errorf("%w: gmail", ErrIntegrationNotConfigured)
	}

	release, err := s.locker.Acquire(ctx, emailSyncLockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	defer release()

	if opts.MaxResults <= 0 {
		opts.MaxResults = s.maxResults
	}

	ids, err := s.source.ListMessageIDs(ctx, buildQuery(opts), opts.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	result := &domain.EmailSyncResultDTO{}
	senders := make(map[string]gmail.Address)

	for _, id := range ids {
		msg, err := s.source.GetMessage(ctx, id)
		if err != nil {
			s.logger.Warn("failed to fetch message", zap.String("gmail_id", id), zap.Error(err))
			result.Failed++
			continue
		}

		if s.isExcluded(msg.From) || (opts.FilterBusinessOnly && !s.isBusiness(msg)) {
			result.Skipped++
			continue
		}

		created, err := s.upsert(ctx, msg)
		if err != nil {
			s.logger.Warn("failed to store message", zap.String("gmail_id", id), zap.Error(err))
			result.Failed++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}

		if s.direction(msg.From) == domain.EmailCategoryInbound {
			addr := gmail.ParseAddress(msg.From)
			if addr.Email != "" && !s.isInternal(addr.Email) {
				senders[strings.ToLower(addr.Email)] = addr
			}
		}
	}
	result.TotalSynced = result.Created + result.Updated

	for email, addr := range senders {
		clientID, created, err := s.ensureContact(ctx, email, addr)
		if err != nil {
			s.logger.Warn("failed to create contact", zap.String("email", email), zap.Error(err))
			continue
		}
		if created {
			result.Contacts++
		}
		if _, err := s.emailLogRepo.LinkClient(ctx, email, clientID); err != nil {
			s.logger.Warn("failed to link emails to client",
				zap.String("email", email),
				zap.Uint("client_id", clientID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("email sync completed",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("contacts", result.Contacts),
	)
	return result, nil
}

func (s *EmailSyncService) upsert(ctx context.Context, msg *gmail.Message) (bool, error) {
	now := time.Now().UTC()
	subject := msg.Subject
	if strings.TrimSpace(subject) == "" {
		subject = "(no subject)"
	}

	existing, err := s.emailLogRepo.GetByGmailID(ctx, msg.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	log := existing
	if log == nil {
		gmailID := msg.ID
		log = &domain.EmailLog{GmailID: &gmailID}
	}
	log.MessageID = msg.MessageID
	log.FromAddress = msg.From
	log.ToAddresses = datatypes.JSONSlice[string](nonNilStrings(msg.To))
	log.CcAddresses = datatypes.JSONSlice[string](nonNilStrings(msg.Cc))
	log.Subject = subject
	log.HTMLBody = msg.HTML
	log.TextBody = msg.Text
	log.Status = syncedStatus
	log.LastEvent = syncedEvent
	log.Category = s.direction(msg.From)
	log.SentAt = msg.Date
	log.SyncedAt = &now

	if existing == nil {
		return true, s.emailLogRepo.Create(ctx, log)
	}
	return false, s.emailLogRepo.Update(ctx, log)
}

// ensureContact returns the client for email, creating a lead when none exists.
// Contacts created here are not activity-logged.
func (s *EmailSyncService) ensureContact(ctx context.Context, email string, addr gmail.Address) (uint, bool, error) {
	client, err := s.clientRepo.GetByEmail(ctx, email)
	if err == nil {
		return client.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}

	label := contactLabel(email)
	client = &domain.Client{
		Name:      addr.Name,
		FirstName: addr.FirstName,
		LastName:  addr.LastName,
		Email:     addr.Email,
		Status:    domain.ClientStatusLead,
		Source:    domain.ClientSourceEmailSync,
		Label:     &label,
		Tags:      datatypes.JSONSlice[string]{},
	}
	if client.Name == "" {
		client.Name = email
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return 0, false, err
	}
	return client.ID, true, nil
}

func (s *EmailSyncService) direction(from string) string {
	if s.isInternal(from) {
		return domain.EmailCategoryOutbound
	}
	return domain.EmailCategoryInbound
}

func (s *EmailSyncService) isInternal(address string) bool {
	lower := strings.ToLower(address)
	for _, d := range s.internalDomains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

func (s *EmailSyncService) isExcluded(from string) bool {
	return containsAny(strings.ToLower(from), excludedSenders)
}

// isBusiness reports whether an internal address takes part in the message
func (s *EmailSyncService) isBusiness(msg *gmail.Message) bool {
	if s.isInternal(msg.From) {
		return true
	}
	for _, to := range msg.To {
		if s.isInternal(to) {
			return true
		}
	}
	return false
}

func buildQuery(opts SyncOptions) string {
	switch opts.Type {
	case "sent":
		return strings.TrimSpace("from:me " + opts.Query)
	case "received":
		return strings.TrimSpace("to:me " + opts.Query)
	default:
		return opts.Query
	}
}

func contactLabel(email string) string {
	if containsAny(strings.ToLower(email), hiddenContactPatterns) {
		return domain.ClientLabelHidden
	}
	return domain.ClientLabelContact
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
