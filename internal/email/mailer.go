package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/bettersystems/crm-api/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Message is one outbound email
type Message struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers outbound email
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	logger   *zap.Logger
}

// NewSMTPMailer returns nil when SMTP is not configured
func NewSMTPMailer(cfg *config.EmailConfig, logger *zap.Logger) *SMTPMailer {
	if !cfg.SMTPConfigured() {
		return nil
	}
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	// implicit TLS on 465, STARTTLS otherwise
	dialer.SSL = cfg.SMTPPort == 465

	return &SMTPMailer{
		dialer:   dialer,
		from:     cfg.FromAddress,
		fromName: cfg.FromName,
		logger:   logger,
	}
}

// Send builds a multipart message and delivers it. gomail has no context
// support, so ctx is only checked before dialing.
func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient address is required")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
