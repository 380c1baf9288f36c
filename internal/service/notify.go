package service

import (
	"context"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/email"
	"go.uber.org/zap"
)

// recipient is one addressee of a fan-out send
type recipient struct {
	Email string
	Name  string
}

// recipientList collects unique addresses, case-insensitively, in insertion order
type recipientList struct {
	seen  map[string]bool
	items []recipient
}

func (l *recipientList) add(address, name string) {
	address = strings.TrimSpace(address)
	if address == "" {
		return
	}
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	key := strings.ToLower(address)
	if l.seen[key] {
		return
	}
	l.seen[key] = true
	l.items = append(l.items, recipient{Email: address, Name: name})
}

// displayName picks the most personal name available for a client
func displayName(c *domain.Client) string {
	if c == nil {
		return ""
	}
	if c.FirstName != "" {
		return c.FirstName
	}
	if c.ContactName != "" {
		return c.ContactName
	}
	return c.Name
}

// fanOut sends one message per recipient. A failed recipient is logged and
// recorded without stopping the rest.
func fanOut(ctx context.Context, mailer email.Mailer, logger *zap.Logger, recipients []recipient, build func(r recipient) email.Message) []domain.DeliveryResult {
	results := make([]domain.DeliveryResult, 0, len(recipients))
	for _, r := range recipients {
		result := domain.DeliveryResult{Email: r.Email, Name: r.Name}
		if err := mailer.Send(ctx, build(r)); err != nil {
			logger.Warn("failed to deliver email",
				zap.String("to", r.Email),
				zap.Error(err))
			result.Error = err.Error()
		} else {
			result.Sent = true
		}
		results = append(results, result)
	}
	return results
}

func countDelivered(results []domain.DeliveryResult) (sent, failed int) {
	for _, r := range results {
		if r.Sent {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}
