package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
)

// invoiceNumberAttempts bounds the search for a free number when manual
// numbers collide with the sequence
const invoiceNumberAttempts = 50

// NumberSequenceService generates invoice numbers.
//
// Format: INV-{YYYYMM}-{SEQUENCE}
// Example: INV-202610-0007
type NumberSequenceService struct {
	repo        *repository.NumberSequenceRepository
	invoiceRepo *repository.InvoiceRepository
	logger      *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	invoiceRepo *repository.InvoiceRepository,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:        repo,
		invoiceRepo: invoiceRepo,
		logger:      logger,
	}
}

// InvoicePrefix returns the monthly prefix for invoice numbers
func InvoicePrefix(at time.Time) string {
	return fmt.Sprintf("INV-%s-", at.UTC().Format("200601"))
}

// GenerateInvoiceNumber returns the next unused invoice number for the month of at.
// Numbers already taken by manually numbered invoices are skipped.
func (s *NumberSequenceService) GenerateInvoiceNumber(ctx context.Context, at time.Time) (string, error) {
	prefix := InvoicePrefix(at)

	for i := 0; i < invoiceNumberAttempts; i++ {
		nextSeq, err := s.repo.Next(ctx, prefix)
		if err != nil {
			s.logger.Error("failed to get next sequence number",
				zap.String("prefix", prefix),
				zap.Error(err))
			return "", fmt.Errorf("failed to generate invoice number: %w", err)
		}

		number := fmt.Sprintf("%s%04d", prefix, nextSeq)
		taken, err := s.invoiceRepo.NumberExists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("failed to check invoice number: %w", err)
		}
		if taken {
			continue
		}

		s.logger.Info("generated number",
			zap.String("number", number),
			zap.Int("sequence", nextSeq))
		return number, nil
	}

	return "", fmt.Errorf("failed to generate invoice number: no free number after %d attempts", invoiceNumberAttempts)
}

// GetCurrentSequence returns the last sequence handed out for the month of at, or 0
func (s *NumberSequenceService) GetCurrentSequence(ctx context.Context, at time.Time) (int, error) {
	return s.repo.Peek(ctx, InvoicePrefix(at))
}
