package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const defaultCurrency = "USD"

type InvoiceService struct {
	invoiceRepo *repository.InvoiceRepository
	clientRepo  *repository.ClientRepository
	dealRepo    *repository.DealRepository
	numbers     *NumberSequenceService
	activity    *ActivityService
	logger      *zap.Logger
}

func NewInvoiceService(
	invoiceRepo *repository.InvoiceRepository,
	clientRepo *repository.ClientRepository,
	dealRepo *repository.DealRepository,
	numbers *NumberSequenceService,
	activity *ActivityService,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		dealRepo:    dealRepo,
		numbers:     numbers,
		activity:    activity,
		logger:      logger,
	}
}

func (s *InvoiceService) List(ctx context.Context, page, pageSize int, clientID, dealID *uint, status string) (*domain.PaginatedResponse, error) {
	page, pageSize = clampPagination(page, pageSize)

	filters := &repository.InvoiceFilters{ClientID: clientID, DealID: dealID}
	if status != "" && status != "all" {
		st := domain.InvoiceStatus(status)
		filters.Status = &st
	}

	invoices, total, err := s.invoiceRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return paginatedResponse(mapper.ToInvoiceDTOs(invoices), total, page, pageSize), nil
}

func (s *InvoiceService) GetByID(ctx context.Context, id uint) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapper.FormatError("invoice", "get", notFound(err, ErrInvoiceNotFound))
	}
	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// Create issues an invoice. Subtotal falls back to the sum of line items,
// total is subtotal plus tax and amountDue is total minus amountPaid.
func (s *InvoiceService) Create(ctx context.Context, req *domain.CreateInvoiceRequest) (*domain.InvoiceDTO, error) {
	client, err := s.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}
	if req.DealID != nil {
		deal, err := s.dealRepo.GetByID(ctx, *req.DealID)
		if err != nil {
			return nil, notFound(err, ErrDealNotFound)
		}
		if deal.ClientID != client.ID {
			return nil, ErrDealClientMismatch
		}
	}

	now := time.Now().UTC()
	number := strings.TrimSpace(req.InvoiceNumber)
	if number == "" {
		number, err = s.numbers.GenerateInvoiceNumber(ctx, now)
		if err != nil {
			return nil, err
		}
	} else {
		taken, err := s.invoiceRepo.NumberExists(ctx, number)
		if err != nil {
			return nil, fmt.Errorf("failed to check invoice number: %w", err)
		}
		if taken {
			return nil, ErrDuplicateInvoice
		}
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	status := req.Status
	if status == "" {
		status = domain.InvoiceStatusOpen
	}
	lineItems := req.LineItems
	if lineItems == nil {
		lineItems = []domain.InvoiceLineItem{}
	}

	invoice := &domain.Invoice{
		ClientID:      client.ID,
		DealID:        req.DealID,
		InvoiceNumber: number,
		Description:   req.Description,
		Subtotal:      req.Subtotal,
		Tax:           req.Tax,
		AmountPaid:    req.AmountPaid,
		Currency:      currency,
		Status:        status,
		DueDate:       req.DueDate,
		LineItems:     datatypes.JSONSlice[domain.InvoiceLineItem](lineItems),
	}
	invoice.ApplyTotals()
	if invoice.AmountPaid > invoice.Total {
		return nil, ErrPaymentExceedsDue
	}
	if invoice.AmountDue == 0 && invoice.Total > 0 {
		invoice.Status = domain.InvoiceStatusPaid
		invoice.PaidAt = &now
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.activity.Log(ctx, domain.ActivityEntityInvoice, invoice.ID, domain.ActivityActionCreated, map[string]interface{}{
		"invoiceNumber": invoice.InvoiceNumber,
		"total":         invoice.Total,
		"clientId":      client.ID,
	})

	invoice.Client = client
	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// RecordPayment adds a payment. The invoice becomes paid when nothing is due.
func (s *InvoiceService) RecordPayment(ctx context.Context, id uint, amount float64) (*domain.InvoiceDTO, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidInput)
	}
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}
	if invoice.Status == domain.InvoiceStatusVoid {
		return nil, ErrInvoiceVoid
	}
	amount = domain.RoundCurrency(amount)
	if amount > invoice.AmountDue {
		return nil, ErrPaymentExceedsDue
	}

	invoice.AmountPaid = domain.RoundCurrency(invoice.AmountPaid + amount)
	invoice.ApplyTotals()
	if invoice.AmountDue == 0 {
		now := time.Now().UTC()
		invoice.Status = domain.InvoiceStatusPaid
		invoice.PaidAt = &now
	}

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.activity.Log(ctx, domain.ActivityEntityInvoice, invoice.ID, domain.ActivityActionPaymentRecorded, map[string]interface{}{
		"amount":    amount,
		"amountDue": invoice.AmountDue,
		"status":    invoice.Status,
	})

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// Void cancels an unpaid invoice
func (s *InvoiceService) Void(ctx context.Context, id uint) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}
	if invoice.Status == domain.InvoiceStatusVoid {
		return nil, ErrInvoiceVoid
	}
	if invoice.Status == domain.InvoiceStatusPaid {
		return nil, fmt.Errorf("%w: a paid invoice cannot be voided", ErrInvalidInput)
	}

	oldStatus := invoice.Status
	invoice.Status = domain.InvoiceStatusVoid
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to void invoice: %w", err)
	}

	s.activity.Log(ctx, domain.ActivityEntityInvoice, invoice.ID, domain.ActivityActionStatusChanged, map[string]interface{}{
		"from": oldStatus,
		"to":   invoice.Status,
	})

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}
