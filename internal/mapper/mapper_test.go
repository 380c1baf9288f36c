package mapper_test

import (
	"errors"
	"testing"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestToClientDTO(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	hidden := domain.ClientLabelHidden
	client := &domain.Client{
		BaseModel: domain.BaseModel{ID: 7, CreatedAt: now, UpdatedAt: now},
		Name:      "Acme",
		Email:     "ops@acme.com",
		Status:    domain.ClientStatusActive,
		Label:     &hidden,
	}

	dto := mapper.ToClientDTO(client)

	assert.Equal(t, uint(7), dto.ID)
	assert.Equal(t, "Acme", dto.Name)
	assert.Equal(t, "2024-03-01T10:30:00Z", dto.CreatedAt)
	assert.Equal(t, []string{}, dto.Tags)
	require.NotNil(t, dto.Label)
	assert.Equal(t, "hidden", *dto.Label)
}

func TestToTicketDTO_EffectiveRate(t *testing.T) {
	dealRate := 100.0
	ticket := &domain.SupportTicket{
		BaseModel:      domain.BaseModel{ID: 1},
		Title:          "Fix login",
		TimeSpent:      1.5,
		BillableAmount: 97.5,
		Deal:           &domain.Deal{Name: "Retainer", HourlyRate: &dealRate},
		Client:         &domain.Client{Name: "Acme"},
	}

	dto := mapper.ToTicketDTO(ticket)

	assert.Equal(t, 100.0, dto.EffectiveHourlyRate)
	assert.Equal(t, 150.0, dto.CalculatedBillableAmount)
	assert.Equal(t, 97.5, dto.BillableAmount, "stored amount is reported as-is")
	assert.Equal(t, "Retainer", dto.DealName)
	assert.Equal(t, "Acme", dto.ClientName)
	assert.Nil(t, dto.BilledAt)
}

func TestToTicketDTO_DefaultRate(t *testing.T) {
	dto := mapper.ToTicketDTO(&domain.SupportTicket{TimeSpent: 2})
	assert.Equal(t, domain.DefaultHourlyRate, dto.EffectiveHourlyRate)
	assert.Equal(t, 130.0, dto.CalculatedBillableAmount)
}

func TestToInvoiceDTO(t *testing.T) {
	inv := &domain.Invoice{
		InvoiceNumber: "INV-202401-0001",
		Total:         110,
		AmountDue:     60,
		LineItems:     datatypes.JSONSlice[domain.InvoiceLineItem]{{Description: "Support", Amount: 100, Quantity: 1}},
		Client:        &domain.Client{Name: "Acme"},
	}

	dto := mapper.ToInvoiceDTO(inv)

	assert.Equal(t, "Acme", dto.ClientName)
	assert.Len(t, dto.LineItems, 1)
	assert.Nil(t, dto.PaidAt)
}

func TestToActivityDTO_DecodesDetails(t *testing.T) {
	entry := &domain.ActivityLog{
		EntityType: domain.ActivityEntityTicket,
		Action:     domain.ActivityActionBilled,
		Details:    datatypes.JSON(`{"invoiceId":7}`),
	}

	dto := mapper.ToActivityDTO(entry)

	details, ok := dto.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), details["invoiceId"])
}

func TestToEmailLogDTO_BodiesOnlyOnDetail(t *testing.T) {
	html := "<p>hi</p>"
	log := &domain.EmailLog{FromAddress: "a@x.com", HTMLBody: &html}

	assert.Nil(t, mapper.ToEmailLogDTO(log, false).HTMLBody)
	assert.Equal(t, &html, mapper.ToEmailLogDTO(log, true).HTMLBody)
	assert.Equal(t, []string{}, mapper.ToEmailLogDTO(log, false).To)
}

func TestToPublicReviewDTO_HidesEmail(t *testing.T) {
	dto := mapper.ToPublicReviewDTO(&domain.Review{ReviewerName: "Jane", ReviewerEmail: "jane@x.com"})
	assert.Empty(t, dto.ReviewerEmail)
	assert.Equal(t, "Jane", dto.ReviewerName)
}

func TestFormatError(t *testing.T) {
	base := errors.New("boom")
	err := mapper.FormatError("client", "create", base)
	assert.EqualError(t, err, "failed to create client: boom")
	assert.ErrorIs(t, err, base)
}
