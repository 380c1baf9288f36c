package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bettersystems/crm-api/internal/airtable"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/email"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLeads struct {
	records []airtable.Fields
	err     error
}

func (f *fakeLeads) CreateRecord(_ context.Context, fields airtable.Fields) (*airtable.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.records = append(f.records, fields)
	return &airtable.Record{ID: "rec1", Fields: fields}, nil
}

func contactRequest() *domain.ContactFormRequest {
	return &domain.ContactFormRequest{
		Name:    "Jane Doe",
		Email:   "jane@client.test",
		Company: "Client Co",
		Service: "Automation",
		Message: "We need help automating our invoicing.",
	}
}

func TestContactService_Submit(t *testing.T) {
	renderer := email.NewRenderer("Better Systems", "https://example.com")
	admins := []string{"hello@bettersystems.ai"}

	t.Run("all branches succeed", func(t *testing.T) {
		mailer := &fakeMailer{}
		leads := &fakeLeads{}
		svc := service.NewContactService(mailer, renderer, leads, admins, zap.NewNop())

		result, err := svc.Submit(context.Background(), contactRequest())
		require.NoError(t, err)

		assert.True(t, result.NotificationSent)
		assert.True(t, result.ConfirmationSent)
		assert.True(t, result.CRMSynced)
		assert.Equal(t, []string{"hello@bettersystems.ai", "jane@client.test"}, mailer.recipients())
		assert.Equal(t, "jane@client.test", mailer.sent[0].ReplyTo)
		assert.Contains(t, mailer.sent[1].Text, "Hi Jane,")

		require.Len(t, leads.records, 1)
		assert.Equal(t, "Contact Form", leads.records[0]["Form Type"])
		assert.Equal(t, "Automation", leads.records[0]["Service"])
		assert.Equal(t, "New", leads.records[0]["Status"])
	})

	t.Run("partial failure still succeeds", func(t *testing.T) {
		mailer := &fakeMailer{failFor: map[string]bool{"jane@client.test": true}}
		leads := &fakeLeads{err: errors.New("airtable down")}
		svc := service.NewContactService(mailer, renderer, leads, admins, zap.NewNop())

		result, err := svc.Submit(context.Background(), contactRequest())
		require.NoError(t, err)
		assert.True(t, result.NotificationSent)
		assert.False(t, result.ConfirmationSent)
		assert.False(t, result.CRMSynced)
	})

	t.Run("every branch failed", func(t *testing.T) {
		mailer := &fakeMailer{failFor: map[string]bool{"jane@client.test": true, "hello@bettersystems.ai": true}}
		leads := &fakeLeads{err: errors.New("airtable down")}
		svc := service.NewContactService(mailer, renderer, leads, admins, zap.NewNop())

		_, err := svc.Submit(context.Background(), contactRequest())
		assert.Error(t, err)
	})

	t.Run("leads only", func(t *testing.T) {
		leads := &fakeLeads{}
		svc := service.NewContactService(nil, renderer, leads, admins, zap.NewNop())

		result, err := svc.Submit(context.Background(), contactRequest())
		require.NoError(t, err)
		assert.True(t, result.CRMSynced)
		assert.False(t, result.NotificationSent)
	})

	t.Run("nothing configured", func(t *testing.T) {
		svc := service.NewContactService(nil, renderer, nil, admins, zap.NewNop())

		_, err := svc.Submit(context.Background(), contactRequest())
		assert.ErrorIs(t, err, service.ErrIntegrationNotConfigured)
	})
}
