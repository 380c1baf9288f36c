package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/config"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/email"
	"github.com/bettersystems/crm-api/internal/lock"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/bettersystems/crm-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testEnv wires every service against one isolated database
type testEnv struct {
	db     *gorm.DB
	mailer *fakeMailer

	activityRepo *repository.ActivityRepository
	ticketRepo   *repository.TicketRepository

	activity      *service.ActivityService
	clients       *service.ClientService
	projects      *service.ProjectService
	deals         *service.DealService
	stakeholders  *service.StakeholderService
	notifications *service.DealNotificationService
	tickets       *service.TicketService
	external      *service.ExternalTicketService
	invoices      *service.InvoiceService
	billing       *service.BillingService
	reviews       *service.ReviewService
	updates       *service.SystemUpdateService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	locker := lock.NewLocalLocker()
	mailer := &fakeMailer{}
	renderer := email.NewRenderer("Better Systems", "https://example.com")

	activityRepo := repository.NewActivityRepository(db)
	clientRepo := repository.NewClientRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	dealRepo := repository.NewDealRepository(db)
	stakeholderRepo := repository.NewStakeholderRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)

	activity := service.NewActivityService(activityRepo, logger)
	numbers := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), invoiceRepo, logger)

	return &testEnv{
		db:           db,
		mailer:       mailer,
		activityRepo: activityRepo,
		ticketRepo:   ticketRepo,
		activity:     activity,
		clients:      service.NewClientService(clientRepo, projectRepo, dealRepo, emailLogRepo, activity, logger),
		projects:     service.NewProjectService(projectRepo, clientRepo, activity, logger),
		deals: service.NewDealService(dealRepo, clientRepo, projectRepo, stakeholderRepo,
			interactionRepo, documentRepo, ticketRepo, invoiceRepo, activity, logger),
		stakeholders: service.NewStakeholderService(stakeholderRepo, dealRepo, clientRepo, activity, logger),
		notifications: service.NewDealNotificationService(dealRepo, stakeholderRepo, interactionRepo,
			invoiceRepo, ticketRepo, mailer, renderer, activity, logger),
		tickets: service.NewTicketService(ticketRepo, clientRepo, dealRepo, invoiceRepo, locker, activity, logger),
		external: service.NewExternalTicketService(&config.ExternalTicketsConfig{
			APIKeys: map[string]string{"portal": "portal-key"},
		}, ticketRepo, clientRepo, dealRepo, locker, activity, logger),
		invoices: service.NewInvoiceService(invoiceRepo, clientRepo, dealRepo, numbers, activity, logger),
		billing:  service.NewBillingService(dealRepo, invoiceRepo, ticketRepo, logger),
		reviews:  service.NewReviewService(repository.NewReviewRepository(db), activity, logger),
		updates: service.NewSystemUpdateService(repository.NewSystemUpdateRepository(db), dealRepo,
			mailer, renderer, activity, logger),
	}
}

// adminContext returns a context carrying an authenticated admin
func adminContext() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:   7,
		Username: "admin",
		Email:    "admin@bettersystems.ai",
		Role:     domain.UserRoleAdmin,
	})
}

func (e *testEnv) activityCount(t *testing.T, entityType domain.ActivityEntityType, entityID uint) int {
	t.Helper()
	entries, err := e.activityRepo.ListByEntity(context.Background(), entityType, entityID, 100)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	return len(entries)
}

// fakeMailer records messages and fails for addresses listed in failFor
type fakeMailer struct {
	mu      sync.Mutex
	sent    []email.Message
	failFor map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[strings.ToLower(msg.To)] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, msg := range m.sent {
		out[i] = msg.To
	}
	return out
}
