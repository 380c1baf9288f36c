package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bettersystems/crm-api/docs"
	"github.com/bettersystems/crm-api/internal/airtable"
	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/config"
	"github.com/bettersystems/crm-api/internal/database"
	"github.com/bettersystems/crm-api/internal/email"
	"github.com/bettersystems/crm-api/internal/gmail"
	"github.com/bettersystems/crm-api/internal/http/handler"
	"github.com/bettersystems/crm-api/internal/http/middleware"
	"github.com/bettersystems/crm-api/internal/http/router"
	"github.com/bettersystems/crm-api/internal/jobs"
	"github.com/bettersystems/crm-api/internal/lock"
	"github.com/bettersystems/crm-api/internal/logger"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/bettersystems/crm-api/internal/storage"
	"go.uber.org/zap"
)

const emailSyncTimeout = 5 * time.Minute

// @title Better Systems CRM API
// @version 1.0
// @description CRM API for clients, deals, support tickets and billing

// @contact.name API Support
// @contact.email support@bettersystems.dev

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description Admin API key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if basicCfg.App.Environment == "development" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	} else {
		docs.SwaggerInfo.Host = ""
	}

	// In development secrets come from the environment, elsewhere from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		// goose migrations target postgres; sqlite is schema-managed by gorm
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	locker, err := lock.NewLocker(&cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("failed to initialize locker: %w", err)
	}

	// Optional integrations stay untyped nil when not configured
	var mailer email.Mailer
	if cfg.Email.SMTPConfigured() {
		mailer = email.NewSMTPMailer(&cfg.Email, log)
	} else {
		log.Warn("SMTP not configured, outbound email disabled")
	}

	var leads service.LeadRecorder
	if cfg.Airtable.Configured() {
		leads = airtable.NewClient(&cfg.Airtable, log)
	}

	var mailbox service.MessageSource
	if cfg.Gmail.Configured() {
		gmailClient, err := gmail.NewClient(ctx, &cfg.Gmail)
		if err != nil {
			log.Warn("Gmail client unavailable, email sync disabled", zap.Error(err))
		} else {
			mailbox = gmailClient
		}
	}

	renderer := email.NewRenderer(cfg.App.Name, cfg.App.PublicURL)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	dealRepo := repository.NewDealRepository(db)
	stakeholderRepo := repository.NewStakeholderRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	systemUpdateRepo := repository.NewSystemUpdateRepository(db)

	// Services
	activityService := service.NewActivityService(activityRepo, log)
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, invoiceRepo, log)
	tokenIssuer := auth.NewTokenIssuer(&cfg.Auth)

	authService := service.NewAuthService(userRepo, tokenIssuer, log)
	clientService := service.NewClientService(clientRepo, projectRepo, dealRepo, emailLogRepo, activityService, log)
	projectService := service.NewProjectService(projectRepo, clientRepo, activityService, log)
	dealService := service.NewDealService(dealRepo, clientRepo, projectRepo, stakeholderRepo, interactionRepo, documentRepo, ticketRepo, invoiceRepo, activityService, log)
	stakeholderService := service.NewStakeholderService(stakeholderRepo, dealRepo, clientRepo, activityService, log)
	dealNotificationService := service.NewDealNotificationService(dealRepo, stakeholderRepo, interactionRepo, invoiceRepo, ticketRepo, mailer, renderer, activityService, log)
	documentService := service.NewDocumentService(documentRepo, dealRepo, clientRepo, projectRepo, fileStorage, cfg.Storage.MaxUploadSizeMB, activityService, log)
	ticketService := service.NewTicketService(ticketRepo, clientRepo, dealRepo, invoiceRepo, locker, activityService, log)
	externalTicketService := service.NewExternalTicketService(&cfg.ExternalTickets, ticketRepo, clientRepo, dealRepo, locker, activityService, log)
	invoiceService := service.NewInvoiceService(invoiceRepo, clientRepo, dealRepo, numberSequenceService, activityService, log)
	billingService := service.NewBillingService(dealRepo, invoiceRepo, ticketRepo, log)
	reviewService := service.NewReviewService(reviewRepo, activityService, log)
	emailLogService := service.NewEmailLogService(emailLogRepo, log)
	emailSyncService := service.NewEmailSyncService(mailbox, emailLogRepo, clientRepo, locker, cfg.Gmail.InternalDomains, cfg.Gmail.MaxResults, log)
	systemUpdateService := service.NewSystemUpdateService(systemUpdateRepo, dealRepo, mailer, renderer, activityService, log)
	contactService := service.NewContactService(mailer, renderer, leads, cfg.Email.AdminRecipients, log)

	// Middleware
	policy, err := auth.NewPolicy()
	if err != nil {
		return fmt.Errorf("failed to load authorization policy: %w", err)
	}
	authMiddleware := auth.NewMiddleware(tokenIssuer, policy, cfg.Auth.AdminAPIKey, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	handlers := router.Handlers{
		Auth:           handler.NewAuthHandler(authService, log),
		Clients:        handler.NewClientHandler(clientService, log),
		Projects:       handler.NewProjectHandler(projectService, log),
		Deals:          handler.NewDealHandler(dealService, dealNotificationService, log),
		Stakeholders:   handler.NewStakeholderHandler(stakeholderService, log),
		Billing:        handler.NewBillingHandler(billingService, log),
		Documents:      handler.NewDocumentHandler(documentService, log),
		Tickets:        handler.NewTicketHandler(ticketService, log),
		ExternalTicket: handler.NewExternalTicketHandler(externalTicketService, log),
		Invoices:       handler.NewInvoiceHandler(invoiceService, log),
		Reviews:        handler.NewReviewHandler(reviewService, log),
		Activity:       handler.NewActivityHandler(activityService, log),
		EmailLogs:      handler.NewEmailLogHandler(emailLogService, emailSyncService, log),
		SystemUpdates:  handler.NewSystemUpdateHandler(systemUpdateService, log),
		Contact:        handler.NewContactHandler(contactService, log),
	}

	rt := router.NewRouter(cfg, log, db, authMiddleware, rateLimiter, handlers)

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.EmailSync.Enabled && emailSyncService.Configured() {
		scheduler = jobs.NewScheduler(log)
		syncJob := jobs.NewEmailSyncJob(emailSyncService, log)
		if err := scheduler.Register(cfg.Jobs.EmailSync.Schedule, syncJob, emailSyncTimeout); err != nil {
			log.Error("Failed to register email sync job", zap.Error(err))
		} else {
			scheduler.Start()
		}
	} else {
		log.Info("Email sync job disabled",
			zap.Bool("enabled", cfg.Jobs.EmailSync.Enabled),
			zap.Bool("mailbox_configured", emailSyncService.Configured()),
		)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
