package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/config"
	"github.com/bettersystems/crm-api/internal/database"
	"github.com/bettersystems/crm-api/internal/http/handler"
	"github.com/bettersystems/crm-api/internal/http/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/bettersystems/crm-api/docs" // swagger spec
)

// Handlers groups every HTTP handler mounted by the router
type Handlers struct {
	Auth           *handler.AuthHandler
	Clients        *handler.ClientHandler
	Projects       *handler.ProjectHandler
	Deals          *handler.DealHandler
	Stakeholders   *handler.StakeholderHandler
	Billing        *handler.BillingHandler
	Documents      *handler.DocumentHandler
	Tickets        *handler.TicketHandler
	ExternalTicket *handler.ExternalTicketHandler
	Invoices       *handler.InvoiceHandler
	Reviews        *handler.ReviewHandler
	Activity       *handler.ActivityHandler
	EmailLogs      *handler.EmailLogHandler
	SystemUpdates  *handler.SystemUpdateHandler
	Contact        *handler.ContactHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	h              Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		h:              handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)
	if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	r.Get("/health", rt.health)
	r.Get("/health/db", rt.healthDB)
	r.Get("/health/ready", rt.healthReady)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.With(rt.rateLimiter.LimitPublicSubmit).Post("/auth/login", rt.h.Auth.Login)
		r.With(rt.rateLimiter.LimitPublicSubmit, rt.authMiddleware.OptionalAuthenticate).Post("/reviews", rt.h.Reviews.Submit)
		r.Get("/reviews/public", rt.h.Reviews.ListPublic)
		r.With(rt.rateLimiter.LimitPublicSubmit).Post("/contact", rt.h.Contact.Submit)

		// Partner applications authenticate per request with their source key
		r.Route("/external-tickets", func(r chi.Router) {
			r.With(rt.rateLimiter.LimitPublicSubmit).Post("/", rt.h.ExternalTicket.Receive)
			r.Get("/health", rt.h.ExternalTicket.Health)
			r.Get("/{externalId}/status", rt.h.ExternalTicket.Status)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(middleware.RecordCaller)

			r.Get("/auth/me", rt.h.Auth.Me)

			r.Route("/clients", func(r chi.Router) {
				rt.read(r, auth.ResourceClients).Get("/", rt.h.Clients.List)
				rt.write(r, auth.ResourceClients).Post("/", rt.h.Clients.Create)
				rt.read(r, auth.ResourceClients).Get("/stats", rt.h.Clients.Stats)
				rt.read(r, auth.ResourceClients).Get("/{id}", rt.h.Clients.GetByID)
				rt.write(r, auth.ResourceClients).Put("/{id}", rt.h.Clients.Update)
				rt.remove(r, auth.ResourceClients).Delete("/{id}", rt.h.Clients.Delete)
			})

			r.Route("/projects", func(r chi.Router) {
				rt.read(r, auth.ResourceProjects).Get("/", rt.h.Projects.List)
				rt.write(r, auth.ResourceProjects).Post("/", rt.h.Projects.Create)
				rt.read(r, auth.ResourceProjects).Get("/stats", rt.h.Projects.Stats)
				rt.read(r, auth.ResourceProjects).Get("/{id}", rt.h.Projects.GetByID)
				rt.write(r, auth.ResourceProjects).Put("/{id}", rt.h.Projects.Update)
				rt.remove(r, auth.ResourceProjects).Delete("/{id}", rt.h.Projects.Delete)
			})

			r.Route("/deals", func(r chi.Router) {
				rt.read(r, auth.ResourceDeals).Get("/", rt.h.Deals.List)
				rt.write(r, auth.ResourceDeals).Post("/", rt.h.Deals.Create)
				rt.read(r, auth.ResourceDeals).Get("/{id}", rt.h.Deals.GetByID)
				rt.write(r, auth.ResourceDeals).Put("/{id}", rt.h.Deals.Update)
				rt.remove(r, auth.ResourceDeals).Delete("/{id}", rt.h.Deals.Delete)

				rt.read(r, auth.ResourceDeals).Get("/{id}/interactions", rt.h.Deals.ListInteractions)
				rt.write(r, auth.ResourceDeals).Post("/{id}/interactions", rt.h.Deals.AddInteraction)
				rt.write(r, auth.ResourceDeals).Post("/{id}/send-update", rt.h.Deals.SendUpdate)
				rt.write(r, auth.ResourceBilling).Post("/{id}/billing-notice", rt.h.Deals.SendBillingNotice)
				rt.read(r, auth.ResourceBilling).Get("/{id}/billing", rt.h.Billing.DealSummary)

				rt.read(r, auth.ResourceDeals).Get("/{dealId}/stakeholders", rt.h.Stakeholders.List)
				rt.write(r, auth.ResourceDeals).Post("/{dealId}/stakeholders", rt.h.Stakeholders.Add)
				rt.write(r, auth.ResourceDeals).Put("/{dealId}/stakeholders/{id}", rt.h.Stakeholders.Update)
				rt.write(r, auth.ResourceDeals).Delete("/{dealId}/stakeholders/{id}", rt.h.Stakeholders.Remove)
			})

			rt.read(r, auth.ResourceBilling).Get("/billing/dashboard", rt.h.Billing.Dashboard)

			r.Route("/documents", func(r chi.Router) {
				rt.write(r, auth.ResourceDocuments).Post("/", rt.h.Documents.Upload)
				rt.read(r, auth.ResourceDocuments).Get("/{id}/download", rt.h.Documents.Download)
				rt.read(r, auth.ResourceDocuments).Get("/{entityType}/{entityId}", rt.h.Documents.ListByEntity)
				rt.remove(r, auth.ResourceDocuments).Delete("/{id}", rt.h.Documents.Delete)
			})

			r.Route("/tickets", func(r chi.Router) {
				rt.read(r, auth.ResourceTickets).Get("/", rt.h.Tickets.List)
				rt.write(r, auth.ResourceTickets).Post("/", rt.h.Tickets.Create)
				rt.read(r, auth.ResourceTickets).Get("/stats", rt.h.Tickets.Stats)
				rt.read(r, auth.ResourceTickets).Get("/billable", rt.h.Tickets.Billable)
				rt.write(r, auth.ResourceBilling).Post("/mark-billed", rt.h.Tickets.MarkBilled)
				rt.read(r, auth.ResourceTickets).Get("/{id}", rt.h.Tickets.GetByID)
				rt.write(r, auth.ResourceTickets).Put("/{id}", rt.h.Tickets.Update)
				rt.remove(r, auth.ResourceTickets).Delete("/{id}", rt.h.Tickets.Delete)
			})

			r.Route("/invoices", func(r chi.Router) {
				rt.read(r, auth.ResourceInvoices).Get("/", rt.h.Invoices.List)
				rt.write(r, auth.ResourceInvoices).Post("/", rt.h.Invoices.Create)
				rt.read(r, auth.ResourceInvoices).Get("/{id}", rt.h.Invoices.GetByID)
				rt.write(r, auth.ResourceInvoices).Post("/{id}/payments", rt.h.Invoices.RecordPayment)
				rt.write(r, auth.ResourceInvoices).Post("/{id}/void", rt.h.Invoices.Void)
			})

			r.Route("/admin/reviews", func(r chi.Router) {
				rt.read(r, auth.ResourceReviews).Get("/", rt.h.Reviews.List)
				rt.read(r, auth.ResourceReviews).Get("/stats", rt.h.Reviews.Stats)
				rt.write(r, auth.ResourceReviews).Put("/{id}", rt.h.Reviews.Update)
				rt.remove(r, auth.ResourceReviews).Delete("/{id}", rt.h.Reviews.Delete)
			})

			r.Route("/activity", func(r chi.Router) {
				rt.read(r, auth.ResourceActivity).Get("/", rt.h.Activity.List)
				rt.read(r, auth.ResourceActivity).Get("/stats", rt.h.Activity.Stats)
			})

			r.Route("/email-logs", func(r chi.Router) {
				rt.read(r, auth.ResourceEmail).Get("/", rt.h.EmailLogs.List)
				rt.read(r, auth.ResourceEmail).Get("/stats", rt.h.EmailLogs.Stats)
				rt.write(r, auth.ResourceEmail).Post("/sync", rt.h.EmailLogs.Sync)
				rt.read(r, auth.ResourceEmail).Get("/{id}", rt.h.EmailLogs.GetByID)
			})

			r.Route("/system-updates", func(r chi.Router) {
				rt.read(r, auth.ResourceSystemUpdates).Get("/", rt.h.SystemUpdates.List)
				rt.write(r, auth.ResourceSystemUpdates).Post("/", rt.h.SystemUpdates.Send)
				rt.read(r, auth.ResourceSystemUpdates).Get("/{id}", rt.h.SystemUpdates.GetByID)
				rt.remove(r, auth.ResourceSystemUpdates).Delete("/{id}", rt.h.SystemUpdates.Delete)
			})
		})
	})

	return r
}

func (rt *Router) read(r chi.Router, resource string) chi.Router {
	return r.With(rt.authMiddleware.RequirePermission(resource, auth.ActionRead))
}

func (rt *Router) write(r chi.Router, resource string) chi.Router {
	return r.With(rt.authMiddleware.RequirePermission(resource, auth.ActionWrite))
}

func (rt *Router) remove(r chi.Router, resource string) chi.Router {
	return r.With(rt.authMiddleware.RequirePermission(resource, auth.ActionDelete))
}

// health is the liveness probe
func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": rt.cfg.App.Name,
	})
}

// healthDB reports database reachability and pool statistics
func (rt *Router) healthDB(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := database.HealthCheck(ctx, rt.db); err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	body := map[string]interface{}{
		"status":  "healthy",
		"service": "database",
	}
	if sqlDB, err := rt.db.DB(); err == nil {
		stats := sqlDB.Stats()
		body["stats"] = map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// healthReady checks every hard dependency
func (rt *Router) healthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]interface{})
	allHealthy := true

	if err := database.HealthCheck(ctx, rt.db); err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		allHealthy = false
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
