package handler

import (
	"net/http"

	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type BillingHandler struct {
	billingService *service.BillingService
	logger         *zap.Logger
}

func NewBillingHandler(billingService *service.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		logger:         logger,
	}
}

// @Summary Deal billing summary
// @Description Invoices, running-balance ledger, totals and unbilled work for a deal
// @Tags Billing
// @Produce json
// @Param id path int true "Deal ID"
// @Success 200 {object} domain.DealBillingDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/billing [get]
func (h *BillingHandler) DealSummary(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	summary, err := h.billingService.DealSummary(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get deal billing")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// @Summary Billing dashboard
// @Description Per-client billed, paid, balance and unbilled work, with totals
// @Tags Billing
// @Produce json
// @Success 200 {object} domain.BillingDashboardDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /billing/dashboard [get]
func (h *BillingHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.billingService.Dashboard(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get billing dashboard")
		return
	}

	respondJSON(w, http.StatusOK, dashboard)
}
