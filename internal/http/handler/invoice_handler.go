package handler

import (
	"fmt"
	"net/http"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	logger         *zap.Logger
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param clientId query int false "Filter by client"
// @Param dealId query int false "Filter by deal"
// @Param status query string false "Filter by status (draft, open, paid, void)"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.InvoiceDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	result, err := h.invoiceService.List(r.Context(), page, pageSize,
		parseOptionalUint(r, "clientId"), parseOptionalUint(r, "dealId"), r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, h.logger, err, "list invoices")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create invoice
// @Description total = subtotal + tax and amountDue = total - amountPaid; the number is generated when omitted
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body domain.CreateInvoiceRequest true "Invoice data"
// @Success 201 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInvoiceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	invoice, err := h.invoiceService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create invoice")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/invoices/%d", invoice.ID))
	respondJSON(w, http.StatusCreated, invoice)
}

// @Summary Get invoice
// @Tags Invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get invoice")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// @Summary Record payment
// @Description The invoice becomes paid when the amount due reaches zero
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path int true "Invoice ID"
// @Param request body domain.RecordPaymentRequest true "Payment"
// @Success 200 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	var req domain.RecordPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	invoice, err := h.invoiceService.RecordPayment(r.Context(), id, req.Amount)
	if err != nil {
		handleServiceError(w, h.logger, err, "record payment")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// @Summary Void invoice
// @Tags Invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/void [post]
func (h *InvoiceHandler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.Void(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "void invoice")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}
