package handler

import (
	"net/http"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

type ContactHandler struct {
	contactService *service.ContactService
	logger         *zap.Logger
}

func NewContactHandler(contactService *service.ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		logger:         logger,
	}
}

// @Summary Submit contact form
// @Description Notifies the team, confirms to the sender and records the lead in Airtable.
// @Description Fails only when every configured branch fails.
// @Tags Contact
// @Accept json
// @Produce json
// @Param request body domain.ContactFormRequest true "Contact form"
// @Success 200 {object} domain.ContactFormResultDTO
// @Failure 400 {object} domain.APIError
// @Router /contact [post]
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.ContactFormRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.contactService.Submit(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "submit contact form")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
