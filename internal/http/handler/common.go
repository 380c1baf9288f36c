package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// rejects whitespace-only strings, which required lets through
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}

	apiErr := domain.NewAPIError(http.StatusBadRequest, domain.ErrorTypeValidation, "One or more fields failed validation")
	apiErr.Title = "Validation Error"
	apiErr.Errors = fields
	respondJSON(w, http.StatusBadRequest, apiErr)
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "email":
		return "Must be a valid email address"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "lt":
		return fmt.Sprintf("Must be less than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	if field == "ID" {
		return "id"
	}
	if strings.HasSuffix(field, "IDs") {
		return strings.ToLower(field[:1]) + strings.TrimSuffix(field[1:], "IDs") + "Ids"
	}
	if strings.HasSuffix(field, "ID") {
		return strings.ToLower(field[:1]) + strings.TrimSuffix(field[1:], "ID") + "Id"
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.NewAPIError(status, getErrorType(status), message))
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	default:
		return domain.ErrorTypeInternal
	}
}

// errorMapping translates a service sentinel into a response. An empty
// message means the wrapped error text is shown.
type errorMapping struct {
	target  error
	status  int
	message string
}

var serviceErrors = []errorMapping{
	{service.ErrClientNotFound, http.StatusNotFound, "Client not found"},
	{service.ErrDealNotFound, http.StatusNotFound, "Deal not found"},
	{service.ErrProjectNotFound, http.StatusNotFound, "Project not found"},
	{service.ErrTicketNotFound, http.StatusNotFound, "Ticket not found"},
	{service.ErrInvoiceNotFound, http.StatusNotFound, "Invoice not found"},
	{service.ErrReviewNotFound, http.StatusNotFound, "Review not found"},
	{service.ErrStakeholderNotFound, http.StatusNotFound, "Stakeholder not found"},
	{service.ErrDocumentNotFound, http.StatusNotFound, "Document not found"},
	{service.ErrEmailLogNotFound, http.StatusNotFound, "Email log not found"},
	{service.ErrSystemUpdateNotFound, http.StatusNotFound, "System update not found"},

	{service.ErrClientHasProjects, http.StatusBadRequest, "Cannot delete client with existing projects. Please delete or reassign projects first."},
	{service.ErrClientHasDeals, http.StatusBadRequest, "Cannot delete client that owns deals. Please delete or reassign deals first."},
	{service.ErrTicketBilled, http.StatusBadRequest, "Cannot delete a billed ticket"},
	{service.ErrTicketImmutable, http.StatusBadRequest, "Billed tickets cannot be modified"},
	{service.ErrBillViaMarkBilled, http.StatusBadRequest, "Use mark-billed to bill tickets"},
	{service.ErrDuplicateStakeholder, http.StatusBadRequest, "This contact is already a stakeholder"},
	{service.ErrDealClientMismatch, http.StatusBadRequest, "Deal does not belong to the client"},
	{service.ErrDuplicateInvoice, http.StatusBadRequest, "Invoice number already exists"},
	{service.ErrInvoiceVoid, http.StatusBadRequest, "Invoice is void"},
	{service.ErrPaymentExceedsDue, http.StatusBadRequest, "Payment exceeds amount due"},
	{service.ErrNoTicketsSelected, http.StatusBadRequest, "ticketIds must not be empty"},
	{service.ErrNoRecipients, http.StatusBadRequest, "No recipients to notify"},
	{service.ErrUnsupportedFileType, http.StatusBadRequest, ""},
	{service.ErrInvalidEntity, http.StatusBadRequest, "Entity type must be deal, client or project"},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File too large"},
	{service.ErrUnknownSource, http.StatusBadRequest, "Unknown application source"},
	{service.ErrMissingExternalID, http.StatusBadRequest, "externalTicketId is required"},
	{service.ErrBlankTitle, http.StatusBadRequest, "Title must not be blank"},
	{service.ErrInvalidInput, http.StatusBadRequest, ""},
	{service.ErrConflict, http.StatusConflict, ""},

	{service.ErrMissingAPIKey, http.StatusUnauthorized, "API key required"},
	{service.ErrInvalidAPIKey, http.StatusUnauthorized, "Invalid API key"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
}

// handleServiceError maps a service error onto a response. Unmapped errors
// and missing integrations are logged and returned as 500.
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			message := m.message
			if message == "" {
				message = clientMessage(err, m.target)
			}
			respondWithError(w, m.status, message)
			return
		}
	}

	logger.Error("failed to "+action, zap.Error(err))
	if errors.Is(err, service.ErrIntegrationNotConfigured) {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithError(w, http.StatusInternalServerError, "Failed to "+action)
}

// clientMessage drops any "failed to ..." prefixes added while the error
// travelled up, keeping the sentinel and its detail.
func clientMessage(err, target error) string {
	msg := err.Error()
	if idx := strings.Index(msg, target.Error()); idx > 0 {
		msg = msg[idx:]
	}
	return msg
}

// decodeAndValidate reads a JSON body into req and validates it; it writes
// the error response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return false
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// parseUintParam reads a positive integer URL parameter
func parseUintParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return uint(id), nil
}

// parseOptionalUint reads a positive integer query parameter; absent or invalid values yield nil
func parseOptionalUint(r *http.Request, key string) *uint {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	v := uint(id)
	return &v
}

func parseOptionalBool(r *http.Request, key string) *bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return nil
	}
	return &v
}

func parseOptionalInt(r *http.Request, key string) *int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return nil
	}
	return &v
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return defaultVal
	}
	return v
}

// parsePagination reads page and pageSize, applying the default and cap
func parsePagination(r *http.Request) (int, int) {
	page := parseIntQuery(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := parseIntQuery(r, "pageSize", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
