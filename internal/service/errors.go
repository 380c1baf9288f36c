package service

import (
	"errors"

	"gorm.io/gorm"
)

// Common service errors
var (
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when the caller is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIntegrationNotConfigured is returned when an optional integration (SMTP, Gmail, Airtable) is absent
	ErrIntegrationNotConfigured = errors.New("integration not configured")
)

// Domain rule errors
var (
	ErrClientNotFound       = errors.New("client not found")
	ErrDealNotFound         = errors.New("deal not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrReviewNotFound       = errors.New("review not found")
	ErrStakeholderNotFound  = errors.New("stakeholder not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrEmailLogNotFound     = errors.New("email log not found")
	ErrSystemUpdateNotFound = errors.New("system update not found")

	ErrClientHasProjects    = errors.New("client has existing projects")
	ErrClientHasDeals       = errors.New("client owns deals")
	ErrTicketBilled         = errors.New("ticket is billed")
	ErrTicketImmutable      = errors.New("billed tickets are immutable")
	ErrBillViaMarkBilled    = errors.New("status billed is only set by mark-billed")
	ErrDuplicateStakeholder = errors.New("client is already a stakeholder on this deal")
	ErrDealClientMismatch   = errors.New("deal does not belong to the client")
	ErrDuplicateInvoice     = errors.New("invoice number already exists")
	ErrInvoiceVoid          = errors.New("invoice is void")
	ErrPaymentExceedsDue    = errors.New("payment exceeds amount due")
	ErrNoTicketsSelected    = errors.New("ticketIds must not be empty")
	ErrNoRecipients         = errors.New("no recipients")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrFileTooLarge         = errors.New("file too large")
	ErrInvalidEntity        = errors.New("unknown document entity")
	ErrBlankTitle           = errors.New("title must not be blank")
)

// External ticket ingestion errors
var (
	ErrMissingAPIKey     = errors.New("API key required")
	ErrUnknownSource     = errors.New("unknown application source")
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrMissingExternalID = errors.New("externalTicketId required")
)

// notFound maps gorm's record-not-found onto a domain sentinel
func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
