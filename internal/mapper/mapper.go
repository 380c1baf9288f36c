package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func stringSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
	}
}

// ToClientDTO converts Client to ClientDTO
func ToClientDTO(client *domain.Client) domain.ClientDTO {
	return domain.ClientDTO{
		ID:          client.ID,
		Name:        client.Name,
		ContactName: client.ContactName,
		FirstName:   client.FirstName,
		LastName:    client.LastName,
		Email:       client.Email,
		Phone:       client.Phone,
		Company:     client.Company,
		Status:      client.Status,
		Source:      client.Source,
		Label:       client.Label,
		Notes:       client.Notes,
		Tags:        stringSlice(client.Tags),
		CreatedAt:   formatTime(client.CreatedAt),
		UpdatedAt:   formatTime(client.UpdatedAt),
	}
}

// ToProjectDTO converts Project to ProjectDTO
func ToProjectDTO(project *domain.Project) domain.ProjectDTO {
	dto := domain.ProjectDTO{
		ID:          project.ID,
		ClientID:    project.ClientID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		Budget:      project.Budget,
		StartDate:   formatTimePtr(project.StartDate),
		EndDate:     formatTimePtr(project.EndDate),
		CreatedAt:   formatTime(project.CreatedAt),
		UpdatedAt:   formatTime(project.UpdatedAt),
	}
	if project.Client != nil {
		dto.ClientName = project.Client.Name
	}
	return dto
}

// ToProjectDTOs converts a slice of projects
func ToProjectDTOs(projects []domain.Project) []domain.ProjectDTO {
	dtos := make([]domain.ProjectDTO, len(projects))
	for i := range projects {
		dtos[i] = ToProjectDTO(&projects[i])
	}
	return dtos
}

// ToDealDTO converts Deal to DealDTO; client name and email come from the preloaded client
func ToDealDTO(deal *domain.Deal) domain.DealDTO {
	dto := domain.DealDTO{
		ID:                deal.ID,
		ClientID:          deal.ClientID,
		Name:              deal.Name,
		Description:       deal.Description,
		Value:             deal.Value,
		Stage:             deal.Stage,
		Priority:          deal.Priority,
		Probability:       deal.Probability,
		HourlyRate:        deal.HourlyRate,
		ExpectedCloseDate: formatTimePtr(deal.ExpectedCloseDate),
		ActualCloseDate:   formatTimePtr(deal.ActualCloseDate),
		OwnerID:           deal.OwnerID,
		Source:            deal.Source,
		NextSteps:         deal.NextSteps,
		Notes:             deal.Notes,
		Tags:              stringSlice(deal.Tags),
		CreatedAt:         formatTime(deal.CreatedAt),
		UpdatedAt:         formatTime(deal.UpdatedAt),
	}
	if deal.Client != nil {
		dto.ClientName = deal.Client.Name
		dto.ClientEmail = deal.Client.Email
	}
	return dto
}

// ToDealDTOs converts a slice of deals
func ToDealDTOs(deals []domain.Deal) []domain.DealDTO {
	dtos := make([]domain.DealDTO, len(deals))
	for i := range deals {
		dtos[i] = ToDealDTO(&deals[i])
	}
	return dtos
}

// ToStakeholderDTO converts DealStakeholder to StakeholderDTO with its contact details
func ToStakeholderDTO(s *domain.DealStakeholder) domain.StakeholderDTO {
	dto := domain.StakeholderDTO{
		ID:              s.ID,
		DealID:          s.DealID,
		ClientID:        s.ClientID,
		Role:            s.Role,
		IsPrimary:       s.IsPrimary,
		ReceivesUpdates: s.ReceivesUpdates,
		ReceivesBilling: s.ReceivesBilling,
		Notes:           s.Notes,
		CreatedAt:       formatTime(s.CreatedAt),
	}
	if s.Client != nil {
		dto.ClientName = s.Client.Name
		dto.ContactName = s.Client.ContactName
		dto.Email = s.Client.Email
		dto.Phone = s.Client.Phone
	}
	return dto
}

// ToStakeholderDTOs converts a slice of stakeholders
func ToStakeholderDTOs(stakeholders []domain.DealStakeholder) []domain.StakeholderDTO {
	dtos := make([]domain.StakeholderDTO, len(stakeholders))
	for i := range stakeholders {
		dtos[i] = ToStakeholderDTO(&stakeholders[i])
	}
	return dtos
}

// ToInteractionDTO converts DealInteraction to InteractionDTO
func ToInteractionDTO(i *domain.DealInteraction) domain.InteractionDTO {
	return domain.InteractionDTO{
		ID:            i.ID,
		DealID:        i.DealID,
		Type:          i.Type,
		Subject:       i.Subject,
		Content:       i.Content,
		ContactPerson: i.ContactPerson,
		OwnerID:       i.OwnerID,
		Status:        i.Status,
		EmailSent:     i.EmailSent,
		ScheduledAt:   formatTimePtr(i.ScheduledAt),
		CompletedAt:   formatTimePtr(i.CompletedAt),
		CreatedAt:     formatTime(i.CreatedAt),
	}
}

// ToInteractionDTOs converts a slice of interactions
func ToInteractionDTOs(interactions []domain.DealInteraction) []domain.InteractionDTO {
	dtos := make([]domain.InteractionDTO, len(interactions))
	for i := range interactions {
		dtos[i] = ToInteractionDTO(&interactions[i])
	}
	return dtos
}

// ToDocumentDTO converts Document to DocumentDTO; the storage path is not exposed
func ToDocumentDTO(doc *domain.Document) domain.DocumentDTO {
	return domain.DocumentDTO{
		ID:          doc.ID,
		EntityType:  doc.EntityType,
		EntityID:    doc.EntityID,
		Title:       doc.Title,
		Description: doc.Description,
		FileType:    doc.FileType,
		FileName:    doc.FileName,
		FileSize:    doc.FileSize,
		MimeType:    doc.MimeType,
		Category:    doc.Category,
		Tags:        stringSlice(doc.Tags),
		Status:      doc.Status,
		UploadedBy:  doc.UploadedBy,
		CreatedAt:   formatTime(doc.CreatedAt),
	}
}

// ToDocumentDTOs converts a slice of documents
func ToDocumentDTOs(docs []domain.Document) []domain.DocumentDTO {
	dtos := make([]domain.DocumentDTO, len(docs))
	for i := range docs {
		dtos[i] = ToDocumentDTO(&docs[i])
	}
	return dtos
}

// ToTicketDTO converts SupportTicket to TicketDTO. The effective rate and the
// live billable amount use the preloaded deal's rate when present.
func ToTicketDTO(ticket *domain.SupportTicket) domain.TicketDTO {
	var dealRate *float64
	if ticket.Deal != nil {
		dealRate = ticket.Deal.HourlyRate
	}
	rate := domain.EffectiveHourlyRate(ticket.HourlyRate, dealRate)

	dto := domain.TicketDTO{
		ID:                       ticket.ID,
		ClientID:                 ticket.ClientID,
		DealID:                   ticket.DealID,
		ApplicationSource:        ticket.ApplicationSource,
		ExternalTicketID:         ticket.ExternalTicketID,
		SubmitterEmail:           ticket.SubmitterEmail,
		SubmitterName:            ticket.SubmitterName,
		Title:                    ticket.Title,
		Description:              ticket.Description,
		ScreenshotURL:            ticket.ScreenshotURL,
		Page:                     ticket.Page,
		Priority:                 ticket.Priority,
		Status:                   ticket.Status,
		Resolution:               ticket.Resolution,
		TimeSpent:                ticket.TimeSpent,
		HourlyRate:               ticket.HourlyRate,
		BillableAmount:           ticket.BillableAmount,
		EffectiveHourlyRate:      rate,
		CalculatedBillableAmount: domain.CalculateBillableAmount(ticket.TimeSpent, rate),
		ReadyToBill:              ticket.ReadyToBill,
		InvoiceID:                ticket.InvoiceID,
		ResolvedAt:               formatTimePtr(ticket.ResolvedAt),
		BilledAt:                 formatTimePtr(ticket.BilledAt),
		CreatedAt:                formatTime(ticket.CreatedAt),
		UpdatedAt:                formatTime(ticket.UpdatedAt),
	}
	if ticket.Client != nil {
		dto.ClientName = ticket.Client.Name
	}
	if ticket.Deal != nil {
		dto.DealName = ticket.Deal.Name
	}
	return dto
}

// ToTicketDTOs converts a slice of tickets
func ToTicketDTOs(tickets []domain.SupportTicket) []domain.TicketDTO {
	dtos := make([]domain.TicketDTO, len(tickets))
	for i := range tickets {
		dtos[i] = ToTicketDTO(&tickets[i])
	}
	return dtos
}

// ToExternalTicketStatusDTO exposes only what a partner application may see
func ToExternalTicketStatusDTO(ticket *domain.SupportTicket) domain.ExternalTicketStatusDTO {
	dto := domain.ExternalTicketStatusDTO{
		ID:         ticket.ID,
		Title:      ticket.Title,
		Status:     ticket.Status,
		Priority:   ticket.Priority,
		Resolution: ticket.Resolution,
		TimeSpent:  ticket.TimeSpent,
		ResolvedAt: formatTimePtr(ticket.ResolvedAt),
		CreatedAt:  formatTime(ticket.CreatedAt),
		UpdatedAt:  formatTime(ticket.UpdatedAt),
	}
	if ticket.ExternalTicketID != nil {
		dto.ExternalTicketID = *ticket.ExternalTicketID
	}
	return dto
}

// ToInvoiceDTO converts Invoice to InvoiceDTO
func ToInvoiceDTO(invoice *domain.Invoice) domain.InvoiceDTO {
	lineItems := []domain.InvoiceLineItem(invoice.LineItems)
	if lineItems == nil {
		lineItems = []domain.InvoiceLineItem{}
	}
	dto := domain.InvoiceDTO{
		ID:            invoice.ID,
		ClientID:      invoice.ClientID,
		DealID:        invoice.DealID,
		InvoiceNumber: invoice.InvoiceNumber,
		Description:   invoice.Description,
		Subtotal:      invoice.Subtotal,
		Tax:           invoice.Tax,
		Total:         invoice.Total,
		AmountPaid:    invoice.AmountPaid,
		AmountDue:     invoice.AmountDue,
		Currency:      invoice.Currency,
		Status:        invoice.Status,
		DueDate:       formatTimePtr(invoice.DueDate),
		PaidAt:        formatTimePtr(invoice.PaidAt),
		LineItems:     lineItems,
		CreatedAt:     formatTime(invoice.CreatedAt),
	}
	if invoice.Client != nil {
		dto.ClientName = invoice.Client.Name
	}
	return dto
}

// ToInvoiceDTOs converts a slice of invoices
func ToInvoiceDTOs(invoices []domain.Invoice) []domain.InvoiceDTO {
	dtos := make([]domain.InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = ToInvoiceDTO(&invoices[i])
	}
	return dtos
}

// ToReviewDTO converts Review to ReviewDTO
func ToReviewDTO(review *domain.Review) domain.ReviewDTO {
	return domain.ReviewDTO{
		ID:            review.ID,
		ClientID:      review.ClientID,
		ProjectID:     review.ProjectID,
		Phase:         review.Phase,
		ReviewerName:  review.ReviewerName,
		ReviewerEmail: review.ReviewerEmail,
		CompanyName:   review.CompanyName,
		Rating:        review.Rating,
		Comment:       review.Comment,
		Status:        review.Status,
		IsPublic:      review.IsPublic,
		Source:        review.Source,
		SubmittedAt:   formatTime(review.SubmittedAt),
	}
}

// ToPublicReviewDTO drops the reviewer's email address
func ToPublicReviewDTO(review *domain.Review) domain.ReviewDTO {
	dto := ToReviewDTO(review)
	dto.ReviewerEmail = ""
	return dto
}

// ToActivityDTO converts ActivityLog to ActivityDTO, decoding details JSON
func ToActivityDTO(entry *domain.ActivityLog) domain.ActivityDTO {
	var details interface{}
	if len(entry.Details) > 0 {
		_ = json.Unmarshal(entry.Details, &details)
	}
	return domain.ActivityDTO{
		ID:         entry.ID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		UserID:     entry.UserID,
		Details:    details,
		CreatedAt:  formatTime(entry.CreatedAt),
	}
}

// ToEmailLogDTO converts EmailLog to EmailLogDTO. Bodies are included only when withBody is set.
func ToEmailLogDTO(log *domain.EmailLog, withBody bool) domain.EmailLogDTO {
	dto := domain.EmailLogDTO{
		ID:        log.ID,
		GmailID:   log.GmailID,
		From:      log.FromAddress,
		To:        stringSlice(log.ToAddresses),
		Cc:        stringSlice(log.CcAddresses),
		Subject:   log.Subject,
		Status:    log.Status,
		LastEvent: log.LastEvent,
		Category:  log.Category,
		ClientID:  log.ClientID,
		DealID:    log.DealID,
		SentAt:    formatTime(log.SentAt),
	}
	if withBody {
		dto.HTMLBody = log.HTMLBody
		dto.TextBody = log.TextBody
	}
	return dto
}

// ToEmailLogDTOs converts a slice of email logs without bodies
func ToEmailLogDTOs(logs []domain.EmailLog) []domain.EmailLogDTO {
	dtos := make([]domain.EmailLogDTO, len(logs))
	for i := range logs {
		dtos[i] = ToEmailLogDTO(&logs[i], false)
	}
	return dtos
}

// ToSystemUpdateDTO converts SystemUpdate to SystemUpdateDTO with any loaded recipients
func ToSystemUpdateDTO(update *domain.SystemUpdate) domain.SystemUpdateDTO {
	dto := domain.SystemUpdateDTO{
		ID:             update.ID,
		Title:          update.Title,
		Content:        update.Content,
		Category:       update.Category,
		SentAt:         formatTimePtr(update.SentAt),
		RecipientCount: update.RecipientCount,
		CreatedBy:      update.CreatedBy,
		CreatedAt:      formatTime(update.CreatedAt),
	}
	for _, r := range update.Recipients {
		dto.Recipients = append(dto.Recipients, domain.SystemUpdateRecipientDTO{
			ID:          r.ID,
			DealID:      r.DealID,
			Email:       r.Email,
			EmailSent:   r.EmailSent,
			EmailSentAt: formatTimePtr(r.EmailSentAt),
			Error:       r.Error,
		})
	}
	return dto
}

// FormatError creates a formatted error message
func FormatError(entity, operation string, err error) error {
	return fmt.Errorf("failed to %s %s: %w", operation, entity, err)
}
