package domain

import "time"

// Pagination response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// API Response wrapper
type APIResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
}

// Response DTOs

type UserDTO struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
}

type AuthTokenDTO struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserDTO   `json:"user"`
}

type ClientDTO struct {
	ID          uint         `json:"id"`
	Name        string       `json:"name"`
	ContactName string       `json:"contactName,omitempty"`
	FirstName   string       `json:"firstName,omitempty"`
	LastName    string       `json:"lastName,omitempty"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone,omitempty"`
	Company     string       `json:"company,omitempty"`
	Status      ClientStatus `json:"status"`
	Source      string       `json:"source,omitempty"`
	Label       *string      `json:"label"`
	Notes       string       `json:"notes,omitempty"`
	Tags        []string     `json:"tags"`
	CreatedAt   string       `json:"createdAt"`
	UpdatedAt   string       `json:"updatedAt"`
}

// ClientListItemDTO is a client row annotated with its most recent deal
type ClientListItemDTO struct {
	ClientDTO
	Deal *DealDTO `json:"deal"`
}

type ClientDetailDTO struct {
	ClientDTO
	Projects  []ProjectDTO  `json:"projects"`
	Deals     []DealDTO     `json:"deals"`
	EmailLogs []EmailLogDTO `json:"emailLogs"`
}

type ClientStatsDTO struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}

type ProjectDTO struct {
	ID          uint          `json:"id"`
	ClientID    uint          `json:"clientId"`
	ClientName  string        `json:"clientName,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	Budget      *float64      `json:"budget"`
	StartDate   *string       `json:"startDate"`
	EndDate     *string       `json:"endDate"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
}

type ProjectStatsDTO struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}

type DealDTO struct {
	ID                uint      `json:"id"`
	ClientID          uint      `json:"clientId"`
	ClientName        string    `json:"clientName,omitempty"`
	ClientEmail       string    `json:"clientEmail,omitempty"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Value             float64   `json:"value"`
	Stage             DealStage `json:"stage"`
	Priority          Priority  `json:"priority"`
	Probability       int       `json:"probability"`
	HourlyRate        *float64  `json:"hourlyRate"`
	ExpectedCloseDate *string   `json:"expectedCloseDate"`
	ActualCloseDate   *string   `json:"actualCloseDate"`
	OwnerID           *uint     `json:"ownerId"`
	Source            string    `json:"source,omitempty"`
	NextSteps         string    `json:"nextSteps,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Tags              []string  `json:"tags"`
	CreatedAt         string    `json:"createdAt"`
	UpdatedAt         string    `json:"updatedAt"`
}

// DealListItemDTO is a deal row annotated with related record counts
type DealListItemDTO struct {
	DealDTO
	InteractionsCount int64 `json:"interactionsCount"`
	DocumentsCount    int64 `json:"documentsCount"`
	StakeholdersCount int64 `json:"stakeholdersCount"`
}

type DealDetailDTO struct {
	DealDTO
	Client       *ClientDTO       `json:"client"`
	Interactions []InteractionDTO `json:"interactions"`
	Documents    []DocumentDTO    `json:"documents"`
	Projects     []ProjectDTO     `json:"projects"`
	Invoices     []InvoiceDTO     `json:"invoices"`
	Tickets      []TicketDTO      `json:"tickets"`
	Stakeholders []StakeholderDTO `json:"stakeholders"`
	Billing      InvoiceSummary   `json:"billing"`
	UnbilledWork UnbilledWork     `json:"unbilledWork"`
}

type StakeholderDTO struct {
	ID              uint   `json:"id"`
	DealID          uint   `json:"dealId"`
	ClientID        uint   `json:"clientId"`
	Role            string `json:"role"`
	IsPrimary       bool   `json:"isPrimary"`
	ReceivesUpdates bool   `json:"receivesUpdates"`
	ReceivesBilling bool   `json:"receivesBilling"`
	Notes           string `json:"notes,omitempty"`
	ClientName      string `json:"clientName,omitempty"`
	ContactName     string `json:"contactName,omitempty"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	CreatedAt       string `json:"createdAt"`
}

type InteractionDTO struct {
	ID            uint            `json:"id"`
	DealID        uint            `json:"dealId"`
	Type          InteractionType `json:"type"`
	Subject       string          `json:"subject,omitempty"`
	Content       string          `json:"content,omitempty"`
	ContactPerson string          `json:"contactPerson,omitempty"`
	OwnerID       *uint           `json:"ownerId"`
	Status        string          `json:"status"`
	EmailSent     bool            `json:"emailSent"`
	ScheduledAt   *string         `json:"scheduledAt"`
	CompletedAt   *string         `json:"completedAt"`
	CreatedAt     string          `json:"createdAt"`
}

type DocumentDTO struct {
	ID          uint           `json:"id"`
	EntityType  string         `json:"entityType"`
	EntityID    uint           `json:"entityId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	FileType    string         `json:"fileType"`
	FileName    string         `json:"fileName"`
	FileSize    int64          `json:"fileSize"`
	MimeType    string         `json:"mimeType"`
	Category    string         `json:"category,omitempty"`
	Tags        []string       `json:"tags"`
	Status      DocumentStatus `json:"status"`
	UploadedBy  *uint          `json:"uploadedBy"`
	CreatedAt   string         `json:"createdAt"`
}

type TicketDTO struct {
	ID                       uint         `json:"id"`
	ClientID                 *uint        `json:"clientId"`
	ClientName               string       `json:"clientName,omitempty"`
	DealID                   *uint        `json:"dealId"`
	DealName                 string       `json:"dealName,omitempty"`
	ApplicationSource        string       `json:"applicationSource"`
	ExternalTicketID         *string      `json:"externalTicketId"`
	SubmitterEmail           string       `json:"submitterEmail,omitempty"`
	SubmitterName            string       `json:"submitterName,omitempty"`
	Title                    string       `json:"title"`
	Description              string       `json:"description"`
	ScreenshotURL            *string      `json:"screenshotUrl"`
	Page                     *string      `json:"page"`
	Priority                 Priority     `json:"priority"`
	Status                   TicketStatus `json:"status"`
	Resolution               *string      `json:"resolution"`
	TimeSpent                float64      `json:"timeSpent"`
	HourlyRate               *float64     `json:"hourlyRate"`
	BillableAmount           float64      `json:"billableAmount"`
	EffectiveHourlyRate      float64      `json:"effectiveHourlyRate"`
	CalculatedBillableAmount float64      `json:"calculatedBillableAmount"`
	ReadyToBill              bool         `json:"readyToBill"`
	InvoiceID                *uint        `json:"invoiceId"`
	ResolvedAt               *string      `json:"resolvedAt"`
	BilledAt                 *string      `json:"billedAt"`
	CreatedAt                string       `json:"createdAt"`
	UpdatedAt                string       `json:"updatedAt"`
}

// TicketListResponse is a paginated ticket page plus counts per status
type TicketListResponse struct {
	PaginatedResponse
	StatusCounts map[string]int64 `json:"statusCounts"`
}

type TicketStatsDTO struct {
	Total               int64            `json:"total"`
	ByStatus            map[string]int64 `json:"byStatus"`
	ByPriority          map[string]int64 `json:"byPriority"`
	ByApplicationSource map[string]int64 `json:"byApplicationSource"`
	TotalUnbilledAmount float64          `json:"totalUnbilledAmount"`
}

type MarkBilledResultDTO struct {
	Tickets []TicketDTO `json:"tickets"`
	Billed  int         `json:"billed"`
	Skipped []uint      `json:"skipped"`
}

type ExternalTicketStatusDTO struct {
	ID               uint         `json:"id"`
	ExternalTicketID string       `json:"externalTicketId"`
	Title            string       `json:"title"`
	Status           TicketStatus `json:"status"`
	Priority         Priority     `json:"priority"`
	Resolution       *string      `json:"resolution"`
	TimeSpent        float64      `json:"timeSpent"`
	ResolvedAt       *string      `json:"resolvedAt"`
	CreatedAt        string       `json:"createdAt"`
	UpdatedAt        string       `json:"updatedAt"`
}

// ExternalTicketReceiptDTO acknowledges a partner ticket submission
type ExternalTicketReceiptDTO struct {
	ID            uint         `json:"id"`
	Title         string       `json:"title"`
	Status        TicketStatus `json:"status"`
	ClientMatched bool         `json:"clientMatched"`
	DealMatched   bool         `json:"dealMatched"`
	Duplicate     bool         `json:"duplicate"`
	CreatedAt     string       `json:"createdAt"`
}

type ExternalSourcesDTO struct {
	Status  string   `json:"status"`
	Sources []string `json:"sources"`
}

type InvoiceDTO struct {
	ID            uint              `json:"id"`
	ClientID      uint              `json:"clientId"`
	ClientName    string            `json:"clientName,omitempty"`
	DealID        *uint             `json:"dealId"`
	InvoiceNumber string            `json:"invoiceNumber"`
	Description   string            `json:"description,omitempty"`
	Subtotal      float64           `json:"subtotal"`
	Tax           float64           `json:"tax"`
	Total         float64           `json:"total"`
	AmountPaid    float64           `json:"amountPaid"`
	AmountDue     float64           `json:"amountDue"`
	Currency      string            `json:"currency"`
	Status        InvoiceStatus     `json:"status"`
	DueDate       *string           `json:"dueDate"`
	PaidAt        *string           `json:"paidAt"`
	LineItems     []InvoiceLineItem `json:"lineItems"`
	CreatedAt     string            `json:"createdAt"`
}

type DealBillingDTO struct {
	Deal         DealDTO       `json:"deal"`
	Client       *ClientDTO    `json:"client"`
	Invoices     []InvoiceDTO  `json:"invoices"`
	Transactions []LedgerEntry `json:"transactions"`
	Summary      BillingTotals `json:"summary"`
	UnbilledWork UnbilledWork  `json:"unbilledWork"`
	Tickets      []TicketDTO   `json:"billableTickets"`
}

// BillingTotals extends the invoice summary with the ledger's closing balance
type BillingTotals struct {
	InvoiceSummary
	CurrentBalance float64 `json:"currentBalance"`
}

type ClientBillingDTO struct {
	ClientID        uint    `json:"clientId"`
	ClientName      string  `json:"clientName"`
	TotalBilled     float64 `json:"totalBilled"`
	TotalPaid       float64 `json:"totalPaid"`
	Balance         float64 `json:"balance"`
	UnbilledWork    float64 `json:"unbilledWork"`
	NextCharge      float64 `json:"nextCharge"`
	InvoiceCount    int     `json:"invoiceCount"`
	LastInvoiceDate *string `json:"lastInvoiceDate"`
}

type BillingDashboardDTO struct {
	Clients           []ClientBillingDTO `json:"clients"`
	TotalOutstanding  float64            `json:"totalOutstanding"`
	TotalUnbilledWork float64            `json:"totalUnbilledWork"`
	TotalPaid         float64            `json:"totalPaid"`
}

type ReviewDTO struct {
	ID            uint         `json:"id"`
	ClientID      *uint        `json:"clientId"`
	ProjectID     *uint        `json:"projectId"`
	Phase         string       `json:"phase,omitempty"`
	ReviewerName  string       `json:"reviewerName"`
	ReviewerEmail string       `json:"reviewerEmail,omitempty"`
	CompanyName   string       `json:"companyName,omitempty"`
	Rating        int          `json:"rating"`
	Comment       string       `json:"comment"`
	Status        ReviewStatus `json:"status"`
	IsPublic      bool         `json:"isPublic"`
	Source        string       `json:"source"`
	SubmittedAt   string       `json:"submittedAt"`
}

type ReviewStatsDTO struct {
	Total         int64   `json:"total"`
	AverageRating float64 `json:"averageRating"`
	Approved      int64   `json:"approved"`
	New           int64   `json:"new"`
	Hidden        int64   `json:"hidden"`
	Public        int64   `json:"public"`
}

type ActivityDTO struct {
	ID         uint               `json:"id"`
	EntityType ActivityEntityType `json:"entityType"`
	EntityID   uint               `json:"entityId"`
	Action     string             `json:"action"`
	UserID     *uint              `json:"userId"`
	Details    interface{}        `json:"details"`
	CreatedAt  string             `json:"createdAt"`
}

type ActivityStatsDTO struct {
	Days         int              `json:"days"`
	Total        int64            `json:"total"`
	ByEntityType map[string]int64 `json:"byEntityType"`
	ByAction     map[string]int64 `json:"byAction"`
}

type EmailLogDTO struct {
	ID        uint     `json:"id"`
	GmailID   *string  `json:"gmailId"`
	From      string   `json:"from"`
	To        []string `json:"to"`
	Cc        []string `json:"cc"`
	Subject   string   `json:"subject"`
	HTMLBody  *string  `json:"htmlBody,omitempty"`
	TextBody  *string  `json:"textBody,omitempty"`
	Status    string   `json:"status"`
	LastEvent string   `json:"lastEvent,omitempty"`
	Category  string   `json:"category"`
	ClientID  *uint    `json:"clientId"`
	DealID    *uint    `json:"dealId"`
	SentAt    string   `json:"sentAt"`
}

type EmailStatsDTO struct {
	Total      int64            `json:"total"`
	Recent     int64            `json:"recent"`
	ByCategory map[string]int64 `json:"byCategory"`
	ByStatus   map[string]int64 `json:"byStatus"`
}

type EmailSyncResultDTO struct {
	TotalSynced int `json:"totalSynced"`
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	Contacts    int `json:"contacts"`
}

type SystemUpdateDTO struct {
	ID             uint                       `json:"id"`
	Title          string                     `json:"title"`
	Content        string                     `json:"content"`
	Category       SystemUpdateCategory       `json:"category"`
	SentAt         *string                    `json:"sentAt"`
	RecipientCount int                        `json:"recipientCount"`
	CreatedBy      *uint                      `json:"createdBy"`
	Recipients     []SystemUpdateRecipientDTO `json:"recipients,omitempty"`
	CreatedAt      string                     `json:"createdAt"`
}

type SystemUpdateRecipientDTO struct {
	ID          uint    `json:"id"`
	DealID      uint    `json:"dealId"`
	Email       string  `json:"email"`
	EmailSent   bool    `json:"emailSent"`
	EmailSentAt *string `json:"emailSentAt"`
	Error       string  `json:"error,omitempty"`
}

// DeliveryResult reports the outcome of one recipient in a fan-out send
type DeliveryResult struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

type FanOutResultDTO struct {
	Sent          int              `json:"sent"`
	Failed        int              `json:"failed"`
	Recipients    []DeliveryResult `json:"recipients"`
	InteractionID *uint            `json:"interactionId,omitempty"`
}

type ContactFormResultDTO struct {
	NotificationSent bool `json:"notificationSent"`
	ConfirmationSent bool `json:"confirmationSent"`
	CRMSynced        bool `json:"crmSynced"`
}

// Request DTOs

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

type CreateClientRequest struct {
	Name        string       `json:"name" validate:"required,max=200"`
	ContactName string       `json:"contactName,omitempty" validate:"max=200"`
	FirstName   string       `json:"firstName,omitempty" validate:"max=100"`
	LastName    string       `json:"lastName,omitempty" validate:"max=100"`
	Email       string       `json:"email" validate:"required,email,max=255"`
	Phone       string       `json:"phone,omitempty" validate:"max=50"`
	Company     string       `json:"company,omitempty" validate:"max=200"`
	Status      ClientStatus `json:"status,omitempty" validate:"omitempty,oneof=lead prospect active inactive churned"`
	Source      string       `json:"source,omitempty" validate:"max=100"`
	Label       *string      `json:"label,omitempty" validate:"omitempty,max=50"`
	Notes       string       `json:"notes,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
}

// UpdateClientRequest is a partial patch; nil fields are left untouched
type UpdateClientRequest struct {
	Name        *string       `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	ContactName *string       `json:"contactName,omitempty" validate:"omitempty,max=200"`
	FirstName   *string       `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName    *string       `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email       *string       `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone       *string       `json:"phone,omitempty" validate:"omitempty,max=50"`
	Company     *string       `json:"company,omitempty" validate:"omitempty,max=200"`
	Status      *ClientStatus `json:"status,omitempty" validate:"omitempty,oneof=lead prospect active inactive churned"`
	Source      *string       `json:"source,omitempty" validate:"omitempty,max=100"`
	Label       *string       `json:"label,omitempty" validate:"omitempty,max=50"`
	Notes       *string       `json:"notes,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
}

type CreateProjectRequest struct {
	ClientID    uint          `json:"clientId" validate:"required"`
	Name        string        `json:"name" validate:"required,max=200"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=planning in_progress completed on_hold cancelled"`
	Budget      *float64      `json:"budget,omitempty" validate:"omitempty,gte=0"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	EndDate     *time.Time    `json:"endDate,omitempty"`
}

type UpdateProjectRequest struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=planning in_progress completed on_hold cancelled"`
	Budget      *float64       `json:"budget,omitempty" validate:"omitempty,gte=0"`
	StartDate   *time.Time     `json:"startDate,omitempty"`
	EndDate     *time.Time     `json:"endDate,omitempty"`
}

type CreateDealRequest struct {
	ClientID          uint       `json:"clientId" validate:"required"`
	Name              string     `json:"name" validate:"required,max=200"`
	Description       string     `json:"description,omitempty"`
	Value             float64    `json:"value" validate:"gte=0"`
	Stage             DealStage  `json:"stage,omitempty" validate:"omitempty,oneof=prospect qualification proposal negotiation active closed_won closed_lost closed"`
	Priority          Priority   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Probability       int        `json:"probability" validate:"gte=0,lte=100"`
	HourlyRate        *float64   `json:"hourlyRate,omitempty" validate:"omitempty,gte=0"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
	OwnerID           *uint      `json:"ownerId,omitempty"`
	Source            string     `json:"source,omitempty" validate:"max=100"`
	NextSteps         string     `json:"nextSteps,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	Tags              []string   `json:"tags,omitempty"`
}

type UpdateDealRequest struct {
	Name              *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description       *string    `json:"description,omitempty"`
	Value             *float64   `json:"value,omitempty" validate:"omitempty,gte=0"`
	Stage             *DealStage `json:"stage,omitempty" validate:"omitempty,oneof=prospect qualification proposal negotiation active closed_won closed_lost closed"`
	Priority          *Priority  `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Probability       *int       `json:"probability,omitempty" validate:"omitempty,gte=0,lte=100"`
	HourlyRate        *float64   `json:"hourlyRate,omitempty" validate:"omitempty,gte=0"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
	ActualCloseDate   *time.Time `json:"actualCloseDate,omitempty"`
	OwnerID           *uint      `json:"ownerId,omitempty"`
	Source            *string    `json:"source,omitempty" validate:"omitempty,max=100"`
	NextSteps         *string    `json:"nextSteps,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	Tags              []string   `json:"tags,omitempty"`
}

type CreateInteractionRequest struct {
	Type          InteractionType `json:"type" validate:"required,oneof=email call meeting note task"`
	Subject       string          `json:"subject,omitempty" validate:"max=255"`
	Content       string          `json:"content,omitempty"`
	ContactPerson string          `json:"contactPerson,omitempty" validate:"max=200"`
	Status        string          `json:"status,omitempty" validate:"omitempty,oneof=scheduled completed cancelled"`
	ScheduledAt   *time.Time      `json:"scheduledAt,omitempty"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
}

type AddStakeholderRequest struct {
	ClientID        uint   `json:"clientId" validate:"required"`
	Role            string `json:"role,omitempty" validate:"max=100"`
	IsPrimary       *bool  `json:"isPrimary,omitempty"`
	ReceivesUpdates *bool  `json:"receivesUpdates,omitempty"`
	ReceivesBilling *bool  `json:"receivesBilling,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type UpdateStakeholderRequest struct {
	Role            *string `json:"role,omitempty" validate:"omitempty,min=1,max=100"`
	IsPrimary       *bool   `json:"isPrimary,omitempty"`
	ReceivesUpdates *bool   `json:"receivesUpdates,omitempty"`
	ReceivesBilling *bool   `json:"receivesBilling,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

type CreateTicketRequest struct {
	ClientID       *uint        `json:"clientId,omitempty"`
	DealID         *uint        `json:"dealId,omitempty"`
	Title          string       `json:"title" validate:"required,notblank,max=255"`
	Description    string       `json:"description" validate:"required,notblank"`
	ScreenshotURL  string       `json:"screenshotUrl,omitempty" validate:"omitempty,url,max=1000"`
	Page           string       `json:"page,omitempty" validate:"max=500"`
	Priority       Priority     `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Status         TicketStatus `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress resolved closed"`
	TimeSpent      float64      `json:"timeSpent" validate:"gte=0"`
	HourlyRate     *float64     `json:"hourlyRate,omitempty" validate:"omitempty,gte=0"`
	ReadyToBill    bool         `json:"readyToBill"`
	SubmitterEmail string       `json:"submitterEmail,omitempty" validate:"omitempty,email"`
	SubmitterName  string       `json:"submitterName,omitempty" validate:"max=200"`
}

type UpdateTicketRequest struct {
	ClientID    *uint         `json:"clientId,omitempty"`
	DealID      *uint         `json:"dealId,omitempty"`
	Title       *string       `json:"title,omitempty" validate:"omitempty,notblank,max=255"`
	Description *string       `json:"description,omitempty" validate:"omitempty,notblank"`
	Resolution  *string       `json:"resolution,omitempty"`
	Priority    *Priority     `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Status      *TicketStatus `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress resolved billed closed"`
	TimeSpent   *float64      `json:"timeSpent,omitempty" validate:"omitempty,gte=0"`
	HourlyRate  *float64      `json:"hourlyRate,omitempty" validate:"omitempty,gte=0"`
	ReadyToBill *bool         `json:"readyToBill,omitempty"`
}

type MarkBilledRequest struct {
	TicketIDs []uint `json:"ticketIds" validate:"required,min=1"`
	InvoiceID *uint  `json:"invoiceId,omitempty"`
}

// ExternalTicketRequest is submitted by partner applications
type ExternalTicketRequest struct {
	APIKey            string   `json:"apiKey,omitempty"`
	ApplicationSource string   `json:"applicationSource,omitempty"`
	ExternalTicketID  string   `json:"externalTicketId,omitempty" validate:"max=255"`
	SubmitterEmail    string   `json:"submitterEmail" validate:"required,email,max=255"`
	SubmitterName     string   `json:"submitterName,omitempty" validate:"max=200"`
	Title             string   `json:"title" validate:"required,notblank,max=255"`
	Description       string   `json:"description" validate:"required,notblank"`
	ScreenshotURL     string   `json:"screenshotUrl,omitempty" validate:"omitempty,url,max=1000"`
	Page              string   `json:"page,omitempty" validate:"max=500"`
	Priority          Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
}

type CreateInvoiceRequest struct {
	ClientID      uint              `json:"clientId" validate:"required"`
	DealID        *uint             `json:"dealId,omitempty"`
	InvoiceNumber string            `json:"invoiceNumber,omitempty" validate:"max=50"`
	Description   string            `json:"description,omitempty"`
	Subtotal      float64           `json:"subtotal" validate:"gte=0"`
	Tax           float64           `json:"tax" validate:"gte=0"`
	AmountPaid    float64           `json:"amountPaid" validate:"gte=0"`
	Currency      string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Status        InvoiceStatus     `json:"status,omitempty" validate:"omitempty,oneof=draft open"`
	DueDate       *time.Time        `json:"dueDate,omitempty"`
	LineItems     []InvoiceLineItem `json:"lineItems,omitempty" validate:"dive"`
}

type RecordPaymentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

type SubmitReviewRequest struct {
	ReviewerName  string `json:"reviewerName" validate:"required,min=2,max=120"`
	ReviewerEmail string `json:"reviewerEmail" validate:"required,email,max=255"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment" validate:"required,min=10,max=5000"`
	Phase         string `json:"phase,omitempty" validate:"max=120"`
	CompanyName   string `json:"companyName,omitempty" validate:"max=160"`
	ClientID      *uint  `json:"clientId,omitempty"`
	ProjectID     *uint  `json:"projectId,omitempty"`
}

type UpdateReviewRequest struct {
	Status   *ReviewStatus `json:"status,omitempty" validate:"omitempty,oneof=new approved hidden"`
	IsPublic *bool         `json:"isPublic,omitempty"`
}

type SendDealUpdateRequest struct {
	Subject string `json:"subject" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
}

// BillingNoticeRequest optionally adds a note to the generated billing summary
type BillingNoticeRequest struct {
	Subject string `json:"subject,omitempty" validate:"max=255"`
	Message string `json:"message,omitempty" validate:"max=5000"`
}

type SendSystemUpdateRequest struct {
	Title    string               `json:"title" validate:"required,max=255"`
	Content  string               `json:"content" validate:"required"`
	Category SystemUpdateCategory `json:"category" validate:"required,oneof=announcement feature update maintenance"`
	DealIDs  []uint               `json:"dealIds" validate:"required,min=1"`
}

type ContactFormRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Company string `json:"company,omitempty" validate:"max=160"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Service string `json:"service,omitempty" validate:"max=120"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

type EmailSyncRequest struct {
	MaxResults         int64  `json:"maxResults,omitempty" validate:"omitempty,gte=1,lte=500"`
	Query              string `json:"query,omitempty" validate:"max=500"`
	Type               string `json:"type,omitempty" validate:"omitempty,oneof=all sent received"`
	FilterBusinessOnly *bool  `json:"filterBusinessOnly,omitempty"`
}
