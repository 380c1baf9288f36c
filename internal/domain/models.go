package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// UserRole represents the role of a back-office user
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"
)

// User is a back-office account that can sign in to the admin API
type User struct {
	BaseModel
	Username     string   `gorm:"type:varchar(100);not null;uniqueIndex"`
	Email        string   `gorm:"type:varchar(255);not null"`
	Name         string   `gorm:"type:varchar(200)"`
	PasswordHash string   `gorm:"type:varchar(255);not null"`
	Role         UserRole `gorm:"type:varchar(50);not null"`
	LastLoginAt  *time.Time
}

// ClientStatus represents the lifecycle status of a client
type ClientStatus string

const (
	ClientStatusLead     ClientStatus = "lead"
	ClientStatusProspect ClientStatus = "prospect"
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
	ClientStatusChurned  ClientStatus = "churned"
)

// ClientLabelHidden suppresses automated/system contacts from default listings
const ClientLabelHidden = "hidden"

// Labels and source assigned to contacts discovered by email sync
const (
	ClientLabelContact    = "contact"
	ClientSourceEmailSync = "email_sync"
)

// Client is a contact or company the business works with
type Client struct {
	BaseModel
	Name        string                      `gorm:"type:varchar(200);not null;index"`
	ContactName string                      `gorm:"type:varchar(200)"`
	FirstName   string                      `gorm:"type:varchar(100)"`
	LastName    string                      `gorm:"type:varchar(100)"`
	Email       string                      `gorm:"type:varchar(255);not null;index"`
	Phone       string                      `gorm:"type:varchar(50)"`
	Company     string                      `gorm:"type:varchar(200)"`
	Status      ClientStatus                `gorm:"type:varchar(50);not null;index"`
	Source      string                      `gorm:"type:varchar(100)"`
	Label       *string                     `gorm:"type:varchar(50);index"`
	Notes       string                      `gorm:"type:text"`
	Tags        datatypes.JSONSlice[string] `gorm:"not null"`
	Projects    []Project                   `gorm:"foreignKey:ClientID"`
}

// IsHidden reports whether the client is suppressed from default listings
func (c *Client) IsHidden() bool {
	return c.Label != nil && *c.Label == ClientLabelHidden
}

// ProjectStatus represents the status of a project
type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

// Project is a piece of delivered work for a client
type Project struct {
	BaseModel
	ClientID    uint          `gorm:"not null;index"`
	Client      *Client       `gorm:"foreignKey:ClientID"`
	Name        string        `gorm:"type:varchar(200);not null"`
	Description string        `gorm:"type:text"`
	Status      ProjectStatus `gorm:"type:varchar(50);not null;index"`
	Budget      *float64      `gorm:"type:decimal(12,2)"`
	StartDate   *time.Time
	EndDate     *time.Time
}

// DealStage represents the pipeline stage of a deal
type DealStage string

const (
	DealStageProspect      DealStage = "prospect"
	DealStageQualification DealStage = "qualification"
	DealStageProposal      DealStage = "proposal"
	DealStageNegotiation   DealStage = "negotiation"
	DealStageActive        DealStage = "active"
	DealStageClosedWon     DealStage = "closed_won"
	DealStageClosedLost    DealStage = "closed_lost"
	DealStageClosed        DealStage = "closed"
)

// OpenDealStages are the stages in which a deal accepts externally submitted tickets
var OpenDealStages = []DealStage{DealStageActive, DealStageNegotiation, DealStageProposal}

// Priority is shared by deals and tickets
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Deal is a sales or engagement opportunity owned by exactly one primary client
type Deal struct {
	BaseModel
	ClientID          uint      `gorm:"not null;index"`
	Client            *Client   `gorm:"foreignKey:ClientID"`
	Name              string    `gorm:"type:varchar(200);not null"`
	Description       string    `gorm:"type:text"`
	Value             float64   `gorm:"type:decimal(12,2);not null"`
	Stage             DealStage `gorm:"type:varchar(50);not null;index"`
	Priority          Priority  `gorm:"type:varchar(20);not null"`
	Probability       int       `gorm:"not null"`
	HourlyRate        *float64  `gorm:"type:decimal(10,2)"`
	ExpectedCloseDate *time.Time
	ActualCloseDate   *time.Time
	OwnerID           *uint
	Source            string                      `gorm:"type:varchar(100)"`
	NextSteps         string                      `gorm:"type:text"`
	Notes             string                      `gorm:"type:text"`
	Tags              datatypes.JSONSlice[string] `gorm:"not null"`
}

// DealStakeholder associates an additional client with a deal
type DealStakeholder struct {
	BaseModel
	DealID          uint    `gorm:"not null;uniqueIndex:idx_deal_stakeholders_deal_client"`
	ClientID        uint    `gorm:"not null;index;uniqueIndex:idx_deal_stakeholders_deal_client"`
	Client          *Client `gorm:"foreignKey:ClientID"`
	Role            string  `gorm:"type:varchar(100);not null"`
	IsPrimary       bool    `gorm:"not null"`
	ReceivesUpdates bool    `gorm:"not null"`
	ReceivesBilling bool    `gorm:"not null"`
	Notes           string  `gorm:"type:text"`
}

// InteractionType represents the kind of deal interaction
type InteractionType string

const (
	InteractionTypeEmail   InteractionType = "email"
	InteractionTypeCall    InteractionType = "call"
	InteractionTypeMeeting InteractionType = "meeting"
	InteractionTypeNote    InteractionType = "note"
	InteractionTypeTask    InteractionType = "task"
)

// DealInteraction is a touchpoint recorded against a deal
type DealInteraction struct {
	BaseModel
	DealID        uint            `gorm:"not null;index"`
	Type          InteractionType `gorm:"type:varchar(50);not null"`
	Subject       string          `gorm:"type:varchar(255)"`
	Content       string          `gorm:"type:text"`
	ContactPerson string          `gorm:"type:varchar(200)"`
	OwnerID       *uint
	Status        string `gorm:"type:varchar(50);not null"`
	EmailSent     bool   `gorm:"not null"`
	ScheduledAt   *time.Time
	CompletedAt   *time.Time
}

// DocumentStatus marks whether a document is visible
type DocumentStatus string

const (
	DocumentStatusActive  DocumentStatus = "active"
	DocumentStatusDeleted DocumentStatus = "deleted"
)

// Entity types a document can be attached to
const (
	DocumentEntityDeal    = "deal"
	DocumentEntityClient  = "client"
	DocumentEntityProject = "project"
)

// Document is a file attached to a deal, client or project
type Document struct {
	BaseModel
	EntityType  string                      `gorm:"type:varchar(50);not null;index:idx_documents_entity"`
	EntityID    uint                        `gorm:"not null;index:idx_documents_entity"`
	Title       string                      `gorm:"type:varchar(255);not null"`
	Description string                      `gorm:"type:text"`
	FileType    string                      `gorm:"type:varchar(20);not null"`
	FileName    string                      `gorm:"type:varchar(255);not null"`
	FileSize    int64                       `gorm:"not null"`
	MimeType    string                      `gorm:"type:varchar(255);not null"`
	StoragePath string                      `gorm:"type:varchar(500);not null"`
	Category    string                      `gorm:"type:varchar(100)"`
	Tags        datatypes.JSONSlice[string] `gorm:"not null"`
	Status      DocumentStatus              `gorm:"type:varchar(20);not null;index"`
	UploadedBy  *uint
}

// TicketStatus represents the position of a ticket in its lifecycle
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusBilled     TicketStatus = "billed"
	TicketStatusClosed     TicketStatus = "closed"
)

// ApplicationSourceDirect marks tickets logged inside the CRM itself
const ApplicationSourceDirect = "direct"

// SupportTicket is a unit of billable or non-billable work
type SupportTicket struct {
	BaseModel
	ClientID          *uint        `gorm:"index"`
	Client            *Client      `gorm:"foreignKey:ClientID"`
	DealID            *uint        `gorm:"index"`
	Deal              *Deal        `gorm:"foreignKey:DealID"`
	ApplicationSource string       `gorm:"type:varchar(50);not null;index;uniqueIndex:idx_support_tickets_external"`
	ExternalTicketID  *string      `gorm:"type:varchar(255);uniqueIndex:idx_support_tickets_external,where:external_ticket_id IS NOT NULL"`
	SubmitterEmail    string       `gorm:"type:varchar(255)"`
	SubmitterName     string       `gorm:"type:varchar(200)"`
	Title             string       `gorm:"type:varchar(255);not null"`
	Description       string       `gorm:"type:text;not null"`
	ScreenshotURL     *string      `gorm:"type:varchar(1000)"`
	Page              *string      `gorm:"type:varchar(500)"`
	Priority          Priority     `gorm:"type:varchar(20);not null;index"`
	Status            TicketStatus `gorm:"type:varchar(50);not null;index"`
	Resolution        *string      `gorm:"type:text"`
	TimeSpent         float64      `gorm:"type:decimal(10,2);not null"`
	HourlyRate        *float64     `gorm:"type:decimal(10,2)"`
	BillableAmount    float64      `gorm:"type:decimal(12,2);not null"`
	ReadyToBill       bool         `gorm:"not null;index"`
	InvoiceID         *uint        `gorm:"index"`
	ResolvedAt        *time.Time
	BilledAt          *time.Time
}

// InvoiceStatus represents the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
)

// InvoiceLineItem is one billed line on an invoice
type InvoiceLineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Quantity    float64 `json:"quantity"`
}

// Invoice is a billing document for a client, optionally scoped to a deal
type Invoice struct {
	BaseModel
	ClientID      uint          `gorm:"not null;index"`
	Client        *Client       `gorm:"foreignKey:ClientID"`
	DealID        *uint         `gorm:"index"`
	InvoiceNumber string        `gorm:"type:varchar(50);not null;uniqueIndex"`
	Description   string        `gorm:"type:text"`
	Subtotal      float64       `gorm:"type:decimal(12,2);not null"`
	Tax           float64       `gorm:"type:decimal(12,2);not null"`
	Total         float64       `gorm:"type:decimal(12,2);not null"`
	AmountPaid    float64       `gorm:"type:decimal(12,2);not null"`
	AmountDue     float64       `gorm:"type:decimal(12,2);not null"`
	Currency      string        `gorm:"type:varchar(3);not null"`
	Status        InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	DueDate       *time.Time
	PaidAt        *time.Time
	LineItems     datatypes.JSONSlice[InvoiceLineItem] `gorm:"not null"`
}

// NumberSequence hands out consecutive numbers per prefix, e.g. INV-202610-
type NumberSequence struct {
	ID           uint      `gorm:"primaryKey"`
	Prefix       string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	LastSequence int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// ReviewStatus represents the moderation state of a review
type ReviewStatus string

const (
	ReviewStatusNew      ReviewStatus = "new"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusHidden   ReviewStatus = "hidden"
)

// ReviewSourcePhaseSurvey marks reviews captured by the post-phase survey form
const ReviewSourcePhaseSurvey = "phase-survey"

// Review is post-engagement client feedback
type Review struct {
	BaseModel
	ClientID      *uint        `gorm:"index"`
	ProjectID     *uint        `gorm:"index"`
	Phase         string       `gorm:"type:varchar(120)"`
	ReviewerName  string       `gorm:"type:varchar(120);not null"`
	ReviewerEmail string       `gorm:"type:varchar(255);not null"`
	CompanyName   string       `gorm:"type:varchar(160)"`
	Rating        int          `gorm:"not null;index"`
	Comment       string       `gorm:"type:text;not null"`
	Status        ReviewStatus `gorm:"type:varchar(20);not null;index"`
	IsPublic      bool         `gorm:"not null"`
	Source        string       `gorm:"type:varchar(50);not null"`
	SubmittedAt   time.Time    `gorm:"not null"`
}

// ActivityEntityType names the kind of entity an activity refers to
type ActivityEntityType string

const (
	ActivityEntityClient       ActivityEntityType = "client"
	ActivityEntityProject      ActivityEntityType = "project"
	ActivityEntityDeal         ActivityEntityType = "deal"
	ActivityEntityStakeholder  ActivityEntityType = "stakeholder"
	ActivityEntityTicket       ActivityEntityType = "ticket"
	ActivityEntityInvoice      ActivityEntityType = "invoice"
	ActivityEntityReview       ActivityEntityType = "review"
	ActivityEntityDocument     ActivityEntityType = "document"
	ActivityEntitySystemUpdate ActivityEntityType = "system_update"
)

// Activity actions
const (
	ActivityActionCreated         = "created"
	ActivityActionCreatedExternal = "created_external"
	ActivityActionUpdated         = "updated"
	ActivityActionStatusChanged   = "status_changed"
	ActivityActionDeleted         = "deleted"
	ActivityActionBilled          = "billed"
	ActivityActionPaymentRecorded = "payment_recorded"
	ActivityActionEmailSent       = "email_sent"
)

// ActivityLog is an append-only audit trail entry
type ActivityLog struct {
	ID         uint               `gorm:"primaryKey"`
	EntityType ActivityEntityType `gorm:"type:varchar(50);not null;index:idx_activity_entity"`
	EntityID   uint               `gorm:"not null;index:idx_activity_entity"`
	Action     string             `gorm:"type:varchar(50);not null;index"`
	UserID     *uint              `gorm:"index"`
	Details    datatypes.JSON
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName keeps the singular table name used by the migrations
func (ActivityLog) TableName() string {
	return "activity_log"
}

// Email categories
const (
	EmailCategoryInbound  = "inbound"
	EmailCategoryOutbound = "outbound"
)

// EmailLog is a record of an inbound or outbound email
type EmailLog struct {
	BaseModel
	GmailID     *string                     `gorm:"type:varchar(100);uniqueIndex"`
	MessageID   string                      `gorm:"type:varchar(255)"`
	FromAddress string                      `gorm:"type:varchar(500);not null;index"`
	ToAddresses datatypes.JSONSlice[string] `gorm:"not null"`
	CcAddresses datatypes.JSONSlice[string] `gorm:"not null"`
	Subject     string                      `gorm:"type:varchar(500);not null"`
	HTMLBody    *string                     `gorm:"type:text"`
	TextBody    *string                     `gorm:"type:text"`
	Status      string                      `gorm:"type:varchar(50);not null;index"`
	LastEvent   string                      `gorm:"type:varchar(50)"`
	Category    string                      `gorm:"type:varchar(50);not null;index"`
	ClientID    *uint                       `gorm:"index"`
	DealID      *uint                       `gorm:"index"`
	SentAt      time.Time                   `gorm:"not null;index"`
	SyncedAt    *time.Time
}

// SystemUpdateCategory classifies broadcast updates
type SystemUpdateCategory string

const (
	SystemUpdateAnnouncement SystemUpdateCategory = "announcement"
	SystemUpdateFeature      SystemUpdateCategory = "feature"
	SystemUpdateUpdate       SystemUpdateCategory = "update"
	SystemUpdateMaintenance  SystemUpdateCategory = "maintenance"
)

// Label returns the human-readable subject prefix for the category
func (c SystemUpdateCategory) Label() string {
	switch c {
	case SystemUpdateAnnouncement:
		return "Announcement"
	case SystemUpdateFeature:
		return "New Feature"
	case SystemUpdateMaintenance:
		return "Maintenance Notice"
	default:
		return "Update"
	}
}

// SystemUpdate is a broadcast message sent to the clients of selected deals
type SystemUpdate struct {
	BaseModel
	Title          string               `gorm:"type:varchar(255);not null"`
	Content        string               `gorm:"type:text;not null"`
	Category       SystemUpdateCategory `gorm:"type:varchar(50);not null"`
	SentAt         *time.Time
	RecipientCount int `gorm:"not null"`
	CreatedBy      *uint
	Recipients     []SystemUpdateRecipient `gorm:"foreignKey:UpdateID"`
}

// SystemUpdateRecipient tracks delivery of a system update to one deal contact
type SystemUpdateRecipient struct {
	ID          uint   `gorm:"primaryKey"`
	UpdateID    uint   `gorm:"not null;index"`
	DealID      uint   `gorm:"not null;index"`
	Email       string `gorm:"type:varchar(255);not null"`
	EmailSent   bool   `gorm:"not null"`
	EmailSentAt *time.Time
	Error       string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
}
