package models

import (
	"time"

	"github.com/pborman/uuid"
	"github.com/shopspring/decimal"
)

type EpisodeStatus string

const (
	EpisodeStatusActive    EpisodeStatus = "active"
	EpisodeStatusClosed    EpisodeStatus = "closed"
	EpisodeStatusBilled    EpisodeStatus = "billed"
	EpisodeStatusCancelled EpisodeStatus = "cancelled"
)

type EpisodeType string

const (
	EpisodeTypeAmbulatory      EpisodeType = "ambulatory"
	EpisodeTypeEmergency       EpisodeType = "emergency"
	EpisodeTypeHospitalization EpisodeType = "hospitalization"
	EpisodeTypeHomeCare        EpisodeType = "home_care"
	EpisodeTypeSurgery         EpisodeType = "surgery"
	EpisodeTypeTelemedicine    EpisodeType = "telemedicine"
)

// ServiceKind tags the clinical module that owns the referenced service
// record. The adapter registry maps each kind to an extraction rule.
type ServiceKind string

const (
	ServiceKindConsultation    ServiceKind = "consultation"
	ServiceKindProcedure       ServiceKind = "procedure"
	ServiceKindMedication      ServiceKind = "medication"
	ServiceKindLaboratory      ServiceKind = "laboratory"
	ServiceKindImaging         ServiceKind = "imaging"
	ServiceKindHospitalization ServiceKind = "hospitalization"
	ServiceKindSurgery         ServiceKind = "surgery"
	ServiceKindOther           ServiceKind = "other"
)

// AttentionEpisode groups every service provided to a patient from admission
// until discharge. It is the unit of aggregation prior to billing and is
// never deleted; cancellation is the only terminal escape.
type AttentionEpisode struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	EpisodeNumber string
	EpisodeType   EpisodeType
	Status        EpisodeStatus

	PatientID uuid.UUID
	PayerID   uuid.UUID

	AdmissionDate time.Time
	DischargeDate *time.Time

	AdmissionDiagnosis string
	DischargeDiagnosis string

	AuthorizationNumber string

	// TotalCost is derived and only authoritative once the episode is closed.
	TotalCost decimal.Decimal

	InvoiceID   uuid.UUID
	BillingDate *time.Time

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Billed reports whether an invoice has been materialized for the episode.
func (e *AttentionEpisode) Billed() bool {
	return e.Status == EpisodeStatusBilled
}

// EpisodeService links an episode to a clinical service record owned by
// another module. It is a reference, not a copy; ServiceCost caches the cost
// snapshot taken at link time so billed episodes stay reproducible even if
// the source record is later purged.
type EpisodeService struct {
	ID        uuid.UUID
	EpisodeID uuid.UUID

	Kind       ServiceKind
	ServiceRef string

	ServiceCost decimal.Decimal

	// CostCached marks ServiceCost as a valid snapshot. Zero is a legal
	// snapshot value, so presence cannot be inferred from the amount.
	CostCached bool

	AddedAt time.Time
}

// Patient carries the demographics the RIPS user record requires.
type Patient struct {
	ID        uuid.UUID
	CompanyID uuid.UUID

	FullName       string
	DocumentType   string
	DocumentNumber string

	// Regime drives the two digit tipoUsuario code (contributivo,
	// subsidiado, vinculado, particular, especial).
	Regime string

	BirthDate time.Time
	Sex       string

	ResidenceCountry      string
	ResidenceMunicipality string
	ResidenceZone         string
	OriginCountry         string
	Disabled              bool
}

type InvoiceStatus string

const (
	InvoiceStatusDraft          InvoiceStatus = "draft"
	InvoiceStatusIssued         InvoiceStatus = "issued"
	InvoiceStatusSent           InvoiceStatus = "sent"
	InvoiceStatusGlosa          InvoiceStatus = "glosa"
	InvoiceStatusGlosaResponse  InvoiceStatus = "glosa_response"
	InvoiceStatusPartialPayment InvoiceStatus = "partial_payment"
	InvoiceStatusPaid           InvoiceStatus = "paid"
	InvoiceStatusCancelled      InvoiceStatus = "cancelled"
)

// Invoice is the billable document materialized from exactly one closed
// episode. Monetary fields are read-only after issuance except the payment
// and glosa bookkeeping.
type Invoice struct {
	ID        uuid.UUID
	CompanyID uuid.UUID

	InvoiceNumber     string
	InvoicePrefix     string
	ConsecutiveNumber int

	InvoiceDate     time.Time
	ServiceDateFrom time.Time
	ServiceDateTo   time.Time

	InvoiceType EpisodeType
	Status      InvoiceStatus

	PayerID   uuid.UUID
	PatientID uuid.UUID

	Subtotal           decimal.Decimal
	DiscountAmount     decimal.Decimal
	TaxAmount          decimal.Decimal
	CopaymentAmount    decimal.Decimal
	ModeratorFeeAmount decimal.Decimal
	Total              decimal.Decimal

	PaidAmount decimal.Decimal
	Balance    decimal.Decimal

	HasGlosa    bool
	GlosaAmount decimal.Decimal

	RIPSGenerated      bool
	RIPSGenerationDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecalculateBalance keeps the balance invariant (balance = total - paid).
func (i *Invoice) RecalculateBalance() {
	i.Balance = i.Total.Sub(i.PaidAmount)
}

// InvoiceLineItem is one row per episode service.
type InvoiceLineItem struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID

	// Position fixes the line order inside the invoice. RIPS consecutivo
	// numbering and byte-stable re-encodes both depend on it.
	Position int

	Kind        ServiceKind
	ServiceCode string
	ServiceName string
	ServiceDate time.Time

	DiagnosisCode string

	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalAmount decimal.Decimal

	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal

	Copayment    decimal.Decimal
	ModeratorFee decimal.Decimal

	AuthorizationNumber string

	IsGlosa     bool
	GlosaReason string

	CreatedAt time.Time
}

// Payment is an append-only record of money received against an invoice.
type Payment struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	InvoiceID uuid.UUID

	PaymentNumber   string
	PaymentDate     time.Time
	PaymentMethod   string
	Amount          decimal.Decimal
	ReferenceNumber string
	Notes           string

	CreatedAt time.Time
}

type GlosaStatus string

const (
	GlosaStatusPending           GlosaStatus = "pending"
	GlosaStatusInReview          GlosaStatus = "in_review"
	GlosaStatusAccepted          GlosaStatus = "accepted"
	GlosaStatusRejected          GlosaStatus = "rejected"
	GlosaStatusPartiallyAccepted GlosaStatus = "partially_accepted"
)

// Glosa is a payer's formal dispute of part of an invoice's value.
type Glosa struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	InvoiceID uuid.UUID

	GlosaNumber string
	GlosaDate   time.Time
	Status      GlosaStatus

	Amount         decimal.Decimal
	AcceptedAmount decimal.Decimal

	Reason   string
	Response string

	ResponseDeadline *time.Time
	ResponseDate     *time.Time

	CreatedAt time.Time
}

type RIPSFileStatus string

const (
	RIPSFileStatusDraft     RIPSFileStatus = "draft"
	RIPSFileStatusGenerated RIPSFileStatus = "generated"
	RIPSFileStatusSent      RIPSFileStatus = "sent"
	RIPSFileStatusAccepted  RIPSFileStatus = "accepted"
	RIPSFileStatusRejected  RIPSFileStatus = "rejected"
	RIPSFileStatusGlosa     RIPSFileStatus = "glosa"
)

// RIPSFile batches one or more invoices for one submission period to one
// payer. Once sent, the transaction set and the file bytes are frozen;
// corrections require a new file plus a credit/debit note transaction.
type RIPSFile struct {
	ID        uuid.UUID
	CompanyID uuid.UUID

	FileNumber string
	Status     RIPSFileStatus

	PeriodStart time.Time
	PeriodEnd   time.Time

	PayerID      uuid.UUID
	ProviderNIT  string
	ProviderCode string

	JSONFilePath string
	TxtFilePath  string

	TotalInvoices int
	TotalPatients int
	TotalAmount   decimal.Decimal

	SentDate     *time.Time
	SentTo       string
	ResponseDate *time.Time

	GeneratedAt *time.Time
	CreatedAt   time.Time
}

type NoteType string

const (
	NoteTypeDebit  NoteType = "debit"
	NoteTypeCredit NoteType = "credit"
)

// RIPSTransaction wraps exactly one invoice inside a RIPS file, optionally
// marked as a credit or debit note.
type RIPSTransaction struct {
	ID         uuid.UUID
	RIPSFileID uuid.UUID
	InvoiceID  uuid.UUID

	NoteType   NoteType
	NoteNumber string

	CreatedAt time.Time
}
