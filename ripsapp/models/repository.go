// Repository interfaces for all of the RIPS pipeline data. Implementations
// live in ripsapp/postgres.
package models

import (
	"context"
	"errors"

	"github.com/pborman/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	EpisodeRepository
	PatientRepository
	InvoiceRepository
	RIPSFileRepository
}

type EpisodeRepository interface {
	CreateEpisode(ctx context.Context, episode *AttentionEpisode) error
	GetEpisodeByID(ctx context.Context, id uuid.UUID) (*AttentionEpisode, error)
	UpdateEpisode(ctx context.Context, episode *AttentionEpisode) error

	// UpdateEpisodeStatusCheckStatus updates the episode status iff the
	// current status matches. It is the serialization point that guarantees
	// a single writer per episode; losers observe ErrNotUpdated.
	UpdateEpisodeStatusCheckStatus(ctx context.Context, id uuid.UUID, current, new EpisodeStatus) error

	CreateEpisodeService(ctx context.Context, svc *EpisodeService) error
	GetEpisodeServices(ctx context.Context, episodeID uuid.UUID) ([]*EpisodeService, error)
	UpdateEpisodeServiceCost(ctx context.Context, id uuid.UUID, cost decimal.Decimal) error

	// NextEpisodeSequence returns the next per-company value used to build
	// EP-YYYY-NNNNNN episode numbers.
	NextEpisodeSequence(ctx context.Context, companyID uuid.UUID) (int, error)
}

type PatientRepository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

type InvoiceRepository interface {
	// CreateInvoice persists the invoice and all of its line items in one
	// transaction.
	CreateInvoice(ctx context.Context, invoice *Invoice, items []*InvoiceLineItem) error
	GetInvoiceByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetInvoiceLineItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceLineItem, error)
	GetInvoicesByIDs(ctx context.Context, ids []uuid.UUID) ([]*Invoice, error)

	UpdateInvoiceStatusCheckStatus(ctx context.Context, id uuid.UUID, current, new InvoiceStatus) error
	UpdateInvoicePayment(ctx context.Context, invoice *Invoice) error
	UpdateInvoiceGlosa(ctx context.Context, invoice *Invoice) error
	UpdateInvoiceRIPSGenerated(ctx context.Context, invoice *Invoice) error

	// NextInvoiceConsecutive returns max(consecutive)+1 for the company.
	NextInvoiceConsecutive(ctx context.Context, companyID uuid.UUID) (int, error)

	CreatePayment(ctx context.Context, payment *Payment) error
	CreateGlosa(ctx context.Context, glosa *Glosa) error
	GetGlosasByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*Glosa, error)
	UpdateGlosa(ctx context.Context, glosa *Glosa) error
}

type RIPSFileRepository interface {
	CreateRIPSFile(ctx context.Context, file *RIPSFile, txns []*RIPSTransaction) error
	GetRIPSFileByID(ctx context.Context, id uuid.UUID) (*RIPSFile, error)
	GetRIPSTransactions(ctx context.Context, fileID uuid.UUID) ([]*RIPSTransaction, error)

	UpdateRIPSFileStatusCheckStatus(ctx context.Context, id uuid.UUID, current, new RIPSFileStatus) error
	UpdateRIPSFileArtifacts(ctx context.Context, file *RIPSFile) error
	UpdateRIPSFileSent(ctx context.Context, file *RIPSFile) error
	UpdateRIPSFileResponse(ctx context.Context, file *RIPSFile) error
}

var (
	ErrNotUpdated       = errors.New("record was not updated, no match found")
	ErrEpisodeNotFound  = errors.New("no episode found for given id")
	ErrPatientNotFound  = errors.New("no patient found for given id")
	ErrInvoiceNotFound  = errors.New("no invoice found for given id")
	ErrRIPSFileNotFound = errors.New("no RIPS file found for given id")
)
