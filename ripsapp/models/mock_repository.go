package models

import (
	"context"

	"github.com/pborman/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of Repository for tests.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateEpisode(ctx context.Context, episode *AttentionEpisode) error {
	args := m.Called(ctx, episode)
	return args.Error(0)
}

func (m *MockRepository) GetEpisodeByID(ctx context.Context, id uuid.UUID) (*AttentionEpisode, error) {
	args := m.Called(ctx, id)
	var episode *AttentionEpisode
	if args.Get(0) != nil {
		episode = args.Get(0).(*AttentionEpisode)
	}
	return episode, args.Error(1)
}

func (m *MockRepository) UpdateEpisode(ctx context.Context, episode *AttentionEpisode) error {
	args := m.Called(ctx, episode)
	return args.Error(0)
}

func (m *MockRepository) UpdateEpisodeStatusCheckStatus(ctx context.Context, id uuid.UUID, current, new EpisodeStatus) error {
	args := m.Called(ctx, id, current, new)
	return args.Error(0)
}

func (m *MockRepository) CreateEpisodeService(ctx context.Context, svc *EpisodeService) error {
	args := m.Called(ctx, svc)
	return args.Error(0)
}

func (m *MockRepository) GetEpisodeServices(ctx context.Context, episodeID uuid.UUID) ([]*EpisodeService, error) {
	args := m.Called(ctx, episodeID)
	var services []*EpisodeService
	if args.Get(0) != nil {
		services = args.Get(0).([]*EpisodeService)
	}
	return services, args.Error(1)
}

func (m *MockRepository) UpdateEpisodeServiceCost(ctx context.Context, id uuid.UUID, cost decimal.Decimal) error {
	args := m.Called(ctx, id, cost)
	return args.Error(0)
}

func (m *MockRepository) NextEpisodeSequence(ctx context.Context, companyID uuid.UUID) (int, error) {
	args := m.Called(ctx, companyID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	args := m.Called(ctx, id)
	var patient *Patient
	if args.Get(0) != nil {
		patient = args.Get(0).(*Patient)
	}
	return patient, args.Error(1)
}

func (m *MockRepository) CreateInvoice(ctx context.Context, invoice *Invoice, items []*InvoiceLineItem) error {
	args := m.Called(ctx, invoice, items)
	return args.Error(0)
}

func (m *MockRepository) GetInvoiceByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	args := m.Called(ctx, id)
	var invoice *Invoice
	if args.Get(0) != nil {
		invoice = args.Get(0).(*Invoice)
	}
	return invoice, args.Error(1)
}

func (m *MockRepository) GetInvoiceLineItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceLineItem, error) {
	args := m.Called(ctx, invoiceID)
	var items []*InvoiceLineItem
	if args.Get(0) != nil {
		items = args.Get(0).([]*InvoiceLineItem)
	}
	return items, args.Error(1)
}

func (m *MockRepository) GetInvoicesByIDs(ctx context.Context, ids []uuid.UUID) ([]*Invoice, error) {
	args := m.Called(ctx, ids)
	var invoices []*Invoice
	if args.Get(0) != nil {
		invoices = args.Get(0).([]*Invoice)
	}
	return invoices, args.Error(1)
}

func (m *MockRepository) UpdateInvoiceStatusCheckStatus(ctx context.Context, id uuid.UUID, current, new InvoiceStatus) error {
	args := m.Called(ctx, id, current, new)
	return args.Error(0)
}

func (m *MockRepository) UpdateInvoicePayment(ctx context.Context, invoice *Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockRepository) UpdateInvoiceGlosa(ctx context.Context, invoice *Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockRepository) UpdateInvoiceRIPSGenerated(ctx context.Context, invoice *Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockRepository) NextInvoiceConsecutive(ctx context.Context, companyID uuid.UUID) (int, error) {
	args := m.Called(ctx, companyID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CreatePayment(ctx context.Context, payment *Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockRepository) CreateGlosa(ctx context.Context, glosa *Glosa) error {
	args := m.Called(ctx, glosa)
	return args.Error(0)
}

func (m *MockRepository) GetGlosasByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*Glosa, error) {
	args := m.Called(ctx, invoiceID)
	var glosas []*Glosa
	if args.Get(0) != nil {
		glosas = args.Get(0).([]*Glosa)
	}
	return glosas, args.Error(1)
}

func (m *MockRepository) UpdateGlosa(ctx context.Context, glosa *Glosa) error {
	args := m.Called(ctx, glosa)
	return args.Error(0)
}

func (m *MockRepository) CreateRIPSFile(ctx context.Context, file *RIPSFile, txns []*RIPSTransaction) error {
	args := m.Called(ctx, file, txns)
	return args.Error(0)
}

func (m *MockRepository) GetRIPSFileByID(ctx context.Context, id uuid.UUID) (*RIPSFile, error) {
	args := m.Called(ctx, id)
	var file *RIPSFile
	if args.Get(0) != nil {
		file = args.Get(0).(*RIPSFile)
	}
	return file, args.Error(1)
}

func (m *MockRepository) GetRIPSTransactions(ctx context.Context, fileID uuid.UUID) ([]*RIPSTransaction, error) {
	args := m.Called(ctx, fileID)
	var txns []*RIPSTransaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]*RIPSTransaction)
	}
	return txns, args.Error(1)
}

func (m *MockRepository) UpdateRIPSFileStatusCheckStatus(ctx context.Context, id uuid.UUID, current, new RIPSFileStatus) error {
	args := m.Called(ctx, id, current, new)
	return args.Error(0)
}

func (m *MockRepository) UpdateRIPSFileArtifacts(ctx context.Context, file *RIPSFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockRepository) UpdateRIPSFileSent(ctx context.Context, file *RIPSFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockRepository) UpdateRIPSFileResponse(ctx context.Context, file *RIPSFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}
