package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pborman/uuid"
	"github.com/saludtotal/rips-app/ripsapp/adapter"
	"github.com/saludtotal/rips-app/ripsapp/aggregator"
	"github.com/saludtotal/rips-app/ripsapp/billing"
	"github.com/saludtotal/rips-app/ripsapp/export"
	"github.com/saludtotal/rips-app/ripsapp/ledger"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type fakeSource struct {
	records map[string]*adapter.RawRecord
}

func (f *fakeSource) Lookup(ctx context.Context, kind models.ServiceKind, ref string) (*adapter.RawRecord, error) {
	record, ok := f.records[ref]
	if !ok {
		return nil, adapter.ErrRecordNotFound
	}
	return record, nil
}

type APITestSuite struct {
	suite.Suite
	repo    *models.MockRepository
	source  *fakeSource
	healthy bool
	server  *httptest.Server
}

func (s *APITestSuite) SetupTest() {
	s.repo = &models.MockRepository{}
	s.source = &fakeSource{records: make(map[string]*adapter.RawRecord)}
	s.healthy = true

	registry := adapter.NewRegistry(s.source)
	agg := aggregator.New(registry, s.repo)
	billingSvc := billing.NewService(s.repo, agg)
	ldgr := ledger.New(s.repo, registry, agg, billingSvc)
	exporter := export.New(s.repo)

	api := NewAPI(s.repo, ldgr, billingSvc, exporter, func() bool { return s.healthy })
	s.server = httptest.NewServer(NewAPIRouter(api))
}

func (s *APITestSuite) TearDownTest() {
	s.server.Close()
}

func (s *APITestSuite) request(method, path string, body interface{}) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.server.Client().Do(req)
	s.NoError(err)
	return resp
}

func (s *APITestSuite) decode(resp *http.Response) map[string]interface{} {
	defer resp.Body.Close()
	var payload map[string]interface{}
	s.NoError(json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func (s *APITestSuite) TestCreateEpisode() {
	companyID := uuid.NewRandom()
	s.repo.On("NextEpisodeSequence", mock.Anything, mock.Anything).Return(12, nil)
	s.repo.On("CreateEpisode", mock.Anything, mock.Anything).Return(nil)

	resp := s.request("POST", "/api/v1/episodes", map[string]string{
		"company_id":     companyID.String(),
		"patient_id":     uuid.NewRandom().String(),
		"payer_id":       uuid.NewRandom().String(),
		"episode_type":   "ambulatory",
		"admission_date": "2025-06-10T08:00:00Z",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	payload := s.decode(resp)
	s.Equal("EP-2025-000012", payload["episode_number"])
	s.Equal("active", payload["status"])
}

func (s *APITestSuite) TestCreateEpisodeMissingParties() {
	resp := s.request("POST", "/api/v1/episodes", map[string]string{"episode_type": "ambulatory"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Contains(s.decode(resp)["error"], "required")
}

func (s *APITestSuite) TestGetEpisodeNotFound() {
	episodeID := uuid.NewRandom()
	s.repo.On("GetEpisodeByID", mock.Anything, episodeID).Return(nil, models.ErrEpisodeNotFound)

	resp := s.request("GET", "/api/v1/episodes/"+episodeID.String(), nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *APITestSuite) TestAttachServiceOnClosedEpisode() {
	episode := &models.AttentionEpisode{
		ID:            uuid.NewRandom(),
		EpisodeNumber: "EP-2025-000001",
		Status:        models.EpisodeStatusClosed,
	}
	s.repo.On("GetEpisodeByID", mock.Anything, episode.ID).Return(episode, nil)

	resp := s.request("POST", fmt.Sprintf("/api/v1/episodes/%s/services", episode.ID), map[string]string{
		"kind": "consultation", "service_ref": "101",
	})
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *APITestSuite) TestAttachServiceWithCostHint() {
	episode := &models.AttentionEpisode{
		ID:            uuid.NewRandom(),
		EpisodeNumber: "EP-2025-000001",
		Status:        models.EpisodeStatusActive,
	}
	s.repo.On("GetEpisodeByID", mock.Anything, episode.ID).Return(episode, nil)
	s.repo.On("CreateEpisodeService", mock.Anything, mock.Anything).Return(nil)

	resp := s.request("POST", fmt.Sprintf("/api/v1/episodes/%s/services", episode.ID), map[string]string{
		"kind": "procedure", "service_ref": "303", "cost": "42000",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("42000", s.decode(resp)["service_cost"])
}

func (s *APITestSuite) TestCancelEpisode() {
	episode := &models.AttentionEpisode{
		ID:            uuid.NewRandom(),
		EpisodeNumber: "EP-2025-000001",
		Status:        models.EpisodeStatusActive,
	}
	s.repo.On("GetEpisodeByID", mock.Anything, episode.ID).Return(episode, nil)
	s.repo.On("UpdateEpisodeStatusCheckStatus", mock.Anything, episode.ID,
		models.EpisodeStatusActive, models.EpisodeStatusCancelled).Return(nil)

	resp := s.request("DELETE", "/api/v1/episodes/"+episode.ID.String(), nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
}

func (s *APITestSuite) TestGetInvoice() {
	invoice := &models.Invoice{
		ID:            uuid.NewRandom(),
		InvoiceNumber: "FAC-00000007",
		Status:        models.InvoiceStatusIssued,
		InvoiceDate:   time.Now(),
		Total:         decimal.RequireFromString("65000"),
	}
	items := []*models.InvoiceLineItem{{
		ID:          uuid.NewRandom(),
		InvoiceID:   invoice.ID,
		ServiceCode: "890701",
		ServiceDate: time.Now(),
		Quantity:    decimal.NewFromInt(1),
		TotalAmount: decimal.RequireFromString("65000"),
	}}
	s.repo.On("GetInvoiceByID", mock.Anything, invoice.ID).Return(invoice, nil)
	s.repo.On("GetInvoiceLineItems", mock.Anything, invoice.ID).Return(items, nil)

	resp := s.request("GET", "/api/v1/invoices/"+invoice.ID.String(), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	payload := s.decode(resp)
	s.Equal("FAC-00000007", payload["invoice_number"])
	s.Len(payload["line_items"], 1)
}

func (s *APITestSuite) TestApproveInvoiceWithoutLineItems() {
	invoice := &models.Invoice{ID: uuid.NewRandom(), InvoiceNumber: "FAC-00000007", Status: models.InvoiceStatusDraft}
	s.repo.On("GetInvoiceByID", mock.Anything, invoice.ID).Return(invoice, nil)
	s.repo.On("GetInvoiceLineItems", mock.Anything, invoice.ID).Return([]*models.InvoiceLineItem{}, nil)

	resp := s.request("POST", fmt.Sprintf("/api/v1/invoices/%s/approve", invoice.ID), nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APITestSuite) TestRecordPaymentInvalidAmount() {
	resp := s.request("POST", fmt.Sprintf("/api/v1/invoices/%s/payments", uuid.NewRandom()), map[string]string{
		"amount": "not-a-number",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APITestSuite) TestRecordPayment() {
	invoice := &models.Invoice{
		ID:            uuid.NewRandom(),
		InvoiceNumber: "FAC-00000007",
		Status:        models.InvoiceStatusSent,
		InvoiceDate:   time.Now(),
		Total:         decimal.RequireFromString("100000"),
	}
	invoice.RecalculateBalance()
	s.repo.On("GetInvoiceByID", mock.Anything, invoice.ID).Return(invoice, nil)
	s.repo.On("CreatePayment", mock.Anything, mock.Anything).Return(nil)
	s.repo.On("UpdateInvoicePayment", mock.Anything, invoice).Return(nil)

	resp := s.request("POST", fmt.Sprintf("/api/v1/invoices/%s/payments", invoice.ID), map[string]string{
		"amount": "100000", "payment_method": "transferencia",
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("paid", s.decode(resp)["status"])
}

func (s *APITestSuite) TestRecordGlosa() {
	invoice := &models.Invoice{
		ID:            uuid.NewRandom(),
		InvoiceNumber: "FAC-00000007",
		Status:        models.InvoiceStatusSent,
		InvoiceDate:   time.Now(),
		Total:         decimal.RequireFromString("100000"),
	}
	s.repo.On("GetInvoiceByID", mock.Anything, invoice.ID).Return(invoice, nil)
	s.repo.On("UpdateInvoiceStatusCheckStatus", mock.Anything, invoice.ID,
		models.InvoiceStatusSent, models.InvoiceStatusGlosa).Return(nil)
	s.repo.On("CreateGlosa", mock.Anything, mock.Anything).Return(nil)
	s.repo.On("UpdateInvoiceGlosa", mock.Anything, invoice).Return(nil)

	resp := s.request("POST", fmt.Sprintf("/api/v1/invoices/%s/glosas", invoice.ID), map[string]string{
		"glosa_number": "GL-001", "amount": "25000", "reason": "tarifas",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("pending", s.decode(resp)["status"])
}

func (s *APITestSuite) TestGetRIPSFileNotFound() {
	fileID := uuid.NewRandom()
	s.repo.On("GetRIPSFileByID", mock.Anything, fileID).Return(nil, models.ErrRIPSFileNotFound)

	resp := s.request("GET", "/api/v1/rips-files/"+fileID.String(), nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *APITestSuite) TestBuildRIPSFileInvalidPeriod() {
	resp := s.request("POST", "/api/v1/rips-files", map[string]interface{}{
		"company_id":   uuid.NewRandom().String(),
		"payer_id":     uuid.NewRandom().String(),
		"period_start": "06/01/2025",
		"period_end":   "2025-06-30",
		"invoice_ids":  []string{uuid.NewRandom().String()},
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APITestSuite) TestHealthCheck() {
	resp := s.request("GET", "/_health", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ok", s.decode(resp)["database"])
}

func (s *APITestSuite) TestHealthCheckDatabaseDown() {
	s.healthy = false
	resp := s.request("GET", "/_health", nil)
	s.Equal(http.StatusBadGateway, resp.StatusCode)
	s.Equal("error", s.decode(resp)["database"])
}

func (s *APITestSuite) TestVersion() {
	resp := s.request("GET", "/_version", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(s.decode(resp)["version"])
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
