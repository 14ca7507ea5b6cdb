// Package web exposes the episode, invoice and RIPS file operations over
// HTTP.
package web

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pborman/uuid"
	"github.com/saludtotal/rips-app/log"
	"github.com/saludtotal/rips-app/ripsapp/billing"
	"github.com/saludtotal/rips-app/ripsapp/constants"
	ripserrors "github.com/saludtotal/rips-app/ripsapp/errors"
	"github.com/saludtotal/rips-app/ripsapp/export"
	"github.com/saludtotal/rips-app/ripsapp/ledger"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
)

type API struct {
	r        models.Repository
	ledger   *ledger.Ledger
	billing  *billing.Service
	exporter *export.Exporter

	healthCheck func() bool
}

func NewAPI(r models.Repository, l *ledger.Ledger, b *billing.Service, e *export.Exporter, healthCheck func() bool) *API {
	return &API{r: r, ledger: l, billing: b, exporter: e, healthCheck: healthCheck}
}

type createEpisodeRequest struct {
	CompanyID           string `json:"company_id"`
	PatientID           string `json:"patient_id"`
	PayerID             string `json:"payer_id"`
	EpisodeType         string `json:"episode_type"`
	AdmissionDate       string `json:"admission_date"`
	AdmissionDiagnosis  string `json:"admission_diagnosis"`
	AuthorizationNumber string `json:"authorization_number"`
}

func (a *API) createEpisode(w http.ResponseWriter, r *http.Request) {
	var req createEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid request body"})
		return
	}

	args := ledger.NewEpisodeArgs{
		CompanyID:           uuid.Parse(req.CompanyID),
		PatientID:           uuid.Parse(req.PatientID),
		PayerID:             uuid.Parse(req.PayerID),
		EpisodeType:         models.EpisodeType(req.EpisodeType),
		AdmissionDiagnosis:  req.AdmissionDiagnosis,
		AuthorizationNumber: req.AuthorizationNumber,
	}
	if req.AdmissionDate != "" {
		admission, err := time.Parse(time.RFC3339, req.AdmissionDate)
		if err != nil {
			writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid admission_date"})
			return
		}
		args.AdmissionDate = admission
	}

	episode, err := a.ledger.CreateEpisode(r.Context(), args)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newEpisodeResponse(episode))
}

func (a *API) getEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := uuid.Parse(chi.URLParam(r, "episodeID"))
	if episodeID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid episode id"})
		return
	}

	episode, err := a.r.GetEpisodeByID(r.Context(), episodeID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, newEpisodeResponse(episode))
}

type attachServiceRequest struct {
	Kind       string `json:"kind"`
	ServiceRef string `json:"service_ref"`
	Cost       string `json:"cost,omitempty"`
}

func (a *API) attachService(w http.ResponseWriter, r *http.Request) {
	episodeID := uuid.Parse(chi.URLParam(r, "episodeID"))
	if episodeID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid episode id"})
		return
	}

	var req attachServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid request body"})
		return
	}

	var costHint *decimal.Decimal
	if req.Cost != "" {
		cost, err := decimal.NewFromString(req.Cost)
		if err != nil {
			writeError(w, r, &ripserrors.InvalidAmountError{Amount: req.Cost})
			return
		}
		costHint = &cost
	}

	svc, err := a.ledger.Attach(r.Context(), episodeID, models.ServiceKind(req.Kind), req.ServiceRef, costHint)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newServiceResponse(svc))
}

type closeEpisodeRequest struct {
	DischargeDiagnosis string `json:"discharge_diagnosis"`
}

func (a *API) closeEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := uuid.Parse(chi.URLParam(r, "episodeID"))
	if episodeID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid episode id"})
		return
	}

	var req closeEpisodeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid request body"})
			return
		}
	}

	episode, err := a.ledger.Close(r.Context(), episodeID, req.DischargeDiagnosis)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, newEpisodeResponse(episode))
}

func (a *API) generateInvoice(w http.ResponseWriter, r *http.Request) {
	episodeID := uuid.Parse(chi.URLParam(r, "episodeID"))
	if episodeID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid episode id"})
		return
	}

	invoice, err := a.ledger.GenerateInvoice(r.Context(), episodeID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newInvoiceResponse(invoice, nil))
}

func (a *API) cancelEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := uuid.Parse(chi.URLParam(r, "episodeID"))
	if episodeID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid episode id"})
		return
	}

	if err := a.ledger.Cancel(r.Context(), episodeID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if invoiceID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid invoice id"})
		return
	}

	invoice, err := a.r.GetInvoiceByID(r.Context(), invoiceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := a.r.GetInvoiceLineItems(r.Context(), invoiceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, newInvoiceResponse(invoice, items))
}

func (a *API) approveInvoice(w http.ResponseWriter, r *http.Request) {
	a.invoiceTransition(w, r, a.billing.Approve)
}

func (a *API) sendInvoice(w http.ResponseWriter, r *http.Request) {
	a.invoiceTransition(w, r, a.billing.MarkSent)
}

func (a *API) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	a.invoiceTransition(w, r, a.billing.Cancel)
}

type recordPaymentRequest struct {
	Amount          string `json:"amount"`
	PaymentDate     string `json:"payment_date,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

func (a *API) recordPayment(w http.ResponseWriter, r *http.Request) {
	invoiceID := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if invoiceID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid invoice id"})
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, r, &ripserrors.InvalidAmountError{Amount: req.Amount})
		return
	}

	args := billing.PaymentArgs{
		Amount:          amount,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}
	if req.PaymentDate != "" {
		paymentDate, err := time.Parse(time.RFC3339, req.PaymentDate)
		if err != nil {
			writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid payment_date"})
			return
		}
		args.PaymentDate = paymentDate
	}

	invoice, err := a.billing.RecordPayment(r.Context(), invoiceID, args)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, newInvoiceResponse(invoice, nil))
}

type recordGlosaRequest struct {
	GlosaNumber string `json:"glosa_number"`
	Amount      string `json:"amount"`
	Reason      string `json:"reason,omitempty"`
}

func (a *API) recordGlosa(w http.ResponseWriter, r *http.Request) {
	invoiceID := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if invoiceID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid invoice id"})
		return
	}

	var req recordGlosaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, r, &ripserrors.InvalidAmountError{Amount: req.Amount})
		return
	}

	glosa, err := a.billing.RecordGlosa(r.Context(), invoiceID, billing.GlosaArgs{
		GlosaNumber: req.GlosaNumber,
		Amount:      amount,
		Reason:      req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newGlosaResponse(glosa))
}

func (a *API) resolveGlosas(w http.ResponseWriter, r *http.Request) {
	invoiceID := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if invoiceID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid invoice id"})
		return
	}

	invoice, err := a.billing.ResolveGlosas(r.Context(), invoiceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, newInvoiceResponse(invoice, nil))
}

type buildRIPSFileRequest struct {
	CompanyID    string   `json:"company_id"`
	PayerID      string   `json:"payer_id"`
	PeriodStart  string   `json:"period_start"`
	PeriodEnd    string   `json:"period_end"`
	ProviderNIT  string   `json:"provider_nit,omitempty"`
	ProviderCode string   `json:"provider_code,omitempty"`
	InvoiceIDs   []string `json:"invoice_ids"`
}

func (a *API) buildRIPSFile(w http.ResponseWriter, r *http.Request) {
	var req buildRIPSFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid request body"})
		return
	}

	periodStart, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid period_start"})
		return
	}
	periodEnd, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid period_end"})
		return
	}

	members := make([]export.Member, 0, len(req.InvoiceIDs))
	for _, id := range req.InvoiceIDs {
		invoiceID := uuid.Parse(id)
		if invoiceID == nil {
			writeError(w, r, &ripserrors.ValidationError{Msg: "invalid invoice id " + id})
			return
		}
		members = append(members, export.Member{InvoiceID: invoiceID})
	}

	file, err := a.exporter.BuildFile(r.Context(), export.BuildFileArgs{
		CompanyID:    uuid.Parse(req.CompanyID),
		PayerID:      uuid.Parse(req.PayerID),
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
		ProviderNIT:  req.ProviderNIT,
		ProviderCode: req.ProviderCode,
		Members:      members,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newRIPSFileResponse(file))
}

func (a *API) getRIPSFile(w http.ResponseWriter, r *http.Request) {
	fileID := uuid.Parse(chi.URLParam(r, "fileID"))
	if fileID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid file id"})
		return
	}

	file, err := a.r.GetRIPSFileByID(r.Context(), fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, newRIPSFileResponse(file))
}

func (a *API) generateRIPSFile(w http.ResponseWriter, r *http.Request) {
	fileID := uuid.Parse(chi.URLParam(r, "fileID"))
	if fileID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid file id"})
		return
	}

	file, err := a.exporter.Generate(r.Context(), fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, newRIPSFileResponse(file))
}

type sendRIPSFileRequest struct {
	SentTo string `json:"sent_to"`
}

func (a *API) sendRIPSFile(w http.ResponseWriter, r *http.Request) {
	fileID := uuid.Parse(chi.URLParam(r, "fileID"))
	if fileID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid file id"})
		return
	}

	var req sendRIPSFileRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid request body"})
			return
		}
	}

	file, err := a.exporter.MarkSent(r.Context(), fileID, req.SentTo)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, newRIPSFileResponse(file))
}

type ripsFileResponseRequest struct {
	Verdict string `json:"verdict"`
}

func (a *API) recordRIPSFileResponse(w http.ResponseWriter, r *http.Request) {
	fileID := uuid.Parse(chi.URLParam(r, "fileID"))
	if fileID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid file id"})
		return
	}

	var req ripsFileResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &ripserrors.ValidationError{Err: err, Msg: "invalid request body"})
		return
	}

	file, err := a.exporter.RecordResponse(r.Context(), fileID, models.RIPSFileStatus(req.Verdict))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, newRIPSFileResponse(file))
}

func (a *API) invoiceTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)) {
	invoiceID := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if invoiceID == nil {
		writeError(w, r, &ripserrors.ValidationError{Msg: "invalid invoice id"})
		return
	}

	invoice, err := fn(r.Context(), invoiceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, newInvoiceResponse(invoice, nil))
}

// writeError maps domain errors onto HTTP status codes. Validation failures
// are 400, lifecycle conflicts 409, missing records 404, everything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *ripserrors.ValidationError
		amountErr     *ripserrors.InvalidAmountError
		missingErr    *ripserrors.MissingPatientDataError
		emptyErr      *ripserrors.EmptyEpisodeError
		closedErr     *ripserrors.AlreadyClosedError
		billedErr     *ripserrors.AlreadyBilledError
		stateErr      *ripserrors.InvalidStateError
		staleErr      *ripserrors.StaleReferenceError
		consistency   *ripserrors.ConsistencyError
	)

	status := http.StatusInternalServerError
	switch {
	case goerrors.As(err, &validationErr), goerrors.As(err, &amountErr),
		goerrors.As(err, &missingErr), goerrors.As(err, &emptyErr):
		status = http.StatusBadRequest
	case goerrors.As(err, &closedErr), goerrors.As(err, &billedErr),
		goerrors.As(err, &stateErr), goerrors.As(err, &staleErr):
		status = http.StatusConflict
	case goerrors.Is(err, models.ErrEpisodeNotFound), goerrors.Is(err, models.ErrPatientNotFound),
		goerrors.Is(err, models.ErrInvoiceNotFound), goerrors.Is(err, models.ErrRIPSFileNotFound):
		status = http.StatusNotFound
	case goerrors.As(err, &consistency):
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		log.API.Error(err)
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

func (a *API) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	m := make(map[string]string)

	if a.healthCheck == nil || a.healthCheck() {
		m["database"] = "ok"
		render.Status(r, http.StatusOK)
	} else {
		m["database"] = "error"
		render.Status(r, http.StatusBadGateway)
	}

	render.JSON(w, r, m)
}

func (a *API) getVersion(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"version": constants.Version})
}
