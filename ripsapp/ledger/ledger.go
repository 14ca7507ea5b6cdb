// Package ledger owns the attention episode state machine and the
// append-only collection of episode service links.
//
// Episodes move active -> closed -> billed, with cancellation as a terminal
// escape from active or closed. Concurrent close/bill attempts are serialized
// through an optimistic status-check update on the episode row; exactly one
// caller wins, the rest observe AlreadyClosedError or AlreadyBilledError.
package ledger

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/saludtotal/rips-app/log"
	"github.com/saludtotal/rips-app/ripsapp/adapter"
	"github.com/saludtotal/rips-app/ripsapp/aggregator"
	ripserrors "github.com/saludtotal/rips-app/ripsapp/errors"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
)

// Materializer turns a closed episode into an invoice. Implemented by
// ripsapp/billing.
type Materializer interface {
	Materialize(ctx context.Context, episode *models.AttentionEpisode) (*models.Invoice, error)
}

type Ledger struct {
	r        models.Repository
	registry *adapter.Registry
	agg      *aggregator.Aggregator
	mat      Materializer
}

func New(r models.Repository, registry *adapter.Registry, agg *aggregator.Aggregator, mat Materializer) *Ledger {
	return &Ledger{r: r, registry: registry, agg: agg, mat: mat}
}

// NewEpisodeArgs carries the intake data for a new attention episode.
// CompanyID is always explicit; there is no ambient tenant.
type NewEpisodeArgs struct {
	CompanyID           uuid.UUID
	PatientID           uuid.UUID
	PayerID             uuid.UUID
	EpisodeType         models.EpisodeType
	AdmissionDate       time.Time
	AdmissionDiagnosis  string
	AuthorizationNumber string
}

// CreateEpisode registers a patient encounter and assigns its episode number.
func (l *Ledger) CreateEpisode(ctx context.Context, args NewEpisodeArgs) (*models.AttentionEpisode, error) {
	if args.CompanyID == nil || args.PatientID == nil || args.PayerID == nil {
		return nil, &ripserrors.ValidationError{Msg: "company, patient and payer are required"}
	}

	admission := args.AdmissionDate
	if admission.IsZero() {
		admission = time.Now()
	}

	seq, err := l.r.NextEpisodeSequence(ctx, args.CompanyID)
	if err != nil {
		return nil, errors.Wrap(err, "could not allocate episode number")
	}

	episode := &models.AttentionEpisode{
		ID:                  uuid.NewRandom(),
		CompanyID:           args.CompanyID,
		EpisodeNumber:       fmt.Sprintf("EP-%d-%06d", admission.Year(), seq),
		EpisodeType:         args.EpisodeType,
		Status:              models.EpisodeStatusActive,
		PatientID:           args.PatientID,
		PayerID:             args.PayerID,
		AdmissionDate:       admission,
		AdmissionDiagnosis:  args.AdmissionDiagnosis,
		AuthorizationNumber: args.AuthorizationNumber,
		TotalCost:           decimal.Zero,
	}

	if err := l.r.CreateEpisode(ctx, episode); err != nil {
		return nil, errors.Wrap(err, "could not create episode")
	}

	log.Ledger.WithField("episode", episode.EpisodeNumber).Info("episode created")
	return episode, nil
}

// Attach links a clinical service record to an active episode. The cost
// snapshot comes from the cost hint when provided, otherwise from the
// adapter.
func (l *Ledger) Attach(ctx context.Context, episodeID uuid.UUID, kind models.ServiceKind, ref string, costHint *decimal.Decimal) (*models.EpisodeService, error) {
	episode, err := l.r.GetEpisodeByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	if episode.Billed() {
		return nil, &ripserrors.AlreadyBilledError{EpisodeNumber: episode.EpisodeNumber}
	}
	if episode.Status != models.EpisodeStatusActive {
		return nil, &ripserrors.AlreadyClosedError{EpisodeNumber: episode.EpisodeNumber, Status: string(episode.Status)}
	}

	var cost decimal.Decimal
	if costHint != nil {
		cost = *costHint
	} else {
		fields, err := l.registry.Extract(ctx, kind, ref)
		if err != nil {
			return nil, err
		}
		cost = fields.UnitCost.Mul(fields.Quantity)
	}

	svc := &models.EpisodeService{
		ID:          uuid.NewRandom(),
		EpisodeID:   episode.ID,
		Kind:        kind,
		ServiceRef:  ref,
		ServiceCost: cost,
		CostCached:  true,
		AddedAt:     time.Now(),
	}

	if err := l.r.CreateEpisodeService(ctx, svc); err != nil {
		return nil, errors.Wrap(err, "could not attach service to episode")
	}

	return svc, nil
}

// Close discharges the episode: it wins the active->closed transition,
// recomputes and freezes the total cost, and refreshes every cached cost
// snapshot. After this point the total is never recomputed.
func (l *Ledger) Close(ctx context.Context, episodeID uuid.UUID, dischargeDiagnosis string) (*models.AttentionEpisode, error) {
	episode, err := l.r.GetEpisodeByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	if episode.Billed() {
		return nil, &ripserrors.AlreadyBilledError{EpisodeNumber: episode.EpisodeNumber}
	}
	if episode.Status != models.EpisodeStatusActive {
		return nil, &ripserrors.AlreadyClosedError{EpisodeNumber: episode.EpisodeNumber, Status: string(episode.Status)}
	}

	err = l.r.UpdateEpisodeStatusCheckStatus(ctx, episode.ID, models.EpisodeStatusActive, models.EpisodeStatusClosed)
	if goerrors.Is(err, models.ErrNotUpdated) {
		return nil, &ripserrors.AlreadyClosedError{EpisodeNumber: episode.EpisodeNumber, Status: string(models.EpisodeStatusClosed)}
	} else if err != nil {
		return nil, errors.Wrap(err, "could not update episode status")
	}

	episode.Status = models.EpisodeStatusClosed

	// Undo the transition so the caller can correct and retry. Without this
	// a failure past the status update strands the episode closed with no
	// discharge date or frozen total.
	revert := func() {
		if uerr := l.r.UpdateEpisodeStatusCheckStatus(ctx, episode.ID, models.EpisodeStatusClosed, models.EpisodeStatusActive); uerr != nil {
			log.Ledger.WithField("episode", episode.EpisodeNumber).Error(uerr)
		}
	}

	lines, err := l.agg.LineBreakdown(ctx, episode)
	if err != nil {
		revert()
		return nil, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Cost)
		if err := l.r.UpdateEpisodeServiceCost(ctx, line.ServiceID, line.Cost); err != nil {
			revert()
			return nil, errors.Wrap(err, "could not refresh service cost snapshot")
		}
	}

	now := time.Now()
	episode.DischargeDate = &now
	episode.DischargeDiagnosis = dischargeDiagnosis
	episode.TotalCost = total.Round(2)

	if err := l.r.UpdateEpisode(ctx, episode); err != nil {
		revert()
		return nil, errors.Wrap(err, "could not close episode")
	}

	log.Ledger.WithField("episode", episode.EpisodeNumber).
		WithField("total_cost", episode.TotalCost.String()).Info("episode closed")
	return episode, nil
}

// GenerateInvoice materializes the invoice for a closed episode, exactly
// once. Concurrent callers past the first fail with AlreadyBilledError.
func (l *Ledger) GenerateInvoice(ctx context.Context, episodeID uuid.UUID) (*models.Invoice, error) {
	episode, err := l.r.GetEpisodeByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	if episode.Billed() || episode.InvoiceID != nil {
		return nil, &ripserrors.AlreadyBilledError{EpisodeNumber: episode.EpisodeNumber}
	}
	if episode.Status != models.EpisodeStatusClosed {
		return nil, &ripserrors.InvalidStateError{Entity: "episode " + episode.EpisodeNumber,
			From: string(episode.Status), To: string(models.EpisodeStatusBilled)}
	}

	err = l.r.UpdateEpisodeStatusCheckStatus(ctx, episode.ID, models.EpisodeStatusClosed, models.EpisodeStatusBilled)
	if goerrors.Is(err, models.ErrNotUpdated) {
		return nil, &ripserrors.AlreadyBilledError{EpisodeNumber: episode.EpisodeNumber}
	} else if err != nil {
		return nil, errors.Wrap(err, "could not update episode status")
	}

	revert := func() {
		if uerr := l.r.UpdateEpisodeStatusCheckStatus(ctx, episode.ID, models.EpisodeStatusBilled, models.EpisodeStatusClosed); uerr != nil {
			log.Ledger.WithField("episode", episode.EpisodeNumber).Error(uerr)
		}
	}

	invoice, err := l.mat.Materialize(ctx, episode)
	if err != nil {
		revert()
		return nil, err
	}

	now := time.Now()
	episode.Status = models.EpisodeStatusBilled
	episode.InvoiceID = invoice.ID
	episode.BillingDate = &now

	if err := l.r.UpdateEpisode(ctx, episode); err != nil {
		// The draft invoice row survives the revert; a retry materializes a
		// fresh one and the orphan stays cancellable as a draft.
		revert()
		log.Ledger.WithField("episode", episode.EpisodeNumber).
			WithField("invoice", invoice.InvoiceNumber).Warn("billing link failed, invoice left in draft")
		return nil, errors.Wrap(err, "could not record billing on episode")
	}

	log.Ledger.WithField("episode", episode.EpisodeNumber).
		WithField("invoice", invoice.InvoiceNumber).Info("invoice generated")
	return invoice, nil
}

// Cancel terminates an episode from active or closed. Billed episodes are
// financial records and can never be cancelled.
func (l *Ledger) Cancel(ctx context.Context, episodeID uuid.UUID) error {
	episode, err := l.r.GetEpisodeByID(ctx, episodeID)
	if err != nil {
		return err
	}

	if episode.Billed() {
		return &ripserrors.AlreadyBilledError{EpisodeNumber: episode.EpisodeNumber}
	}
	if episode.Status == models.EpisodeStatusCancelled {
		return nil
	}

	err = l.r.UpdateEpisodeStatusCheckStatus(ctx, episode.ID, episode.Status, models.EpisodeStatusCancelled)
	if goerrors.Is(err, models.ErrNotUpdated) {
		return &ripserrors.InvalidStateError{Entity: "episode " + episode.EpisodeNumber,
			From: string(episode.Status), To: string(models.EpisodeStatusCancelled)}
	}
	return err
}
