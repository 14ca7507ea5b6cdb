// Package billing materializes invoices from closed episodes and tracks the
// invoice payment and glosa lifecycle.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/saludtotal/rips-app/log"
	"github.com/saludtotal/rips-app/ripsapp/aggregator"
	ripserrors "github.com/saludtotal/rips-app/ripsapp/errors"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
)

const invoicePrefix = "FAC-"

type Service struct {
	r   models.Repository
	agg *aggregator.Aggregator
}

func NewService(r models.Repository, agg *aggregator.Aggregator) *Service {
	return &Service{r: r, agg: agg}
}

// Materialize turns a closed episode into an immutable draft invoice with one
// line item per episode service. An episode with zero services is not
// billable.
func (s *Service) Materialize(ctx context.Context, episode *models.AttentionEpisode) (*models.Invoice, error) {
	lines, err := s.agg.LineBreakdown(ctx, episode)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &ripserrors.EmptyEpisodeError{EpisodeNumber: episode.EpisodeNumber}
	}

	consecutive, err := s.r.NextInvoiceConsecutive(ctx, episode.CompanyID)
	if err != nil {
		return nil, errors.Wrap(err, "could not allocate invoice consecutive")
	}

	invoiceDate := time.Now()
	serviceDateTo := invoiceDate
	if episode.DischargeDate != nil {
		serviceDateTo = *episode.DischargeDate
	}

	invoice := &models.Invoice{
		ID:                uuid.NewRandom(),
		CompanyID:         episode.CompanyID,
		InvoiceNumber:     fmt.Sprintf("%s%08d", invoicePrefix, consecutive),
		InvoicePrefix:     invoicePrefix,
		ConsecutiveNumber: consecutive,
		InvoiceDate:       invoiceDate,
		ServiceDateFrom:   episode.AdmissionDate,
		ServiceDateTo:     serviceDateTo,
		InvoiceType:       episode.EpisodeType,
		Status:            models.InvoiceStatusDraft,
		PayerID:           episode.PayerID,
		PatientID:         episode.PatientID,
		DiscountAmount:    decimal.Zero,
	}

	items := make([]*models.InvoiceLineItem, 0, len(lines))
	subtotal := decimal.Zero
	tax := decimal.Zero
	for i, line := range lines {
		authorization := line.AuthorizationNumber
		if authorization == "" {
			authorization = episode.AuthorizationNumber
		}

		item := &models.InvoiceLineItem{
			ID:                  uuid.NewRandom(),
			InvoiceID:           invoice.ID,
			Position:            i + 1,
			Kind:                line.Kind,
			ServiceCode:         line.Code,
			ServiceName:         line.Name,
			ServiceDate:         line.Date,
			DiagnosisCode:       line.DiagnosisCode,
			Quantity:            line.Quantity,
			UnitPrice:           line.UnitCost,
			TotalAmount:         line.Cost.Round(2),
			TaxRate:             decimal.Zero,
			TaxAmount:           decimal.Zero,
			Copayment:           decimal.Zero,
			ModeratorFee:        decimal.Zero,
			AuthorizationNumber: authorization,
		}
		items = append(items, item)

		subtotal = subtotal.Add(line.Cost)
		tax = tax.Add(item.TaxAmount)
	}

	invoice.Subtotal = subtotal.Round(2)
	invoice.TaxAmount = tax.Round(2)
	invoice.Total = invoice.Subtotal.Add(invoice.TaxAmount).Sub(invoice.DiscountAmount)
	invoice.PaidAmount = decimal.Zero
	invoice.RecalculateBalance()

	if err := s.r.CreateInvoice(ctx, invoice, items); err != nil {
		return nil, errors.Wrap(err, "could not create invoice")
	}

	log.Billing.WithField("invoice", invoice.InvoiceNumber).
		WithField("total", invoice.Total.String()).Info("invoice materialized")
	return invoice, nil
}

// Approve issues a draft invoice. An invoice needs at least one line item to
// be issued.
func (s *Service) Approve(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.r.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	items, err := s.r.GetInvoiceLineItems(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &ripserrors.ValidationError{Msg: "invoice has no line items"}
	}

	return s.transition(ctx, invoice, models.InvoiceStatusDraft, models.InvoiceStatusIssued)
}

// MarkSent records that the invoice was delivered to the payer.
func (s *Service) MarkSent(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.r.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, invoice, models.InvoiceStatusIssued, models.InvoiceStatusSent)
}

// Cancel voids an invoice that has not been sent to the payer.
func (s *Service) Cancel(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.r.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusDraft && invoice.Status != models.InvoiceStatusIssued {
		return nil, &ripserrors.InvalidStateError{Entity: "invoice " + invoice.InvoiceNumber,
			From: string(invoice.Status), To: string(models.InvoiceStatusCancelled)}
	}
	return s.transition(ctx, invoice, invoice.Status, models.InvoiceStatusCancelled)
}

func (s *Service) transition(ctx context.Context, invoice *models.Invoice, from, to models.InvoiceStatus) (*models.Invoice, error) {
	if invoice.Status != from {
		return nil, &ripserrors.InvalidStateError{Entity: "invoice " + invoice.InvoiceNumber,
			From: string(invoice.Status), To: string(to)}
	}

	if err := s.r.UpdateInvoiceStatusCheckStatus(ctx, invoice.ID, from, to); err != nil {
		return nil, &ripserrors.InvalidStateError{Entity: "invoice " + invoice.InvoiceNumber,
			From: string(from), To: string(to)}
	}

	invoice.Status = to
	return invoice, nil
}
