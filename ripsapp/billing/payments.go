package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/saludtotal/rips-app/log"
	ripserrors "github.com/saludtotal/rips-app/ripsapp/errors"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
)

// PaymentArgs carries one received payment. Amounts must be positive;
// reversals go through credit notes, never negative payment rows.
type PaymentArgs struct {
	Amount          decimal.Decimal
	PaymentDate     time.Time
	PaymentMethod   string
	ReferenceNumber string
	Notes           string
}

// RecordPayment appends a payment to a sent invoice and moves it to
// partial_payment or paid. PaidAmount only ever increases.
func (s *Service) RecordPayment(ctx context.Context, invoiceID uuid.UUID, args PaymentArgs) (*models.Invoice, error) {
	if !args.Amount.IsPositive() {
		return nil, &ripserrors.InvalidAmountError{Amount: args.Amount.String()}
	}

	invoice, err := s.r.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	switch invoice.Status {
	case models.InvoiceStatusSent, models.InvoiceStatusPartialPayment, models.InvoiceStatusGlosaResponse:
	default:
		return nil, &ripserrors.InvalidStateError{Entity: "invoice " + invoice.InvoiceNumber,
			From: string(invoice.Status), To: string(models.InvoiceStatusPartialPayment)}
	}

	paymentDate := args.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	payment := &models.Payment{
		ID:              uuid.NewRandom(),
		CompanyID:       invoice.CompanyID,
		InvoiceID:       invoice.ID,
		PaymentNumber:   fmt.Sprintf("%s-P%s", invoice.InvoiceNumber, paymentDate.Format("20060102150405")),
		PaymentDate:     paymentDate,
		PaymentMethod:   args.PaymentMethod,
		Amount:          args.Amount,
		ReferenceNumber: args.ReferenceNumber,
		Notes:           args.Notes,
	}

	if err := s.r.CreatePayment(ctx, payment); err != nil {
		return nil, errors.Wrap(err, "could not record payment")
	}

	invoice.PaidAmount = invoice.PaidAmount.Add(args.Amount)
	invoice.RecalculateBalance()
	if invoice.Balance.LessThanOrEqual(decimal.Zero) {
		invoice.Status = models.InvoiceStatusPaid
	} else {
		invoice.Status = models.InvoiceStatusPartialPayment
	}

	if err := s.r.UpdateInvoicePayment(ctx, invoice); err != nil {
		return nil, errors.Wrap(err, "could not update invoice payment state")
	}

	log.Billing.WithField("invoice", invoice.InvoiceNumber).
		WithField("amount", args.Amount.String()).
		WithField("balance", invoice.Balance.String()).Info("payment recorded")
	return invoice, nil
}

// GlosaArgs carries an adverse payer review of an invoice.
type GlosaArgs struct {
	GlosaNumber string
	GlosaDate   time.Time
	Amount      decimal.Decimal
	Reason      string
}

// RecordGlosa registers a payer dispute on a sent invoice and moves the
// invoice to glosa.
func (s *Service) RecordGlosa(ctx context.Context, invoiceID uuid.UUID, args GlosaArgs) (*models.Glosa, error) {
	if !args.Amount.IsPositive() {
		return nil, &ripserrors.InvalidAmountError{Amount: args.Amount.String()}
	}

	invoice, err := s.r.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if _, err := s.transition(ctx, invoice, models.InvoiceStatusSent, models.InvoiceStatusGlosa); err != nil {
		return nil, err
	}

	glosaDate := args.GlosaDate
	if glosaDate.IsZero() {
		glosaDate = time.Now()
	}

	glosa := &models.Glosa{
		ID:          uuid.NewRandom(),
		CompanyID:   invoice.CompanyID,
		InvoiceID:   invoice.ID,
		GlosaNumber: args.GlosaNumber,
		GlosaDate:   glosaDate,
		Status:      models.GlosaStatusPending,
		Amount:      args.Amount,
		Reason:      args.Reason,
	}

	if err := s.r.CreateGlosa(ctx, glosa); err != nil {
		return nil, errors.Wrap(err, "could not record glosa")
	}

	invoice.HasGlosa = true
	invoice.GlosaAmount = invoice.GlosaAmount.Add(args.Amount)
	if err := s.r.UpdateInvoiceGlosa(ctx, invoice); err != nil {
		return nil, errors.Wrap(err, "could not update invoice glosa state")
	}

	log.Billing.WithField("invoice", invoice.InvoiceNumber).
		WithField("glosa", glosa.GlosaNumber).Info("glosa recorded")
	return glosa, nil
}

// RespondGlosa records the provider's answer to one glosa.
func (s *Service) RespondGlosa(ctx context.Context, glosa *models.Glosa, response string, acceptedAmount decimal.Decimal, status models.GlosaStatus) error {
	switch status {
	case models.GlosaStatusAccepted, models.GlosaStatusRejected, models.GlosaStatusPartiallyAccepted, models.GlosaStatusInReview:
	default:
		return &ripserrors.ValidationError{Msg: fmt.Sprintf("invalid glosa resolution status %q", status)}
	}

	now := time.Now()
	glosa.Response = response
	glosa.AcceptedAmount = acceptedAmount
	glosa.Status = status
	glosa.ResponseDate = &now

	return s.r.UpdateGlosa(ctx, glosa)
}

// ResolveGlosas returns a glosa invoice to issued once every glosa against it
// has been resolved.
func (s *Service) ResolveGlosas(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.r.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	glosas, err := s.r.GetGlosasByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	for _, g := range glosas {
		switch g.Status {
		case models.GlosaStatusAccepted, models.GlosaStatusRejected, models.GlosaStatusPartiallyAccepted:
		default:
			return nil, &ripserrors.ValidationError{Msg: fmt.Sprintf("glosa %s is still %s", g.GlosaNumber, g.Status)}
		}
	}

	return s.transition(ctx, invoice, models.InvoiceStatusGlosa, models.InvoiceStatusIssued)
}
