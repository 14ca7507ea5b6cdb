// Package export assembles RIPS submission files. A file batches the
// transactions for one payer and period; once sent, the transaction set and
// the rendered artifacts are frozen. Corrections never mutate a sent file,
// they go out as a new file carrying credit or debit note transactions.
package export

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/saludtotal/rips-app/conf"
	"github.com/saludtotal/rips-app/log"
	"github.com/saludtotal/rips-app/ripsapp/codec"
	"github.com/saludtotal/rips-app/ripsapp/constants"
	ripserrors "github.com/saludtotal/rips-app/ripsapp/errors"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
)

type Exporter struct {
	r models.Repository

	// outputDir is where generated artifacts land. Writes are
	// temp-then-rename so a crashed generation never leaves a partial
	// artifact behind.
	outputDir string
}

func New(r models.Repository) *Exporter {
	dir := conf.GetEnv("RIPS_EXPORT_DIR")
	if dir == "" {
		dir = "/tmp/rips-export"
	}
	return &Exporter{r: r, outputDir: dir}
}

// Member is one invoice going into a file, optionally as a credit or debit
// note referencing a previously submitted invoice.
type Member struct {
	InvoiceID  uuid.UUID
	NoteType   models.NoteType
	NoteNumber string
}

// BuildFileArgs describes one submission batch.
type BuildFileArgs struct {
	CompanyID    uuid.UUID
	PayerID      uuid.UUID
	PeriodStart  time.Time
	PeriodEnd    time.Time
	ProviderNIT  string
	ProviderCode string
	Members      []Member
}

// BuildFile registers a draft RIPS file over the given invoices. The batch
// totals are computed here and verified again at generation time; a file with
// no members is invalid.
func (e *Exporter) BuildFile(ctx context.Context, args BuildFileArgs) (*models.RIPSFile, error) {
	if len(args.Members) == 0 {
		return nil, &ripserrors.ValidationError{Msg: "a RIPS file needs at least one invoice"}
	}
	if args.PeriodEnd.Before(args.PeriodStart) {
		return nil, &ripserrors.ValidationError{Msg: "period end precedes period start"}
	}

	ids := make([]uuid.UUID, len(args.Members))
	for i, m := range args.Members {
		ids[i] = m.InvoiceID
	}

	invoices, err := e.r.GetInvoicesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(invoices) != len(args.Members) {
		return nil, &ripserrors.ValidationError{Msg: "one or more invoices do not exist"}
	}

	total, patients, err := batchTotals(invoices, args.CompanyID)
	if err != nil {
		return nil, err
	}

	nit := args.ProviderNIT
	if nit == "" {
		nit = constants.DefaultProviderNIT
	}

	file := &models.RIPSFile{
		ID:            uuid.NewRandom(),
		CompanyID:     args.CompanyID,
		FileNumber:    fmt.Sprintf("RIPS-%s-%s", args.PeriodStart.Format("200601"), uuid.NewRandom().String()[:8]),
		Status:        models.RIPSFileStatusDraft,
		PeriodStart:   args.PeriodStart,
		PeriodEnd:     args.PeriodEnd,
		PayerID:       args.PayerID,
		ProviderNIT:   nit,
		ProviderCode:  args.ProviderCode,
		TotalInvoices: len(invoices),
		TotalPatients: patients,
		TotalAmount:   total,
	}

	txns := make([]*models.RIPSTransaction, len(args.Members))
	for i, m := range args.Members {
		txns[i] = &models.RIPSTransaction{
			ID:         uuid.NewRandom(),
			RIPSFileID: file.ID,
			InvoiceID:  m.InvoiceID,
			NoteType:   m.NoteType,
			NoteNumber: m.NoteNumber,
		}
	}

	if err := e.r.CreateRIPSFile(ctx, file, txns); err != nil {
		return nil, errors.Wrap(err, "could not create RIPS file")
	}

	log.Export.WithField("file", file.FileNumber).
		WithField("invoices", file.TotalInvoices).Info("RIPS file built")
	return file, nil
}

// Generate renders the JSON and legacy artifacts for a draft file and moves
// it to generated. The stored batch totals are re-verified against the member
// invoices first; any divergence aborts the run before a byte is written.
func (e *Exporter) Generate(ctx context.Context, fileID uuid.UUID) (*models.RIPSFile, error) {
	file, err := e.r.GetRIPSFileByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.Status != models.RIPSFileStatusDraft {
		return nil, &ripserrors.InvalidStateError{Entity: "RIPS file " + file.FileNumber,
			From: string(file.Status), To: string(models.RIPSFileStatusGenerated)}
	}

	txns, err := e.r.GetRIPSTransactions(ctx, fileID)
	if err != nil {
		return nil, err
	}

	transmissions := make([]*codec.Transmission, 0, len(txns))
	invoices := make([]*models.Invoice, 0, len(txns))
	for _, txn := range txns {
		t, invoice, err := e.renderTransaction(ctx, file, txn)
		if err != nil {
			return nil, err
		}
		transmissions = append(transmissions, t)
		invoices = append(invoices, invoice)
	}

	total, patients, err := batchTotals(invoices, file.CompanyID)
	if err != nil {
		return nil, err
	}
	switch {
	case !total.Equal(file.TotalAmount):
		return nil, &ripserrors.ConsistencyError{Msg: fmt.Sprintf(
			"file %s totals diverged: stored %s, invoices sum to %s",
			file.FileNumber, file.TotalAmount.String(), total.String())}
	case len(invoices) != file.TotalInvoices:
		return nil, &ripserrors.ConsistencyError{Msg: fmt.Sprintf(
			"file %s invoice count diverged: stored %d, found %d",
			file.FileNumber, file.TotalInvoices, len(invoices))}
	case patients != file.TotalPatients:
		return nil, &ripserrors.ConsistencyError{Msg: fmt.Sprintf(
			"file %s patient count diverged: stored %d, found %d",
			file.FileNumber, file.TotalPatients, patients)}
	}

	err = e.r.UpdateRIPSFileStatusCheckStatus(ctx, file.ID, models.RIPSFileStatusDraft, models.RIPSFileStatusGenerated)
	if goerrors.Is(err, models.ErrNotUpdated) {
		return nil, &ripserrors.InvalidStateError{Entity: "RIPS file " + file.FileNumber,
			From: string(models.RIPSFileStatusDraft), To: string(models.RIPSFileStatusGenerated)}
	} else if err != nil {
		return nil, errors.Wrap(err, "could not update RIPS file status")
	}

	jsonPath, txtPath, err := e.writeArtifacts(file, transmissions)
	if err != nil {
		if uerr := e.r.UpdateRIPSFileStatusCheckStatus(ctx, file.ID, models.RIPSFileStatusGenerated, models.RIPSFileStatusDraft); uerr != nil {
			log.Export.WithField("file", file.FileNumber).Error(uerr)
		}
		return nil, err
	}

	now := time.Now()
	file.Status = models.RIPSFileStatusGenerated
	file.JSONFilePath = jsonPath
	file.TxtFilePath = txtPath
	file.GeneratedAt = &now

	if err := e.r.UpdateRIPSFileArtifacts(ctx, file); err != nil {
		return nil, errors.Wrap(err, "could not record RIPS artifacts")
	}

	for _, invoice := range invoices {
		if invoice.RIPSGenerated {
			continue
		}
		invoice.RIPSGenerated = true
		invoice.RIPSGenerationDate = &now
		if err := e.r.UpdateInvoiceRIPSGenerated(ctx, invoice); err != nil {
			return nil, errors.Wrap(err, "could not flag invoice as exported")
		}
	}

	log.Export.WithField("file", file.FileNumber).
		WithField("json", jsonPath).WithField("txt", txtPath).Info("RIPS file generated")
	return file, nil
}

// MarkSent freezes a generated file and records where it went.
func (e *Exporter) MarkSent(ctx context.Context, fileID uuid.UUID, sentTo string) (*models.RIPSFile, error) {
	file, err := e.r.GetRIPSFileByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	err = e.r.UpdateRIPSFileStatusCheckStatus(ctx, file.ID, models.RIPSFileStatusGenerated, models.RIPSFileStatusSent)
	if goerrors.Is(err, models.ErrNotUpdated) {
		return nil, &ripserrors.InvalidStateError{Entity: "RIPS file " + file.FileNumber,
			From: string(file.Status), To: string(models.RIPSFileStatusSent)}
	} else if err != nil {
		return nil, errors.Wrap(err, "could not update RIPS file status")
	}

	now := time.Now()
	file.Status = models.RIPSFileStatusSent
	file.SentDate = &now
	file.SentTo = sentTo

	if err := e.r.UpdateRIPSFileSent(ctx, file); err != nil {
		return nil, errors.Wrap(err, "could not record RIPS file send")
	}
	return file, nil
}

// RecordResponse registers the payer's verdict on a sent file.
func (e *Exporter) RecordResponse(ctx context.Context, fileID uuid.UUID, verdict models.RIPSFileStatus) (*models.RIPSFile, error) {
	switch verdict {
	case models.RIPSFileStatusAccepted, models.RIPSFileStatusRejected, models.RIPSFileStatusGlosa:
	default:
		return nil, &ripserrors.ValidationError{Msg: fmt.Sprintf("invalid RIPS file verdict %q", verdict)}
	}

	file, err := e.r.GetRIPSFileByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	err = e.r.UpdateRIPSFileStatusCheckStatus(ctx, file.ID, models.RIPSFileStatusSent, verdict)
	if goerrors.Is(err, models.ErrNotUpdated) {
		return nil, &ripserrors.InvalidStateError{Entity: "RIPS file " + file.FileNumber,
			From: string(file.Status), To: string(verdict)}
	} else if err != nil {
		return nil, errors.Wrap(err, "could not update RIPS file status")
	}

	now := time.Now()
	file.Status = verdict
	file.ResponseDate = &now

	if err := e.r.UpdateRIPSFileResponse(ctx, file); err != nil {
		return nil, errors.Wrap(err, "could not record RIPS file response")
	}
	return file, nil
}

func (e *Exporter) renderTransaction(ctx context.Context, file *models.RIPSFile, txn *models.RIPSTransaction) (*codec.Transmission, *models.Invoice, error) {
	invoice, err := e.r.GetInvoiceByID(ctx, txn.InvoiceID)
	if err != nil {
		return nil, nil, err
	}
	items, err := e.r.GetInvoiceLineItems(ctx, txn.InvoiceID)
	if err != nil {
		return nil, nil, err
	}
	patient, err := e.r.GetPatientByID(ctx, invoice.PatientID)
	if err != nil {
		return nil, nil, err
	}

	t, err := codec.Encode(codec.Input{
		Invoice:     invoice,
		Items:       items,
		Patient:     patient,
		ProviderNIT: file.ProviderNIT,
		NoteType:    txn.NoteType,
		NoteNumber:  txn.NoteNumber,
	})
	if err != nil {
		return nil, nil, err
	}
	return t, invoice, nil
}

// batchTotals sums invoice totals at full precision and counts distinct
// patients. Invoices from another tenant or still unissued are rejected.
func batchTotals(invoices []*models.Invoice, companyID uuid.UUID) (decimal.Decimal, int, error) {
	total := decimal.Zero
	patients := make(map[string]struct{})
	for _, invoice := range invoices {
		if !uuid.Equal(invoice.CompanyID, companyID) {
			return decimal.Zero, 0, &ripserrors.ValidationError{Msg: fmt.Sprintf(
				"invoice %s belongs to another company", invoice.InvoiceNumber)}
		}
		switch invoice.Status {
		case models.InvoiceStatusDraft, models.InvoiceStatusCancelled:
			return decimal.Zero, 0, &ripserrors.ValidationError{Msg: fmt.Sprintf(
				"invoice %s is %s and cannot be exported", invoice.InvoiceNumber, invoice.Status)}
		}
		total = total.Add(invoice.Total)
		patients[invoice.PatientID.String()] = struct{}{}
	}
	return total.Round(2), len(patients), nil
}

func (e *Exporter) writeArtifacts(file *models.RIPSFile, transmissions []*codec.Transmission) (string, string, error) {
	if err := os.MkdirAll(e.outputDir, 0744); err != nil {
		return "", "", errors.Wrap(err, "could not create export directory")
	}

	jsonBytes, err := codec.MarshalBatch(transmissions)
	if err != nil {
		return "", "", err
	}

	legacy := codec.MergeLegacy(transmissions, time.Now())

	jsonPath := filepath.Join(e.outputDir, file.FileNumber+".json")
	if err := atomicWrite(jsonPath, jsonBytes); err != nil {
		return "", "", err
	}

	txtPath := filepath.Join(e.outputDir, file.FileNumber+".txt.d")
	if err := os.MkdirAll(txtPath, 0744); err != nil {
		os.Remove(jsonPath)
		return "", "", errors.Wrap(err, "could not create legacy directory")
	}
	for name, content := range legacy {
		if err := atomicWrite(filepath.Join(txtPath, name), []byte(content)); err != nil {
			os.Remove(jsonPath)
			os.RemoveAll(txtPath)
			return "", "", err
		}
	}

	return jsonPath, txtPath, nil
}

// atomicWrite lands the content under a temporary name first, then renames
// into place. Readers never observe a half written artifact.
func atomicWrite(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrap(err, "could not create temp artifact")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errors.Wrap(err, "could not write artifact")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "could not close artifact")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "could not publish artifact")
}
