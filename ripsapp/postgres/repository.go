package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/huandu/go-sqlbuilder"
	"github.com/pborman/uuid"
	"github.com/shopspring/decimal"

	"github.com/saludtotal/rips-app/ripsapp/models"
)

type queryable interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type executable interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const (
	sqlFlavor = sqlbuilder.PostgreSQL
)

// Ensure Repository satisfies the interface
var _ models.Repository = &Repository{}

type Repository struct {
	queryable
	executable

	// db is nil when the repository wraps an open transaction.
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db, db, db}
}

func NewRepositoryTx(tx *sql.Tx) *Repository {
	return &Repository{tx, tx, nil}
}

func (r *Repository) CreateEpisode(ctx context.Context, episode *models.AttentionEpisode) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("attention_episodes")
	ib.Cols("id", "company_id", "episode_number", "episode_type", "status",
		"patient_id", "payer_id", "admission_date", "admission_diagnosis",
		"authorization_number", "total_cost", "notes", "created_at", "updated_at")
	ib.Values(episode.ID, episode.CompanyID, episode.EpisodeNumber, episode.EpisodeType,
		episode.Status, episode.PatientID, episode.PayerID, episode.AdmissionDate,
		episode.AdmissionDiagnosis, episode.AuthorizationNumber, episode.TotalCost,
		episode.Notes, sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()"))

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetEpisodeByID(ctx context.Context, id uuid.UUID) (*models.AttentionEpisode, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "company_id", "episode_number", "episode_type", "status",
		"patient_id", "payer_id", "admission_date", "discharge_date",
		"admission_diagnosis", "discharge_diagnosis", "authorization_number",
		"total_cost", "invoice_id", "billing_date", "notes", "created_at", "updated_at")
	sb.From("attention_episodes")
	sb.Where(sb.Equal("id", id))

	var (
		episode       models.AttentionEpisode
		dischargeDate sql.NullTime
		billingDate   sql.NullTime
		invoiceID     sql.NullString
	)

	query, args := sb.Build()
	err := r.QueryRowContext(ctx, query, args...).Scan(&episode.ID, &episode.CompanyID,
		&episode.EpisodeNumber, &episode.EpisodeType, &episode.Status,
		&episode.PatientID, &episode.PayerID, &episode.AdmissionDate, &dischargeDate,
		&episode.AdmissionDiagnosis, &episode.DischargeDiagnosis,
		&episode.AuthorizationNumber, &episode.TotalCost, &invoiceID, &billingDate,
		&episode.Notes, &episode.CreatedAt, &episode.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrEpisodeNotFound
		}
		return nil, err
	}

	if dischargeDate.Valid {
		episode.DischargeDate = &dischargeDate.Time
	}
	if billingDate.Valid {
		episode.BillingDate = &billingDate.Time
	}
	if invoiceID.Valid {
		episode.InvoiceID = uuid.Parse(invoiceID.String)
	}

	return &episode, nil
}

func (r *Repository) UpdateEpisode(ctx context.Context, episode *models.AttentionEpisode) error {
	fieldsAndValues := map[string]interface{}{
		"status":               episode.Status,
		"discharge_date":       episode.DischargeDate,
		"admission_diagnosis":  episode.AdmissionDiagnosis,
		"discharge_diagnosis":  episode.DischargeDiagnosis,
		"authorization_number": episode.AuthorizationNumber,
		"total_cost":           episode.TotalCost,
		"billing_date":         episode.BillingDate,
		"notes":                episode.Notes,
	}
	if episode.InvoiceID != nil {
		fieldsAndValues["invoice_id"] = episode.InvoiceID
	}
	return r.update(ctx, "attention_episodes",
		map[string]interface{}{"id": episode.ID}, fieldsAndValues)
}

func (r *Repository) UpdateEpisodeStatusCheckStatus(ctx context.Context, id uuid.UUID, current, new models.EpisodeStatus) error {
	return r.update(ctx, "attention_episodes",
		map[string]interface{}{"id": id, "status": current},
		map[string]interface{}{"status": new})
}

func (r *Repository) CreateEpisodeService(ctx context.Context, svc *models.EpisodeService) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("episode_services")
	ib.Cols("id", "episode_id", "kind", "service_ref", "service_cost", "cost_cached", "added_at")
	ib.Values(svc.ID, svc.EpisodeID, svc.Kind, svc.ServiceRef, svc.ServiceCost, svc.CostCached, svc.AddedAt)

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetEpisodeServices(ctx context.Context, episodeID uuid.UUID) ([]*models.EpisodeService, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "episode_id", "kind", "service_ref", "service_cost", "cost_cached", "added_at")
	sb.From("episode_services")
	sb.Where(sb.Equal("episode_id", episodeID))
	sb.OrderBy("added_at", "id")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []*models.EpisodeService
	for rows.Next() {
		var svc models.EpisodeService
		if err := rows.Scan(&svc.ID, &svc.EpisodeID, &svc.Kind, &svc.ServiceRef,
			&svc.ServiceCost, &svc.CostCached, &svc.AddedAt); err != nil {
			return nil, err
		}
		services = append(services, &svc)
	}

	return services, rows.Err()
}

func (r *Repository) UpdateEpisodeServiceCost(ctx context.Context, id uuid.UUID, cost decimal.Decimal) error {
	return r.update(ctx, "episode_services",
		map[string]interface{}{"id": id},
		map[string]interface{}{"service_cost": cost, "cost_cached": true})
}

func (r *Repository) NextEpisodeSequence(ctx context.Context, companyID uuid.UUID) (int, error) {
	query, args := sqlbuilder.Buildf(
		"SELECT COUNT(1) + 1 FROM attention_episodes WHERE company_id = %s", companyID).
		BuildWithFlavor(sqlFlavor)

	var seq int
	if err := r.QueryRowContext(ctx, query, args...).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *Repository) GetPatientByID(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "company_id", "full_name", "document_type", "document_number",
		"regime", "birth_date", "sex", "residence_country", "residence_municipality",
		"residence_zone", "origin_country", "disabled")
	sb.From("patients")
	sb.Where(sb.Equal("id", id))

	var patient models.Patient
	query, args := sb.Build()
	err := r.QueryRowContext(ctx, query, args...).Scan(&patient.ID, &patient.CompanyID,
		&patient.FullName, &patient.DocumentType, &patient.DocumentNumber,
		&patient.Regime, &patient.BirthDate, &patient.Sex, &patient.ResidenceCountry,
		&patient.ResidenceMunicipality, &patient.ResidenceZone, &patient.OriginCountry,
		&patient.Disabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPatientNotFound
		}
		return nil, err
	}

	return &patient, nil
}

func (r *Repository) CreateInvoice(ctx context.Context, invoice *models.Invoice, items []*models.InvoiceLineItem) error {
	if r.db != nil {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := NewRepositoryTx(tx).CreateInvoice(ctx, invoice, items); err != nil {
			return err
		}
		return tx.Commit()
	}

	ib := sqlFlavor.NewInsertBuilder().InsertInto("invoices")
	ib.Cols("id", "company_id", "invoice_number", "invoice_prefix", "consecutive_number",
		"invoice_date", "service_date_from", "service_date_to", "invoice_type", "status",
		"payer_id", "patient_id", "subtotal", "discount_amount", "tax_amount",
		"copayment_amount", "moderator_fee_amount", "total", "paid_amount", "balance",
		"has_glosa", "glosa_amount", "rips_generated", "created_at", "updated_at")
	ib.Values(invoice.ID, invoice.CompanyID, invoice.InvoiceNumber, invoice.InvoicePrefix,
		invoice.ConsecutiveNumber, invoice.InvoiceDate, invoice.ServiceDateFrom,
		invoice.ServiceDateTo, invoice.InvoiceType, invoice.Status, invoice.PayerID,
		invoice.PatientID, invoice.Subtotal, invoice.DiscountAmount, invoice.TaxAmount,
		invoice.CopaymentAmount, invoice.ModeratorFeeAmount, invoice.Total,
		invoice.PaidAmount, invoice.Balance, invoice.HasGlosa, invoice.GlosaAmount,
		invoice.RIPSGenerated, sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()"))

	query, args := ib.Build()
	if _, err := r.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	if len(items) == 0 {
		return nil
	}

	ib = sqlFlavor.NewInsertBuilder().InsertInto("invoice_line_items")
	ib.Cols("id", "invoice_id", "line_position", "kind", "service_code", "service_name",
		"service_date", "diagnosis_code", "quantity", "unit_price", "total_amount",
		"tax_rate", "tax_amount", "copayment", "moderator_fee", "authorization_number",
		"is_glosa", "glosa_reason", "created_at")
	for _, item := range items {
		ib.Values(item.ID, item.InvoiceID, item.Position, item.Kind, item.ServiceCode,
			item.ServiceName, item.ServiceDate, item.DiagnosisCode, item.Quantity,
			item.UnitPrice, item.TotalAmount, item.TaxRate, item.TaxAmount, item.Copayment,
			item.ModeratorFee, item.AuthorizationNumber, item.IsGlosa, item.GlosaReason,
			sqlbuilder.Raw("NOW()"))
	}

	query, args = ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetInvoiceByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	sb := invoiceSelect()
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	invoice, err := scanInvoice(r.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrInvoiceNotFound
		}
		return nil, err
	}
	return invoice, nil
}

func (r *Repository) GetInvoicesByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Invoice, error) {
	sb := invoiceSelect()
	sb.Where(sb.In("id", sqlbuilder.Flatten(ids)...))
	sb.OrderBy("consecutive_number")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}

	return invoices, rows.Err()
}

func (r *Repository) GetInvoiceLineItems(ctx context.Context, invoiceID uuid.UUID) ([]*models.InvoiceLineItem, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "invoice_id", "line_position", "kind", "service_code", "service_name",
		"service_date", "diagnosis_code", "quantity", "unit_price", "total_amount",
		"tax_rate", "tax_amount", "copayment", "moderator_fee", "authorization_number",
		"is_glosa", "glosa_reason", "created_at")
	sb.From("invoice_line_items")
	sb.Where(sb.Equal("invoice_id", invoiceID))
	// created_at is shared by every row of the batch insert and service_date
	// ties are common; line_position is the only deterministic order.
	sb.OrderBy("line_position")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.InvoiceLineItem
	for rows.Next() {
		var item models.InvoiceLineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Position, &item.Kind,
			&item.ServiceCode, &item.ServiceName, &item.ServiceDate, &item.DiagnosisCode,
			&item.Quantity, &item.UnitPrice, &item.TotalAmount, &item.TaxRate,
			&item.TaxAmount, &item.Copayment, &item.ModeratorFee,
			&item.AuthorizationNumber, &item.IsGlosa, &item.GlosaReason,
			&item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *Repository) UpdateInvoiceStatusCheckStatus(ctx context.Context, id uuid.UUID, current, new models.InvoiceStatus) error {
	return r.update(ctx, "invoices",
		map[string]interface{}{"id": id, "status": current},
		map[string]interface{}{"status": new})
}

func (r *Repository) UpdateInvoicePayment(ctx context.Context, invoice *models.Invoice) error {
	return r.update(ctx, "invoices",
		map[string]interface{}{"id": invoice.ID},
		map[string]interface{}{
			"status":      invoice.Status,
			"paid_amount": invoice.PaidAmount,
			"balance":     invoice.Balance,
		})
}

func (r *Repository) UpdateInvoiceGlosa(ctx context.Context, invoice *models.Invoice) error {
	return r.update(ctx, "invoices",
		map[string]interface{}{"id": invoice.ID},
		map[string]interface{}{
			"has_glosa":    invoice.HasGlosa,
			"glosa_amount": invoice.GlosaAmount,
		})
}

func (r *Repository) UpdateInvoiceRIPSGenerated(ctx context.Context, invoice *models.Invoice) error {
	return r.update(ctx, "invoices",
		map[string]interface{}{"id": invoice.ID},
		map[string]interface{}{
			"rips_generated":       invoice.RIPSGenerated,
			"rips_generation_date": invoice.RIPSGenerationDate,
		})
}

func (r *Repository) NextInvoiceConsecutive(ctx context.Context, companyID uuid.UUID) (int, error) {
	query, args := sqlbuilder.Buildf(
		"SELECT COALESCE(MAX(consecutive_number), 0) + 1 FROM invoices WHERE company_id = %s", companyID).
		BuildWithFlavor(sqlFlavor)

	var consecutive int
	if err := r.QueryRowContext(ctx, query, args...).Scan(&consecutive); err != nil {
		return 0, err
	}
	return consecutive, nil
}

func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("payments")
	ib.Cols("id", "company_id", "invoice_id", "payment_number", "payment_date",
		"payment_method", "amount", "reference_number", "notes", "created_at")
	ib.Values(payment.ID, payment.CompanyID, payment.InvoiceID, payment.PaymentNumber,
		payment.PaymentDate, payment.PaymentMethod, payment.Amount,
		payment.ReferenceNumber, payment.Notes, sqlbuilder.Raw("NOW()"))

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) CreateGlosa(ctx context.Context, glosa *models.Glosa) error {
	ib := sqlFlavor.NewInsertBuilder().InsertInto("glosas")
	ib.Cols("id", "company_id", "invoice_id", "glosa_number", "glosa_date", "status",
		"amount", "accepted_amount", "reason", "response", "response_deadline", "created_at")
	ib.Values(glosa.ID, glosa.CompanyID, glosa.InvoiceID, glosa.GlosaNumber,
		glosa.GlosaDate, glosa.Status, glosa.Amount, glosa.AcceptedAmount,
		glosa.Reason, glosa.Response, glosa.ResponseDeadline, sqlbuilder.Raw("NOW()"))

	query, args := ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetGlosasByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*models.Glosa, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "company_id", "invoice_id", "glosa_number", "glosa_date", "status",
		"amount", "accepted_amount", "reason", "response", "response_deadline",
		"response_date", "created_at")
	sb.From("glosas")
	sb.Where(sb.Equal("invoice_id", invoiceID))
	sb.OrderBy("glosa_date", "created_at")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var glosas []*models.Glosa
	for rows.Next() {
		var (
			glosa            models.Glosa
			responseDeadline sql.NullTime
			responseDate     sql.NullTime
		)
		if err := rows.Scan(&glosa.ID, &glosa.CompanyID, &glosa.InvoiceID,
			&glosa.GlosaNumber, &glosa.GlosaDate, &glosa.Status, &glosa.Amount,
			&glosa.AcceptedAmount, &glosa.Reason, &glosa.Response,
			&responseDeadline, &responseDate, &glosa.CreatedAt); err != nil {
			return nil, err
		}
		if responseDeadline.Valid {
			glosa.ResponseDeadline = &responseDeadline.Time
		}
		if responseDate.Valid {
			glosa.ResponseDate = &responseDate.Time
		}
		glosas = append(glosas, &glosa)
	}

	return glosas, rows.Err()
}

func (r *Repository) UpdateGlosa(ctx context.Context, glosa *models.Glosa) error {
	return r.update(ctx, "glosas",
		map[string]interface{}{"id": glosa.ID},
		map[string]interface{}{
			"status":          glosa.Status,
			"accepted_amount": glosa.AcceptedAmount,
			"response":        glosa.Response,
			"response_date":   glosa.ResponseDate,
		})
}

func (r *Repository) CreateRIPSFile(ctx context.Context, file *models.RIPSFile, txns []*models.RIPSTransaction) error {
	if r.db != nil {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := NewRepositoryTx(tx).CreateRIPSFile(ctx, file, txns); err != nil {
			return err
		}
		return tx.Commit()
	}

	ib := sqlFlavor.NewInsertBuilder().InsertInto("rips_files")
	ib.Cols("id", "company_id", "file_number", "status", "period_start", "period_end",
		"payer_id", "provider_nit", "provider_code", "json_file_path", "txt_file_path",
		"total_invoices", "total_patients", "total_amount", "created_at")
	ib.Values(file.ID, file.CompanyID, file.FileNumber, file.Status, file.PeriodStart,
		file.PeriodEnd, file.PayerID, file.ProviderNIT, file.ProviderCode,
		file.JSONFilePath, file.TxtFilePath, file.TotalInvoices, file.TotalPatients,
		file.TotalAmount, sqlbuilder.Raw("NOW()"))

	query, args := ib.Build()
	if _, err := r.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	if len(txns) == 0 {
		return nil
	}

	ib = sqlFlavor.NewInsertBuilder().InsertInto("rips_transactions")
	ib.Cols("id", "rips_file_id", "invoice_id", "note_type", "note_number", "created_at")
	for _, txn := range txns {
		ib.Values(txn.ID, txn.RIPSFileID, txn.InvoiceID, txn.NoteType, txn.NoteNumber,
			sqlbuilder.Raw("NOW()"))
	}

	query, args = ib.Build()
	_, err := r.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetRIPSFileByID(ctx context.Context, id uuid.UUID) (*models.RIPSFile, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "company_id", "file_number", "status", "period_start", "period_end",
		"payer_id", "provider_nit", "provider_code", "json_file_path", "txt_file_path",
		"total_invoices", "total_patients", "total_amount", "sent_date", "sent_to",
		"response_date", "generated_at", "created_at")
	sb.From("rips_files")
	sb.Where(sb.Equal("id", id))

	var (
		file         models.RIPSFile
		sentDate     sql.NullTime
		responseDate sql.NullTime
		generatedAt  sql.NullTime
	)

	query, args := sb.Build()
	err := r.QueryRowContext(ctx, query, args...).Scan(&file.ID, &file.CompanyID,
		&file.FileNumber, &file.Status, &file.PeriodStart, &file.PeriodEnd,
		&file.PayerID, &file.ProviderNIT, &file.ProviderCode, &file.JSONFilePath,
		&file.TxtFilePath, &file.TotalInvoices, &file.TotalPatients, &file.TotalAmount,
		&sentDate, &file.SentTo, &responseDate, &generatedAt, &file.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRIPSFileNotFound
		}
		return nil, err
	}

	if sentDate.Valid {
		file.SentDate = &sentDate.Time
	}
	if responseDate.Valid {
		file.ResponseDate = &responseDate.Time
	}
	if generatedAt.Valid {
		file.GeneratedAt = &generatedAt.Time
	}

	return &file, nil
}

func (r *Repository) GetRIPSTransactions(ctx context.Context, fileID uuid.UUID) ([]*models.RIPSTransaction, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "rips_file_id", "invoice_id", "note_type", "note_number", "created_at")
	sb.From("rips_transactions")
	sb.Where(sb.Equal("rips_file_id", fileID))
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*models.RIPSTransaction
	for rows.Next() {
		var txn models.RIPSTransaction
		if err := rows.Scan(&txn.ID, &txn.RIPSFileID, &txn.InvoiceID, &txn.NoteType,
			&txn.NoteNumber, &txn.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, &txn)
	}

	return txns, rows.Err()
}

func (r *Repository) UpdateRIPSFileStatusCheckStatus(ctx context.Context, id uuid.UUID, current, new models.RIPSFileStatus) error {
	return r.update(ctx, "rips_files",
		map[string]interface{}{"id": id, "status": current},
		map[string]interface{}{"status": new})
}

func (r *Repository) UpdateRIPSFileArtifacts(ctx context.Context, file *models.RIPSFile) error {
	return r.update(ctx, "rips_files",
		map[string]interface{}{"id": file.ID},
		map[string]interface{}{
			"json_file_path": file.JSONFilePath,
			"txt_file_path":  file.TxtFilePath,
			"total_patients": file.TotalPatients,
			"generated_at":   file.GeneratedAt,
		})
}

func (r *Repository) UpdateRIPSFileSent(ctx context.Context, file *models.RIPSFile) error {
	return r.update(ctx, "rips_files",
		map[string]interface{}{"id": file.ID},
		map[string]interface{}{
			"sent_date": file.SentDate,
			"sent_to":   file.SentTo,
		})
}

func (r *Repository) UpdateRIPSFileResponse(ctx context.Context, file *models.RIPSFile) error {
	return r.update(ctx, "rips_files",
		map[string]interface{}{"id": file.ID},
		map[string]interface{}{"response_date": file.ResponseDate})
}

// update applies fieldsAndValues to every row matching the clauses and fails
// with ErrNotUpdated when nothing matched. Status-check updates rely on the
// affected row count as their concurrency guard.
func (r *Repository) update(ctx context.Context, table string, clauses, fieldsAndValues map[string]interface{}) error {
	ub := sqlFlavor.NewUpdateBuilder().Update(table)
	for field, value := range fieldsAndValues {
		ub.SetMore(ub.Assign(field, value))
	}
	for field, value := range clauses {
		ub.Where(ub.Equal(field, value))
	}

	query, args := ub.Build()
	result, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return models.ErrNotUpdated
	}

	return nil
}

func invoiceSelect() *sqlbuilder.SelectBuilder {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "company_id", "invoice_number", "invoice_prefix", "consecutive_number",
		"invoice_date", "service_date_from", "service_date_to", "invoice_type", "status",
		"payer_id", "patient_id", "subtotal", "discount_amount", "tax_amount",
		"copayment_amount", "moderator_fee_amount", "total", "paid_amount", "balance",
		"has_glosa", "glosa_amount", "rips_generated", "rips_generation_date",
		"created_at", "updated_at")
	sb.From("invoices")
	return sb
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var (
		invoice            models.Invoice
		ripsGenerationDate sql.NullTime
	)
	err := row.Scan(&invoice.ID, &invoice.CompanyID, &invoice.InvoiceNumber,
		&invoice.InvoicePrefix, &invoice.ConsecutiveNumber, &invoice.InvoiceDate,
		&invoice.ServiceDateFrom, &invoice.ServiceDateTo, &invoice.InvoiceType,
		&invoice.Status, &invoice.PayerID, &invoice.PatientID, &invoice.Subtotal,
		&invoice.DiscountAmount, &invoice.TaxAmount, &invoice.CopaymentAmount,
		&invoice.ModeratorFeeAmount, &invoice.Total, &invoice.PaidAmount,
		&invoice.Balance, &invoice.HasGlosa, &invoice.GlosaAmount,
		&invoice.RIPSGenerated, &ripsGenerationDate, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ripsGenerationDate.Valid {
		invoice.RIPSGenerationDate = &ripsGenerationDate.Time
	}
	return &invoice, nil
}
