package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pborman/uuid"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (r *RepositoryTestSuite) TestGetEpisodeByID() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer func() {
		assert.NoError(r.T(), mock.ExpectationsWereMet())
		db.Close()
	}()
	repository := NewRepository(db)

	episodeID := uuid.NewRandom()
	admission := time.Now().Round(time.Millisecond).UTC()

	mock.ExpectQuery(`SELECT .+ FROM attention_episodes WHERE id = \$1`).
		WithArgs(episodeID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "episode_number", "episode_type", "status",
			"patient_id", "payer_id", "admission_date", "discharge_date",
			"admission_diagnosis", "discharge_diagnosis", "authorization_number",
			"total_cost", "invoice_id", "billing_date", "notes", "created_at", "updated_at"}).
			AddRow(episodeID, uuid.NewRandom(), "EP-2025-000042", "ambulatory", "active",
				uuid.NewRandom(), uuid.NewRandom(), admission, nil,
				"J00X", "", "AUT-1", "0", nil, nil, "", admission, admission))

	episode, err := repository.GetEpisodeByID(context.Background(), episodeID)
	assert.NoError(r.T(), err)
	assert.Equal(r.T(), "EP-2025-000042", episode.EpisodeNumber)
	assert.Equal(r.T(), models.EpisodeStatusActive, episode.Status)
	assert.Nil(r.T(), episode.DischargeDate)
	assert.Nil(r.T(), episode.InvoiceID)
}

func (r *RepositoryTestSuite) TestGetEpisodeByIDNotFound() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer db.Close()
	repository := NewRepository(db)

	episodeID := uuid.NewRandom()
	mock.ExpectQuery(`SELECT .+ FROM attention_episodes`).
		WithArgs(episodeID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repository.GetEpisodeByID(context.Background(), episodeID)
	assert.ErrorIs(r.T(), err, models.ErrEpisodeNotFound)
}

func (r *RepositoryTestSuite) TestUpdateEpisodeStatusCheckStatus() {
	tests := []struct {
		name     string
		affected int64
		expErr   error
	}{
		{"Wins", 1, nil},
		{"Loses", 0, models.ErrNotUpdated},
	}

	for _, tt := range tests {
		r.T().Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer func() {
				assert.NoError(t, mock.ExpectationsWereMet())
				db.Close()
			}()
			repository := NewRepository(db)

			mock.ExpectExec(`UPDATE attention_episodes SET .+ WHERE .+`).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err = repository.UpdateEpisodeStatusCheckStatus(context.Background(),
				uuid.NewRandom(), models.EpisodeStatusActive, models.EpisodeStatusClosed)
			if tt.expErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expErr)
			}
		})
	}
}

func (r *RepositoryTestSuite) TestGetEpisodeServices() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer func() {
		assert.NoError(r.T(), mock.ExpectationsWereMet())
		db.Close()
	}()
	repository := NewRepository(db)

	episodeID := uuid.NewRandom()
	added := time.Now().Round(time.Millisecond).UTC()

	mock.ExpectQuery(`SELECT .+ FROM episode_services WHERE episode_id = \$1 ORDER BY added_at, id`).
		WithArgs(episodeID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "episode_id", "kind", "service_ref", "service_cost", "cost_cached", "added_at"}).
			AddRow(uuid.NewRandom(), episodeID, "consultation", "101", "65000", true, added).
			AddRow(uuid.NewRandom(), episodeID, "medication", "202", "12500.50", false, added))

	services, err := repository.GetEpisodeServices(context.Background(), episodeID)
	assert.NoError(r.T(), err)
	assert.Len(r.T(), services, 2)
	assert.Equal(r.T(), models.ServiceKindConsultation, services[0].Kind)
	assert.True(r.T(), services[0].CostCached)
	assert.False(r.T(), services[1].CostCached)
	assert.True(r.T(), services[1].ServiceCost.Equal(decimal.RequireFromString("12500.50")))
}

func (r *RepositoryTestSuite) TestGetInvoiceLineItemsOrderedByPosition() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer func() {
		assert.NoError(r.T(), mock.ExpectationsWereMet())
		db.Close()
	}()
	repository := NewRepository(db)

	invoiceID := uuid.NewRandom()
	now := time.Now().Round(time.Millisecond).UTC()

	// created_at and service_date tie across a batch insert, so the query
	// must order by the persisted line position alone.
	mock.ExpectQuery(`SELECT .+ FROM invoice_line_items WHERE invoice_id = \$1 ORDER BY line_position`).
		WithArgs(invoiceID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "invoice_id", "line_position", "kind", "service_code", "service_name",
			"service_date", "diagnosis_code", "quantity", "unit_price", "total_amount",
			"tax_rate", "tax_amount", "copayment", "moderator_fee", "authorization_number",
			"is_glosa", "glosa_reason", "created_at"}).
			AddRow(uuid.NewRandom(), invoiceID, 1, "consultation", "890701", "Consulta",
				now, "Z000", "1", "65000", "65000", "0", "0", "0", "0", "", false, "", now).
			AddRow(uuid.NewRandom(), invoiceID, 2, "medication", "19934768-18", "Acetaminofén",
				now, "Z000", "2", "1500", "3000", "0", "0", "0", "0", "", false, "", now))

	items, err := repository.GetInvoiceLineItems(context.Background(), invoiceID)
	assert.NoError(r.T(), err)
	assert.Len(r.T(), items, 2)
	assert.Equal(r.T(), 1, items[0].Position)
	assert.Equal(r.T(), 2, items[1].Position)
}

func (r *RepositoryTestSuite) TestNextEpisodeSequence() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer db.Close()
	repository := NewRepository(db)

	companyID := uuid.NewRandom()
	mock.ExpectQuery(`SELECT COUNT\(1\) \+ 1 FROM attention_episodes WHERE company_id = \$1`).
		WithArgs(companyID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(43))

	seq, err := repository.NextEpisodeSequence(context.Background(), companyID)
	assert.NoError(r.T(), err)
	assert.Equal(r.T(), 43, seq)
}

func (r *RepositoryTestSuite) TestNextInvoiceConsecutive() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer db.Close()
	repository := NewRepository(db)

	companyID := uuid.NewRandom()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(consecutive_number\), 0\) \+ 1 FROM invoices WHERE company_id = \$1`).
		WithArgs(companyID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(7))

	consecutive, err := repository.NextInvoiceConsecutive(context.Background(), companyID)
	assert.NoError(r.T(), err)
	assert.Equal(r.T(), 7, consecutive)
}

func (r *RepositoryTestSuite) TestCreateInvoiceTransactional() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer func() {
		assert.NoError(r.T(), mock.ExpectationsWereMet())
		db.Close()
	}()
	repository := NewRepository(db)

	invoice := &models.Invoice{
		ID:            uuid.NewRandom(),
		CompanyID:     uuid.NewRandom(),
		InvoiceNumber: "FAC-00000001",
		Status:        models.InvoiceStatusDraft,
		PayerID:       uuid.NewRandom(),
		PatientID:     uuid.NewRandom(),
	}
	items := []*models.InvoiceLineItem{
		{ID: uuid.NewRandom(), InvoiceID: invoice.ID, Kind: models.ServiceKindConsultation},
		{ID: uuid.NewRandom(), InvoiceID: invoice.ID, Kind: models.ServiceKindMedication},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO invoices`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO invoice_line_items`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	assert.NoError(r.T(), repository.CreateInvoice(context.Background(), invoice, items))
}

func (r *RepositoryTestSuite) TestCreateInvoiceRollsBack() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer func() {
		assert.NoError(r.T(), mock.ExpectationsWereMet())
		db.Close()
	}()
	repository := NewRepository(db)

	invoice := &models.Invoice{ID: uuid.NewRandom(), CompanyID: uuid.NewRandom(),
		PayerID: uuid.NewRandom(), PatientID: uuid.NewRandom()}
	items := []*models.InvoiceLineItem{{ID: uuid.NewRandom(), InvoiceID: invoice.ID}}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO invoices`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO invoice_line_items`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	assert.Error(r.T(), repository.CreateInvoice(context.Background(), invoice, items))
}

func (r *RepositoryTestSuite) TestGetInvoicesByIDs() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer func() {
		assert.NoError(r.T(), mock.ExpectationsWereMet())
		db.Close()
	}()
	repository := NewRepository(db)

	ids := []uuid.UUID{uuid.NewRandom(), uuid.NewRandom()}
	now := time.Now().Round(time.Millisecond).UTC()

	rows := sqlmock.NewRows([]string{
		"id", "company_id", "invoice_number", "invoice_prefix", "consecutive_number",
		"invoice_date", "service_date_from", "service_date_to", "invoice_type", "status",
		"payer_id", "patient_id", "subtotal", "discount_amount", "tax_amount",
		"copayment_amount", "moderator_fee_amount", "total", "paid_amount", "balance",
		"has_glosa", "glosa_amount", "rips_generated", "rips_generation_date",
		"created_at", "updated_at"})
	for i, id := range ids {
		rows.AddRow(id, uuid.NewRandom(), "FAC-0000000"+string(rune('1'+i)), "FAC-", i+1,
			now, now, now, "ambulatory", "issued", uuid.NewRandom(), uuid.NewRandom(),
			"100.00", "0", "0", "0", "0", "100.00", "0", "100.00",
			false, "0", false, nil, now, now)
	}

	mock.ExpectQuery(`SELECT .+ FROM invoices WHERE id IN \(\$1, \$2\) ORDER BY consecutive_number`).
		WithArgs(ids[0], ids[1]).
		WillReturnRows(rows)

	invoices, err := repository.GetInvoicesByIDs(context.Background(), ids)
	assert.NoError(r.T(), err)
	assert.Len(r.T(), invoices, 2)
	assert.Equal(r.T(), models.InvoiceStatusIssued, invoices[0].Status)
	assert.True(r.T(), invoices[1].Total.Equal(decimal.RequireFromString("100.00")))
	assert.Nil(r.T(), invoices[0].RIPSGenerationDate)
}

func (r *RepositoryTestSuite) TestGetRIPSFileByID() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer func() {
		assert.NoError(r.T(), mock.ExpectationsWereMet())
		db.Close()
	}()
	repository := NewRepository(db)

	fileID := uuid.NewRandom()
	now := time.Now().Round(time.Millisecond).UTC()

	mock.ExpectQuery(`SELECT .+ FROM rips_files WHERE id = \$1`).
		WithArgs(fileID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "file_number", "status", "period_start", "period_end",
			"payer_id", "provider_nit", "provider_code", "json_file_path", "txt_file_path",
			"total_invoices", "total_patients", "total_amount", "sent_date", "sent_to",
			"response_date", "generated_at", "created_at"}).
			AddRow(fileID, uuid.NewRandom(), "RIPS-202506-deadbeef", "generated", now, now,
				uuid.NewRandom(), "900123456", "", "/tmp/x.json", "/tmp/x.txt.d",
				1, 1, "65000.00", nil, "", nil, now, now))

	file, err := repository.GetRIPSFileByID(context.Background(), fileID)
	assert.NoError(r.T(), err)
	assert.Equal(r.T(), models.RIPSFileStatusGenerated, file.Status)
	assert.Nil(r.T(), file.SentDate)
	assert.NotNil(r.T(), file.GeneratedAt)
}

func (r *RepositoryTestSuite) TestCreatePayment() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer func() {
		assert.NoError(r.T(), mock.ExpectationsWereMet())
		db.Close()
	}()
	repository := NewRepository(db)

	payment := &models.Payment{
		ID:            uuid.NewRandom(),
		CompanyID:     uuid.NewRandom(),
		InvoiceID:     uuid.NewRandom(),
		PaymentNumber: "FAC-00000001-P20250615080000",
		PaymentDate:   time.Now(),
		Amount:        decimal.RequireFromString("50000.00"),
	}

	mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(r.T(), repository.CreatePayment(context.Background(), payment))
}

func (r *RepositoryTestSuite) TestUpdateGlosaNotFound() {
	db, mock, err := sqlmock.New()
	assert.NoError(r.T(), err)
	defer db.Close()
	repository := NewRepository(db)

	mock.ExpectExec(`UPDATE glosas SET .+ WHERE .+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repository.UpdateGlosa(context.Background(), &models.Glosa{ID: uuid.NewRandom()})
	assert.ErrorIs(r.T(), err, models.ErrNotUpdated)
}
