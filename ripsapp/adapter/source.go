package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/huandu/go-sqlbuilder"
	"github.com/saludtotal/rips-app/ripsapp/models"
)

// SQLSource resolves service references against the clinical_services view,
// the read model the clinical modules publish their billable records into.
type SQLSource struct {
	db *sql.DB
}

func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

func (s *SQLSource) Lookup(ctx context.Context, kind models.ServiceKind, ref string) (*RawRecord, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("code", "description", "service_date", "quantity", "total_amount",
		"unit_cost", "diagnosis_code", "authorization_number", "admission_type")
	sb.From("clinical_services")
	sb.Where(sb.Equal("kind", kind), sb.Equal("service_ref", ref))

	var raw RawRecord
	query, args := sb.Build()
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw.Code, &raw.Description,
		&raw.Date, &raw.Quantity, &raw.TotalAmount, &raw.UnitCost,
		&raw.DiagnosisCode, &raw.AuthorizationNumber, &raw.AdmissionType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &raw, nil
}
