// Package adapter normalizes heterogeneous clinical service records into the
// fields the billing pipeline needs. Each service kind has its own extraction
// rule because the source record shapes differ; this registry is the only
// coupling between billing and the clinical modules.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/saludtotal/rips-app/ripsapp/constants"
	ripserrors "github.com/saludtotal/rips-app/ripsapp/errors"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
)

// ServiceFields is the normalized shape every extraction rule produces.
type ServiceFields struct {
	Code                string
	Name                string
	Date                time.Time
	Quantity            decimal.Decimal
	UnitCost            decimal.Decimal
	DiagnosisCode       string
	AuthorizationNumber string
}

// RawRecord is the loosely populated record a clinical module returns for a
// service reference. Extraction rules pick the fields their kind carries and
// default the rest.
type RawRecord struct {
	Code        string
	Description string
	Date        time.Time

	Quantity decimal.Decimal

	// Cost carriers; the first positive one wins. Different modules name
	// their total differently (dispensing amount, order cost, stay cost).
	TotalAmount   decimal.Decimal
	TotalCost     decimal.Decimal
	TotalStayCost decimal.Decimal
	UnitCost      decimal.Decimal

	DiagnosisCode       string
	AuthorizationNumber string

	AdmissionType string
}

// Cost resolves the record's billable amount.
func (r *RawRecord) Cost() decimal.Decimal {
	for _, c := range []decimal.Decimal{r.TotalAmount, r.TotalCost, r.TotalStayCost} {
		if c.IsPositive() {
			return c
		}
	}
	return decimal.Zero
}

// Source is the lookup every clinical collaborator must expose.
// A reference that no longer resolves returns ErrRecordNotFound.
type Source interface {
	Lookup(ctx context.Context, kind models.ServiceKind, ref string) (*RawRecord, error)
}

// ErrRecordNotFound is returned by a Source when the referenced clinical
// record no longer exists.
var ErrRecordNotFound = fmt.Errorf("service record not found")

// ExtractFunc turns a raw record into normalized service fields.
type ExtractFunc func(raw *RawRecord) ServiceFields

// Registry maps each service kind to its extraction rule.
type Registry struct {
	source  Source
	extract map[models.ServiceKind]ExtractFunc
}

func NewRegistry(source Source) *Registry {
	r := &Registry{source: source, extract: make(map[models.ServiceKind]ExtractFunc)}

	r.extract[models.ServiceKindConsultation] = extractWithDefaults(constants.DefaultConsultationCode, "Consulta")
	r.extract[models.ServiceKindProcedure] = extractWithDefaults(constants.DefaultProcedureCode, "Procedimiento")
	r.extract[models.ServiceKindMedication] = extractMedication
	r.extract[models.ServiceKindLaboratory] = extractWithDefaults(constants.GenericServiceCode, "Laboratorio")
	r.extract[models.ServiceKindImaging] = extractImaging
	r.extract[models.ServiceKindHospitalization] = extractHospitalization
	r.extract[models.ServiceKindSurgery] = extractWithDefaults(constants.GenericServiceCode, "Cirugía")
	r.extract[models.ServiceKindOther] = extractWithDefaults(constants.GenericServiceCode, "Otro Servicio")

	return r
}

// Extract looks up the referenced record and normalizes it. A missing record
// is a hard error (StaleReferenceError); the caller decides whether a cached
// cost snapshot may stand in for it.
func (r *Registry) Extract(ctx context.Context, kind models.ServiceKind, ref string) (ServiceFields, error) {
	fn, ok := r.extract[kind]
	if !ok {
		// Unknown kinds still bill; they route to the generic rule.
		fn = extractWithDefaults(constants.GenericServiceCode, string(kind))
	}

	raw, err := r.source.Lookup(ctx, kind, ref)
	if err != nil {
		return ServiceFields{}, &ripserrors.StaleReferenceError{Err: err, Kind: string(kind), Ref: ref}
	}

	return fn(raw), nil
}

func extractWithDefaults(defaultCode, defaultName string) ExtractFunc {
	return func(raw *RawRecord) ServiceFields {
		f := baseFields(raw)
		if f.Code == "" {
			f.Code = defaultCode
		}
		if f.Name == "" {
			f.Name = defaultName
		}
		return f
	}
}

func extractMedication(raw *RawRecord) ServiceFields {
	f := baseFields(raw)
	if f.Code == "" {
		f.Code = raw.AuthorizationNumber
	}
	if f.Code == "" {
		f.Code = constants.DefaultMedicationCode
	}
	if f.Name == "" {
		f.Name = "Medicamentos dispensados"
	}
	return f
}

func extractImaging(raw *RawRecord) ServiceFields {
	f := baseFields(raw)
	if f.Name == "" {
		f.Name = raw.Description
	}
	// Imaging orders carry no payer authorization of their own.
	f.AuthorizationNumber = ""
	if f.Code == "" {
		f.Code = constants.GenericServiceCode
	}
	return f
}

func extractHospitalization(raw *RawRecord) ServiceFields {
	f := baseFields(raw)
	f.Code = constants.HospitalizationServiceCode
	name := "Hospitalización"
	if raw.AdmissionType != "" {
		name = fmt.Sprintf("Hospitalización - %s", raw.AdmissionType)
	}
	f.Name = name
	return f
}

func baseFields(raw *RawRecord) ServiceFields {
	f := ServiceFields{
		Code:                raw.Code,
		Name:                raw.Description,
		Date:                raw.Date,
		Quantity:            raw.Quantity,
		UnitCost:            raw.UnitCost,
		DiagnosisCode:       raw.DiagnosisCode,
		AuthorizationNumber: raw.AuthorizationNumber,
	}

	if f.Quantity.IsZero() {
		f.Quantity = decimal.NewFromInt(1)
	}
	if f.UnitCost.IsZero() {
		// Per-unit cost derived from the record total when the module only
		// reports an aggregate.
		f.UnitCost = raw.Cost().Div(f.Quantity)
	}
	if f.DiagnosisCode == "" {
		f.DiagnosisCode = constants.DefaultDiagnosis
	}

	return f
}
