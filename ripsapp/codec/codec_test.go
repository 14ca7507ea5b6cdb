package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pborman/uuid"
	ripserrors "github.com/saludtotal/rips-app/ripsapp/errors"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CodecTestSuite struct {
	suite.Suite
	patient *models.Patient
	invoice *models.Invoice
}

func (s *CodecTestSuite) SetupTest() {
	s.patient = &models.Patient{
		ID:             uuid.NewRandom(),
		FullName:       "María Gómez",
		DocumentType:   "CC",
		DocumentNumber: "43512345",
		Regime:         "contributivo",
		BirthDate:      time.Date(1985, 3, 14, 0, 0, 0, 0, time.UTC),
		Sex:            "F",
	}
	s.invoice = &models.Invoice{
		ID:            uuid.NewRandom(),
		InvoiceNumber: "FAC-00000042",
	}
}

func (s *CodecTestSuite) item(kind models.ServiceKind, code string, amount string) *models.InvoiceLineItem {
	return &models.InvoiceLineItem{
		ID:          uuid.NewRandom(),
		InvoiceID:   s.invoice.ID,
		Kind:        kind,
		ServiceCode: code,
		ServiceName: "Servicio de prueba",
		ServiceDate: time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC),
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.RequireFromString(amount),
		TotalAmount: decimal.RequireFromString(amount),
	}
}

func (s *CodecTestSuite) TestEncodeRouting() {
	items := []*models.InvoiceLineItem{
		s.item(models.ServiceKindConsultation, "890701", "65000"),
		s.item(models.ServiceKindMedication, "19934768-18", "12500.50"),
		s.item(models.ServiceKindImaging, "879101", "180000"),
	}

	t, err := Encode(Input{Invoice: s.invoice, Items: items, Patient: s.patient, ProviderNIT: "900123456"})
	s.NoError(err)
	s.Equal("900123456", t.NumDocumentoIdObligado)
	s.Equal("FAC-00000042", t.NumFactura)
	s.Nil(t.TipoNota)
	s.Nil(t.NumNota)
	s.Len(t.Usuarios, 1)

	user := t.Usuarios[0]
	s.Equal(1, user.Consecutivo)
	s.Equal("CC", user.TipoDocumentoIdentificacion)
	s.Equal("43512345", user.NumDocumentoIdentificacion)
	s.Equal("01", user.TipoUsuario)
	s.Equal("1985-03-14", user.FechaNacimiento)
	s.Equal("170", user.CodPaisResidencia)
	s.Equal("05001", user.CodMunicipioResidencia)
	s.Equal("NO", user.Incapacidad)

	s.Len(user.Servicios.Consultas, 1)
	s.Len(user.Servicios.Medicamentos, 1)
	s.Len(user.Servicios.OtrosServicios, 1, "imaging routes to otrosServicios")
	s.Empty(user.Servicios.Procedimientos)

	// Consecutivo runs across categories in line item order.
	s.Equal(1, user.Servicios.Consultas[0].Consecutivo)
	s.Equal(2, user.Servicios.Medicamentos[0].Consecutivo)
	s.Equal(3, user.Servicios.OtrosServicios[0].Consecutivo)

	s.Equal(65000.0, user.Servicios.Consultas[0].VrServicio)
	s.Equal(12500.5, user.Servicios.Medicamentos[0].VrServicio)
	s.Equal("879101", user.Servicios.OtrosServicios[0].CodTecnologiaSalud)
}

func (s *CodecTestSuite) TestEncodeJSONOmitsEmptyCategories() {
	items := []*models.InvoiceLineItem{
		s.item(models.ServiceKindConsultation, "890701", "65000"),
	}

	raw, err := EncodeJSON(Input{Invoice: s.invoice, Items: items, Patient: s.patient})
	s.NoError(err)

	var decoded map[string]interface{}
	s.NoError(json.Unmarshal(raw, &decoded))

	users := decoded["usuarios"].([]interface{})
	servicios := users[0].(map[string]interface{})["servicios"].(map[string]interface{})
	s.Contains(servicios, "consultas")
	s.NotContains(servicios, "procedimientos")
	s.NotContains(servicios, "medicamentos")
	s.NotContains(servicios, "otrosServicios")
}

func (s *CodecTestSuite) TestEncodeJSONStable() {
	items := []*models.InvoiceLineItem{
		s.item(models.ServiceKindProcedure, "871111", "320000"),
		s.item(models.ServiceKindOther, "SRV001", "15000"),
	}
	in := Input{Invoice: s.invoice, Items: items, Patient: s.patient}

	first, err := EncodeJSON(in)
	s.NoError(err)
	second, err := EncodeJSON(in)
	s.NoError(err)
	s.Equal(first, second)
}

func (s *CodecTestSuite) TestEncodeDefaultsBlankDemographics() {
	s.patient.DocumentType = "unknown"
	s.patient.Regime = ""
	s.patient.ResidenceZone = "99"

	t, err := Encode(Input{Invoice: s.invoice, Items: nil, Patient: s.patient})
	s.NoError(err)
	user := t.Usuarios[0]
	s.Equal("CC", user.TipoDocumentoIdentificacion)
	s.Equal("04", user.TipoUsuario)
	s.Equal("01", user.CodZonaTerritorialResidencia)
	s.Equal("170", user.CodPaisOrigen)
}

func (s *CodecTestSuite) TestEncodeMissingPatientData() {
	s.patient.DocumentNumber = ""
	_, err := Encode(Input{Invoice: s.invoice, Items: nil, Patient: s.patient})
	var missing *ripserrors.MissingPatientDataError
	s.ErrorAs(err, &missing)
	s.Equal("numDocumentoIdentificacion", missing.Field)

	s.SetupTest()
	s.patient.Sex = "X"
	_, err = Encode(Input{Invoice: s.invoice, Items: nil, Patient: s.patient})
	s.ErrorAs(err, &missing)
	s.Equal("codSexo", missing.Field)

	_, err = Encode(Input{Invoice: s.invoice, Items: nil, Patient: nil})
	s.ErrorAs(err, &missing)
}

func (s *CodecTestSuite) TestEncodeCreditNote() {
	t, err := Encode(Input{
		Invoice:    s.invoice,
		Patient:    s.patient,
		NoteType:   models.NoteTypeCredit,
		NoteNumber: "NC-0001",
	})
	s.NoError(err)
	s.NotNil(t.TipoNota)
	s.Equal("credit", *t.TipoNota)
	s.NotNil(t.NumNota)
	s.Equal("NC-0001", *t.NumNota)
}

func (s *CodecTestSuite) TestEncodeLegacyMirrorsJSON() {
	items := []*models.InvoiceLineItem{
		s.item(models.ServiceKindConsultation, "890701", "65000"),
		s.item(models.ServiceKindMedication, "19934768-18", "12500.50"),
	}

	t, err := Encode(Input{Invoice: s.invoice, Items: items, Patient: s.patient})
	s.NoError(err)

	files := EncodeLegacy(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	s.Contains(files, "CT.txt")
	s.Contains(files, "US.txt")
	s.Contains(files, "AC.txt")
	s.Contains(files, "AM.txt")
	s.NotContains(files, "AP.txt")
	s.NotContains(files, "AT.txt")

	s.Equal("800037021|FAC-00000042|2025-07-01|3\n", files["CT.txt"])
	s.Contains(files["US.txt"], "CC|43512345|01|1985-03-14|F|170|05001|01|NO|170|1")
	s.Contains(files["AC.txt"], "890701")
	s.Contains(files["AC.txt"], "65000")
	s.Contains(files["AM.txt"], "12500.5")
}

func TestCodecTestSuite(t *testing.T) {
	suite.Run(t, new(CodecTestSuite))
}
