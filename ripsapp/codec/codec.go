// Package codec renders one invoice, its line items and the patient
// demographics into the RIPS wire structure. Encoding is pure and
// deterministic: the same unchanged invoice always yields byte-identical
// output, and the codec never emits a partial structure.
package codec

import (
	"encoding/json"

	"github.com/saludtotal/rips-app/ripsapp/constants"
	ripserrors "github.com/saludtotal/rips-app/ripsapp/errors"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
)

const (
	dateTimeLayout = "2006-01-02 15:04"
	dateLayout     = "2006-01-02"
)

// Transmission is the RIPS root object. Field order matches the ministry
// schema; struct order drives marshal order, which keeps re-encodes stable.
type Transmission struct {
	NumDocumentoIdObligado string      `json:"numDocumentoIdObligado"`
	NumFactura             string      `json:"numFactura"`
	TipoNota               *string     `json:"tipoNota"`
	NumNota                *string     `json:"numNota"`
	Usuarios               []UserBlock `json:"usuarios"`
}

// UserBlock is one patient inside a transmission. Single-patient invoices
// only; the batch layer rejects anything else before it reaches the codec.
type UserBlock struct {
	TipoDocumentoIdentificacion  string   `json:"tipoDocumentoIdentificacion"`
	NumDocumentoIdentificacion   string   `json:"numDocumentoIdentificacion"`
	TipoUsuario                  string   `json:"tipoUsuario"`
	FechaNacimiento              string   `json:"fechaNacimiento"`
	CodSexo                      string   `json:"codSexo"`
	CodPaisResidencia            string   `json:"codPaisResidencia"`
	CodMunicipioResidencia       string   `json:"codMunicipioResidencia"`
	CodZonaTerritorialResidencia string   `json:"codZonaTerritorialResidencia"`
	Incapacidad                  string   `json:"incapacidad"`
	CodPaisOrigen                string   `json:"codPaisOrigen"`
	Consecutivo                  int      `json:"consecutivo"`
	Servicios                    Services `json:"servicios"`
}

// Services holds the per-category arrays. Empty categories MUST be omitted
// entirely; the downstream validator rejects empty arrays.
type Services struct {
	Consultas      []Consulta      `json:"consultas,omitempty"`
	Procedimientos []Procedimiento `json:"procedimientos,omitempty"`
	Medicamentos   []Medicamento   `json:"medicamentos,omitempty"`
	OtrosServicios []OtroServicio  `json:"otrosServicios,omitempty"`
}

// Consulta is an AC record.
type Consulta struct {
	CodPrestador                 string  `json:"codPrestador"`
	FechaInicioAtencion          string  `json:"fechaInicioAtencion"`
	NumAutorizacion              string  `json:"numAutorizacion"`
	CodConsulta                  string  `json:"codConsulta"`
	ModalidadGrupoServicioTecSal string  `json:"modalidadGrupoServicioTecSal"`
	GrupoServicios               string  `json:"grupoServicios"`
	CodServicio                  int     `json:"codServicio"`
	FinalidadTecnologiaSalud     string  `json:"finalidadTecnologiaSalud"`
	CausaMotivoAtencion          string  `json:"causaMotivoAtencion"`
	CodDiagnosticoPrincipal      string  `json:"codDiagnosticoPrincipal"`
	CodDiagnosticoRelacionado1   string  `json:"codDiagnosticoRelacionado1"`
	CodDiagnosticoRelacionado2   string  `json:"codDiagnosticoRelacionado2"`
	CodDiagnosticoRelacionado3   string  `json:"codDiagnosticoRelacionado3"`
	TipoDiagnosticoPrincipal     string  `json:"tipoDiagnosticoPrincipal"`
	TipoDocumentoIdentificacion  string  `json:"tipoDocumentoIdentificacion"`
	NumDocumentoIdentificacion   string  `json:"numDocumentoIdentificacion"`
	VrServicio                   float64 `json:"vrServicio"`
	ConceptoRecaudo              string  `json:"conceptoRecaudo"`
	ValorPagoModerador           float64 `json:"valorPagoModerador"`
	NumFEVPagoModerador          string  `json:"numFEVPagoModerador"`
	Consecutivo                  int     `json:"consecutivo"`
}

// Procedimiento is an AP record.
type Procedimiento struct {
	CodPrestador                 string  `json:"codPrestador"`
	FechaInicioAtencion          string  `json:"fechaInicioAtencion"`
	IDMIPRES                     string  `json:"idMIPRES"`
	NumAutorizacion              string  `json:"numAutorizacion"`
	CodProcedimiento             string  `json:"codProcedimiento"`
	ViaIngresoServicioSalud      string  `json:"viaIngresoServicioSalud"`
	ModalidadGrupoServicioTecSal string  `json:"modalidadGrupoServicioTecSal"`
	GrupoServicios               string  `json:"grupoServicios"`
	CodServicio                  int     `json:"codServicio"`
	FinalidadTecnologiaSalud     string  `json:"finalidadTecnologiaSalud"`
	TipoDocumentoIdentificacion  string  `json:"tipoDocumentoIdentificacion"`
	NumDocumentoIdentificacion   string  `json:"numDocumentoIdentificacion"`
	CodDiagnosticoPrincipal      string  `json:"codDiagnosticoPrincipal"`
	CodDiagnosticoRelacionado    string  `json:"codDiagnosticoRelacionado"`
	CodComplicacion              string  `json:"codComplicacion"`
	VrServicio                   float64 `json:"vrServicio"`
	ConceptoRecaudo              string  `json:"conceptoRecaudo"`
	ValorPagoModerador           float64 `json:"valorPagoModerador"`
	NumFEVPagoModerador          string  `json:"numFEVPagoModerador"`
	Consecutivo                  int     `json:"consecutivo"`
}

// Medicamento is an AM record.
type Medicamento struct {
	CodPrestador                string  `json:"codPrestador"`
	NumAutorizacion             string  `json:"numAutorizacion"`
	IDMIPRES                    string  `json:"idMIPRES"`
	FechaDispensAdmon           string  `json:"fechaDispensAdmon"`
	CodDiagnosticoPrincipal     string  `json:"codDiagnosticoPrincipal"`
	CodDiagnosticoRelacionado   string  `json:"codDiagnosticoRelacionado"`
	TipoMedicamento             string  `json:"tipoMedicamento"`
	CodTecnologiaSalud          string  `json:"codTecnologiaSalud"`
	NomTecnologiaSalud          string  `json:"nomTecnologiaSalud"`
	ConcentracionMedicamento    float64 `json:"concentracionMedicamento"`
	UnidadMedida                int     `json:"unidadMedida"`
	FormaFarmaceutica           string  `json:"formaFarmaceutica"`
	UnidadMinDispensa           int     `json:"unidadMinDispensa"`
	CantidadMedicamento         float64 `json:"cantidadMedicamento"`
	DiasTratamiento             int     `json:"diasTratamiento"`
	TipoDocumentoIdentificacion string  `json:"tipoDocumentoIdentificacion"`
	NumDocumentoIdentificacion  string  `json:"numDocumentoIdentificacion"`
	VrUnitMedicamento           float64 `json:"vrUnitMedicamento"`
	VrServicio                  float64 `json:"vrServicio"`
	ConceptoRecaudo             string  `json:"conceptoRecaudo"`
	ValorPagoModerador          float64 `json:"valorPagoModerador"`
	NumFEVPagoModerador         string  `json:"numFEVPagoModerador"`
	Consecutivo                 int     `json:"consecutivo"`
}

// OtroServicio is an AT record (supplies, devices, everything unrouted).
type OtroServicio struct {
	CodPrestador                string  `json:"codPrestador"`
	NumAutorizacion             string  `json:"numAutorizacion"`
	IDMIPRES                    string  `json:"idMIPRES"`
	FechaSuministroTecnologia   string  `json:"fechaSuministroTecnologia"`
	TipoOS                      string  `json:"tipoOS"`
	CodTecnologiaSalud          string  `json:"codTecnologiaSalud"`
	NomTecnologiaSalud          string  `json:"nomTecnologiaSalud"`
	CantidadOS                  float64 `json:"cantidadOS"`
	TipoDocumentoIdentificacion string  `json:"tipoDocumentoIdentificacion"`
	NumDocumentoIdentificacion  string  `json:"numDocumentoIdentificacion"`
	VrUnitOS                    float64 `json:"vrUnitOS"`
	VrServicio                  float64 `json:"vrServicio"`
	ConceptoRecaudo             string  `json:"conceptoRecaudo"`
	ValorPagoModerador          float64 `json:"valorPagoModerador"`
	NumFEVPagoModerador         string  `json:"numFEVPagoModerador"`
	Consecutivo                 int     `json:"consecutivo"`
}

// Input is everything the codec needs for one invoice. ProviderNIT is the
// reporting entity (numDocumentoIdObligado); NoteType/NoteNumber mark credit
// and debit note transactions.
type Input struct {
	Invoice     *models.Invoice
	Items       []*models.InvoiceLineItem
	Patient     *models.Patient
	ProviderNIT string
	NoteType    models.NoteType
	NoteNumber  string
}

// Encode builds the complete transmission or fails without emitting anything.
func Encode(in Input) (*Transmission, error) {
	user, err := userBlock(in.Patient)
	if err != nil {
		return nil, err
	}

	nit := in.ProviderNIT
	if nit == "" {
		nit = constants.DefaultProviderNIT
	}

	var servicios Services
	// The consecutivo runs 1-based across all categories in insertion
	// order and must be stable across re-encodes.
	for i, item := range in.Items {
		consecutivo := i + 1
		switch category(item.Kind) {
		case models.ServiceKindConsultation:
			servicios.Consultas = append(servicios.Consultas, consulta(item, in.Patient, nit, consecutivo))
		case models.ServiceKindProcedure:
			servicios.Procedimientos = append(servicios.Procedimientos, procedimiento(item, in.Patient, nit, consecutivo))
		case models.ServiceKindMedication:
			servicios.Medicamentos = append(servicios.Medicamentos, medicamento(item, in.Patient, nit, consecutivo))
		case models.ServiceKindOther:
			servicios.OtrosServicios = append(servicios.OtrosServicios, otroServicio(item, in.Patient, nit, consecutivo))
		default:
			return nil, &ripserrors.UnroutableServiceTypeError{Kind: string(item.Kind)}
		}
	}

	user.Consecutivo = 1
	user.Servicios = servicios

	t := &Transmission{
		NumDocumentoIdObligado: nit,
		NumFactura:             in.Invoice.InvoiceNumber,
		Usuarios:               []UserBlock{user},
	}

	if in.NoteType != "" {
		noteType := string(in.NoteType)
		t.TipoNota = &noteType
		noteNumber := in.NoteNumber
		t.NumNota = &noteNumber
	}

	return t, nil
}

// EncodeJSON renders the transmission as indented JSON. encoding/json emits
// struct fields in declaration order, so output is byte-stable.
func EncodeJSON(in Input) ([]byte, error) {
	t, err := Encode(in)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(t, "", "  ")
}

// MarshalBatch renders a submission batch, one transmission per invoice, as
// a single JSON document in transaction order.
func MarshalBatch(transmissions []*Transmission) ([]byte, error) {
	return json.MarshalIndent(transmissions, "", "  ")
}

// category routes a service kind to one of the four wire categories.
// Routing is total: anything without a dedicated schema goes to
// otrosServicios, never dropped.
func category(kind models.ServiceKind) models.ServiceKind {
	switch kind {
	case models.ServiceKindConsultation, models.ServiceKindProcedure, models.ServiceKindMedication:
		return kind
	default:
		return models.ServiceKindOther
	}
}

func userBlock(p *models.Patient) (UserBlock, error) {
	if p == nil {
		return UserBlock{}, &ripserrors.MissingPatientDataError{Field: "patient"}
	}
	if p.DocumentNumber == "" {
		return UserBlock{}, &ripserrors.MissingPatientDataError{Field: "numDocumentoIdentificacion"}
	}
	if p.BirthDate.IsZero() {
		return UserBlock{}, &ripserrors.MissingPatientDataError{Field: "fechaNacimiento"}
	}
	if p.Sex != "M" && p.Sex != "F" {
		return UserBlock{}, &ripserrors.MissingPatientDataError{Field: "codSexo"}
	}

	docType, ok := constants.DocumentTypes[p.DocumentType]
	if !ok {
		docType = constants.DefaultDocumentType
	}
	userType, ok := constants.RegimeUserTypes[p.Regime]
	if !ok {
		userType = constants.DefaultUserType
	}

	residenceCountry := p.ResidenceCountry
	if residenceCountry == "" {
		residenceCountry = constants.CountryColombia
	}
	municipality := p.ResidenceMunicipality
	if municipality == "" {
		municipality = constants.DefaultMunicipality
	}
	zone := p.ResidenceZone
	if zone != constants.ZoneUrban && zone != constants.ZoneRural {
		zone = constants.ZoneUrban
	}
	origin := p.OriginCountry
	if origin == "" {
		origin = constants.CountryColombia
	}
	disability := constants.DisabilityNo
	if p.Disabled {
		disability = constants.DisabilityYes
	}

	return UserBlock{
		TipoDocumentoIdentificacion:  docType,
		NumDocumentoIdentificacion:   p.DocumentNumber,
		TipoUsuario:                  userType,
		FechaNacimiento:              p.BirthDate.Format(dateLayout),
		CodSexo:                      p.Sex,
		CodPaisResidencia:            residenceCountry,
		CodMunicipioResidencia:       municipality,
		CodZonaTerritorialResidencia: zone,
		Incapacidad:                  disability,
		CodPaisOrigen:                origin,
	}, nil
}

func consulta(item *models.InvoiceLineItem, p *models.Patient, nit string, consecutivo int) Consulta {
	code := item.ServiceCode
	if code == "" {
		code = constants.DefaultConsultationCode
	}

	return Consulta{
		CodPrestador:                 nit,
		FechaInicioAtencion:          item.ServiceDate.Format(dateTimeLayout),
		NumAutorizacion:              item.AuthorizationNumber,
		CodConsulta:                  code,
		ModalidadGrupoServicioTecSal: constants.ConsultModality,
		GrupoServicios:               constants.ConsultServiceGroup,
		CodServicio:                  constants.ConsultServiceCode,
		FinalidadTecnologiaSalud:     constants.ConsultPurpose,
		CausaMotivoAtencion:          constants.ConsultExternalCause,
		CodDiagnosticoPrincipal:      diagnosis(item),
		TipoDiagnosticoPrincipal:     constants.ConsultDiagnosisType,
		TipoDocumentoIdentificacion:  constants.DefaultDocumentType,
		NumDocumentoIdentificacion:   p.DocumentNumber,
		VrServicio:                   money(item.TotalAmount),
		ConceptoRecaudo:              constants.DefaultCollectConcept,
		ValorPagoModerador:           money(item.ModeratorFee),
		Consecutivo:                  consecutivo,
	}
}

func procedimiento(item *models.InvoiceLineItem, p *models.Patient, nit string, consecutivo int) Procedimiento {
	code := item.ServiceCode
	if code == "" {
		code = constants.DefaultProcedureCode
	}

	return Procedimiento{
		CodPrestador:                 nit,
		FechaInicioAtencion:          item.ServiceDate.Format(dateTimeLayout),
		NumAutorizacion:              item.AuthorizationNumber,
		CodProcedimiento:             code,
		ViaIngresoServicioSalud:      constants.ProcedureEntryRoute,
		ModalidadGrupoServicioTecSal: constants.ProcedureModality,
		GrupoServicios:               constants.ProcedureServiceGroup,
		CodServicio:                  constants.ProcedureServiceCode,
		FinalidadTecnologiaSalud:     constants.ProcedurePurpose,
		TipoDocumentoIdentificacion:  constants.DefaultDocumentType,
		NumDocumentoIdentificacion:   p.DocumentNumber,
		CodDiagnosticoPrincipal:      diagnosis(item),
		VrServicio:                   money(item.TotalAmount),
		ConceptoRecaudo:              constants.DefaultCollectConcept,
		ValorPagoModerador:           money(item.ModeratorFee),
		Consecutivo:                  consecutivo,
	}
}

func medicamento(item *models.InvoiceLineItem, p *models.Patient, nit string, consecutivo int) Medicamento {
	code := item.ServiceCode
	if code == "" {
		code = constants.DefaultMedicationCode
	}
	name := item.ServiceName
	if name == "" {
		name = "Medicamento"
	}

	return Medicamento{
		CodPrestador:                nit,
		NumAutorizacion:             item.AuthorizationNumber,
		FechaDispensAdmon:           item.ServiceDate.Format(dateTimeLayout),
		CodDiagnosticoPrincipal:     diagnosis(item),
		TipoMedicamento:             constants.MedicationTypePOS,
		CodTecnologiaSalud:          code,
		NomTecnologiaSalud:          name,
		UnidadMedida:                constants.MedicationMeasureUnit,
		FormaFarmaceutica:           constants.MedicationPharmaForm,
		UnidadMinDispensa:           constants.MedicationMinDispense,
		CantidadMedicamento:         money(item.Quantity),
		DiasTratamiento:             constants.MedicationTreatmentDays,
		TipoDocumentoIdentificacion: constants.DefaultDocumentType,
		NumDocumentoIdentificacion:  p.DocumentNumber,
		VrUnitMedicamento:           money(item.UnitPrice),
		VrServicio:                  money(item.TotalAmount),
		ConceptoRecaudo:             constants.DefaultCollectConcept,
		ValorPagoModerador:          money(item.ModeratorFee),
		Consecutivo:                 consecutivo,
	}
}

func otroServicio(item *models.InvoiceLineItem, p *models.Patient, nit string, consecutivo int) OtroServicio {
	code := item.ServiceCode
	if code == "" {
		code = constants.DefaultOtherServiceCode
	}
	name := item.ServiceName
	if name == "" {
		name = "Servicio"
	}

	return OtroServicio{
		CodPrestador:                nit,
		NumAutorizacion:             item.AuthorizationNumber,
		FechaSuministroTecnologia:   item.ServiceDate.Format(dateTimeLayout),
		TipoOS:                      constants.OtherServiceTypeSupply,
		CodTecnologiaSalud:          code,
		NomTecnologiaSalud:          name,
		CantidadOS:                  money(item.Quantity),
		TipoDocumentoIdentificacion: constants.DefaultDocumentType,
		NumDocumentoIdentificacion:  p.DocumentNumber,
		VrUnitOS:                    money(item.UnitPrice),
		VrServicio:                  money(item.TotalAmount),
		ConceptoRecaudo:             constants.DefaultCollectConcept,
		ValorPagoModerador:          money(item.ModeratorFee),
		Consecutivo:                 consecutivo,
	}
}

func diagnosis(item *models.InvoiceLineItem) string {
	if item.DiagnosisCode != "" {
		return item.DiagnosisCode
	}
	return constants.DefaultDiagnosis
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
