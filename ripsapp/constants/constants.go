package constants

// This is set during compilation.
var Version = "latest"

// Fallback NIT used when a tenant has no billing identity configured.
const DefaultProviderNIT = "800037021"

// Country/residence defaults for user records whose demographics do not carry
// the value. The wire schema is code-enumerated, blanks are rejected by the
// ministry validator, so every default is an explicit constant.
const (
	CountryColombia       = "170"
	DefaultMunicipality   = "05001"
	ZoneUrban             = "01"
	ZoneRural             = "02"
	DisabilityNo          = "NO"
	DisabilityYes         = "SI"
	DefaultUserType       = "04" // particular
	DefaultDocumentType   = "CC"
	DefaultDiagnosis      = "Z000" // unspecified general examination
	DefaultCollectConcept = "05"   // cuota moderadora
)

// Consultation (AC) record defaults.
const (
	DefaultConsultationCode  = "890701" // consulta medicina general
	ConsultModality          = "01"     // intramural
	ConsultServiceGroup      = "01"     // consulta externa
	ConsultServiceCode       = 110
	ConsultPurpose           = "10" // diagnóstico
	ConsultExternalCause     = "21" // enfermedad general
	ConsultDiagnosisType     = "01" // impresión diagnóstica
)

// Procedure (AP) record defaults.
const (
	DefaultProcedureCode  = "871111"
	ProcedureEntryRoute   = "01" // consulta externa
	ProcedureModality     = "01"
	ProcedureServiceGroup = "03" // procedimientos
	ProcedureServiceCode  = 300
	ProcedurePurpose      = "02" // tratamiento
)

// Medication (AM) record defaults.
const (
	DefaultMedicationCode    = "19934768-18"
	MedicationTypePOS        = "01"
	MedicationMeasureUnit    = 159
	MedicationPharmaForm     = "COLFF004"
	MedicationMinDispense    = 74
	MedicationTreatmentDays  = 1
)

// Other services (AT) record defaults.
const (
	DefaultOtherServiceCode = "SRV001"
	OtherServiceTypeSupply  = "01" // insumo
)

// Generic adapter fallbacks for service kinds without a richer source shape.
const (
	HospitalizationServiceCode = "HOSP001"
	GenericServiceCode         = "SERV001"
)

// Legacy pipe-delimited file names, one per record type.
const (
	LegacyControlFile       = "CT.txt"
	LegacyUserFile          = "US.txt"
	LegacyConsultationFile  = "AC.txt"
	LegacyProcedureFile     = "AP.txt"
	LegacyMedicationFile    = "AM.txt"
	LegacyOtherServicesFile = "AT.txt"
)

// DocumentTypes enumerates the identity document codes accepted on RIPS user
// records.
var DocumentTypes = map[string]string{
	"CC": "CC",
	"TI": "TI",
	"CE": "CE",
	"PA": "PA",
	"RC": "RC",
	"MS": "MS",
	"AS": "AS",
}

// RegimeUserTypes maps an insurance regime to the two digit RIPS user type.
var RegimeUserTypes = map[string]string{
	"contributivo": "01",
	"subsidiado":   "02",
	"vinculado":    "03",
	"particular":   "04",
	"especial":     "05",
}
