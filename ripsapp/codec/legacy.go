package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/saludtotal/rips-app/ripsapp/constants"
)

// EncodeLegacy flattens a transmission into the pipe-delimited files some
// payers still require alongside the JSON. Each record mirrors its JSON
// counterpart field for field, in the same order, so both renditions of the
// same invoice always agree. Files with no records are omitted, matching the
// omit-when-empty rule of the JSON arrays.
func EncodeLegacy(t *Transmission, generatedAt time.Time) map[string]string {
	files := make(map[string]string)

	var us, ac, ap, am, at []string
	records := 0

	for _, user := range t.Usuarios {
		us = append(us, joinFields(
			user.TipoDocumentoIdentificacion,
			user.NumDocumentoIdentificacion,
			user.TipoUsuario,
			user.FechaNacimiento,
			user.CodSexo,
			user.CodPaisResidencia,
			user.CodMunicipioResidencia,
			user.CodZonaTerritorialResidencia,
			user.Incapacidad,
			user.CodPaisOrigen,
			user.Consecutivo,
		))

		for _, c := range user.Servicios.Consultas {
			ac = append(ac, joinFields(
				c.CodPrestador, c.FechaInicioAtencion, c.NumAutorizacion,
				c.CodConsulta, c.ModalidadGrupoServicioTecSal, c.GrupoServicios,
				c.CodServicio, c.FinalidadTecnologiaSalud, c.CausaMotivoAtencion,
				c.CodDiagnosticoPrincipal, c.CodDiagnosticoRelacionado1,
				c.CodDiagnosticoRelacionado2, c.CodDiagnosticoRelacionado3,
				c.TipoDiagnosticoPrincipal, c.TipoDocumentoIdentificacion,
				c.NumDocumentoIdentificacion, c.VrServicio, c.ConceptoRecaudo,
				c.ValorPagoModerador, c.NumFEVPagoModerador, c.Consecutivo,
			))
		}
		for _, p := range user.Servicios.Procedimientos {
			ap = append(ap, joinFields(
				p.CodPrestador, p.FechaInicioAtencion, p.IDMIPRES,
				p.NumAutorizacion, p.CodProcedimiento, p.ViaIngresoServicioSalud,
				p.ModalidadGrupoServicioTecSal, p.GrupoServicios, p.CodServicio,
				p.FinalidadTecnologiaSalud, p.TipoDocumentoIdentificacion,
				p.NumDocumentoIdentificacion, p.CodDiagnosticoPrincipal,
				p.CodDiagnosticoRelacionado, p.CodComplicacion, p.VrServicio,
				p.ConceptoRecaudo, p.ValorPagoModerador, p.NumFEVPagoModerador,
				p.Consecutivo,
			))
		}
		for _, m := range user.Servicios.Medicamentos {
			am = append(am, joinFields(
				m.CodPrestador, m.NumAutorizacion, m.IDMIPRES,
				m.FechaDispensAdmon, m.CodDiagnosticoPrincipal,
				m.CodDiagnosticoRelacionado, m.TipoMedicamento,
				m.CodTecnologiaSalud, m.NomTecnologiaSalud,
				m.ConcentracionMedicamento, m.UnidadMedida, m.FormaFarmaceutica,
				m.UnidadMinDispensa, m.CantidadMedicamento, m.DiasTratamiento,
				m.TipoDocumentoIdentificacion, m.NumDocumentoIdentificacion,
				m.VrUnitMedicamento, m.VrServicio, m.ConceptoRecaudo,
				m.ValorPagoModerador, m.NumFEVPagoModerador, m.Consecutivo,
			))
		}
		for _, o := range user.Servicios.OtrosServicios {
			at = append(at, joinFields(
				o.CodPrestador, o.NumAutorizacion, o.IDMIPRES,
				o.FechaSuministroTecnologia, o.TipoOS, o.CodTecnologiaSalud,
				o.NomTecnologiaSalud, o.CantidadOS,
				o.TipoDocumentoIdentificacion, o.NumDocumentoIdentificacion,
				o.VrUnitOS, o.VrServicio, o.ConceptoRecaudo,
				o.ValorPagoModerador, o.NumFEVPagoModerador, o.Consecutivo,
			))
		}
	}

	if len(us) > 0 {
		files[constants.LegacyUserFile] = strings.Join(us, "\n") + "\n"
		records += len(us)
	}
	if len(ac) > 0 {
		files[constants.LegacyConsultationFile] = strings.Join(ac, "\n") + "\n"
		records += len(ac)
	}
	if len(ap) > 0 {
		files[constants.LegacyProcedureFile] = strings.Join(ap, "\n") + "\n"
		records += len(ap)
	}
	if len(am) > 0 {
		files[constants.LegacyMedicationFile] = strings.Join(am, "\n") + "\n"
		records += len(am)
	}
	if len(at) > 0 {
		files[constants.LegacyOtherServicesFile] = strings.Join(at, "\n") + "\n"
		records += len(at)
	}

	files[constants.LegacyControlFile] = joinFields(
		t.NumDocumentoIdObligado,
		t.NumFactura,
		generatedAt.Format(dateLayout),
		records,
	) + "\n"

	return files
}

// MergeLegacy renders every transmission in a batch and concatenates the
// per-type files. The control file carries one line per invoice.
func MergeLegacy(transmissions []*Transmission, generatedAt time.Time) map[string]string {
	merged := make(map[string]string)
	for _, t := range transmissions {
		for name, content := range EncodeLegacy(t, generatedAt) {
			merged[name] += content
		}
	}
	return merged
}

func joinFields(fields ...interface{}) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		switch v := f.(type) {
		case string:
			parts[i] = v
		case int:
			parts[i] = strconv.Itoa(v)
		case float64:
			parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, "|")
}
