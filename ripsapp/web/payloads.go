package web

import (
	"time"

	"github.com/saludtotal/rips-app/ripsapp/models"
)

type episodeResponse struct {
	ID                 string  `json:"id"`
	EpisodeNumber      string  `json:"episode_number"`
	EpisodeType        string  `json:"episode_type"`
	Status             string  `json:"status"`
	PatientID          string  `json:"patient_id"`
	PayerID            string  `json:"payer_id"`
	AdmissionDate      string  `json:"admission_date"`
	DischargeDate      *string `json:"discharge_date,omitempty"`
	AdmissionDiagnosis string  `json:"admission_diagnosis,omitempty"`
	DischargeDiagnosis string  `json:"discharge_diagnosis,omitempty"`
	TotalCost          string  `json:"total_cost"`
	InvoiceID          string  `json:"invoice_id,omitempty"`
}

func newEpisodeResponse(e *models.AttentionEpisode) *episodeResponse {
	resp := &episodeResponse{
		ID:                 e.ID.String(),
		EpisodeNumber:      e.EpisodeNumber,
		EpisodeType:        string(e.EpisodeType),
		Status:             string(e.Status),
		PatientID:          e.PatientID.String(),
		PayerID:            e.PayerID.String(),
		AdmissionDate:      e.AdmissionDate.Format(time.RFC3339),
		AdmissionDiagnosis: e.AdmissionDiagnosis,
		DischargeDiagnosis: e.DischargeDiagnosis,
		TotalCost:          e.TotalCost.String(),
	}
	if e.DischargeDate != nil {
		discharge := e.DischargeDate.Format(time.RFC3339)
		resp.DischargeDate = &discharge
	}
	if e.InvoiceID != nil {
		resp.InvoiceID = e.InvoiceID.String()
	}
	return resp
}

type serviceResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	ServiceRef  string `json:"service_ref"`
	ServiceCost string `json:"service_cost"`
	AddedAt     string `json:"added_at"`
}

func newServiceResponse(s *models.EpisodeService) *serviceResponse {
	return &serviceResponse{
		ID:          s.ID.String(),
		Kind:        string(s.Kind),
		ServiceRef:  s.ServiceRef,
		ServiceCost: s.ServiceCost.String(),
		AddedAt:     s.AddedAt.Format(time.RFC3339),
	}
}

type lineItemResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	ServiceCode string `json:"service_code"`
	ServiceName string `json:"service_name"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalAmount string `json:"total_amount"`
}

type invoiceResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	Status        string             `json:"status"`
	InvoiceDate   string             `json:"invoice_date"`
	PatientID     string             `json:"patient_id"`
	PayerID       string             `json:"payer_id"`
	Subtotal      string             `json:"subtotal"`
	TaxAmount     string             `json:"tax_amount"`
	Total         string             `json:"total"`
	PaidAmount    string             `json:"paid_amount"`
	Balance       string             `json:"balance"`
	HasGlosa      bool               `json:"has_glosa"`
	GlosaAmount   string             `json:"glosa_amount,omitempty"`
	RIPSGenerated bool               `json:"rips_generated"`
	LineItems     []lineItemResponse `json:"line_items,omitempty"`
}

func newInvoiceResponse(i *models.Invoice, items []*models.InvoiceLineItem) *invoiceResponse {
	resp := &invoiceResponse{
		ID:            i.ID.String(),
		InvoiceNumber: i.InvoiceNumber,
		Status:        string(i.Status),
		InvoiceDate:   i.InvoiceDate.Format(time.RFC3339),
		PatientID:     i.PatientID.String(),
		PayerID:       i.PayerID.String(),
		Subtotal:      i.Subtotal.String(),
		TaxAmount:     i.TaxAmount.String(),
		Total:         i.Total.String(),
		PaidAmount:    i.PaidAmount.String(),
		Balance:       i.Balance.String(),
		HasGlosa:      i.HasGlosa,
		RIPSGenerated: i.RIPSGenerated,
	}
	if i.HasGlosa {
		resp.GlosaAmount = i.GlosaAmount.String()
	}
	for _, item := range items {
		resp.LineItems = append(resp.LineItems, lineItemResponse{
			ID:          item.ID.String(),
			Kind:        string(item.Kind),
			ServiceCode: item.ServiceCode,
			ServiceName: item.ServiceName,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.String(),
			TotalAmount: item.TotalAmount.String(),
		})
	}
	return resp
}

type ripsFileResponse struct {
	ID            string `json:"id"`
	FileNumber    string `json:"file_number"`
	Status        string `json:"status"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	ProviderNIT   string `json:"provider_nit"`
	TotalInvoices int    `json:"total_invoices"`
	TotalPatients int    `json:"total_patients"`
	TotalAmount   string `json:"total_amount"`
	JSONFilePath  string `json:"json_file_path,omitempty"`
	TxtFilePath   string `json:"txt_file_path,omitempty"`
	SentTo        string `json:"sent_to,omitempty"`
}

func newRIPSFileResponse(f *models.RIPSFile) *ripsFileResponse {
	return &ripsFileResponse{
		ID:            f.ID.String(),
		FileNumber:    f.FileNumber,
		Status:        string(f.Status),
		PeriodStart:   f.PeriodStart.Format("2006-01-02"),
		PeriodEnd:     f.PeriodEnd.Format("2006-01-02"),
		ProviderNIT:   f.ProviderNIT,
		TotalInvoices: f.TotalInvoices,
		TotalPatients: f.TotalPatients,
		TotalAmount:   f.TotalAmount.String(),
		JSONFilePath:  f.JSONFilePath,
		TxtFilePath:   f.TxtFilePath,
		SentTo:        f.SentTo,
	}
}

type glosaResponse struct {
	ID             string `json:"id"`
	GlosaNumber    string `json:"glosa_number"`
	Status         string `json:"status"`
	Amount         string `json:"amount"`
	AcceptedAmount string `json:"accepted_amount"`
	Reason         string `json:"reason,omitempty"`
	Response       string `json:"response,omitempty"`
}

func newGlosaResponse(g *models.Glosa) *glosaResponse {
	return &glosaResponse{
		ID:             g.ID.String(),
		GlosaNumber:    g.GlosaNumber,
		Status:         string(g.Status),
		Amount:         g.Amount.String(),
		AcceptedAmount: g.AcceptedAmount.String(),
		Reason:         g.Reason,
		Response:       g.Response,
	}
}
