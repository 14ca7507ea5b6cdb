package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewAPIRouter(api *API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, NewStructuredLogger(), middleware.Recoverer, ConnectionClose)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/episodes", func(r chi.Router) {
			r.Post("/", api.createEpisode)
			r.Get("/{episodeID}", api.getEpisode)
			r.Post("/{episodeID}/services", api.attachService)
			r.Post("/{episodeID}/close", api.closeEpisode)
			r.Post("/{episodeID}/invoice", api.generateInvoice)
			r.Delete("/{episodeID}", api.cancelEpisode)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/{invoiceID}", api.getInvoice)
			r.Post("/{invoiceID}/approve", api.approveInvoice)
			r.Post("/{invoiceID}/send", api.sendInvoice)
			r.Post("/{invoiceID}/cancel", api.cancelInvoice)
			r.Post("/{invoiceID}/payments", api.recordPayment)
			r.Post("/{invoiceID}/glosas", api.recordGlosa)
			r.Post("/{invoiceID}/glosas/resolve", api.resolveGlosas)
		})

		r.Route("/rips-files", func(r chi.Router) {
			r.Post("/", api.buildRIPSFile)
			r.Get("/{fileID}", api.getRIPSFile)
			r.Post("/{fileID}/generate", api.generateRIPSFile)
			r.Post("/{fileID}/send", api.sendRIPSFile)
			r.Post("/{fileID}/response", api.recordRIPSFileResponse)
		})
	})

	r.Get("/_version", api.getVersion)
	r.Get("/_health", api.healthCheckHandler)
	return r
}
