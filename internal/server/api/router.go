package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the HTTP surface. Read-only metadata endpoints are
// open; everything that mutates state or exposes private key material is
// behind the bearer-token gate.
func NewRouter(clients *ClientHandler, downloads *DownloadHandler, reconcile *ReconcileHandler, settings *SettingsHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"AmneziaWG VPN Management API"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/clients", clients.ListClients)
		r.Get("/clients/{name}", clients.GetClient)
		r.Get("/clients/{name}/stats", clients.GetClientStats)
		r.Get("/migration/legacy-clients", reconcile.ListLegacyClients)
		r.Get("/settings", settings.ListSettings)
		r.Get("/settings/{key}", settings.GetSetting)

		// Auth-gated: mutations and private key material.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware)

			r.Post("/clients", clients.CreateClient)
			r.Post("/sync", reconcile.Sync)
			r.Delete("/clients/{name}", clients.DeleteClient)
			r.Get("/clients/{name}/config", downloads.GetConfig)
			r.Get("/clients/{name}/qr", downloads.GetQRCode)
			r.Get("/clients/{name}/bundle", downloads.GetBundle)
			r.Post("/migration/migrate-all", reconcile.MigrateAll)
			r.Post("/settings/{key}", settings.SetSetting)
		})
	})

	return r
}
