package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	allocationhandlers "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/handlers"
	"github.com/crossed-lances/tablemaster/app/modules/pairingimport"
	tournamentdb "github.com/crossed-lances/tablemaster/app/modules/tournament/infrastructure/repositories"
)

// Router builds the HTTP surface: allocation endpoints, pairing import
// endpoints and a health check.
func (app *App) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	handlers := allocationhandlers.NewAllocationHandlers(app.AllocationService, app.logger)
	r.Mount("/api/v1", handlers.Routes())

	var fetcher allocationhandlers.PairingFetcher
	if app.PairingClient != nil {
		fetcher = app.PairingClient
	}
	importHandlers := allocationhandlers.NewImportHandlers(
		app.AllocationService,
		&tournamentdb.TournamentDBImpl{DB: app.db},
		fetcher,
		pairingimport.NewFactory(),
		app.logger,
	)
	r.Mount("/api/v1/import", importHandlers.Routes())

	return r
}
