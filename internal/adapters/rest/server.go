package rest

import (
	"context"
	"net/http"
	"time"

	"catalog-service/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	httpServer *http.Server
	logger     port.LoggerPort
}

// NewRouter wires every route of the service.
func NewRouter(
	allowedOrigins []string,
	catalogHandlers *CatalogHandler,
	pageHandlers *PageHandler,
	htmlHandlers *HTMLHandler,
	baseLogger port.LoggerPort,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(baseLogger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Trace-ID"},
		ExposedHeaders:   []string{"Location", "X-Trace-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", catalogHandlers.ListCategories)
		r.Get("/categories/{category}/schema", catalogHandlers.GetFilterSchema)
		r.Get("/categories/{category}/options", catalogHandlers.GetFilterOptions)
		r.Get("/categories/{category}/saved-filters", catalogHandlers.ListSavedFilters)
		r.Post("/listings", catalogHandlers.IngestListing)

		r.Post("/pages", pageHandlers.OpenPage)
		r.Route("/pages/{pageID}", func(r chi.Router) {
			r.Get("/", pageHandlers.GetPage)
			r.Delete("/", pageHandlers.ClosePage)
			r.Put("/filters/{facet}", pageHandlers.SetFilter)
			r.Delete("/filters", pageHandlers.ResetFilters)
			r.Get("/active-filters", pageHandlers.GetActiveFilters)
			r.Post("/saved-filters", pageHandlers.SaveFilters)
		})
	})

	r.Get("/pages/{category}", htmlHandlers.OpenPage)
	r.Post("/pages/{pageID}/filters", htmlHandlers.ApplyFilters)

	return r
}

func NewServer(listenPort string, handler http.Handler, baseLogger port.LoggerPort) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + listenPort,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: baseLogger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST server", port.Fields{"address": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST server...", nil)
	return s.httpServer.Shutdown(ctx)
}
