package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/Examcraft/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Examcraft/internal/api/middlewares"
	"github.com/markdave123-py/Examcraft/internal/config"
)

// Handlers groups the route handlers the server mounts.
type Handlers struct {
	Documents *handlers.DocumentHandler
	Questions *handlers.QuestionHandler
	Web       *handlers.WebHandler
	Admin     *handlers.AdminHandler
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewRouter builds and wires all routes.
func NewRouter(cfg *config.Config, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

		api.Post("/uploads", h.Documents.UploadDocument)
		api.Get("/uploads/status", h.Documents.GetLatestJob)
		api.Get("/uploads/status/{jobID}", h.Documents.GetJob)

		api.Get("/questions/custom", h.Questions.ListQuestions)
		api.Get("/questions/custom/count", h.Questions.CountQuestions)
		api.Delete("/questions/custom", h.Questions.ClearQuestions)

		api.Post("/ingest/web", h.Web.IngestWeb)
		api.Get("/ingest/search", h.Web.SearchLinks)
		api.Get("/ingest/scrape", h.Web.ScrapeLinks)

		api.Post("/admin/import-bank", h.Admin.ImportBank)
	})

	return r
}

func NewServer(cfg *config.Config, h Handlers) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
