package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/davidolu-py/legallens/internal/api/handlers"
	appMiddleware "github.com/davidolu-py/legallens/internal/api/middlewares"
	"github.com/davidolu-py/legallens/internal/config"
	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/core/ingest"
	"github.com/davidolu-py/legallens/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient, ing *ingest.Ingestor, sessions *services.SessionOrchestrator, risks *services.RiskAnalyzer, summaries *services.DocumentSummarizer, comparisons *services.DocumentComparer) *Server {
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	docHandler := handlers.NewDocumentHandler(db, ing)
	freeHandler := handlers.NewFreeHandler(db, obj, ing, sessions, risks)
	analysisHandler := handlers.NewAnalysisHandler(summaries, comparisons)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// anonymous flow; no auth, one shared system user
	r.Route("/free", func(free chi.Router) {
		free.Post("/upload", freeHandler.Upload)
		free.Post("/session", freeHandler.CreateSession)
		free.Post("/ask", freeHandler.Ask)
		free.Post("/analyze-risks", freeHandler.AnalyzeRisks)
		free.Delete("/session/{sessionID}", freeHandler.EndSession)
	})

	// legacy alias kept for existing clients
	r.Post("/qa/ask", freeHandler.Ask)

	r.Route("/api/auth", func(auth chi.Router) {
		auth.Post("/signup", authHandler.Signup)
		auth.Post("/login", authHandler.Login)
	})

	// authenticated document endpoints
	r.Group(func(protected chi.Router) {
		protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
		protected.Post("/upload", docHandler.UploadDocument)
		protected.Get("/upload", docHandler.GetDocuments)
		protected.Get("/upload/{documentID}", docHandler.GetDocument)

		protected.Post("/summarize", analysisHandler.Summarize)
		protected.Get("/summarize/{documentID}", analysisHandler.GetSummary)

		protected.Post("/compare", analysisHandler.Compare)
		protected.Get("/compare", analysisHandler.ListComparisons)
		protected.Get("/compare/{comparisonID}", analysisHandler.GetComparison)
		protected.Delete("/compare/{comparisonID}", analysisHandler.DeleteComparison)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
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
