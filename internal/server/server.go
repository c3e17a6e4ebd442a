package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/agenda-distribuida/events-service/internal/config"
	"github.com/agenda-distribuida/events-service/internal/filestore"
	"github.com/agenda-distribuida/events-service/internal/ingest"
	"github.com/agenda-distribuida/events-service/internal/repository"
)

type Server struct {
	Server *http.Server
	log    *zerolog.Logger
	db     *sql.DB
	api    *APIHandler
	pages  *PageHandler
}

func New(cfg *config.Config, db *sql.DB, files *filestore.Store, pipeline *ingest.Pipeline, log *zerolog.Logger) *Server {
	// Initialize repository and handlers
	eventRepo := repository.NewEventRepository(db, *log)
	api := NewAPIHandler(eventRepo, log)
	pages := NewPageHandler(eventRepo, files, pipeline, cfg.Ingest.IndexIncludeDB, log)

	s := &Server{
		Server: &http.Server{
			Addr:         cfg.ServerAddr(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		db:    db,
		log:   log,
		api:   api,
		pages: pages,
	}

	// Setup routes
	r := mux.NewRouter()
	s.setupRoutes(r)
	s.Server.Handler = r

	return s
}

func (s *Server) setupRoutes(r *mux.Router) {
	// Use the logging middleware for all routes
	r.Use(s.loggingMiddleware)

	// Health check endpoint
	r.HandleFunc("/health", s.healthCheck).Methods("GET")

	// HTML pages
	r.HandleFunc("/", s.pages.Index).Methods("GET")
	r.HandleFunc("/add/", s.pages.AddEvent).Methods("GET", "POST")
	r.HandleFunc("/upload/", s.pages.UploadFile).Methods("GET", "POST")
	r.HandleFunc("/view_files/", s.pages.ViewFiles).Methods("GET")
	r.HandleFunc("/view_db/", s.pages.ViewDB).Methods("GET")

	// JSON API. Update and delete gate on the method themselves so a
	// non-POST request gets the generic invalid-request body, not a 405.
	r.HandleFunc("/api/search/", s.api.SearchEvents).Methods("GET")
	r.HandleFunc("/api/event/{id:[0-9]+}/", s.api.GetEvent).Methods("GET")
	r.HandleFunc("/api/update/{id:[0-9]+}/", s.api.UpdateEvent)
	r.HandleFunc("/api/delete/{id:[0-9]+}/", s.api.DeleteEvent)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("address", s.Server.Addr).Msg("Starting server")
	return s.Server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("Shutting down server")
	return s.Server.Shutdown(ctx)
}

// loggingMiddleware logs all incoming requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer to capture the status code
		rw := &responseWriter{w, http.StatusOK}

		// Process the request
		next.ServeHTTP(rw, r)

		// Log the request
		duration := time.Since(start)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Str("duration", duration.String()).
			Msg("Request processed")
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.db == nil {
		s.log.Error().Msg("Database is not initialized")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unhealthy","error":"database not initialized"}`))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.log.Error().Err(err).Msg("Database health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unhealthy","error":"database connection failed"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
