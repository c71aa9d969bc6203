package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openclaw/pageqr/widget"
)

// Server holds the dependencies for all HTTP handlers.
type Server struct {
	Settings  widget.SettingsStore
	Generator *widget.Generator
	Shortener widget.Shortener
	Sessions  *Sessions
	// Widget configures widgets created through POST /widget.
	Widget     widget.Options
	RetryDelay time.Duration
	Log        *slog.Logger
	Version    string
	StartTime  time.Time
}

// NewRouter returns a fully configured chi router with all API routes.
func NewRouter(s *Server) http.Handler {
	if s.Sessions == nil {
		s.Sessions = NewSessions()
	}
	if s.StartTime.IsZero() {
		s.StartTime = time.Now()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(requestLogger(s.Log))

	r.Get("/status", s.handleStatus)

	// QR pipeline
	r.Get("/qr", s.handleQRImage)
	r.Get("/qr/data", s.handleQRData)
	r.Get("/favicon", s.handleFavicon)
	r.Get("/shorten", s.handleShorten)

	// Settings
	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)

	// Widget sessions
	r.Post("/widget", s.handleCreateWidget)
	r.Route("/widget/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetWidget)
		r.Delete("/", s.handleDeleteWidget)
		r.Get("/page", s.handleWidgetPage)
		r.Post("/enter", s.handleWidgetEnter)
		r.Post("/leave", s.handleWidgetLeave)
		r.Post("/toggle-logo", s.handleWidgetToggleLogo)
		r.Post("/copy", s.handleWidgetCopy)
	})

	return r
}

// --- helpers ----------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// --- middleware --------------------------------------------------------------

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "X-QR-Text")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}
