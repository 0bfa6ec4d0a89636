package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-gateway/internal/config"
	ws "github.com/Priya8975/webhook-gateway/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the HTTP router. hub may be nil, in
// which case the live stream endpoint is not registered.
func NewRouter(cfg *config.Config, reader LogReader, recorder Recorder, hub *ws.Hub, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Use(corsMiddleware)

	// Handlers
	webhookHandler := NewWebhookHandler(cfg.VerifyToken, cfg.AppSecret, cfg.Channels, recorder, logger)
	logHandler := NewLogHandler(reader, cfg.RecentLimit, logger)
	statsHandler := NewStatsHandler(reader, hub, logger)

	r.Get("/", InfoHandler(cfg.PrimaryChannel()))
	r.Get("/health", HealthHandler())

	r.Route("/webhook/{channel}", func(r chi.Router) {
		r.Get("/", webhookHandler.Verify)
		r.Post("/", webhookHandler.Receive)
	})

	r.Route("/logs", func(r chi.Router) {
		r.Get("/", logHandler.List)
		r.Get("/stats", statsHandler.Stats)
		if hub != nil {
			r.Get("/stream", hub.HandleWebSocket)
		}
	})

	return r
}

// corsMiddleware lets browser tools read the logs endpoints.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
