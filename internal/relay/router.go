package relay

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mindmatch/internal/config"
	"mindmatch/internal/middleware"
)

// NewRouter wires the relay's full HTTP surface: the websocket channel
// endpoint, the room directory, QR join codes, and health checks.
func NewRouter(h *Handler, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestSizeLimiter(cfg.Server.MaxRequestSize))
	r.Use(middleware.SecurityHeaders())

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
	r.Use(rateLimiter.Middleware())

	// Realtime channels
	r.Get("/realtime/{topic}", h.ServeWS)

	// Room directory
	r.Get("/rooms", h.ListRooms)
	r.Get("/room/{code}", h.GetRoom)
	r.Get("/room/{code}/qr", h.RoomQR)

	// Health checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
