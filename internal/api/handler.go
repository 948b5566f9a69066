package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gorilla/websocket"

	"faculty-availability-backend/internal/availability"
	"faculty-availability-backend/internal/hub"
	"faculty-availability-backend/internal/qr"
	"faculty-availability-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc          *availability.Service
	store        store.Store
	hub          *hub.Hub
	qr           qr.Encoder
	publicURL    string
	webpush      *webpush.Options
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	ping := d.Config.Realtime.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	return &Handler{
		svc:       d.Service,
		store:     d.Store,
		hub:       d.Hub,
		qr:        d.QR,
		publicURL: d.Config.Server.PublicURL,
		webpush:   d.WebPush,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(d.Config.Realtime.AllowedOrigins),
		},
		pingInterval: ping,
	}
}

// checkOrigin allows every origin unless an allow-list is configured.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// baseURL is the public origin used in QR targets. It falls back to the
// request's own host.
func (h *Handler) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}
