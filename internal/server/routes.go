package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/vishwas-11/nodecall/internal/signaling"
)

// NewRouter builds the relay's HTTP surface: websocket endpoint, health
// check, and metrics. allowedOrigin restricts ws upgrades; empty allows
// any origin.
func NewRouter(hub *signaling.Hub, gatherer prometheus.Gatherer, allowedOrigin string) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", healthCheckHandler)
	r.Get("/ws", ServeWs(hub, allowedOrigin))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

func newUpgrader(allowedOrigin string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  64 * 1024, // 64 KB
		WriteBufferSize: 64 * 1024, // 64 KB

		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// It takes the hub as a dependency.
func ServeWs(hub *signaling.Hub, allowedOrigin string) http.HandlerFunc {
	upgrader := newUpgrader(allowedOrigin)

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("failed to upgrade connection")
			return
		}

		// The connection id is assigned here, once per connection, and
		// handed to the client on room-joined.
		id := uuid.NewString()

		client := &signaling.Client{
			Hub:  hub,
			Conn: conn,
			ID:   id,
			Send: make(chan *signaling.Message, 256),
			Log:  log.With().Str("client_id", id).Logger(),
		}

		client.Hub.Register <- client

		// Start the client's read and write pumps in separate goroutines.
		// These methods handle the client's lifecycle.
		go client.WritePump()
		go client.ReadPump()
	}
}
