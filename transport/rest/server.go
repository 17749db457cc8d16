package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	readTimeout = 10 * time.Second
	idleTimeout = 30 * time.Second
)

// NewRouter - mounts the lobby API, the game socket and the metrics endpoint on one router.
func NewRouter(logger *slog.Logger, service roomService, gameSocket http.HandlerFunc, metrics http.Handler) http.Handler {
	h := newHandlers(logger.With("component", "rest"), service)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/ping", h.Ping)

	router.Route("/rooms", func(r chi.Router) {
		r.Get("/", h.WaitingRooms)
		r.Post("/", h.CreateRoom)
		r.Get("/first-waiting", h.FirstWaitingRoom)
		r.Post("/{roomID}/enter", h.EnterRoom)
	})

	router.Get("/records/{userID}", h.GetRecord)

	if gameSocket != nil {
		router.Get("/ws/game/{roomID}", gameSocket)
	}

	if metrics != nil {
		router.Handle("/metrics", metrics)
	}

	return router
}

// NewServer - the HTTP server; write timeouts are left to the socket pumps.
func NewServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: readTimeout,
		IdleTimeout:       idleTimeout,
	}
}
