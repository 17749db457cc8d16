package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
	"github.com/rocketscienceinc/omok-backend/internal/protocol"
	"github.com/rocketscienceinc/omok-backend/internal/room"
)

const (
	HeaderUserID = "X-User-ID"

	roleSpectator = "spectator"
	rolePlayer    = "player"
)

type roomService interface {
	OnJoin(ctx context.Context, roomID, userID string, conn protocol.Conn, spectator bool) (room.JoinResult, error)
	OnLeave(roomID, userID string, conn protocol.Conn) (room.LeaveResult, error)
	OnMessage(roomID, userID string, conn protocol.Conn, data []byte) error
}

type Options struct {
	ReadLimit    int64
	WriteTimeout time.Duration
	PingPeriod   time.Duration
	// PongWait of zero disables read deadlines.
	PongWait   time.Duration
	SendBuffer int
}

type Server struct {
	logger   *slog.Logger
	service  roomService
	options  Options
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    map[*Conn]struct{}
	closing  bool
	handlers sync.WaitGroup
}

func New(logger *slog.Logger, service roomService, options Options) *Server {
	return &Server{
		logger:  logger.With("component", "websocket"),
		service: service,
		options: options,
		conns:   make(map[*Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
	}
}

// HandleGame - serves GET /ws/game/{roomID}. The caller is identified by the
// X-User-ID header or the user query parameter; without role=player it watches.
func (that *Server) HandleGame(writer http.ResponseWriter, req *http.Request) {
	roomID := chi.URLParam(req, "roomID")

	userID := req.Header.Get(HeaderUserID)
	if userID == "" {
		userID = req.URL.Query().Get("user")
	}

	if userID == "" {
		http.Error(writer, apperror.ErrInvalidPlayerIdentity.Error(), http.StatusBadRequest)
		return
	}

	spectator := true
	switch req.URL.Query().Get("role") {
	case rolePlayer:
		spectator = false
	case "", roleSpectator:
	default:
		http.Error(writer, "unknown role", http.StatusBadRequest)
		return
	}

	log := that.logger.With("method", "HandleGame", "roomID", roomID, "userID", userID)

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConn(ws, that.options.SendBuffer, that.options.WriteTimeout, that.options.PingPeriod)
	go conn.writePump()

	if !that.track(conn) {
		conn.Close()
		return
	}
	defer that.untrack(conn)

	result, err := that.service.OnJoin(req.Context(), roomID, userID, conn, spectator)
	if err != nil {
		log.Info("join rejected", "error", err)
		that.reject(conn, err)

		return
	}

	log.Info("connection joined", "result", result.String())

	that.readLoop(log, roomID, userID, conn)
}

// Shutdown - refuses new connections, closes the live ones and waits until each
// has been unregistered from its room.
func (that *Server) Shutdown(ctx context.Context) error {
	that.mu.Lock()
	that.closing = true
	live := make([]*Conn, 0, len(that.conns))
	for conn := range that.conns {
		live = append(live, conn)
	}
	that.mu.Unlock()

	that.logger.Info("closing live connections", "method", "Shutdown", "count", len(live))

	for _, conn := range live {
		conn.Close()
	}

	done := make(chan struct{})
	go func() {
		that.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain connections: %w", ctx.Err())
	}
}

func (that *Server) track(conn *Conn) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closing {
		return false
	}

	that.conns[conn] = struct{}{}
	that.handlers.Add(1)

	return true
}

func (that *Server) untrack(conn *Conn) {
	that.mu.Lock()
	delete(that.conns, conn)
	that.mu.Unlock()

	that.handlers.Done()
}

func (that *Server) readLoop(log *slog.Logger, roomID, userID string, conn *Conn) {
	defer func() {
		conn.Close()

		result, err := that.service.OnLeave(roomID, userID, conn)
		if err != nil {
			log.Debug("leave after room was closed", "error", err)
			return
		}

		log.Info("connection left", "result", result.String())
	}()

	ws := conn.ws

	if that.options.ReadLimit > 0 {
		ws.SetReadLimit(that.options.ReadLimit)
	}

	if that.options.PongWait > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(that.options.PongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(that.options.PongWait))
		})
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("connection dropped", "error", err)
			}

			return
		}

		if err = that.service.OnMessage(roomID, userID, conn, data); err != nil {
			log.Info("closing connection", "error", err)
			return
		}
	}
}

func (that *Server) reject(conn *Conn, cause error) {
	if errors.Is(cause, apperror.ErrRoomNotFound) || errors.Is(cause, apperror.ErrInvalidPlayerIdentity) {
		if data, err := json.Marshal(protocol.NewError(cause)); err == nil {
			_ = conn.TrySend(data)
		}
	}

	conn.Close()
}
