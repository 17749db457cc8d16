package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
	"github.com/rocketscienceinc/omok-backend/internal/entity"
	"github.com/rocketscienceinc/omok-backend/internal/room"
)

const HeaderUserID = "X-User-ID"

type roomService interface {
	CreateRoom(ownerID, roomID string) (room.Info, error)
	EnterRoom(roomID, userID string) (room.Info, error)
	WaitingRooms() []room.Info
	FirstWaitingRoom() (room.Info, error)
	GetRecord(ctx context.Context, userID string) (*entity.Record, error)
}

type createRoomRequest struct {
	RoomID string `json:"roomId"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type handlers struct {
	logger  *slog.Logger
	service roomService
}

func newHandlers(logger *slog.Logger, service roomService) *handlers {
	return &handlers{
		logger:  logger,
		service: service,
	}
}

func (that *handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Error("failed to write pong", "error", err)
	}
}

// CreateRoom - POST /rooms. The body is optional; without a roomId one is generated.
func (that *handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	ownerID := r.Header.Get(HeaderUserID)
	if ownerID == "" {
		that.writeError(w, apperror.ErrInvalidPlayerIdentity)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		that.writeError(w, apperror.ErrMalformedMessage)
		return
	}

	info, err := that.service.CreateRoom(ownerID, req.RoomID)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusCreated, info)
}

// EnterRoom - POST /rooms/{roomID}/enter claims the second player slot.
func (that *handlers) EnterRoom(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		that.writeError(w, apperror.ErrInvalidPlayerIdentity)
		return
	}

	info, err := that.service.EnterRoom(chi.URLParam(r, "roomID"), userID)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, info)
}

func (that *handlers) WaitingRooms(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, that.service.WaitingRooms())
}

func (that *handlers) FirstWaitingRoom(w http.ResponseWriter, _ *http.Request) {
	info, err := that.service.FirstWaitingRoom()
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, info)
}

func (that *handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := that.service.GetRecord(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, record)
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func (that *handlers) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "error", err)
	}

	that.writeJSON(w, status, errorResponse{Code: apperror.Code(err), Message: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrRoomFull),
		errors.Is(err, apperror.ErrRoomAlreadyExists),
		errors.Is(err, apperror.ErrGameAlreadyEnded):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrInvalidPlayerIdentity),
		errors.Is(err, apperror.ErrMalformedMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
