package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
	"github.com/rocketscienceinc/omok-backend/internal/entity"
	"github.com/rocketscienceinc/omok-backend/internal/protocol"
	"github.com/rocketscienceinc/omok-backend/internal/repository"
	"github.com/rocketscienceinc/omok-backend/internal/room"
)

const recordWriteTimeout = 5 * time.Second

type recordRepo interface {
	Save(ctx context.Context, userID string, won bool) error
	GetByID(ctx context.Context, userID string) (*entity.Record, error)
}

type profileRepo interface {
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
}

type roomMetrics interface {
	RoomCreated()
	RoomRemoved()
	MatchFinished(reason string)
	RecordWriteFailed()
}

// RoomService connects transport events to rooms and rooms to persistence.
type RoomService struct {
	logger      *slog.Logger
	directory   *room.Directory
	broadcaster *protocol.Broadcaster

	records  recordRepo
	profiles profileRepo
	metrics  roomMetrics

	writesMu sync.Mutex
	draining bool
	writes   sync.WaitGroup
}

func NewRoomService(
	logger *slog.Logger,
	directory *room.Directory,
	broadcaster *protocol.Broadcaster,
	records recordRepo,
	profiles profileRepo,
	metrics roomMetrics,
) *RoomService {
	return &RoomService{
		logger:      logger.With("component", "roomService"),
		directory:   directory,
		broadcaster: broadcaster,
		records:     records,
		profiles:    profiles,
		metrics:     metrics,
	}
}

// CreateRoom - opens a room owned by ownerID. An empty roomID gets a generated one.
func (that *RoomService) CreateRoom(ownerID, roomID string) (room.Info, error) {
	created, err := that.directory.Create(ownerID, roomID, that.onFinish)
	if err != nil {
		return room.Info{}, fmt.Errorf("failed to create room: %w", err)
	}

	that.metrics.RoomCreated()

	return created.Snapshot(), nil
}

// EnterRoom - claims a player slot from the lobby before the connection is opened.
func (that *RoomService) EnterRoom(roomID, userID string) (room.Info, error) {
	found, ok := that.directory.Get(roomID)
	if !ok {
		return room.Info{}, apperror.ErrRoomNotFound
	}

	if err := found.TryAddPlayer(userID); err != nil {
		return room.Info{}, fmt.Errorf("failed to enter room %s: %w", roomID, err)
	}

	return found.Snapshot(), nil
}

func (that *RoomService) WaitingRooms() []room.Info {
	waiting := that.directory.Waiting()

	infos := make([]room.Info, 0, len(waiting))
	for _, r := range waiting {
		infos = append(infos, r.Snapshot())
	}

	return infos
}

func (that *RoomService) FirstWaitingRoom() (room.Info, error) {
	found, ok := that.directory.FirstWaiting()
	if !ok {
		return room.Info{}, apperror.ErrRoomNotFound
	}

	return found.Snapshot(), nil
}

// GetRecord - the user's tally; a user without finished matches has an empty one.
func (that *RoomService) GetRecord(ctx context.Context, userID string) (*entity.Record, error) {
	record, err := that.records.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return &entity.Record{UserID: userID}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return record, nil
}

// OnJoin - registers a freshly opened connection. Only users holding a player
// slot (see EnterRoom) play; everyone else watches.
func (that *RoomService) OnJoin(
	ctx context.Context,
	roomID, userID string,
	conn protocol.Conn,
	spectator bool,
) (room.JoinResult, error) {
	log := that.logger.With("method", "OnJoin", "roomID", roomID, "userID", userID)

	found, ok := that.directory.Get(roomID)
	if !ok {
		return 0, apperror.ErrRoomNotFound
	}

	result := found.Join(that.resolveProfile(ctx, userID), conn, spectator)

	if !spectator && result == room.SpectatorJoined {
		log.Info("user holds no player slot, joined as spectator")
	}

	if result == room.RoomReady && found.TryStartCountdown() {
		log.Info("both players connected, countdown started")
	}

	return result, nil
}

// OnLeave - unregisters a closed connection.
func (that *RoomService) OnLeave(roomID, userID string, conn protocol.Conn) (room.LeaveResult, error) {
	found, ok := that.directory.Get(roomID)
	if !ok {
		return 0, apperror.ErrRoomNotFound
	}

	return found.Leave(userID, conn), nil
}

// OnMessage - decodes a client frame and dispatches it to the room. Frames that
// cannot be decoded are answered with an ERROR to the sender only.
func (that *RoomService) OnMessage(roomID, userID string, conn protocol.Conn, data []byte) error {
	log := that.logger.With("method", "OnMessage", "roomID", roomID, "userID", userID)

	found, ok := that.directory.Get(roomID)
	if !ok {
		that.broadcaster.SendTo(conn, protocol.NewError(apperror.ErrRoomNotFound))
		return apperror.ErrRoomNotFound
	}

	msg, err := protocol.DecodeInbound(data)
	if err != nil {
		log.Debug("rejected inbound message", "error", err)
		that.broadcaster.SendTo(conn, protocol.NewError(err))

		return nil
	}

	switch msg.Type {
	case protocol.TypeMove:
		outcome := found.HandleMove(userID, conn, msg.Move.X, msg.Move.Y)
		log.Debug("move handled", "x", msg.Move.X, "y", msg.Move.Y, "outcome", outcome.String())
	case protocol.TypeChat:
		found.HandleChat(userID, conn, msg.Chat)
	}

	return nil
}

// Wait - blocks until pending record writes are done. Results finishing after
// Wait has been called are logged and not persisted.
func (that *RoomService) Wait() {
	that.writesMu.Lock()
	that.draining = true
	that.writesMu.Unlock()

	that.writes.Wait()
}

func (that *RoomService) resolveProfile(ctx context.Context, userID string) *entity.Profile {
	if that.profiles == nil {
		return entity.GuestProfile(userID)
	}

	profile, err := that.profiles.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			that.logger.Warn("failed to load profile, using guest", "method", "resolveProfile", "userID", userID, "error", err)
		}

		return entity.GuestProfile(userID)
	}

	if profile.ProfileImg == "" {
		profile.ProfileImg = entity.DefaultProfileImg
	}

	return profile
}

// onFinish - runs once per room, outside the room lock.
func (that *RoomService) onFinish(finish room.Finish) {
	log := that.logger.With("method", "onFinish", "roomID", finish.RoomID)

	that.metrics.MatchFinished(finish.Reason)

	if that.directory.Remove(finish.RoomID) {
		that.metrics.RoomRemoved()
	}

	log.Info("room finished", "reason", finish.Reason, "winner", finish.WinnerID, "moves", finish.Moves)

	if !finish.HasWinner() {
		return
	}

	that.writesMu.Lock()
	if that.draining {
		that.writesMu.Unlock()
		log.Warn("shutting down, record not saved", "winner", finish.WinnerID, "loser", finish.LoserID)

		return
	}
	that.writes.Add(1)
	that.writesMu.Unlock()

	go func() {
		defer that.writes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), recordWriteTimeout)
		defer cancel()

		that.saveRecord(ctx, finish.WinnerID, true)
		if finish.LoserID != "" {
			that.saveRecord(ctx, finish.LoserID, false)
		}
	}()
}

func (that *RoomService) saveRecord(ctx context.Context, userID string, won bool) {
	if err := that.records.Save(ctx, userID, won); err != nil {
		that.metrics.RecordWriteFailed()
		that.logger.Error("failed to save record", "method", "saveRecord", "userID", userID, "won", won, "error", err)
	}
}
