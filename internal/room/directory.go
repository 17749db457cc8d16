package room

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
	"github.com/rocketscienceinc/omok-backend/internal/protocol"
)

// Directory is the process-wide registry of live rooms.
type Directory struct {
	logger      *slog.Logger
	roomLogger  *slog.Logger
	settings    Settings
	broadcaster *protocol.Broadcaster

	mu    sync.RWMutex
	rooms map[string]*Room
	order []string
}

func NewDirectory(logger *slog.Logger, settings Settings, broadcaster *protocol.Broadcaster) *Directory {
	return &Directory{
		logger:      logger.With("component", "directory"),
		roomLogger:  logger,
		settings:    settings,
		broadcaster: broadcaster,
		rooms:       make(map[string]*Room),
	}
}

// Create - registers a new room owned by ownerID. An empty roomID gets a generated one.
func (that *Directory) Create(ownerID, roomID string, onFinish FinishFunc) (*Room, error) {
	if ownerID == "" {
		return nil, apperror.ErrInvalidPlayerIdentity
	}

	if roomID == "" {
		roomID = uuid.NewString()
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[roomID]; ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomAlreadyExists, roomID)
	}

	room := New(roomID, ownerID, that.settings, that.broadcaster, that.roomLogger, onFinish)
	that.rooms[roomID] = room
	that.order = append(that.order, roomID)

	that.logger.Info("room created", "method", "Create", "roomID", roomID, "ownerID", ownerID)

	return room, nil
}

// Get - looks a room up. A missing room is reported with ok == false.
func (that *Directory) Get(roomID string) (*Room, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[roomID]

	return room, ok
}

// All - every registered room in creation order.
func (that *Directory) All() []*Room {
	that.mu.RLock()
	defer that.mu.RUnlock()

	rooms := make([]*Room, 0, len(that.order))
	for _, id := range that.order {
		rooms = append(rooms, that.rooms[id])
	}

	return rooms
}

// Waiting - rooms currently in Wait, in creation order.
func (that *Directory) Waiting() []*Room {
	rooms := that.All()

	return slices.DeleteFunc(rooms, func(r *Room) bool {
		return r.Status() != StatusWait
	})
}

func (that *Directory) FirstWaiting() (*Room, bool) {
	for _, room := range that.All() {
		if room.Status() == StatusWait {
			return room, true
		}
	}

	return nil, false
}

// Remove - drops a room from the registry and reports whether it was there.
// Removing an unknown id is a no-op.
func (that *Directory) Remove(roomID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[roomID]; !ok {
		return false
	}

	delete(that.rooms, roomID)
	that.order = slices.DeleteFunc(that.order, func(id string) bool { return id == roomID })

	that.logger.Info("room removed", "method", "Remove", "roomID", roomID)

	return true
}

func (that *Directory) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}
