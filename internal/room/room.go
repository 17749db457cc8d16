package room

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
	"github.com/rocketscienceinc/omok-backend/internal/entity"
	"github.com/rocketscienceinc/omok-backend/internal/omok"
	"github.com/rocketscienceinc/omok-backend/internal/protocol"
)

const maxPlayers = 2

type Settings struct {
	CountdownFrom int
	TickInterval  time.Duration
	// TurnTimeout of zero disables the per-turn clock.
	TurnTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		CountdownFrom: 5,
		TickInterval:  time.Second,
	}
}

// Info is a point-in-time copy of a room for listings.
type Info struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	Players    []string  `json:"players"`
	Status     Status    `json:"status"`
	Spectators int       `json:"spectators"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Room is the state machine of one match. Every exported method is safe for
// concurrent use; all state is guarded by mu and messages are emitted while it is held.
type Room struct {
	mu sync.Mutex

	id        string
	ownerID   string
	createdAt time.Time

	players     []string
	playerConns map[string]protocol.Conn
	spectators  map[protocol.Conn]string
	status      Status
	match       *entity.Match

	// epoch is bumped whenever a countdown starts or is abandoned; background
	// tasks carry the value they were started with and stop on mismatch.
	epoch     uint64
	turnTimer *time.Timer
	finished  bool

	settings    Settings
	broadcaster *protocol.Broadcaster
	logger      *slog.Logger
	onFinish    FinishFunc
}

// New - creates a room in Wait with the owner as its only player.
func New(
	id, ownerID string,
	settings Settings,
	broadcaster *protocol.Broadcaster,
	logger *slog.Logger,
	onFinish FinishFunc,
) *Room {
	return &Room{
		id:          id,
		ownerID:     ownerID,
		createdAt:   time.Now(),
		players:     []string{ownerID},
		playerConns: make(map[string]protocol.Conn),
		spectators:  make(map[protocol.Conn]string),
		status:      StatusWait,
		settings:    settings,
		broadcaster: broadcaster,
		logger:      logger.With("component", "room", "roomID", id),
		onFinish:    onFinish,
	}
}

func (that *Room) ID() string {
	return that.id
}

func (that *Room) Status() Status {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.status
}

// Match - a copy of the current match, or nil before play starts.
func (that *Room) Match() *entity.Match {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.match == nil {
		return nil
	}

	match := *that.match

	return &match
}

func (that *Room) Snapshot() Info {
	that.mu.Lock()
	defer that.mu.Unlock()

	return Info{
		ID:         that.id,
		OwnerID:    that.ownerID,
		Players:    slices.Clone(that.players),
		Status:     that.status,
		Spectators: len(that.spectators),
		CreatedAt:  that.createdAt,
	}
}

// TryAddPlayer - claims a free player slot for userID. Claiming twice is a no-op.
func (that *Room) TryAddPlayer(userID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if slices.Contains(that.players, userID) {
		return nil
	}

	if that.status == StatusEnd {
		return apperror.ErrGameAlreadyEnded
	}

	if len(that.players) >= maxPlayers {
		return apperror.ErrRoomFull
	}

	that.players = append(that.players, userID)
	that.logger.Info("player slot claimed", "method", "TryAddPlayer", "userID", userID)

	return nil
}

// Join - registers a connection. Users outside the two player slots, or asking
// to watch, become spectators and never change the status.
func (that *Room) Join(member *entity.Profile, conn protocol.Conn, isSpectator bool) JoinResult {
	that.mu.Lock()
	defer that.mu.Unlock()

	log := that.logger.With("method", "Join", "userID", member.ID)

	if isSpectator || !slices.Contains(that.players, member.ID) {
		that.spectators[conn] = member.ID
		that.broadcastLocked(joinEnvelope(entity.RoleSpectator, member))

		log.Info("spectator joined", "spectators", len(that.spectators))

		return SpectatorJoined
	}

	if old, ok := that.playerConns[member.ID]; ok && old != conn {
		log.Info("player connection replaced")
		old.Close()
	}

	delete(that.spectators, conn)
	that.playerConns[member.ID] = conn
	that.broadcastLocked(joinEnvelope(entity.RolePlayer, member))

	if that.status == StatusWait && that.isReadyLocked() {
		that.status = StatusReady
		that.broadcastLocked(protocol.Envelope{
			Type:    protocol.TypeRoomReady,
			Payload: protocol.RoomReadyPayload{RoomID: that.id, Players: slices.Clone(that.players)},
		})

		log.Info("room is ready")

		return RoomReady
	}

	log.Info("player joined", "status", that.status)

	return PlayerJoined
}

// Leave - unregisters a connection. A connection that is not the user's current
// player connection is treated as a spectator leaving.
func (that *Room) Leave(userID string, conn protocol.Conn) LeaveResult {
	that.mu.Lock()
	result, finish := that.leaveLocked(userID, conn)
	that.mu.Unlock()

	that.emitFinish(finish)

	return result
}

func (that *Room) leaveLocked(userID string, conn protocol.Conn) (LeaveResult, *Finish) {
	log := that.logger.With("method", "Leave", "userID", userID)

	if registered, ok := that.playerConns[userID]; !ok || registered != conn {
		delete(that.spectators, conn)
		log.Info("spectator left", "spectators", len(that.spectators))

		return SpectatorLeft, nil
	}

	delete(that.playerConns, userID)
	that.players = slices.DeleteFunc(that.players, func(id string) bool { return id == userID })

	var (
		result LeaveResult
		finish *Finish
	)

	switch that.status {
	case StatusPlaying:
		winner := that.match.Opponent(userID)
		that.match.Finish(winner)

		that.broadcastLocked(leaveEnvelope(userID, protocol.ReasonPlayerGG))
		that.broadcastLocked(protocol.Envelope{
			Type:    protocol.TypeGameEnd,
			Payload: protocol.GameEndPayload{Winner: winner, Reason: protocol.ReasonForfeit},
		})

		finish = that.finishLocked(protocol.ReasonForfeit, winner, userID)
		result = PlayerLeftDuringGame
	case StatusReady, StatusCountdown:
		that.status = StatusWait
		that.epoch++
		that.broadcastLocked(leaveEnvelope(userID, protocol.ReasonPlayerLeft))

		result = PlayerLeftBeforeStart
	case StatusEnd:
		that.broadcastLocked(leaveEnvelope(userID, protocol.ReasonPlayerLeft))

		result = PlayerLeftAfterEnd
	default:
		that.broadcastLocked(leaveEnvelope(userID, protocol.ReasonPlayerLeft))

		result = PlayerLeftWaiting
	}

	if len(that.players) == 0 && len(that.playerConns) == 0 {
		if that.status != StatusEnd {
			that.broadcastLocked(protocol.Envelope{
				Type:    protocol.TypeGameEnd,
				Payload: protocol.GameEndPayload{Reason: protocol.ReasonRoomEmpty},
			})
			finish = that.finishLocked(protocol.ReasonRoomEmpty, "", "")
		}

		result = RoomEmpty
	}

	log.Info("player left", "result", result.String(), "status", that.status)

	return result, finish
}

// HandleMove - applies a move sent over conn. Invalid moves are reported to the
// sender only and leave the room untouched.
func (that *Room) HandleMove(userID string, conn protocol.Conn, x, y int) MoveOutcome {
	that.mu.Lock()
	outcome, finish := that.handleMoveLocked(userID, conn, x, y)
	that.mu.Unlock()

	that.emitFinish(finish)

	return outcome
}

func (that *Room) handleMoveLocked(userID string, conn protocol.Conn, x, y int) (MoveOutcome, *Finish) {
	log := that.logger.With("method", "HandleMove", "userID", userID)

	if !that.isPlayerConnLocked(userID, conn) {
		that.broadcaster.SendTo(conn, protocol.NewError(apperror.ErrSpectatorCannotMove))
		return MoveRejected, nil
	}

	if that.status != StatusPlaying {
		return MoveIgnored, nil
	}

	if that.match.Turn != that.match.ColorOf(userID) {
		that.broadcaster.SendTo(conn, protocol.NewError(apperror.ErrNotYourTurn))
		return MoveRejected, nil
	}

	result, err := omok.PlaceStone(that.match, x, y)
	if err != nil {
		log.Debug("move rejected", "x", x, "y", y, "error", err)
		that.broadcaster.SendTo(conn, protocol.NewError(err))

		return MoveRejected, nil
	}

	that.broadcastLocked(protocol.Envelope{
		Type:    protocol.TypeMoveOK,
		Payload: protocol.MoveOKPayload{X: result.X, Y: result.Y, Color: result.Color},
	})

	switch {
	case result.Win:
		winner := that.match.WinnerID
		that.broadcastLocked(protocol.Envelope{
			Type:    protocol.TypeGameEnd,
			Payload: protocol.GameEndPayload{Winner: winner},
		})

		log.Info("match won", "winner", winner, "moves", that.match.Moves)

		return MoveWon, that.finishLocked(protocol.ReasonWin, winner, that.match.Opponent(winner))
	case result.Draw:
		that.broadcastLocked(protocol.Envelope{
			Type:    protocol.TypeGameEnd,
			Payload: protocol.GameEndPayload{Reason: protocol.ReasonDraw},
		})

		log.Info("match drawn", "moves", that.match.Moves)

		return MoveDraw, that.finishLocked(protocol.ReasonDraw, "", "")
	}

	that.armTurnTimerLocked()

	return MoveAccepted, nil
}

// HandleChat - relays text to everyone in the room, tagged with the sender's role.
// Returns false when conn does not belong to the room.
func (that *Room) HandleChat(userID string, conn protocol.Conn, text string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	payload := protocol.ChatPayload{
		SenderID:    userID,
		SenderRole:  entity.RoleSpectator,
		PlayerIndex: protocol.PlayerIndexSpectator,
		Message:     text,
	}

	if that.isPlayerConnLocked(userID, conn) {
		payload.SenderRole = entity.RolePlayer
		payload.PlayerIndex = that.playerIndexLocked(userID)
	} else if _, ok := that.spectators[conn]; !ok {
		return false
	}

	that.broadcastLocked(protocol.Envelope{Type: protocol.TypeChat, Payload: payload})

	return true
}

// playerIndexLocked - 1 for Black and 2 for White once a match exists, the slot
// position before that.
func (that *Room) playerIndexLocked(userID string) int {
	if that.match != nil {
		switch that.match.ColorOf(userID) {
		case entity.Black:
			return 1
		case entity.White:
			return 2
		}
	}

	return slices.Index(that.players, userID) + 1
}

func (that *Room) isReadyLocked() bool {
	if len(that.players) != maxPlayers {
		return false
	}

	for _, id := range that.players {
		if _, ok := that.playerConns[id]; !ok {
			return false
		}
	}

	return true
}

func (that *Room) isPlayerConnLocked(userID string, conn protocol.Conn) bool {
	registered, ok := that.playerConns[userID]

	return ok && registered == conn
}

// finishLocked - moves the room to End and returns the outcome to report, at most once.
func (that *Room) finishLocked(reason, winnerID, loserID string) *Finish {
	that.status = StatusEnd
	that.stopTurnTimerLocked()

	if that.finished {
		return nil
	}
	that.finished = true

	finish := &Finish{
		RoomID:   that.id,
		Reason:   reason,
		WinnerID: winnerID,
		LoserID:  loserID,
	}

	if that.match != nil {
		finish.Moves = that.match.Moves
	}

	return finish
}

func (that *Room) emitFinish(finish *Finish) {
	if finish == nil || that.onFinish == nil {
		return
	}

	that.onFinish(*finish)
}

// targetsLocked - every live connection: players first, in slot order, then spectators.
func (that *Room) targetsLocked() []protocol.Conn {
	targets := make([]protocol.Conn, 0, len(that.playerConns)+len(that.spectators))

	for _, id := range that.players {
		if conn, ok := that.playerConns[id]; ok {
			targets = append(targets, conn)
		}
	}

	for conn := range that.spectators {
		targets = append(targets, conn)
	}

	return targets
}

func (that *Room) broadcastLocked(env protocol.Envelope) {
	that.broadcaster.Send(that.targetsLocked(), env)
}

func joinEnvelope(role entity.Role, member *entity.Profile) protocol.Envelope {
	return protocol.Envelope{
		Type: protocol.TypeJoin,
		Payload: protocol.JoinPayload{
			Role:       role,
			UserID:     member.ID,
			Nickname:   member.Nickname,
			ProfileImg: member.ProfileImg,
		},
	}
}

func leaveEnvelope(userID, reason string) protocol.Envelope {
	return protocol.Envelope{
		Type:    protocol.TypeLeave,
		Payload: protocol.LeavePayload{UserID: userID, Reason: reason},
	}
}
