package room

type Status string

const (
	StatusWait      Status = "WAIT"
	StatusReady     Status = "READY"
	StatusCountdown Status = "COUNTDOWN"
	StatusPlaying   Status = "PLAYING"
	StatusEnd       Status = "END"
)

// JoinResult classifies what a Join did.
type JoinResult int

const (
	PlayerJoined JoinResult = iota
	SpectatorJoined
	RoomReady
)

func (r JoinResult) String() string {
	switch r {
	case PlayerJoined:
		return "PLAYER_JOINED"
	case SpectatorJoined:
		return "SPECTATOR_JOINED"
	case RoomReady:
		return "ROOM_READY"
	default:
		return "UNKNOWN"
	}
}

// LeaveResult classifies what a Leave did.
type LeaveResult int

const (
	SpectatorLeft LeaveResult = iota
	PlayerLeftWaiting
	PlayerLeftBeforeStart
	PlayerLeftDuringGame
	PlayerLeftAfterEnd
	RoomEmpty
)

func (r LeaveResult) String() string {
	switch r {
	case SpectatorLeft:
		return "SPECTATOR_LEFT"
	case PlayerLeftWaiting:
		return "PLAYER_LEFT_WAITING"
	case PlayerLeftBeforeStart:
		return "PLAYER_LEFT_BEFORE_START"
	case PlayerLeftDuringGame:
		return "PLAYER_LEFT_DURING_GAME"
	case PlayerLeftAfterEnd:
		return "PLAYER_LEFT_AFTER_END"
	case RoomEmpty:
		return "ROOM_EMPTY"
	default:
		return "UNKNOWN"
	}
}

// MoveOutcome classifies what a HandleMove did.
type MoveOutcome int

const (
	MoveIgnored MoveOutcome = iota
	MoveRejected
	MoveAccepted
	MoveWon
	MoveDraw
)

func (o MoveOutcome) String() string {
	switch o {
	case MoveIgnored:
		return "IGNORED"
	case MoveRejected:
		return "REJECTED"
	case MoveAccepted:
		return "ACCEPTED"
	case MoveWon:
		return "WON"
	case MoveDraw:
		return "DRAW"
	default:
		return "UNKNOWN"
	}
}

// Finish describes a terminal outcome of a room. WinnerID and LoserID are empty
// when nobody won.
type Finish struct {
	RoomID   string
	Reason   string
	WinnerID string
	LoserID  string
	Moves    int
}

func (f Finish) HasWinner() bool {
	return f.WinnerID != ""
}

type FinishFunc func(Finish)
