package apperror

import "errors"

// rule engine
var (
	ErrGameAlreadyEnded      = errors.New("game is already ended")
	ErrOutOfBounds           = errors.New("position is out of bounds")
	ErrCellNotEmpty          = errors.New("cell is not empty")
	ErrForbiddenDoubleThree  = errors.New("double three is forbidden for black")
	ErrNotYourTurn           = errors.New("it's not your turn")
	ErrSpectatorCannotMove   = errors.New("spectator cannot move")
	ErrInvalidPlayerIdentity = errors.New("invalid player identity")
)

// rooms
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrRoomAlreadyExists = errors.New("room already exists")
)

// protocol
var (
	ErrMalformedMessage   = errors.New("invalid message format")
	ErrUnsupportedMessage = errors.New("unsupported message")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrBackpressure       = errors.New("send buffer is full")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrGameAlreadyEnded, "GAME_ALREADY_ENDED"},
	{ErrOutOfBounds, "OUT_OF_BOUNDS"},
	{ErrCellNotEmpty, "CELL_NOT_EMPTY"},
	{ErrForbiddenDoubleThree, "FORBIDDEN_DOUBLE_THREE"},
	{ErrNotYourTurn, "INVALID_TURN"},
	{ErrSpectatorCannotMove, "SPECTATOR_CANNOT_MOVE"},
	{ErrInvalidPlayerIdentity, "INVALID_PLAYER_IDENTITY"},
	{ErrRoomNotFound, "ROOM_NOT_FOUND"},
	{ErrRoomFull, "ROOM_FULL"},
	{ErrRoomAlreadyExists, "ROOM_ALREADY_EXISTS"},
	{ErrMalformedMessage, "INVALID_MESSAGE_FORMAT"},
	{ErrUnsupportedMessage, "UNSUPPORTED_MESSAGE"},
}

// Code - returns the wire code of a known error, "INTERNAL" otherwise.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return "INTERNAL"
}
