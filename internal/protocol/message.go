package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
	"github.com/rocketscienceinc/omok-backend/internal/entity"
)

type Type string

// Outbound types.
const (
	TypeJoin      Type = "JOIN"
	TypeRoomReady Type = "ROOM_READY"
	TypeCountdown Type = "COUNTDOWN"
	TypeGameStart Type = "GAME_START"
	TypeMoveOK    Type = "MOVE_OK"
	TypeGameEnd   Type = "GAME_END"
	TypeLeave     Type = "LEAVE"
	TypeChat      Type = "CHAT"
	TypeError     Type = "ERROR"
)

// Inbound types. CHAT is shared with the outbound set.
const (
	TypeMove Type = "MOVE"
)

// Reasons carried by GAME_END when there is no winner, or to qualify one.
// ReasonWin is never sent: a plain win carries only the winner.
const (
	ReasonWin       = "WIN"
	ReasonForfeit   = "FORFEIT"
	ReasonDraw      = "DRAW"
	ReasonTimeout   = "TIMEOUT"
	ReasonRoomEmpty = "ROOM_EMPTY"
)

// Reasons carried by LEAVE.
const (
	ReasonPlayerLeft = "PLAYER_LEFT"
	ReasonPlayerGG   = "PLAYER_GG"
)

// PlayerIndexSpectator tags chat sent by a spectator.
const PlayerIndexSpectator = -1

// Envelope is the tagged frame exchanged with clients.
type Envelope struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload,omitempty"`
}

type JoinPayload struct {
	Role       entity.Role `json:"role"`
	UserID     string      `json:"userId"`
	Nickname   string      `json:"nickname"`
	ProfileImg string      `json:"profileImg,omitempty"`
}

type RoomReadyPayload struct {
	RoomID  string   `json:"roomId"`
	Players []string `json:"players"`
}

type CountdownPayload struct {
	Remaining int `json:"remaining"`
}

type GameStartPayload struct {
	MyColor   entity.Stone `json:"myColor"`
	FirstTurn entity.Stone `json:"firstTurn"`
}

type MoveOKPayload struct {
	X     int          `json:"x"`
	Y     int          `json:"y"`
	Color entity.Stone `json:"color"`
}

type GameEndPayload struct {
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type LeavePayload struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

type ChatPayload struct {
	SenderID    string      `json:"senderId"`
	SenderRole  entity.Role `json:"senderRole"`
	PlayerIndex int         `json:"playerIndex"`
	Message     string      `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MovePayload is the body of an inbound MOVE.
type MovePayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Inbound is a decoded client message. Exactly one of Move or Chat is meaningful, selected by Type.
type Inbound struct {
	Type Type
	Move MovePayload
	Chat string
}

type rawEnvelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type rawMove struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// DecodeInbound - parses a client frame into a typed message.
func DecodeInbound(data []byte) (Inbound, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return Inbound{}, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	switch raw.Type {
	case TypeMove:
		var move rawMove
		if err := decodeStrict(raw.Payload, &move); err != nil {
			return Inbound{}, err
		}

		if move.X == nil || move.Y == nil {
			return Inbound{}, fmt.Errorf("%w: move requires x and y", apperror.ErrMalformedMessage)
		}

		return Inbound{Type: TypeMove, Move: MovePayload{X: *move.X, Y: *move.Y}}, nil
	case TypeChat:
		var text string
		if err := decodeStrict(raw.Payload, &text); err != nil {
			return Inbound{}, err
		}

		return Inbound{Type: TypeChat, Chat: text}, nil
	case "":
		return Inbound{}, fmt.Errorf("%w: missing type", apperror.ErrMalformedMessage)
	default:
		return Inbound{}, fmt.Errorf("%w: %s", apperror.ErrUnsupportedMessage, raw.Type)
	}
}

func decodeStrict(payload json.RawMessage, target any) error {
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return fmt.Errorf("%w: missing payload", apperror.ErrMalformedMessage)
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	return nil
}

// NewError - builds an ERROR envelope whose code is derived from err.
func NewError(err error) Envelope {
	return Envelope{
		Type: TypeError,
		Payload: ErrorPayload{
			Code:    apperror.Code(err),
			Message: err.Error(),
		},
	}
}
