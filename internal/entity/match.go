package entity

type MatchStatus string

const (
	MatchReady      MatchStatus = "READY"
	MatchInProgress MatchStatus = "IN_PROGRESS"
	MatchFinished   MatchStatus = "FINISHED"
)

// Match is the authoritative state of one game. It is owned by a single room.
type Match struct {
	Board    Board       `json:"board"`
	Turn     Stone       `json:"turn"`
	Status   MatchStatus `json:"status"`
	BlackID  string      `json:"black_id"`
	WhiteID  string      `json:"white_id"`
	WinnerID string      `json:"winner_id,omitempty"`
	Moves    int         `json:"moves"`
}

func NewMatch(blackID, whiteID string) *Match {
	return &Match{
		Turn:    Black,
		Status:  MatchReady,
		BlackID: blackID,
		WhiteID: whiteID,
	}
}

func (that *Match) Start() {
	that.Status = MatchInProgress
	that.WinnerID = ""
}

// Finish - ends the match. An empty winnerID means the match ended without a winner.
func (that *Match) Finish(winnerID string) {
	that.Status = MatchFinished
	that.WinnerID = winnerID
}

func (that *Match) SwitchTurn() {
	that.Turn = that.Turn.Opposite()
}

func (that *Match) IsInProgress() bool {
	return that.Status == MatchInProgress
}

func (that *Match) IsFinished() bool {
	return that.Status == MatchFinished
}

func (that *Match) HasWinner() bool {
	return that.IsFinished() && that.WinnerID != ""
}

func (that *Match) ColorOf(userID string) Stone {
	switch userID {
	case that.BlackID:
		return Black
	case that.WhiteID:
		return White
	default:
		return Empty
	}
}

func (that *Match) PlayerOf(stone Stone) string {
	switch stone {
	case Black:
		return that.BlackID
	case White:
		return that.WhiteID
	default:
		return ""
	}
}

// Opponent - returns the other player's id, or "" when userID is not in the match.
func (that *Match) Opponent(userID string) string {
	return that.PlayerOf(that.ColorOf(userID).Opposite())
}
