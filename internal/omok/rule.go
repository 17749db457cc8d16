package omok

import (
	"strings"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
	"github.com/rocketscienceinc/omok-backend/internal/entity"
)

const (
	winLength  = 5
	windowHalf = 4

	cellEmpty   = '.'
	cellOwn     = 'B'
	cellBlocked = 'O'
)

// directions holds one vector per line; its opposite is walked separately.
var directions = [4][2]int{
	{1, 0},
	{0, 1},
	{1, 1},
	{1, -1},
}

var (
	openThreePatterns   = []string{".BBB.", ".BB.B.", ".B.BB."}
	disqualifyingShapes = []string{".BBBB.", "BBBBB", "BBBB"}
)

type MoveResult struct {
	X     int          `json:"x"`
	Y     int          `json:"y"`
	Color entity.Stone `json:"color"`
	Win   bool         `json:"win"`
	Draw  bool         `json:"draw"`
}

// PlaceStone - places the stone of the current turn at (x, y).
// On error the match is left exactly as it was.
func PlaceStone(match *entity.Match, x, y int) (MoveResult, error) {
	if !match.IsInProgress() {
		return MoveResult{}, apperror.ErrGameAlreadyEnded
	}

	if err := validateMove(match, x, y); err != nil {
		return MoveResult{}, err
	}

	color := match.Turn
	match.Board.Set(x, y, color)

	if color == entity.Black && CountOpenThrees(&match.Board, x, y, color) >= 2 {
		match.Board.Set(x, y, entity.Empty)
		return MoveResult{}, apperror.ErrForbiddenDoubleThree
	}

	match.Moves++
	result := MoveResult{X: x, Y: y, Color: color}
	updateMatchStatus(match, &result)

	return result, nil
}

// validateMove - checks if the target cell can take a stone.
func validateMove(match *entity.Match, x, y int) error {
	if !match.Board.InBounds(x, y) {
		return apperror.ErrOutOfBounds
	}

	if !match.Board.IsEmpty(x, y) {
		return apperror.ErrCellNotEmpty
	}

	return nil
}

// updateMatchStatus - checks the match status after a move.
func updateMatchStatus(match *entity.Match, result *MoveResult) {
	switch {
	case IsWin(&match.Board, result.X, result.Y, result.Color):
		result.Win = true
		match.Finish(match.PlayerOf(result.Color))
	case match.Board.IsFull():
		result.Draw = true
		match.Finish("")
	default:
		match.SwitchTurn()
	}
}

// IsWin - reports whether the stone at (x, y) is part of five or more in a row.
func IsWin(board *entity.Board, x, y int, color entity.Stone) bool {
	for _, d := range directions {
		count := 1 + countDir(board, x, y, d[0], d[1], color) + countDir(board, x, y, -d[0], -d[1], color)
		if count >= winLength {
			return true
		}
	}

	return false
}

func countDir(board *entity.Board, x, y, dx, dy int, color entity.Stone) int {
	count := 0
	for cx, cy := x+dx, y+dy; board.InBounds(cx, cy) && board.At(cx, cy) == color; cx, cy = cx+dx, cy+dy {
		count++
	}

	return count
}

// CountOpenThrees - number of line directions through (x, y) that hold an open three for color.
func CountOpenThrees(board *entity.Board, x, y int, color entity.Stone) int {
	count := 0
	for _, d := range directions {
		if containsOpenThree(lineWindow(board, x, y, d[0], d[1], color)) {
			count++
		}
	}

	return count
}

// lineWindow - the 9 cells centred on (x, y); off-board cells count as blocked.
func lineWindow(board *entity.Board, x, y, dx, dy int, color entity.Stone) string {
	var sb strings.Builder
	sb.Grow(2*windowHalf + 1)

	for k := -windowHalf; k <= windowHalf; k++ {
		cx, cy := x+dx*k, y+dy*k

		switch {
		case !board.InBounds(cx, cy):
			sb.WriteByte(cellBlocked)
		case board.At(cx, cy) == entity.Empty:
			sb.WriteByte(cellEmpty)
		case board.At(cx, cy) == color:
			sb.WriteByte(cellOwn)
		default:
			sb.WriteByte(cellBlocked)
		}
	}

	return sb.String()
}

// containsOpenThree - a four or longer in the same window is not scored as a three.
func containsOpenThree(line string) bool {
	for _, shape := range disqualifyingShapes {
		if strings.Contains(line, shape) {
			return false
		}
	}

	for _, pattern := range openThreePatterns {
		if strings.Contains(line, pattern) {
			return true
		}
	}

	return false
}
