package entity

import "fmt"

const BoardSize = 15

type Stone uint8

const (
	Empty Stone = iota
	Black
	White
)

func (s Stone) String() string {
	switch s {
	case Black:
		return "BLACK"
	case White:
		return "WHITE"
	default:
		return "EMPTY"
	}
}

func (s Stone) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stone) UnmarshalText(text []byte) error {
	switch string(text) {
	case "BLACK":
		*s = Black
	case "WHITE":
		*s = White
	case "EMPTY":
		*s = Empty
	default:
		return fmt.Errorf("unknown stone %q", text)
	}

	return nil
}

// Opposite - returns the other player colour, Empty stays Empty.
func (s Stone) Opposite() Stone {
	switch s {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

// Board is indexed as board[y][x].
type Board [BoardSize][BoardSize]Stone

func (that *Board) InBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

func (that *Board) At(x, y int) Stone {
	return that[y][x]
}

func (that *Board) Set(x, y int, stone Stone) {
	that[y][x] = stone
}

func (that *Board) IsEmpty(x, y int) bool {
	return that.At(x, y) == Empty
}

func (that *Board) IsFull() bool {
	for y := range that {
		for x := range that[y] {
			if that[y][x] == Empty {
				return false
			}
		}
	}

	return true
}
