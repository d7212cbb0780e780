package game

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// DefaultSize is the side length of the classic board.
	DefaultSize = 3
)

var (
	ErrInvalidSize = errors.New("invalid board size")
	ErrInvalidMove = errors.New("invalid move")
)

// IsPlayer reports whether m is one of the two player marks.
func (m PlayerMark) IsPlayer() bool {
	return m == PlayerX || m == PlayerO
}

// Opponent returns the other player's mark. None has no opponent.
func (m PlayerMark) Opponent() PlayerMark {
	switch m {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return None
	}
}

// Board is a size×size grid stored in row-major order.
// Cell i sits in row i/size, column i%size.
type Board struct {
	size     int
	cells    []PlayerMark
	patterns [][]int
}

// NewBoard allocates an empty board. Boards smaller than 3 are allowed but
// have no diagonal patterns.
func NewBoard(size int) (*Board, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return &Board{
		size:     size,
		cells:    make([]PlayerMark, size*size),
		patterns: WinPatterns(size),
	}, nil
}

// BoardFromCells builds a board from a row-major cell slice whose length must be
// a perfect square.
func BoardFromCells(cells []PlayerMark) (*Board, error) {
	size := 0
	for size*size < len(cells) {
		size++
	}
	if size == 0 || size*size != len(cells) {
		return nil, fmt.Errorf("%w: %d cells do not form a square", ErrInvalidSize, len(cells))
	}

	b, err := NewBoard(size)
	if err != nil {
		return nil, err
	}
	for i, mark := range cells {
		if mark != None && !mark.IsPlayer() {
			return nil, fmt.Errorf("%w: unknown mark %q at cell %d", ErrInvalidMove, mark, i)
		}
		b.cells[i] = mark
	}
	return b, nil
}

// Size returns the side length.
func (b *Board) Size() int {
	return b.size
}

// Len returns the number of cells.
func (b *Board) Len() int {
	return len(b.cells)
}

// Cell returns the mark at index, or None when index is out of range.
func (b *Board) Cell(index int) PlayerMark {
	if index < 0 || index >= len(b.cells) {
		return None
	}
	return b.cells[index]
}

// Cells returns a copy of the cells in row-major order.
func (b *Board) Cells() []PlayerMark {
	cells := make([]PlayerMark, len(b.cells))
	copy(cells, b.cells)
	return cells
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	return &Board{
		size:     b.size,
		cells:    b.Cells(),
		patterns: b.patterns,
	}
}

// Reset empties every cell.
func (b *Board) Reset() {
	for i := range b.cells {
		b.cells[i] = None
	}
}

// ApplyMove places mark at index. The board is left untouched on error.
func (b *Board) ApplyMove(index int, mark PlayerMark) error {
	if err := b.checkMove(index, mark); err != nil {
		return err
	}
	b.cells[index] = mark
	return nil
}

// With places mark at index, runs fn, and empties the cell again however fn
// returns. It is the backtracking primitive used by search.
func (b *Board) With(index int, mark PlayerMark, fn func()) error {
	if err := b.checkMove(index, mark); err != nil {
		return err
	}
	b.cells[index] = mark
	defer func() { b.cells[index] = None }()

	fn()
	return nil
}

func (b *Board) checkMove(index int, mark PlayerMark) error {
	if !mark.IsPlayer() {
		return fmt.Errorf("%w: unknown mark %q", ErrInvalidMove, mark)
	}
	if index < 0 || index >= len(b.cells) {
		return fmt.Errorf("%w: cell %d out of range [0, %d)", ErrInvalidMove, index, len(b.cells))
	}
	if b.cells[index] != None {
		return fmt.Errorf("%w: cell %d already occupied by %s", ErrInvalidMove, index, b.cells[index])
	}
	return nil
}

// IsEmpty reports whether the cell at index is in range and unmarked.
func (b *Board) IsEmpty(index int) bool {
	return index >= 0 && index < len(b.cells) && b.cells[index] == None
}

// IsFull reports whether no cell is empty.
func (b *Board) IsFull() bool {
	for _, cell := range b.cells {
		if cell == None {
			return false
		}
	}
	return true
}

// EmptyCells returns the indices of empty cells in ascending order.
func (b *Board) EmptyCells() []int {
	var empty []int
	for i, cell := range b.cells {
		if cell == None {
			empty = append(empty, i)
		}
	}
	return empty
}

// count returns how many cells hold mark.
func (b *Board) count(mark PlayerMark) int {
	n := 0
	for _, cell := range b.cells {
		if cell == mark {
			n++
		}
	}
	return n
}

// Outcome derives the game outcome. Patterns are checked rows first, then
// columns, then diagonals; the first uniformly marked pattern wins.
func (b *Board) Outcome() Outcome {
	if winner := b.winner(); winner != None {
		return Outcome{Status: Win, Winner: winner}
	}
	if b.IsFull() {
		return Outcome{Status: Draw}
	}
	return Outcome{Status: InProgress}
}

func (b *Board) winner() PlayerMark {
	for _, pattern := range b.patterns {
		first := b.cells[pattern[0]]
		if first == None {
			continue
		}
		won := true
		for _, idx := range pattern[1:] {
			if b.cells[idx] != first {
				won = false
				break
			}
		}
		if won {
			return first
		}
	}
	return None
}

type boardJSON struct {
	Size  int          `json:"size"`
	Cells []PlayerMark `json:"cells"`
}

// MarshalJSON encodes the board as its size and row-major cells.
func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(boardJSON{Size: b.size, Cells: b.cells})
}

// UnmarshalJSON decodes a board produced by MarshalJSON.
func (b *Board) UnmarshalJSON(data []byte) error {
	var raw boardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := BoardFromCells(raw.Cells)
	if err != nil {
		return err
	}
	if decoded.size != raw.Size {
		return fmt.Errorf("%w: size %d does not match %d cells", ErrInvalidSize, raw.Size, len(raw.Cells))
	}
	*b = *decoded
	return nil
}

// String renders the board one row per line, with '.' for empty cells.
func (b *Board) String() string {
	buf := make([]byte, 0, len(b.cells)+b.size)
	for i, cell := range b.cells {
		if i > 0 && i%b.size == 0 {
			buf = append(buf, '\n')
		}
		if cell == None {
			buf = append(buf, '.')
		} else {
			buf = append(buf, cell...)
		}
	}
	return string(buf)
}
