package game

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	X = PlayerX
	O = PlayerO
	E = None
)

func mustBoard(t *testing.T, cells ...PlayerMark) *Board {
	t.Helper()
	b, err := BoardFromCells(cells)
	require.NoError(t, err)
	return b
}

func TestNewBoard(t *testing.T) {
	for _, size := range []int{1, 2, 3, 4, 7} {
		b, err := NewBoard(size)
		require.NoError(t, err)
		assert.Equal(t, size, b.Size())
		assert.Equal(t, size*size, b.Len())
		assert.Len(t, b.EmptyCells(), size*size)
		assert.Equal(t, Outcome{Status: InProgress}, b.Outcome())
	}

	for _, size := range []int{0, -1, -9} {
		_, err := NewBoard(size)
		assert.ErrorIs(t, err, ErrInvalidSize, "size %d", size)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name  string
		cells []PlayerMark
		want  Outcome
	}{
		{
			name:  "No winner - empty board",
			cells: []PlayerMark{E, E, E, E, E, E, E, E, E},
			want:  Outcome{Status: InProgress},
		},
		{
			name:  "No winner - partial board",
			cells: []PlayerMark{X, E, E, E, O, E, E, E, E},
			want:  Outcome{Status: InProgress},
		},
		{
			name:  "X wins - first row",
			cells: []PlayerMark{X, X, X, E, O, E, E, E, O},
			want:  Outcome{Status: Win, Winner: X},
		},
		{
			name:  "O wins - second column",
			cells: []PlayerMark{X, O, E, X, O, E, E, O, E},
			want:  Outcome{Status: Win, Winner: O},
		},
		{
			name:  "X wins - main diagonal",
			cells: []PlayerMark{X, E, E, E, X, E, E, E, X},
			want:  Outcome{Status: Win, Winner: X},
		},
		{
			name:  "O wins - anti-diagonal",
			cells: []PlayerMark{E, E, O, E, O, E, O, E, E},
			want:  Outcome{Status: Win, Winner: O},
		},
		{
			name:  "Full board without a line is a draw",
			cells: []PlayerMark{X, O, X, X, O, O, O, X, X},
			want:  Outcome{Status: Draw},
		},
		{
			name:  "Full board with a line is a win",
			cells: []PlayerMark{X, X, X, O, O, X, O, X, O},
			want:  Outcome{Status: Win, Winner: X},
		},
		{
			name: "4x4 anti-diagonal",
			cells: []PlayerMark{
				E, E, E, O,
				E, E, O, X,
				E, O, X, E,
				O, X, X, E,
			},
			want: Outcome{Status: Win, Winner: O},
		},
		{
			name: "4x4 three in a row is not enough",
			cells: []PlayerMark{
				X, X, X, E,
				O, O, O, E,
				E, E, E, E,
				E, E, E, E,
			},
			want: Outcome{Status: InProgress},
		},
		{
			name:  "2x2 has no diagonal wins",
			cells: []PlayerMark{X, O, O, X},
			want:  Outcome{Status: Draw},
		},
		{
			name:  "1x1 single mark wins through its row",
			cells: []PlayerMark{O},
			want:  Outcome{Status: Win, Winner: O},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, tt.cells...)
			assert.Equal(t, tt.want, b.Outcome())
			assert.Equal(t, tt.want.IsTerminal(), tt.want.Status != InProgress)
		})
	}
}

func TestApplyMoveCompletesTopRow(t *testing.T) {
	b := mustBoard(t, X, X, E, O, O, E, E, E, E)

	require.NoError(t, b.ApplyMove(2, X))

	assert.Equal(t, Outcome{Status: Win, Winner: X}, b.Outcome())
}

func TestApplyMoveRejectsInvalidMoves(t *testing.T) {
	tests := []struct {
		name  string
		index int
		mark  PlayerMark
	}{
		{name: "negative index", index: -1, mark: X},
		{name: "index past the end", index: 9, mark: X},
		{name: "occupied cell", index: 0, mark: O},
		{name: "empty mark", index: 4, mark: None},
		{name: "unknown mark", index: 4, mark: PlayerMark("Z")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, X, E, E, E, E, E, E, E, E)
			before := b.Cells()

			err := b.ApplyMove(tt.index, tt.mark)

			assert.ErrorIs(t, err, ErrInvalidMove)
			assert.Equal(t, before, b.Cells(), "board must not change on a rejected move")
		})
	}
}

func TestIsFull(t *testing.T) {
	tests := []struct {
		name  string
		cells []PlayerMark
		want  bool
	}{
		{name: "Empty board is not full", cells: []PlayerMark{E, E, E, E, E, E, E, E, E}, want: false},
		{name: "Partial board is not full", cells: []PlayerMark{X, E, E, E, O, E, E, E, E}, want: false},
		{name: "Full board is full", cells: []PlayerMark{X, O, X, X, O, O, O, X, X}, want: true},
		{name: "Full board with winner is full", cells: []PlayerMark{X, X, X, O, O, X, O, X, O}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustBoard(t, tt.cells...).IsFull(); got != tt.want {
				t.Errorf("IsFull() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWith(t *testing.T) {
	b := mustBoard(t, X, E, E, E, E, E, E, E, E)

	var seen PlayerMark
	require.NoError(t, b.With(4, O, func() { seen = b.Cell(4) }))
	assert.Equal(t, O, seen)
	assert.Equal(t, None, b.Cell(4))

	assert.ErrorIs(t, b.With(0, O, func() { t.Fatal("fn must not run for an occupied cell") }), ErrInvalidMove)
	assert.Equal(t, X, b.Cell(0))

	assert.Panics(t, func() {
		_ = b.With(8, X, func() { panic("boom") })
	})
	assert.Equal(t, None, b.Cell(8), "cell must be restored when fn panics")
}

func TestWinPatterns(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{size: 1, want: 2},
		{size: 2, want: 4},
		{size: 3, want: 8},
		{size: 4, want: 10},
		{size: 6, want: 14},
	}

	for _, tt := range tests {
		patterns := WinPatterns(tt.size)
		assert.Len(t, patterns, tt.want, "size %d", tt.size)
		for _, p := range patterns {
			assert.Len(t, p, tt.size)
		}
	}

	assert.Equal(t, [][]int{{0}, {0}}, WinPatterns(1))
	assert.Equal(t, [][]int{
		{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
		{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
		{0, 4, 8}, {2, 4, 6},
	}, WinPatterns(3))
	assert.Equal(t, []int{3, 6, 9, 12}, WinPatterns(4)[9])
	assert.Nil(t, WinPatterns(0))
}

// hasLine is an independent check used to cross-validate Outcome.
func hasLine(b *Board, mark PlayerMark) bool {
	n := b.Size()
	line := func(at func(i int) int) bool {
		for i := 0; i < n; i++ {
			if b.Cell(at(i)) != mark {
				return false
			}
		}
		return true
	}
	for k := 0; k < n; k++ {
		if line(func(i int) int { return k*n + i }) || line(func(i int) int { return i*n + k }) {
			return true
		}
	}
	if n >= 3 {
		return line(func(i int) int { return i*n + i }) || line(func(i int) int { return i*n + n - 1 - i })
	}
	return false
}

func TestOutcomeAlongRandomGames(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for size := 1; size <= 5; size++ {
		for game := 0; game < 200; game++ {
			b, err := NewBoard(size)
			require.NoError(t, err)

			mark := X
			for {
				empty := b.EmptyCells()
				require.NotEmpty(t, empty)
				require.NoError(t, b.ApplyMove(empty[rng.IntN(len(empty))], mark))

				got := b.Outcome()
				switch {
				case hasLine(b, mark):
					require.Equal(t, Outcome{Status: Win, Winner: mark}, got, "size %d board\n%s", size, b)
				case b.IsFull():
					require.Equal(t, Outcome{Status: Draw}, got, "size %d board\n%s", size, b)
				default:
					require.Equal(t, Outcome{Status: InProgress}, got, "size %d board\n%s", size, b)
				}
				if got.IsTerminal() {
					break
				}

				diff := b.count(X) - b.count(O)
				require.True(t, diff == 0 || diff == 1, "marks must alternate")
				mark = mark.Opponent()
			}
		}
	}
}

func TestBoardFromCells(t *testing.T) {
	_, err := BoardFromCells(nil)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = BoardFromCells([]PlayerMark{X, O, E})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = BoardFromCells([]PlayerMark{X, O, E, "Q"})
	assert.ErrorIs(t, err, ErrInvalidMove)

	b, err := BoardFromCells([]PlayerMark{X, O, E, E})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Size())
	assert.Equal(t, []PlayerMark{X, O, E, E}, b.Cells())
	assert.Equal(t, "XO\n..", b.String())
}

func TestBoardJSON(t *testing.T) {
	b := mustBoard(t, X, E, E, E, O, E, E, E, E)

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":3,"cells":["X","","","","O","","","",""]}`, string(data))

	var decoded Board
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, b.Size(), decoded.Size())
	assert.Equal(t, b.Cells(), decoded.Cells())
	require.NoError(t, decoded.ApplyMove(1, X))
	require.NoError(t, decoded.ApplyMove(2, X))
	assert.Equal(t, Outcome{Status: Win, Winner: X}, decoded.Outcome(), "decoded board must know its win patterns")

	err = json.Unmarshal([]byte(`{"size":2,"cells":["X","","","","","","","",""]}`), &decoded)
	assert.True(t, errors.Is(err, ErrInvalidSize))
}

func TestCloneIsIndependent(t *testing.T) {
	b := mustBoard(t, X, E, E, E)
	c := b.Clone()

	require.NoError(t, c.ApplyMove(1, O))

	assert.Equal(t, None, b.Cell(1))
	assert.NotEqual(t, b.Cells(), c.Cells())

	c.Reset()
	assert.Len(t, c.EmptyCells(), 4)
}

func TestStatusText(t *testing.T) {
	data, err := json.Marshal(Outcome{Status: Win, Winner: O})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"win","winner":"O"}`, string(data))

	var o Outcome
	require.NoError(t, json.Unmarshal([]byte(`{"status":"draw"}`), &o))
	assert.Equal(t, Outcome{Status: Draw}, o)
	assert.Equal(t, "O wins", Outcome{Status: Win, Winner: O}.String())
}
