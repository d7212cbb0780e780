package bot

import (
	"ctchen222/tictactoe-ai/internal/game"
	"math"
	"math/rand/v2"
)

const winScore = 10

// easyMove makes a completely random move.
func easyMove(board *game.Board, rng *rand.Rand) int {
	availableMoves := board.EmptyCells()
	if len(availableMoves) == 0 {
		return NoMove // No moves left
	}
	return availableMoves[rng.IntN(len(availableMoves))]
}

// HardMove searches the full game tree and returns the empty cell with the
// highest minimax score for aiMark. Ties go to the lowest index. The search
// places and removes marks on board itself, leaving it unchanged on return.
func HardMove(board *game.Board, aiMark game.PlayerMark) int {
	bestScore := math.MinInt
	move := NoMove

	for i := 0; i < board.Len(); i++ {
		if !board.IsEmpty(i) {
			continue
		}

		var score int
		if err := board.With(i, aiMark, func() {
			score = Minimax(board, aiMark, 0, false)
		}); err != nil {
			continue
		}

		if score > bestScore {
			bestScore = score
			move = i
		}
	}
	return move
}

// Minimax scores board from aiMark's point of view: 10-depth when aiMark has
// won, depth-10 when its opponent has, 0 for a draw. Otherwise it recurses
// over every empty cell with the side to move given by maximizing. Depth is
// counted in plies from the first call.
func Minimax(board *game.Board, aiMark game.PlayerMark, depth int, maximizing bool) int {
	outcome := board.Outcome()
	switch {
	case outcome.Status == game.Win && outcome.Winner == aiMark:
		return winScore - depth
	case outcome.Status == game.Win:
		return depth - winScore
	case outcome.Status == game.Draw:
		return 0
	}

	mark := aiMark.Opponent()
	best := math.MaxInt
	if maximizing {
		mark = aiMark
		best = math.MinInt
	}

	for i := 0; i < board.Len(); i++ {
		if !board.IsEmpty(i) {
			continue
		}

		var eval int
		if err := board.With(i, mark, func() {
			eval = Minimax(board, aiMark, depth+1, !maximizing)
		}); err != nil {
			continue
		}

		if maximizing {
			best = max(best, eval)
		} else {
			best = min(best, eval)
		}
	}
	return best
}
