package game

import "sync"

var (
	patternsMu    sync.Mutex
	patternsCache = map[int][][]int{}
)

// WinPatterns returns every row, every column and, when size is at least 3,
// the main and anti diagonals, in that order. Results are cached per size and
// must not be modified by callers.
func WinPatterns(size int) [][]int {
	if size < 1 {
		return nil
	}

	patternsMu.Lock()
	defer patternsMu.Unlock()

	if patterns, ok := patternsCache[size]; ok {
		return patterns
	}
	patterns := buildPatterns(size)
	patternsCache[size] = patterns
	return patterns
}

func buildPatterns(size int) [][]int {
	patterns := make([][]int, 0, 2*size+2)

	// Rows
	for r := 0; r < size; r++ {
		row := make([]int, size)
		for c := range row {
			row[c] = r*size + c
		}
		patterns = append(patterns, row)
	}

	// Columns
	for c := 0; c < size; c++ {
		col := make([]int, size)
		for r := range col {
			col[r] = r*size + c
		}
		patterns = append(patterns, col)
	}

	// Diagonals
	if size >= 3 {
		main := make([]int, size)
		anti := make([]int, size)
		for i := 0; i < size; i++ {
			main[i] = i*size + i
			anti[i] = i*size + (size - 1 - i)
		}
		patterns = append(patterns, main, anti)
	}

	return patterns
}
