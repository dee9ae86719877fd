// Package sudokugen builds sudoku puzzles with a unique solution.
package sudokugen

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"sync"

	"dailypuzzle/internal/domain/puzzle"
	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/ports"
)

const (
	side        = puzzle.SudokuSide
	maxAttempts = 8
)

var errUnsolvable = errors.New("could not fill sudoku grid")

type grid [puzzle.GridCells]byte

// Generator fills a random solved grid, then removes cells while the
// puzzle keeps exactly one solution, down to the difficulty's clue count.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var _ ports.SudokuGenerator = (*Generator)(nil)

// New returns a generator seeded from crypto/rand.
func New() (*Generator, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, errs.Wrap(err, "read random seed")
	}
	return NewSeeded(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])), nil
}

// NewSeeded returns a deterministic generator, mainly for tests.
func NewSeeded(seed1, seed2 uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

func (g *Generator) Generate(ctx context.Context, difficulty puzzle.Difficulty) (puzzle.Sudoku, error) {
	clues, err := difficulty.Clues()
	if err != nil {
		return puzzle.Sudoku{}, errs.Mark(err, puzzle.ErrGeneration)
	}
	if err := ctx.Err(); err != nil {
		return puzzle.Sudoku{}, errs.Mark(errs.Wrap(err, "check context"), puzzle.ErrGeneration)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	target := clues.Min + g.rng.IntN(clues.Max-clues.Min+1)

	var best puzzle.Sudoku
	bestGivens := puzzle.GridCells + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var solution grid
		if !g.fill(&solution, 0) {
			return puzzle.Sudoku{}, errs.Mark(errs.Wrap(errUnsolvable, "fill grid"), puzzle.ErrGeneration)
		}

		board, givens, err := g.removeClues(ctx, solution, target)
		if err != nil {
			return puzzle.Sudoku{}, errs.Mark(err, puzzle.ErrGeneration)
		}
		if givens < bestGivens {
			best = puzzle.Sudoku{Puzzle: board.String(), Solution: solution.String()}
			bestGivens = givens
		}
		if givens <= clues.Max {
			break
		}
	}

	return best, nil
}

// removeClues blanks cells in random order, skipping any removal that
// would allow a second solution. It stops at target givens.
func (g *Generator) removeClues(ctx context.Context, solution grid, target int) (grid, int, error) {
	board := solution
	givens := puzzle.GridCells
	for _, cell := range g.rng.Perm(puzzle.GridCells) {
		if givens <= target {
			break
		}
		if err := ctx.Err(); err != nil {
			return grid{}, 0, errs.Wrap(err, "remove clues")
		}

		kept := board[cell]
		board[cell] = 0
		if countSolutions(&board, 2) != 1 {
			board[cell] = kept
			continue
		}
		givens--
	}
	return board, givens, nil
}

// fill completes b in place with randomized digit order.
func (g *Generator) fill(b *grid, from int) bool {
	cell := nextEmpty(b, from)
	if cell < 0 {
		return true
	}

	for _, d := range g.rng.Perm(side) {
		digit := byte(d + 1)
		if !canPlace(b, cell, digit) {
			continue
		}
		b[cell] = digit
		if g.fill(b, cell+1) {
			return true
		}
		b[cell] = 0
	}
	return false
}

// countSolutions counts solutions of b up to limit. b is restored on return.
func countSolutions(b *grid, limit int) int {
	cell, candidates := mostConstrained(b)
	if cell < 0 {
		return 1
	}

	count := 0
	for digit := byte(1); digit <= side; digit++ {
		if candidates&(1<<digit) == 0 {
			continue
		}
		b[cell] = digit
		count += countSolutions(b, limit-count)
		b[cell] = 0
		if count >= limit {
			break
		}
	}
	return count
}

// mostConstrained returns the empty cell with the fewest candidates, or -1
// when the grid is full. A cell with zero candidates is returned as-is so
// the caller sees a dead end immediately.
func mostConstrained(b *grid) (int, uint16) {
	best, bestCount := -1, side+1
	var bestMask uint16
	for cell := 0; cell < puzzle.GridCells; cell++ {
		if b[cell] != 0 {
			continue
		}
		mask := candidateMask(b, cell)
		n := popcount(mask)
		if n < bestCount {
			best, bestCount, bestMask = cell, n, mask
			if n <= 1 {
				break
			}
		}
	}
	return best, bestMask
}

func candidateMask(b *grid, cell int) uint16 {
	var mask uint16
	for digit := byte(1); digit <= side; digit++ {
		if canPlace(b, cell, digit) {
			mask |= 1 << digit
		}
	}
	return mask
}

func canPlace(b *grid, cell int, digit byte) bool {
	row, col := cell/side, cell%side
	boxRow, boxCol := row/3*3, col/3*3
	for i := 0; i < side; i++ {
		if b[row*side+i] == digit || b[i*side+col] == digit {
			return false
		}
		if b[(boxRow+i/3)*side+boxCol+i%3] == digit {
			return false
		}
	}
	return true
}

func nextEmpty(b *grid, from int) int {
	for cell := from; cell < puzzle.GridCells; cell++ {
		if b[cell] == 0 {
			return cell
		}
	}
	return -1
}

func popcount(mask uint16) int {
	n := 0
	for ; mask != 0; mask &= mask - 1 {
		n++
	}
	return n
}

func (b grid) String() string {
	out := make([]byte, puzzle.GridCells)
	for i, v := range b {
		if v == 0 {
			out[i] = puzzle.BlankCell
			continue
		}
		out[i] = '0' + v
	}
	return string(out)
}
