package ports

import (
	"context"

	"dailypuzzle/internal/domain/puzzle"
)

// SudokuGenerator creates a new puzzle and its solution at a target difficulty.
type SudokuGenerator interface {
	Generate(ctx context.Context, difficulty puzzle.Difficulty) (puzzle.Sudoku, error)
}

// WordSource supplies one uppercase five-letter wordle answer.
type WordSource interface {
	FetchWord(ctx context.Context) (string, error)
}
