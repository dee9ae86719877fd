package ports

import (
	"context"
	"errors"

	"dailypuzzle/internal/domain/puzzle"
)

var ErrPuzzleNotFound = errors.New("puzzle record not found")

type SudokuRecord struct {
	Date      puzzle.Date
	Puzzle    string
	Solution  string
	CreatedAt string
}

type WordleRecord struct {
	Date      puzzle.Date
	Word      string
	CreatedAt string
}

// PuzzleRepository is the durable, one-row-per-date record of generated puzzles.
//
// Insert methods must not create a second row for a date that already has
// one; they report inserted=false instead of failing.
type PuzzleRepository interface {
	FindSudoku(ctx context.Context, date puzzle.Date) (SudokuRecord, error)
	InsertSudoku(ctx context.Context, record SudokuRecord) (inserted bool, err error)
	FindWordle(ctx context.Context, date puzzle.Date) (WordleRecord, error)
	InsertWordle(ctx context.Context, record WordleRecord) (inserted bool, err error)
	Ping(ctx context.Context) error
}
