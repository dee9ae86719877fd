package puzzle

import "errors"

var (
	ErrGeneration = errors.New("puzzle generation failed")
	ErrStoreWrite = errors.New("puzzle store write failed")
	ErrStoreRead  = errors.New("puzzle store read failed")
	ErrDecode     = errors.New("cached puzzle is malformed")

	ErrPuzzlesNotFound   = errors.New("no puzzles found")
	ErrNoWord            = errors.New("no word found")
	ErrInvalidDate       = errors.New("invalid puzzle date")
	ErrUnknownDifficulty = errors.New("unknown sudoku difficulty")
)
