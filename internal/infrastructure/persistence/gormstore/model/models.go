package model

// Records returns the per-date puzzle tables.
func Records() []any {
	return []any{
		&SudokuPuzzle{},
		&WordlePuzzle{},
	}
}
