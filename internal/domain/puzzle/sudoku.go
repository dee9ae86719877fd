package puzzle

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	GridCells  = 81
	BlankCell  = '-'
	SudokuSide = 9
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// ClueRange is the inclusive number of given cells for a difficulty.
type ClueRange struct {
	Min int
	Max int
}

var clueRanges = map[Difficulty]ClueRange{
	DifficultyEasy:   {Min: 38, Max: 44},
	DifficultyMedium: {Min: 32, Max: 37},
	DifficultyHard:   {Min: 28, Max: 31},
	DifficultyExpert: {Min: 24, Max: 27},
}

func ParseDifficulty(raw string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := clueRanges[d]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, raw)
	}
	return d, nil
}

func (d Difficulty) Clues() (ClueRange, error) {
	r, ok := clueRanges[d]
	if !ok {
		return ClueRange{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, string(d))
	}
	return r, nil
}

// Sudoku is an 81-cell grid in row-major order. Blanks in Puzzle are '-'.
type Sudoku struct {
	Puzzle   string `json:"puzzle"`
	Solution string `json:"solution"`
}

// EncodeSudoku renders the KV value for a sudoku entry.
func EncodeSudoku(s Sudoku) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeSudoku parses a KV value written by EncodeSudoku. A JSON null or an
// object without either grid is not a sudoku.
func DecodeSudoku(raw string) (Sudoku, error) {
	var s *Sudoku
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Sudoku{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if s == nil || (s.Puzzle == "" && s.Solution == "") {
		return Sudoku{}, fmt.Errorf("%w: empty sudoku value %q", ErrDecode, raw)
	}
	return *s, nil
}

// Givens counts non-blank cells of the puzzle grid.
func (s Sudoku) Givens() int {
	n := 0
	for i := 0; i < len(s.Puzzle); i++ {
		if s.Puzzle[i] != BlankCell {
			n++
		}
	}
	return n
}
