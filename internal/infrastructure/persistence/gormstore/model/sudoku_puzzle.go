package model

type SudokuPuzzle struct {
	ID        uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Date      string `gorm:"column:date;type:text;not null;uniqueIndex"`
	Puzzle    string `gorm:"column:puzzle;type:text;not null"`
	Solution  string `gorm:"column:solution;type:text;not null"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (SudokuPuzzle) TableName() string {
	return "sudoku_puzzles"
}
