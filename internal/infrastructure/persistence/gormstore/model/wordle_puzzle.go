package model

type WordlePuzzle struct {
	ID        uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Date      string `gorm:"column:date;type:text;not null;uniqueIndex"`
	Word      string `gorm:"column:word;type:text;not null"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (WordlePuzzle) TableName() string {
	return "wordle_puzzles"
}
