package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dailypuzzle/internal/domain/puzzle"
	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/infrastructure/persistence/gormstore/model"
	"dailypuzzle/internal/ports"
)

type PuzzleRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.PuzzleRepository = (*PuzzleRepository)(nil)

func NewPuzzleRepository(db *gorm.DB) *PuzzleRepository {
	return &PuzzleRepository{
		db:  db,
		now: time.Now,
	}
}

func (r *PuzzleRepository) dbWithContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	return r.db.WithContext(ctx), nil
}

func (r *PuzzleRepository) FindSudoku(ctx context.Context, date puzzle.Date) (ports.SudokuRecord, error) {
	db, err := r.dbWithContext(ctx)
	if err != nil {
		return ports.SudokuRecord{}, err
	}

	var row model.SudokuPuzzle
	if err := db.Where("date = ?", date.String()).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.SudokuRecord{}, ports.ErrPuzzleNotFound
		}
		return ports.SudokuRecord{}, errs.Wrap(err, "query sudoku by date")
	}

	return ports.SudokuRecord{
		Date:      puzzle.Date(row.Date),
		Puzzle:    row.Puzzle,
		Solution:  row.Solution,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *PuzzleRepository) InsertSudoku(ctx context.Context, record ports.SudokuRecord) (bool, error) {
	db, err := r.dbWithContext(ctx)
	if err != nil {
		return false, err
	}

	row := model.SudokuPuzzle{
		Date:      record.Date.String(),
		Puzzle:    record.Puzzle,
		Solution:  record.Solution,
		CreatedAt: r.createdAt(record.CreatedAt),
	}
	result := db.Clauses(onDateConflictDoNothing()).Create(&row)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "insert sudoku")
	}
	return result.RowsAffected > 0, nil
}

func (r *PuzzleRepository) FindWordle(ctx context.Context, date puzzle.Date) (ports.WordleRecord, error) {
	db, err := r.dbWithContext(ctx)
	if err != nil {
		return ports.WordleRecord{}, err
	}

	var row model.WordlePuzzle
	if err := db.Where("date = ?", date.String()).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.WordleRecord{}, ports.ErrPuzzleNotFound
		}
		return ports.WordleRecord{}, errs.Wrap(err, "query wordle by date")
	}

	return ports.WordleRecord{
		Date:      puzzle.Date(row.Date),
		Word:      row.Word,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *PuzzleRepository) InsertWordle(ctx context.Context, record ports.WordleRecord) (bool, error) {
	db, err := r.dbWithContext(ctx)
	if err != nil {
		return false, err
	}

	row := model.WordlePuzzle{
		Date:      record.Date.String(),
		Word:      record.Word,
		CreatedAt: r.createdAt(record.CreatedAt),
	}
	result := db.Clauses(onDateConflictDoNothing()).Create(&row)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "insert wordle")
	}
	return result.RowsAffected > 0, nil
}

func (r *PuzzleRepository) Ping(ctx context.Context) error {
	db, err := r.dbWithContext(ctx)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errs.Wrap(err, "ping database")
	}
	return nil
}

func (r *PuzzleRepository) createdAt(given string) string {
	if given != "" {
		return given
	}
	return r.now().UTC().Format(time.RFC3339Nano)
}

func onDateConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoNothing: true,
	}
}
