package provision

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/domain/puzzle"
	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/ports"
)

const SuccessMessage = "Puzzles stored successfully"

type Outcome string

const (
	// OutcomeSkipped: a relational record already existed for the date.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeCreated: generated and written to both stores.
	OutcomeCreated Outcome = "created"
	// OutcomeReconciled: another writer inserted first; KV was rewritten from its row.
	OutcomeReconciled Outcome = "reconciled"
	OutcomeFailed     Outcome = "failed"
)

type Options struct {
	Difficulty   puzzle.Difficulty
	CacheTTL     time.Duration
	IsolateKinds bool
}

type Service struct {
	repo   ports.PuzzleRepository
	cache  ports.Cache
	sudoku ports.SudokuGenerator
	words  ports.WordSource
	opts   Options
	now    func() time.Time
}

// NewService wires the daily provisioning and lookup usecases.
func NewService(repo ports.PuzzleRepository, cache ports.Cache, sudoku ports.SudokuGenerator, words ports.WordSource, opts Options) *Service {
	if opts.Difficulty == "" {
		opts.Difficulty = puzzle.DifficultyEasy
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		sudoku: sudoku,
		words:  words,
		opts:   opts,
		now:    time.Now,
	}
}

type ProvisionResult struct {
	Message string
	Date    puzzle.Date
	Sudoku  Outcome
	Wordle  Outcome
}

type Puzzles struct {
	Sudoku *puzzle.Sudoku
	Wordle *string
}

type KindStatus struct {
	Kind      puzzle.Kind
	Stored    bool
	CreatedAt string
}

// Provision ensures today's sudoku and wordle exist in both stores.
//
// Kinds are handled in order. Unless IsolateKinds is set, the first failing
// kind aborts the run and later kinds are not attempted.
func (s *Service) Provision(ctx context.Context) (ProvisionResult, error) {
	if ctx == nil {
		return ProvisionResult{}, errors.New("context is required")
	}

	today := puzzle.DateOf(s.now())
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "usecase.provision"),
		slog.String("date", today.String()),
	)
	logging.Info(ctx, "provisioning started")

	result := ProvisionResult{Date: today}
	steps := []struct {
		kind    puzzle.Kind
		run     func(context.Context, puzzle.Date) (Outcome, error)
		outcome *Outcome
	}{
		{kind: puzzle.KindSudoku, run: s.provisionSudoku, outcome: &result.Sudoku},
		{kind: puzzle.KindWordle, run: s.provisionWordle, outcome: &result.Wordle},
	}

	var failures []error
	for _, step := range steps {
		kindCtx := logging.WithAttrs(ctx, slog.String("kind", string(step.kind)))

		outcome, err := step.run(kindCtx, today)
		if err != nil {
			*step.outcome = OutcomeFailed
			err = errs.Wrapf(err, "provision %s", step.kind)
			logging.Error(kindCtx, "provisioning failed", slog.Any("err", errs.Loggable(err)))
			if !s.opts.IsolateKinds {
				return result, err
			}
			failures = append(failures, err)
			continue
		}
		*step.outcome = outcome
		logging.Info(kindCtx, "puzzle provisioned", slog.String("outcome", string(outcome)))
	}

	if len(failures) > 0 {
		return result, errors.Join(failures...)
	}

	result.Message = SuccessMessage
	logging.Info(ctx, SuccessMessage)
	return result, nil
}

func (s *Service) provisionSudoku(ctx context.Context, date puzzle.Date) (Outcome, error) {
	_, err := s.repo.FindSudoku(ctx, date)
	switch {
	case err == nil:
		logging.Info(ctx, "sudoku for date already exists, skipping insert")
		return OutcomeSkipped, nil
	case !errors.Is(err, ports.ErrPuzzleNotFound):
		return OutcomeFailed, errs.Mark(errs.Wrap(err, "check existing sudoku"), puzzle.ErrStoreRead)
	}

	generated, err := s.sudoku.Generate(ctx, s.opts.Difficulty)
	if err != nil {
		return OutcomeFailed, errs.Mark(errs.Wrap(err, "generate sudoku"), puzzle.ErrGeneration)
	}

	if err := s.putSudoku(ctx, date, generated); err != nil {
		return OutcomeFailed, err
	}

	inserted, err := s.repo.InsertSudoku(ctx, ports.SudokuRecord{
		Date:     date,
		Puzzle:   generated.Puzzle,
		Solution: generated.Solution,
	})
	if err != nil {
		return OutcomeFailed, errs.Mark(errs.Wrap(err, "insert sudoku record"), puzzle.ErrStoreWrite)
	}
	if inserted {
		return OutcomeCreated, nil
	}

	logging.Warn(ctx, "sudoku inserted concurrently, rewriting kv from stored record")
	winner, err := s.repo.FindSudoku(ctx, date)
	if err != nil {
		return OutcomeFailed, errs.Mark(errs.Wrap(err, "read concurrent sudoku"), puzzle.ErrStoreRead)
	}
	if err := s.putSudoku(ctx, date, puzzle.Sudoku{Puzzle: winner.Puzzle, Solution: winner.Solution}); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeReconciled, nil
}

func (s *Service) provisionWordle(ctx context.Context, date puzzle.Date) (Outcome, error) {
	_, err := s.repo.FindWordle(ctx, date)
	switch {
	case err == nil:
		logging.Info(ctx, "wordle for date already exists, skipping insert")
		return OutcomeSkipped, nil
	case !errors.Is(err, ports.ErrPuzzleNotFound):
		return OutcomeFailed, errs.Mark(errs.Wrap(err, "check existing wordle"), puzzle.ErrStoreRead)
	}

	word, err := s.words.FetchWord(ctx)
	if err != nil {
		return OutcomeFailed, errs.Mark(errs.Wrap(err, "generate wordle"), puzzle.ErrGeneration)
	}

	if err := s.putWordle(ctx, date, word); err != nil {
		return OutcomeFailed, err
	}

	inserted, err := s.repo.InsertWordle(ctx, ports.WordleRecord{Date: date, Word: word})
	if err != nil {
		return OutcomeFailed, errs.Mark(errs.Wrap(err, "insert wordle record"), puzzle.ErrStoreWrite)
	}
	if inserted {
		return OutcomeCreated, nil
	}

	logging.Warn(ctx, "wordle inserted concurrently, rewriting kv from stored record")
	winner, err := s.repo.FindWordle(ctx, date)
	if err != nil {
		return OutcomeFailed, errs.Mark(errs.Wrap(err, "read concurrent wordle"), puzzle.ErrStoreRead)
	}
	if err := s.putWordle(ctx, date, winner.Word); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeReconciled, nil
}

func (s *Service) putSudoku(ctx context.Context, date puzzle.Date, value puzzle.Sudoku) error {
	encoded, err := puzzle.EncodeSudoku(value)
	if err != nil {
		return errs.Mark(errs.Wrap(err, "encode sudoku"), puzzle.ErrStoreWrite)
	}
	if err := s.cache.Set(ctx, puzzle.CacheKey(puzzle.KindSudoku, date.String()), encoded, s.opts.CacheTTL); err != nil {
		return errs.Mark(errs.Wrap(err, "store sudoku in kv"), puzzle.ErrStoreWrite)
	}
	return nil
}

func (s *Service) putWordle(ctx context.Context, date puzzle.Date, word string) error {
	if err := s.cache.Set(ctx, puzzle.CacheKey(puzzle.KindWordle, date.String()), word, s.opts.CacheTTL); err != nil {
		return errs.Mark(errs.Wrap(err, "store wordle in kv"), puzzle.ErrStoreWrite)
	}
	return nil
}

// Lookup reads both kinds for a date key from the KV store. The key is used
// verbatim; an unknown or malformed key simply finds nothing.
func (s *Service) Lookup(ctx context.Context, key string) (Puzzles, error) {
	if ctx == nil {
		return Puzzles{}, errors.New("context is required")
	}

	sudokuRaw, sudokuFound, err := s.cache.Get(ctx, puzzle.CacheKey(puzzle.KindSudoku, key))
	if err != nil {
		return Puzzles{}, errs.Mark(errs.Wrap(err, "read sudoku from kv"), puzzle.ErrStoreRead)
	}
	wordleRaw, wordleFound, err := s.cache.Get(ctx, puzzle.CacheKey(puzzle.KindWordle, key))
	if err != nil {
		return Puzzles{}, errs.Mark(errs.Wrap(err, "read wordle from kv"), puzzle.ErrStoreRead)
	}

	if !sudokuFound && !wordleFound {
		return Puzzles{}, puzzle.ErrPuzzlesNotFound
	}

	var out Puzzles
	if !isNullValue(sudokuRaw) {
		decoded, err := puzzle.DecodeSudoku(sudokuRaw)
		if err != nil {
			return Puzzles{}, errs.Wrapf(err, "decode sudoku %q", key)
		}
		out.Sudoku = &decoded
	}
	if !isNullValue(wordleRaw) {
		word := wordleRaw
		out.Wordle = &word
	}
	return out, nil
}

// isNullValue reports a stored value that stands for "nothing": an empty
// string or a JSON null.
func isNullValue(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || trimmed == "null"
}

// Status reports which kinds have a durable record for date.
func (s *Service) Status(ctx context.Context, date puzzle.Date) ([]KindStatus, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	statuses := make([]KindStatus, 0, len(puzzle.Kinds))
	for _, kind := range puzzle.Kinds {
		status := KindStatus{Kind: kind}

		var err error
		switch kind {
		case puzzle.KindSudoku:
			var record ports.SudokuRecord
			record, err = s.repo.FindSudoku(ctx, date)
			status.CreatedAt = record.CreatedAt
		case puzzle.KindWordle:
			var record ports.WordleRecord
			record, err = s.repo.FindWordle(ctx, date)
			status.CreatedAt = record.CreatedAt
		}
		switch {
		case err == nil:
			status.Stored = true
		case !errors.Is(err, ports.ErrPuzzleNotFound):
			return nil, errs.Mark(errs.Wrapf(err, "check %s record", kind), puzzle.ErrStoreRead)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Ping checks both stores are reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return errs.Wrap(err, "ping relational store")
	}
	if err := s.cache.Ping(ctx); err != nil {
		return errs.Wrap(err, "ping kv store")
	}
	return nil
}
