// Package supabase stores puzzle records through the Supabase REST
// (PostgREST) interface, for deployments that only hold a project URL and
// API key rather than a direct Postgres connection.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"dailypuzzle/internal/domain/puzzle"
	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/ports"
)

const (
	sudokuTable = "sudoku_puzzles"
	wordleTable = "wordle_puzzles"
)

type Config struct {
	URL        string
	Key        string
	HTTPClient *http.Client
}

type Repository struct {
	baseURL string
	key     string
	client  *http.Client

	// plainInsert is set once PostgREST reports that the table has no unique
	// constraint on date, so on_conflict cannot be used.
	plainInsert atomic.Bool
}

// codeNoConflictTarget is the Postgres error PostgREST relays when
// on_conflict names columns without a unique or exclusion constraint.
const codeNoConflictTarget = "42P10"

var _ ports.PuzzleRepository = (*Repository)(nil)

func NewRepository(cfg Config) (*Repository, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("supabase url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, errs.Wrap(err, "parse supabase url")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("supabase key is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &Repository{
		baseURL: base + "/rest/v1",
		key:     cfg.Key,
		client:  client,
	}, nil
}

// CreatedAt is only read. Inserts leave it to the column default, and
// tables without the column decode it as empty.
type sudokuRow struct {
	Date      string `json:"date"`
	Puzzle    string `json:"puzzle"`
	Solution  string `json:"solution"`
	CreatedAt string `json:"created_at,omitempty"`
}

type wordleRow struct {
	Date      string `json:"date"`
	Word      string `json:"word"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (r *Repository) FindSudoku(ctx context.Context, date puzzle.Date) (ports.SudokuRecord, error) {
	var rows []sudokuRow
	if err := r.selectByDate(ctx, sudokuTable, date, &rows); err != nil {
		return ports.SudokuRecord{}, errs.Wrap(err, "query sudoku by date")
	}
	if len(rows) == 0 {
		return ports.SudokuRecord{}, ports.ErrPuzzleNotFound
	}
	return ports.SudokuRecord{
		Date:      puzzle.Date(rows[0].Date),
		Puzzle:    rows[0].Puzzle,
		Solution:  rows[0].Solution,
		CreatedAt: rows[0].CreatedAt,
	}, nil
}

func (r *Repository) InsertSudoku(ctx context.Context, record ports.SudokuRecord) (bool, error) {
	inserted, err := r.insert(ctx, sudokuTable, record.Date, sudokuRow{
		Date:     record.Date.String(),
		Puzzle:   record.Puzzle,
		Solution: record.Solution,
	})
	if err != nil {
		return false, errs.Wrap(err, "insert sudoku")
	}
	return inserted, nil
}

func (r *Repository) FindWordle(ctx context.Context, date puzzle.Date) (ports.WordleRecord, error) {
	var rows []wordleRow
	if err := r.selectByDate(ctx, wordleTable, date, &rows); err != nil {
		return ports.WordleRecord{}, errs.Wrap(err, "query wordle by date")
	}
	if len(rows) == 0 {
		return ports.WordleRecord{}, ports.ErrPuzzleNotFound
	}
	return ports.WordleRecord{
		Date:      puzzle.Date(rows[0].Date),
		Word:      rows[0].Word,
		CreatedAt: rows[0].CreatedAt,
	}, nil
}

func (r *Repository) InsertWordle(ctx context.Context, record ports.WordleRecord) (bool, error) {
	inserted, err := r.insert(ctx, wordleTable, record.Date, wordleRow{
		Date: record.Date.String(),
		Word: record.Word,
	})
	if err != nil {
		return false, errs.Wrap(err, "insert wordle")
	}
	return inserted, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	req, err := r.newRequest(ctx, http.MethodGet, r.baseURL+"/", nil)
	if err != nil {
		return err
	}
	if err := r.do(req, nil); err != nil {
		return errs.Wrap(err, "ping supabase")
	}
	return nil
}

func (r *Repository) selectByDate(ctx context.Context, table string, date puzzle.Date, out any) error {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("date", "eq."+date.String())
	query.Set("limit", "1")

	req, err := r.newRequest(ctx, http.MethodGet, r.baseURL+"/"+table+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	return r.do(req, out)
}

// insert writes row unless the date is already stored. With a unique
// constraint on date PostgREST skips duplicates itself and returns an empty
// representation. Without one it answers 42P10, and from then on the
// repository checks for the date before a plain insert.
func (r *Repository) insert(ctx context.Context, table string, date puzzle.Date, row any) (bool, error) {
	if !r.plainInsert.Load() {
		inserted, err := r.post(ctx, table, "?on_conflict=date", "resolution=ignore-duplicates,return=representation", row)
		if err == nil {
			return inserted, nil
		}
		var apiErr *apiError
		if !errors.As(err, &apiErr) || apiErr.Code != codeNoConflictTarget {
			return false, err
		}
		r.plainInsert.Store(true)
	}

	var existing []struct {
		Date string `json:"date"`
	}
	if err := r.selectByDate(ctx, table, date, &existing); err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	return r.post(ctx, table, "", "return=representation", row)
}

func (r *Repository) post(ctx context.Context, table string, query string, prefer string, row any) (bool, error) {
	body, err := json.Marshal(row)
	if err != nil {
		return false, errs.Wrap(err, "marshal row")
	}

	req, err := r.newRequest(ctx, http.MethodPost, r.baseURL+"/"+table+query, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", prefer)

	var written []json.RawMessage
	if err := r.do(req, &written); err != nil {
		return false, err
	}
	return len(written) > 0, nil
}

func (r *Repository) newRequest(ctx context.Context, method string, target string, body io.Reader) (*http.Request, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errs.Wrap(err, "build supabase request")
	}
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+r.key)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (r *Repository) do(req *http.Request, out any) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return errs.Wrap(err, "send supabase request")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(err, "read supabase response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(req, resp.StatusCode, payload)
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errs.Wrap(err, "decode supabase response")
	}
	return nil
}

// apiError is a non-2xx PostgREST response. Code carries the PostgREST or
// Postgres error code when the body has one.
type apiError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase %s %s: status %d: %s (%s)", e.Method, e.Path, e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("supabase %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func newAPIError(req *http.Request, status int, payload []byte) *apiError {
	apiErr := &apiError{Method: req.Method, Path: req.URL.Path, Status: status}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Message != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		return apiErr
	}
	text := strings.TrimSpace(string(payload))
	if len(text) > 200 {
		text = text[:200]
	}
	apiErr.Message = text
	return apiErr
}
