package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"dailypuzzle/internal/ports"
)

// fakePostgREST keeps one row per (table, date), mimicking the unique index
// and a created_at column default. With legacy set it behaves like tables
// created without either: on_conflict fails with 42P10 and a created_at field
// in the body fails with PGRST204.
type fakePostgREST struct {
	mu     sync.Mutex
	key    string
	tables map[string]map[string]map[string]any
	fail   bool
	legacy bool

	conflictPosts int
	plainPosts    int
}

func newFakePostgREST(key string) *fakePostgREST {
	return &fakePostgREST{
		key: key,
		tables: map[string]map[string]map[string]any{
			sudokuTable: {},
			wordleTable: {},
		},
	}
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("apikey") != f.key || r.Header.Get("Authorization") != "Bearer "+f.key {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Invalid API key"}`)
		return
	}
	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"database unavailable"}`)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	if path == "" {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{}`)
		return
	}
	table, ok := f.tables[path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		date := strings.TrimPrefix(r.URL.Query().Get("date"), "eq.")
		rows := []map[string]any{}
		if row, ok := table[date]; ok {
			rows = append(rows, row)
		}
		_ = json.NewEncoder(w).Encode(rows)
	case http.MethodPost:
		var row map[string]any
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, ok := row["created_at"]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"code":"PGRST204","message":"Could not find the 'created_at' column in the schema cache"}`)
			return
		}

		date, _ := row["date"].(string)
		if r.URL.Query().Has("on_conflict") {
			f.conflictPosts++
			if f.legacy {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"code":"42P10","message":"there is no unique or exclusion constraint matching the ON CONFLICT specification"}`)
				return
			}
			if r.URL.Query().Get("on_conflict") != "date" || !strings.Contains(r.Header.Get("Prefer"), "ignore-duplicates") {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if _, exists := table[date]; exists {
				w.WriteHeader(http.StatusCreated)
				_, _ = io.WriteString(w, `[]`)
				return
			}
		} else {
			f.plainPosts++
			if _, exists := table[date]; exists && !f.legacy {
				w.WriteHeader(http.StatusConflict)
				_, _ = io.WriteString(w, `{"code":"23505","message":"duplicate key value violates unique constraint"}`)
				return
			}
		}

		if !f.legacy {
			row["created_at"] = "2026-10-15T00:05:00Z"
		}
		table[date] = row
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]map[string]any{row})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func setupRepository(t *testing.T) (*Repository, *fakePostgREST) {
	t.Helper()

	fake := newFakePostgREST("service-key")
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	repo, err := NewRepository(Config{URL: server.URL + "/", Key: "service-key", HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	return repo, fake
}

func TestNewRepositoryRequiresCredentials(t *testing.T) {
	if _, err := NewRepository(Config{Key: "k"}); err == nil {
		t.Fatalf("NewRepository() expected error for empty url")
	}
	if _, err := NewRepository(Config{URL: "https://example.supabase.co"}); err == nil {
		t.Fatalf("NewRepository() expected error for empty key")
	}
}

func TestSudokuFindInsert(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	if _, err := repo.FindSudoku(ctx, "2026-10-15"); !errors.Is(err, ports.ErrPuzzleNotFound) {
		t.Fatalf("FindSudoku() error = %v, want ErrPuzzleNotFound", err)
	}

	inserted, err := repo.InsertSudoku(ctx, ports.SudokuRecord{Date: "2026-10-15", Puzzle: "p1", Solution: "s1"})
	if err != nil || !inserted {
		t.Fatalf("InsertSudoku() inserted=%v error=%v", inserted, err)
	}
	inserted, err = repo.InsertSudoku(ctx, ports.SudokuRecord{Date: "2026-10-15", Puzzle: "p2", Solution: "s2"})
	if err != nil || inserted {
		t.Fatalf("InsertSudoku(duplicate) inserted=%v error=%v", inserted, err)
	}

	got, err := repo.FindSudoku(ctx, "2026-10-15")
	if err != nil {
		t.Fatalf("FindSudoku() error = %v", err)
	}
	if got.Puzzle != "p1" || got.Solution != "s1" {
		t.Fatalf("FindSudoku() = %#v", got)
	}
}

func TestWordleFindInsert(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	inserted, err := repo.InsertWordle(ctx, ports.WordleRecord{Date: "2026-10-15", Word: "CRANE"})
	if err != nil || !inserted {
		t.Fatalf("InsertWordle() inserted=%v error=%v", inserted, err)
	}

	got, err := repo.FindWordle(ctx, "2026-10-15")
	if err != nil {
		t.Fatalf("FindWordle() error = %v", err)
	}
	if got.Word != "CRANE" || got.CreatedAt == "" {
		t.Fatalf("FindWordle() = %#v", got)
	}
}

func TestInsertDoesNotSendCreatedAt(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	inserted, err := repo.InsertSudoku(ctx, ports.SudokuRecord{
		Date:      "2026-10-15",
		Puzzle:    "p1",
		Solution:  "s1",
		CreatedAt: "2026-10-15T00:00:00Z",
	})
	if err != nil || !inserted {
		t.Fatalf("InsertSudoku() inserted=%v error=%v", inserted, err)
	}
	inserted, err = repo.InsertWordle(ctx, ports.WordleRecord{Date: "2026-10-15", Word: "CRANE", CreatedAt: "2026-10-15T00:00:00Z"})
	if err != nil || !inserted {
		t.Fatalf("InsertWordle() inserted=%v error=%v", inserted, err)
	}
}

func TestInsertFallsBackWithoutUniqueConstraint(t *testing.T) {
	repo, fake := setupRepository(t)
	fake.mu.Lock()
	fake.legacy = true
	fake.mu.Unlock()
	ctx := context.Background()

	inserted, err := repo.InsertSudoku(ctx, ports.SudokuRecord{Date: "2026-10-15", Puzzle: "p1", Solution: "s1"})
	if err != nil || !inserted {
		t.Fatalf("InsertSudoku() inserted=%v error=%v", inserted, err)
	}
	inserted, err = repo.InsertSudoku(ctx, ports.SudokuRecord{Date: "2026-10-15", Puzzle: "p2", Solution: "s2"})
	if err != nil || inserted {
		t.Fatalf("InsertSudoku(duplicate) inserted=%v error=%v", inserted, err)
	}
	inserted, err = repo.InsertWordle(ctx, ports.WordleRecord{Date: "2026-10-15", Word: "CRANE"})
	if err != nil || !inserted {
		t.Fatalf("InsertWordle() inserted=%v error=%v", inserted, err)
	}

	got, err := repo.FindSudoku(ctx, "2026-10-15")
	if err != nil {
		t.Fatalf("FindSudoku() error = %v", err)
	}
	if got.Puzzle != "p1" || got.CreatedAt != "" {
		t.Fatalf("FindSudoku() = %#v", got)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.conflictPosts != 1 {
		t.Fatalf("on_conflict posts = %d, want 1 before falling back", fake.conflictPosts)
	}
	if fake.plainPosts != 2 {
		t.Fatalf("plain posts = %d, want 2", fake.plainPosts)
	}
}

func TestInsertKeepsOtherClientErrors(t *testing.T) {
	repo, fake := setupRepository(t)
	fake.mu.Lock()
	fake.fail = true
	fake.mu.Unlock()

	_, err := repo.InsertWordle(context.Background(), ports.WordleRecord{Date: "2026-10-15", Word: "CRANE"})
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("InsertWordle() error = %v, want a 500 apiError", err)
	}
	if repo.plainInsert.Load() {
		t.Fatalf("plain insert mode switched on by an unrelated failure")
	}
}

func TestServerErrorsCarryMessage(t *testing.T) {
	repo, fake := setupRepository(t)
	fake.mu.Lock()
	fake.fail = true
	fake.mu.Unlock()

	_, err := repo.FindWordle(context.Background(), "2026-10-15")
	if err == nil {
		t.Fatalf("FindWordle() expected error")
	}
	if errors.Is(err, ports.ErrPuzzleNotFound) {
		t.Fatalf("FindWordle() error should not be not-found: %v", err)
	}
	if !strings.Contains(err.Error(), "database unavailable") {
		t.Fatalf("FindWordle() error = %v, want server message", err)
	}
}

func TestPing(t *testing.T) {
	repo, _ := setupRepository(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestWrongKeyIsRejected(t *testing.T) {
	fake := newFakePostgREST("service-key")
	server := httptest.NewServer(fake)
	defer server.Close()

	repo, err := NewRepository(Config{URL: server.URL, Key: "other", HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	if err := repo.Ping(context.Background()); err == nil || !strings.Contains(err.Error(), "Invalid API key") {
		t.Fatalf("Ping() error = %v, want auth failure", err)
	}
}
