package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dailypuzzle/internal/domain/puzzle"
	"dailypuzzle/internal/usecase/provision"
)

type stubPuzzleService struct {
	provisionCalls int
	provisionCtx   context.Context
	provisionErr   error

	lookupKey string
	lookup    provision.Puzzles
	lookupErr error

	pingErr error
	panics  bool
}

func (s *stubPuzzleService) Provision(ctx context.Context) (provision.ProvisionResult, error) {
	s.provisionCalls++
	s.provisionCtx = ctx
	if s.provisionErr != nil {
		return provision.ProvisionResult{}, s.provisionErr
	}
	return provision.ProvisionResult{Message: provision.SuccessMessage}, nil
}

func (s *stubPuzzleService) Lookup(_ context.Context, key string) (provision.Puzzles, error) {
	if s.panics {
		panic("lookup exploded")
	}
	s.lookupKey = key
	return s.lookup, s.lookupErr
}

func (s *stubPuzzleService) Ping(context.Context) error {
	return s.pingErr
}

func serve(t *testing.T, svc *stubPuzzleService, method string, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	resp := httptest.NewRecorder()
	newPuzzleHandler(svc).ServeHTTP(resp, req)
	return resp
}

func decodeJSONBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode response body: %v; raw=%s", err, string(raw))
	}
	return body
}

func TestForceRunProvisions(t *testing.T) {
	t.Parallel()

	svc := &stubPuzzleService{}
	resp := serve(t, svc, http.MethodGet, "/?forceRun=true")

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body=%s", resp.Code, http.StatusOK, resp.Body.String())
	}
	if svc.provisionCalls != 1 {
		t.Fatalf("provision calls = %d, want 1", svc.provisionCalls)
	}
	body := decodeJSONBody(t, resp.Body.Bytes())
	if body["message"] != "Puzzles stored successfully" {
		t.Fatalf("message = %#v", body["message"])
	}
}

func TestForceRunSurvivesClientCancel(t *testing.T) {
	t.Parallel()

	svc := &stubPuzzleService{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet, "/?forceRun=true", nil).WithContext(ctx)
	resp := httptest.NewRecorder()
	newPuzzleHandler(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.Code, http.StatusOK)
	}
	if svc.provisionCtx == nil || svc.provisionCtx.Err() != nil {
		t.Fatalf("provision context cancelled with client")
	}
}

func TestForceRunFailure(t *testing.T) {
	t.Parallel()

	svc := &stubPuzzleService{provisionErr: errors.New("provision sudoku: Failed to generate Sudoku puzzle")}
	resp := serve(t, svc, http.MethodGet, "/?forceRun=true")

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", resp.Code, http.StatusInternalServerError)
	}
	body := decodeJSONBody(t, resp.Body.Bytes())
	if body["error"] != "provision sudoku: Failed to generate Sudoku puzzle" {
		t.Fatalf("error = %#v", body["error"])
	}
}

func TestForceRunTakesPrecedenceOverKey(t *testing.T) {
	t.Parallel()

	svc := &stubPuzzleService{}
	resp := serve(t, svc, http.MethodGet, "/?key=2026-10-15&forceRun=true")

	if resp.Code != http.StatusOK || svc.provisionCalls != 1 || svc.lookupKey != "" {
		t.Fatalf("status=%d provisionCalls=%d lookupKey=%q", resp.Code, svc.provisionCalls, svc.lookupKey)
	}
}

func TestLookupReturnsPuzzles(t *testing.T) {
	t.Parallel()

	word := "CRANE"
	svc := &stubPuzzleService{lookup: provision.Puzzles{
		Sudoku: &puzzle.Sudoku{Puzzle: "p", Solution: "s"},
		Wordle: &word,
	}}
	resp := serve(t, svc, http.MethodGet, "/?key=2026-10-15")

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body=%s", resp.Code, http.StatusOK, resp.Body.String())
	}
	if svc.lookupKey != "2026-10-15" {
		t.Fatalf("lookup key = %q", svc.lookupKey)
	}
	if strings.TrimSpace(resp.Body.String()) != `{"sudoku":{"puzzle":"p","solution":"s"},"wordle":"CRANE"}` {
		t.Fatalf("body = %s", resp.Body.String())
	}
}

func TestLookupMissingKindIsNull(t *testing.T) {
	t.Parallel()

	word := "CRANE"
	svc := &stubPuzzleService{lookup: provision.Puzzles{Wordle: &word}}
	resp := serve(t, svc, http.MethodGet, "/?key=2026-10-15")

	if strings.TrimSpace(resp.Body.String()) != `{"sudoku":null,"wordle":"CRANE"}` {
		t.Fatalf("body = %s", resp.Body.String())
	}
}

func TestLookupErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{name: "not found", err: puzzle.ErrPuzzlesNotFound, status: http.StatusNotFound, body: "Not found"},
		{name: "store read", err: puzzle.ErrStoreRead, status: http.StatusInternalServerError, body: "Error fetching puzzles"},
		{name: "decode", err: puzzle.ErrDecode, status: http.StatusInternalServerError, body: "Error fetching puzzles"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp := serve(t, &stubPuzzleService{lookupErr: tc.err}, http.MethodGet, "/?key=2026-10-15")
			if resp.Code != tc.status || resp.Body.String() != tc.body {
				t.Fatalf("status=%d body=%q, want %d %q", resp.Code, resp.Body.String(), tc.status, tc.body)
			}
			if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Fatalf("content-type = %q", ct)
			}
		})
	}
}

func TestInvalidRequests(t *testing.T) {
	t.Parallel()

	cases := []struct {
		method string
		target string
	}{
		{method: http.MethodGet, target: "/"},
		{method: http.MethodGet, target: "/?forceRun=false"},
		{method: http.MethodGet, target: "/?key="},
		{method: http.MethodPost, target: "/?forceRun=true"},
		{method: http.MethodDelete, target: "/?key=2026-10-15"},
		{method: http.MethodPost, target: "/healthz"},
	}

	for _, tc := range cases {
		svc := &stubPuzzleService{}
		resp := serve(t, svc, tc.method, tc.target)
		if resp.Code != http.StatusBadRequest || resp.Body.String() != "Invalid request" {
			t.Fatalf("%s %s: status=%d body=%q", tc.method, tc.target, resp.Code, resp.Body.String())
		}
		if svc.provisionCalls != 0 {
			t.Fatalf("%s %s: provision should not run", tc.method, tc.target)
		}
	}
}

func TestAnyPathServesRoot(t *testing.T) {
	t.Parallel()

	svc := &stubPuzzleService{lookupErr: puzzle.ErrPuzzlesNotFound}
	resp := serve(t, svc, http.MethodGet, "/puzzles?key=2026-10-15")
	if resp.Code != http.StatusNotFound || svc.lookupKey != "2026-10-15" {
		t.Fatalf("status=%d lookupKey=%q", resp.Code, svc.lookupKey)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	resp := serve(t, &stubPuzzleService{}, http.MethodGet, "/healthz")
	if resp.Code != http.StatusOK || decodeJSONBody(t, resp.Body.Bytes())["status"] != "ok" {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}

	resp = serve(t, &stubPuzzleService{pingErr: errors.New("kv down")}, http.MethodGet, "/healthz")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", resp.Code, http.StatusServiceUnavailable)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	t.Parallel()

	resp := serve(t, &stubPuzzleService{panics: true}, http.MethodGet, "/?key=2026-10-15")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", resp.Code, http.StatusInternalServerError)
	}
}
