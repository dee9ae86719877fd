package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/domain/puzzle"
	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/usecase/provision"
)

const (
	invalidRequestText = "Invalid request"
	notFoundText       = "Not found"
	fetchErrorText     = "Error fetching puzzles"
)

type puzzleService interface {
	Provision(ctx context.Context) (provision.ProvisionResult, error)
	Lookup(ctx context.Context, key string) (provision.Puzzles, error)
	Ping(ctx context.Context) error
}

type puzzleHTTPHandler struct {
	svc puzzleService
}

type provisionResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type puzzlesResponse struct {
	Sudoku *puzzle.Sudoku `json:"sudoku"`
	Wordle *string        `json:"wordle"`
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func newPuzzleHandler(svc puzzleService) http.Handler {
	h := &puzzleHTTPHandler{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.HandleFunc("/", h.handleRoot)
	r.NotFound(h.handleRoot)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusBadRequest, invalidRequestText)
	})
	return r
}

// handleRoot serves both the manual trigger and the lookup. forceRun wins
// when both parameters are present.
func (h *puzzleHTTPHandler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeText(w, http.StatusBadRequest, invalidRequestText)
		return
	}

	query := r.URL.Query()
	switch {
	case query.Get("forceRun") == "true":
		h.handleForceRun(w, r)
	case query.Get("key") != "":
		h.handleLookup(w, r, query.Get("key"))
	default:
		writeText(w, http.StatusBadRequest, invalidRequestText)
	}
}

func (h *puzzleHTTPHandler) handleForceRun(w http.ResponseWriter, r *http.Request) {
	// A dropped client must not abort a half-written run.
	ctx := context.WithoutCancel(r.Context())

	result, err := h.svc.Provision(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, provisionResponse{Message: result.Message})
}

func (h *puzzleHTTPHandler) handleLookup(w http.ResponseWriter, r *http.Request, key string) {
	found, err := h.svc.Lookup(r.Context(), key)
	switch {
	case errors.Is(err, puzzle.ErrPuzzlesNotFound):
		writeText(w, http.StatusNotFound, notFoundText)
		return
	case err != nil:
		logging.Error(r.Context(), "lookup failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
		writeText(w, http.StatusInternalServerError, fetchErrorText)
		return
	}

	writeJSON(w, http.StatusOK, puzzlesResponse{
		Sudoku: found.Sudoku,
		Wordle: found.Wordle,
	})
}

func (h *puzzleHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		logging.Warn(r.Context(), "health check failed", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// accessLog puts the request id on the request's log context and writes one
// line per request once the response is done.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithAttrs(
			logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context())),
			slog.String("component", "http"),
		)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		defer func() {
			logging.Info(ctx, "request served",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(started)),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
