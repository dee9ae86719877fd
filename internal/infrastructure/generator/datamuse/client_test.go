package datamuse

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dailypuzzle/internal/domain/puzzle"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL + "/words", HTTPClient: server.Client()})
}

func TestFetchWordUppercasesFirstResult(t *testing.T) {
	queries := make(chan string, 1)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.RawQuery
		if r.URL.Path != "/words" {
			t.Errorf("path = %q, want /words", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"word":"crane","score":100},{"word":"slate","score":90}]`)
	})

	word, err := client.FetchWord(context.Background())
	if err != nil {
		t.Fatalf("FetchWord() error = %v", err)
	}
	if word != "CRANE" {
		t.Fatalf("FetchWord() = %q, want CRANE", word)
	}
	if gotQuery := <-queries; gotQuery != "max=1&sp=%3F%3F%3F%3F%3F" {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestFetchWordFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "no results", status: http.StatusOK, body: `[]`, wantErr: puzzle.ErrNoWord},
		{name: "server error", status: http.StatusBadGateway, body: `bad gateway`},
		{name: "malformed body", status: http.StatusOK, body: `{"word":`},
		{name: "not five letters", status: http.StatusOK, body: `[{"word":"a-b"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.FetchWord(context.Background())
			if !errors.Is(err, puzzle.ErrGeneration) {
				t.Fatalf("FetchWord() error = %v, want ErrGeneration", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("FetchWord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetchWordTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: baseURL, Timeout: time.Second})
	if _, err := client.FetchWord(context.Background()); !errors.Is(err, puzzle.ErrGeneration) {
		t.Fatalf("FetchWord() error = %v, want ErrGeneration", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{})
	if client.baseURL != DefaultBaseURL || client.pattern != DefaultPattern {
		t.Fatalf("NewClient() defaults = %q %q", client.baseURL, client.pattern)
	}
}
