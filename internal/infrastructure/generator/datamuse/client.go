// Package datamuse fetches wordle answers from the Datamuse word API.
package datamuse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dailypuzzle/internal/domain/puzzle"
	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/ports"
)

const (
	DefaultBaseURL = "https://api.datamuse.com/words"
	DefaultPattern = "?????"
)

type Config struct {
	BaseURL    string
	Pattern    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	pattern string
	client  *http.Client
}

var _ ports.WordSource = (*Client)(nil)

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pattern := strings.TrimSpace(cfg.Pattern)
	if pattern == "" {
		pattern = DefaultPattern
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL: baseURL,
		pattern: pattern,
		client:  client,
	}
}

type wordResult struct {
	Word  string `json:"word"`
	Score int    `json:"score"`
}

// FetchWord asks for one word matching the spelling pattern and returns the
// first result uppercased. Every failure is marked puzzle.ErrGeneration.
func (c *Client) FetchWord(ctx context.Context) (string, error) {
	word, err := c.fetchWord(ctx)
	if err != nil {
		return "", errs.Mark(errs.Wrap(err, "fetch word from datamuse"), puzzle.ErrGeneration)
	}
	return word, nil
}

func (c *Client) fetchWord(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}

	query := url.Values{}
	query.Set("sp", c.pattern)
	query.Set("max", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", errs.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errs.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var results []wordResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", errs.Wrap(err, "decode response")
	}
	if len(results) == 0 {
		return "", puzzle.ErrNoWord
	}

	return puzzle.NormalizeWord(results[0].Word)
}
