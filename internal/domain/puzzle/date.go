package puzzle

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical YYYY-MM-DD form used for both store keys.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC, the natural key of every puzzle.
type Date string

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(DateLayout))
}

func ParseDate(raw string) (Date, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return DateOf(parsed), nil
}

func (d Date) String() string {
	return string(d)
}
