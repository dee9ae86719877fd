package puzzle

import (
	"fmt"
	"strings"
)

const WordLength = 5

// NormalizeWord uppercases a candidate wordle answer and checks it is
// exactly five ASCII letters.
func NormalizeWord(raw string) (string, error) {
	word := strings.ToUpper(strings.TrimSpace(raw))
	if len(word) != WordLength {
		return "", fmt.Errorf("word %q is not %d letters", raw, WordLength)
	}
	for i := 0; i < len(word); i++ {
		if word[i] < 'A' || word[i] > 'Z' {
			return "", fmt.Errorf("word %q contains non-letter characters", raw)
		}
	}
	return word, nil
}
