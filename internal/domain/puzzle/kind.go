package puzzle

type Kind string

const (
	KindSudoku Kind = "sudoku"
	KindWordle Kind = "wordle"
)

// Kinds lists every kind in provisioning order.
var Kinds = []Kind{KindSudoku, KindWordle}

// CacheKey builds the KV key "<kind>:<date>". The date part is taken
// verbatim so lookups by arbitrary client keys stay pass-through.
func CacheKey(kind Kind, date string) string {
	return string(kind) + ":" + date
}
