package markov

import (
	"context"
)

// Table is the contract shared by the pattern table backends. A Learner
// writes observations into it and a Generator reads them back.
type Table interface {
	// Observe records that next followed the given context.
	Observe(ctx context.Context, key string, next rune) error
	// Flush makes every observation recorded so far visible to readers.
	Flush(ctx context.Context) error
	// Followers returns the runes observed after key, in observation order.
	// An unknown key yields a nil slice and a nil error.
	Followers(ctx context.Context, key string) ([]rune, error)
	// Contexts returns every known key in first-observation order.
	Contexts(ctx context.Context) ([]string, error)
}

// PatternTable is the in-memory Table. Keys keep the order in which they
// were first observed so that a seeded Generator produces repeatable output.
type PatternTable struct {
	patterns map[string][]rune
	keys     []string
}

// NewPatternTable returns an empty in-memory table.
func NewPatternTable() *PatternTable {
	return &PatternTable{patterns: make(map[string][]rune)}
}

// Observe appends next to the follower list of key, creating the entry on
// first sight.
func (t *PatternTable) Observe(_ context.Context, key string, next rune) error {
	t.Add(key, next)
	return nil
}

// Add is the error-free form of Observe.
func (t *PatternTable) Add(key string, next rune) {
	values, ok := t.patterns[key]
	if !ok {
		t.keys = append(t.keys, key)
	}
	t.patterns[key] = append(values, next)
}

// Flush is a no-op; in-memory observations are visible immediately.
func (t *PatternTable) Flush(context.Context) error {
	return nil
}

// Followers implements Table.
func (t *PatternTable) Followers(_ context.Context, key string) ([]rune, error) {
	return t.Get(key), nil
}

// Get returns the followers of key, or nil if key was never observed. The
// slice is owned by the table and must not be modified.
func (t *PatternTable) Get(key string) []rune {
	return t.patterns[key]
}

// Contexts implements Table. The returned slice is a copy.
func (t *PatternTable) Contexts(context.Context) ([]string, error) {
	return t.Keys(), nil
}

// Keys returns a copy of the known contexts in first-observation order.
func (t *PatternTable) Keys() []string {
	keys := make([]string, len(t.keys))
	copy(keys, t.keys)
	return keys
}

// Len returns the number of distinct contexts.
func (t *PatternTable) Len() int {
	return len(t.keys)
}

// Merge appends every observation of other to t, preserving other's key and
// follower order. Learning two streams separately and merging the results
// gives the same table as learning them together.
func (t *PatternTable) Merge(other *PatternTable) {
	for _, key := range other.keys {
		for _, next := range other.patterns[key] {
			t.Add(key, next)
		}
	}
}
