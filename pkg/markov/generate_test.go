package markov

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"
)

// deadTable is a corrupted Table whose contexts have no followers.
type deadTable struct{}

func (deadTable) Observe(context.Context, string, rune) error { return nil }
func (deadTable) Flush(context.Context) error                 { return nil }
func (deadTable) Followers(context.Context, string) ([]rune, error) {
	return nil, nil
}
func (deadTable) Contexts(context.Context) ([]string, error) {
	return []string{"xy", "yz"}, nil
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	table := learnString(t, 2, "abcabcabc")
	g := NewGenerator(WithSeed(42))

	output, err := g.Generate(ctx, table, 5)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if n := utf8.RuneCountInString(output); n < 5 {
		t.Errorf("expected at least 5 runes, got %d (%q)", n, output)
	}
	if strings.Trim(output, "abc") != "" {
		t.Errorf("expected only 'a', 'b' and 'c', got %q", output)
	}
}

func TestGenerateFromHelloWorld(t *testing.T) {
	ctx := context.Background()
	table := learnString(t, 3, "hello world")

	for seed := uint64(0); seed < 20; seed++ {
		output, err := NewGenerator(WithSeed(seed)).Generate(ctx, table, 25)
		if err != nil {
			t.Fatalf("seed %d: Generate failed: %v", seed, err)
		}
		if n := utf8.RuneCountInString(output); n < 25 {
			t.Errorf("seed %d: expected at least 25 runes, got %d", seed, n)
		}
		for _, r := range output {
			if !strings.ContainsRune("hello world", r) {
				t.Errorf("seed %d: rune %q is not in the training text", seed, r)
			}
		}
	}
}

func TestGenerateFollowsTable(t *testing.T) {
	ctx := context.Background()
	// Every context of a cyclic text has followers, so the walk never resamples.
	table := learnString(t, 2, "abcabcabc")

	output, err := NewGenerator(WithSeed(7)).Generate(ctx, table, 50)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	runes := []rune(output)
	for i := 2; i < len(runes); i++ {
		key := string(runes[i-2 : i])
		if !strings.ContainsRune(string(table.Get(key)), runes[i]) {
			t.Fatalf("rune %q at %d was never observed after %q", runes[i], i, key)
		}
	}
	if len(runes) != 51 {
		t.Errorf("expected exactly 51 runes without resampling, got %d", len(runes))
	}
}

func TestGenerateResamplesDeadEnds(t *testing.T) {
	ctx := context.Background()
	// "cd" is never followed by anything, so the walk has to resample.
	table := learnString(t, 2, "abcd")

	for seed := uint64(0); seed < 20; seed++ {
		output, err := NewGenerator(WithSeed(seed)).Generate(ctx, table, 10)
		if err != nil {
			t.Fatalf("seed %d: Generate failed: %v", seed, err)
		}
		n := utf8.RuneCountInString(output)
		// One rune past the target, plus at most one adopted context.
		if n < 11 || n > 10+1+2 {
			t.Errorf("seed %d: expected between 11 and 13 runes, got %d (%q)", seed, n, output)
		}
		if strings.Trim(output, "abcd") != "" {
			t.Errorf("seed %d: unexpected runes in %q", seed, output)
		}
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	ctx := context.Background()
	table := learnString(t, 3, "the rain in spain stays mainly in the plain")

	first, err := NewGenerator(WithSeed(1234)).Generate(ctx, table, 80)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := NewGenerator(WithRand(rand.New(rand.NewPCG(1234, 1234)))).Generate(ctx, table, 80)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if first != second {
		t.Errorf("expected identical output for identical seeds, got %q and %q", first, second)
	}
}

func TestGenerateShortLength(t *testing.T) {
	ctx := context.Background()
	table := learnString(t, 4, "abcdefgh")

	output, err := NewGenerator(WithSeed(3)).Generate(ctx, table, 1)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if n := utf8.RuneCountInString(output); n < 4 {
		t.Errorf("expected at least one full context, got %q", output)
	}
}

func TestGenerateErrors(t *testing.T) {
	ctx := context.Background()
	g := NewGenerator(WithSeed(1))

	testCases := []struct {
		name     string
		table    Table
		length   int
		expected error
	}{
		{
			name:     "Empty table",
			table:    NewPatternTable(),
			length:   10,
			expected: ErrEmptyTable,
		},
		{
			name:     "Table from a stream of exactly the sample size",
			table:    learnString(t, 3, "abc"),
			length:   10,
			expected: ErrEmptyTable,
		},
		{
			name:     "Zero length",
			table:    learnString(t, 1, "abc"),
			length:   0,
			expected: ErrInvalidArgument,
		},
		{
			name:     "Negative length",
			table:    learnString(t, 1, "abc"),
			length:   -4,
			expected: ErrInvalidArgument,
		},
		{
			name:     "Contexts without followers",
			table:    deadTable{},
			length:   10,
			expected: ErrEmptyTable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			output, err := g.Generate(ctx, tc.table, tc.length)
			if !errors.Is(err, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, err)
			}
			if output != "" {
				t.Errorf("expected no output, got %q", output)
			}
		})
	}
}

func TestGenerateSQLTable(t *testing.T) {
	ctx := context.Background()
	text := "peter piper picked a peck of pickled peppers"
	_, sqlTable := setupTestDB(t)

	l, _ := NewLearner(2)
	if err := l.LearnInto(ctx, sqlTable, strings.NewReader(text)); err != nil {
		t.Fatalf("LearnInto failed: %v", err)
	}
	memTable := learnString(t, 2, text)

	fromSQL, err := NewGenerator(WithSeed(99)).Generate(ctx, sqlTable, 60)
	if err != nil {
		t.Fatalf("Generate from SQLTable failed: %v", err)
	}
	fromMem, err := NewGenerator(WithSeed(99)).Generate(ctx, memTable, 60)
	if err != nil {
		t.Fatalf("Generate from PatternTable failed: %v", err)
	}
	if fromSQL != fromMem {
		t.Errorf("expected both backends to generate the same phrase, got %q and %q", fromSQL, fromMem)
	}
}

func BenchmarkGenerate(b *testing.B) {
	corpus := createBenchmarkCorpus()
	ctx := context.Background()

	l, _ := NewLearner(4)
	table, err := l.Learn(ctx, strings.NewReader(corpus))
	if err != nil {
		b.Fatalf("Learn() setup for benchmark failed: %v", err)
	}
	g := NewGenerator(WithSeed(1))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, err := g.Generate(ctx, table, 500)
		b.SetBytes(int64(len(s)))
		if err != nil {
			b.Fatalf("Generate() failed: %v", err)
		}
	}
}
