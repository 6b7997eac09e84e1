package markov

import (
	"context"
	"database/sql"
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestDB creates a new SQLite database in a temporary directory and an
// SQLTable on top of it. It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *SQLTable) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	table, err := NewSQLTable(context.Background(), db)
	if err != nil {
		t.Fatalf("NewSQLTable() error = %v", err)
	}
	t.Cleanup(table.Close)

	return db, table
}

// learnString is a convenience helper that learns a single string into an
// in-memory table.
func learnString(t *testing.T, sampleSize int, text string) *PatternTable {
	t.Helper()
	l, err := NewLearner(sampleSize)
	if err != nil {
		t.Fatalf("NewLearner(%d) failed: %v", sampleSize, err)
	}
	table, err := l.Learn(context.Background(), strings.NewReader(text))
	if err != nil {
		t.Fatalf("Learn(%q) failed: %v", text, err)
	}
	return table
}

// tableContents flattens a table into context -> followers for comparisons.
func tableContents(t *testing.T, table Table) map[string]string {
	t.Helper()
	ctx := context.Background()
	keys, err := table.Contexts(ctx)
	if err != nil {
		t.Fatalf("Contexts() failed: %v", err)
	}
	contents := make(map[string]string, len(keys))
	for _, key := range keys {
		followers, err := table.Followers(ctx, key)
		if err != nil {
			t.Fatalf("Followers(%q) failed: %v", key, err)
		}
		contents[key] = string(followers)
	}
	return contents
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
