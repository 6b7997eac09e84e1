package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Archdale/RandomWriter/pkg/markov"
	"github.com/google/uuid"
)

// openScratchTable creates a SQLite-backed table in a database file that only
// lives for the duration of the run. The returned function closes the table
// and the database and removes the file.
func openScratchTable(ctx context.Context, dir string, logger *slog.Logger) (*markov.SQLTable, func(), error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "randomwriter-"+uuid.NewString()+".db")

	db, err := initDB(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open scratch database: %w", err)
	}
	remove := func() {
		_ = db.Close()
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove scratch database", "path", path, "error", err)
		}
	}

	if err = markov.SetupSchema(db); err != nil {
		remove()
		return nil, nil, fmt.Errorf("failed to set up scratch schema: %w", err)
	}

	table, err := markov.NewSQLTable(ctx, db)
	if err != nil {
		remove()
		return nil, nil, fmt.Errorf("failed to prepare scratch table: %w", err)
	}
	table.SetLogger(logger)

	logger.Debug("Scratch database opened", "path", path)

	return table, func() {
		table.Close()
		remove()
	}, nil
}
