package markov

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
)

// SetupSchema initializes the tables used by SQLTable in the provided
// database. It is idempotent and safe to call on an already-initialized
// database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaContexts = `
CREATE TABLE IF NOT EXISTS pattern_contexts (
    context_id INTEGER PRIMARY KEY,
    context_text TEXT NOT NULL UNIQUE
);
`
		schemaFollowers = `
CREATE TABLE IF NOT EXISTS pattern_followers (
    context_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    follower TEXT NOT NULL,
    PRIMARY KEY (context_id, position)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaContexts); err != nil {
		return fmt.Errorf("could not create contexts schema: %w", err)
	}

	if _, err = tx.Exec(schemaFollowers); err != nil {
		return fmt.Errorf("could not create followers schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// observation is a buffered context -> follower pair awaiting a flush.
type observation struct {
	key  string
	next rune
}

// SQLTable is a Table stored in a SQLite database. Observations are buffered
// in memory and written in batches, each batch inside a single transaction.
// Readers only see observations that have been flushed.
type SQLTable struct {
	db                 *sql.DB
	pending            []observation
	batchSize          int
	stmtGetOrInsertCtx *sql.Stmt
	stmtInsertFollower *sql.Stmt
	stmtGetFollowers   *sql.Stmt
	stmtGetContexts    *sql.Stmt
	stmtCountContexts  *sql.Stmt
	stmtCountFollowers *sql.Stmt
	logger             *slog.Logger
}

// NewSQLTable prepares every statement SQLTable needs. SetupSchema must have
// been called on db first.
func NewSQLTable(ctx context.Context, db *sql.DB) (*SQLTable, error) {
	// chainBatchSize determines how many observations are buffered before being written in one transaction.
	const chainBatchSize = 1000

	stmtGetOrInsertCtx, err := db.PrepareContext(ctx, `INSERT INTO pattern_contexts (context_text) VALUES (?) ON CONFLICT(context_text) DO UPDATE SET context_text=excluded.context_text RETURNING context_id;`)
	if err != nil {
		return nil, err
	}

	stmtInsertFollower, err := db.PrepareContext(ctx, `INSERT INTO pattern_followers (context_id, position, follower) VALUES (?, (SELECT COUNT(*) FROM pattern_followers WHERE context_id = ?), ?);`)
	if err != nil {
		return nil, err
	}

	stmtGetFollowers, err := db.PrepareContext(ctx, `SELECT f.follower FROM pattern_followers f JOIN pattern_contexts c ON c.context_id = f.context_id WHERE c.context_text = ? ORDER BY f.position;`)
	if err != nil {
		return nil, err
	}

	stmtGetContexts, err := db.PrepareContext(ctx, `SELECT context_text FROM pattern_contexts ORDER BY context_id;`)
	if err != nil {
		return nil, err
	}

	stmtCountContexts, err := db.PrepareContext(ctx, `SELECT COUNT(*) FROM pattern_contexts;`)
	if err != nil {
		return nil, err
	}

	stmtCountFollowers, err := db.PrepareContext(ctx, `SELECT COUNT(*) FROM pattern_followers;`)
	if err != nil {
		return nil, err
	}

	return &SQLTable{
		db:                 db,
		pending:            make([]observation, 0, chainBatchSize),
		batchSize:          chainBatchSize,
		stmtGetOrInsertCtx: stmtGetOrInsertCtx,
		stmtInsertFollower: stmtInsertFollower,
		stmtGetFollowers:   stmtGetFollowers,
		stmtGetContexts:    stmtGetContexts,
		stmtCountContexts:  stmtCountContexts,
		stmtCountFollowers: stmtCountFollowers,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the SQLTable. Pending
// observations that were never flushed are dropped. The database itself is
// left open.
func (t *SQLTable) Close() {
	_ = t.stmtGetOrInsertCtx.Close()
	_ = t.stmtInsertFollower.Close()
	_ = t.stmtGetFollowers.Close()
	_ = t.stmtGetContexts.Close()
	_ = t.stmtCountContexts.Close()
	_ = t.stmtCountFollowers.Close()
}

// SetLogger sets the logger for the SQLTable. By default, all logs are discarded.
func (t *SQLTable) SetLogger(logger *slog.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Observe buffers the observation and writes the buffer out once it is full.
func (t *SQLTable) Observe(ctx context.Context, key string, next rune) error {
	t.pending = append(t.pending, observation{key: key, next: next})
	if len(t.pending) >= t.batchSize {
		return t.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered observations in a single transaction.
func (t *SQLTable) Flush(ctx context.Context) error {
	if len(t.pending) == 0 {
		return nil
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// All transaction-specific statements will also be closed with this or the .Commit()
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtGetOrInsertCtx := tx.StmtContext(ctx, t.stmtGetOrInsertCtx)
	stmtInsertFollower := tx.StmtContext(ctx, t.stmtInsertFollower)

	contextCache := make(map[string]int64)
	for _, obs := range t.pending {
		contextID, ok := contextCache[obs.key]
		if !ok {
			if err = stmtGetOrInsertCtx.QueryRowContext(ctx, obs.key).Scan(&contextID); err != nil {
				return fmt.Errorf("failed to get or insert context %q: %w", obs.key, err)
			}
			contextCache[obs.key] = contextID
		}
		if _, err = stmtInsertFollower.ExecContext(ctx, contextID, contextID, string(obs.next)); err != nil {
			return fmt.Errorf("failed to insert follower (%q -> %q): %w", obs.key, obs.next, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit observations: %w", err)
	}

	t.logger.DebugContext(ctx, "Observations flushed",
		slog.Int("observations", len(t.pending)),
		slog.Int("contexts_touched", len(contextCache)),
	)
	t.pending = t.pending[:0]
	return nil
}

// Followers implements Table.
func (t *SQLTable) Followers(ctx context.Context, key string) ([]rune, error) {
	rows, err := t.stmtGetFollowers.QueryContext(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var followers []rune
	for rows.Next() {
		var text string
		if err = rows.Scan(&text); err != nil {
			return nil, err
		}
		for _, r := range text {
			followers = append(followers, r)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return followers, nil
}

// Contexts implements Table.
func (t *SQLTable) Contexts(ctx context.Context) ([]string, error) {
	rows, err := t.stmtGetContexts.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var keys []string
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Counts returns the number of stored contexts and follower observations.
func (t *SQLTable) Counts(ctx context.Context) (contexts, observations int, err error) {
	if err = t.stmtCountContexts.QueryRowContext(ctx).Scan(&contexts); err != nil {
		return 0, 0, err
	}
	if err = t.stmtCountFollowers.QueryRowContext(ctx).Scan(&observations); err != nil {
		return 0, 0, err
	}
	return contexts, observations, nil
}
