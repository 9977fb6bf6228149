// Package history keeps a ledger of per-account run outcomes in SQLite.
package history

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"idoosync/pkg/contracts/domain"
)

// MemoryDSN opens a private in-memory ledger
const MemoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS run_outcomes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT     NOT NULL,
	account     TEXT     NOT NULL,
	status      TEXT     NOT NULL,
	failed_step TEXT     NOT NULL DEFAULT '',
	error       TEXT     NOT NULL DEFAULT '',
	sku_count   INTEGER  NOT NULL DEFAULT 0,
	row_count   INTEGER  NOT NULL DEFAULT 0,
	output_path TEXT     NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	duration_ns INTEGER  NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_account ON run_outcomes (account, started_at);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_run ON run_outcomes (run_id);
`

const outcomeColumns = `run_id, account, status, failed_step, error, sku_count, row_count, output_path, started_at, duration_ns`

// Store is the run ledger
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the ledger at path. MemoryDSN gives a throwaway
// ledger.
func Open(path string) (*Store, error) {
	dsn := path
	if path != MemoryDSN {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	// a single connection keeps an in-memory ledger alive and serialises
	// writers on disk
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one outcome
func (s *Store) Record(ctx context.Context, o domain.RunOutcome) error {
	const q = `INSERT INTO run_outcomes (` + outcomeColumns + `)
		VALUES (:run_id, :account, :status, :failed_step, :error, :sku_count, :row_count, :output_path, :started_at, :duration_ns)`
	if _, err := s.db.NamedExecContext(ctx, q, o); err != nil {
		return fmt.Errorf("record outcome for %s failed: %w", o.Account, err)
	}
	return nil
}

// Recent returns up to limit outcomes, newest first. An empty account
// matches every account.
func (s *Store) Recent(ctx context.Context, account string, limit int) ([]domain.RunOutcome, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + outcomeColumns + ` FROM run_outcomes`
	args := []any{}
	if account != "" {
		q += ` WHERE account = ?`
		args = append(args, account)
	}
	q += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var outcomes []domain.RunOutcome
	if err := s.db.SelectContext(ctx, &outcomes, q, args...); err != nil {
		return nil, fmt.Errorf("failed to load recent outcomes: %w", err)
	}
	return outcomes, nil
}

// Summary counts the outcomes of one run by status
func (s *Store) Summary(ctx context.Context, runID string) (map[domain.RunStatus]int, error) {
	var rows []struct {
		Status domain.RunStatus `db:"status"`
		Count  int              `db:"n"`
	}
	const q = `SELECT status, COUNT(*) AS n FROM run_outcomes WHERE run_id = ? GROUP BY status`
	if err := s.db.SelectContext(ctx, &rows, q, runID); err != nil {
		return nil, fmt.Errorf("failed to summarise run %s: %w", runID, err)
	}

	out := make(map[domain.RunStatus]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}
