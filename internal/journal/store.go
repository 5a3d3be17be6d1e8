package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/crunch/internal/work"
)

//go:embed schema.sql
var schemaSQL string

// Store is the SQLite-backed journal.
type Store struct {
	db *sql.DB
}

// Run identifies one scheduler process.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Seed      uint64    `json:"seed"`
	// Catalog names the catalog source: "default" or a file path.
	Catalog string `json:"catalog"`
}

// RunSummary is a run with its completion count.
type RunSummary struct {
	Run
	Completed int `json:"completed"`
}

// Completion is one journaled history entry.
type Completion struct {
	RunID        string      `json:"run_id"`
	ItemID       work.ItemID `json:"item_id"`
	Kind         work.Kind   `json:"kind"`
	Variant      string      `json:"variant"`
	Contributors []string    `json:"contributors"`
	Tick         uint64      `json:"tick"`
}

// Open creates or opens a journal database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// StartRun inserts a run record. Starting the same run ID twice is a no-op.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, seed, catalog)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		int64(run.Seed),
		run.Catalog,
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// RecordCompletion inserts a completion. Uses ON CONFLICT DO NOTHING on
// (run_id, item_id): an item completes at most once per run.
func (s *Store) RecordCompletion(ctx context.Context, c Completion) error {
	contributors := c.Contributors
	if contributors == nil {
		contributors = []string{}
	}
	by, err := work.MarshalCanonical(contributors)
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO completions (run_id, item_id, kind, variant, contributors, tick)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, item_id) DO NOTHING
	`,
		c.RunID,
		int64(c.ItemID),
		string(c.Kind),
		c.Variant,
		string(by),
		int64(c.Tick),
	)
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	return nil
}

// Completions returns a run's completions, most recent first. A limit of
// zero or less returns all of them.
func (s *Store) Completions(ctx context.Context, runID string, limit int) ([]Completion, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, item_id, kind, variant, contributors, tick
		FROM completions
		WHERE run_id = ?
		ORDER BY tick DESC, item_id DESC
		LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	var out []Completion
	for rows.Next() {
		var (
			c      Completion
			itemID int64
			kind   string
			by     string
			tick   int64
		)
		if err := rows.Scan(&c.RunID, &itemID, &kind, &c.Variant, &by, &tick); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		if err := json.Unmarshal([]byte(by), &c.Contributors); err != nil {
			return nil, fmt.Errorf("decode contributors: %w", err)
		}
		c.ItemID = work.ItemID(itemID)
		c.Kind = work.Kind(kind)
		c.Tick = uint64(tick)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}
	return out, nil
}

// Runs returns every run, most recent first.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.seed, r.catalog, COUNT(c.item_id)
		FROM runs r
		LEFT JOIN completions c ON c.run_id = r.id
		GROUP BY r.seq
		ORDER BY r.seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r       RunSummary
			started string
			seed    int64
		)
		if err := rows.Scan(&r.ID, &started, &seed, &r.Catalog, &r.Completed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		r.Seed = uint64(seed)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (RunSummary, bool, error) {
	runs, err := s.Runs(ctx)
	if err != nil || len(runs) == 0 {
		return RunSummary{}, false, err
	}
	return runs[0], true, nil
}
