package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/grumpified/researchwire/internal/domain"
	"github.com/grumpified/researchwire/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_date     TEXT NOT NULL,
    total_loaded INTEGER NOT NULL,
    kept         INTEGER NOT NULL,
    insights     INTEGER NOT NULL,
    enhanced     INTEGER NOT NULL,
    event_id     TEXT NOT NULL DEFAULT '',
    quorum_met   INTEGER NOT NULL,
    created_at   TEXT NOT NULL
)`

// SQLiteArchive persists run summaries into a local SQLite file.
type SQLiteArchive struct {
	db *sql.DB
}

var _ ports.RunArchive = (*SQLiteArchive)(nil)

// OpenSQLiteArchive opens (or creates) the archive database at path and
// ensures the schema exists.
func OpenSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return &SQLiteArchive{db: db}, nil
}

// Close releases the underlying database handle.
func (a *SQLiteArchive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SaveRun appends one run summary. Runs are append-only; a rerun of the
// same date produces a second row rather than an overwrite.
func (a *SQLiteArchive) SaveRun(ctx context.Context, run domain.RunSummary) error {
	if a.db == nil {
		return nil
	}

	query, args, err := sq.Insert("runs").
		Columns("run_date", "total_loaded", "kept", "insights", "enhanced", "event_id", "quorum_met", "created_at").
		Values(
			run.Date.Format("2006-01-02"),
			run.TotalLoaded,
			run.Kept,
			run.Insights,
			boolToInt(run.Enhanced),
			run.EventID,
			boolToInt(run.QuorumMet),
			run.CreatedAt.UTC().Format(time.RFC3339),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (a *SQLiteArchive) RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if a.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query, args, err := sq.Select("run_date", "total_loaded", "kept", "insights", "enhanced", "event_id", "quorum_met", "created_at").
		From("runs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var (
			run                 domain.RunSummary
			date, created       string
			enhanced, quorumMet int
		)
		if err := rows.Scan(&date, &run.TotalLoaded, &run.Kept, &run.Insights, &enhanced, &run.EventID, &quorumMet, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("parse run date %q: %w", date, err)
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		run.Enhanced = enhanced != 0
		run.QuorumMet = quorumMet != 0
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return runs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
