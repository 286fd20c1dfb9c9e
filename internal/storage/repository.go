package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// JournalEntry is one recorded mutation.
type JournalEntry struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	Operation  string    `json:"operation"`
	ItemID     int64     `json:"item_id"`
	ItemName   string    `json:"item_name"`
	Month      string    `json:"month"`
	DateTo     string    `json:"date_to"`
	OccurredAt time.Time `json:"occurred_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Record stores an entry. Redelivered events (same kind, operation, item
// and occurrence time) are ignored and reported as not inserted.
func (r *SQLiteRepository) Record(ctx context.Context, e JournalEntry) (bool, error) {
	if e.Kind == "" || e.Operation == "" {
		return false, errors.New("journal entry needs kind and operation")
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO mutation_journal
			(kind, operation, item_id, item_name, month, date_to, occurred_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.Operation, e.ItemID, e.ItemName, e.Month, e.DateTo,
		e.OccurredAt.UTC().Format(timeLayout), r.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("insert journal entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	slog.DebugContext(ctx, "Journal entry recorded",
		"kind", e.Kind,
		"operation", e.Operation,
		"item_id", e.ItemID,
		"inserted", n > 0)

	return n > 0, nil
}

// Recent returns up to limit entries, newest first.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, operation, item_id, item_name, month, date_to, occurred_at, recorded_at
		FROM mutation_journal
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var (
			e                    JournalEntry
			occurred, recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Operation, &e.ItemID, &e.ItemName,
			&e.Month, &e.DateTo, &occurred, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if e.OccurredAt, err = time.Parse(timeLayout, occurred); err != nil {
			return nil, fmt.Errorf("parse occurred_at: %w", err)
		}
		if e.RecordedAt, err = time.Parse(timeLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByKind returns how many entries each kind has.
func (r *SQLiteRepository) CountByKind(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM mutation_journal GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count journal: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[kind] = n
	}
	return out, rows.Err()
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
