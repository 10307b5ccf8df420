package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/talentcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Postgres persists journal entries to a single audit table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a Postgres-backed journal using the provided DSN (falls
// back to defaultDSN) and ensures the table exists.
func NewPostgres(dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureJournalTable(ctx, db); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (p *Postgres) DB() *sql.DB { return p.db }

func ensureJournalTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS mutation_journal (
		id TEXT PRIMARY KEY,
		entity TEXT NOT NULL,
		action TEXT NOT NULL,
		outcome TEXT NOT NULL,
		scope_id TEXT NOT NULL,
		record_id TEXT,
		before JSONB,
		after JSONB,
		error TEXT,
		occurred_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create journal table: %w", err)
	}
	return nil
}

// Append inserts the entry.
func (p *Postgres) Append(ctx context.Context, entry Entry) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO mutation_journal
		 (id, entity, action, outcome, scope_id, record_id, before, after, error, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.Entity, entry.Action, entry.Outcome, entry.ScopeID,
		nullable(entry.RecordID), nullableBytes(entry.Before), nullableBytes(entry.After),
		nullable(entry.Error), entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (p *Postgres) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond, value string) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ScopeID != "" {
		add("scope_id = $%d", filter.ScopeID)
	}
	if filter.Entity != "" {
		add("entity = $%d", string(filter.Entity))
	}
	if filter.Outcome != "" {
		add("outcome = $%d", string(filter.Outcome))
	}
	query := `SELECT id, entity, action, outcome, scope_id,
		COALESCE(record_id, ''), before, after, COALESCE(error, ''), occurred_at
		FROM mutation_journal`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Entity, &e.Action, &e.Outcome, &e.ScopeID,
			&e.RecordID, &e.Before, &e.After, &e.Error, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
