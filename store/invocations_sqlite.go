package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const invocationsSchema = `
CREATE TABLE IF NOT EXISTS invocations (
	id           TEXT PRIMARY KEY,
	piece        TEXT NOT NULL,
	action       TEXT NOT NULL,
	descriptor   TEXT NOT NULL DEFAULT '',
	operation    TEXT NOT NULL DEFAULT '',
	credential   TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	error_kind   TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	raw_request  TEXT NOT NULL DEFAULT '',
	raw_response TEXT NOT NULL DEFAULT '',
	started_at   INTEGER NOT NULL,
	duration_ns  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invocations_started_at ON invocations(started_at);
CREATE INDEX IF NOT EXISTS idx_invocations_operation ON invocations(operation);
`

// SQLiteInvocationStore persists invocation records in a SQLite database.
type SQLiteInvocationStore struct {
	dbPath string
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLiteInvocationStore opens (creating if needed) the database at dbPath
// and applies the schema. Use ":memory:" for a throwaway database.
func OpenSQLiteInvocationStore(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLiteInvocationStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
	}

	if _, err := db.ExecContext(ctx, invocationsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply invocations schema: %w", err)
	}

	logger.Info("SQLite invocation store opened", "path", dbPath)
	return &SQLiteInvocationStore{dbPath: dbPath, db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLiteInvocationStore) Close() error {
	s.logger.Info("SQLite invocation store closed", "path", s.dbPath)
	return s.db.Close()
}

func (s *SQLiteInvocationStore) Record(ctx context.Context, rec *InvocationRecord) error {
	rec.prepare()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocations (id, piece, action, descriptor, operation, credential, status,
			error_kind, error, raw_request, raw_response, started_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Piece, rec.Action, rec.Descriptor, rec.Operation, rec.Credential,
		string(rec.Status), rec.ErrorKind, rec.Error, rec.RawRequest, rec.RawResponse,
		rec.StartedAt.UnixNano(), int64(rec.Duration),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("invocation %s: %w", rec.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

const selectInvocation = `SELECT id, piece, action, descriptor, operation, credential, status,
	error_kind, error, raw_request, raw_response, started_at, duration_ns FROM invocations`

func (s *SQLiteInvocationStore) Get(ctx context.Context, id uuid.UUID) (*InvocationRecord, error) {
	row := s.db.QueryRowContext(ctx, selectInvocation+` WHERE id = ?`, id.String())
	rec, err := scanInvocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invocation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get invocation: %w", err)
	}
	return rec, nil
}

func (s *SQLiteInvocationStore) List(ctx context.Context, f InvocationFilter) ([]*InvocationRecord, error) {
	var where []string
	var args []any
	if f.Piece != "" {
		where = append(where, "piece = ?")
		args = append(args, f.Piece)
	}
	if f.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, f.Operation)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, f.Since.UnixNano())
	}

	query := selectInvocation
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.limit(), f.Pagination.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}
	defer rows.Close()

	out := []*InvocationRecord{}
	for rows.Next() {
		rec, err := scanInvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvocation(sc scanner) (*InvocationRecord, error) {
	var (
		rec        InvocationRecord
		id, status string
		startedAt  int64
		durationNS int64
	)
	err := sc.Scan(&id, &rec.Piece, &rec.Action, &rec.Descriptor, &rec.Operation, &rec.Credential,
		&status, &rec.ErrorKind, &rec.Error, &rec.RawRequest, &rec.RawResponse, &startedAt, &durationNS)
	if err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", id, err)
	}
	rec.ID = parsed
	rec.Status = InvocationStatus(status)
	rec.StartedAt = time.Unix(0, startedAt).UTC()
	rec.Duration = time.Duration(durationNS)
	return &rec, nil
}
