package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// ErrNotOpen is returned when the store is used before Open.
var ErrNotOpen = errors.New("database not opened")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite history store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// NewSQLiteStoreWithDB wraps an existing connection. The schema is assumed
// to be migrated.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open opens a connection to the SQLite database and runs pending
// migrations. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return s.Migrate()
}

// Path returns the database path passed to Open.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// --- Session operations ---

// CreateSession starts a new session for the given source.
func (s *SQLiteStore) CreateSession(ctx context.Context, source string) (*Session, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	sess := &Session{
		ID:        generateID(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, source, created_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Source, sess.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// --- Evaluation operations ---

// RecordEvaluation stores eval, assigning its ID and timestamp when unset.
func (s *SQLiteStore) RecordEvaluation(ctx context.Context, eval *Evaluation) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if eval.ID == "" {
		eval.ID = generateID()
	}
	if eval.CreatedAt.IsZero() {
		eval.CreatedAt = time.Now().UTC()
	}

	var errMsg sql.NullString
	if eval.Error != "" {
		errMsg = sql.NullString{String: eval.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, session_id, input, answer, trace, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		eval.ID, eval.SessionID, eval.Input, eval.Answer, eval.Trace, errMsg, eval.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record evaluation: %w", err)
	}
	return nil
}

// ListEvaluations returns the most recent evaluations, newest first.
func (s *SQLiteStore) ListEvaluations(ctx context.Context, limit int) ([]*Evaluation, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, input, answer, trace, error, created_at
		 FROM evaluations ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var evals []*Evaluation
	for rows.Next() {
		eval := &Evaluation{}
		var errMsg sql.NullString
		if err := rows.Scan(&eval.ID, &eval.SessionID, &eval.Input, &eval.Answer,
			&eval.Trace, &errMsg, &eval.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		eval.Error = strings.TrimSpace(errMsg.String)
		evals = append(evals, eval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate evaluations: %w", err)
	}
	return evals, nil
}

// ClearHistory deletes every session and evaluation and returns the number
// of evaluations removed.
func (s *SQLiteStore) ClearHistory(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM evaluations`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear evaluations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared evaluations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return 0, fmt.Errorf("failed to clear sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return n, nil
}
