// Package state persists evaluation history in SQLite.
// It tracks sessions (one per CLI invocation, REPL or server client) and the
// evaluations recorded under them.
package state

import (
	"context"
	"time"
)

// Store is the history store used by the CLI and the HTTP server.
type Store interface {
	CreateSession(ctx context.Context, source string) (*Session, error)
	RecordEvaluation(ctx context.Context, eval *Evaluation) error
	ListEvaluations(ctx context.Context, limit int) ([]*Evaluation, error)
	ClearHistory(ctx context.Context) (int64, error)
	Close() error
}

// Session groups the evaluations of one interactive or batch run.
type Session struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"` // eval, repl, watch, serve, live
	CreatedAt time.Time `json:"created_at"`
}

// Evaluation is one recorded input with its outcome.
type Evaluation struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Input     string    `json:"input"`
	Answer    string    `json:"answer"`
	Trace     string    `json:"trace"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Failed reports whether the evaluation ended in an error.
func (e *Evaluation) Failed() bool {
	return e.Error != ""
}

// DefaultListLimit is the number of entries ListEvaluations returns for a
// non-positive limit.
const DefaultListLimit = 50
