// Package worker evaluates formula groups in the background and publishes
// only the result of the most recent submission.
//
// Every Submit bumps a revision counter and starts an evaluation on its own
// goroutine with a fresh environment. The engine cannot be interrupted, so a
// superseded evaluation runs to completion and its result is dropped.
package worker

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leapstack-labs/leapcalc/pkg/formula"
)

// Result is the published outcome of one revision.
type Result struct {
	Revision uint64
	Input    string
	Group    formula.GroupResult
	Err      error
	Elapsed  time.Duration
}

// Prelude seeds each evaluation environment, typically with configured
// variables.
type Prelude func(env *formula.Environment) error

// Config holds configuration for an Evaluator.
type Config struct {
	Options []formula.Option
	Prelude Prelude
	Logger  *slog.Logger
}

// Evaluator runs revisioned evaluations.
type Evaluator struct {
	opts    []formula.Option
	prelude Prelude
	logger  *slog.Logger

	revision atomic.Uint64
	wg       sync.WaitGroup

	mu        sync.RWMutex
	latest    *Result
	listeners map[chan Result]struct{}
	closed    bool
}

// New creates an Evaluator.
func New(cfg Config) *Evaluator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{
		opts:      cfg.Options,
		prelude:   cfg.Prelude,
		logger:    logger,
		listeners: make(map[chan Result]struct{}),
	}
}

// Submit schedules text for evaluation and returns its revision.
func (e *Evaluator) Submit(text string) uint64 {
	rev := e.revision.Add(1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(rev, text)
	}()
	return rev
}

// Revision returns the most recently submitted revision.
func (e *Evaluator) Revision() uint64 {
	return e.revision.Load()
}

func (e *Evaluator) run(rev uint64, text string) {
	start := time.Now()
	res := Result{Revision: rev, Input: text}

	env := formula.NewEnvironment(e.opts...)
	if e.prelude != nil {
		if err := e.prelude(env); err != nil {
			res.Err = err
		}
	}
	if res.Err == nil {
		res.Group, res.Err = env.EvaluateGroup(text)
	}
	res.Elapsed = time.Since(start)

	if current := e.revision.Load(); rev != current {
		e.logger.Debug("discarding stale result", "revision", rev, "current", current)
		return
	}
	e.publish(res)
}

func (e *Evaluator) publish(res Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A newer revision may have published while this one was waiting.
	if e.closed || (e.latest != nil && e.latest.Revision > res.Revision) || res.Revision != e.revision.Load() {
		return
	}
	e.latest = &res
	for ch := range e.listeners {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- res:
		default:
		}
	}
	e.logger.Debug("published result", "revision", res.Revision, "elapsed", res.Elapsed)
}

// Latest returns the most recently published result.
func (e *Evaluator) Latest() (Result, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.latest == nil {
		return Result{}, false
	}
	return *e.latest, true
}

// Subscribe returns a channel receiving each published result. Slow readers
// only see the newest result.
func (e *Evaluator) Subscribe() chan Result {
	ch := make(chan Result, 1)
	e.mu.Lock()
	e.listeners[ch] = struct{}{}
	e.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (e *Evaluator) Unsubscribe(ch chan Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.listeners[ch]; ok {
		delete(e.listeners, ch)
		close(ch)
	}
}

// Wait blocks until every submitted evaluation has finished.
func (e *Evaluator) Wait() {
	e.wg.Wait()
}

// Close waits for running evaluations and closes all subscriptions.
func (e *Evaluator) Close() {
	e.wg.Wait()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for ch := range e.listeners {
		delete(e.listeners, ch)
		close(ch)
	}
}
