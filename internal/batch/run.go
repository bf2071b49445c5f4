package batch

import (
	"fmt"
	"time"

	"github.com/wonny/pricedelta/internal/contracts"
	"github.com/wonny/pricedelta/internal/pricing"
)

// BatchRun is the outcome of one orchestrator invocation
type BatchRun struct {
	ID         string
	Symbols    []string
	Results    map[string]pricing.LookbackResult
	Failures   map[string]error
	Staged     []contracts.StockRecord
	Committed  bool
	CommitErr  error
	StartedAt  time.Time
	FinishedAt time.Time
}

func newBatchRun(id string, symbols []string, startedAt time.Time) *BatchRun {
	return &BatchRun{
		ID:        id,
		Symbols:   symbols,
		Results:   make(map[string]pricing.LookbackResult),
		Failures:  make(map[string]error),
		StartedAt: startedAt,
	}
}

// Succeeded returns the symbols that produced a result, in processing order
func (r *BatchRun) Succeeded() []string {
	out := make([]string, 0, len(r.Results))
	for _, symbol := range r.Symbols {
		if _, ok := r.Results[symbol]; ok {
			out = append(out, symbol)
		}
	}
	return out
}

// Failed returns the symbols that did not produce a result, in processing order
func (r *BatchRun) Failed() []string {
	out := make([]string, 0, len(r.Failures))
	for _, symbol := range r.Symbols {
		if _, ok := r.Failures[symbol]; ok {
			out = append(out, symbol)
		}
	}
	return out
}

// FailureReasons flattens per-instrument failures to their messages
func (r *BatchRun) FailureReasons() map[string]string {
	reasons := make(map[string]string, len(r.Failures))
	for symbol, err := range r.Failures {
		reasons[symbol] = err.Error()
	}
	return reasons
}

// Duration returns how long the run took
func (r *BatchRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// CommitError reports that the staged records could not be written
type CommitError struct {
	Count int
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit of %d records failed: %v", e.Count, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
