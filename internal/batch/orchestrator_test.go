package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pricedelta/internal/contracts"
	"github.com/wonny/pricedelta/internal/pricing"
	"github.com/wonny/pricedelta/pkg/logger"
)

var errUpstream = errors.New("upstream unavailable")

type fakeFetcher struct {
	series map[string]*pricing.PriceSeries
	errs   map[string]error
	calls  []string
	onCall func(symbol string)
}

func (f *fakeFetcher) FetchSeries(ctx context.Context, symbol string) (*pricing.PriceSeries, error) {
	f.calls = append(f.calls, symbol)
	if f.onCall != nil {
		f.onCall(symbol)
	}
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	if s, ok := f.series[symbol]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%s: no fixture", symbol)
}

type fakeCommitter struct {
	err      error
	calls    int
	records  []contracts.StockRecord
	ctxErr   error
	deadline bool
}

func (c *fakeCommitter) Commit(ctx context.Context, records []contracts.StockRecord) error {
	c.calls++
	c.records = append([]contracts.StockRecord(nil), records...)
	c.ctxErr = ctx.Err()
	_, c.deadline = ctx.Deadline()
	return c.err
}

func twoDaySeries(t *testing.T, symbol string, prev, last float64) *pricing.PriceSeries {
	t.Helper()

	s, err := pricing.NewPriceSeries(symbol, []pricing.Observation{
		{Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Open: prev, Close: last},
		{Date: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), Open: prev, Close: prev},
	})
	require.NoError(t, err)
	return s
}

func newTestOrchestrator(f contracts.SeriesFetcher, c contracts.StockCommitter) *Orchestrator {
	return NewOrchestrator(f, c, Config{CommitTimeout: time.Second}, logger.NewNop())
}

func TestRun_FailureDoesNotAbortBatch(t *testing.T) {
	fetcher := &fakeFetcher{
		series: map[string]*pricing.PriceSeries{
			"AAPL": twoDaySeries(t, "AAPL", 100, 110),
			"NFLX": twoDaySeries(t, "NFLX", 200, 190).WithName("Netflix"),
		},
		errs: map[string]error{"AMZN": errUpstream},
	}
	committer := &fakeCommitter{}

	run, err := newTestOrchestrator(fetcher, committer).Run(context.Background(), []string{"AAPL", "AMZN", "NFLX"})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "AMZN", "NFLX"}, fetcher.calls)
	assert.Equal(t, []string{"AAPL", "NFLX"}, run.Succeeded())
	assert.Equal(t, []string{"AMZN"}, run.Failed())
	assert.ErrorIs(t, run.Failures["AMZN"], errUpstream)

	require.Equal(t, 1, committer.calls)
	require.Len(t, committer.records, 2)
	assert.Equal(t, "AAPL", committer.records[0].Symbol)
	assert.Equal(t, 10.0, committer.records[0].Change1D)
	assert.Equal(t, "Netflix", committer.records[1].Name)
	assert.Equal(t, -5.0, committer.records[1].Change1D)

	assert.True(t, run.Committed)
	assert.NoError(t, run.CommitErr)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestRun_EmptySeriesIsPerSymbolFailure(t *testing.T) {
	empty, err := pricing.NewPriceSeries("GOOGL", nil)
	require.NoError(t, err)

	fetcher := &fakeFetcher{series: map[string]*pricing.PriceSeries{
		"GOOGL": empty,
		"META":  twoDaySeries(t, "META", 400, 404),
	}}
	committer := &fakeCommitter{}

	run, err := newTestOrchestrator(fetcher, committer).Run(context.Background(), []string{"GOOGL", "META"})
	require.NoError(t, err)

	assert.ErrorIs(t, run.Failures["GOOGL"], pricing.ErrEmptySeries)
	assert.Contains(t, run.Results, "META")
	assert.Len(t, committer.records, 1)
}

func TestRun_AllFailedSkipsCommit(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{"AAPL": errUpstream, "AMZN": errUpstream}}
	committer := &fakeCommitter{}

	run, err := newTestOrchestrator(fetcher, committer).Run(context.Background(), []string{"AAPL", "AMZN"})
	require.NoError(t, err)

	assert.Equal(t, 0, committer.calls)
	assert.False(t, run.Committed)
	assert.Len(t, run.Failures, 2)
}

func TestRun_EmptyInput(t *testing.T) {
	committer := &fakeCommitter{}

	run, err := newTestOrchestrator(&fakeFetcher{}, committer).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, run.Results)
	assert.Empty(t, run.Failures)
	assert.Equal(t, 0, committer.calls)
}

func TestRun_CommitFailureIsAggregate(t *testing.T) {
	storeErr := errors.New("connection reset")
	fetcher := &fakeFetcher{
		series: map[string]*pricing.PriceSeries{
			"AAPL": twoDaySeries(t, "AAPL", 100, 101),
			"META": twoDaySeries(t, "META", 100, 99),
		},
		errs: map[string]error{"AMZN": errUpstream},
	}
	committer := &fakeCommitter{err: storeErr}

	run, err := newTestOrchestrator(fetcher, committer).Run(context.Background(), []string{"AAPL", "AMZN", "META"})
	require.Error(t, err)

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, 2, commitErr.Count)
	assert.ErrorIs(t, err, storeErr)

	require.NotNil(t, run)
	assert.False(t, run.Committed)
	assert.Equal(t, err, run.CommitErr)
	// per-symbol outcomes are unaffected by the commit
	assert.Len(t, run.Results, 2)
	assert.ErrorIs(t, run.Failures["AMZN"], errUpstream)
}

func TestRun_CancellationCommitsStagedWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		series: map[string]*pricing.PriceSeries{
			"AAPL": twoDaySeries(t, "AAPL", 100, 110),
			"AMZN": twoDaySeries(t, "AMZN", 100, 120),
			"META": twoDaySeries(t, "META", 100, 130),
		},
	}
	fetcher.onCall = func(symbol string) {
		if symbol == "AAPL" {
			cancel()
		}
	}
	committer := &fakeCommitter{}

	run, err := newTestOrchestrator(fetcher, committer).Run(ctx, []string{"AAPL", "AMZN", "META"})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, fetcher.calls)
	assert.Equal(t, []string{"AAPL"}, run.Succeeded())
	assert.Equal(t, []string{"AMZN", "META"}, run.Failed())
	assert.ErrorIs(t, run.Failures["AMZN"], context.Canceled)

	require.Equal(t, 1, committer.calls)
	assert.NoError(t, committer.ctxErr, "commit context must outlive the caller's")
	assert.True(t, committer.deadline)
	assert.True(t, run.Committed)
}

func TestRun_DuplicateSymbolsProcessedOnce(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]*pricing.PriceSeries{
		"AAPL": twoDaySeries(t, "AAPL", 100, 110),
	}}
	committer := &fakeCommitter{}

	run, err := newTestOrchestrator(fetcher, committer).Run(context.Background(), []string{"AAPL", "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, fetcher.calls)
	assert.Equal(t, []string{"AAPL"}, run.Symbols)
	assert.Len(t, committer.records, 1)
}

func TestRun_SymbolsNormalizedBeforeDedupe(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]*pricing.PriceSeries{
		"AAPL": twoDaySeries(t, "AAPL", 100, 110),
		"NFLX": twoDaySeries(t, "NFLX", 200, 190),
	}}
	committer := &fakeCommitter{}

	run, err := newTestOrchestrator(fetcher, committer).Run(context.Background(), []string{"aapl", " AAPL ", "", "nflx", "Aapl"})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "NFLX"}, fetcher.calls)
	assert.Equal(t, []string{"AAPL", "NFLX"}, run.Succeeded())
	assert.Contains(t, run.Results, "AAPL")
	assert.Len(t, committer.records, 2)
}

func TestBatchRun_FailureReasons(t *testing.T) {
	run := newBatchRun("run-1", []string{"AAPL"}, time.Now())
	run.Failures["AAPL"] = errUpstream

	assert.Equal(t, map[string]string{"AAPL": "upstream unavailable"}, run.FailureReasons())
}

func TestNewOrchestrator_DefaultCommitTimeout(t *testing.T) {
	o := NewOrchestrator(&fakeFetcher{}, &fakeCommitter{}, Config{}, logger.NewNop())
	assert.Equal(t, DefaultCommitTimeout, o.cfg.CommitTimeout)
}
