package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/pricedelta/internal/contracts"
	"github.com/wonny/pricedelta/internal/pricing"
	"github.com/wonny/pricedelta/pkg/logger"
)

// DefaultCommitTimeout bounds the final write when no timeout is configured
const DefaultCommitTimeout = 30 * time.Second

// Config holds orchestrator settings
type Config struct {
	// CommitTimeout bounds the commit, which runs even after the caller's context is done
	CommitTimeout time.Duration
}

// Orchestrator runs fetch → compare → stage for each symbol, then commits once
// ⭐ SSOT: 일괄 갱신 조율은 여기서만
type Orchestrator struct {
	fetcher   contracts.SeriesFetcher
	committer contracts.StockCommitter
	cfg       Config
	logger    *logger.Logger
	now       func() time.Time
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(fetcher contracts.SeriesFetcher, committer contracts.StockCommitter, cfg Config, log *logger.Logger) *Orchestrator {
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = DefaultCommitTimeout
	}

	return &Orchestrator{
		fetcher:   fetcher,
		committer: committer,
		cfg:       cfg,
		logger:    log.WithField("module", "batch"),
		now:       time.Now,
	}
}

// Run processes symbols sequentially in the given order, upper-cased and once
// each. A failing symbol is recorded on the run and never stops the others. The
// only error returned is a *CommitError; the run is returned either way.
func (o *Orchestrator) Run(ctx context.Context, symbols []string) (*BatchRun, error) {
	run := newBatchRun(uuid.NewString(), dedupe(symbols), o.now())
	log := o.logger.WithField("run_id", run.ID)

	log.WithField("symbols", len(run.Symbols)).Info("Batch run started")

	for i, symbol := range run.Symbols {
		if err := ctx.Err(); err != nil {
			o.abandon(log, run, run.Symbols[i:], err)
			break
		}

		o.process(ctx, log, run, symbol)
	}

	err := o.commit(ctx, log, run)
	run.FinishedAt = o.now()

	log.WithFields(map[string]interface{}{
		"succeeded": len(run.Results),
		"failed":    len(run.Failures),
		"committed": run.Committed,
		"duration":  run.Duration(),
	}).Info("Batch run finished")

	return run, err
}

func (o *Orchestrator) process(ctx context.Context, runLog *logger.Logger, run *BatchRun, symbol string) {
	log := runLog.WithField("symbol", symbol)

	series, err := o.fetcher.FetchSeries(ctx, symbol)
	if err != nil {
		run.Failures[symbol] = err
		log.WithError(err).Warn("Fetch failed, skipping symbol")
		return
	}

	result, err := pricing.Compare(series)
	if err != nil {
		run.Failures[symbol] = err
		log.WithError(err).Warn("Comparison failed, skipping symbol")
		return
	}

	run.Results[symbol] = result
	run.Staged = append(run.Staged, contracts.NewStockRecord(series.Name(), result))

	log.WithFields(map[string]interface{}{
		"price":  result.CurrentPrice,
		"change": result.Changes.OneDay,
		"ytd":    result.Changes.YearToDate,
	}).Debug("Symbol staged")
}

// abandon records the symbols never reached because the caller gave up
func (o *Orchestrator) abandon(log *logger.Logger, run *BatchRun, remaining []string, cause error) {
	for _, symbol := range remaining {
		run.Failures[symbol] = fmt.Errorf("not processed: %w", cause)
	}

	log.WithError(cause).WithField("remaining", len(remaining)).Warn("Batch run interrupted")
}

// commit writes everything staged as one unit on a context detached from the caller's
func (o *Orchestrator) commit(ctx context.Context, log *logger.Logger, run *BatchRun) error {
	if len(run.Staged) == 0 {
		log.Info("Nothing staged, skipping commit")
		return nil
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.CommitTimeout)
	defer cancel()

	if err := o.committer.Commit(commitCtx, run.Staged); err != nil {
		commitErr := &CommitError{Count: len(run.Staged), Err: err}
		run.CommitErr = commitErr
		log.WithError(err).WithField("records", len(run.Staged)).Error("Batch commit failed")
		return commitErr
	}

	run.Committed = true
	return nil
}

// dedupe upper-cases symbols and drops blanks and repeats, keeping the first occurrence
func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}
