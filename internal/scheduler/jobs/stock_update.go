package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/pricedelta/internal/batch"
	"github.com/wonny/pricedelta/internal/scheduler"
	"github.com/wonny/pricedelta/pkg/logger"
)

// DefaultStockUpdateSchedule runs after the US close on weekdays
const DefaultStockUpdateSchedule = "0 30 17 * * 1-5"

// BatchRunner runs one update over a symbol list
type BatchRunner interface {
	Run(ctx context.Context, symbols []string) (*batch.BatchRun, error)
}

// StockUpdateJob refreshes the lookback metrics of the configured symbols
// ⭐ SSOT: 종목 갱신 스케줄은 이 Job에서만
type StockUpdateJob struct {
	runner   BatchRunner
	symbols  []string
	schedule string
	logger   *logger.Logger
}

// NewStockUpdateJob creates a new stock update job. An empty schedule uses the default.
func NewStockUpdateJob(runner BatchRunner, symbols []string, schedule string, log *logger.Logger) *StockUpdateJob {
	if schedule == "" {
		schedule = DefaultStockUpdateSchedule
	}

	return &StockUpdateJob{
		runner:   runner,
		symbols:  symbols,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *StockUpdateJob) Name() string {
	return "stock_update"
}

// Schedule returns the cron schedule
func (j *StockUpdateJob) Schedule() string {
	return j.schedule
}

// Run executes one batch update. Per-symbol failures are logged in processing
// order; only a failed commit fails the job.
func (j *StockUpdateJob) Run(ctx context.Context) (scheduler.RunSummary, error) {
	j.logger.WithField("symbols", len(j.symbols)).Info("Starting scheduled stock update")

	run, err := j.runner.Run(ctx, j.symbols)
	if run == nil {
		if err == nil {
			err = errors.New("no run returned")
		}
		return scheduler.RunSummary{}, fmt.Errorf("stock update: %w", err)
	}

	summary := scheduler.RunSummary{
		RunID:         run.ID,
		Succeeded:     len(run.Results),
		Failed:        len(run.Failures),
		FailedSymbols: run.Failed(),
		Committed:     run.Committed,
	}

	log := j.logger.WithField("run_id", run.ID)
	for _, symbol := range summary.FailedSymbols {
		log.WithFields(map[string]interface{}{
			"symbol": symbol,
			"reason": run.Failures[symbol].Error(),
		}).Warn("Symbol not updated")
	}

	if err != nil {
		return summary, fmt.Errorf("stock update: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Info("Scheduled stock update completed")

	return summary, nil
}
