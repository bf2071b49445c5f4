package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/pricedelta/internal/scheduler"
	"github.com/wonny/pricedelta/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/pricedelta scheduler start
  go run ./cmd/pricedelta scheduler list
  go run ./cmd/pricedelta scheduler run stock_update`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- stock_update: 평일 17:30 (America/New_York, STOCK_UPDATE_SCHEDULE)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== pricedelta Scheduler ===")

	d, err := newDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	sched, err := newScheduler(d)
	if err != nil {
		return err
	}

	sched.Start()

	PrintSuccess(out, "Scheduler started successfully")
	fmt.Fprintln(out, "\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		fmt.Fprintf(out, "  - %s (next: %s)\n", jobName, next.Format(time.RFC3339))
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	sched := scheduler.New(log, scheduler.WithLocation(cfg.Location()))
	if err := sched.AddJob(jobs.NewStockUpdateJob(nil, cfg.Symbols, cfg.UpdateSchedule, log)); err != nil {
		return err
	}

	fmt.Fprintln(out, "Registered jobs:")
	for jobName, stat := range sched.GetJobStats() {
		fmt.Fprintf(out, "  - %s  [%s %s]\n", jobName, stat.Schedule, cfg.Timezone)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	jobName := args[0]

	d, err := newDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	sched, err := newScheduler(d)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Running job: %s\n", jobName)

	result, err := sched.RunJobNow(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	printRunSummary(out, result.Summary)

	if !result.Success {
		PrintError(out, fmt.Sprintf("%s failed after %s: %s", jobName, result.Duration, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(out, fmt.Sprintf("%s completed in %s", jobName, result.Duration))
	return nil
}

// newScheduler registers jobs; retries are off so provider quotas are not burned
func newScheduler(d *deps) (*scheduler.Scheduler, error) {
	sched := scheduler.New(d.log,
		scheduler.WithLocation(d.cfg.Location()),
		scheduler.WithRetries(0, 0),
		scheduler.WithJobTimeout(d.cfg.Batch.Timeout),
	)

	if err := sched.AddJob(jobs.NewStockUpdateJob(d.orchestrator, d.cfg.Symbols, d.cfg.UpdateSchedule, d.log)); err != nil {
		return nil, err
	}

	return sched, nil
}
