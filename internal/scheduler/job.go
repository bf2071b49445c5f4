package scheduler

import (
	"context"
	"time"
)

// maxJobHistory bounds the results kept per job
const maxJobHistory = 100

// Job is one named unit of scheduled work
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Schedule is a six-field cron spec, seconds first: "0 30 17 * * 1-5".
	// Descriptors such as "@daily" also work.
	Schedule() string

	// Run executes the job once. The summary is recorded even when err is non-nil.
	Run(ctx context.Context) (RunSummary, error)
}

// RunSummary is what a batch job reports about one execution
type RunSummary struct {
	RunID         string   `json:"run_id,omitempty"`
	Succeeded     int      `json:"succeeded"`
	Failed        int      `json:"failed"`
	FailedSymbols []string `json:"failed_symbols,omitempty"`
	Committed     bool     `json:"committed"`
}

// JobResult is one execution of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Summary   RunSummary    `json:"summary"`
}

// JobHistory keeps the most recent results of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest beyond maxJobHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxJobHistory {
		h.Results = h.Results[len(h.Results)-maxJobHistory:]
	}
}

// Last returns the most recent result
func (h *JobHistory) Last() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// LastWhere returns the start time of the most recent result matching success
func (h *JobHistory) LastWhere(success bool) *time.Time {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Success == success {
			t := h.Results[i].StartTime
			return &t
		}
	}
	return nil
}

// FailureCount counts failed executions
func (h *JobHistory) FailureCount() int {
	n := 0
	for _, result := range h.Results {
		if !result.Success {
			n++
		}
	}
	return n
}

// SuccessRate returns the share of successful executions (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(len(h.Results)-h.FailureCount()) / float64(len(h.Results))
}
