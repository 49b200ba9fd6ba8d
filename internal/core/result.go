package core

import "time"

// Status is the outcome of a step or of a whole pipeline run.
type Status string

const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// StepResult is the outcome of running (or skipping) one step.
type StepResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	ExitCode int           `json:"exitCode"`
	Output   string        `json:"output,omitempty"` // combined stdout/stderr
	Detail   string        `json:"detail,omitempty"` // spawn error, signal, cancellation
	Duration time.Duration `json:"duration"`
}

// PipelineResult is the ordered step outcomes plus the overall verdict.
// Overall status is Passed iff every required step passed; an external
// cancellation produces Cancelled, never Passed or Failed.
type PipelineResult struct {
	Pipeline string       `json:"pipeline"`
	Status   Status       `json:"status"`
	Steps    []StepResult `json:"steps"`
}

// FirstFailure returns the first failed step result, or nil.
func (r *PipelineResult) FirstFailure() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Status == StatusFailed {
			return &r.Steps[i]
		}
	}
	return nil
}
