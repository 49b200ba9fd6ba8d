package core

import (
	"context"
	"time"
)

// LogSink receives the captured output of each executed step. The runner
// treats log persistence as best-effort and never fails a run over it.
type LogSink interface {
	SaveLog(pipeline, step, output string) (string, error)
}

// Runner executes a pipeline's steps strictly in declaration order, one
// child process at a time, stopping at the first failed required step.
type Runner struct {
	Executor Executor
	Report   func(StepResult) // called once per step as it completes, in order
	Logs     LogSink          // optional
}

func NewRunner() *Runner {
	return &Runner{Executor: NewProcessExecutor()}
}

// Run executes the pipeline and returns its result. Step failures live in
// the result; the error return is only for a malformed pipeline, checked
// before any process is spawned. Cancelling ctx kills the running child
// and yields a Cancelled result rather than Failed.
func (r *Runner) Run(ctx context.Context, p *Pipeline) (*PipelineResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	res := &PipelineResult{Pipeline: p.Name, Steps: make([]StepResult, 0, len(p.Steps))}
	aborted := false
	cancelled := false

	for _, step := range p.Steps {
		var sr StepResult
		if aborted || cancelled {
			sr = StepResult{Name: step.Name, Status: StatusSkipped}
		} else {
			sr = r.runStep(ctx, p.Name, step)
			switch sr.Status {
			case StatusCancelled:
				cancelled = true
			case StatusFailed:
				if step.Required {
					aborted = true
				}
			}
		}
		res.Steps = append(res.Steps, sr)
		if r.Report != nil {
			r.Report(sr)
		}
	}

	res.Status = overall(p, res.Steps, cancelled)
	return res, nil
}

func (r *Runner) runStep(ctx context.Context, pipeline string, step Step) StepResult {
	start := time.Now()
	out := r.Executor.Run(ctx, step)
	sr := StepResult{
		Name:     step.Name,
		ExitCode: out.ExitCode,
		Output:   out.Output,
		Duration: time.Since(start),
	}

	switch {
	case ctx.Err() != nil:
		sr.Status = StatusCancelled
		sr.Detail = ctx.Err().Error()
	case out.Err == nil && out.ExitCode == 0:
		sr.Status = StatusPassed
	default:
		// Nonzero exit, spawn failure and death-by-signal all land here;
		// the distinction only matters for the detail string.
		sr.Status = StatusFailed
		if out.Err != nil {
			sr.Detail = out.Err.Error()
		}
	}

	if r.Logs != nil && sr.Status != StatusCancelled {
		if _, err := r.Logs.SaveLog(pipeline, step.Name, sr.Output); err != nil {
			// surfaced via the result detail instead of failing the run
			sr.Detail = joinDetail(sr.Detail, "save log: "+err.Error())
		}
	}
	return sr
}

func overall(p *Pipeline, steps []StepResult, cancelled bool) Status {
	if cancelled {
		return StatusCancelled
	}
	for i := range p.Steps {
		if p.Steps[i].Required && steps[i].Status != StatusPassed {
			return StatusFailed
		}
	}
	// vacuously passed when empty or when only optional steps failed
	return StatusPassed
}

func joinDetail(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
