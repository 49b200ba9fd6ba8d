package core

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor returns scripted outcomes per step name and records which
// steps were actually spawned.
type fakeExecutor struct {
	outcomes map[string]Outcome
	spawned  []string
	cancel   context.CancelFunc // when set, cancels the context mid-step
}

func (f *fakeExecutor) Run(ctx context.Context, step Step) Outcome {
	f.spawned = append(f.spawned, step.Name)
	if f.cancel != nil {
		f.cancel()
	}
	out, ok := f.outcomes[step.Name]
	if !ok {
		return Outcome{ExitCode: 0}
	}
	return out
}

func requiredStep(name string) Step {
	return Step{Name: name, Command: "true", Required: true}
}

func gatePipeline() *Pipeline {
	return &Pipeline{
		Name: "check",
		Steps: []Step{
			requiredStep("format"),
			requiredStep("lint"),
			requiredStep("test_default"),
			requiredStep("test_all_features"),
			requiredStep("test_no_default"),
			requiredStep("test_codec"),
		},
	}
}

func TestRunAllStepsPass(t *testing.T) {
	exec := &fakeExecutor{}
	r := &Runner{Executor: exec}

	res, err := r.Run(context.Background(), gatePipeline())
	require.NoError(t, err)

	assert.Equal(t, StatusPassed, res.Status)
	require.Len(t, res.Steps, 6)
	for _, sr := range res.Steps {
		assert.Equal(t, StatusPassed, sr.Status)
	}
	assert.Len(t, exec.spawned, 6)
}

func TestRunFirstStepFailsSkipsRest(t *testing.T) {
	exec := &fakeExecutor{outcomes: map[string]Outcome{
		"format": {ExitCode: 1, Err: errors.New("exit status 1")},
	}}
	r := &Runner{Executor: exec}

	res, err := r.Run(context.Background(), gatePipeline())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, res.Status)
	require.Len(t, res.Steps, 6)
	assert.Equal(t, StatusFailed, res.Steps[0].Status)
	for _, sr := range res.Steps[1:] {
		assert.Equal(t, StatusSkipped, sr.Status)
	}
	// only the failing step was ever spawned
	assert.Equal(t, []string{"format"}, exec.spawned)
}

func TestRunMidPipelineFailure(t *testing.T) {
	// test framework convention: exit 101 on failing tests
	exec := &fakeExecutor{outcomes: map[string]Outcome{
		"test_default": {ExitCode: 101, Err: errors.New("exit status 101")},
	}}
	r := &Runner{Executor: exec}

	res, err := r.Run(context.Background(), gatePipeline())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, res.Status)
	want := []Status{StatusPassed, StatusPassed, StatusFailed, StatusSkipped, StatusSkipped, StatusSkipped}
	for i, sr := range res.Steps {
		assert.Equal(t, want[i], sr.Status, "step %d", i)
	}
	assert.Equal(t, []string{"format", "lint", "test_default"}, exec.spawned)
	assert.Equal(t, 101, res.Steps[2].ExitCode)
}

func TestRunOptionalStepFailureDoesNotAbort(t *testing.T) {
	p := &Pipeline{
		Name: "mixed",
		Steps: []Step{
			requiredStep("build"),
			{Name: "docs", Command: "true", Required: false},
			requiredStep("test"),
		},
	}
	exec := &fakeExecutor{outcomes: map[string]Outcome{
		"docs": {ExitCode: 1, Err: errors.New("exit status 1")},
	}}
	r := &Runner{Executor: exec}

	res, err := r.Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, StatusPassed, res.Status)
	assert.Equal(t, StatusFailed, res.Steps[1].Status)
	assert.Equal(t, StatusPassed, res.Steps[2].Status)
	assert.Len(t, exec.spawned, 3)
}

func TestRunEmptyPipelinePasses(t *testing.T) {
	exec := &fakeExecutor{}
	r := &Runner{Executor: exec}

	res, err := r.Run(context.Background(), &Pipeline{Name: "empty"})
	require.NoError(t, err)

	assert.Equal(t, StatusPassed, res.Status)
	assert.Empty(t, res.Steps)
	assert.Empty(t, exec.spawned)
}

func TestRunRejectsEmptyCommandBeforeSpawning(t *testing.T) {
	p := &Pipeline{
		Name: "broken",
		Steps: []Step{
			requiredStep("ok"),
			{Name: "no command", Required: true},
		},
	}
	exec := &fakeExecutor{}
	r := &Runner{Executor: exec}

	res, err := r.Run(context.Background(), p)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Empty(t, exec.spawned)
}

func TestRunCancellationIsNotFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &fakeExecutor{cancel: cancel}
	r := &Runner{Executor: exec}

	res, err := r.Run(ctx, gatePipeline())
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, StatusCancelled, res.Steps[0].Status)
	for _, sr := range res.Steps[1:] {
		assert.Equal(t, StatusSkipped, sr.Status)
	}
	assert.Equal(t, []string{"format"}, exec.spawned)
}

func TestRunReportsStepsInOrder(t *testing.T) {
	exec := &fakeExecutor{outcomes: map[string]Outcome{
		"lint": {ExitCode: 1, Err: errors.New("exit status 1")},
	}}
	var reported []string
	r := &Runner{Executor: exec, Report: func(sr StepResult) {
		reported = append(reported, sr.Name+":"+string(sr.Status))
	}}

	_, err := r.Run(context.Background(), gatePipeline())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"format:passed",
		"lint:failed",
		"test_default:skipped",
		"test_all_features:skipped",
		"test_no_default:skipped",
		"test_codec:skipped",
	}, reported)
}

type fakeSink struct {
	saved map[string]string
	err   error
}

func (f *fakeSink) SaveLog(pipeline, step, output string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.saved == nil {
		f.saved = make(map[string]string)
	}
	f.saved[step] = output
	return step + ".log", nil
}

func TestRunSavesLogsForExecutedStepsOnly(t *testing.T) {
	exec := &fakeExecutor{outcomes: map[string]Outcome{
		"format": {ExitCode: 0, Output: "all formatted"},
		"lint":   {ExitCode: 1, Output: "warning: unused", Err: errors.New("exit status 1")},
	}}
	sink := &fakeSink{}
	r := &Runner{Executor: exec, Logs: sink}

	res, err := r.Run(context.Background(), gatePipeline())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, map[string]string{
		"format": "all formatted",
		"lint":   "warning: unused",
	}, sink.saved)
}

func TestRunLogSinkFailureDoesNotFailRun(t *testing.T) {
	exec := &fakeExecutor{}
	sink := &fakeSink{err: errors.New("disk full")}
	r := &Runner{Executor: exec, Logs: sink}

	res, err := r.Run(context.Background(), gatePipeline())
	require.NoError(t, err)

	assert.Equal(t, StatusPassed, res.Status)
	assert.Contains(t, res.Steps[0].Detail, "disk full")
}
