// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"magickbuild-cli/internal/issue"

	"github.com/charmbracelet/log"
)

type (
	// StepStatus is the lifecycle state of one step.
	StepStatus string

	// Step is one named unit of work. It succeeds or fails atomically from
	// the engine's viewpoint; its Run function owns everything in between.
	Step struct {
		// Name is the machine-readable step name, e.g. "build-aom".
		Name string

		// Label is the status line shown while the step runs,
		// e.g. "Building aom 3.12.1".
		Label string

		// Kind classifies a failure of this step (issue.ErrBuild etc.).
		Kind error

		// Run does the work. A non-nil return fails the step.
		Run func(ctx context.Context) error
	}

	// Summary records what a run did: which steps completed and any
	// non-fatal warnings collected along the way.
	Summary struct {
		Statuses []StepResult
		Warnings []*issue.StepError
	}

	// StepResult is the recorded outcome of one step.
	StepResult struct {
		Name   string
		Status StepStatus
	}

	// Engine executes steps in order. One engine runs once.
	Engine struct {
		steps   []Step
		out     io.Writer
		logger  *log.Logger
		logPath string
	}
)

const (
	StatusPending StepStatus = "pending"
	StatusOK      StepStatus = "ok"
	StatusWarned  StepStatus = "warned"
	StatusFailed  StepStatus = "failed"
	StatusSkipped StepStatus = "skipped"
)

// New creates an Engine writing status lines to out and structured progress
// to logger. logPath is included in failure messages so the operator knows
// where the captured output lives.
func New(out io.Writer, logger *log.Logger, logPath string) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{out: out, logger: logger, logPath: logPath}
}

// Add appends steps to the engine in execution order.
func (e *Engine) Add(steps ...Step) {
	e.steps = append(e.steps, steps...)
}

// Run executes all steps strictly in order. It returns the run summary and,
// when a fatal step failed, the StepError describing it; remaining steps are
// recorded as skipped. Non-fatal failures (verification) become warnings and
// execution continues.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	for i, step := range e.steps {
		if err := ctx.Err(); err != nil {
			e.markSkipped(summary, i)
			return summary, issue.NewStepError(step.Name, issue.ErrPrecondition, e.logPath, err)
		}

		e.printStatus(step.Label)
		e.logger.Info("step started", "step", step.Name)

		err := step.Run(ctx)
		if err == nil {
			e.printOutcome(okMark)
			e.logger.Info("step finished", "step", step.Name)
			summary.Statuses = append(summary.Statuses, StepResult{Name: step.Name, Status: StatusOK})
			continue
		}

		stepErr := asStepError(step, e.logPath, err)
		e.logger.Error("step failed", "step", step.Name, "err", err)

		if !stepErr.Fatal() {
			e.printOutcome(warnMark)
			summary.Statuses = append(summary.Statuses, StepResult{Name: step.Name, Status: StatusWarned})
			summary.Warnings = append(summary.Warnings, stepErr)
			continue
		}

		e.printOutcome(failMark)
		fmt.Fprintln(e.out, failDetailStyle.Render(fmt.Sprintf("  %v", stepErr)))
		summary.Statuses = append(summary.Statuses, StepResult{Name: step.Name, Status: StatusFailed})
		e.markSkipped(summary, i+1)
		return summary, stepErr
	}

	return summary, nil
}

// markSkipped records every step from index on as skipped.
func (e *Engine) markSkipped(summary *Summary, from int) {
	for _, step := range e.steps[from:] {
		summary.Statuses = append(summary.Statuses, StepResult{Name: step.Name, Status: StatusSkipped})
	}
}

// asStepError normalizes a step failure into an issue.StepError, preserving
// an existing one (a step may classify its own failures more precisely).
func asStepError(step Step, logPath string, err error) *issue.StepError {
	var se *issue.StepError
	if errors.As(err, &se) {
		return se
	}
	kind := step.Kind
	if kind == nil {
		kind = issue.ErrBuild
	}
	return issue.NewStepError(step.Name, kind, logPath, err)
}
