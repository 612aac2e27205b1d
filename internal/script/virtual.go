// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"magickbuild-cli/pkg/types"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualRunner interprets scripts in-process with mvdan/sh instead of
// spawning a shell. Exec handlers can intercept external commands, which is
// how dry-run and tests simulate apt-get/make outcomes without running them.
type VirtualRunner struct {
	handlers []func(interp.ExecHandlerFunc) interp.ExecHandlerFunc
}

// NewVirtualRunner creates a VirtualRunner. Handlers wrap the default exec
// handler middleware-style; with none given, external commands run for real.
func NewVirtualRunner(handlers ...func(interp.ExecHandlerFunc) interp.ExecHandlerFunc) *VirtualRunner {
	return &VirtualRunner{handlers: handlers}
}

// Run parses and interprets the script, blocking until it finishes or ctx
// is canceled.
func (r *VirtualRunner) Run(ctx context.Context, s Script) *Result {
	prog, err := syntax.NewParser().Parse(strings.NewReader(s.Source), s.Name)
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to parse script %s: %w", s.Name, err))
	}

	opts := []interp.RunnerOption{
		interp.Dir(s.Dir),
		interp.Env(expand.ListEnviron(append(os.Environ(), s.Env...)...)),
		interp.StdIO(nil, s.stdout(), s.stderr()),
		interp.Params("-e"), // errexit, matching the native runner
	}
	if len(r.handlers) > 0 {
		opts = append(opts, interp.ExecHandlers(r.handlers...))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to create interpreter: %w", err))
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return NewExitCodeResult(types.ExitCode(exitStatus))
		}
		return NewErrorResult(1, fmt.Errorf("script %s execution failed: %w", s.Name, err))
	}

	return NewExitCodeResult(0)
}
