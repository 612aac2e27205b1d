// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"fmt"
	"io"
	"strings"

	"magickbuild-cli/pkg/types"

	"mvdan.cc/sh/v3/syntax"
)

type (
	// Script is one opaque unit of shell work: a named command sequence with
	// an explicit working directory and environment. Configuration is always
	// threaded through here rather than mutated into the ambient process
	// environment.
	Script struct {
		// Name identifies the script in errors and logs, e.g. "build-aom".
		Name string

		// Source is the shell source. Runners execute it with errexit
		// semantics: the first failing command fails the whole script.
		Source string

		// Dir is the working directory; empty means the process working
		// directory.
		Dir string

		// Env holds extra KEY=VALUE entries appended to the inherited
		// environment.
		Env []string

		// Stdout and Stderr receive the script's output. Both default to
		// io.Discard — pipeline steps point them at the log sink so the
		// terminal stays limited to status lines.
		Stdout io.Writer
		Stderr io.Writer
	}

	// Result is the outcome of running one script.
	Result struct {
		ExitCode types.ExitCode
		Err      error // infrastructure failure (spawn, parse), not a non-zero exit
	}

	// Runner executes scripts. Implementations block until the script
	// finishes or ctx is canceled.
	Runner interface {
		Run(ctx context.Context, s Script) *Result
	}
)

// Validate parses the script source and reports syntax errors without
// executing anything. Runners call this before handing the source to a
// shell or the interpreter.
func (s Script) Validate() error {
	if strings.TrimSpace(s.Source) == "" {
		return fmt.Errorf("script %s: empty source", s.Name)
	}
	if _, err := syntax.NewParser().Parse(strings.NewReader(s.Source), s.Name); err != nil {
		return fmt.Errorf("script %s: syntax error: %w", s.Name, err)
	}
	return nil
}

func (s Script) stdout() io.Writer {
	if s.Stdout != nil {
		return s.Stdout
	}
	return io.Discard
}

func (s Script) stderr() io.Writer {
	if s.Stderr != nil {
		return s.Stderr
	}
	return io.Discard
}

// Success reports whether the script ran to completion with exit code 0.
func (r *Result) Success() bool {
	return r.Err == nil && r.ExitCode.IsSuccess()
}

// AsError converts a failed Result into an error; nil for success.
func (r *Result) AsError(name string) error {
	if r.Success() {
		return nil
	}
	if r.Err != nil {
		return fmt.Errorf("script %s: %w", name, r.Err)
	}
	return fmt.Errorf("script %s: exit status %s", name, r.ExitCode)
}

// NewErrorResult creates a Result carrying an infrastructure failure.
func NewErrorResult(code types.ExitCode, err error) *Result {
	return &Result{ExitCode: code, Err: err}
}

// NewExitCodeResult creates a Result for a normal process termination.
func NewExitCodeResult(code types.ExitCode) *Result {
	return &Result{ExitCode: code}
}
