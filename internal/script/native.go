// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"magickbuild-cli/pkg/types"
)

// NativeRunner executes scripts with the system shell. This is the runner
// used for real installs: apt-get, configure, and make must run as host
// processes.
type NativeRunner struct {
	// Shell overrides the default shell lookup (bash, then sh).
	Shell string
}

// NewNativeRunner creates a NativeRunner using the default shell lookup.
func NewNativeRunner() *NativeRunner {
	return &NativeRunner{}
}

// Run executes the script, blocking until it finishes or ctx is canceled.
// Output goes to the script's writers only; nothing reaches the terminal.
func (r *NativeRunner) Run(ctx context.Context, s Script) *Result {
	if err := s.Validate(); err != nil {
		return NewErrorResult(1, err)
	}

	shell, err := r.getShell()
	if err != nil {
		return NewErrorResult(1, err)
	}

	// -e gives errexit semantics: the first failing command aborts the
	// script, so a step fails as a unit.
	cmd := exec.CommandContext(ctx, shell, "-e", "-c", s.Source)
	if s.Dir != "" {
		cmd.Dir = s.Dir
	}
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Stdout = s.stdout()
	cmd.Stderr = s.stderr()

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return NewExitCodeResult(types.ExitCode(exitErr.ExitCode()))
		}
		return NewErrorResult(1, fmt.Errorf("failed to execute script %s: %w", s.Name, err))
	}

	return NewExitCodeResult(0)
}

// getShell determines which shell to use: the configured override, then
// bash, then sh.
func (r *NativeRunner) getShell() (string, error) {
	if r.Shell != "" {
		return r.Shell, nil
	}
	if bash, err := exec.LookPath("bash"); err == nil {
		return bash, nil
	}
	if sh, err := exec.LookPath("sh"); err == nil {
		return sh, nil
	}
	return "", fmt.Errorf("no shell found")
}
