// SPDX-License-Identifier: MPL-2.0

// Package precheck enforces the preconditions that must hold before the
// installer does any work: elevated privilege, a Debian-family host with
// apt-get, and an available lsb_release (installed on the fly if missing).
// Nothing — no log file, no workspace, no network call — happens until
// these pass.
package precheck

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"magickbuild-cli/internal/issue"
	"magickbuild-cli/internal/script"
)

// osReleasePath is the standard location of the os-release file.
const osReleasePath = "/etc/os-release"

// Test seams.
var (
	geteuid  = os.Geteuid
	lookPath = exec.LookPath
)

// RequireRoot fails unless the effective UID is 0. Building installs into
// /usr/local and writes apt configuration, so nothing short of root works.
func RequireRoot() error {
	if geteuid() == 0 {
		return nil
	}
	return issue.NewErrorContext().
		WithOperation("check privileges").
		WithSuggestion("Re-run as root: sudo magickbuild install").
		Wrap(fmt.Errorf("%w: effective UID %d, need 0", issue.ErrPrecondition, geteuid())).
		BuildError()
}

// RequireDebianFamily fails unless the host identifies as Debian or a
// derivative and has apt-get on PATH.
func RequireDebianFamily() error {
	f, err := os.Open(osReleasePath)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("detect OS family").
			WithResource(osReleasePath).
			Wrap(fmt.Errorf("%w: %v", issue.ErrPrecondition, err)).
			BuildError()
	}
	defer func() { _ = f.Close() }() // read-only file

	if !isDebianFamily(f) {
		return issue.NewErrorContext().
			WithOperation("detect OS family").
			WithResource(osReleasePath).
			WithSuggestion("This installer supports Debian and Ubuntu only").
			Wrap(fmt.Errorf("%w: not a Debian-family system", issue.ErrPrecondition)).
			BuildError()
	}

	if _, err := lookPath("apt-get"); err != nil {
		return issue.NewErrorContext().
			WithOperation("locate apt-get").
			Wrap(fmt.Errorf("%w: %v", issue.ErrPrecondition, err)).
			BuildError()
	}

	return nil
}

// EnsureLsbRelease makes sure lsb_release is available, installing the
// lsb-release package when it is not. Output goes to sink only.
func EnsureLsbRelease(ctx context.Context, runner script.Runner, sink io.Writer) error {
	if _, err := lookPath("lsb_release"); err == nil {
		return nil
	}

	res := runner.Run(ctx, script.Script{
		Name:   "install-lsb-release",
		Source: "apt-get install -y lsb-release",
		Stdout: sink,
		Stderr: sink,
	})
	if err := res.AsError("install-lsb-release"); err != nil {
		return fmt.Errorf("%w: installing lsb-release: %v", issue.ErrPrecondition, err)
	}
	return nil
}

// isDebianFamily reports whether an os-release stream identifies Debian or
// a derivative (ID or ID_LIKE mentions debian or ubuntu).
func isDebianFamily(r io.Reader) bool {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if key != "ID" && key != "ID_LIKE" {
			continue
		}
		value = strings.Trim(value, `"`)
		for _, id := range strings.Fields(value) {
			if id == "debian" || id == "ubuntu" {
				return true
			}
		}
	}
	return false
}
