// SPDX-License-Identifier: MPL-2.0

// Package finalize holds the tail of an install: pin the distro imagemagick
// packages so apt never clobbers the source build, record what was installed
// in the manifest, and verify the binary that ended up on PATH.
package finalize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"magickbuild-cli/internal/issue"
	"magickbuild-cli/internal/resolve"
	"magickbuild-cli/internal/script"
)

// DefaultPinPath is where the apt preference lands on Debian-family systems.
const DefaultPinPath = "/etc/apt/preferences.d/imagemagick"

// pinContent blocks the distro imagemagick packages outright. Priority -1
// means apt will never install them, even on explicit request, so the
// source-built /usr/local install stays authoritative.
const pinContent = `Package: imagemagick imagemagick-* libmagick*
Pin: release *
Pin-Priority: -1
`

// WriteAptPin writes the apt preference file at path, creating parent
// directories as needed.
func WriteAptPin(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating pin directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(pinContent), 0o644); err != nil {
		return fmt.Errorf("writing apt pin %s: %w", path, err)
	}
	return nil
}

// Verify runs the installed magick binary and checks that it reports the
// version that was just built. Failures classify as verification errors,
// which the pipeline treats as warnings rather than aborting: the install
// itself already succeeded.
func Verify(ctx context.Context, runner script.Runner, want resolve.Version) error {
	var out bytes.Buffer
	res := runner.Run(ctx, script.Script{
		Name:   "verify-imagemagick",
		Source: "magick --version",
		Stdout: &out,
		Stderr: &out,
	})
	if err := res.AsError("verify-imagemagick"); err != nil {
		return fmt.Errorf("%w: %v", issue.ErrVerification, err)
	}

	if !strings.Contains(out.String(), want.String()) {
		return fmt.Errorf("%w: magick --version reports %q, want version %s",
			issue.ErrVerification, firstLine(out.String()), want)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
