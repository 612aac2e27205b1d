// SPDX-License-Identifier: MPL-2.0

// Package deps prepares the host's build toolchain through apt.
//
// The installer never reimplements package management: everything here is a
// thin, idempotent orchestration of apt-get and dpkg. Packages already
// installed are skipped, deb-src repositories are enabled so the previous
// ImageMagick package's build dependencies can be pulled, and any non-zero
// apt exit classifies as a dependency failure.
package deps

import (
	"context"
	"fmt"
	"io"
	"strings"

	"magickbuild-cli/internal/issue"
	"magickbuild-cli/internal/script"
)

// BasePackages is the toolchain required before any source build starts.
var BasePackages = []string{
	"lsb-release",
	"wget",
	"jq",
	"build-essential",
	"cmake",
	"yasm",
	"pkg-config",
	"autoconf",
	"automake",
	"libtool",
	"git",
}

// Installer runs the install-dependencies step.
type Installer struct {
	runner script.Runner
	sink   io.Writer
	ci     bool // CI mode skips the package index refresh
}

// NewInstaller creates an Installer that sends all apt output to sink.
func NewInstaller(runner script.Runner, sink io.Writer, ci bool) *Installer {
	return &Installer{runner: runner, sink: sink, ci: ci}
}

// Run executes the whole dependency stage: index refresh (unless CI mode),
// base package installation, deb-src enablement, and the ImageMagick
// build-dep pull. The first apt failure aborts with a dependency error.
func (i *Installer) Run(ctx context.Context) error {
	parts := []script.Script{}

	if !i.ci {
		parts = append(parts, script.Script{
			Name:   "apt-update",
			Source: "apt-get update",
		})
	}

	parts = append(parts,
		script.Script{
			Name:   "install-base-packages",
			Source: installMissingScript(BasePackages),
		},
		script.Script{
			Name:   "enable-source-repos",
			Source: enableSourceReposScript(i.ci),
		},
		script.Script{
			Name:   "imagemagick-build-dep",
			Source: "apt-get build-dep -y imagemagick",
		},
	)

	for _, part := range parts {
		part.Stdout = i.sink
		part.Stderr = i.sink
		res := i.runner.Run(ctx, part)
		if err := res.AsError(part.Name); err != nil {
			return fmt.Errorf("%w: %v", issue.ErrDependency, err)
		}
	}

	return nil
}

// installMissingScript builds a shell fragment that installs only the
// packages dpkg does not already know, keeping the step idempotent.
func installMissingScript(packages []string) string {
	return fmt.Sprintf(`missing=""
for pkg in %s; do
  if ! dpkg -s "$pkg" >/dev/null 2>&1; then
    missing="$missing $pkg"
  fi
done
if [ -n "$missing" ]; then
  apt-get install -y --no-install-recommends $missing
fi`, strings.Join(packages, " "))
}

// enableSourceReposScript uncomments deb-src entries so build-dep can see
// source indices, then refreshes them (skipped in CI mode, whose images
// ship with usable indices).
func enableSourceReposScript(ci bool) string {
	s := `sed -i 's/^#[[:space:]]*deb-src/deb-src/' /etc/apt/sources.list
if [ -d /etc/apt/sources.list.d ]; then
  find /etc/apt/sources.list.d -name '*.list' -exec sed -i 's/^#[[:space:]]*deb-src/deb-src/' {} +
fi`
	if !ci {
		s += "\napt-get update"
	}
	return s
}
