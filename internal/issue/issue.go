// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Sentinel errors classifying every failure the pipeline can produce.
// All kinds are fatal except ErrVerification, which degrades to a warning.
var (
	// ErrPrecondition covers privilege, OS-family, and tooling checks that
	// run before any work starts.
	ErrPrecondition = errors.New("precondition not met")

	// ErrResolution covers version lookups against release APIs.
	ErrResolution = errors.New("version resolution failed")

	// ErrDependency covers OS package installation via apt.
	ErrDependency = errors.New("dependency installation failed")

	// ErrBuild covers the download/configure/compile/install of one package.
	ErrBuild = errors.New("build failed")

	// ErrVerification covers the post-install version check. Non-fatal.
	ErrVerification = errors.New("verification failed")
)

type (
	// MarkdownMsg is Markdown text that will be rendered for the terminal.
	MarkdownMsg string

	// HTTPLink is a URL pointing at documentation relevant to an issue.
	HTTPLink string

	// StepError is the typed failure result of one pipeline step: which step
	// failed, how it is classified, where the captured subprocess output
	// lives, and the underlying cause. It is propagated unmodified to the
	// top-level reporter instead of each step exiting on its own.
	StepError struct {
		Step    string // pipeline step name, e.g. "build-aom"
		Kind    error  // one of the sentinel kinds above
		LogPath string // log file holding the captured output (may be empty)
		Cause   error  // underlying error (may be nil)
	}

	// Issue pairs an error kind with rendered remediation guidance.
	Issue struct {
		kind     error
		mdMsg    MarkdownMsg
		docLinks []HTTPLink
	}
)

// Error implements the error interface.
func (e *StepError) Error() string {
	msg := fmt.Sprintf("step %s: %v", e.Step, e.Kind)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.LogPath != "" {
		msg += fmt.Sprintf(" (see %s)", e.LogPath)
	}
	return msg
}

// Unwrap exposes both the classification sentinel and the cause,
// so errors.Is works against either.
func (e *StepError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Fatal reports whether the error must abort the pipeline.
// Only verification failures are survivable.
func (e *StepError) Fatal() bool {
	return !errors.Is(e.Kind, ErrVerification)
}

// NewStepError builds a StepError for the given step and classification.
func NewStepError(step string, kind error, logPath string, cause error) *StepError {
	return &StepError{Step: step, Kind: kind, LogPath: logPath, Cause: cause}
}

// Kind returns the classification sentinel of the issue.
func (i *Issue) Kind() error { return i.kind }

// MarkdownMsg returns the raw Markdown remediation text.
func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// DocLinks returns the documentation links attached to the issue.
func (i *Issue) DocLinks() []HTTPLink { return slices.Clone(i.docLinks) }

// Render renders the issue's Markdown guidance with glamour.
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "- " + string(link) + "\n"
		}
	}
	return render(md, stylePath)
}

// Lookup returns the Issue catalog entry matching err's classification,
// or nil when err carries no known kind.
func Lookup(err error) *Issue {
	for _, i := range catalog {
		if errors.Is(err, i.kind) {
			return i
		}
	}
	return nil
}

var (
	render = glamour.Render

	preconditionIssue = &Issue{
		kind: ErrPrecondition,
		mdMsg: `
# The host is not ready for a source build

A precondition check failed before any work started. Nothing was modified.

## Things to check
- Run the installer as root (or via sudo): building and installing touches
  system paths like /usr/local and /etc/apt.
- The host must be a Debian-family system with apt-get available.
- ~~~
  sudo magickbuild install
  ~~~`,
		docLinks: []HTTPLink{"https://imagemagick.org/script/install-source.php"},
	}

	resolutionIssue = &Issue{
		kind: ErrResolution,
		mdMsg: `
# Could not resolve a package version

The release API lookup returned nothing usable. No download or build was
attempted.

## Things you can try
- Check network access to api.github.com.
- Pass the version explicitly to skip the lookup:
  ~~~
  magickbuild install --imagemagick-version 7.1.1-47
  ~~~
- Set GITHUB_TOKEN if you are hitting the unauthenticated rate limit.`,
		docLinks: []HTTPLink{"https://docs.github.com/rest/releases"},
	}

	dependencyIssue = &Issue{
		kind: ErrDependency,
		mdMsg: `
# Installing OS build dependencies failed

apt-get reported a non-zero exit while preparing the build toolchain.

## Things you can try
- Inspect the captured apt output in the log file printed above.
- Make sure deb-src entries are enabled for your release, then retry.
- Run a manual update to surface repository problems:
  ~~~
  sudo apt-get update
  ~~~`,
	}

	buildIssue = &Issue{
		kind: ErrBuild,
		mdMsg: `
# A source build failed

One of the packages (aom, libheif, ImageMagick) failed to download,
configure, compile, or install.

## Things you can try
- The full compiler output is in the log file printed above; the terminal
  only shows per-step status lines.
- Partial sources stay in the work directory when running with --ci, which
  makes it easier to re-run configure/make by hand.`,
	}

	verificationIssue = &Issue{
		kind: ErrVerification,
		mdMsg: `
# Installed version did not match

The build and installation completed, but the installed binary does not
report the requested version. This usually means an older ImageMagick is
shadowing the fresh install on PATH.

## Things you can try
- ~~~
  hash -r && magick --version
  ~~~
- Check that /usr/local/bin precedes /usr/bin in PATH.`,
	}

	catalog = []*Issue{
		preconditionIssue,
		resolutionIssue,
		dependencyIssue,
		buildIssue,
		verificationIssue,
	}
)
