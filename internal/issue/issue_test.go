// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStepErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       *StepError
		wantKind  error
		wantFatal bool
	}{
		{
			name:      "precondition is fatal",
			err:       NewStepError("precheck", ErrPrecondition, "", errors.New("not root")),
			wantKind:  ErrPrecondition,
			wantFatal: true,
		},
		{
			name:      "resolution is fatal",
			err:       NewStepError("resolve-versions", ErrResolution, "", errors.New("empty tag list")),
			wantKind:  ErrResolution,
			wantFatal: true,
		},
		{
			name:      "dependency is fatal",
			err:       NewStepError("install-dependencies", ErrDependency, "/var/log/magickbuild.log", errors.New("apt-get exit 100")),
			wantKind:  ErrDependency,
			wantFatal: true,
		},
		{
			name:      "build is fatal",
			err:       NewStepError("build-aom", ErrBuild, "/var/log/magickbuild.log", errors.New("make exit 2")),
			wantKind:  ErrBuild,
			wantFatal: true,
		},
		{
			name:      "verification is non-fatal",
			err:       NewStepError("finalize-and-verify", ErrVerification, "", nil),
			wantKind:  ErrVerification,
			wantFatal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if !errors.Is(tt.err, tt.wantKind) {
				t.Errorf("errors.Is(err, kind) = false, want true for %v", tt.wantKind)
			}
			if got := tt.err.Fatal(); got != tt.wantFatal {
				t.Errorf("Fatal() = %v, want %v", got, tt.wantFatal)
			}
		})
	}
}

func TestStepErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewStepError("build-aom", ErrBuild, "/var/log/magickbuild.log", errors.New("make exit 2"))

	msg := err.Error()
	for _, want := range []string{"build-aom", "build failed", "make exit 2", "/var/log/magickbuild.log"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestStepErrorUnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := NewStepError("resolve-versions", ErrResolution, "", fmt.Errorf("querying tags: %w", cause))

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantNil bool
	}{
		{name: "step error with build kind", err: NewStepError("build-libheif", ErrBuild, "", nil)},
		{name: "bare sentinel", err: ErrVerification},
		{name: "wrapped sentinel", err: fmt.Errorf("outer: %w", ErrPrecondition)},
		{name: "unknown error", err: errors.New("something else"), wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Lookup(tt.err)
			if (got == nil) != tt.wantNil {
				t.Errorf("Lookup() = %v, wantNil %v", got, tt.wantNil)
			}
			if got != nil && !errors.Is(tt.err, got.Kind()) {
				t.Errorf("Lookup() returned issue with kind %v not matching %v", got.Kind(), tt.err)
			}
		})
	}
}

func TestIssueRender(t *testing.T) {
	t.Parallel()

	// Stub the glamour renderer; rendering real ANSI is covered manually.
	orig := render
	render = func(in, _ string) (string, error) { return in, nil }
	defer func() { render = orig }()

	out, err := resolutionIssue.Render("dark")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "Could not resolve") {
		t.Errorf("Render() output missing headline: %q", out)
	}
	if !strings.Contains(out, "See also") {
		t.Errorf("Render() output missing doc links section: %q", out)
	}
}

func TestActionableErrorFormat(t *testing.T) {
	t.Parallel()

	cause := errors.New("404 Not Found")
	ae := NewErrorContext().
		WithOperation("resolve libheif version").
		WithResource("strukturag/libheif").
		WithSuggestion("Pass --libheif-version to skip the lookup").
		Wrap(cause).
		Build()

	if ae == nil {
		t.Fatal("Build() returned nil with operation set")
	}

	short := ae.Format(false)
	if !strings.Contains(short, "failed to resolve libheif version") {
		t.Errorf("Format(false) = %q, missing operation", short)
	}
	if !strings.Contains(short, "•") {
		t.Errorf("Format(false) = %q, missing suggestion bullet", short)
	}
	if strings.Contains(short, "Error chain") {
		t.Errorf("Format(false) = %q, should not include error chain", short)
	}

	long := ae.Format(true)
	if !strings.Contains(long, "Error chain") {
		t.Errorf("Format(true) = %q, missing error chain", long)
	}
	if !errors.Is(ae, cause) {
		t.Error("errors.Is(ae, cause) = false, want true")
	}
}

func TestErrorContextRequiresOperation(t *testing.T) {
	t.Parallel()

	if got := NewErrorContext().WithResource("x").BuildError(); got != nil {
		t.Errorf("BuildError() without operation = %v, want nil", got)
	}
}

func TestWrapWithOperationNil(t *testing.T) {
	t.Parallel()

	if got := WrapWithOperation(nil, "anything"); got != nil {
		t.Errorf("WrapWithOperation(nil) = %v, want nil", got)
	}
}
