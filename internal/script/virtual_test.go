// SPDX-License-Identifier: MPL-2.0

package script

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"mvdan.cc/sh/v3/interp"
)

// stubExec intercepts every external command, records the invocation, and
// returns the exit status mapped by fail (missing entries succeed).
func stubExec(calls *[][]string, fail map[string]uint8) func(interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			*calls = append(*calls, args)
			if len(args) > 0 {
				if code, ok := fail[args[0]]; ok {
					return interp.ExitStatus(code)
				}
			}
			return nil
		}
	}
}

func TestVirtualRunnerInterceptsExternalCommands(t *testing.T) {
	t.Parallel()

	var calls [][]string
	r := NewVirtualRunner(stubExec(&calls, nil))

	res := r.Run(context.Background(), Script{
		Name:   "deps",
		Source: "apt-get update\napt-get install -y build-essential",
	})

	if !res.Success() {
		t.Fatalf("Run() = exit %s, err %v", res.ExitCode, res.Err)
	}
	if len(calls) != 2 {
		t.Fatalf("intercepted %d commands, want 2: %v", len(calls), calls)
	}
	if calls[0][0] != "apt-get" || calls[0][1] != "update" {
		t.Errorf("first call = %v", calls[0])
	}
}

func TestVirtualRunnerErrexitStopsSequence(t *testing.T) {
	t.Parallel()

	var calls [][]string
	r := NewVirtualRunner(stubExec(&calls, map[string]uint8{"make": 2}))

	res := r.Run(context.Background(), Script{
		Name:   "build",
		Source: "cmake .\nmake\nmake install",
	})

	if res.Success() {
		t.Fatal("Run() succeeded, want failure from make")
	}
	if res.ExitCode != 2 {
		t.Errorf("ExitCode = %s, want 2", res.ExitCode)
	}
	// errexit: "make install" must never run after "make" fails.
	for _, call := range calls {
		if len(call) >= 2 && call[0] == "make" && call[1] == "install" {
			t.Errorf("make install ran after make failed: %v", calls)
		}
	}
}

func TestVirtualRunnerBuiltinsAndOutput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := NewVirtualRunner() // echo is a shell builtin; no exec handler needed

	res := r.Run(context.Background(), Script{
		Name:   "status",
		Source: `echo "building aom 3.12.1"`,
		Stdout: &out,
	})

	if !res.Success() {
		t.Fatalf("Run() = exit %s, err %v", res.ExitCode, res.Err)
	}
	if got := out.String(); got != "building aom 3.12.1\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestVirtualRunnerParseError(t *testing.T) {
	t.Parallel()

	r := NewVirtualRunner()
	res := r.Run(context.Background(), Script{Name: "broken", Source: `echo "unterminated`})

	if res.Success() {
		t.Fatal("Run() succeeded on unparseable script")
	}
	if res.Err == nil {
		t.Error("parse failure should surface as infrastructure error")
	}
}

func TestVirtualRunnerEnvThreading(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := NewVirtualRunner()

	res := r.Run(context.Background(), Script{
		Name:   "env",
		Source: `echo "jobs=$BUILD_JOBS"`,
		Env:    []string{"BUILD_JOBS=9"},
		Stdout: &out,
	})

	if !res.Success() {
		t.Fatalf("Run() = exit %s, err %v", res.ExitCode, res.Err)
	}
	if got := out.String(); got != "jobs=9\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestVirtualRunnerHandlerChain(t *testing.T) {
	t.Parallel()

	// Two handlers: the outer one rewrites wget to a marker, the inner stub
	// records what actually arrives.
	var calls [][]string
	rewrite := func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			if len(args) > 0 && args[0] == "wget" {
				args = append([]string{"download-stub"}, args[1:]...)
			}
			return next(ctx, args)
		}
	}

	r := NewVirtualRunner(rewrite, stubExec(&calls, nil))
	res := r.Run(context.Background(), Script{
		Name:   "download",
		Source: fmt.Sprintf("wget -c %q", "https://example.com/a.tar.gz"),
	})

	if !res.Success() {
		t.Fatalf("Run() = exit %s, err %v", res.ExitCode, res.Err)
	}
	if len(calls) != 1 || calls[0][0] != "download-stub" {
		t.Errorf("handler chain not applied: %v", calls)
	}
}
