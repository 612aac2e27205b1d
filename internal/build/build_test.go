// SPDX-License-Identifier: MPL-2.0

package build

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime"
	"strings"
	"testing"

	"magickbuild-cli/internal/issue"
	"magickbuild-cli/internal/resolve"
	"magickbuild-cli/internal/script"

	"mvdan.cc/sh/v3/interp"
)

// toolchainStub records every external command the compile script runs and
// fails the ones listed in failing.
type toolchainStub struct {
	failing map[string]uint8
	calls   []string
}

func (s *toolchainStub) handler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		line := strings.Join(args, " ")
		s.calls = append(s.calls, line)
		for prefix, code := range s.failing {
			if strings.HasPrefix(line, prefix) {
				return interp.ExitStatus(code)
			}
		}
		return nil
	}
}

// sourceServer serves a minimal tarball whose top-level directory matches
// the plan's source directory, regardless of the requested path.
func sourceServer(t *testing.T, sourceDir string) *httptest.Server {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	files := []struct{ name, body string }{
		{name: sourceDir + "/configure", body: "#!/bin/sh\n"},
		{name: sourceDir + "/Makefile", body: "all:\n"},
	}
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0o755, Size: int64(len(f.body))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if _, err := tw.Write([]byte(f.body)); err != nil {
			t.Fatalf("writing tar body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

// rewriteURL points a plan's tarball URL at the test server, keeping the
// original path so the archive keeps its file name.
func rewriteURL(t *testing.T, plan Plan, srv *httptest.Server) Plan {
	t.Helper()
	u, err := url.Parse(plan.URL)
	if err != nil {
		t.Fatalf("parsing plan URL: %v", err)
	}
	plan.URL = srv.URL + u.Path
	return plan
}

func TestParallelismDerivesFromCPUCount(t *testing.T) {
	t.Parallel()

	jobs, load := Parallelism()
	if want := runtime.NumCPU() + 1; jobs != want {
		t.Errorf("jobs = %d, want %d", jobs, want)
	}
	if want := runtime.NumCPU(); load != want {
		t.Errorf("load = %d, want %d", load, want)
	}
}

func TestPlans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		plan       Plan
		pkg        resolve.Package
		wantURL    string
		wantSource string
	}{
		{
			name:       "aom",
			plan:       AomPlan(resolve.DefaultSources()[resolve.PackageAom], resolve.MustParseVersion("3.8.1")),
			pkg:        resolve.PackageAom,
			wantURL:    "https://github.com/jbeich/aom/archive/refs/tags/v3.8.1.tar.gz",
			wantSource: "aom-3.8.1",
		},
		{
			name:       "libheif",
			plan:       LibheifPlan(resolve.DefaultSources()[resolve.PackageLibheif], resolve.MustParseVersion("1.17.6")),
			pkg:        resolve.PackageLibheif,
			wantURL:    "https://github.com/strukturag/libheif/releases/download/v1.17.6/libheif-1.17.6.tar.gz",
			wantSource: "libheif-1.17.6",
		},
		{
			name:       "imagemagick",
			plan:       ImageMagickPlan(resolve.DefaultSources()[resolve.PackageImageMagick], resolve.MustParseVersion("7.1.1-47")),
			pkg:        resolve.PackageImageMagick,
			wantURL:    "https://github.com/ImageMagick/ImageMagick/archive/refs/tags/7.1.1-47.tar.gz",
			wantSource: "ImageMagick-7.1.1-47",
		},
		{
			name:       "aom mirror override",
			plan:       AomPlan(resolve.Source{Owner: "example", Repo: "aom-fork"}, resolve.MustParseVersion("3.8.1")),
			pkg:        resolve.PackageAom,
			wantURL:    "https://github.com/example/aom-fork/archive/refs/tags/v3.8.1.tar.gz",
			wantSource: "aom-3.8.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.plan.Package != tt.pkg {
				t.Errorf("Package = %q, want %q", tt.plan.Package, tt.pkg)
			}
			if tt.plan.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", tt.plan.URL, tt.wantURL)
			}
			if tt.plan.SourceDir != tt.wantSource {
				t.Errorf("SourceDir = %q, want %q", tt.plan.SourceDir, tt.wantSource)
			}
		})
	}
}

func TestBuildRunsToolchainInOrder(t *testing.T) {
	t.Parallel()

	plan := ImageMagickPlan(resolve.DefaultSources()[resolve.PackageImageMagick], resolve.MustParseVersion("7.1.1-47"))
	srv := sourceServer(t, plan.SourceDir)
	plan = rewriteURL(t, plan, srv)

	stub := &toolchainStub{}
	builder := NewBuilder(
		script.NewVirtualRunner(stub.handler),
		t.TempDir(),
		nil,
		WithHTTPClient(srv.Client()),
		WithParallelism(5, 4),
	)

	if err := builder.Build(context.Background(), plan); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var external []string
	for _, call := range stub.calls {
		if !strings.HasPrefix(call, "mkdir") {
			external = append(external, call)
		}
	}

	want := []string{
		plan.Configure,
		"make -j 5 -l 4",
		"make install",
		"ldconfig",
	}
	if len(external) != len(want) {
		t.Fatalf("commands = %q, want %q", external, want)
	}
	for i, line := range want {
		if external[i] != line {
			t.Errorf("command %d = %q, want %q", i, external[i], line)
		}
	}
}

func TestBuildClassifiesCompileFailure(t *testing.T) {
	t.Parallel()

	plan := ImageMagickPlan(resolve.DefaultSources()[resolve.PackageImageMagick], resolve.MustParseVersion("7.1.1-47"))
	srv := sourceServer(t, plan.SourceDir)
	plan = rewriteURL(t, plan, srv)

	stub := &toolchainStub{failing: map[string]uint8{"make -j": 2}}
	builder := NewBuilder(
		script.NewVirtualRunner(stub.handler),
		t.TempDir(),
		nil,
		WithHTTPClient(srv.Client()),
	)

	err := builder.Build(context.Background(), plan)
	if !errors.Is(err, issue.ErrBuild) {
		t.Fatalf("Build() error = %v, want build classification", err)
	}
	if !strings.Contains(err.Error(), string(resolve.PackageImageMagick)) {
		t.Errorf("Build() error = %v, want package name in message", err)
	}

	// Errexit: the failing make stops the script before install.
	for _, call := range stub.calls {
		if call == "make install" {
			t.Error("make install ran after make failed")
		}
	}
}

func TestBuildClassifiesDownloadFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	plan := AomPlan(resolve.DefaultSources()[resolve.PackageAom], resolve.MustParseVersion("3.8.1"))
	plan.URL = fmt.Sprintf("%s/v3.8.1.tar.gz", srv.URL)

	builder := NewBuilder(
		script.NewVirtualRunner(),
		t.TempDir(),
		nil,
		WithHTTPClient(srv.Client()),
	)

	err := builder.Build(context.Background(), plan)
	if !errors.Is(err, issue.ErrBuild) {
		t.Errorf("Build() error = %v, want build classification", err)
	}
}
