// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"runtime"

	"magickbuild-cli/internal/issue"
	"magickbuild-cli/internal/resolve"
	"magickbuild-cli/internal/script"
)

type (
	// Plan is everything needed to build one package at one version: where
	// its tarball lives, which directory it extracts to, and the configure
	// invocation for its build system.
	Plan struct {
		Package   resolve.Package
		Version   resolve.Version
		URL       string
		SourceDir string // directory the tarball extracts to, relative to the work dir
		Configure string // configure invocation, run inside SourceDir (or a build subdir for CMake)
		BuildDir  string // directory make runs in, relative to the work dir
	}

	// Builder executes plans against a work directory.
	Builder struct {
		runner  script.Runner
		client  *http.Client
		workDir string
		sink    io.Writer
		jobs    int
		load    int
	}

	// Option configures a Builder during construction.
	Option func(*Builder)
)

// WithHTTPClient sets the client used for tarball downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Builder) { b.client = c }
}

// WithParallelism overrides the derived make parallelism.
func WithParallelism(jobs, load int) Option {
	return func(b *Builder) { b.jobs, b.load = jobs, load }
}

// Parallelism derives the make worker settings from the host CPU count:
// jobs = cores + 1, load limit = cores.
func Parallelism() (jobs, load int) {
	cores := runtime.NumCPU()
	return cores + 1, cores
}

// NewBuilder creates a Builder. All subprocess output goes to sink.
func NewBuilder(runner script.Runner, workDir string, sink io.Writer, opts ...Option) *Builder {
	b := &Builder{
		runner:  runner,
		workDir: workDir,
		sink:    sink,
	}
	b.jobs, b.load = Parallelism()
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AomPlan builds aom from the GitHub mirror tag tarball with CMake. src
// carries the repository to download from, honoring mirror overrides.
func AomPlan(src resolve.Source, v resolve.Version) Plan {
	return Plan{
		Package:   resolve.PackageAom,
		Version:   v,
		URL:       fmt.Sprintf("https://github.com/%s/%s/archive/refs/tags/v%s.tar.gz", src.Owner, src.Repo, v),
		SourceDir: "aom-" + v.String(),
		BuildDir:  filepath.Join("aom-"+v.String(), "build.magick"),
		Configure: "cmake .. -DCMAKE_BUILD_TYPE=Release -DBUILD_SHARED_LIBS=1 -DENABLE_TESTS=0 -DENABLE_DOCS=0",
	}
}

// LibheifPlan builds libheif from its release tarball with autotools.
func LibheifPlan(src resolve.Source, v resolve.Version) Plan {
	return Plan{
		Package:   resolve.PackageLibheif,
		Version:   v,
		URL:       fmt.Sprintf("https://github.com/%s/%s/releases/download/v%s/libheif-%s.tar.gz", src.Owner, src.Repo, v, v),
		SourceDir: "libheif-" + v.String(),
		BuildDir:  "libheif-" + v.String(),
		Configure: "./configure --disable-examples",
	}
}

// ImageMagickPlan builds ImageMagick 7 from its tag tarball with autotools.
// C++ bindings and docs are disabled; HEIC support is enabled so the
// freshly built codecs are picked up.
func ImageMagickPlan(src resolve.Source, v resolve.Version) Plan {
	return Plan{
		Package:   resolve.PackageImageMagick,
		Version:   v,
		URL:       fmt.Sprintf("https://github.com/%s/%s/archive/refs/tags/%s.tar.gz", src.Owner, src.Repo, v),
		SourceDir: "ImageMagick-" + v.String(),
		BuildDir:  "ImageMagick-" + v.String(),
		Configure: "./configure --without-magick-plus-plus --disable-docs --disable-dependency-tracking --with-heic=yes",
	}
}

// Build runs the whole plan: download, extract, configure, compile with the
// derived parallelism, install, refresh the linker cache. The first failing
// sub-step aborts with a build error naming the package.
func (b *Builder) Build(ctx context.Context, plan Plan) error {
	archive := filepath.Join(b.workDir, filepath.Base(plan.URL))

	if err := Download(ctx, b.client, plan.URL, archive); err != nil {
		return buildErr(plan.Package, "download", err)
	}

	if err := ExtractTarGz(archive, b.workDir); err != nil {
		return buildErr(plan.Package, "extract", err)
	}

	res := b.runner.Run(ctx, script.Script{
		Name:   "build-" + string(plan.Package),
		Source: b.compileScript(plan),
		Dir:    b.workDir,
		Stdout: b.sink,
		Stderr: b.sink,
	})
	if err := res.AsError("build-" + string(plan.Package)); err != nil {
		return buildErr(plan.Package, "compile", err)
	}

	return nil
}

// compileScript assembles the configure/make/install sequence for a plan.
func (b *Builder) compileScript(plan Plan) string {
	return fmt.Sprintf(`mkdir -p %q
cd %q
%s
make -j %d -l %d
make install
ldconfig`, plan.BuildDir, plan.BuildDir, plan.Configure, b.jobs, b.load)
}

func buildErr(pkg resolve.Package, stage string, err error) error {
	return fmt.Errorf("%w: %s: %s: %v", issue.ErrBuild, pkg, stage, err)
}
