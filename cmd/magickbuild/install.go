// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"magickbuild-cli/internal/build"
	"magickbuild-cli/internal/config"
	"magickbuild-cli/internal/deps"
	"magickbuild-cli/internal/finalize"
	"magickbuild-cli/internal/issue"
	"magickbuild-cli/internal/pipeline"
	"magickbuild-cli/internal/precheck"
	"magickbuild-cli/internal/resolve"
	"magickbuild-cli/internal/script"
	"magickbuild-cli/internal/workspace"

	"github.com/spf13/cobra"
)

type installOptions struct {
	aomVersion         string
	libheifVersion     string
	imagemagickVersion string
	ci                 bool
	workDir            string
	logFile            string
	dryRun             bool
	keepWorkDir        bool
}

var (
	installOpts installOptions

	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Build and install aom, libheif, and ImageMagick 7",
		Long: `Build and install aom, libheif, and ImageMagick 7 from source.

The install runs as an ordered pipeline: resolve versions, install apt
build dependencies, build the three packages, then pin the distro
imagemagick packages and verify the result. Each step must succeed before
the next starts; full subprocess output goes to the log file while the
terminal shows one status line per step.

Must run as root on a Debian or Ubuntu system.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), cmd.OutOrStdout(), installOpts)
		},
	}
)

func init() {
	f := installCmd.Flags()
	f.StringVar(&installOpts.imagemagickVersion, "imagemagick-version", "", "pin the ImageMagick version (e.g. 7.1.1-47)")
	f.StringVar(&installOpts.aomVersion, "aom-version", "", "pin the aom version")
	f.StringVar(&installOpts.libheifVersion, "libheif-version", "", "pin the libheif version")
	f.BoolVar(&installOpts.ci, "ci", false, "CI mode: skip apt index refreshes, keep the work directory")
	f.BoolVar(&installOpts.ci, "travis", false, "alias for --ci")
	_ = f.MarkHidden("travis")
	f.StringVar(&installOpts.workDir, "work-dir", "", "override the build work directory")
	f.StringVar(&installOpts.logFile, "log-file", "", "override the log file path")
	f.BoolVar(&installOpts.dryRun, "dry-run", false, "print the install plan without executing it")
	f.BoolVar(&installOpts.keepWorkDir, "keep-work-dir", false, "keep the work directory after the run")
}

func runInstall(ctx context.Context, out io.Writer, opts installOptions) error {
	cfg, _, err := cfgLoader.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return &ExitError{Code: 1, Err: err}
	}
	applyInstallFlags(cfg, opts)

	sources := sourcesFromConfig(cfg)
	pins := map[resolve.Package]string{
		resolve.PackageAom:         cfg.Versions.Aom,
		resolve.PackageLibheif:     cfg.Versions.Libheif,
		resolve.PackageImageMagick: cfg.Versions.ImageMagick,
	}

	if opts.dryRun {
		return printInstallPlan(out, cfg, sources, pins)
	}

	if err := precheck.RequireRoot(); err != nil {
		return installError(err)
	}
	if err := precheck.RequireDebianFamily(); err != nil {
		return installError(err)
	}

	keep := opts.keepWorkDir || cfg.CI
	ws, err := workspace.Acquire(cfg.WorkDir, cfg.LogFile, keep)
	if err != nil {
		return installError(err)
	}
	defer func() { _ = ws.Close() }()

	runner := script.NewNativeRunner()
	resolver := resolve.NewResolver(resolve.NewGitHubClient(
		resolve.WithToken(os.Getenv("GITHUB_TOKEN")),
	))
	jobs, load := buildParallelism(cfg)
	builder := build.NewBuilder(runner, ws.Dir, ws.Sink(), build.WithParallelism(jobs, load))

	// Resolved by the first step, read by the rest. The engine runs steps
	// strictly in order, so no synchronization is needed.
	var versions *resolve.Versions

	engine := pipeline.New(out, ws.Logger(), ws.LogPath)
	engine.Add(
		pipeline.Step{
			Name:  "resolve-versions",
			Label: "Resolving package versions",
			Kind:  issue.ErrResolution,
			Run: func(ctx context.Context) error {
				vs, err := resolver.ResolveAll(ctx, sources, pins)
				if err != nil {
					return err
				}
				if err := vs.Validate(); err != nil {
					return err
				}
				versions = vs
				ws.Logger().Info("versions resolved",
					"aom", vs.Aom, "libheif", vs.Libheif, "imagemagick", vs.ImageMagick)
				return nil
			},
		},
		pipeline.Step{
			Name:  "install-dependencies",
			Label: "Installing build dependencies",
			Kind:  issue.ErrDependency,
			Run: func(ctx context.Context) error {
				if err := precheck.EnsureLsbRelease(ctx, runner, ws.Sink()); err != nil {
					return err
				}
				return deps.NewInstaller(runner, ws.Sink(), cfg.CI).Run(ctx)
			},
		},
		pipeline.Step{
			Name:  "build-aom",
			Label: "Building aom",
			Kind:  issue.ErrBuild,
			Run: func(ctx context.Context) error {
				return builder.Build(ctx, build.AomPlan(sources[resolve.PackageAom], versions.Aom))
			},
		},
		pipeline.Step{
			Name:  "build-libheif",
			Label: "Building libheif",
			Kind:  issue.ErrBuild,
			Run: func(ctx context.Context) error {
				return builder.Build(ctx, build.LibheifPlan(sources[resolve.PackageLibheif], versions.Libheif))
			},
		},
		pipeline.Step{
			Name:  "build-imagemagick",
			Label: "Building ImageMagick",
			Kind:  issue.ErrBuild,
			Run: func(ctx context.Context) error {
				return builder.Build(ctx, build.ImageMagickPlan(sources[resolve.PackageImageMagick], versions.ImageMagick))
			},
		},
		pipeline.Step{
			Name:  "finalize-and-verify",
			Label: "Pinning apt packages and verifying",
			Kind:  issue.ErrVerification,
			Run: func(ctx context.Context) error {
				// Pin and manifest failures are fatal; only the verification
				// itself downgrades to a warning.
				if err := finalize.WriteAptPin(cfg.Finalize.PinPath); err != nil {
					return issue.NewStepError("finalize-and-verify", issue.ErrPrecondition, ws.LogPath, err)
				}
				m := finalize.NewManifest(*versions, cfg.LogFile, cfg.Finalize.PinPath)
				if err := finalize.WriteManifest(cfg.Finalize.ManifestPath, m); err != nil {
					return issue.NewStepError("finalize-and-verify", issue.ErrPrecondition, ws.LogPath, err)
				}
				return finalize.Verify(ctx, runner, versions.ImageMagick)
			},
		},
	)

	summary, err := engine.Run(ctx)
	if err != nil {
		renderIssue(os.Stderr, err)
		return &ExitError{Code: 1, Err: err}
	}

	printInstallSummary(out, summary, versions, cfg)
	return nil
}

// applyInstallFlags overlays command-line flags on the loaded config.
// Flags win over config file values.
func applyInstallFlags(cfg *config.Config, opts installOptions) {
	if opts.aomVersion != "" {
		cfg.Versions.Aom = opts.aomVersion
	}
	if opts.libheifVersion != "" {
		cfg.Versions.Libheif = opts.libheifVersion
	}
	if opts.imagemagickVersion != "" {
		cfg.Versions.ImageMagick = opts.imagemagickVersion
	}
	if opts.ci {
		cfg.CI = true
	}
	if opts.workDir != "" {
		cfg.WorkDir = opts.workDir
	}
	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}
}

// sourcesFromConfig starts from the built-in upstream locations and applies
// any mirror overrides from the config.
func sourcesFromConfig(cfg *config.Config) map[resolve.Package]resolve.Source {
	sources := resolve.DefaultSources()

	overrides := []struct {
		pkg    resolve.Package
		mirror config.MirrorConfig
	}{
		{resolve.PackageAom, cfg.Mirrors.Aom},
		{resolve.PackageLibheif, cfg.Mirrors.Libheif},
		{resolve.PackageImageMagick, cfg.Mirrors.ImageMagick},
	}
	for _, o := range overrides {
		if o.mirror.IsZero() {
			continue
		}
		src := sources[o.pkg]
		src.Owner = o.mirror.Owner
		src.Repo = o.mirror.Repo
		sources[o.pkg] = src
	}

	return sources
}

// buildParallelism returns the configured make parallelism, deriving from
// the CPU count when the config leaves it at zero.
func buildParallelism(cfg *config.Config) (jobs, load int) {
	jobs, load = build.Parallelism()
	if cfg.Build.Jobs > 0 {
		jobs = cfg.Build.Jobs
	}
	if cfg.Build.Load > 0 {
		load = cfg.Build.Load
	}
	return jobs, load
}

// printInstallPlan describes what an install would do without touching the
// system. Pinned versions are shown as-is; unpinned packages show their
// lookup source since resolution happens at install time.
func printInstallPlan(out io.Writer, cfg *config.Config, sources map[resolve.Package]resolve.Source, pins map[resolve.Package]string) error {
	jobs, load := buildParallelism(cfg)

	fmt.Fprintln(out, TitleStyle.Render("Install plan")+SubtitleStyle.Render(" (dry run, nothing executed)"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s: %s\n", "Work directory", ValueStyle.Render(cfg.WorkDir))
	fmt.Fprintf(out, "%s: %s\n", "Log file", ValueStyle.Render(cfg.LogFile))
	fmt.Fprintf(out, "%s: %s\n", "Make parallelism", ValueStyle.Render(fmt.Sprintf("-j %d -l %d", jobs, load)))
	fmt.Fprintln(out)

	for _, pkg := range []resolve.Package{resolve.PackageAom, resolve.PackageLibheif, resolve.PackageImageMagick} {
		src := sources[pkg]
		version := pins[pkg]
		if version == "" {
			version = fmt.Sprintf("latest from %s/%s (%s)", src.Owner, src.Repo, src.Lookup)
		} else {
			version += " (pinned)"
		}
		fmt.Fprintf(out, "%-12s %s\n", pkg, ValueStyle.Render(version))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Steps:")
	steps := []string{
		"resolve-versions",
		"install-dependencies",
		"build-aom",
		"build-libheif",
		"build-imagemagick",
		"finalize-and-verify",
	}
	for i, step := range steps {
		fmt.Fprintf(out, "  %d. %s\n", i+1, step)
	}

	return nil
}

// printInstallSummary reports the outcome of a completed run, including any
// non-fatal verification warnings.
func printInstallSummary(out io.Writer, summary *pipeline.Summary, versions *resolve.Versions, cfg *config.Config) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, SuccessStyle.Render("✓")+" ImageMagick "+ValueStyle.Render(versions.ImageMagick.String())+
		" installed (aom "+versions.Aom.String()+", libheif "+versions.Libheif.String()+")")
	fmt.Fprintf(out, "  log: %s\n", cfg.LogFile)
	fmt.Fprintf(out, "  apt pin: %s\n", cfg.Finalize.PinPath)

	for _, warning := range summary.Warnings {
		fmt.Fprintln(out, WarningStyle.Render("warning: ")+warning.Error())
	}
}

// renderIssue prints remediation guidance for a known failure class.
func renderIssue(w io.Writer, err error) {
	iss := issue.Lookup(err)
	if iss == nil {
		return
	}
	if rendered, renderErr := iss.Render("dark"); renderErr == nil {
		fmt.Fprint(w, rendered)
	}
}

func installError(err error) error {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	return &ExitError{Code: 1, Err: err}
}
