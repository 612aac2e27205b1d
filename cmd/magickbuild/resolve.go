// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"magickbuild-cli/internal/config"
	"magickbuild-cli/internal/resolve"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which package versions an install would build",
	Long: `Resolve the aom, libheif, and ImageMagick versions an install would
build, without installing anything. Unpinned packages are looked up from
their upstream release feeds; pinned versions are reported as-is.

Does not require root.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResolve(cmd.Context(), cmd.OutOrStdout())
	},
}

func runResolve(ctx context.Context, out io.Writer) error {
	cfg, _, err := cfgLoader.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return &ExitError{Code: 1, Err: err}
	}

	sources := sourcesFromConfig(cfg)
	pins := map[resolve.Package]string{
		resolve.PackageAom:         cfg.Versions.Aom,
		resolve.PackageLibheif:     cfg.Versions.Libheif,
		resolve.PackageImageMagick: cfg.Versions.ImageMagick,
	}

	resolver := resolve.NewResolver(resolve.NewGitHubClient(
		resolve.WithToken(os.Getenv("GITHUB_TOKEN")),
	))
	versions, err := resolver.ResolveAll(ctx, sources, pins)
	if err != nil {
		renderIssue(os.Stderr, err)
		return &ExitError{Code: 1, Err: err}
	}

	rows := []struct {
		pkg resolve.Package
		v   resolve.Version
	}{
		{resolve.PackageAom, versions.Aom},
		{resolve.PackageLibheif, versions.Libheif},
		{resolve.PackageImageMagick, versions.ImageMagick},
	}
	for _, row := range rows {
		suffix := ""
		if pins[row.pkg] != "" {
			suffix = SubtitleStyle.Render(" (pinned)")
		}
		fmt.Fprintf(out, "%-12s %s%s\n", row.pkg, ValueStyle.Render(row.v.String()), suffix)
	}

	return nil
}
