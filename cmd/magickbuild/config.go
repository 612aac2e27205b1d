// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"magickbuild-cli/internal/config"

	"github.com/spf13/cobra"
)

// configCmd is the `magickbuild config` command tree.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage magickbuild configuration",
	Long: `Manage magickbuild configuration.

Configuration is read from:
  - the file given via --config, when set
  - /etc/magickbuild/config.cue
  - $XDG_CONFIG_HOME/magickbuild/config.cue (default ~/.config/magickbuild/config.cue)

With no file present, built-in defaults apply.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), cmd.OutOrStdout())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := cfgLoader.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: cfgFile})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a starter configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile(cmd.OutOrStdout())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(cmd.OutOrStdout())
		},
	})
}

func showConfig(ctx context.Context, out io.Writer) error {
	cfg, resolvedPath, err := cfgLoader.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return err
	}

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	if resolvedPath != "" {
		fmt.Fprintf(out, "%s: %s\n", ValueStyle.Render("Config file"), resolvedPath)
	} else {
		fmt.Fprintf(out, "%s: %s\n", ValueStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "%s: %s\n", ValueStyle.Render("work_dir"), cfg.WorkDir)
	fmt.Fprintf(out, "%s: %s\n", ValueStyle.Render("log_file"), cfg.LogFile)
	fmt.Fprintf(out, "%s: %v\n", ValueStyle.Render("ci"), cfg.CI)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", ValueStyle.Render("versions"))
	pins := []struct{ name, value string }{
		{name: "aom", value: cfg.Versions.Aom},
		{name: "libheif", value: cfg.Versions.Libheif},
		{name: "imagemagick", value: cfg.Versions.ImageMagick},
	}
	for _, pin := range pins {
		if pin.value == "" {
			fmt.Fprintf(out, "  %s: %s\n", pin.name, SubtitleStyle.Render("(latest)"))
		} else {
			fmt.Fprintf(out, "  %s: %s\n", pin.name, pin.value)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", ValueStyle.Render("build"))
	fmt.Fprintf(out, "  jobs: %s\n", formatParallelism(cfg.Build.Jobs))
	fmt.Fprintf(out, "  load: %s\n", formatParallelism(cfg.Build.Load))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", ValueStyle.Render("finalize"))
	fmt.Fprintf(out, "  pin_path: %s\n", cfg.Finalize.PinPath)
	fmt.Fprintf(out, "  manifest_path: %s\n", cfg.Finalize.ManifestPath)

	return nil
}

func formatParallelism(n int) string {
	if n == 0 {
		return SubtitleStyle.Render("(derived from CPU count)")
	}
	return fmt.Sprintf("%d", n)
}

func initConfigFile(out io.Writer) error {
	cfgDir, err := config.UserConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Fprintf(out, "Configuration file already exists at %s\n", cfgPath)
		return nil
	}

	content := config.GenerateCUE(config.DefaultConfig())
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "%s Created configuration at %s\n", SuccessStyle.Render("✓"), cfgPath)
	return nil
}

func showConfigPath(out io.Writer) error {
	cfgDir, err := config.UserConfigDir()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "System config file: /etc/magickbuild/config.cue\n")
	fmt.Fprintf(out, "User config file: %s\n", filepath.Join(cfgDir, "config.cue"))
	return nil
}
