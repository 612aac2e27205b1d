// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"magickbuild-cli/internal/issue"
	"magickbuild-cli/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "magickbuild"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"

	// systemConfigDir is checked before the per-user directory; the tool
	// runs as root and a host-wide config is the common case.
	systemConfigDir = "/etc/magickbuild"
)

//go:embed config_schema.cue
var configSchema string

// UserConfigDir returns the per-user configuration directory,
// $XDG_CONFIG_HOME/magickbuild (defaulting to ~/.config/magickbuild).
func UserConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("work_dir", defaults.WorkDir)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("ci", defaults.CI)
	v.SetDefault("build.jobs", defaults.Build.Jobs)
	v.SetDefault("build.load", defaults.Build.Load)
	v.SetDefault("finalize.pin_path", defaults.Finalize.PinPath)
	v.SetDefault("finalize.manifest_path", defaults.Finalize.ManifestPath)

	resolvedPath := ""

	// An explicit --config path is used exclusively; a missing file there
	// is an error rather than a silent fallback.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'magickbuild config show' to see default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", configParseError(opts.ConfigFilePath, err)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		for _, candidate := range searchPaths(opts.ConfigDirPath) {
			if !fileExists(candidate) {
				continue
			}
			if err := loadCUEIntoViper(v, candidate); err != nil {
				return nil, "", configParseError(candidate, err)
			}
			resolvedPath = candidate
			break
		}
		// No config file found: defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Pinned versions must be numeric, e.g. \"7.1.1-47\"").
			WithSuggestion("Mirror overrides need both owner and repo").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// searchPaths lists candidate config files in precedence order.
func searchPaths(configDirPath string) []string {
	file := ConfigFileName + "." + ConfigFileExt

	if configDirPath != "" {
		return []string{filepath.Join(configDirPath, file)}
	}

	paths := []string{filepath.Join(systemConfigDir, file)}
	if userDir, err := UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(userDir, file))
	}
	return paths
}

func configParseError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("See 'magickbuild config --help' for configuration options").
		Wrap(err).
		BuildError()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema, and merges its contents into Viper. Config fields are optional,
// so concreteness is not required after unification.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	result, err := cueutil.ParseAndDecodeString[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false))
	if err != nil {
		return err
	}

	// Merge into Viper, preserving defaults for unset fields.
	if err := v.MergeConfigMap(*result.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE generates a CUE representation of the configuration, used by
// `magickbuild config show` and when writing a starter config file.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// magickbuild configuration file.\n\n")
	sb.WriteString(fmt.Sprintf("work_dir: %q\n", cfg.WorkDir))
	sb.WriteString(fmt.Sprintf("log_file: %q\n", cfg.LogFile))
	sb.WriteString(fmt.Sprintf("ci: %v\n", cfg.CI))

	sb.WriteString("\nbuild: {\n")
	sb.WriteString(fmt.Sprintf("\tjobs: %d\n", cfg.Build.Jobs))
	sb.WriteString(fmt.Sprintf("\tload: %d\n", cfg.Build.Load))
	sb.WriteString("}\n")

	if cfg.Versions != (VersionsConfig{}) {
		sb.WriteString("\nversions: {\n")
		if cfg.Versions.Aom != "" {
			sb.WriteString(fmt.Sprintf("\taom: %q\n", cfg.Versions.Aom))
		}
		if cfg.Versions.Libheif != "" {
			sb.WriteString(fmt.Sprintf("\tlibheif: %q\n", cfg.Versions.Libheif))
		}
		if cfg.Versions.ImageMagick != "" {
			sb.WriteString(fmt.Sprintf("\timagemagick: %q\n", cfg.Versions.ImageMagick))
		}
		sb.WriteString("}\n")
	}

	sb.WriteString("\nfinalize: {\n")
	sb.WriteString(fmt.Sprintf("\tpin_path: %q\n", cfg.Finalize.PinPath))
	sb.WriteString(fmt.Sprintf("\tmanifest_path: %q\n", cfg.Finalize.ManifestPath))
	sb.WriteString("}\n")

	return sb.String()
}
