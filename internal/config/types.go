// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"magickbuild-cli/internal/resolve"
	"magickbuild-cli/pkg/types"
)

type (
	// Config is the full tool configuration. Every field has a working
	// default; a config file only needs to state deviations.
	Config struct {
		// WorkDir is where tarballs are downloaded and compiled.
		WorkDir string `mapstructure:"work_dir"`

		// LogFile receives the full subprocess output of a run.
		LogFile string `mapstructure:"log_file"`

		// CI skips apt index refreshes, for hosted runners with a fresh
		// image.
		CI bool `mapstructure:"ci"`

		Build    BuildConfig    `mapstructure:"build"`
		Versions VersionsConfig `mapstructure:"versions"`
		Mirrors  MirrorsConfig  `mapstructure:"mirrors"`
		Finalize FinalizeConfig `mapstructure:"finalize"`
	}

	// BuildConfig overrides the make parallelism. Zero means derive from
	// the host CPU count.
	BuildConfig struct {
		Jobs int `mapstructure:"jobs"`
		Load int `mapstructure:"load"`
	}

	// VersionsConfig pins package versions. An empty field means resolve
	// the latest upstream version at run time.
	VersionsConfig struct {
		Aom         string `mapstructure:"aom"`
		Libheif     string `mapstructure:"libheif"`
		ImageMagick string `mapstructure:"imagemagick"`
	}

	// MirrorConfig redirects one package's version lookup and tarballs to
	// an alternative GitHub repository.
	MirrorConfig struct {
		Owner string `mapstructure:"owner"`
		Repo  string `mapstructure:"repo"`
	}

	// MirrorsConfig holds per-package mirror overrides.
	MirrorsConfig struct {
		Aom         MirrorConfig `mapstructure:"aom"`
		Libheif     MirrorConfig `mapstructure:"libheif"`
		ImageMagick MirrorConfig `mapstructure:"imagemagick"`
	}

	// FinalizeConfig controls where the apt pin and install manifest land.
	FinalizeConfig struct {
		PinPath      string `mapstructure:"pin_path"`
		ManifestPath string `mapstructure:"manifest_path"`
	}
)

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		WorkDir: "/var/cache/magickbuild/work",
		LogFile: "/var/log/magickbuild.log",
		Finalize: FinalizeConfig{
			PinPath:      "/etc/apt/preferences.d/imagemagick",
			ManifestPath: "/var/lib/magickbuild/manifest.toml",
		},
	}
}

// IsZero reports whether no mirror override is set.
func (m MirrorConfig) IsZero() bool {
	return m.Owner == "" && m.Repo == ""
}

// Validate checks constraints the CUE schema cannot express: paths must
// point somewhere, pinned versions must parse, and a mirror override needs
// both owner and repo.
func (c *Config) Validate() error {
	paths := []struct {
		field string
		value types.FilesystemPath
	}{
		{field: "work_dir", value: types.FilesystemPath(c.WorkDir)},
		{field: "log_file", value: types.FilesystemPath(c.LogFile)},
		{field: "finalize.pin_path", value: types.FilesystemPath(c.Finalize.PinPath)},
		{field: "finalize.manifest_path", value: types.FilesystemPath(c.Finalize.ManifestPath)},
	}
	for _, p := range paths {
		if err := p.value.Validate(); err != nil {
			return fmt.Errorf("%s: %w", p.field, err)
		}
	}

	pins := []struct {
		field string
		value string
	}{
		{field: "versions.aom", value: c.Versions.Aom},
		{field: "versions.libheif", value: c.Versions.Libheif},
		{field: "versions.imagemagick", value: c.Versions.ImageMagick},
	}
	for _, pin := range pins {
		if pin.value == "" {
			continue
		}
		if _, err := resolve.ParseVersion(pin.value); err != nil {
			return fmt.Errorf("%s: %w", pin.field, err)
		}
	}

	mirrors := []struct {
		field string
		value MirrorConfig
	}{
		{field: "mirrors.aom", value: c.Mirrors.Aom},
		{field: "mirrors.libheif", value: c.Mirrors.Libheif},
		{field: "mirrors.imagemagick", value: c.Mirrors.ImageMagick},
	}
	for _, m := range mirrors {
		if m.value.IsZero() {
			continue
		}
		if m.value.Owner == "" || m.value.Repo == "" {
			return fmt.Errorf("%s: both owner and repo are required", m.field)
		}
	}

	if c.Build.Jobs < 0 || c.Build.Load < 0 {
		return fmt.Errorf("build.jobs and build.load must be non-negative")
	}

	return nil
}
