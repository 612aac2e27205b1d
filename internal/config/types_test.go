// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"

	"magickbuild-cli/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.WorkDir != "/var/cache/magickbuild/work" {
		t.Errorf("WorkDir = %q", cfg.WorkDir)
	}
	if cfg.LogFile != "/var/log/magickbuild.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.CI {
		t.Error("CI defaults to true, want false")
	}
	if cfg.Build.Jobs != 0 || cfg.Build.Load != 0 {
		t.Errorf("Build = %+v, want zero (derive from CPU count)", cfg.Build)
	}
	if cfg.Finalize.PinPath != "/etc/apt/preferences.d/imagemagick" {
		t.Errorf("PinPath = %q", cfg.Finalize.PinPath)
	}
	if cfg.Finalize.ManifestPath != "/var/lib/magickbuild/manifest.toml" {
		t.Errorf("ManifestPath = %q", cfg.Finalize.ManifestPath)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name: "valid pins",
			mutate: func(c *Config) {
				c.Versions = VersionsConfig{Aom: "3.8.1", Libheif: "1.17.6", ImageMagick: "7.1.1-47"}
			},
		},
		{
			name:    "unparseable pin",
			mutate:  func(c *Config) { c.Versions.ImageMagick = "latest" },
			wantErr: true,
		},
		{
			name:    "empty work_dir",
			mutate:  func(c *Config) { c.WorkDir = "" },
			wantErr: true,
		},
		{
			name:    "whitespace log_file",
			mutate:  func(c *Config) { c.LogFile = "   " },
			wantErr: true,
		},
		{
			name:    "empty pin_path",
			mutate:  func(c *Config) { c.Finalize.PinPath = "" },
			wantErr: true,
		},
		{
			name: "valid mirror",
			mutate: func(c *Config) {
				c.Mirrors.Aom = MirrorConfig{Owner: "jbeich", Repo: "aom"}
			},
		},
		{
			name:    "mirror missing repo",
			mutate:  func(c *Config) { c.Mirrors.Libheif = MirrorConfig{Owner: "strukturag"} },
			wantErr: true,
		},
		{
			name:    "negative jobs",
			mutate:  func(c *Config) { c.Build.Jobs = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateEmptyPathSentinel(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.WorkDir = ""
	err := cfg.Validate()
	if !errors.Is(err, types.ErrInvalidFilesystemPath) {
		t.Errorf("Validate() error = %v, want ErrInvalidFilesystemPath", err)
	}
}

func TestMirrorConfigIsZero(t *testing.T) {
	t.Parallel()

	if !(MirrorConfig{}).IsZero() {
		t.Error("empty mirror should be zero")
	}
	if (MirrorConfig{Owner: "jbeich"}).IsZero() {
		t.Error("partial mirror should not be zero")
	}
}
