// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"magickbuild-cli/internal/config"
)

// stubConfigProvider returns a fixed configuration, standing in for the
// file-backed provider.
type stubConfigProvider struct {
	cfg  *config.Config
	path string
	err  error
}

func (p *stubConfigProvider) Load(context.Context, config.LoadOptions) (*config.Config, string, error) {
	return p.cfg, p.path, p.err
}

func TestShowConfigUsesProvider(t *testing.T) {
	// Swaps the package-level loader, so no t.Parallel.
	orig := cfgLoader
	t.Cleanup(func() { cfgLoader = orig })

	cfg := config.DefaultConfig()
	cfg.Versions.ImageMagick = "7.1.1-47"
	cfgLoader = &stubConfigProvider{cfg: cfg, path: "/etc/magickbuild/config.cue"}

	var out strings.Builder
	if err := showConfig(context.Background(), &out); err != nil {
		t.Fatalf("showConfig() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"/etc/magickbuild/config.cue",
		"7.1.1-47",
		cfg.WorkDir,
		"(derived from CPU count)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("showConfig output missing %q:\n%s", want, got)
		}
	}
}

func TestInitConfigFileWritesUserConfig(t *testing.T) {
	// Overrides the per-user config directory, so no t.Parallel.
	dir := t.TempDir()
	config.SetConfigDirOverride(dir)
	t.Cleanup(config.Reset)

	var out strings.Builder
	if err := initConfigFile(&out); err != nil {
		t.Fatalf("initConfigFile() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.cue"))
	if err != nil {
		t.Fatalf("reading created config: %v", err)
	}
	if !strings.Contains(string(data), "work_dir") {
		t.Errorf("starter config missing work_dir:\n%s", data)
	}

	out.Reset()
	if err := initConfigFile(&out); err != nil {
		t.Fatalf("initConfigFile() second run error = %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("second run should be a no-op, got:\n%s", out.String())
	}
}
