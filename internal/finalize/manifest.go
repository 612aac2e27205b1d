// SPDX-License-Identifier: MPL-2.0

package finalize

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"magickbuild-cli/internal/resolve"

	"github.com/pelletier/go-toml/v2"
)

// DefaultManifestPath records the last successful install.
const DefaultManifestPath = "/var/lib/magickbuild/manifest.toml"

// Manifest describes one completed install. It is what `magickbuild config
// show` and a future uninstall read back.
type Manifest struct {
	Aom         string    `toml:"aom"`
	Libheif     string    `toml:"libheif"`
	ImageMagick string    `toml:"imagemagick"`
	InstalledAt time.Time `toml:"installed_at"`
	LogPath     string    `toml:"log_path"`
	PinPath     string    `toml:"pin_path"`
}

// NewManifest builds a manifest for a just-finished install.
func NewManifest(versions resolve.Versions, logPath, pinPath string) Manifest {
	return Manifest{
		Aom:         versions.Aom.String(),
		Libheif:     versions.Libheif.String(),
		ImageMagick: versions.ImageMagick.String(),
		InstalledAt: time.Now().UTC(),
		LogPath:     logPath,
		PinPath:     pinPath,
	}
}

// WriteManifest serializes m to path, creating parent directories as needed.
func WriteManifest(path string, m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads the manifest at path.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	return m, nil
}
