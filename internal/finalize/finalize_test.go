// SPDX-License-Identifier: MPL-2.0

package finalize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"magickbuild-cli/internal/issue"
	"magickbuild-cli/internal/resolve"
	"magickbuild-cli/internal/script"

	"mvdan.cc/sh/v3/interp"
)

func TestWriteAptPin(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preferences.d", "imagemagick")
	if err := WriteAptPin(path); err != nil {
		t.Fatalf("WriteAptPin() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading pin file: %v", err)
	}
	for _, want := range []string{"Package: imagemagick", "Pin-Priority: -1"} {
		if !strings.Contains(string(got), want) {
			t.Errorf("pin file missing %q:\n%s", want, got)
		}
	}
}

// magickStub answers `magick --version` with a fixed report, or fails.
func magickStub(report string, code uint8) func(interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			if len(args) > 0 && args[0] == "magick" {
				if code != 0 {
					return interp.ExitStatus(code)
				}
				hc := interp.HandlerCtx(ctx)
				_, _ = hc.Stdout.Write([]byte(report))
				return nil
			}
			return next(ctx, args)
		}
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	want := resolve.MustParseVersion("7.1.1-47")

	tests := []struct {
		name    string
		report  string
		code    uint8
		wantErr bool
	}{
		{
			name:   "matching version",
			report: "Version: ImageMagick 7.1.1-47 Q16-HDRI x86_64\n",
		},
		{
			name:    "stale version on PATH",
			report:  "Version: ImageMagick 6.9.11-60 Q16 x86_64\n",
			wantErr: true,
		},
		{
			name:    "binary fails to run",
			code:    127,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := script.NewVirtualRunner(magickStub(tt.report, tt.code))
			err := Verify(context.Background(), runner, want)
			if tt.wantErr {
				if !errors.Is(err, issue.ErrVerification) {
					t.Errorf("Verify() error = %v, want verification classification", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

func TestManifestRoundTrip(t *testing.T) {
	t.Parallel()

	versions := resolve.Versions{
		Aom:         resolve.MustParseVersion("3.8.1"),
		Libheif:     resolve.MustParseVersion("1.17.6"),
		ImageMagick: resolve.MustParseVersion("7.1.1-47"),
	}
	path := filepath.Join(t.TempDir(), "lib", "manifest.toml")

	m := NewManifest(versions, "/var/log/magickbuild.log", DefaultPinPath)
	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest() error = %v", err)
	}

	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if got.ImageMagick != "7.1.1-47" || got.Aom != "3.8.1" || got.Libheif != "1.17.6" {
		t.Errorf("manifest versions = %+v, want %+v", got, m)
	}
	if got.LogPath != m.LogPath || got.PinPath != m.PinPath {
		t.Errorf("manifest paths = %+v, want %+v", got, m)
	}
	if !got.InstalledAt.Equal(m.InstalledAt) {
		t.Errorf("InstalledAt = %v, want %v", got.InstalledAt, m.InstalledAt)
	}
}

func TestReadManifestMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := ReadManifest(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("ReadManifest() succeeded on a missing file")
	}
}
