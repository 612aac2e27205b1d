// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCUEPath indicates a CUEPath that cannot address a value.
var ErrInvalidCUEPath = errors.New("invalid CUE path")

// CUEPath addresses a value inside a CUE document in JSON-path notation,
// e.g. "versions.imagemagick" or "mirrors[0].owner".
type CUEPath string

// String returns the path as a plain string.
func (p CUEPath) String() string {
	return string(p)
}

// Validate reports whether the path is non-empty.
func (p CUEPath) Validate() error {
	if strings.TrimSpace(string(p)) == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidCUEPath)
	}
	return nil
}
