// SPDX-License-Identifier: MPL-2.0

// Package config loads tool configuration from CUE files.
//
// Lookup order: an explicit --config path wins; otherwise the system file
// at /etc/magickbuild/config.cue, then $XDG_CONFIG_HOME/magickbuild/config.cue.
// With no file present the built-in defaults apply. Files are validated
// against an embedded CUE schema before anything is read from them.
package config
