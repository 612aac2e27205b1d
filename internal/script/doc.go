// SPDX-License-Identifier: MPL-2.0

// Package script executes the shell command sequences that make up the
// install pipeline's steps.
//
// Two runners share one interface: NativeRunner spawns the system shell
// (the normal path — apt-get, configure, and make are real host processes),
// while VirtualRunner interprets the script in-process with mvdan/sh and
// injectable exec handlers, which is what dry-run and the test suite use to
// exercise pipeline behavior without touching the host.
package script
