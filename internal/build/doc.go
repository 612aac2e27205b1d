// SPDX-License-Identifier: MPL-2.0

// Package build compiles one source package: download the release tarball
// (resuming partial transfers), extract it into the work directory, then
// run the package's configure/compile/install script with a parallelism
// factor derived from the host's CPU count.
//
// The build systems themselves (CMake for aom, autotools for libheif and
// ImageMagick) are orchestrated, never reimplemented. Any sub-step failure
// classifies as a build error naming the package; partial artifacts are not
// rolled back — workspace cleanup handles them.
package build
