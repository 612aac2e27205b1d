// SPDX-License-Identifier: MPL-2.0

// Package resolve determines which versions of aom, libheif, and ImageMagick
// to build.
//
// Explicitly pinned versions are used verbatim without any network access.
// Unpinned packages are resolved against the GitHub Releases/Tags API:
// ImageMagick and libheif from their latest stable release, aom from the
// highest version tag of its GitHub mirror. Version strings are handled as
// structured multi-segment values with a total order, because ImageMagick's
// "7.1.1-47" scheme uses the dash suffix as an ascending patch level and
// must not be compared as a semver pre-release.
package resolve
