// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoVersions is returned when a lookup succeeds but yields no usable version.
var ErrNoVersions = errors.New("no versions found")

type (
	// Package identifies one of the three packages built from source.
	Package string

	// LookupKind selects which GitHub API endpoint resolves a package.
	LookupKind string

	// Source describes where a package's versions are published.
	Source struct {
		Owner  string
		Repo   string
		Lookup LookupKind
	}

	// Versions holds the resolved version of every package in one run.
	Versions struct {
		Aom         Version
		Libheif     Version
		ImageMagick Version
	}

	// Resolver resolves package versions, preferring explicit pins over
	// network lookups.
	Resolver struct {
		client *GitHubClient
	}
)

const (
	PackageAom         Package = "aom"
	PackageLibheif     Package = "libheif"
	PackageImageMagick Package = "imagemagick"

	// LookupLatestRelease resolves via GET /releases/latest.
	LookupLatestRelease LookupKind = "latest-release"
	// LookupTags resolves via GET /tags, taking the highest version tag.
	// Used for aom, whose GitHub mirror publishes tags but no releases.
	LookupTags LookupKind = "tags"
)

// DefaultSources returns the built-in upstream locations per package.
func DefaultSources() map[Package]Source {
	return map[Package]Source{
		PackageAom:         {Owner: "jbeich", Repo: "aom", Lookup: LookupTags},
		PackageLibheif:     {Owner: "strukturag", Repo: "libheif", Lookup: LookupLatestRelease},
		PackageImageMagick: {Owner: "ImageMagick", Repo: "ImageMagick", Lookup: LookupLatestRelease},
	}
}

// NewResolver creates a Resolver backed by the given GitHub client.
func NewResolver(client *GitHubClient) *Resolver {
	return &Resolver{client: client}
}

// Resolve returns the version to build for one package. A non-empty pinned
// value is parsed and returned without any network access; otherwise the
// package's source is queried.
func (r *Resolver) Resolve(ctx context.Context, pkg Package, src Source, pinned string) (Version, error) {
	if pinned != "" {
		v, err := ParseVersion(pinned)
		if err != nil {
			return Version{}, fmt.Errorf("pinned %s version: %w", pkg, err)
		}
		return v, nil
	}

	switch src.Lookup {
	case LookupLatestRelease:
		return r.resolveLatestRelease(ctx, pkg, src)
	case LookupTags:
		return r.resolveHighestTag(ctx, pkg, src)
	default:
		return Version{}, fmt.Errorf("resolving %s: unknown lookup kind %q", pkg, src.Lookup)
	}
}

func (r *Resolver) resolveLatestRelease(ctx context.Context, pkg Package, src Source) (Version, error) {
	rel, err := r.client.LatestRelease(ctx, src.Owner, src.Repo)
	if err != nil {
		return Version{}, fmt.Errorf("resolving %s: %w", pkg, err)
	}

	v, err := ParseVersion(rel.TagName)
	if err != nil {
		return Version{}, fmt.Errorf("resolving %s: release tag %q: %w", pkg, rel.TagName, err)
	}
	return v, nil
}

func (r *Resolver) resolveHighestTag(ctx context.Context, pkg Package, src Source) (Version, error) {
	tags, err := r.client.ListTags(ctx, src.Owner, src.Repo)
	if err != nil {
		return Version{}, fmt.Errorf("resolving %s: %w", pkg, err)
	}

	var best Version
	for _, tag := range tags {
		v, err := ParseVersion(tag.Name)
		if err != nil {
			continue // non-version tags (branch markers etc.) are skipped
		}
		if best.IsZero() || v.Compare(best) > 0 {
			best = v
		}
	}

	if best.IsZero() {
		return Version{}, fmt.Errorf("resolving %s from %s/%s tags: %w", pkg, src.Owner, src.Repo, ErrNoVersions)
	}
	return best, nil
}

// ResolveAll resolves all three packages in a fixed order, honoring the
// given pins (empty string = resolve from the network). It fails on the
// first package that cannot be resolved.
func (r *Resolver) ResolveAll(ctx context.Context, sources map[Package]Source, pins map[Package]string) (*Versions, error) {
	out := &Versions{}
	targets := []struct {
		pkg  Package
		dest *Version
	}{
		{PackageAom, &out.Aom},
		{PackageLibheif, &out.Libheif},
		{PackageImageMagick, &out.ImageMagick},
	}

	for _, t := range targets {
		src, ok := sources[t.pkg]
		if !ok {
			return nil, fmt.Errorf("resolving %s: no source configured", t.pkg)
		}
		v, err := r.Resolve(ctx, t.pkg, src, pins[t.pkg])
		if err != nil {
			return nil, err
		}
		*t.dest = v
	}

	return out, nil
}

// Validate enforces the invariant that every version is resolved before any
// build step runs.
func (vs *Versions) Validate() error {
	if vs.Aom.IsZero() || vs.Libheif.IsZero() || vs.ImageMagick.IsZero() {
		return fmt.Errorf("%w: all of aom, libheif, imagemagick must resolve", ErrNoVersions)
	}
	return nil
}
