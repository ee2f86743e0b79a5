package ports

import (
	"context"

	"pkgresolve/internal/types"
)

// ResolvedPackage is what a PackageResolver produces for one
// (name, range) request: the concrete version chosen, the manifest
// describing its own dependencies, and the remote descriptor telling
// the fetcher how to retrieve it.
type ResolvedPackage struct {
	Version  string
	Manifest types.Manifest
	Remote   types.RemoteDescriptor
}

// RegistryPort is the contract the resolver consumes from a concrete
// registry backend. Concrete backends live in
// internal/adapters and are selected by the caller, not by the
// resolver core.
type RegistryPort interface {
	// Filename is the manifest file name this registry expects at the
	// root of every package it serves.
	Filename() string

	// LoadConfig hydrates backend-specific settings from rc files and
	// environment variables.
	LoadConfig(cfg types.Config) error

	// AvailableVersions returns every published version of name,
	// sorted ascending, for the Constraint Reducer to pick from.
	AvailableVersions(ctx context.Context, name string) ([]string, error)

	// FetchManifest retrieves the manifest + remote descriptor for one
	// concrete version.
	FetchManifest(ctx context.Context, name, version string) (types.Manifest, types.RemoteDescriptor, error)
}

// PackageResolverPort is the interface the exotic resolvers present
// to a Request: given a name and a range, produce one concrete
// resolution, bypassing the Constraint Reducer entirely. Semver and
// "latest" ranges do not go through this interface; the resolver core
// queries RegistryPort and applies the Reducer itself.
type PackageResolverPort interface {
	Resolve(ctx context.Context, name, rangeStr string) (ResolvedPackage, error)
}
