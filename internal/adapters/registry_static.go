package adapters

import (
	"context"
	"fmt"
	"sync"

	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

// StaticPackage is one published version of one package as seeded into
// a StaticRegistry.
type StaticPackage struct {
	Version   string
	Manifest  types.Manifest
	Resolved  string
	Integrity string
}

// StaticRegistry is an in-memory ports.RegistryPort backed by a fixed
// table of packages, used by tests and as the registry app.NewService
// falls back to when no registry URL is configured; it never reaches
// the network.
type StaticRegistry struct {
	mu       sync.RWMutex
	filename string
	packages map[string][]StaticPackage
}

// NewStaticRegistry builds an empty StaticRegistry. filename is the
// manifest file name this registry reports via Filename.
func NewStaticRegistry(filename string) *StaticRegistry {
	if filename == "" {
		filename = "package.yaml"
	}
	return &StaticRegistry{filename: filename, packages: map[string][]StaticPackage{}}
}

// Seed registers one version of name, overwriting any prior entry for
// the same (name, version) pair.
func (s *StaticRegistry) Seed(name string, pkg StaticPackage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.packages[name] {
		if existing.Version == pkg.Version {
			s.packages[name][i] = pkg
			return
		}
	}
	s.packages[name] = append(s.packages[name], pkg)
}

func (s *StaticRegistry) Filename() string { return s.filename }

func (s *StaticRegistry) LoadConfig(cfg types.Config) error { return nil }

func (s *StaticRegistry) AvailableVersions(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.packages[name]
	if !ok || len(entries) == 0 {
		return nil, core.NewConstraintError(fmt.Sprintf("package %s not found in static registry", name), nil)
	}
	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		versions = append(versions, e.Version)
	}
	core.SortVersionsAscending(versions, false)
	return versions, nil
}

func (s *StaticRegistry) FetchManifest(ctx context.Context, name, version string) (types.Manifest, types.RemoteDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.packages[name] {
		if e.Version == version {
			remote := types.RemoteDescriptor{
				Type:      "registry",
				Resolved:  e.Resolved,
				Integrity: e.Integrity,
			}
			if remote.Resolved == "" {
				remote.Resolved = fmt.Sprintf("static://%s/%s", name, version)
			}
			return e.Manifest, remote, nil
		}
	}
	return types.Manifest{}, types.RemoteDescriptor{}, core.NewConstraintError(
		fmt.Sprintf("%s@%s not found in static registry", name, version), nil)
}

var _ ports.RegistryPort = (*StaticRegistry)(nil)
