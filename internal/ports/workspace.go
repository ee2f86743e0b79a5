package ports

import "pkgresolve/internal/types"

// WorkspaceLayoutPort is the in-memory registry the resolver consults
// before ever issuing a registry fetch: if a pattern names a sibling
// workspace project, it resolves from here.
type WorkspaceLayoutPort interface {
	GetManifestByPattern(pattern string) (types.Manifest, bool)
}
