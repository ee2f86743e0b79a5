package ports

import "pkgresolve/internal/types"

// ManifestReaderPort loads and normalizes a manifest file from disk.
type ManifestReaderPort interface {
	Read(path string) (types.Manifest, error)
}
