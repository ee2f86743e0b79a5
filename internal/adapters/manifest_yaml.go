package adapters

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

// ManifestYAMLAdapter reads a YAML manifest file from disk.
type ManifestYAMLAdapter struct {
	// Filename is used by ReadDir to locate the manifest inside a
	// directory.
	Filename string
}

func NewManifestYAMLAdapter(filename string) ManifestYAMLAdapter {
	if filename == "" {
		filename = "package.yaml"
	}
	return ManifestYAMLAdapter{Filename: filename}
}

// Read loads and normalizes the manifest at path. Every manifest read
// from disk starts with no Reference attached; ReferenceIdx must be
// set to core.NoReference explicitly since Go's zero value for int is
// 0, which core.Manifest.HasReference would otherwise misread as
// "attached to reference 0".
func (a ManifestYAMLAdapter) Read(path string) (types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Manifest{}, core.NewUnexpectedError("reading manifest "+path, err)
	}
	var manifest types.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return types.Manifest{}, core.NewUserError("failed to parse manifest "+path, err)
	}
	manifest.ReferenceIdx = core.NoReference
	manifest.Loc = filepath.Dir(path)
	return manifest, nil
}

// ReadDir loads the manifest file found directly inside dir.
func (a ManifestYAMLAdapter) ReadDir(dir string) (types.Manifest, error) {
	return a.Read(filepath.Join(dir, a.Filename))
}

var _ ports.ManifestReaderPort = ManifestYAMLAdapter{}
