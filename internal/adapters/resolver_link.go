package adapters

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

// LinkResolver implements ports.PackageResolverPort for "link:" ranges:
// like FileResolver, but the remote descriptor records a symlink
// target rather than a copy source. The install-time distinction
// between "file:" and "link:" belongs to the external fetcher, not
// this resolver.
type LinkResolver struct {
	BaseDir string
	Reader  ports.ManifestReaderPort
}

func NewLinkResolver(baseDir string, reader ports.ManifestReaderPort) LinkResolver {
	return LinkResolver{BaseDir: baseDir, Reader: reader}
}

func (l LinkResolver) Resolve(ctx context.Context, name, rangeStr string) (ports.ResolvedPackage, error) {
	rawPath := strings.TrimPrefix(rangeStr, "link:")
	target := rawPath
	if !filepath.IsAbs(target) {
		target = filepath.Join(l.BaseDir, target)
	}
	if _, err := os.Stat(target); err != nil {
		return ports.ResolvedPackage{}, core.NewConstraintError("link: target does not exist: "+target, err)
	}

	manifestPath := filepath.Join(target, l.filename())
	manifest, err := l.Reader.Read(manifestPath)
	if err != nil {
		return ports.ResolvedPackage{}, core.NewNetworkError("reading link: manifest for "+name, err)
	}
	if manifest.Name == "" {
		manifest.Name = name
	}
	if manifest.Version == "" {
		manifest.Version = "0.0.0"
	}

	remote := types.RemoteDescriptor{Type: "link", Resolved: "link:" + target}
	return ports.ResolvedPackage{Version: manifest.Version, Manifest: manifest, Remote: remote}, nil
}

func (l LinkResolver) filename() string {
	if reader, ok := l.Reader.(ManifestYAMLAdapter); ok && reader.Filename != "" {
		return reader.Filename
	}
	return "package.yaml"
}

var _ ports.PackageResolverPort = LinkResolver{}
