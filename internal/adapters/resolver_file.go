package adapters

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

// FileResolver implements ports.PackageResolverPort for "file:" ranges:
// a manifest living at a local path outside any registry. Reading the
// manifest itself is a plain disk read, unlike tarball fetch/extract,
// which stays an external collaborator per the contract this resolver
// implements against.
type FileResolver struct {
	BaseDir string
	Reader  ports.ManifestReaderPort
}

func NewFileResolver(baseDir string, reader ports.ManifestReaderPort) FileResolver {
	return FileResolver{BaseDir: baseDir, Reader: reader}
}

func (f FileResolver) Resolve(ctx context.Context, name, rangeStr string) (ports.ResolvedPackage, error) {
	rawPath := strings.TrimPrefix(rangeStr, "file:")
	target := rawPath
	if !filepath.IsAbs(target) {
		target = filepath.Join(f.BaseDir, target)
	}

	manifestPath, err := f.locateManifest(target)
	if err != nil {
		return ports.ResolvedPackage{}, err
	}
	manifest, err := f.Reader.Read(manifestPath)
	if err != nil {
		return ports.ResolvedPackage{}, core.NewNetworkError("reading file: manifest for "+name, err)
	}
	if manifest.Name == "" {
		manifest.Name = name
	}
	if manifest.Version == "" {
		manifest.Version = "0.0.0"
	}

	integrity, err := manifestDigest(manifestPath)
	if err != nil {
		integrity = ""
	}

	remote := types.RemoteDescriptor{
		Type:      "file",
		Resolved:  "file:" + filepath.Dir(manifestPath),
		Integrity: integrity,
	}
	return ports.ResolvedPackage{Version: manifest.Version, Manifest: manifest, Remote: remote}, nil
}

func (f FileResolver) locateManifest(target string) (string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", core.NewConstraintError("file: target does not exist: "+target, err)
	}
	if info.IsDir() {
		return filepath.Join(target, f.filename()), nil
	}
	return target, nil
}

func (f FileResolver) filename() string {
	if reader, ok := f.Reader.(ManifestYAMLAdapter); ok && reader.Filename != "" {
		return reader.Filename
	}
	return "package.yaml"
}

// manifestDigest hashes the manifest bytes as a lightweight stand-in
// for the content integrity a real tarball fetch would compute over
// the whole package; extraction/packing themselves stay out of this
// resolver's scope.
func manifestDigest(manifestPath string) (string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", err
	}
	sum := sha512.Sum512(data)
	return fmt.Sprintf("sha512-%s", base64.StdEncoding.EncodeToString(sum[:])), nil
}

var _ ports.PackageResolverPort = FileResolver{}
