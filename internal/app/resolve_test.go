package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgresolve/internal/adapters"
	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

func writeRootManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFilename), []byte(content), 0o644))
}

func newTestService(t *testing.T, registry ports.RegistryPort) (Service, string) {
	t.Helper()
	dir := t.TempDir()
	return Service{
		ManifestReader: adapters.NewManifestYAMLAdapter(manifestFilename),
		Registry:       registry,
		Mutex:          adapters.NewFileMutex(filepath.Join(dir, "pkgresolve.lock")),
		Config:         types.Config{Cwd: dir, NetworkConcurrency: 4, ChildConcurrency: 2},
	}, dir
}

func TestServiceResolveWritesLockfile(t *testing.T) {
	registry := adapters.NewStaticRegistry(manifestFilename)
	registry.Seed("a", adapters.StaticPackage{
		Version:  "1.0.0",
		Manifest: types.Manifest{Name: "a", Version: "1.0.0"},
		Resolved: "static://a/1.0.0",
	})

	service, dir := newTestService(t, registry)
	writeRootManifest(t, dir, "name: root\nversion: 1.0.0\ndependencies:\n  a: ^1.0.0\n")

	result, err := service.Resolve(context.Background(), ResolveRequest{})
	require.NoError(t, err)
	assert.Equal(t, "root", result.RootName)
	assert.Equal(t, 1, result.TotalCount)
	assert.Equal(t, []string{"a@^1.0.0"}, result.Diff.Added)

	lockData, err := os.ReadFile(filepath.Join(dir, "pkg.lock"))
	require.NoError(t, err)
	assert.Contains(t, string(lockData), "a@^1.0.0")
	assert.Contains(t, string(lockData), `version "1.0.0"`)
}

func TestServiceResolveFocusRejectedAtWorkspaceRoot(t *testing.T) {
	registry := adapters.NewStaticRegistry(manifestFilename)
	service, dir := newTestService(t, registry)
	service.Config.Focus = true
	service.Config.WorkspacesEnabled = true
	writeRootManifest(t, dir, "name: root\nversion: 1.0.0\nprivate: true\nworkspaces:\n  packages:\n    - packages/*\n")

	_, err := service.Resolve(context.Background(), ResolveRequest{})
	require.Error(t, err)
	assert.Equal(t, 2, core.ExitCodeFor(err))
}

func TestServiceResolveFocusRequiresWorkspace(t *testing.T) {
	registry := adapters.NewStaticRegistry(manifestFilename)
	service, dir := newTestService(t, registry)
	service.Config.Focus = true
	writeRootManifest(t, dir, "name: root\nversion: 1.0.0\n")

	_, err := service.Resolve(context.Background(), ResolveRequest{})
	require.Error(t, err)
	assert.Equal(t, 2, core.ExitCodeFor(err))
}

func TestServiceCheckReportsWouldChangeWithoutWriting(t *testing.T) {
	registry := adapters.NewStaticRegistry(manifestFilename)
	registry.Seed("a", adapters.StaticPackage{
		Version:  "1.0.0",
		Manifest: types.Manifest{Name: "a", Version: "1.0.0"},
		Resolved: "static://a/1.0.0",
	})

	service, dir := newTestService(t, registry)
	writeRootManifest(t, dir, "name: root\nversion: 1.0.0\ndependencies:\n  a: ^1.0.0\n")

	result, err := service.Check(context.Background(), CheckRequest{})
	require.Error(t, err, "check runs a frozen resolution; an unlocked pattern must fail it")
	assert.True(t, result.WouldChange)

	_, statErr := os.Stat(filepath.Join(dir, "pkg.lock"))
	assert.True(t, os.IsNotExist(statErr), "check must never write a lockfile")
}

func TestServiceWhyReportsRequesterChain(t *testing.T) {
	registry := adapters.NewStaticRegistry(manifestFilename)
	registry.Seed("a", adapters.StaticPackage{
		Version:  "1.0.0",
		Manifest: types.Manifest{Name: "a", Version: "1.0.0"},
		Resolved: "static://a/1.0.0",
	})

	service, dir := newTestService(t, registry)
	writeRootManifest(t, dir, "name: root\nversion: 1.0.0\ndependencies:\n  a: ^1.0.0\n")

	lockText := `"a@^1.0.0":
  name "a"
  version "1.0.0"
  resolved "static://a/1.0.0"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg.lock"), []byte(lockText), 0o644))

	result, err := service.Why(context.Background(), WhyRequest{Pattern: "a@^1.0.0"})
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, "a", result.Name)
	assert.Equal(t, "1.0.0", result.Version)
	require.Len(t, result.Requests, 1)
	assert.Equal(t, "a@^1.0.0", result.Requests[0].Pattern)
}

func TestServiceWhyNotFoundReturnsUnfound(t *testing.T) {
	registry := adapters.NewStaticRegistry(manifestFilename)
	service, dir := newTestService(t, registry)
	writeRootManifest(t, dir, "name: root\nversion: 1.0.0\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg.lock"), []byte(""), 0o644))

	result, err := service.Why(context.Background(), WhyRequest{Pattern: "missing@^1.0.0"})
	require.NoError(t, err)
	assert.False(t, result.Found)
}
