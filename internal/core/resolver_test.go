package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgresolve/internal/adapters"
	"pkgresolve/internal/core"
	"pkgresolve/internal/types"
)

func seedPackage(t *testing.T, reg *adapters.StaticRegistry, name, version string, deps types.DependencyMap) {
	t.Helper()
	reg.Seed(name, adapters.StaticPackage{
		Version:  version,
		Manifest: types.Manifest{Name: name, Version: version, Dependencies: deps},
		Resolved: "static://" + name + "/" + version,
	})
}

func TestResolverFreshInstallNoLockfile(t *testing.T) {
	registry := adapters.NewStaticRegistry("package.yaml")
	seedPackage(t, registry, "a", "1.0.0", types.DependencyMap{"b": "^1.0.0"})
	seedPackage(t, registry, "b", "1.0.0", nil)

	resolver := core.NewResolver(core.ResolverDeps{Registry: registry, Config: types.DefaultConfig()})
	err := resolver.Init(context.Background(), []core.SeedRequest{{Pattern: "a@^1.0.0"}}, core.InitOptions{})
	require.NoError(t, err)

	a, ok := resolver.Patterns["a@^1.0.0"]
	require.True(t, ok)
	assert.Equal(t, "1.0.0", a.Version)
	assert.True(t, a.Fresh)

	b, ok := resolver.Patterns["b@^1.0.0"]
	require.True(t, ok)
	assert.Equal(t, "1.0.0", b.Version)
}

func TestResolverLockfileHitSkipsRegistry(t *testing.T) {
	registry := adapters.NewStaticRegistry("package.yaml")
	// "a" is deliberately never seeded: a registry call for it fails.

	lockfile := &core.Lockfile{Entries: map[string]types.LockfileEntry{
		"a@^1.0.0": {Name: "a", Version: "1.0.0", Resolved: "static://a/1.0.0"},
	}}

	resolver := core.NewResolver(core.ResolverDeps{Registry: registry, Lockfile: lockfile, Config: types.DefaultConfig()})
	err := resolver.Init(context.Background(), []core.SeedRequest{{Pattern: "a@^1.0.0"}}, core.InitOptions{})
	require.NoError(t, err)

	a, ok := resolver.Patterns["a@^1.0.0"]
	require.True(t, ok)
	assert.Equal(t, "1.0.0", a.Version)
	assert.False(t, a.Fresh)
}

func TestResolverStaleLockfileReResolves(t *testing.T) {
	registry := adapters.NewStaticRegistry("package.yaml")
	seedPackage(t, registry, "a", "2.0.0", nil)

	lockfile := &core.Lockfile{Entries: map[string]types.LockfileEntry{
		"a@^2.0.0": {Name: "a", Version: "1.0.0", Resolved: "static://a/1.0.0"},
	}}

	resolver := core.NewResolver(core.ResolverDeps{Registry: registry, Lockfile: lockfile, Config: types.DefaultConfig()})
	err := resolver.Init(context.Background(), []core.SeedRequest{{Pattern: "a@^2.0.0"}}, core.InitOptions{})
	require.NoError(t, err)

	a, ok := resolver.Patterns["a@^2.0.0"]
	require.True(t, ok)
	assert.Equal(t, "2.0.0", a.Version)
	assert.True(t, a.Fresh, "a stale entry must be re-resolved fresh")
}

func TestResolverFrozenRejectsUnlockedPattern(t *testing.T) {
	registry := adapters.NewStaticRegistry("package.yaml")
	seedPackage(t, registry, "a", "1.0.0", nil)

	resolver := core.NewResolver(core.ResolverDeps{Registry: registry, Config: types.DefaultConfig()})
	err := resolver.Init(context.Background(), []core.SeedRequest{{Pattern: "a@^1.0.0"}}, core.InitOptions{Frozen: true})
	assert.Error(t, err)
}

func TestResolverFlatResolutionCollapsesToSingleVersion(t *testing.T) {
	registry := adapters.NewStaticRegistry("package.yaml")
	seedPackage(t, registry, "a", "1.0.0", nil)
	seedPackage(t, registry, "a", "1.1.0", nil)
	seedPackage(t, registry, "a", "1.2.0", nil)
	seedPackage(t, registry, "c", "1.0.0", types.DependencyMap{"a": "~1.1.0"})

	resolver := core.NewResolver(core.ResolverDeps{Registry: registry, Config: types.DefaultConfig()})
	seeds := []core.SeedRequest{{Pattern: "a@^1.0.0"}, {Pattern: "c@^1.0.0"}}
	err := resolver.Init(context.Background(), seeds, core.InitOptions{Flat: true})
	require.NoError(t, err)

	aRoot, ok := resolver.Patterns["a@^1.0.0"]
	require.True(t, ok)
	aChild, ok := resolver.Patterns["a@~1.1.0"]
	require.True(t, ok)
	assert.Equal(t, "1.1.0", aRoot.Version)
	assert.Equal(t, aRoot.Version, aChild.Version)
	assert.Equal(t, aRoot.ReferenceIdx, aChild.ReferenceIdx)
}

func TestResolverResolutionOverridePinsVersion(t *testing.T) {
	registry := adapters.NewStaticRegistry("package.yaml")
	seedPackage(t, registry, "p", "1.0.0", types.DependencyMap{"a": "^1.0.0"})
	seedPackage(t, registry, "a", "1.0.0", nil)
	seedPackage(t, registry, "a", "2.0.0", nil)

	resolutionMap := core.NewResolutionMap(map[string]string{"p/a": "2.0.0"})
	resolver := core.NewResolver(core.ResolverDeps{Registry: registry, ResolutionMap: resolutionMap, Config: types.DefaultConfig()})

	seeds := []core.SeedRequest{{Pattern: "p@^1.0.0"}, {Pattern: "a@2.0.0"}}
	err := resolver.Init(context.Background(), seeds, core.InitOptions{})
	require.NoError(t, err)

	pinned, ok := resolver.Patterns["a@^1.0.0"]
	require.True(t, ok, "p's dependency on a must still appear in the resolved set")
	assert.Equal(t, "2.0.0", pinned.Version)
}

func TestResolverWorkspaceSiblingDependency(t *testing.T) {
	projects := map[string]types.WorkspaceProject{
		"sibling": {Name: "sibling", Loc: "/ws/sibling", Manifest: types.Manifest{Name: "sibling", Version: "1.0.0"}},
	}
	layout := core.NewWorkspaceLayout("/ws", projects, types.Config{WorkspacesEnabled: true})

	resolver := core.NewResolver(core.ResolverDeps{WorkspaceLayout: layout, Config: types.DefaultConfig()})
	err := resolver.Init(context.Background(), []core.SeedRequest{{Pattern: "sibling@workspace:*"}}, core.InitOptions{})
	require.NoError(t, err)

	sibling, ok := resolver.Patterns["sibling@workspace:*"]
	require.True(t, ok)
	assert.Equal(t, "1.0.0", sibling.Version)

	ref := resolver.Arena.Get(sibling.ReferenceIdx)
	require.NotNil(t, ref)
	assert.Equal(t, "workspace", ref.Remote.Type)
}
