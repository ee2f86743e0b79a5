package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgresolve/internal/types"
)

func TestReferenceArenaAllocateAndFindByKey(t *testing.T) {
	arena := NewReferenceArena()
	idx := arena.Allocate(types.Reference{
		Name: "a", Version: "1.0.0",
		Remote: types.RemoteDescriptor{Resolved: "https://registry.example.com/a-1.0.0.tgz"},
	})
	assert.Equal(t, 0, idx)

	found, ok := arena.FindByKey("https://registry.example.com/a-1.0.0.tgz")
	require.True(t, ok)
	assert.Equal(t, idx, found)

	_, ok = arena.FindByKey("no-such-key")
	assert.False(t, ok)
}

func TestReferenceArenaAddRequestTracksMinimumLevel(t *testing.T) {
	arena := NewReferenceArena()
	idx := arena.Allocate(types.Reference{Name: "a", Version: "1.0.0"})

	arena.AddRequest(idx, "a@^1.0.0", 3)
	arena.AddRequest(idx, "a@^1.0.0", 1)
	arena.AddRequest(idx, "a@^1.0.0", 2)

	ref := arena.Get(idx)
	require.NotNil(t, ref)
	assert.Equal(t, 1, ref.Level)
	assert.Len(t, ref.Requests, 3)
}

func TestReferenceArenaAddPatternDeduplicates(t *testing.T) {
	arena := NewReferenceArena()
	idx := arena.Allocate(types.Reference{Name: "a", Version: "1.0.0"})

	arena.AddPattern(idx, "a@^1.0.0")
	arena.AddPattern(idx, "a@^1.0.0")
	arena.AddPattern(idx, "a@~1.1.0")

	ref := arena.Get(idx)
	require.NotNil(t, ref)
	assert.Equal(t, []string{"a@^1.0.0", "a@~1.1.0"}, ref.Patterns)
}

func TestReferenceArenaAddOptionalIsMonotonic(t *testing.T) {
	arena := NewReferenceArena()
	idx := arena.Allocate(types.Reference{Name: "a", Version: "1.0.0"})

	arena.AddOptional(idx, types.OptionalYes)
	assert.Equal(t, types.OptionalYes, arena.Get(idx).Optional)

	arena.AddOptional(idx, types.OptionalRequired)
	assert.Equal(t, types.OptionalRequired, arena.Get(idx).Optional)

	arena.AddOptional(idx, types.OptionalYes)
	assert.Equal(t, types.OptionalRequired, arena.Get(idx).Optional, "optional state must never regress from required")
}

func TestReferenceArenaAddDependenciesDeduplicates(t *testing.T) {
	arena := NewReferenceArena()
	idx := arena.Allocate(types.Reference{Name: "a", Version: "1.0.0"})

	arena.AddDependencies(idx, []string{"b@^1.0.0", "c@^2.0.0"})
	arena.AddDependencies(idx, []string{"b@^1.0.0", "d@^3.0.0"})

	assert.Equal(t, []string{"b@^1.0.0", "c@^2.0.0", "d@^3.0.0"}, arena.Get(idx).Dependencies)
}

func TestRemoteDescriptorKeyEmptyWhenUnset(t *testing.T) {
	assert.Empty(t, types.RemoteDescriptor{Type: "registry"}.Key())
	assert.Equal(t, "v1.2.3#abc", types.RemoteDescriptor{Reference: "v1.2.3", Hash: "abc"}.Key())
	assert.Equal(t, "https://x/a.tgz", types.RemoteDescriptor{Resolved: "https://x/a.tgz"}.Key())
}

func TestReferenceArenaAddLocationDeduplicates(t *testing.T) {
	arena := NewReferenceArena()
	idx := arena.Allocate(types.Reference{Name: "a", Version: "1.0.0"})

	arena.AddLocation(idx, "/store/a")
	arena.AddLocation(idx, "/store/a")
	arena.AddLocation(idx, "/store/a-2")

	assert.Equal(t, []string{"/store/a", "/store/a-2"}, arena.Get(idx).Locations)
}

func TestReferenceArenaPermissions(t *testing.T) {
	arena := NewReferenceArena()
	idx := arena.Allocate(types.Reference{Name: "a", Version: "1.0.0"})

	assert.False(t, arena.HasPermission(idx, "postinstall"))
	arena.SetPermission(idx, "postinstall", true)
	assert.True(t, arena.HasPermission(idx, "postinstall"))
}

func TestReferenceArenaPruneClearsPatternsMap(t *testing.T) {
	arena := NewReferenceArena()
	idx := arena.Allocate(types.Reference{Name: "a", Version: "1.0.0"})
	arena.AddPattern(idx, "a@^1.0.0")
	arena.AddPattern(idx, "a@~1.1.0")

	patterns := map[string]types.Manifest{
		"a@^1.0.0": {Name: "a"},
		"a@~1.1.0": {Name: "a"},
		"b@^1.0.0": {Name: "b"},
	}

	arena.Prune(idx, patterns)

	assert.Len(t, patterns, 1)
	_, stillThere := patterns["b@^1.0.0"]
	assert.True(t, stillThere)
	assert.Empty(t, arena.Get(idx).Patterns)
}

func TestReferenceArenaGetOutOfRangeReturnsNil(t *testing.T) {
	arena := NewReferenceArena()
	assert.Nil(t, arena.Get(0))
	assert.Nil(t, arena.Get(-1))
}
