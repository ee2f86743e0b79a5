package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgresolve/internal/types"
)

func TestParseLockfileSuccess(t *testing.T) {
	text := lockfileHeader + `"a@^1.0.0":
  version "1.1.0"
  resolved "https://registry.example.com/a/-/a-1.1.0.tgz"
  integrity sha512-abc sha512-def
  dependencies:
    b "^2.0.0"
`
	result, err := ParseLockfile(text)
	require.NoError(t, err)
	assert.Equal(t, types.LockfileParseSuccess, result.Type)
	entry := result.Object["a@^1.0.0"]
	assert.Equal(t, "1.1.0", entry.Version)
	assert.Equal(t, "https://registry.example.com/a/-/a-1.1.0.tgz", entry.Resolved)
	assert.Equal(t, "^2.0.0", entry.Dependencies["b"])
}

func TestParseLockfileGroupedKeys(t *testing.T) {
	text := `"a@^1.0.0", "a@~1.1.0":
  version "1.1.0"
`
	result, err := ParseLockfile(text)
	require.NoError(t, err)
	assert.Len(t, result.Object, 2)
	assert.Equal(t, "1.1.0", result.Object["a@^1.0.0"].Version)
	assert.Equal(t, "1.1.0", result.Object["a@~1.1.0"].Version)
}

func TestParseLockfileMergeConflictReconciled(t *testing.T) {
	text := `<<<<<<< ours
a@^1.0.0:
  version "1.0.0"
=======
a@^1.0.0:
  version "1.0.0"
>>>>>>> theirs
b@^2.0.0:
  version "2.0.0"
`
	result, err := ParseLockfile(text)
	require.NoError(t, err)
	assert.Equal(t, types.LockfileParseMerge, result.Type)
	assert.Equal(t, "1.0.0", result.Object["a@^1.0.0"].Version)
	assert.Equal(t, "2.0.0", result.Object["b@^2.0.0"].Version)
}

func TestParseLockfileMergeConflictIrreconcilable(t *testing.T) {
	text := `<<<<<<< ours
a@^1.0.0:
  version "1.0.0"
=======
a@^1.0.0:
  version "1.1.0"
>>>>>>> theirs
`
	result, err := ParseLockfile(text)
	require.NoError(t, err)
	assert.Equal(t, types.LockfileParseConflict, result.Type)
}

func TestGetLockfileSortsAndDedupsByRemoteKey(t *testing.T) {
	entries := map[string]types.LockfileEntry{
		"b@^1.0.0": {Version: "1.0.0", Resolved: "https://r/b-1.0.0.tgz"},
		"a@^1.0.0": {Version: "1.0.0", Resolved: "https://r/a-1.0.0.tgz"},
		"a@^2.0.0": {Version: "1.0.0", Resolved: "https://r/a-1.0.0.tgz"},
	}
	out := GetLockfile(entries)
	aIdx := indexOf(out, `a@^1.0.0, a@^2.0.0`)
	bIdx := indexOf(out, `b@^1.0.0`)
	require.GreaterOrEqual(t, aIdx, 0)
	require.GreaterOrEqual(t, bIdx, 0)
	assert.Less(t, aIdx, bIdx)
}

func TestGetLockfileIntegrityCanonicalized(t *testing.T) {
	entries := map[string]types.LockfileEntry{
		"a@^1.0.0": {Version: "1.0.0", Integrity: "sha512-def sha512-abc"},
	}
	out1 := GetLockfile(entries)
	entries["a@^1.0.0"] = types.LockfileEntry{Version: "1.0.0", Integrity: "sha512-abc sha512-def"}
	out2 := GetLockfile(entries)
	assert.Equal(t, out1, out2)
}

func TestGetLockfileIdempotentThroughParse(t *testing.T) {
	entries := map[string]types.LockfileEntry{
		"a@^1.0.0": {Name: "a", Version: "1.1.0", Resolved: "https://r/a-1.1.0.tgz", Integrity: "sha512-abc"},
	}
	serialized := GetLockfile(entries)
	parsed, err := ParseLockfile(serialized)
	require.NoError(t, err)
	reserialized := GetLockfile(parsed.Object)
	assert.Equal(t, serialized, reserialized)
}

func TestIsStale(t *testing.T) {
	assert.False(t, IsStale("a@^1.0.0", types.LockfileEntry{Version: "1.0.0"}, false))
	assert.True(t, IsStale("a@^1.2.0", types.LockfileEntry{Version: "1.1.0"}, false))
	assert.False(t, IsStale("a@file:../x", types.LockfileEntry{Version: "1.0.0"}, false))
	assert.False(t, IsStale("a", types.LockfileEntry{Version: "1.0.0"}, false))
}

func TestHasEntriesExistWithoutIntegrity(t *testing.T) {
	lf := &Lockfile{Entries: map[string]types.LockfileEntry{
		"a@^1.0.0":    {Version: "1.0.0"},
		"b@^1.0.0":    {Version: "1.0.0", Integrity: "sha512-abc"},
		"c@file:../c": {Version: "1.0.0"},
	}}
	missing := lf.HasEntriesExistWithoutIntegrity()
	assert.Equal(t, []string{"a@^1.0.0"}, missing)
}

func TestLockfileDiff(t *testing.T) {
	before := &Lockfile{Entries: map[string]types.LockfileEntry{
		"a@^1.0.0": {Version: "1.0.0"},
		"b@^1.0.0": {Version: "1.0.0"},
	}}
	after := &Lockfile{Entries: map[string]types.LockfileEntry{
		"a@^1.0.0": {Version: "1.1.0"},
		"c@^1.0.0": {Version: "1.0.0"},
	}}
	diff := before.Diff(after)
	want := types.LockfileDiff{
		Added:   []string{"c@^1.0.0"},
		Removed: []string{"b@^1.0.0"},
		Changed: []string{"a@^1.0.0"},
	}
	if !cmp.Equal(diff, want) {
		t.Errorf("Diff mismatch:\n%s", cmp.Diff(want, diff))
	}
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
