package core

import (
	"pkgresolve/internal/types"
)

// NoReference is the Manifest.ReferenceIdx sentinel meaning no
// Reference has been attached yet. Manifest readers must set this
// explicitly since Go's zero value for int is a valid arena index.
const NoReference = -1

// ReferenceArena owns every Reference discovered during a resolution
// run. Manifests hold an index into this arena (ReferenceIdx) instead
// of a pointer back-reference, so the arena can be grown freely while
// manifests are copied by value through the patterns map.
type ReferenceArena struct {
	refs []types.Reference
	// byKey dedups References sharing the same remote content across
	// different patterns.
	byKey map[string]int
}

// NewReferenceArena builds an empty arena.
func NewReferenceArena() *ReferenceArena {
	return &ReferenceArena{byKey: map[string]int{}}
}

// Get returns the Reference at idx by pointer so callers can mutate it
// in place.
func (a *ReferenceArena) Get(idx int) *types.Reference {
	if idx < 0 || idx >= len(a.refs) {
		return nil
	}
	return &a.refs[idx]
}

// FindByKey returns the arena index of the Reference already owning
// remoteKey, if any.
func (a *ReferenceArena) FindByKey(remoteKey string) (int, bool) {
	idx, ok := a.byKey[remoteKey]
	return idx, ok
}

// Allocate appends a brand-new Reference and returns its index.
func (a *ReferenceArena) Allocate(ref types.Reference) int {
	idx := len(a.refs)
	a.refs = append(a.refs, ref)
	if key := ref.Remote.Key(); key != "" {
		a.byKey[key] = idx
	}
	return idx
}

// AddRequest attaches a requester (pattern, depth) to the Reference at
// idx.
func (a *ReferenceArena) AddRequest(idx int, pattern string, depth int) {
	ref := a.Get(idx)
	if ref == nil {
		return
	}
	if len(ref.Requests) == 0 || depth < ref.Level {
		ref.Level = depth
	}
	ref.Requests = append(ref.Requests, types.RequestInfo{Pattern: pattern, Depth: depth})
}

// AddPattern records that pattern now resolves to the Reference at
// idx, if not already present.
func (a *ReferenceArena) AddPattern(idx int, pattern string) {
	ref := a.Get(idx)
	if ref == nil || ref.HasPattern(pattern) {
		return
	}
	ref.Patterns = append(ref.Patterns, pattern)
}

// AddOptional joins flag into the Reference's OptionalState, which is
// monotonic toward OptionalRequired.
func (a *ReferenceArena) AddOptional(idx int, flag types.OptionalState) {
	ref := a.Get(idx)
	if ref == nil {
		return
	}
	ref.Optional = ref.Optional.Join(flag)
}

// AddDependencies records the child patterns idx's manifest expanded
// into during recursion, so consumers can walk the resolved graph
// Reference-to-Reference without re-reading manifests.
func (a *ReferenceArena) AddDependencies(idx int, patterns []string) {
	ref := a.Get(idx)
	if ref == nil {
		return
	}
	for _, p := range patterns {
		if !containsPattern(ref.Dependencies, p) {
			ref.Dependencies = append(ref.Dependencies, p)
		}
	}
}

func containsPattern(list []string, p string) bool {
	for _, existing := range list {
		if existing == p {
			return true
		}
	}
	return false
}

// AddLocation records an on-disk install location for idx, used by
// workspace and link resolvers that place content outside the normal
// store path.
func (a *ReferenceArena) AddLocation(idx int, loc string) {
	ref := a.Get(idx)
	if ref == nil {
		return
	}
	for _, existing := range ref.Locations {
		if existing == loc {
			return
		}
	}
	ref.Locations = append(ref.Locations, loc)
}

// SetPermission records a capability grant (e.g. "postinstall",
// "network") on idx's Reference.
func (a *ReferenceArena) SetPermission(idx int, permission string, granted bool) {
	ref := a.Get(idx)
	if ref == nil {
		return
	}
	if ref.Permissions == nil {
		ref.Permissions = map[string]bool{}
	}
	ref.Permissions[permission] = granted
}

// HasPermission reports whether idx's Reference was granted
// permission.
func (a *ReferenceArena) HasPermission(idx int, permission string) bool {
	ref := a.Get(idx)
	if ref == nil {
		return false
	}
	return ref.Permissions[permission]
}

// Prune removes every pattern belonging to idx's Reference from the
// patterns map, used when a Reference turns out to be unreachable
// (cut from the optional tree, or consolidated away by flattening).
func (a *ReferenceArena) Prune(idx int, patterns map[string]types.Manifest) {
	ref := a.Get(idx)
	if ref == nil {
		return
	}
	for _, p := range ref.Patterns {
		delete(patterns, p)
	}
	ref.Patterns = nil
}

// All returns every allocated Reference, for serialization passes
// (lockfile emission, `why` reporting).
func (a *ReferenceArena) All() []types.Reference {
	return a.refs
}
