package core

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

// find implements the Package Request lifecycle for one pattern
// discovered at parentNames/depth. It is a method on Resolver rather
// than a standalone type since every step reads or mutates resolver-
// owned state (patterns map, arena, queues); eg is the run's shared
// errgroup so recursive child requests join the same fan-out and the
// same cancellation signal.
func (r *Resolver) find(ctx context.Context, eg *errgroup.Group, pattern string, parentNames []string, depth int, optional types.OptionalState) error {
	parsed := NormalizePattern(pattern)
	name, rangeStr := parsed.Name, parsed.Range

	// Step 1: resolveToResolution.
	if len(parentNames) > 0 && !r.Flat && r.ResolutionMap != nil {
		if target, globPath, ok := r.ResolutionMap.Find(name, parentNames); ok {
			return r.resolveToResolution(pattern, name, target, globPath, parentNames, depth, optional)
		}
	}

	// Step 2: dedup by fetchKey.
	fetchKey := fmt.Sprintf("%s:%s:%v", r.Config.Registry, pattern, optional)
	if !r.markFetching(fetchKey) {
		return nil
	}

	// Step 3: lockfile probe.
	fresh := false
	if r.Lockfile != nil {
		if entry, ok := r.Lockfile.GetLocked(pattern); ok {
			if !IsStale(pattern, entry, r.Config.LooseSemver) {
				r.attachFromLockfile(pattern, name, entry, depth, optional)
				return nil
			}
			log.Ctx(ctx).Warn().Str("pattern", pattern).Msg("lockfile entry stale, re-resolving")
			r.mu.Lock()
			r.Lockfile.RemovePattern(pattern)
			delete(r.Patterns, pattern)
			r.mu.Unlock()
			fresh = true
		} else {
			fresh = true
		}
	}

	// Step 4: existing-version short circuit.
	if r.hasSatisfyingExisting(name, rangeStr) {
		r.mu.Lock()
		r.delayedResolveQueue = append(r.delayedResolveQueue, delayedResolve{
			pattern: pattern, name: name, rangeStr: rangeStr,
			parentNames: append([]string{}, parentNames...), depth: depth, optional: optional,
		})
		r.mu.Unlock()
		return nil
	}

	if r.Frozen && fresh {
		return NewUserError(fmt.Sprintf("frozen lockfile would change: %s is not locked", pattern), nil)
	}

	// Step 5: registry/exotic fetch.
	resolved, err := r.dispatchResolve(ctx, name, rangeStr)
	if err != nil {
		if optional == types.OptionalYes {
			log.Ctx(ctx).Warn().Err(err).Str("pattern", pattern).Msg("optional dependency failed, ignoring")
			return nil
		}
		return NewNetworkError(fmt.Sprintf("resolving %s", pattern), err)
	}
	resolved.Manifest.Fresh = fresh

	childManifest := r.commitResolution(pattern, name, rangeStr, resolved, depth, optional)

	// Step 6: recurse. A child inherits "optional" if either its own
	// edge is optional or the path leading here already is. Required
	// dominance only applies when aggregating requesters of the same
	// Reference (OptionalState.Join), not along a single descent.
	childParents := append(append([]string{}, parentNames...), name)
	pathOptional := optional == types.OptionalYes
	children := ChildRequests(childManifest)

	childPatterns := make([]string, 0, len(children))
	for _, child := range children {
		childPatterns = append(childPatterns, child.Pattern)
	}
	r.mu.Lock()
	r.Arena.AddDependencies(childManifest.ReferenceIdx, childPatterns)
	r.mu.Unlock()

	for _, child := range children {
		child := child
		childState := types.OptionalRequired
		if pathOptional || child.Optional {
			childState = types.OptionalYes
		}
		eg.Go(func() error {
			return r.find(ctx, eg, child.Pattern, childParents, depth+1, childState)
		})
	}
	return nil
}

// resolveToResolution applies a Resolution Map pin.
// If the pinned target manifest already exists, this pattern attaches
// to it immediately; otherwise the pin is queued for phase 3.
func (r *Resolver) resolveToResolution(pattern, name, target, globPath string, parentNames []string, depth int, optional types.OptionalState) error {
	pinnedPattern := BuildPattern(name, target)

	r.mu.Lock()
	manifest, ok := r.Patterns[pinnedPattern]
	if !ok {
		for _, existing := range r.PatternsByPackage[name] {
			if m, exists := r.Patterns[existing]; exists && m.UID == target {
				manifest, ok = m, true
				break
			}
		}
	}
	if !ok {
		r.ResolutionMap.QueueDelayed(DelayedPin{
			Pattern: pattern, ParentNames: append([]string{}, parentNames...),
			Target: target, GlobPath: globPath,
		})
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	r.attachToReference(pattern, name, manifest, depth, optional)
	if r.Lockfile != nil {
		if entry, ok := r.Lockfile.GetLocked(pattern); ok && entry.Version != manifest.Version {
			r.Lockfile.RemovePattern(pattern)
		}
	}
	return nil
}

func (r *Resolver) markFetching(fetchKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchingPatterns[fetchKey] {
		return false
	}
	r.fetchingPatterns[fetchKey] = true
	return true
}

func (r *Resolver) attachFromLockfile(pattern, name string, entry types.LockfileEntry, depth int, optional types.OptionalState) {
	manifest := types.Manifest{
		Name:                 entry.Name,
		Version:              entry.Version,
		Dependencies:         entry.Dependencies,
		OptionalDependencies: entry.OptionalDependencies,
		PrebuiltVariants:     entry.PrebuiltVariants,
	}
	remote := types.RemoteDescriptor{Type: "registry", Resolved: entry.Resolved, Integrity: entry.Integrity}
	r.attachNewManifest(pattern, name, manifest, remote, entry.UID, entry.Registry, depth, optional, false)
}

// hasSatisfyingExisting reports whether a Reference already discovered
// for name satisfies rangeStr.
func (r *Resolver) hasSatisfyingExisting(name, rangeStr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.PatternsByPackage[name] {
		m, ok := r.Patterns[p]
		if !ok || !m.HasReference() {
			continue
		}
		if IsExotic(rangeStr) {
			continue
		}
		if Satisfies(m.Version, rangeStr, r.Config.LooseSemver) {
			return true
		}
	}
	return false
}

// dispatchResolve selects a resolver by inspecting rangeStr's prefix
// and bounds outstanding concurrent fetches: networkConcurrency for
// registry/HTTP lookups, childConcurrency for resolvers that shell
// out, i.e. git.
func (r *Resolver) dispatchResolve(ctx context.Context, name, rangeStr string) (ports.ResolvedPackage, error) {
	kind := ClassifyRange(rangeStr)

	if kind == types.RangeKindWorkspace && r.WorkspaceLayout != nil {
		m, ok := r.WorkspaceLayout.GetManifestByPattern(BuildPattern(name, rangeStr))
		if !ok {
			return ports.ResolvedPackage{}, NewConstraintError(fmt.Sprintf("no workspace project satisfies %s", BuildPattern(name, rangeStr)), nil)
		}
		return ports.ResolvedPackage{
			Version:  m.Version,
			Manifest: m,
			Remote:   types.RemoteDescriptor{Type: "workspace", Resolved: "workspace:" + m.Name},
		}, nil
	}

	sem := r.sem
	if kind == types.RangeKindGit {
		sem = r.childSem
	}
	if sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			return ports.ResolvedPackage{}, err
		}
		defer sem.Release(1)
	}

	if kind == types.RangeKindSemver || kind == types.RangeKindLatest {
		if r.Registry == nil {
			return ports.ResolvedPackage{}, NewUnexpectedError("no registry backend configured", nil)
		}
		versions, err := r.Registry.AvailableVersions(ctx, name)
		if err != nil {
			return ports.ResolvedPackage{}, err
		}
		SortVersionsAscending(versions, r.Config.LooseSemver)
		version, ok := Reduce(versions, rangeStr, r.Config.LooseSemver)
		if !ok {
			return ports.ResolvedPackage{}, NewConstraintError(fmt.Sprintf("no version of %s satisfies %s", name, rangeStr), nil)
		}
		manifest, remote, err := r.Registry.FetchManifest(ctx, name, version)
		if err != nil {
			return ports.ResolvedPackage{}, err
		}
		return ports.ResolvedPackage{Version: version, Manifest: manifest, Remote: remote}, nil
	}

	resolver, ok := r.Exotic[kind]
	if !ok {
		return ports.ResolvedPackage{}, NewUnexpectedError(fmt.Sprintf("no exotic resolver registered for %s", rangeStr), nil)
	}
	return resolver.Resolve(ctx, name, rangeStr)
}

// commitResolution records a freshly-fetched resolution into the arena
// and patterns map, deduplicating on remote-key, and
// returns the manifest now attached to pattern for the caller's
// recursion step.
func (r *Resolver) commitResolution(pattern, name, rangeStr string, resolved ports.ResolvedPackage, depth int, optional types.OptionalState) types.Manifest {
	uid := uidFor(resolved.Version, resolved.Remote)
	return r.attachNewManifest(pattern, name, resolved.Manifest, resolved.Remote, uid, r.Config.Registry, depth, optional, true)
}

func uidFor(version string, remote types.RemoteDescriptor) string {
	if remote.Type == "" || remote.Type == "registry" {
		return version
	}
	return version + "@" + shortHash(remote.Key())
}

func shortHash(value string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	return fmt.Sprintf("%x", h.Sum32())
}

// attachNewManifest allocates (or reuses, by remote-key) a Reference
// for a just-resolved package and wires the pattern and package-name
// indexes to it.
func (r *Resolver) attachNewManifest(pattern, name string, manifest types.Manifest, remote types.RemoteDescriptor, uid, registry string, depth int, optional types.OptionalState, fresh bool) types.Manifest {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, exists := r.Arena.FindByKey(remote.Key())
	if !exists {
		idx = r.Arena.Allocate(types.Reference{
			Name: name, Version: manifest.Version, UID: uid, Registry: registry, Remote: remote,
			Fresh: fresh,
		})
	}
	r.Arena.AddPattern(idx, pattern)
	r.Arena.AddRequest(idx, pattern, depth)
	r.Arena.AddOptional(idx, optional)

	manifest.Name = name
	manifest.ReferenceIdx = idx
	manifest.RemoteKey = remote.Key()
	manifest.UID = uid
	manifest.Registry = registry
	manifest.Fresh = fresh

	r.Patterns[pattern] = manifest
	r.addPatternByPackage(name, pattern)
	return manifest
}

func (r *Resolver) addPatternByPackage(name, pattern string) {
	for _, existing := range r.PatternsByPackage[name] {
		if existing == pattern {
			return
		}
	}
	r.PatternsByPackage[name] = append(r.PatternsByPackage[name], pattern)
}

// attachToReference attaches pattern to an already-resolved manifest's
// Reference without fetching anything (used by resolution-map
// overrides and the existing-version pass).
func (r *Resolver) attachToReference(pattern, name string, manifest types.Manifest, depth int, optional types.OptionalState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if manifest.HasReference() {
		r.Arena.AddPattern(manifest.ReferenceIdx, pattern)
		r.Arena.AddRequest(manifest.ReferenceIdx, pattern, depth)
		r.Arena.AddOptional(manifest.ReferenceIdx, optional)
	}
	r.Patterns[pattern] = manifest
	r.addPatternByPackage(name, pattern)
}
