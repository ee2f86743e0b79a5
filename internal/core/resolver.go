package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

// delayedResolve is a deferred Request awaiting the existing-version
// pass.
type delayedResolve struct {
	pattern     string
	name        string
	rangeStr    string
	parentNames []string
	depth       int
	optional    types.OptionalState
}

// Resolver is the Package Resolver: it owns every pattern
// discovered during one run and schedules Requests with bounded
// concurrency. A single mutex guards the shared maps: every map
// mutation happens inside a short critical section, and the only
// points that release it are the network/filesystem calls in
// dispatchResolve.
type Resolver struct {
	mu                  sync.Mutex
	Patterns            map[string]types.Manifest
	PatternsByPackage   map[string][]string
	Arena               *ReferenceArena
	fetchingPatterns    map[string]bool
	delayedResolveQueue []delayedResolve
	conflicts           map[string][]string

	ResolutionMap   *ResolutionMap
	Lockfile        *Lockfile
	WorkspaceLayout ports.WorkspaceLayoutPort
	Registry        ports.RegistryPort
	Exotic          map[types.RangeKind]ports.PackageResolverPort
	Config          types.Config

	Flat   bool
	Frozen bool

	sem      *semaphore.Weighted
	childSem *semaphore.Weighted

	rootNames []string
}

// ResolverDeps wires a Resolver's external collaborators. All are
// optional except Config.
type ResolverDeps struct {
	Registry        ports.RegistryPort
	Exotic          map[types.RangeKind]ports.PackageResolverPort
	WorkspaceLayout ports.WorkspaceLayoutPort
	Lockfile        *Lockfile
	ResolutionMap   *ResolutionMap
	Config          types.Config
}

// NewResolver builds an empty Resolver ready for Init.
func NewResolver(deps ResolverDeps) *Resolver {
	cfg := deps.Config
	if cfg.NetworkConcurrency <= 0 {
		cfg.NetworkConcurrency = types.DefaultConfig().NetworkConcurrency
	}
	if cfg.ChildConcurrency <= 0 {
		cfg.ChildConcurrency = types.DefaultConfig().ChildConcurrency
	}
	lockfile := deps.Lockfile
	if lockfile == nil {
		lockfile = &Lockfile{Entries: map[string]types.LockfileEntry{}}
	}
	resolutionMap := deps.ResolutionMap
	if resolutionMap == nil {
		resolutionMap = NewResolutionMap(nil)
	}
	return &Resolver{
		Patterns:          map[string]types.Manifest{},
		PatternsByPackage: map[string][]string{},
		Arena:             NewReferenceArena(),
		fetchingPatterns:  map[string]bool{},
		conflicts:         map[string][]string{},
		ResolutionMap:     resolutionMap,
		Lockfile:          lockfile,
		WorkspaceLayout:   deps.WorkspaceLayout,
		Registry:          deps.Registry,
		Exotic:            deps.Exotic,
		Config:            cfg,
		sem:               semaphore.NewWeighted(int64(cfg.NetworkConcurrency)),
		childSem:          semaphore.NewWeighted(int64(cfg.ChildConcurrency)),
	}
}

// InitOptions parameterizes one resolution run.
type InitOptions struct {
	Flat   bool
	Frozen bool
}

// Init runs the full five-phase algorithm seeded from the root
// manifest's Requests.
func (r *Resolver) Init(ctx context.Context, seeds []SeedRequest, opts InitOptions) error {
	r.Flat = opts.Flat
	r.Frozen = opts.Frozen
	r.rootNames = nil
	for _, s := range seeds {
		r.rootNames = append(r.rootNames, NormalizePattern(s.Pattern).Name)
	}

	// Phase 1: find fan-out.
	eg, egCtx := errgroup.WithContext(ctx)
	for _, seed := range seeds {
		seed := seed
		state := types.OptionalRequired
		if seed.Optional {
			state = types.OptionalYes
		}
		eg.Go(func() error {
			return r.find(egCtx, eg, seed.Pattern, nil, 0, state)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	// Phase 2: existing-version pass.
	r.runExistingVersionPass()

	// Phase 3: resolution-map delay drain.
	r.drainResolutionMapDelays()

	// Phase 4: flatten.
	if r.Flat {
		for _, name := range dedupStrings(r.rootNames) {
			r.optimizeResolutions(name)
		}
	}

	if r.Frozen {
		for pattern, m := range r.Patterns {
			if m.Fresh {
				return NewUserError("frozen lockfile would change for pattern "+pattern, nil)
			}
		}
	}
	return nil
}

// runExistingVersionPass drains delayedResolveQueue:
// each deferred Request attaches to the highest satisfying version
// already known for its package name.
func (r *Resolver) runExistingVersionPass() {
	r.mu.Lock()
	pending := r.delayedResolveQueue
	r.delayedResolveQueue = nil
	r.mu.Unlock()

	for _, info := range pending {
		r.resolveToExistingVersion(info)
	}
}

func (r *Resolver) resolveToExistingVersion(info delayedResolve) {
	r.mu.Lock()
	candidates := append([]string{}, r.PatternsByPackage[info.name]...)
	r.mu.Unlock()

	var best types.Manifest
	found := false
	for _, p := range candidates {
		r.mu.Lock()
		m, ok := r.Patterns[p]
		r.mu.Unlock()
		if !ok || !m.HasReference() {
			continue
		}
		if !IsExotic(info.rangeStr) && !Satisfies(m.Version, info.rangeStr, r.Config.LooseSemver) {
			continue
		}
		if !found {
			best, found = m, true
			continue
		}
		if winner, ok := Reduce([]string{best.Version, m.Version}, "latest", r.Config.LooseSemver); ok && winner == m.Version {
			best = m
		}
	}
	if !found {
		log.Warn().Str("pattern", info.pattern).Msg("existing-version pass found no satisfying candidate, dropping")
		return
	}
	r.attachToReference(info.pattern, info.name, best, info.depth, info.optional)
}

// drainResolutionMapDelays re-evaluates the queued pins now that more
// targets may have resolved. Pins still unresolved after this single
// pass are dropped with a warning; there is one re-evaluation, not an
// unbounded retry loop.
func (r *Resolver) drainResolutionMapDelays() {
	pending := r.ResolutionMap.DrainDelayed()
	for _, pin := range pending {
		name := NormalizePattern(pin.Pattern).Name
		pinnedPattern := BuildPattern(name, pin.Target)

		r.mu.Lock()
		manifest, ok := r.Patterns[pinnedPattern]
		r.mu.Unlock()
		if !ok {
			log.Warn().Str("pattern", pin.Pattern).Str("glob", pin.GlobPath).Msg("resolution override never resolved, dropping pin")
			continue
		}
		r.attachToReference(pin.Pattern, name, manifest, len(pin.ParentNames), types.OptionalUninit)
	}
}

// optimizeResolutions collapses every collapsible pattern for name
// onto the highest version satisfying all of their ranges, when one
// exists.
func (r *Resolver) optimizeResolutions(name string) {
	r.mu.Lock()
	patterns := append([]string{}, r.PatternsByPackage[name]...)
	r.mu.Unlock()

	var collapsible []string
	versionSet := map[string]bool{}
	var ranges []string
	for _, p := range patterns {
		r.mu.Lock()
		m, ok := r.Patterns[p]
		r.mu.Unlock()
		if !ok {
			continue
		}
		if r.Lockfile != nil {
			if _, locked := r.Lockfile.GetLocked(p); locked {
				continue
			}
		}
		if ref := r.Arena.Get(m.ReferenceIdx); ref != nil && ref.Remote.Type == "workspace" {
			continue
		}
		collapsible = append(collapsible, p)
		versionSet[m.Version] = true
		parsed := NormalizePattern(p)
		if !IsExotic(parsed.Range) && parsed.Range != "latest" {
			ranges = append(ranges, parsed.Range)
		}
	}
	if len(collapsible) <= 1 {
		return
	}

	versions := make([]string, 0, len(versionSet))
	for v := range versionSet {
		versions = append(versions, v)
	}
	SortVersionsAscending(versions, r.Config.LooseSemver)

	for i := len(versions) - 1; i >= 0; i-- {
		candidate := versions[i]
		if satisfiesAllRanges(candidate, ranges, r.Config.LooseSemver) {
			r.collapsePackageVersions(name, candidate, collapsible)
			return
		}
	}

	r.mu.Lock()
	r.conflicts[name] = ranges
	r.mu.Unlock()
	log.Warn().Str("name", name).Msg("flat mode could not reconcile a single version for all ranges")
}

func satisfiesAllRanges(version string, ranges []string, loose bool) bool {
	for _, rg := range ranges {
		if !Satisfies(version, rg, loose) {
			return false
		}
	}
	return true
}

// collapsePackageVersions re-points every pattern not already pointing
// at version's Reference onto it, pruning each former Reference.
func (r *Resolver) collapsePackageVersions(name, version string, patterns []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	targetIdx := -1
	var targetManifest types.Manifest
	for _, p := range patterns {
		if m, ok := r.Patterns[p]; ok && m.Version == version {
			targetManifest, targetIdx = m, m.ReferenceIdx
			break
		}
	}
	if targetIdx < 0 {
		return
	}

	for _, p := range patterns {
		m, ok := r.Patterns[p]
		if !ok || m.ReferenceIdx == targetIdx {
			continue
		}
		oldIdx := m.ReferenceIdx
		oldRef := r.Arena.Get(oldIdx)
		if oldRef == nil {
			continue
		}
		captured := append([]string{}, oldRef.Patterns...)
		r.Arena.Prune(oldIdx, r.Patterns)
		for _, cp := range captured {
			r.Arena.AddPattern(targetIdx, cp)
			r.Patterns[cp] = targetManifest
		}
	}
}

// Conflicts returns, per package name, the unresolved range set from
// a flat-mode run that could not be reconciled to one version.
func (r *Resolver) Conflicts() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.conflicts))
	for k, v := range r.conflicts {
		out[k] = append([]string{}, v...)
	}
	return out
}

// GetTopologicalManifests emits the resolved set in DFS post-order,
// seeded from seedPatterns, visiting each distinct Reference once.
func (r *Resolver) GetTopologicalManifests(seedPatterns []string) []types.Manifest {
	seen := map[int]bool{}
	var order []types.Manifest
	var visit func(pattern string)
	visit = func(pattern string) {
		m, ok := r.Patterns[pattern]
		if !ok {
			return
		}
		if m.HasReference() {
			if seen[m.ReferenceIdx] {
				return
			}
			seen[m.ReferenceIdx] = true
		}
		for _, child := range ChildRequests(m) {
			visit(child.Pattern)
		}
		order = append(order, m)
	}
	for _, p := range seedPatterns {
		visit(p)
	}
	return order
}

// GetLevelOrderManifests emits the resolved set in BFS level-order,
// seeded from seedPatterns, visiting each distinct Reference once.
func (r *Resolver) GetLevelOrderManifests(seedPatterns []string) []types.Manifest {
	seen := map[int]bool{}
	var order []types.Manifest
	queue := append([]string{}, seedPatterns...)
	for len(queue) > 0 {
		pattern := queue[0]
		queue = queue[1:]
		m, ok := r.Patterns[pattern]
		if !ok {
			continue
		}
		if m.HasReference() {
			if seen[m.ReferenceIdx] {
				continue
			}
			seen[m.ReferenceIdx] = true
		}
		order = append(order, m)
		for _, child := range ChildRequests(m) {
			queue = append(queue, child.Pattern)
		}
	}
	return order
}

// UpdateManifest mutates pattern's manifest in place with a
// downstream-supplied replacement, preserving name, fresh, and
// prebuiltVariants from the prior manifest.
func (r *Resolver) UpdateManifest(pattern string, newPkg ports.ResolvedPackage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.Patterns[pattern]
	if !ok {
		return
	}
	updated := newPkg.Manifest
	updated.Name = old.Name
	updated.Fresh = old.Fresh
	updated.PrebuiltVariants = old.PrebuiltVariants
	updated.ReferenceIdx = old.ReferenceIdx
	updated.RemoteKey = newPkg.Remote.Key()
	updated.UID = old.UID
	updated.Registry = old.Registry
	r.Patterns[pattern] = updated

	if ref := r.Arena.Get(old.ReferenceIdx); ref != nil {
		ref.Remote = newPkg.Remote
		ref.Version = newPkg.Version
	}
}

func dedupStrings(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
