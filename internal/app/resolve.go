package app

import (
	"context"
	"os"
	"path/filepath"

	"pkgresolve/internal/core"
	"pkgresolve/internal/types"
)

const lockfileOutputName = "pkg.lock"

// Resolve runs one full resolution: load the root manifest, discover
// any workspace, load the existing lockfile, run the resolver, then
// persist the updated lockfile.
func (s Service) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	resolver, root, before, err := s.runResolution(ctx, req.Production, req.Flat, req.Frozen)
	if err != nil {
		return ResolveResult{}, err
	}

	entries := buildLockfileEntries(resolver)
	after := &core.Lockfile{Entries: entries}
	diff := before.Diff(after)

	if !req.Frozen {
		if err := writeLockfile(s.Config.Cwd, entries); err != nil {
			return ResolveResult{}, err
		}
	}

	return ResolveResult{
		RootName:   root.Name,
		TotalCount: len(entries),
		Diff:       diff,
		Conflicts:  resolver.Conflicts(),
	}, nil
}

// runResolution loads the root manifest and any workspace, then runs
// the resolver to completion, returning it so callers (Resolve, Why)
// can inspect its final state without duplicating the setup.
func (s Service) runResolution(ctx context.Context, production, flat, frozen bool) (*core.Resolver, types.Manifest, *core.Lockfile, error) {
	root, err := s.ManifestReader.Read(filepath.Join(s.Config.Cwd, manifestFilename))
	if err != nil {
		return nil, types.Manifest{}, nil, err
	}
	if err := core.ValidateManifest(ctx, root, true, s.Config.WorkspacesNohoistEnabled); err != nil {
		return nil, types.Manifest{}, nil, err
	}

	workspaceRoot, isWorkspace := core.FindWorkspaceRoot(ctx, s.ManifestReader, s.Config.Cwd, manifestFilename)
	if s.Config.Focus {
		if !isWorkspace {
			return nil, types.Manifest{}, nil, core.NewUserError("focus requires a workspace project", nil)
		}
		if workspaceRoot == s.Config.Cwd {
			return nil, types.Manifest{}, nil, core.NewUserError("focus cannot be used at the workspace root", nil)
		}
	}
	var layout *core.WorkspaceLayout
	if isWorkspace && s.Config.WorkspacesEnabled {
		rootManifest := root
		rootDir := s.Config.Cwd
		if workspaceRoot != s.Config.Cwd {
			rootManifest, err = s.ManifestReader.Read(filepath.Join(workspaceRoot, manifestFilename))
			if err != nil {
				return nil, types.Manifest{}, nil, err
			}
			rootDir = workspaceRoot
		}
		projects, err := core.ResolveWorkspaces(ctx, s.ManifestReader, rootDir, rootManifest, manifestFilename)
		if err != nil {
			return nil, types.Manifest{}, nil, err
		}
		layout = core.NewWorkspaceLayout(rootDir, projects, s.Config)
	}

	before, err := core.FromDirectory(s.Config.Cwd)
	if err != nil {
		return nil, types.Manifest{}, nil, err
	}

	resolutionMap := core.NewResolutionMap(root.Resolutions)

	resolver := core.NewResolver(core.ResolverDeps{
		Registry:        s.Registry,
		Exotic:          s.Exotic,
		WorkspaceLayout: layout,
		Lockfile:        before,
		ResolutionMap:   resolutionMap,
		Config:          s.Config,
	})

	seeds := core.RootRequests(root, production)
	if err := resolver.Init(ctx, seeds, core.InitOptions{Flat: flat, Frozen: frozen}); err != nil {
		return nil, types.Manifest{}, nil, err
	}
	return resolver, root, before, nil
}

// buildLockfileEntries converts a completed Resolver's patterns map
// into the pattern -> LockfileEntry shape GetLockfile serializes,
// pulling the remote/integrity/permission data off each pattern's
// Reference.
func buildLockfileEntries(resolver *core.Resolver) map[string]types.LockfileEntry {
	entries := make(map[string]types.LockfileEntry, len(resolver.Patterns))
	for pattern, manifest := range resolver.Patterns {
		entry := types.LockfileEntry{
			Name:                 manifest.Name,
			Version:              manifest.Version,
			Registry:             manifest.Registry,
			UID:                  manifest.UID,
			Dependencies:         manifest.Dependencies,
			OptionalDependencies: manifest.OptionalDependencies,
			PrebuiltVariants:     manifest.PrebuiltVariants,
		}
		if ref := resolver.Arena.Get(manifest.ReferenceIdx); ref != nil {
			entry.Resolved = ref.Remote.Resolved
			entry.Integrity = ref.Remote.Integrity
			entry.Permissions = ref.Permissions
		}
		entries[pattern] = entry
	}
	return entries
}

func writeLockfile(dir string, entries map[string]types.LockfileEntry) error {
	data := core.GetLockfile(entries)
	path := filepath.Join(dir, lockfileOutputName)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return core.NewUnexpectedError("writing lockfile", err)
	}
	return nil
}
