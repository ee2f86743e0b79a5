package core

import (
	"context"

	assert "github.com/ZanzyTHEbar/assert-lib"

	"pkgresolve/internal/types"
)

// SeedRequest is one Request a manifest contributes, carrying whether
// it originated from an optionalDependencies map. A Reference ends up
// required iff at least one requester marked it non-optional.
type SeedRequest struct {
	Pattern  string
	Optional bool
}

// RootRequests collects the Requests a resolution run seeds from: all
// four dependency maps, with devDependencies included only when
// production is false. peerDependencies and devDependencies are
// treated as required at the root.
func RootRequests(manifest types.Manifest, production bool) []SeedRequest {
	var out []SeedRequest
	out = append(out, seedRequests(manifest.Dependencies, false)...)
	out = append(out, seedRequests(manifest.OptionalDependencies, true)...)
	out = append(out, seedRequests(manifest.PeerDependencies, false)...)
	if !production {
		out = append(out, seedRequests(manifest.DevDependencies, false)...)
	}
	return out
}

// ChildRequests collects the Requests a non-root manifest contributes
// to its own recursion: dependencies and optionalDependencies only.
// devDependencies never recurse past the root.
func ChildRequests(manifest types.Manifest) []SeedRequest {
	var out []SeedRequest
	out = append(out, seedRequests(manifest.Dependencies, false)...)
	out = append(out, seedRequests(manifest.OptionalDependencies, true)...)
	return out
}

func seedRequests(deps types.DependencyMap, optional bool) []SeedRequest {
	out := make([]SeedRequest, 0, len(deps))
	for name, rng := range deps {
		out = append(out, SeedRequest{Pattern: BuildPattern(name, rng), Optional: optional})
	}
	return out
}

// ValidateManifest checks the invariants a manifest must hold before
// it can seed a resolution. It is applied to the root manifest;
// workspace projects and fetched manifests are not passed through it.
// Declaring workspaces.nohoist requires both a private manifest and
// the nohoist feature enabled.
func ValidateManifest(ctx context.Context, manifest types.Manifest, requireNameVersion, nohoistEnabled bool) error {
	if requireNameVersion {
		assert.NotEmpty(ctx, manifest.Name, "manifest name must be set")
		assert.NotEmpty(ctx, manifest.Version, "manifest version must be set")
	}
	if len(manifest.Workspaces.Packages) > 0 && !manifest.Private {
		return NewUserError("a manifest with workspaces.packages must be private", nil)
	}
	if len(manifest.Workspaces.NoHoist) > 0 {
		if !manifest.Private {
			return NewUserError("workspaces.nohoist requires a private manifest", nil)
		}
		if !nohoistEnabled {
			return NewUserError("workspaces.nohoist requires the nohoist feature to be enabled", nil)
		}
	}
	return nil
}
