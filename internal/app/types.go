package app

import "pkgresolve/internal/types"

// ResolveRequest drives the top-level Resolve operation: discover the
// workspace, load the lockfile, run the resolver, and persist the
// result.
type ResolveRequest struct {
	Production bool
	Flat       bool
	Frozen     bool
}

// ResolveResult summarizes one completed resolution run for the CLI to
// print.
type ResolveResult struct {
	RootName   string
	TotalCount int
	Diff       types.LockfileDiff
	Conflicts  map[string][]string
}

// CheckRequest drives a frozen-mode dry run: resolve without writing
// anything, reporting whether the existing lockfile would still hold.
type CheckRequest struct {
	Production bool
}

// CheckResult reports whether the lockfile would change.
type CheckResult struct {
	WouldChange bool
	Diff        types.LockfileDiff
}

// WhyRequest asks for the requester chain behind one resolved pattern.
type WhyRequest struct {
	Pattern string
}

// WhyResult is the Reference + requesters found for WhyRequest.Pattern.
type WhyResult struct {
	Found    bool
	Name     string
	Version  string
	Level    int
	Requests []types.RequestInfo
}
