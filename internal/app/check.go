package app

import "context"

// Check runs a frozen-mode dry resolution: if it succeeds, the
// existing lockfile already satisfies every dependency. If Resolve
// fails for any reason (including "frozen lockfile would change"),
// Check returns WouldChange=true together with that error.
func (s Service) Check(ctx context.Context, req CheckRequest) (CheckResult, error) {
	result, err := s.Resolve(ctx, ResolveRequest{Production: req.Production, Frozen: true})
	if err != nil {
		return CheckResult{WouldChange: true}, err
	}
	wouldChange := len(result.Diff.Added) > 0 || len(result.Diff.Removed) > 0 || len(result.Diff.Changed) > 0
	return CheckResult{WouldChange: wouldChange, Diff: result.Diff}, nil
}
