package app

import (
	"context"

	"pkgresolve/internal/types"
)

// Why resolves the current manifest and reports the requester chain
// behind req.Pattern, exercising the Reference.Requests/Level fields
// the data model already carries but the resolver itself never
// surfaces to a consumer.
func (s Service) Why(ctx context.Context, req WhyRequest) (WhyResult, error) {
	resolver, _, _, err := s.runResolution(ctx, false, false, false)
	if err != nil {
		return WhyResult{}, err
	}

	manifest, ok := resolver.Patterns[req.Pattern]
	if !ok || !manifest.HasReference() {
		return WhyResult{}, nil
	}
	ref := resolver.Arena.Get(manifest.ReferenceIdx)
	if ref == nil {
		return WhyResult{}, nil
	}
	return WhyResult{
		Found:    true,
		Name:     ref.Name,
		Version:  ref.Version,
		Level:    ref.Level,
		Requests: append([]types.RequestInfo{}, ref.Requests...),
	}, nil
}
