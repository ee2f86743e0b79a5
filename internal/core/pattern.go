package core

import (
	"strings"

	"pkgresolve/internal/types"
)

// NormalizePattern splits a raw "name@range" pattern into its name and
// range, honoring a single leading scope "@". A missing range
// defaults to "latest" with HasVersion=false; an explicit but empty
// range ("name@") becomes "*" with HasVersion=true.
func NormalizePattern(raw string) types.ParsedPattern {
	trimmed := strings.TrimSpace(raw)

	scope := ""
	rest := trimmed
	if strings.HasPrefix(trimmed, "@") {
		if idx := strings.Index(trimmed, "/"); idx >= 0 {
			scope = trimmed[:idx+1]
			rest = trimmed[idx+1:]
		}
	}

	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return types.ParsedPattern{Name: scope + rest, Range: "latest", HasVersion: false}
	}

	name := scope + rest[:at]
	rng := rest[at+1:]
	hasVersion := true
	if rng == "" {
		rng = "*"
	}
	return types.ParsedPattern{Name: name, Range: rng, HasVersion: hasVersion}
}

// BuildPattern reconstructs the raw pattern string from a name and
// range; NormalizePattern is its left inverse.
func BuildPattern(name, rangeStr string) string {
	return name + "@" + rangeStr
}

// ClassifyRange determines which resolver family a range belongs to:
// the semver reducer, or one of the exotic resolvers selected by
// prefix.
func ClassifyRange(rangeStr string) types.RangeKind {
	switch {
	case rangeStr == "latest":
		return types.RangeKindLatest
	case strings.HasPrefix(rangeStr, "file:"):
		return types.RangeKindFile
	case strings.HasPrefix(rangeStr, "link:"):
		return types.RangeKindLink
	case strings.HasPrefix(rangeStr, "http://"), strings.HasPrefix(rangeStr, "https://"):
		return types.RangeKindHTTP
	case strings.HasPrefix(rangeStr, "git+"), strings.HasPrefix(rangeStr, "git://"), strings.HasSuffix(rangeStr, ".git"):
		return types.RangeKindGit
	case strings.HasPrefix(rangeStr, "workspace:"):
		return types.RangeKindWorkspace
	default:
		return types.RangeKindSemver
	}
}

// IsExotic reports whether rangeStr bypasses the semver reducer
// entirely.
func IsExotic(rangeStr string) bool {
	switch ClassifyRange(rangeStr) {
	case types.RangeKindSemver, types.RangeKindLatest:
		return false
	default:
		return true
	}
}
