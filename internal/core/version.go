package core

import (
	"regexp"
	"sort"
	"strings"

	semver "github.com/Masterminds/semver/v3"
)

// versionCache memoizes parsed semver.Version and Constraints objects
// to avoid re-parsing the same string within one Reduce, Satisfies,
// ValidVersion, ValidRange or SortVersionsAscending call; each call
// builds its own cache.
type versionCache struct {
	loose  bool
	parsed map[string]*semver.Version
	ranges map[string]*semver.Constraints
}

func newVersionCache(loose bool) *versionCache {
	return &versionCache{
		loose:  loose,
		parsed: map[string]*semver.Version{},
		ranges: map[string]*semver.Constraints{},
	}
}

var leadingZero = regexp.MustCompile(`(^|\.)0+(\d)`)

// looseNormalize strips leading zeros from numeric identifiers and
// pads a short "major" or "major.minor" string to full semver so that
// Config's looseSemver mode accepts the lenient forms a registry may
// advertise (e.g. "01.2.3", "1.2").
func looseNormalize(value string) string {
	v := leadingZero.ReplaceAllString(value, "$1$2")
	segments := strings.Count(v, ".")
	for segments < 2 {
		v += ".0"
		segments++
	}
	return v
}

func (c *versionCache) version(value string) (*semver.Version, error) {
	if v, ok := c.parsed[value]; ok {
		return v, nil
	}
	var v *semver.Version
	var err error
	if c.loose {
		v, err = semver.NewVersion(looseNormalize(value))
	} else {
		v, err = semver.StrictNewVersion(value)
	}
	if err != nil {
		return nil, err
	}
	c.parsed[value] = v
	return v, nil
}

func (c *versionCache) constraint(rangeStr string) (*semver.Constraints, error) {
	if r, ok := c.ranges[rangeStr]; ok {
		return r, nil
	}
	r, err := semver.NewConstraint(rangeStr)
	if err != nil {
		return nil, err
	}
	c.ranges[rangeStr] = r
	return r, nil
}

// Reduce is the Constraint Reducer: given a pre-sorted-ascending
// candidate list and a range, pick the highest satisfying version, or
// the literal latest for the alias "latest". Returns ok=false only
// when no candidate satisfies.
func Reduce(versions []string, rangeStr string, loose bool) (version string, ok bool) {
	if len(versions) == 0 {
		return "", false
	}
	if rangeStr == "latest" {
		return versions[len(versions)-1], true
	}

	cache := newVersionCache(loose)
	constraint, err := cache.constraint(rangeStr)
	if err != nil {
		return "", false
	}

	var best *semver.Version
	var bestRaw string
	for _, raw := range versions {
		v, err := cache.version(raw)
		if err != nil {
			continue
		}
		if !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = raw
		}
	}
	if best == nil {
		return "", false
	}
	return bestRaw, true
}

// Satisfies reports whether version satisfies rangeStr (used by
// lockfile staleness detection).
func Satisfies(version, rangeStr string, loose bool) bool {
	cache := newVersionCache(loose)
	v, err := cache.version(version)
	if err != nil {
		return false
	}
	constraint, err := cache.constraint(rangeStr)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

// ValidVersion reports whether value parses as a semantic version.
func ValidVersion(value string, loose bool) bool {
	cache := newVersionCache(loose)
	_, err := cache.version(value)
	return err == nil
}

// ValidRange reports whether value parses as a semver range.
func ValidRange(value string) bool {
	cache := newVersionCache(false)
	_, err := cache.constraint(value)
	return err == nil
}

// SortVersionsAscending sorts a slice of version strings ascending
// under semver order, as a registry backend is expected to hand the
// Reducer its candidate list. Unparsable entries sort last and
// keep their relative order.
func SortVersionsAscending(versions []string, loose bool) {
	cache := newVersionCache(loose)
	sort.SliceStable(versions, func(i, j int) bool {
		vi, erri := cache.version(versions[i])
		vj, errj := cache.version(versions[j])
		if erri != nil || errj != nil {
			return erri == nil && errj != nil
		}
		return vi.LessThan(vj)
	})
}
