package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"pkgresolve/internal/types"
)

const lockfileFilename = "pkg.lock"

const lockfileHeader = "" +
	"# THIS IS AN AUTOGENERATED FILE. DO NOT EDIT THIS FILE DIRECTLY.\n" +
	"# pkgresolve lockfile v1\n\n\n"

// ParseResult is the outcome of parsing one lockfile's text.
type ParseResult struct {
	Type   types.LockfileParseKind
	Object map[string]types.LockfileEntry
}

// Lockfile is the in-memory, pattern-keyed view of a parsed lockfile.
// A pattern missing from Entries has no lock and must be resolved
// fresh.
type Lockfile struct {
	Entries map[string]types.LockfileEntry
}

// FromDirectory reads and parses dir's lockfile file. A missing file
// yields an empty, non-error Lockfile.
func FromDirectory(dir string) (*Lockfile, error) {
	path := filepath.Join(dir, lockfileFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Lockfile{Entries: map[string]types.LockfileEntry{}}, nil
		}
		return nil, NewUnexpectedError("failed to read lockfile", err)
	}
	result, err := ParseLockfile(string(data))
	if err != nil {
		return nil, err
	}
	if result.Type == types.LockfileParseConflict {
		log.Warn().Str("path", path).Msg("lockfile has unresolved merge conflicts; proceeding best-effort")
	} else if result.Type == types.LockfileParseMerge {
		log.Warn().Str("path", path).Msg("lockfile merge conflicts reconciled by union")
	}
	return &Lockfile{Entries: result.Object}, nil
}

// GetLocked looks up pattern's lock entry.
func (l *Lockfile) GetLocked(pattern string) (types.LockfileEntry, bool) {
	if l == nil {
		return types.LockfileEntry{}, false
	}
	entry, ok := l.Entries[pattern]
	return entry, ok
}

// RemovePattern drops pattern's entry, e.g. once detected stale.
func (l *Lockfile) RemovePattern(pattern string) {
	if l == nil {
		return
	}
	delete(l.Entries, pattern)
}

// HasEntriesExistWithoutIntegrity reports every pattern whose entry is
// missing an integrity string, used to detect legacy lockfiles needing
// migration. Patterns whose key is a file: or http(s): exotic
// reference are excluded, since those are never content-addressed.
func (l *Lockfile) HasEntriesExistWithoutIntegrity() []string {
	if l == nil {
		return nil
	}
	var missing []string
	for pattern, entry := range l.Entries {
		if strings.Contains(pattern, "@file:") || strings.Contains(pattern, "@http") {
			continue
		}
		if strings.TrimSpace(entry.Integrity) == "" {
			missing = append(missing, pattern)
		}
	}
	sort.Strings(missing)
	return missing
}

// IsStale implements the staleness rule: an entry is stale when
// its range is valid, its locked version is valid, the range is
// non-exotic, the pattern carried an explicit version, and the locked
// version no longer satisfies the range.
func IsStale(pattern string, entry types.LockfileEntry, loose bool) bool {
	parsed := NormalizePattern(pattern)
	if !parsed.HasVersion {
		return false
	}
	if IsExotic(parsed.Range) {
		return false
	}
	if !ValidRange(parsed.Range) || !ValidVersion(entry.Version, loose) {
		return false
	}
	return !Satisfies(entry.Version, parsed.Range, loose)
}

// Diff compares two resolutions pattern-by-pattern so the install
// command can print an add/remove/change summary.
func (l *Lockfile) Diff(other *Lockfile) types.LockfileDiff {
	var diff types.LockfileDiff
	if l == nil {
		l = &Lockfile{}
	}
	if other == nil {
		other = &Lockfile{}
	}
	for pattern, entry := range other.Entries {
		prior, ok := l.Entries[pattern]
		if !ok {
			diff.Added = append(diff.Added, pattern)
			continue
		}
		if prior.Version != entry.Version || prior.Resolved != entry.Resolved {
			diff.Changed = append(diff.Changed, pattern)
		}
	}
	for pattern := range l.Entries {
		if _, ok := other.Entries[pattern]; !ok {
			diff.Removed = append(diff.Removed, pattern)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff
}

// GetLockfile serializes the final {pattern -> entry} resolution into
// lockfile text: patterns sorted alphabetically, entries
// sharing a remote-key deduplicated so the first pattern in sort order
// owns the content and later patterns share its group, integrity
// strings re-tokenized and sorted for byte-stability.
func GetLockfile(resolved map[string]types.LockfileEntry) string {
	patterns := make([]string, 0, len(resolved))
	for pattern := range resolved {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	type group struct {
		owner    string
		patterns []string
		entry    types.LockfileEntry
	}
	byKey := map[string]*group{}
	var order []string
	for _, pattern := range patterns {
		entry := resolved[pattern]
		entry.Integrity = canonicalIntegrity(entry.Integrity)
		key := remoteGroupKey(entry)
		g, ok := byKey[key]
		if !ok {
			g = &group{owner: pattern, entry: entry}
			byKey[key] = g
			order = append(order, key)
		}
		g.patterns = append(g.patterns, pattern)
	}

	var b strings.Builder
	b.WriteString(lockfileHeader)
	for i, key := range order {
		if i > 0 {
			b.WriteString("\n")
		}
		g := byKey[key]
		writeEntry(&b, g.patterns, g.entry)
	}
	return b.String()
}

func remoteGroupKey(entry types.LockfileEntry) string {
	if entry.Resolved != "" {
		return entry.Resolved
	}
	return entry.Name + "#" + entry.UID
}

func canonicalIntegrity(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	tokens := strings.Fields(value)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func writeEntry(b *strings.Builder, patterns []string, entry types.LockfileEntry) {
	quoted := make([]string, len(patterns))
	for i, p := range patterns {
		quoted[i] = quoteKey(p)
	}
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(":\n")
	if entry.Name != "" {
		fmt.Fprintf(b, "  name %s\n", quoteValue(entry.Name))
	}
	fmt.Fprintf(b, "  version %s\n", quoteValue(entry.Version))
	if entry.Resolved != "" {
		fmt.Fprintf(b, "  resolved %s\n", quoteValue(entry.Resolved))
	}
	if entry.Registry != "" {
		fmt.Fprintf(b, "  registry %s\n", quoteValue(entry.Registry))
	}
	if entry.UID != "" {
		fmt.Fprintf(b, "  uid %s\n", quoteValue(entry.UID))
	}
	if entry.Integrity != "" {
		fmt.Fprintf(b, "  integrity %s\n", entry.Integrity)
	}
	writeDepBlock(b, "dependencies", entry.Dependencies)
	writeDepBlock(b, "optionalDependencies", entry.OptionalDependencies)
	writeBoolBlock(b, "permissions", entry.Permissions)
	writeBoolBlock(b, "prebuiltVariants", entry.PrebuiltVariants)
}

func writeDepBlock(b *strings.Builder, key string, deps types.DependencyMap) {
	if len(deps) == 0 {
		return
	}
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(b, "  %s:\n", key)
	for _, name := range names {
		fmt.Fprintf(b, "    %s %s\n", quoteKey(name), quoteValue(deps[name]))
	}
}

func writeBoolBlock(b *strings.Builder, key string, values map[string]bool) {
	if len(values) == 0 {
		return
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(b, "  %s:\n", key)
	for _, name := range names {
		fmt.Fprintf(b, "    %s %t\n", quoteKey(name), values[name])
	}
}

func quoteKey(value string) string {
	if needsQuote(value) {
		return strconv.Quote(value)
	}
	return value
}

func quoteValue(value string) string {
	return strconv.Quote(value)
}

func needsQuote(value string) bool {
	return strings.ContainsAny(value, " \t\"'")
}
