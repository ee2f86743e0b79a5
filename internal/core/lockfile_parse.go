package core

import (
	"strconv"
	"strings"

	"pkgresolve/internal/types"
)

// ParseLockfile parses the lockfile textual format: a
// sequence of top-level pattern-group keys each followed by an
// indented block of scalar and nested-map fields. It accepts Git
// merge-conflict markers and attempts reconciliation by taking the
// union of both sides' entries.
func ParseLockfile(data string) (ParseResult, error) {
	rawLines := strings.Split(data, "\n")
	if !hasConflictMarkers(rawLines) {
		obj, err := parseEntries(rawLines)
		if err != nil {
			return ParseResult{}, err
		}
		return ParseResult{Type: types.LockfileParseSuccess, Object: obj}, nil
	}

	oursObj, oursErr := parseEntries(conflictVariant(rawLines, "ours"))
	theirsObj, theirsErr := parseEntries(conflictVariant(rawLines, "theirs"))

	if oursErr != nil && theirsErr != nil {
		return ParseResult{Type: types.LockfileParseConflict, Object: map[string]types.LockfileEntry{}}, nil
	}
	if oursErr != nil {
		return ParseResult{Type: types.LockfileParseConflict, Object: theirsObj}, nil
	}
	if theirsErr != nil {
		return ParseResult{Type: types.LockfileParseConflict, Object: oursObj}, nil
	}

	merged := map[string]types.LockfileEntry{}
	for pattern, entry := range oursObj {
		merged[pattern] = entry
	}
	conflicted := false
	for pattern, entry := range theirsObj {
		existing, ok := merged[pattern]
		if !ok {
			merged[pattern] = entry
			continue
		}
		if !entriesEqual(existing, entry) {
			conflicted = true
		}
	}
	kind := types.LockfileParseMerge
	if conflicted {
		kind = types.LockfileParseConflict
	}
	return ParseResult{Type: kind, Object: merged}, nil
}

func hasConflictMarkers(lines []string) bool {
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "<<<<<<<") {
			return true
		}
	}
	return false
}

// conflictVariant extracts one side ("ours" or "theirs") of a document
// carrying Git merge-conflict markers, keeping every line outside a
// conflict region unconditionally.
func conflictVariant(lines []string, side string) []string {
	var out []string
	inConflict := false
	onOurs := true
	for _, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(trimmed, "<<<<<<<"):
			inConflict = true
			onOurs = true
			continue
		case strings.HasPrefix(trimmed, "======="):
			if inConflict {
				onOurs = false
				continue
			}
		case strings.HasPrefix(trimmed, ">>>>>>>"):
			inConflict = false
			continue
		}
		if !inConflict {
			out = append(out, raw)
			continue
		}
		if (side == "ours") == onOurs {
			out = append(out, raw)
		}
	}
	return out
}

type tokenLine struct {
	indent int
	text   string
}

func tokenizeLines(raw []string) []tokenLine {
	var out []tokenLine
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		trimmed := strings.TrimLeft(l, " ")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		out = append(out, tokenLine{indent: len(l) - len(trimmed), text: trimmed})
	}
	return out
}

func parseEntries(raw []string) (map[string]types.LockfileEntry, error) {
	lines := tokenizeLines(raw)
	result := map[string]types.LockfileEntry{}
	i := 0
	for i < len(lines) {
		ln := lines[i]
		if ln.indent != 0 {
			return nil, NewUnexpectedError("malformed lockfile: unexpected indentation at top level", nil)
		}
		if !strings.HasSuffix(ln.text, ":") {
			return nil, NewUnexpectedError("malformed lockfile: expected pattern key block", nil)
		}
		keyPart := strings.TrimSuffix(ln.text, ":")
		patterns := splitPatternGroup(keyPart)
		i++
		bodyStart := i
		for i < len(lines) && lines[i].indent > 0 {
			i++
		}
		entry, err := parseEntryBody(lines[bodyStart:i])
		if err != nil {
			return nil, err
		}
		for _, p := range patterns {
			result[p] = entry
		}
	}
	return result, nil
}

func splitPatternGroup(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, unquoteToken(strings.TrimSpace(p)))
	}
	return out
}

func unquoteToken(tok string) string {
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		if v, err := strconv.Unquote(tok); err == nil {
			return v
		}
	}
	return tok
}

func splitKeyValue(text string) (key string, value string) {
	idx := strings.Index(text, " ")
	if idx < 0 {
		return strings.TrimSuffix(text, ":"), ""
	}
	return text[:idx], strings.TrimSpace(text[idx+1:])
}

func parseEntryBody(lines []tokenLine) (types.LockfileEntry, error) {
	var entry types.LockfileEntry
	if len(lines) == 0 {
		return entry, nil
	}
	i := 0
	for i < len(lines) {
		ln := lines[i]
		key, value := splitKeyValue(ln.text)
		if value == "" && strings.HasSuffix(ln.text, ":") {
			i++
			start := i
			for i < len(lines) && lines[i].indent > ln.indent {
				i++
			}
			m := parseMapBlock(lines[start:i])
			switch key {
			case "dependencies":
				entry.Dependencies = toDependencyMap(m)
			case "optionalDependencies":
				entry.OptionalDependencies = toDependencyMap(m)
			case "permissions":
				entry.Permissions = toBoolMap(m)
			case "prebuiltVariants":
				entry.PrebuiltVariants = toBoolMap(m)
			}
			continue
		}
		switch key {
		case "name":
			entry.Name = unquoteToken(value)
		case "version":
			entry.Version = unquoteToken(value)
		case "resolved":
			entry.Resolved = unquoteToken(value)
		case "registry":
			entry.Registry = unquoteToken(value)
		case "uid":
			entry.UID = unquoteToken(value)
		case "integrity":
			entry.Integrity = value
		}
		i++
	}
	return entry, nil
}

func parseMapBlock(lines []tokenLine) map[string]string {
	m := map[string]string{}
	for _, ln := range lines {
		key, value := splitKeyValue(ln.text)
		m[unquoteToken(key)] = unquoteToken(value)
	}
	return m
}

func toDependencyMap(m map[string]string) types.DependencyMap {
	if len(m) == 0 {
		return nil
	}
	out := make(types.DependencyMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toBoolMap(m map[string]string) map[string]bool {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v == "true"
	}
	return out
}

func entriesEqual(a, b types.LockfileEntry) bool {
	if a.Name != b.Name || a.Version != b.Version || a.Resolved != b.Resolved ||
		a.Integrity != b.Integrity || a.Registry != b.Registry || a.UID != b.UID {
		return false
	}
	return dependencyMapEqual(a.Dependencies, b.Dependencies) &&
		dependencyMapEqual(a.OptionalDependencies, b.OptionalDependencies)
}

func dependencyMapEqual(a, b types.DependencyMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
