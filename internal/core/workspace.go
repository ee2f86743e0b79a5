package core

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

// registryFolderNames are skipped at any depth while expanding
// workspace globs.
var registryFolderNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".cache":       true,
}

// FindWorkspaceRoot walks upward from initial looking for a manifest
// whose workspaces field claims initial, directly or via a
// workspaces.packages glob.
func FindWorkspaceRoot(ctx context.Context, reader ports.ManifestReaderPort, initial, manifestFilename string) (string, bool) {
	dir := initial
	for {
		candidate := filepath.Join(dir, manifestFilename)
		manifest, err := reader.Read(candidate)
		if err == nil && (len(manifest.Workspaces.Packages) > 0 || len(manifest.Workspaces.NoHoist) > 0) {
			rel, relErr := filepath.Rel(dir, initial)
			if relErr == nil && (rel == "." || matchesAnyGlob(rel, manifest.Workspaces.Packages, dir)) {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func matchesAnyGlob(rel string, globs []string, root string) bool {
	rel = filepath.ToSlash(rel)
	for _, g := range globs {
		if globMatchesRelative(g, rel, root) {
			return true
		}
	}
	return false
}

// ResolveWorkspaces expands rootManifest's workspaces.packages globs
// under root, reading each candidate's manifest and validating
// name/version/uniqueness.
func ResolveWorkspaces(ctx context.Context, reader ports.ManifestReaderPort, root string, rootManifest types.Manifest, manifestFilename string) (map[string]types.WorkspaceProject, error) {
	projects := map[string]types.WorkspaceProject{}
	for _, glob := range rootManifest.Workspaces.Packages {
		dirs, err := expandWorkspaceGlob(root, glob)
		if err != nil {
			return nil, NewUnexpectedError("failed to expand workspace glob "+glob, err)
		}
		for _, dir := range dirs {
			manifestPath := filepath.Join(dir, manifestFilename)
			manifest, err := reader.Read(manifestPath)
			if err != nil {
				continue
			}
			if manifest.Name == "" || manifest.Version == "" {
				return nil, NewUserError("workspace project at "+dir+" must declare name and version", nil)
			}
			if _, dup := projects[manifest.Name]; dup {
				return nil, NewUserError("duplicate workspace project name: "+manifest.Name, nil)
			}
			projects[manifest.Name] = types.WorkspaceProject{Name: manifest.Name, Loc: dir, Manifest: manifest}
		}
	}
	return projects, nil
}

// expandWorkspaceGlob expands one workspaces.packages entry under
// root. Patterns without "**" are resolved with filepath.Glob; a
// "**" segment walks the whole tree (skipping registry folders at any
// depth) and matches the remaining suffix per directory.
func expandWorkspaceGlob(root, pattern string) ([]string, error) {
	pattern = filepath.ToSlash(pattern)
	if !strings.Contains(pattern, "**") {
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, err
		}
		var dirs []string
		for _, m := range matches {
			underRegistryFolder := false
			if rel, err := filepath.Rel(root, m); err == nil {
				for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
					if registryFolderNames[seg] {
						underRegistryFolder = true
						break
					}
				}
			}
			if underRegistryFolder {
				continue
			}
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				dirs = append(dirs, m)
			}
		}
		return dirs, nil
	}

	prefix, suffix, _ := strings.Cut(pattern, "**")
	prefix = strings.TrimSuffix(prefix, "/")
	suffix = strings.TrimPrefix(suffix, "/")
	walkRoot := filepath.Join(root, filepath.FromSlash(prefix))

	var dirs []string
	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if registryFolderNames[d.Name()] {
			return filepath.SkipDir
		}
		rel, relErr := filepath.Rel(walkRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if suffix == "" || suffix == "*" {
			dirs = append(dirs, path)
			return nil
		}
		if ok, _ := filepath.Match(suffix, rel); ok {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

func globMatchesRelative(glob, rel, root string) bool {
	matches, err := expandWorkspaceGlob(root, glob)
	if err != nil {
		return false
	}
	for _, m := range matches {
		mrel, err := filepath.Rel(root, m)
		if err == nil && filepath.ToSlash(mrel) == rel {
			return true
		}
	}
	return false
}

// WorkspaceLayout is the in-memory registry the resolver consults
// before any registry fetch.
type WorkspaceLayout struct {
	Root     string
	Projects map[string]types.WorkspaceProject
	Config   types.Config
}

// NewWorkspaceLayout builds a WorkspaceLayout from already-resolved
// sibling projects.
func NewWorkspaceLayout(root string, projects map[string]types.WorkspaceProject, cfg types.Config) *WorkspaceLayout {
	return &WorkspaceLayout{Root: root, Projects: projects, Config: cfg}
}

// GetManifestByPattern implements ports.WorkspaceLayoutPort.
func (w *WorkspaceLayout) GetManifestByPattern(pattern string) (types.Manifest, bool) {
	if w == nil || !w.Config.WorkspacesEnabled {
		return types.Manifest{}, false
	}
	parsed := NormalizePattern(pattern)
	project, ok := w.Projects[parsed.Name]
	if !ok {
		return types.Manifest{}, false
	}
	if parsed.HasVersion && parsed.Range != "workspace:*" && parsed.Range != "latest" {
		rangeStr := strings.TrimPrefix(parsed.Range, "workspace:")
		if rangeStr != "" && rangeStr != "*" && !Satisfies(project.Manifest.Version, rangeStr, w.Config.LooseSemver) {
			return types.Manifest{}, false
		}
	}
	return project.Manifest, true
}

var _ ports.WorkspaceLayoutPort = (*WorkspaceLayout)(nil)
