package types

// WorkspaceProject is one sibling project discovered by expanding the
// workspace root's "workspaces.packages" globs.
type WorkspaceProject struct {
	Name     string
	Loc      string
	Manifest Manifest
}
