package types

// DependencyMap is a name -> range map as carried by one section of a
// manifest (dependencies, devDependencies, ...).
type DependencyMap map[string]string

// Workspaces is the root manifest's "workspaces" field. It accepts
// either a bare array of globs or an object with packages/nohoist.
type Workspaces struct {
	Packages []string `yaml:"packages,omitempty"`
	NoHoist  []string `yaml:"nohoist,omitempty"`
}

// UnmarshalYAML accepts both the shorthand array form and the object
// form of the workspaces field.
func (w *Workspaces) UnmarshalYAML(unmarshal func(any) error) error {
	var packages []string
	if err := unmarshal(&packages); err == nil {
		w.Packages = packages
		return nil
	}
	type alias Workspaces
	var full alias
	if err := unmarshal(&full); err != nil {
		return err
	}
	*w = Workspaces(full)
	return nil
}

// Manifest is the normalized form of a manifest file, holding every
// attribute the resolver consumes plus the back-references attached
// during resolution.
type Manifest struct {
	Name                 string          `yaml:"name"`
	Version              string          `yaml:"version"`
	Dependencies         DependencyMap   `yaml:"dependencies,omitempty"`
	DevDependencies      DependencyMap   `yaml:"devDependencies,omitempty"`
	OptionalDependencies DependencyMap   `yaml:"optionalDependencies,omitempty"`
	PeerDependencies     DependencyMap   `yaml:"peerDependencies,omitempty"`
	Resolutions          DependencyMap   `yaml:"resolutions,omitempty"`
	Workspaces           Workspaces      `yaml:"workspaces,omitempty"`
	Private              bool            `yaml:"private,omitempty"`
	InstallConfig        map[string]bool `yaml:"installConfig,omitempty"`

	// Back-references attached by the resolver. Not part of the file
	// on disk; populated once a Reference exists for this manifest.
	ReferenceIdx     int             `yaml:"-"`
	RemoteKey        string          `yaml:"-"`
	UID              string          `yaml:"-"`
	Registry         string          `yaml:"-"`
	Loc              string          `yaml:"-"`
	Fresh            bool            `yaml:"-"`
	PrebuiltVariants map[string]bool `yaml:"-"`
}

// HasReference reports whether a Reference has been attached.
func (m Manifest) HasReference() bool {
	return m.ReferenceIdx >= 0
}
