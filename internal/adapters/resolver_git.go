package adapters

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

// GitResolver implements ports.PackageResolverPort for a VCS range
// ("git+https://...", "git://...", or a bare ".git"-suffixed URL,
// optionally followed by "#ref"). It is the one exotic resolver that
// actually shells out; the caller bounds concurrent invocations with
// childConcurrency rather than networkConcurrency. Checking the
// resulting commit out into the module tree is fetch/extract work
// that stays an external collaborator; this resolver only needs
// enough of a local clone to read the manifest and pin a commit sha.
type GitResolver struct {
	WorkDir string
	Reader  ports.ManifestReaderPort
	GitBin  string
}

func NewGitResolver(workDir string, reader ports.ManifestReaderPort) GitResolver {
	return GitResolver{WorkDir: workDir, Reader: reader, GitBin: "git"}
}

func (g GitResolver) Resolve(ctx context.Context, name, rangeStr string) (ports.ResolvedPackage, error) {
	repoURL, ref := parseGitRange(rangeStr)
	if repoURL == "" {
		return ports.ResolvedPackage{}, core.NewConstraintError("empty git repository url in range "+rangeStr, nil)
	}

	dir, err := os.MkdirTemp(g.WorkDir, "pkgresolve-git-*")
	if err != nil {
		return ports.ResolvedPackage{}, core.NewUnexpectedError("creating git clone scratch dir", err)
	}
	defer os.RemoveAll(dir)

	args := []string{"clone", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, repoURL, dir)
	if err := g.run(ctx, args...); err != nil {
		return ports.ResolvedPackage{}, core.NewNetworkError("cloning "+repoURL, err)
	}

	commit, err := g.revParse(ctx, dir)
	if err != nil {
		return ports.ResolvedPackage{}, err
	}

	manifestPath := filepath.Join(dir, g.filename())
	manifest, err := g.Reader.Read(manifestPath)
	if err != nil {
		return ports.ResolvedPackage{}, core.NewNetworkError("reading manifest from "+repoURL, err)
	}
	if manifest.Name == "" {
		manifest.Name = name
	}
	if manifest.Version == "" {
		manifest.Version = "0.0.0"
	}

	remote := types.RemoteDescriptor{
		Type:      "git",
		Resolved:  repoURL + "#" + commit,
		Reference: commit,
	}
	return ports.ResolvedPackage{Version: manifest.Version, Manifest: manifest, Remote: remote}, nil
}

func (g GitResolver) run(ctx context.Context, args ...string) error {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Ctx(ctx).Warn().Str("args", strings.Join(args, " ")).Str("stderr", stderr.String()).Msg("git command failed")
		return err
	}
	return nil
}

func (g GitResolver) revParse(ctx context.Context, dir string) (string, error) {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, "-C", dir, "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return "", core.NewNetworkError("reading git commit for "+dir, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (g GitResolver) filename() string {
	if reader, ok := g.Reader.(ManifestYAMLAdapter); ok && reader.Filename != "" {
		return reader.Filename
	}
	return "package.yaml"
}

// parseGitRange splits a VCS range into its repository URL and
// optional ref, stripping the "git+" scheme prefix npm-style ranges
// use.
func parseGitRange(rangeStr string) (url, ref string) {
	trimmed := strings.TrimPrefix(rangeStr, "git+")
	url, ref, _ = strings.Cut(trimmed, "#")
	return url, ref
}

var _ ports.PackageResolverPort = GitResolver{}
