package app

import (
	"os"
	"path/filepath"

	"pkgresolve/internal/adapters"
	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
	"pkgresolve/internal/types"
)

const manifestFilename = "package.yaml"

// Service wires every port the CLI layer drives through to its
// concrete adapter.
type Service struct {
	ManifestReader ports.ManifestReaderPort
	Registry       ports.RegistryPort
	Exotic         map[types.RangeKind]ports.PackageResolverPort
	Mutex          ports.MutexPort

	Config types.Config
}

// NewService builds a Service from cfg, selecting the registry and
// mutex backends cfg names and wiring every exotic resolver the
// resolver core can dispatch to.
func NewService(cfg types.Config) (Service, error) {
	reader := adapters.NewManifestYAMLAdapter(manifestFilename)

	var registry ports.RegistryPort
	if cfg.Registry != "" {
		registry = adapters.NewHTTPRegistry(cfg.Registry, cfg.OTP, cfg.NetworkTimeout)
	} else {
		registry = adapters.NewStaticRegistry(manifestFilename)
	}
	_ = registry.LoadConfig(cfg)

	exotic := map[types.RangeKind]ports.PackageResolverPort{
		types.RangeKindFile: adapters.NewFileResolver(cfg.Cwd, reader),
		types.RangeKindLink: adapters.NewLinkResolver(cfg.Cwd, reader),
		types.RangeKindHTTP: adapters.NewHTTPResolver(cfg.NetworkTimeout),
		types.RangeKindGit:  adapters.NewGitResolver(cfg.CacheFolder, reader),
	}

	mutex, err := mutexForSpec(cfg.MutexSpec)
	if err != nil {
		return Service{}, err
	}

	return Service{
		ManifestReader: reader,
		Registry:       registry,
		Exotic:         exotic,
		Mutex:          mutex,
		Config:         cfg,
	}, nil
}

// mutexForSpec realizes the "file[:path]" / "network[:port]" specifier
// syntax into a concrete ports.MutexPort. An unrecognized kind or a
// malformed port is the caller's mistake.
func mutexForSpec(spec string) (ports.MutexPort, error) {
	kind, arg := splitMutexSpec(spec)
	switch kind {
	case "network":
		port := 0
		if arg != "" {
			parsed, err := parsePort(arg)
			if err != nil {
				return nil, core.NewUserError("invalid mutex port: "+arg, err)
			}
			port = parsed
		}
		return adapters.NewNetworkMutex(port), nil
	case "file":
		path := arg
		if path == "" {
			path = filepath.Join(os.TempDir(), "pkgresolve.lock")
		}
		return adapters.NewFileMutex(path), nil
	default:
		return nil, core.NewUserError("invalid mutex specifier: "+spec, nil)
	}
}

func splitMutexSpec(spec string) (kind, arg string) {
	if spec == "" {
		return "file", ""
	}
	for i, r := range spec {
		if r == ':' {
			return spec[:i], spec[i+1:]
		}
	}
	return spec, ""
}

func parsePort(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, os.ErrInvalid
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
