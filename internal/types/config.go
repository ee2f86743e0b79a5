package types

import "time"

// Config aggregates command-line flags, rc-file values, and
// environment variables that parameterize the resolver.
type Config struct {
	Cwd            string
	LockfileFolder string
	CacheFolder    string
	GlobalFolder   string
	LinkFolder     string
	ModulesFolder  string

	Offline                  bool
	PreferOffline            bool
	Frozen                   bool
	Flat                     bool
	Focus                    bool
	UpdateChecksums          bool
	IgnorePlatform           bool
	IgnoreEngines            bool
	IgnoreScripts            bool
	Production               bool
	LooseSemver              bool
	WorkspacesEnabled        bool
	WorkspacesNohoistEnabled bool

	NetworkConcurrency int
	ChildConcurrency   int
	NetworkTimeout     time.Duration

	HTTPProxy  string
	HTTPSProxy string
	Registry   string
	OTP        string

	MutexSpec string
}

// DefaultConfig returns the zero-value Config populated with the
// documented defaults: 8-way network fan-out, 5-way helper
// process fan-out, 30s network timeout.
func DefaultConfig() Config {
	return Config{
		NetworkConcurrency:       8,
		ChildConcurrency:         5,
		NetworkTimeout:           30 * time.Second,
		WorkspacesEnabled:        true,
		WorkspacesNohoistEnabled: true,
	}
}
