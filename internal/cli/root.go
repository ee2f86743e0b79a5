package cli

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pkgresolve/internal/app"
	"pkgresolve/internal/core"
	"pkgresolve/internal/types"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "PKGRESOLVE"

type RootConfig struct {
	ConfigFile string
	LogLevel   string
}

// Execute runs the root command and maps any returned error to a
// process exit code via core.ExitCodeFor.
func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		log.Error().Msg(core.ErrorMessage(err))
		os.Exit(core.ExitCodeFor(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:     "pkgresolve",
		Short:   "Dependency resolution core for a module ecosystem",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))

	bindResolverFlags(cmd)

	cmd.AddCommand(newInstallCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newWhyCommand())
	return cmd
}

// bindResolverFlags exposes the resolver Config surface as persistent
// flags shared by every subcommand, bound into viper so rc-file and
// environment values apply when a flag is left at its default.
func bindResolverFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.Bool("offline", false, "Set Config.Offline (stored only; resolution does not read it)")
	flags.Bool("prefer-offline", false, "Set Config.PreferOffline (stored only; resolution does not read it)")
	flags.Bool("frozen", false, "Fail if the lockfile would change")
	flags.Bool("flat", false, "Require exactly one version per package name")
	flags.Bool("ignore-platform", false, "Skip platform compatibility checks")
	flags.Bool("ignore-engines", false, "Skip engine compatibility checks")
	flags.Bool("ignore-scripts", false, "Skip lifecycle script execution")
	flags.Bool("production", false, "Exclude devDependencies from the root resolution")
	flags.Bool("loose-semver", false, "Accept lenient (non-strict) semver forms")
	flags.Bool("focus", false, "Resolve a single workspace project in place (invalid at the workspace root)")
	flags.Bool("nohoist", true, "Honor workspaces.nohoist entries")
	flags.Int("network-concurrency", 8, "Max simultaneous registry fetches")
	flags.Int("child-concurrency", 5, "Max simultaneous helper process spawns")
	flags.Duration("network-timeout", 0, "Registry request timeout (0 = default)")
	flags.String("registry", "", "Registry endpoint URL")
	flags.String("otp", "", "One-time password for registry auth")
	flags.String("mutex", "", "Single-instance mutex specifier: file[:path] or network[:port]")

	for _, name := range []string{
		"offline", "prefer-offline", "frozen", "flat", "ignore-platform", "ignore-engines",
		"ignore-scripts", "production", "loose-semver", "focus", "nohoist",
		"network-concurrency", "child-concurrency", "network-timeout", "registry",
		"otp", "mutex",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		return viper.ReadInConfig()
	}

	viper.SetConfigName(".pkgresolverc")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/pkgresolve")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// newAppService builds the app.Service wiring every adapter from the
// current viper-resolved Config, shared by every subcommand.
func newAppService() (app.Service, error) {
	return app.NewService(configFromViper())
}

func configFromViper() types.Config {
	cfg := types.DefaultConfig()
	cwd, _ := os.Getwd()
	cfg.Cwd = cwd
	cfg.CacheFolder = filepath.Join(os.TempDir(), "pkgresolve-cache")

	cfg.Offline = viper.GetBool("offline")
	cfg.PreferOffline = viper.GetBool("prefer-offline")
	cfg.Frozen = viper.GetBool("frozen")
	cfg.Flat = viper.GetBool("flat")
	cfg.IgnorePlatform = viper.GetBool("ignore-platform")
	cfg.IgnoreEngines = viper.GetBool("ignore-engines")
	cfg.IgnoreScripts = viper.GetBool("ignore-scripts")
	cfg.Production = viper.GetBool("production")
	cfg.LooseSemver = viper.GetBool("loose-semver")
	cfg.Focus = viper.GetBool("focus")
	cfg.WorkspacesEnabled = true
	cfg.WorkspacesNohoistEnabled = viper.GetBool("nohoist")

	if n := viper.GetInt("network-concurrency"); n > 0 {
		cfg.NetworkConcurrency = n
	}
	if n := viper.GetInt("child-concurrency"); n > 0 {
		cfg.ChildConcurrency = n
	}
	if d := viper.GetDuration("network-timeout"); d > 0 {
		cfg.NetworkTimeout = d
	}
	cfg.Registry = viper.GetString("registry")
	cfg.OTP = viper.GetString("otp")
	cfg.MutexSpec = viper.GetString("mutex")
	return cfg
}
