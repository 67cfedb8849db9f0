package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/friction/internal/logging"
	"github.com/mesh-intelligence/friction/internal/paths"
	"github.com/mesh-intelligence/friction/internal/sqlite"
	"github.com/mesh-intelligence/friction/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool
}

// app is the state shared by one invocation's commands.
type app struct {
	flags     rootFlags
	configDir string
	cfg       *viper.Viper
	logger    *slog.Logger
	stderr    io.Writer
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stderr: stderr, logger: logging.Discard()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "error:", err)
	return exitCode(err)
}

// newRootCmd creates the top-level "friction" command with global flags
// and all subcommands registered.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "friction",
		Short: "Track engineering friction and what was done about it",
		Long: `friction captures short observations about engineering friction, records
a disposition for each, and keeps an append-only log of the actions taken,
linked back to the observations they address.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.friction)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: working directory)")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newMigrateCmd(a),
		newServeCmd(a),
		newObserveCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newActCmd(a),
		newActionsCmd(a),
		newProjectsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// setup resolves the config directory, loads configuration, and builds
// the logger.
func (a *app) setup() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	if a.flags.logLevel != "" {
		cfg.Set(cfgKeyLogLevel, a.flags.logLevel)
	}

	a.configDir = configDir
	a.cfg = cfg
	a.logger = logging.New(logging.Options{
		Level:  cfg.GetString(cfgKeyLogLevel),
		Format: cfg.GetString(cfgKeyLogFormat),
		Writer: a.stderr,
	})
	return nil
}

// dataDir returns the data directory: --data-dir > config data_dir >
// FRICTION_DATA_DIR > working directory.
func (a *app) dataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.cfg.GetString(cfgKeyDataDir))
}

// attachBackend resolves the data directory, creates a SQLite backend, and
// attaches it. The caller must defer backend.Detach().
func (a *app) attachBackend() (*sqlite.Backend, error) {
	dataDir, err := a.dataDir()
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve data dir: %w", err))
	}

	cfg := types.Config{
		DataDir: dataDir,
		DBFile:  a.cfg.GetString(cfgKeyDBFile),
	}

	backend := sqlite.NewBackend(a.logger)
	if err := backend.Attach(cfg); err != nil {
		if errors.Is(err, types.ErrDBFileInvalid) {
			return nil, userError(fmt.Errorf("attach backend: %w", err))
		}
		return nil, sysError(fmt.Errorf("attach backend: %w", err))
	}
	return backend, nil
}
