// Package cli implements the taskboard command-line interface. Every command
// drives the same board components: a Store selected from configuration, the
// Repository cache on top of it and the Syncer that keeps it fresh.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/logging"
	"github.com/mesh-intelligence/taskboard/pkg/types"
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
	jsonMode  bool
	logLevel  string
	logFile   string
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags     rootFlags
	configDir string
	cfg       types.Config
	logCfg    logConfig
	log       zerolog.Logger
	closeLog  func()
	newLogger func(level, file string) (zerolog.Logger, func(), error)
}

func newApp() *app {
	return &app{log: zerolog.Nop(), closeLog: func() {}, newLogger: logging.New}
}

// NewRootCmd creates the top-level "taskboard" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {

	root := &cobra.Command{
		Use:   "taskboard",
		Short: "A kanban task board for the terminal",
		Long: "Taskboard keeps tasks in three columns (TODO, DOING, DONE) and\n" +
			"synchronizes them with a remote task API or a local slot file.",
		Version: Version,
		// Errors are printed once by Execute.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.runE(a.setup),
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &codeError{code: exitUserError, err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.StringVar(&a.flags.logFile, "log-file", "", "append JSON logs to this file instead of stderr")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newConfigCmd(),
		a.newBoardCmd(),
		a.newListCmd(),
		a.newAddCmd(),
		a.newEditCmd(),
		a.newMoveCmd(),
		a.newDeleteCmd(),
		a.newHistoryCmd(),
		a.newStatsCmd(),
		a.newWatchCmd(),
		a.newServeCmd(),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	a := newApp()
	if err := a.execute(context.Background(), a.rootCmd()); err != nil {
		fmt.Fprintln(os.Stderr, "taskboard:", err)
		os.Exit(exitCode(err))
	}
}

// execute runs root and releases the log file, whether or not the command
// failed.
func (a *app) execute(ctx context.Context, root *cobra.Command) error {
	defer func() {
		a.closeLog()
		a.closeLog = func() {}
	}()
	return root.ExecuteContext(ctx)
}

// setup loads configuration and the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	configDir, err := resolveConfigDir(a.flags.configDir)
	if err != nil {
		return err
	}
	// init writes its own config.yaml from the effective settings.
	v, err := loadConfig(configDir, cmd.Name() != "init")
	if err != nil {
		return err
	}
	cfg, logCfg, err := configFrom(v, a.flags.dataDir)
	if err != nil {
		return err
	}
	if a.flags.logLevel != "" {
		logCfg.Level = a.flags.logLevel
	}
	if a.flags.logFile != "" {
		logCfg.File = a.flags.logFile
	}

	logger, closeLog, err := a.newLogger(logCfg.Level, logCfg.File)
	if err != nil {
		return usageErrorf("%v", err)
	}

	a.configDir = configDir
	a.cfg = cfg
	a.logCfg = logCfg
	a.log = logger
	a.closeLog = closeLog
	cl := logging.Component(logger, "cli")
	cl.Debug().
		Str("command", cmd.Name()).
		Str("backend", cfg.Backend).
		Str("dataDir", cfg.DataDir).
		Msg("configured")
	return nil
}

// codeError carries the process exit code for an error.
type codeError struct {
	code int
	err  error
}

func (e *codeError) Error() string { return e.err.Error() }
func (e *codeError) Unwrap() error { return e.err }

// usageErrorf reports bad input that no other check caught.
func usageErrorf(format string, args ...any) error {
	return &codeError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

// runE wraps a command body so that every error it returns carries an exit
// code: user errors for rejected input and missing tasks, system errors for
// everything else.
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return classify(fn(cmd, args))
	}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *codeError
	if errors.As(err, &ce) {
		return err
	}
	code := exitSysError
	if isUserError(err) {
		code = exitUserError
	}
	return &codeError{code: code, err: err}
}

func isUserError(err error) bool {
	var fieldErrs criterio.FieldErrors
	return errors.Is(err, types.ErrValidation) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, types.ErrInvalidStatus) ||
		errors.Is(err, types.ErrInvalidID) ||
		errors.As(err, &fieldErrs)
}

// exitCode maps an error returned by the root command to a process exit
// code. Errors raised by cobra itself (unknown commands, bad arguments)
// count as user errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitUserError
}
