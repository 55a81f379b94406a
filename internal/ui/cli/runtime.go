package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	coreapp "ssd/internal/core/app"
	"ssd/internal/core/config"
	"ssd/internal/core/errors"
	"ssd/internal/core/ports"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitRoundTrip = 2
)

// exitError carries an exit code for failures that were already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// globalState holds everything a command needs; tests swap the file system
// and streams.
type globalState struct {
	fs      afero.Fs
	stdout  io.Writer
	stderr  io.Writer
	colored bool
	factory serviceFactory

	opts       rootOptions
	console    *console
	cfg        *config.Config
	configPath string
}

func newGlobalState() *globalState {
	stdout, stderr, tty := stdStreams()
	return &globalState{
		fs:      afero.NewOsFs(),
		stdout:  stdout,
		stderr:  stderr,
		colored: tty,
		factory: coreServiceFactory{},
	}
}

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, newGlobalState(), args)
}

func run(ctx context.Context, g *globalState, args []string) int {
	cmd := newRootCommand(g)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var reported *exitError
	if !errors.As(err, &reported) {
		if g.console == nil {
			g.console = newConsole(g.stdout, g.stderr, false)
		}
		g.console.printError(err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.IsCode(err, errors.CodeRoundTrip) {
		return exitRoundTrip
	}
	return exitFailure
}

func (g *globalState) persistentPreRunE(cmd *cobra.Command, _ []string) error {
	configureLogging(g.stderr, g.opts.verbose)
	g.console = newConsole(g.stdout, g.stderr, g.colored && !g.opts.noColor)

	cfg, path, err := loadConfig(g.fs, g.opts.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if g.opts.backend != "" {
		cfg.Parser.Backend = g.opts.backend
	}
	g.cfg, g.configPath = cfg, path
	slog.Debug("config loaded", "path", path, "backend", cfg.Parser.Backend)
	return nil
}

// service builds the frontend for one command run.
func (g *globalState) service() (ports.FrontendService, error) {
	defines, err := config.MergeDefines(g.cfg.Defines, g.opts.defines)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid --define")
	}
	opts := []coreapp.Option{
		coreapp.WithDefines(defines),
		coreapp.WithDiagnostics(g.console.diagnostic),
		coreapp.WithStderr(g.console.stderr),
	}
	if g.opts.base != "" {
		opts = append(opts, coreapp.WithBase(g.opts.base))
	}
	if g.configPath != "" {
		opts = append(opts, coreapp.WithConfigPath(g.configPath))
	}
	return initializeService(g.cfg, g.fs, g.factory, opts...)
}

// loadConfig reads the config file. An explicitly named file must exist; the
// default one is optional. The returned path is empty when no file was read.
func loadConfig(fs afero.Fs, path string, explicit bool) (*config.Config, string, error) {
	if explicit {
		cfg, err := config.Load(fs, path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	exists, _ := afero.Exists(fs, path)
	cfg, err := config.LoadOptional(fs, path)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		path = ""
	}
	return cfg, path, nil
}

func configureLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func requireArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return errors.New(errors.CodeValidationError, fmt.Sprintf("usage: %s", usage))
		}
		return nil
	}
}
