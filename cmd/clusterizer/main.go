// Package main provides the clusterizer command line entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/clusterizer/internal/config"
	"github.com/thebtf/clusterizer/internal/runner"
	"github.com/thebtf/clusterizer/internal/telemetry"
)

// Version is set at build time via ldflags.
var Version = "dev"

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	cfg        *config.Config
	runner     *runner.Runner
	configPath string
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, out, logOut io.Writer) int {
	root := newRootCmd(logOut)
	root.SetArgs(args)
	root.SetOut(out)
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		return 1
	}
	return 0
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "clusterizer",
		Short:         "Group near-duplicate text records by character shingle overlap",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(logOut)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ~/.clusterizer/config.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(newRunCmd(a), newServeCmd(a), newWatchCmd(a))
	return root
}

// init loads configuration and sets up logging. Logs go to logOut so that
// stdout carries only reports.
func (a *app) init(logOut io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if a.debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: logOut, NoColor: true})

	metrics, err := telemetry.New()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	a.runner = runner.New(metrics)
	return nil
}
