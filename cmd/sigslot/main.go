// Package main is the entry point for the sigslot command.
package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/sigslot/internal/config"
	"github.com/dshills/sigslot/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "sigslot",
		Short: "Run Lua scripts against signal-driven buffers",
		Long: `sigslot loads Lua scripts that connect to the signals of a text
buffer and fill its sockets.

Scripts see the buffer as the global "buffer" and drive it with set_text,
append, rename and close. Configuration is read from a TOML or YAML file
and SIGSLOT_ environment variables; flags take precedence over both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a .toml, .yaml or .yml config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (overrides config)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text, json or auto (overrides config)")

	root.AddCommand(
		runCmd(&flags),
		contractCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the configuration, applies flag overrides and builds the
// logger. Logs go to the command's error stream.
func setup(cmd *cobra.Command, flags *globalFlags) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
