package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clocksmith/benzo/internal/config"
	"github.com/clocksmith/benzo/internal/logging"
	"github.com/clocksmith/benzo/internal/metrics"
)

// version is set by goreleaser at build time.
var version = "dev"

// CLI flags shared by every subcommand.
type cliFlags struct {
	ConfigDir string
	LogLevel  string
	LogFormat string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags cliFlags
	a := &app{out: stdout}

	root := &cobra.Command{
		Use:           "benzo",
		Short:         "Interactive task graph engine: scripts, A* routing and advisor-driven workflows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.ConfigDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if flags.LogLevel != "" {
				cfg.LogLevel = flags.LogLevel
			}
			if flags.LogFormat != "" {
				cfg.LogFormat = flags.LogFormat
			}
			a.cfg = cfg
			a.logger = logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
			a.metrics = metrics.NewCollector()
			a.logger.Debug("config loaded", zap.String("dir", flags.ConfigDir), zap.String("scriptsDir", cfg.ScriptsDir))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigDir, "config-dir", ".", "directory holding benzo.yml")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
	pf.StringVar(&flags.LogFormat, "log-format", "", "log format: console or json (default from config)")

	root.AddCommand(
		newScriptsCmd(a),
		newPlayCmd(a),
		newDiagramCmd(a),
		newPathCmd(a),
		newWalkCmd(a),
		newServeMCPCmd(a),
		newServeAdvisorCmd(a),
	)
	return root
}
