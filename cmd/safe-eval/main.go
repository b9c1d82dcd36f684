// Command safe-eval runs the search-augmented factuality evaluator against
// a results JSON file, rating one or both sides and writing the scored
// document back out. One root binary with verb subcommands, built on
// cobra.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hurttlocker/safe-eval/internal/logging"
)

// version is set by goreleaser via ldflags at build time.
var version = "0.1.0-dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool
	var configPath string

	root := &cobra.Command{
		Use:           "safe-eval",
		Short:         "Search-Augmented Factuality Evaluator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Init(debug)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable development-mode logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.safe-eval/config.yaml)")

	root.AddCommand(newEvalCmd(&configPath))
	root.AddCommand(newCorrelateCmd())

	return root
}

// runID names the checkpoint file for one invocation of `safe-eval eval`.
// It is a fresh random identifier on every invocation, so concurrent or
// repeated runs write distinct checkpoint files.
func runID() string {
	return uuid.NewString()
}
