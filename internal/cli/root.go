// Package cli implements the cellflow command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

// NewRootCommand returns the cellflow command and its subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cellflow",
		Short: "Evaluate spreadsheet cells reactively",
		Long: `cellflow evaluates the cells of a sheet file. Every cell runs its own pipeline: formula
edits are debounced, updates of referenced cells trigger an evaluation right away and a value
is published only when it changes.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error), overrides the sheet file")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", formatText, "log format (text, json)")

	cmd.AddCommand(newRunCommand(opts), newRefsCommand(opts))

	return cmd
}

// Execute runs the command line and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		return 1
	}

	return 0
}
