package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nfrund/homeplace/cmd/homeplace-cli/internal/format"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var outputFormat string

	rootCmd := &cobra.Command{
		Use:   "homeplace-cli",
		Short: "Homeplace CLI tool",
		Long: `Homeplace CLI talks to a homeplace chat gateway and works with listing filters.

Available commands:
  chat      Join the chat from the terminal
  filter    Encode, decode and search with listing filters
  prefs     Read and change local preferences
  version   Print the version

Use "homeplace-cli [command] --help" for more information about a specific command.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !format.Valid(outputFormat) {
				return fmt.Errorf("invalid format %q: use %s or %s", outputFormat, format.Table, format.JSON)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", format.Table, "Output format (table, json)")

	rootCmd.AddCommand(
		newChatCmd(),
		newFilterCmd(),
		newPrefsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func outputFormat(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("format")
	return f
}

// Execute executes the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
