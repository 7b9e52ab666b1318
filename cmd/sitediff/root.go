// Package main provides the entry point for the sitediff CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitediff.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitediff",
		Short: "Visual regression testing for websites",
		Long: `sitediff detects visual changes on websites by comparing screenshots.

A baseline run crawls a site's internal links, captures a full-page
screenshot of every page in headless Chrome, and stores them together
with a manifest. A compare run revisits the baseline's pages, captures
them again, and reports which pages changed pixel-for-pixel.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewBaselineCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
