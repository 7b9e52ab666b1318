package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/sitediff/internal/baseline"
	"github.com/nao1215/sitediff/internal/config"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [host]",
		Short: "List stored baselines",
		Long: `List shows the baselines stored on disk, newest first.

With a host argument, only baselines for that host are shown. The
printed IDs are what 'sitediff compare' accepts as targets.

Examples:
  # List all stored baselines
  sitediff list

  # List baselines for one host
  sitediff list example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runListCmd,
	}

	cmd.Flags().StringP("data-dir", "D", config.XDGDataDir(),
		"Directory for baselines, results, and history")

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, args []string) error {
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.DataDir = dataDir
	store := baseline.NewStore(cfg.BaselinesDir())

	entries, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list baselines: %w", err)
	}

	var host string
	if len(args) > 0 {
		host = strings.ToLower(hostnameOf(args[0]))
		filtered := entries[:0]
		for _, e := range entries {
			if strings.EqualFold(e.Hostname, host) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if len(entries) == 0 {
		if host != "" {
			fmt.Printf("No baselines found for %s\n", host)
		} else {
			fmt.Println("No baselines found.")
		}
		fmt.Println("\nUse 'sitediff baseline <url>' to capture one.")
		return nil
	}

	fmt.Printf("Stored baselines (%d):\n\n", len(entries))
	fmt.Printf("  %-34s  %-20s  %s\n", "ID", "Captured", "Pages")
	fmt.Println("  " + strings.Repeat("-", 70))
	for _, e := range entries {
		pages := fmt.Sprintf("%d ok", e.Succeeded)
		if failed := e.Pages - e.Succeeded; failed > 0 {
			pages += fmt.Sprintf(", %d failed", failed)
		}
		fmt.Printf("  %-34s  %-20s  %s\n",
			e.ID,
			e.CreatedAt.Local().Format(time.DateTime),
			pages,
		)
	}

	fmt.Println("\nUse 'sitediff compare <id>' to compare a site against a baseline.")

	return nil
}
