package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/update"
)

// Version is the mcpman release version reported in probes and --version.
const Version = "0.4.0"

var (
	dataDir string

	// RootCmd is the root command for mcpman
	RootCmd = &cobra.Command{
		Use:   "mcpman",
		Short: "Declarative MCP server management across AI-assistant apps",
		Long: `mcpman keeps one canonical lockfile of the MCP servers you intend to
have installed, and reconciles it against each AI-assistant app's own
configuration (Claude Code, Claude Desktop, Cursor, Windsurf, VS Code).

The lockfile — not any app's config — is the source of truth. Every
lockfile mutation is snapshotted first, so any change can be rolled
back with one command. Health checks spawn each configured server and
run the MCP handshake to verify it actually responds.

Quick Start:
  1. mcpman add search --command npx --args -y,@example/search-server
  2. mcpman sync
  3. mcpman status

Examples:
  # Show drift between lockfile and host configs
  mcpman diff

  # Apply missing servers to all target hosts
  mcpman sync

  # Deep-probe one server and list its tools
  mcpman test search

  # Roll the lockfile back to its previous state
  mcpman rollback 0`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("mcpman: declarative MCP server management")
			fmt.Println()

			lockPath, err := getLockPath()
			if err == nil {
				if _, statErr := os.Stat(lockPath); os.IsNotExist(statErr) {
					fmt.Println("No lockfile yet. Run 'mcpman add' to declare your first server.")
				} else {
					fmt.Println("Tip: Run 'mcpman list' to see declared servers.")
					fmt.Println("     Run 'mcpman diff' to check for drift.")
					fmt.Println("     Run 'mcpman --help' for all commands.")
				}
			}

			if checker := newUpdateChecker(); checker != nil {
				// Drain the refresh before the process exits, under a
				// ceiling shorter than the fetch's own; a slow network
				// costs the notice, not the command.
				select {
				case <-checker.RunInBackground():
				case <-time.After(2 * time.Second):
				}
				if latest, ok := checker.Notice(Version); ok {
					fmt.Printf("\nUpdate available: %s (running %s)\n", latest, Version)
				}
			}
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "state directory (default: ~/.mcpman)")
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// newUpdateChecker returns nil when the state directory is unavailable;
// the update check is strictly best-effort.
func newUpdateChecker() *update.Checker {
	dir, err := getDataDir()
	if err != nil {
		return nil
	}
	return update.NewChecker(dir + "/update-check.json")
}
