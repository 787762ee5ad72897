package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/output"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/reconcile"
)

var (
	diffHosts       []string
	diffFromClient  string
	diffDestructive bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what sync would change, without writing anything",
	Long: `Compute the differences between the lockfile and the host configs
and print them without applying anything.

With --from-client, the named host's config is treated as the source
of truth instead of the lockfile, and every other host is compared
against it. Useful for spotting servers configured by hand in one
app that never made it to the others.`,
	Example: `  mcpman diff
  mcpman diff --destructive
  mcpman diff --host vscode
  mcpman diff --from-client claude-code`,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringSliceVar(&diffHosts, "host", nil, "Limit the diff to these hosts (default: all known)")
	diffCmd.Flags().StringVar(&diffFromClient, "from-client", "", "Diff other hosts against this host's config instead of the lockfile")
	diffCmd.Flags().BoolVar(&diffDestructive, "destructive", false, "Preview what 'sync --destructive' would remove")
	RootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	adapters, err := resolveAdapters(diffHosts)
	if err != nil {
		return err
	}

	var result *reconcile.Result
	if diffFromClient != "" {
		source, err := hosts.Get(diffFromClient)
		if err != nil {
			return err
		}
		others := make([]*hosts.Adapter, 0, len(adapters))
		for _, a := range adapters {
			if a.ID() != source.ID() {
				others = append(others, a)
			}
		}
		result, err = reconcile.ComputeDiffFromClient(source, others)
		if err != nil {
			return err
		}
	} else {
		store, err := openLockStore()
		if err != nil {
			return err
		}
		state, err := store.Read()
		if err != nil {
			return err
		}
		// A plain diff previews what a plain sync would do: extras are
		// reported, not marked for removal.
		result = reconcile.ComputeDiff(state, adapters, diffDestructive)
	}

	if len(result.Actions) == 0 && !result.Partial() {
		fmt.Println("Nothing to diff.")
		return nil
	}
	fmt.Print(output.RenderActionTable(result))
	return nil
}
