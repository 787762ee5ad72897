package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/output"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/reconcile"
)

var (
	syncDestructive bool
	syncHosts       []string
	syncYes         bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile host configs against the lockfile",
	Long: `Compare every host config against the canonical lockfile and apply
the differences: missing servers are added to their target hosts, and
with --destructive, servers present in a host but absent from the
lockfile are removed.

Without --destructive, extra servers are reported but left alone.
Hosts whose configs cannot be read are skipped and the result is
marked partial.`,
	Example: `  mcpman sync
  mcpman sync --destructive
  mcpman sync --host cursor --host claude-code`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDestructive, "destructive", false, "Remove servers not declared in the lockfile")
	syncCmd.Flags().StringSliceVar(&syncHosts, "host", nil, "Limit reconciliation to these hosts (default: all known)")
	syncCmd.Flags().BoolVarP(&syncYes, "yes", "y", false, "Skip the confirmation prompt for destructive removals")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	store, err := openLockStore()
	if err != nil {
		return err
	}
	state, err := store.Read()
	if err != nil {
		return err
	}
	adapters, err := resolveAdapters(syncHosts)
	if err != nil {
		return err
	}

	result := reconcile.ComputeDiff(state, adapters, syncDestructive)
	pending := 0
	removals := 0
	extras := 0
	for _, a := range result.Actions {
		switch a.Kind {
		case reconcile.ActionAdd:
			pending++
		case reconcile.ActionRemove:
			pending++
			removals++
		case reconcile.ActionExtra:
			extras++
		}
	}
	if pending == 0 {
		if extras > 0 {
			fmt.Print(output.RenderActionTable(result))
			fmt.Printf("%d extra server(s) left in place; pass --destructive to remove them.\n", extras)
		} else {
			fmt.Println("All hosts are in sync.")
		}
		if result.Partial() {
			printSkipped(result)
		}
		return nil
	}

	fmt.Print(output.RenderActionTable(result))
	if removals > 0 && !syncYes {
		if !confirm(fmt.Sprintf("Remove %d server(s) from host configs?", removals)) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	applied := reconcile.Apply(result.Actions, adapters)
	fmt.Printf("Applied %d change(s)\n", len(applied.Applied))
	for _, f := range applied.Failures {
		fmt.Fprintf(os.Stderr, "Failed to update %s on %s: %v\n", f.Action.Server, f.Action.Host, f.Err)
	}
	if result.Partial() {
		printSkipped(result)
	}
	if len(applied.Failures) > 0 {
		return fmt.Errorf("%d change(s) failed", len(applied.Failures))
	}
	return nil
}

func printSkipped(result *reconcile.Result) {
	for _, s := range result.Skipped {
		fmt.Fprintf(os.Stderr, "Skipped %s: %v\n", s.Host, s.Err)
	}
}
