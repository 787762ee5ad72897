package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a server from the lockfile and from its target hosts",
	Long: `Remove a server from the canonical lockfile and delete it from every
host config it was declared for.

The lockfile is snapshotted before the mutation, so 'mcpman rollback 0'
restores the entry if the removal was a mistake.`,
	Example: `  mcpman remove search`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

func init() {
	RootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	store, err := openLockStore()
	if err != nil {
		return err
	}
	state, err := store.Read()
	if err != nil {
		return err
	}
	entry, declared := state.Servers[name]
	if !declared {
		fmt.Printf("%s is not in the lockfile; nothing to do.\n", name)
		return nil
	}

	if err := store.RemoveEntry(name); err != nil {
		return err
	}
	fmt.Printf("Removed %s from lockfile\n", name)

	failures := 0
	for _, target := range entry.Targets {
		adapter, err := hosts.Get(target)
		if err != nil {
			return err
		}
		if err := adapter.RemoveServer(name); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "Failed to remove %s from %s: %v\n", name, target, err)
			continue
		}
		fmt.Printf("Removed %s from %s\n", name, target)
	}

	if failures > 0 {
		return fmt.Errorf("removed from %d/%d hosts; run 'mcpman sync --destructive' to finish",
			len(entry.Targets)-failures, len(entry.Targets))
	}
	return nil
}
