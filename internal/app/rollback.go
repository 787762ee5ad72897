package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/atomicfile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/lockfile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/output"
)

var (
	rollbackList bool
	rollbackYes  bool
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [index]",
	Short: "Restore the lockfile from a snapshot",
	Long: `Restore the lockfile from one of the snapshots taken before each
mutation. Index 0 is the most recent snapshot; 'mcpman rollback 0'
undoes the last change.

The restore itself is snapshotted first, so a rollback can be rolled
back. Host configs are not touched; run 'mcpman sync' afterwards to
bring them in line with the restored lockfile.`,
	Example: `  mcpman rollback --list
  mcpman rollback 0
  mcpman rollback 2 --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().BoolVar(&rollbackList, "list", false, "List available snapshots")
	rollbackCmd.Flags().BoolVarP(&rollbackYes, "yes", "y", false, "Skip the confirmation prompt")
	RootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	store, err := openLockStore()
	if err != nil {
		return err
	}
	ring := store.Ring()

	if rollbackList || len(args) == 0 {
		snaps, err := ring.List()
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("No snapshots yet. Snapshots are taken before each lockfile change.")
			return nil
		}
		fmt.Print(output.RenderSnapshotTable(snaps))
		return nil
	}

	index, err := strconv.Atoi(args[0])
	if err != nil || index < 0 {
		return fmt.Errorf("invalid snapshot index %q", args[0])
	}

	content, err := ring.Read(index)
	if err != nil {
		return err
	}
	var preview lockfile.State
	if err := json.Unmarshal(content, &preview); err != nil {
		return fmt.Errorf("snapshot %d is not a valid lockfile: %w", index, err)
	}
	fmt.Printf("Snapshot %d declares %d server(s):\n", index, len(preview.Servers))
	fmt.Print(output.RenderLockTable(&preview))

	if !rollbackYes && !confirm("Restore this snapshot?") {
		fmt.Println("Aborted.")
		return nil
	}

	// Snapshot the current lockfile so the rollback itself can be undone.
	// The new snapshot shifts every recency index, so the previewed
	// content read above is written directly rather than re-resolving
	// the index through the ring.
	if current, err := os.ReadFile(store.Path()); err == nil {
		_ = ring.SnapshotBeforeWrite(current)
	}
	if err := atomicfile.WriteFile(store.Path(), content); err != nil {
		return err
	}
	fmt.Printf("Restored snapshot %d. Run 'mcpman sync' to update host configs.\n", index)
	return nil
}
