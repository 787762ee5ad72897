package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/output"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List servers declared in the lockfile",
	Long: `List every server declared in the canonical lockfile, with its
version, source, runtime, and target hosts.`,
	Example: `  mcpman list
  mcpman list --json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the raw lockfile JSON")
	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openLockStore()
	if err != nil {
		return err
	}
	state, err := store.Read()
	if err != nil {
		return err
	}

	if listJSON {
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(state.Servers) == 0 {
		fmt.Println("No servers declared. Add one with 'mcpman add'.")
		return nil
	}
	fmt.Print(output.RenderLockTable(state))
	return nil
}
