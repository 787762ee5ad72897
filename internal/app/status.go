package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/output"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/pool"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/probe"
)

var (
	statusConcurrency int64
	statusTimeout     time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Quick health check of every declared server",
	Long: `Spawn each declared server and wait for its first handshake
acknowledgment. Quick probes stop there, so a healthy server costs
well under a second; probes run concurrently with a bounded limit.

Results are recorded in the probe history; see 'mcpman stats'.`,
	Example: `  mcpman status
  mcpman status --concurrency 10`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Int64Var(&statusConcurrency, "concurrency", pool.DefaultLimit, "Maximum probes in flight at once")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", probe.DefaultQuickTimeout, "Per-server probe ceiling")
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openLockStore()
	if err != nil {
		return err
	}
	state, err := store.Read()
	if err != nil {
		return err
	}
	if len(state.Servers) == 0 {
		fmt.Println("No servers declared. Add one with 'mcpman add'.")
		return nil
	}
	adapters, err := installedAdapters()
	if err != nil {
		return err
	}

	tasks := make(map[string]func(context.Context) probe.Result, len(state.Servers))
	for name, entry := range state.Servers {
		name, entry := name, entry
		live := liveEntry(name, entry, adapters)
		tasks[name] = func(ctx context.Context) probe.Result {
			return probe.Run(ctx, name, live, probe.Options{
				Timeout:       statusTimeout,
				ClientVersion: Version,
			})
		}
	}

	results := pool.Run(cmd.Context(), statusConcurrency, tasks)
	recordProbes(results, "quick")

	ordered := make([]probe.Result, 0, len(results))
	for _, r := range results {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Server < ordered[j].Server })
	fmt.Print(output.RenderProbeTable(ordered))

	down := 0
	for _, r := range ordered {
		if !r.Alive {
			down++
		}
	}
	if down > 0 {
		return fmt.Errorf("%d of %d server(s) unhealthy", down, len(ordered))
	}
	return nil
}
