package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/lockfile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/output"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/pool"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/probe"
)

var (
	testConcurrency int64
	testTimeout     time.Duration
)

var testCmd = &cobra.Command{
	Use:   "test [name]",
	Short: "Deep handshake test of one server, or all of them",
	Long: `Run the full two-step handshake against a server: spawn it, wait for
the initialize acknowledgment, then request its tool listing. A
passing test proves the server speaks the protocol end to end and
reports which tools it exposes.

With no argument, every declared server is tested.`,
	Example: `  mcpman test search
  mcpman test --timeout 30s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTest,
}

func init() {
	testCmd.Flags().Int64Var(&testConcurrency, "concurrency", pool.DefaultLimit, "Maximum probes in flight at once")
	testCmd.Flags().DurationVar(&testTimeout, "timeout", probe.DefaultDeepTimeout, "Per-server probe ceiling")
	RootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	store, err := openLockStore()
	if err != nil {
		return err
	}
	state, err := store.Read()
	if err != nil {
		return err
	}

	targets := map[string]lockfile.Entry{}
	if len(args) == 1 {
		entry, ok := state.Servers[args[0]]
		if !ok {
			return fmt.Errorf("server %q is not in the lockfile", args[0])
		}
		targets[args[0]] = entry
	} else {
		for name, entry := range state.Servers {
			targets[name] = entry
		}
	}
	if len(targets) == 0 {
		fmt.Println("No servers declared. Add one with 'mcpman add'.")
		return nil
	}
	adapters, err := installedAdapters()
	if err != nil {
		return err
	}

	tasks := make(map[string]func(context.Context) probe.Result, len(targets))
	for name, entry := range targets {
		name, entry := name, entry
		live := liveEntry(name, entry, adapters)
		tasks[name] = func(ctx context.Context) probe.Result {
			return probe.Run(ctx, name, live, probe.Options{
				Deep:          true,
				Timeout:       testTimeout,
				ClientVersion: Version,
			})
		}
	}

	results := pool.Run(cmd.Context(), testConcurrency, tasks)
	recordProbes(results, "deep")

	ordered := make([]probe.Result, 0, len(results))
	for _, r := range results {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Server < ordered[j].Server })
	fmt.Print(output.RenderProbeTable(ordered))

	failed := 0
	for _, r := range ordered {
		if r.State != probe.CapabilitiesAcked {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d server(s) failed the handshake", failed, len(ordered))
	}
	return nil
}
