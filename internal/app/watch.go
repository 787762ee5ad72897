package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/output"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/reconcile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/watcher"
)

var watchHosts []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch host configs and report drift as it happens",
	Long: `Watch the installed host apps' config files and report drift from
the lockfile whenever one changes out of band. Edits settle for a
short debounce window before the diff is computed, so editors that
write in several steps produce one report.

Runs until interrupted. Nothing is applied automatically; run
'mcpman sync' to reconcile what watch reports.`,
	Example: `  mcpman watch
  mcpman watch --host cursor`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchHosts, "host", nil, "Limit watching to these hosts (default: all installed)")
	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, err := openLockStore()
	if err != nil {
		return err
	}

	var adapters []*hosts.Adapter
	if len(watchHosts) > 0 {
		adapters, err = resolveAdapters(watchHosts)
		if err != nil {
			return err
		}
	} else {
		adapters, err = installedAdapters()
		if err != nil {
			return err
		}
	}
	if len(adapters) == 0 {
		return fmt.Errorf("no host apps to watch")
	}

	w, err := watcher.New(store, adapters)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	for _, a := range adapters {
		fmt.Printf("Watching %s (%s)\n", a.Name(), a.ConfigPath())
	}
	fmt.Println("Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			drift := 0
			for _, action := range ev.Result.Actions {
				if action.Kind != reconcile.ActionOK {
					drift++
				}
			}
			if drift == 0 && !ev.Result.Partial() {
				fmt.Printf("\n%s changed but still matches the lockfile.\n", ev.Host)
				continue
			}
			fmt.Printf("\nDrift detected on %s:\n", ev.Host)
			fmt.Print(output.RenderActionTable(ev.Result))
		case <-sigCh:
			fmt.Println("\nStopping.")
			return nil
		}
	}
}
