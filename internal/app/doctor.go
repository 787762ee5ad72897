package app

import (
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/lockfile"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common issues and check installation health",
	Long: `Runs diagnostic checks on your mcpman installation.

Checks:
  • Lockfile exists and parses
  • Host apps are installed and their configs are readable
  • Declared server commands resolve on PATH
  • Locator integrity digests match
  • Probe history database opens`,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("Running mcpman diagnostics...")
	fmt.Println()

	criticalIssues := 0
	warningIssues := 0

	// Check 1: Lockfile parses
	store, err := openLockStore()
	var state *lockfile.State
	if err != nil {
		fmt.Println("✗ Cannot open lockfile store:", err)
		criticalIssues++
	} else if state, err = store.Read(); err != nil {
		fmt.Println("✗ Lockfile is unreadable:", err)
		fmt.Println("  Action: Run 'mcpman rollback --list' to restore a snapshot")
		criticalIssues++
	} else if len(state.Servers) == 0 {
		fmt.Println("⚠ Lockfile declares no servers")
		fmt.Println("  This is normal for new installations")
		warningIssues++
	} else {
		fmt.Printf("✓ Lockfile parses (%d server(s) declared)\n", len(state.Servers))
	}

	// Check 2: Host apps installed and readable
	if adapters, err := hosts.All(); err != nil {
		fmt.Println("✗ Cannot resolve host config paths:", err)
		criticalIssues++
	} else {
		installed := 0
		for _, adapter := range adapters {
			if !adapter.IsInstalled() {
				continue
			}
			installed++
			if _, err := adapter.ReadConfig(); err != nil {
				fmt.Printf("✗ %s config is unreadable: %v\n", adapter.Name(), err)
				criticalIssues++
			} else {
				fmt.Printf("✓ %s config readable: %s\n", adapter.Name(), adapter.ConfigPath())
			}
		}
		if installed == 0 {
			fmt.Println("⚠ No supported host apps detected")
			warningIssues++
		}
	}

	// Checks 3 and 4: per-server command resolution and integrity
	if state != nil {
		names := make([]string, 0, len(state.Servers))
		for name := range state.Servers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry := state.Servers[name]
			if _, err := exec.LookPath(entry.Command); err != nil {
				fmt.Printf("✗ %s: executable %q not found on PATH\n", name, entry.Command)
				fmt.Println("  Action: Reinstall the server or fix PATH")
				criticalIssues++
			} else {
				fmt.Printf("✓ %s: %s resolves\n", name, entry.Command)
			}
			if entry.Integrity != "" && entry.Integrity != lockfile.IntegrityDigest(entry.Locator) {
				fmt.Printf("⚠ %s: locator digest does not match the recorded integrity\n", name)
				fmt.Println("  The entry was edited by hand or the lockfile is stale")
				warningIssues++
			}
		}
	}

	// Check 5: History database — warning only
	if hist, err := openHistory(); err != nil {
		fmt.Println("⚠ Cannot open probe history database:", err)
		warningIssues++
	} else {
		hist.Close()
		fmt.Println("✓ Probe history database opens")
	}

	fmt.Println()
	if criticalIssues == 0 && warningIssues == 0 {
		fmt.Println("✓ All checks passed!")
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  • Check server health: mcpman status")
		fmt.Println("  • Review host drift: mcpman diff")
		return nil
	}

	if criticalIssues > 0 {
		fmt.Printf("Found %d critical issue(s) and %d warning(s).\n", criticalIssues, warningIssues)
		return fmt.Errorf("diagnostics failed")
	}

	// Warning-only path: exit 2 directly so main.go's error handler is
	// never reached and the message is not printed twice.
	fmt.Printf("Found %d warning(s). System is functional but not fully configured.\n", warningIssues)
	os.Exit(2)
	return nil // unreachable; satisfies compiler
}
