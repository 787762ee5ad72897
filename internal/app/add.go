package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/lockfile"
)

var (
	addFlagCommand string
	addFlagArgs    []string
	addFlagEnv     []string
	addFlagHosts   []string
	addFlagSource  string
	addFlagVersion string
	addFlagLocator string
	addFlagRuntime string
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Declare a server in the lockfile and install it to its target hosts",
	Long: `Add a server to the canonical lockfile and write it into every target
host's configuration.

The lockfile records the command, arguments, and the *names* of declared
environment variables — never their values. Values passed via --env go
only into host configs.`,
	Example: `  mcpman add search --command npx --args -y,@example/search-server
  mcpman add db --command uvx --args db-server --env DB_URL=postgres://localhost
  mcpman add notes --command ./notes-server --host cursor,vscode --source local`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addFlagCommand, "command", "", "executable to run (required)")
	addCmd.Flags().StringSliceVar(&addFlagArgs, "args", nil, "command arguments")
	addCmd.Flags().StringSliceVar(&addFlagEnv, "env", nil, "environment variables as KEY=VALUE (value goes to host configs only)")
	addCmd.Flags().StringSliceVar(&addFlagHosts, "host", nil, "target host ids (default: all known hosts)")
	addCmd.Flags().StringVar(&addFlagSource, "source", string(lockfile.SourceLocal), "source kind: npm, pypi, local, remote")
	addCmd.Flags().StringVar(&addFlagVersion, "pkg-version", "", "package version")
	addCmd.Flags().StringVar(&addFlagLocator, "locator", "", "resolved package locator (default: derived from source and command)")
	addCmd.Flags().StringVar(&addFlagRuntime, "runtime", string(lockfile.RuntimeBinary), "runtime kind: node, python, binary")
	_ = addCmd.MarkFlagRequired("command")

	RootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	envNames, envValues, err := parseEnvFlags(addFlagEnv)
	if err != nil {
		return err
	}

	targets := addFlagHosts
	if len(targets) == 0 {
		targets = hosts.KnownIDs()
	}

	locator := addFlagLocator
	if locator == "" {
		locator = fmt.Sprintf("%s:%s@%s", addFlagSource, addFlagCommand, addFlagVersion)
	}

	entry := lockfile.Entry{
		Version:     addFlagVersion,
		Source:      lockfile.SourceKind(addFlagSource),
		Locator:     locator,
		Integrity:   lockfile.IntegrityDigest(locator),
		Runtime:     lockfile.RuntimeKind(addFlagRuntime),
		Command:     addFlagCommand,
		Args:        addFlagArgs,
		EnvNames:    envNames,
		InstalledAt: time.Now().UTC(),
		Targets:     targets,
	}

	store, err := openLockStore()
	if err != nil {
		return err
	}
	if err := store.AddEntry(name, entry); err != nil {
		return err
	}
	fmt.Printf("Added %s to lockfile (targets: %v)\n", name, targets)

	// Host installation: one host's failure is reported but does not
	// abort the rest, and the lockfile mutation above stands regardless.
	hostEntry := hosts.ServerEntry{
		Command: addFlagCommand,
		Args:    addFlagArgs,
		Env:     envValues,
	}
	failures := 0
	for _, target := range targets {
		adapter, err := hosts.Get(target)
		if err != nil {
			return err
		}
		if err := adapter.AddServer(name, hostEntry); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "Failed to install %s to %s: %v\n", name, target, err)
			continue
		}
		fmt.Printf("Installed %s to %s\n", name, target)
	}

	if failures > 0 {
		return fmt.Errorf("installed to %d/%d hosts; run 'mcpman sync' to retry the rest",
			len(targets)-failures, len(targets))
	}
	return nil
}
