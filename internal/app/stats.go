package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/output"
)

var (
	statsServer string
	statsLimit  int
	statsPrune  int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show probe history aggregates",
	Long: `Summarize the recorded probe history per server: probe counts,
success rate, average latency, and the outcome of the most recent
probe. Use --server to list the raw probe records for one server
instead.`,
	Example: `  mcpman stats
  mcpman stats --server search --limit 20
  mcpman stats --prune 30`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsServer, "server", "", "Show recent probe records for this server")
	statsCmd.Flags().IntVar(&statsLimit, "limit", 10, "Number of records to show with --server")
	statsCmd.Flags().IntVar(&statsPrune, "prune", 0, "Delete probe records older than this many days")
	RootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if statsPrune > 0 {
		cutoff := time.Now().AddDate(0, 0, -statsPrune)
		deleted, err := store.Prune(cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d record(s) older than %d days\n", deleted, statsPrune)
		return nil
	}

	if statsServer != "" {
		records, err := store.ListRecent(statsServer, statsLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("No probe history for %s yet.\n", statsServer)
			return nil
		}
		for _, rec := range records {
			latency := "-"
			if rec.LatencyMS != nil {
				latency = fmt.Sprintf("%dms", *rec.LatencyMS)
			}
			outcome := "down"
			if rec.Alive {
				outcome = "up"
			}
			detail := ""
			if rec.ErrorTag != "" {
				detail = "  " + rec.ErrorTag
			} else if rec.Mode == "deep" {
				detail = fmt.Sprintf("  %d tools", rec.ToolCount)
			}
			fmt.Printf("%s  %-5s  %-4s  %6s%s\n",
				rec.CreatedAt.Local().Format("2006-01-02 15:04:05"), rec.Mode, outcome, latency, detail)
		}
		return nil
	}

	summaries, err := store.Summaries()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No probe history yet. Run 'mcpman status' or 'mcpman test' first.")
		return nil
	}
	fmt.Print(output.RenderStatsTable(summaries))
	return nil
}
