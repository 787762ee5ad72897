// Package output provides terminal output utilities for mcpman.
//
// This package includes:
//   - Table rendering for lockfile entries, sync actions, probe results,
//     snapshots, and probe-history stats
//   - Human-readable formatting for sizes, durations, and relative times
//
// All table rendering uses ASCII characters and ANSI color codes; the
// core packages never print, commands render through these helpers.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/history"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/lockfile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/probe"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/reconcile"
	"github.com/tranhoangtu-it/mcpman-sub001/internal/rollback"
)

// ANSI color codes for action and probe state display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderLockTable renders the canonical store's entries.
func RenderLockTable(state *lockfile.State) string {
	if len(state.Servers) == 0 {
		return "No servers in lockfile.\n"
	}

	names := make([]string, 0, len(state.Servers))
	for name := range state.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-18s %-10s %-8s %-24s %-13s %s\n",
		"Server", "Version", "Source", "Command", "Installed", "Targets"))
	sb.WriteString(strings.Repeat("─", 92))
	sb.WriteString("\n")

	for _, name := range names {
		entry := state.Servers[name]
		command := entry.Command
		if len(entry.Args) > 0 {
			command += " " + strings.Join(entry.Args, " ")
		}
		sb.WriteString(fmt.Sprintf("%-18s %-10s %-8s %-24s %-13s %s\n",
			truncate(name, 18),
			truncate(entry.Version, 10),
			entry.Source,
			truncate(command, 24),
			formatRelativeTime(entry.InstalledAt),
			strings.Join(entry.Targets, ",")))
	}

	return sb.String()
}

// RenderActionTable renders the actions of a reconciliation pass,
// followed by any skipped hosts.
func RenderActionTable(result *reconcile.Result) string {
	if len(result.Actions) == 0 && !result.Partial() {
		return "Everything in sync.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-18s %-16s %s\n", "Server", "Host", "Action"))
	sb.WriteString(strings.Repeat("─", 48))
	sb.WriteString("\n")

	for _, action := range result.Actions {
		sb.WriteString(fmt.Sprintf("%-18s %-16s %s\n",
			truncate(action.Server, 18),
			truncate(action.Host, 16),
			colorize(actionColor(action.Kind), string(action.Kind))))
		for _, diff := range action.Diffs {
			sb.WriteString(fmt.Sprintf("    %s\n", diff))
		}
	}

	if result.Partial() {
		sb.WriteString("\nPartial result — skipped hosts:\n")
		for _, skipped := range result.Skipped {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", skipped.Host, skipped.Err))
		}
	}

	return sb.String()
}

// RenderProbeTable renders a batch of probe results sorted by server name.
func RenderProbeTable(results []probe.Result) string {
	if len(results) == 0 {
		return "No servers to probe.\n"
	}

	sorted := make([]probe.Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Server < sorted[j].Server
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-18s %-8s %-10s %s\n", "Server", "Alive", "Latency", "Detail"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	for _, r := range sorted {
		alive := colorize(colorRed, "no")
		latency := "—"
		detail := r.ErrTag
		if r.Alive {
			alive = colorize(colorGreen, "yes")
			latency = formatLatency(r.Latency)
			if len(r.Tools) > 0 {
				detail = fmt.Sprintf("%d tools: %s", len(r.Tools), truncate(strings.Join(r.Tools, ", "), 32))
			} else {
				detail = ""
			}
		}
		sb.WriteString(fmt.Sprintf("%-18s %-8s %-10s %s\n",
			truncate(r.Server, 18), alive, latency, detail))
	}

	return sb.String()
}

// RenderSnapshotTable renders the rollback ring, newest first.
func RenderSnapshotTable(snaps []rollback.Snapshot) string {
	if len(snaps) == 0 {
		return "No snapshots available.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s %-22s %s\n", "Index", "Created", "Size"))
	sb.WriteString(strings.Repeat("─", 40))
	sb.WriteString("\n")

	for _, snap := range snaps {
		sb.WriteString(fmt.Sprintf("%-6d %-22s %s\n",
			snap.Index,
			formatRelativeTime(snap.CreatedAt),
			formatSize(snap.Size)))
	}

	return sb.String()
}

// RenderStatsTable renders per-server probe-history aggregates.
func RenderStatsTable(summaries []*history.Summary) string {
	if len(summaries) == 0 {
		return "No probe history recorded yet. Run 'mcpman status' or 'mcpman test' first.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-18s %-8s %-10s %-12s %-13s %s\n",
		"Server", "Probes", "Healthy", "Avg Latency", "Last Probe", "Last State"))
	sb.WriteString(strings.Repeat("─", 76))
	sb.WriteString("\n")

	for _, sum := range summaries {
		lastState := colorize(colorRed, "down")
		if sum.LastAlive {
			lastState = colorize(colorGreen, "up")
		}
		healthy := fmt.Sprintf("%d/%d", sum.Successes, sum.Probes)
		avg := "—"
		if sum.AvgLatencyMS > 0 {
			avg = fmt.Sprintf("%.0f ms", sum.AvgLatencyMS)
		}
		sb.WriteString(fmt.Sprintf("%-18s %-8d %-10s %-12s %-13s %s\n",
			truncate(sum.Server, 18),
			sum.Probes,
			healthy,
			avg,
			formatRelativeTime(sum.LastProbe),
			lastState))
	}

	return sb.String()
}

func actionColor(kind reconcile.ActionKind) string {
	switch kind {
	case reconcile.ActionOK:
		return colorGreen
	case reconcile.ActionAdd, reconcile.ActionChanged:
		return colorYellow
	case reconcile.ActionRemove:
		return colorRed
	default:
		return colorGray
	}
}

// formatLatency renders a probe latency compactly.
func formatLatency(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1f s", d.Seconds())
}

// formatSize converts bytes to human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatRelativeTime renders a timestamp as a relative age.
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	elapsed := time.Since(t)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	case elapsed < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(elapsed.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// truncate shortens s to max characters, appending "…" when cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
