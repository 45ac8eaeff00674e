package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fetchbot/internal/stats"
)

// queuedText is the neutral placeholder sent before the queue decides whether
// the job runs now or waits; the first real status is always an edit.
func queuedText() string {
	return "⏳ Queued..."
}

func startText() string {
	return "👋 Send me a link from Instagram, Reddit, or TikTok and I'll fetch the media for you."
}

func statsText(active, pending int) string {
	snap := stats.Get().Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Uptime: %s\n", snap.Uptime.Round(time.Second))
	fmt.Fprintf(&b, "Jobs: %d total, %d ok, %d failed\n", snap.Total, snap.Success, snap.Failed)
	fmt.Fprintf(&b, "Media: %d videos, %d images\n", snap.Videos, snap.Images)
	fmt.Fprintf(&b, "Queue: %d active, %d waiting\n", active, pending)

	if len(snap.Platforms) > 0 {
		names := make([]string, 0, len(snap.Platforms))
		for name := range snap.Platforms {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\nBy platform:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "• %s: %d\n", name, snap.Platforms[name])
		}
	}

	if sys, err := stats.GetSystemInfo(); err == nil {
		fmt.Fprintf(&b, "\nCPU: %.1f%% of %d cores\n", sys.CPUUsage, sys.CPUCores)
		fmt.Fprintf(&b, "Mem: %.1f%% (%d MB rss)\n", sys.MemPercent, sys.ProcessMem/1024/1024)
		fmt.Fprintf(&b, "Go: %s, %d goroutines", sys.GoVersion, sys.Goroutines)
	}

	return strings.TrimRight(b.String(), "\n")
}
