package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/timing"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show suggestion effectiveness analytics",
	Long: `Show aggregated feedback analytics: action counts, engagement rate,
ratings, the recent effectiveness trend, and the learned behavior
profile backing resurfacing timing.

Examples:
  recall stats`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	snap := rt.engine.Analytics()

	fmt.Println("Feedback")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("  Events:          %d\n", snap.TotalEvents)
	fmt.Printf("  Engagement rate: %.1f%%\n", snap.EngagementRate*100)
	if snap.RatedCount > 0 {
		fmt.Printf("  Average rating:  %.1f/5 (%d rated)\n", snap.AverageRating, snap.RatedCount)
	}
	if snap.EngagementSamples > 0 {
		fmt.Printf("  Avg engagement:  %.1fs (%d samples)\n", snap.AverageEngagementMs/1000, snap.EngagementSamples)
	}
	fmt.Printf("  Trend:           %s\n", snap.Trend)

	if len(snap.Actions) > 0 {
		fmt.Println("\nActions")
		fmt.Println(strings.Repeat("-", 40))
		for _, action := range sortedKeys(snap.Actions) {
			fmt.Printf("  %-10s %d\n", action, snap.Actions[action])
		}
	}

	if len(snap.DismissalReasons) > 0 {
		fmt.Println("\nDismissals")
		fmt.Println(strings.Repeat("-", 40))
		for _, reason := range sortedKeys(snap.DismissalReasons) {
			fmt.Printf("  %-12s %d\n", reason, snap.DismissalReasons[reason])
		}
	}

	profile := rt.engine.BehaviorProfile()
	if hour, stats, ok := bestHour(profile.Hourly); ok {
		fmt.Println("\nBehavior")
		fmt.Println(strings.Repeat("-", 40))
		fmt.Printf("  Best hour:       %02d:00 (%.0f%% of %d shown)\n",
			hour, stats.Rate()*100, stats.Total)
		for _, cat := range sortedKeys(profile.Categories) {
			s := profile.Categories[cat]
			fmt.Printf("  %-16s %.0f%% of %d shown\n", string(cat)+":", s.Rate()*100, s.Total)
		}
	}

	fmt.Println("\nEngine")
	fmt.Println(strings.Repeat("-", 40))
	counters := rt.engine.Metrics()
	for _, name := range sortedKeys(counters) {
		fmt.Printf("  %-22s %d\n", name, counters[name])
	}
	return nil
}

func bestHour(hourly [24]timing.EngagementStats) (int, timing.EngagementStats, bool) {
	best, found := 0, false
	for h, s := range hourly {
		if s.Total == 0 {
			continue
		}
		if !found || s.Rate() > hourly[best].Rate() {
			best, found = h, true
		}
	}
	return best, hourly[best], found
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
