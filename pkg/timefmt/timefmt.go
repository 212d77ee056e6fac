// Package timefmt renders minute estimates as human-readable durations.
package timefmt

import (
	"fmt"
	"math"
	"strings"
)

const minutesPerDay = 24 * 60

// Minutes formats a minute count as "2 days, 3 hours, 5 minutes", dropping
// zero components. Values under an hour stay in minutes. The minute component
// is always preserved so the text maps back to the same minute bucket.
func Minutes(minutes float64) string {
	total := int(math.Round(minutes))
	if total < 0 {
		total = 0
	}
	if total < 60 {
		return plural(total, "minute")
	}

	days := total / minutesPerDay
	hours := (total % minutesPerDay) / 60
	mins := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if mins > 0 {
		parts = append(parts, plural(mins, "minute"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
