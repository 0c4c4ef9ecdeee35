package rules

import (
	"fmt"
	"strings"
)

// FormatDuration renders a minute count for alert messages:
// 90 -> "1 hour 30 minutes", 45 -> "45 minutes", 120 -> "2 hours".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	hours, mins := minutes/60, minutes%60

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if mins > 0 || hours == 0 {
		parts = append(parts, plural(mins, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
