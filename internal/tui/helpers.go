package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// formatCountdown renders the time left until a deadline, e.g. "4m12s",
// "2h05m", "3d4h" or "expired".
func formatCountdown(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	d = d.Truncate(time.Second)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd%dh", int(d.Hours()/24), int(d.Hours())%24)
	}
}

// maskToken keeps the first and last four characters of a token.
func maskToken(tok string) string {
	if utf8.RuneCountInString(tok) <= 12 {
		return strings.Repeat("•", utf8.RuneCountInString(tok))
	}
	r := []rune(tok)
	return string(r[:4]) + strings.Repeat("•", 6) + string(r[len(r)-4:])
}
