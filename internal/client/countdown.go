package client

import (
	"fmt"
	"time"
)

// Countdown renders the time remaining before the server purges an invite,
// rounded for display. It is advisory only: the authoritative deadline is
// enforced server-side whether or not anyone is watching this string.
func Countdown(purgeAt, now time.Time) string {
	remaining := purgeAt.Sub(now)
	if remaining <= 0 {
		return "expired"
	}
	switch {
	case remaining >= 48*time.Hour:
		return fmt.Sprintf("%dd", int(remaining.Hours()/24))
	case remaining >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(remaining.Hours()), int(remaining.Minutes())%60)
	case remaining >= time.Minute:
		return fmt.Sprintf("%dm", int(remaining.Minutes()))
	default:
		return "under a minute"
	}
}
