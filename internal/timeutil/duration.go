// Package timeutil parses and formats the short duration notation used
// by moderation commands ("30s", "5m", "2h", "1d").
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned when the input does not match
// "<number><s|m|h|d>".
var ErrInvalidDuration = errors.New("invalid duration format")

var durationRegex = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseDuration converts a short duration string into a time.Duration.
// The unit letter is case-insensitive.
func ParseDuration(input string) (time.Duration, error) {
	match := durationRegex.FindStringSubmatch(strings.ToLower(input))
	if match == nil {
		return 0, ErrInvalidDuration
	}

	value, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, ErrInvalidDuration
	}

	var unit time.Duration
	switch match[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	default:
		return 0, ErrInvalidDuration
	}

	// A huge count would wrap int64 and could come back small and
	// positive, sneaking past the caller's bounds check
	if value > math.MaxInt64/int64(unit) {
		return 0, ErrInvalidDuration
	}
	return time.Duration(value) * unit, nil
}

// FormatDuration renders a duration as its three largest applicable
// fields, e.g. "1 day, 1 hour, 1 minute" or "5 minutes, 30 seconds".
// A zero duration renders as "0 seconds".
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%s, %s, %s",
			plural(days, "day"),
			plural(hours%24, "hour"),
			plural(minutes%60, "minute"))
	case hours > 0:
		return fmt.Sprintf("%s, %s, %s",
			plural(hours, "hour"),
			plural(minutes%60, "minute"),
			plural(seconds%60, "second"))
	case minutes > 0:
		return fmt.Sprintf("%s, %s",
			plural(minutes, "minute"),
			plural(seconds%60, "second"))
	default:
		return plural(seconds, "second")
	}
}

// FormatElapsedSince renders the time elapsed since t. A single clock
// read keeps composed output consistent.
func FormatElapsedSince(t time.Time) string {
	return FormatDuration(time.Now().Sub(t))
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
