package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedDuration = errors.New("malformed_duration")

// ParseDuration converts carrier duration text in H:MM:SS form (hours
// unbounded, minutes and seconds 0-59) into a time.Duration. Seconds are kept
// here and truncated only at the whole-minute conversion in Minutes.
func ParseDuration(text string) (time.Duration, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q is not H:MM:SS", ErrMalformedDuration, text)
	}

	hours, err := parseComponent(parts[0], text)
	if err != nil {
		return 0, err
	}
	minutes, err := parseComponent(parts[1], text)
	if err != nil {
		return 0, err
	}
	seconds, err := parseComponent(parts[2], text)
	if err != nil {
		return 0, err
	}
	if minutes > 59 {
		return 0, fmt.Errorf("%w: %q minutes out of range", ErrMalformedDuration, text)
	}
	if seconds > 59 {
		return 0, fmt.Errorf("%w: %q seconds out of range", ErrMalformedDuration, text)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second, nil
}

// Minutes converts a call duration to whole billable minutes, truncating any
// fractional minute to match whole-minute billing granularity.
func Minutes(d time.Duration) int64 {
	return int64(d / time.Minute)
}

func parseComponent(part, text string) (int64, error) {
	part = strings.TrimSpace(part)
	if part == "" {
		return 0, fmt.Errorf("%w: %q has an empty component", ErrMalformedDuration, text)
	}
	value, err := strconv.ParseInt(part, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q has a non-numeric component", ErrMalformedDuration, text)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: %q has a negative component", ErrMalformedDuration, text)
	}
	return value, nil
}
