package model

import (
	"fmt"
	"strings"
	"time"
)

// Window is the recency window requested from a source channel.
type Window string

const (
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// DefaultWindow is used when a caller does not specify one.
const DefaultWindow = WindowWeek

// ParseWindow validates a window name. Empty input yields DefaultWindow.
func ParseWindow(s string) (Window, error) {
	switch Window(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultWindow, nil
	case WindowDay:
		return WindowDay, nil
	case WindowWeek:
		return WindowWeek, nil
	case WindowMonth:
		return WindowMonth, nil
	}
	return "", fmt.Errorf("unknown window %q (want day, week or month)", s)
}

// Duration returns the span the window covers.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowDay:
		return 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}
