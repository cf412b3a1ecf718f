// Package util holds small helpers shared by the server and the CLI.
package util

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"
)

// GenerateID returns "<prefix>_<unix millis>_<9 random characters>".
// An empty prefix becomes "id".
func GenerateID(prefix string) string {
	if prefix == "" {
		prefix = "id"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix)
}

// RandomItem returns a random element of items, or the zero value and
// false when items is empty.
func RandomItem[T any](items []T) (T, bool) {
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[rand.IntN(len(items))], true
}

// FormatTimestamp renders t as hours and minutes.
func FormatTimestamp(t time.Time) string {
	return t.Format("15:04")
}

// RelativeTime describes how long before now t was, in whole days, hours
// or minutes. Anything under a minute, or in the future, is "Just now".
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d >= 24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return "Just now"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

var mobileAgent = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// IsMobileUserAgent reports whether ua looks like a mobile browser.
func IsMobileUserAgent(ua string) bool {
	return mobileAgent.MatchString(ua)
}

// DeviceType buckets a viewport width in CSS pixels.
func DeviceType(width int) string {
	switch {
	case width <= 575:
		return "mobile"
	case width <= 768:
		return "tablet"
	case width <= 992:
		return "laptop"
	default:
		return "desktop"
	}
}

// CopyToClipboard writes text to the system clipboard and reports success.
func CopyToClipboard(text string) bool {
	if clipboard.Unsupported {
		return false
	}
	return clipboard.WriteAll(text) == nil
}
