// Package normalize converts each platform's raw snapshot payload into the
// common timeline item model. All normalizers are pure: they never perform
// I/O, item-level malformations drop the item, and only a top-level schema
// failure returns an error.
package normalize

import (
	"strings"

	"github.com/pulseboard/pulseboard/internal/platform"
	"github.com/pulseboard/pulseboard/internal/provider"
	"github.com/pulseboard/pulseboard/internal/timeline"
)

// Title truncation bounds.
const (
	shortTitleMax = 72
	longTitleMax  = 100

	ellipsis = "…"
)

// ForPlatform dispatches raw snapshot bytes to the platform's normalizer.
func ForPlatform(p platform.Platform, raw []byte) ([]timeline.Item, error) {
	switch p {
	case platform.GitHub:
		return GitHub(raw)
	case platform.Bluesky:
		return Bluesky(raw)
	case platform.YouTube:
		return YouTube(raw)
	case platform.Dayplan:
		return Dayplan(raw)
	case platform.Reddit:
		return Reddit(raw)
	case platform.Twitter:
		return Twitter(raw)
	default:
		return nil, provider.UnknownPlatform(string(p))
	}
}

// firstLine returns the text up to the first newline, trimmed.
func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")

	return strings.TrimSpace(line)
}

// truncate caps a string at max runes, appending an ellipsis when cut.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	return string(runes[:max]) + ellipsis
}

// titleFrom renders an item title: the first line of text, truncated.
func titleFrom(text string, max int) string {
	return truncate(firstLine(text), max)
}
