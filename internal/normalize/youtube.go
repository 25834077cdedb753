package normalize

import (
	"encoding/json"

	"github.com/pulseboard/pulseboard/internal/platform"
	"github.com/pulseboard/pulseboard/internal/provider"
	"github.com/pulseboard/pulseboard/internal/timeline"
)

// thumbnailPreference orders renditions from best to worst.
var thumbnailPreference = []string{"high", "medium", "default"}

// YouTube normalizes an uploads-playlist snapshot into video items.
func YouTube(raw []byte) ([]timeline.Item, error) {
	var payload provider.YouTubePayload

	err := json.Unmarshal(raw, &payload)
	if err != nil {
		return nil, provider.ParseError(err)
	}

	items := make([]timeline.Item, 0, len(payload.Items))

	for _, entry := range payload.Items {
		snippet := entry.Snippet

		videoID := snippet.ResourceID.VideoID
		if videoID == "" || snippet.PublishedAt.IsZero() {
			continue
		}

		items = append(items, timeline.Item{
			ID:        "yt:video:" + videoID,
			Platform:  platform.YouTube,
			Type:      timeline.TypeVideo,
			Timestamp: snippet.PublishedAt,
			Title:     truncate(snippet.Title, longTitleMax),
			URL:       "https://www.youtube.com/watch?v=" + videoID,
			Payload: timeline.VideoPayload{
				ChannelID:    snippet.ChannelID,
				ChannelTitle: snippet.ChannelTitle,
				Description:  snippet.Description,
				ThumbnailURL: bestThumbnail(snippet.Thumbnails),
			},
		})
	}

	return items, nil
}

// bestThumbnail picks the preferred rendition that is present.
func bestThumbnail(thumbnails map[string]provider.YouTubeThumbnail) string {
	for _, key := range thumbnailPreference {
		if thumb, ok := thumbnails[key]; ok && thumb.URL != "" {
			return thumb.URL
		}
	}

	return ""
}
