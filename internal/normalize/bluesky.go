package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pulseboard/pulseboard/internal/platform"
	"github.com/pulseboard/pulseboard/internal/provider"
	"github.com/pulseboard/pulseboard/internal/timeline"
)

// Bluesky normalizes an author-feed snapshot into post items. The record key
// is the final segment of the post URI; items without one are dropped.
func Bluesky(raw []byte) ([]timeline.Item, error) {
	var payload provider.BlueskyPayload

	err := json.Unmarshal(raw, &payload)
	if err != nil {
		return nil, provider.ParseError(err)
	}

	items := make([]timeline.Item, 0, len(payload.Feed))

	for _, entry := range payload.Feed {
		post := entry.Post

		rkey := lastURISegment(post.URI)
		if rkey == "" || post.Record.CreatedAt.IsZero() {
			continue
		}

		hasMedia := post.Embed != nil && len(post.Embed.Images) > 0
		isRepost := entry.Reason != nil && entry.Reason.Type == provider.BlueskyRepostReason

		items = append(items, timeline.Item{
			ID:        "bsky:post:" + rkey,
			Platform:  platform.Bluesky,
			Type:      timeline.TypePost,
			Timestamp: post.Record.CreatedAt,
			Title:     titleFrom(post.Record.Text, longTitleMax),
			URL:       blueskyPostURL(post.Author.Handle, rkey),
			Payload: timeline.PostPayload{
				Content:      post.Record.Text,
				AuthorHandle: post.Author.Handle,
				ReplyCount:   post.ReplyCount,
				RepostCount:  post.RepostCount,
				LikeCount:    post.LikeCount,
				HasMedia:     hasMedia,
				IsReply:      post.Record.Reply != nil,
				IsRepost:     isRepost,
			},
		})
	}

	return items, nil
}

// lastURISegment extracts the record key from an at:// URI.
func lastURISegment(uri string) string {
	trimmed := strings.TrimSuffix(uri, "/")
	if trimmed == "" {
		return ""
	}

	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return ""
	}

	return trimmed[idx+1:]
}

func blueskyPostURL(handle, rkey string) string {
	if handle == "" {
		return ""
	}

	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, rkey)
}
