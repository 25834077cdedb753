package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/pulseboard/pulseboard/internal/platform"
	"github.com/pulseboard/pulseboard/internal/provider"
	"github.com/pulseboard/pulseboard/internal/timeline"
)

// Twitter normalizes a tweet-page snapshot into post items.
func Twitter(raw []byte) ([]timeline.Item, error) {
	var payload provider.TwitterPayload

	err := json.Unmarshal(raw, &payload)
	if err != nil {
		return nil, provider.ParseError(err)
	}

	items := make([]timeline.Item, 0, len(payload.Tweets))

	for _, tweet := range payload.Tweets {
		if tweet.ID == "" || tweet.CreatedAt.IsZero() {
			continue
		}

		items = append(items, timeline.Item{
			ID:        "tw:post:" + tweet.ID,
			Platform:  platform.Twitter,
			Type:      timeline.TypePost,
			Timestamp: tweet.CreatedAt,
			Title:     titleFrom(tweet.Text, longTitleMax),
			URL:       tweetURL(payload.Meta.Username, tweet.ID),
			Payload: timeline.PostPayload{
				Content:      tweet.Text,
				AuthorHandle: payload.Meta.Username,
				ReplyCount:   tweet.ReplyCount,
				RepostCount:  tweet.RetweetCount + tweet.QuoteCount,
				LikeCount:    tweet.LikeCount,
			},
		})
	}

	return items, nil
}

func tweetURL(username, id string) string {
	if username == "" {
		return ""
	}

	return fmt.Sprintf("https://twitter.com/%s/status/%s", username, id)
}
