package normalize

import (
	"encoding/json"

	"github.com/pulseboard/pulseboard/internal/platform"
	"github.com/pulseboard/pulseboard/internal/provider"
	"github.com/pulseboard/pulseboard/internal/timeline"
)

// redditWebBase prefixes permalinks into absolute URLs.
const redditWebBase = "https://www.reddit.com"

// Reddit normalizes a composite reddit snapshot: one post item per
// submission and one comment item per comment.
func Reddit(raw []byte) ([]timeline.Item, error) {
	var payload provider.RedditPayload

	err := json.Unmarshal(raw, &payload)
	if err != nil {
		return nil, provider.ParseError(err)
	}

	items := make([]timeline.Item, 0, len(payload.Posts)+len(payload.Comments))

	for _, post := range payload.Posts {
		if post.ID == "" || post.CreatedAt.IsZero() {
			continue
		}

		items = append(items, timeline.Item{
			ID:        "rd:post:" + post.ID,
			Platform:  platform.Reddit,
			Type:      timeline.TypePost,
			Timestamp: post.CreatedAt,
			Title:     truncate(post.Title, shortTitleMax),
			URL:       permalinkURL(post.Permalink),
			Payload: timeline.PostPayload{
				Content:    post.SelfText,
				ReplyCount: post.NumComments,
				LikeCount:  post.Score,
			},
		})
	}

	for _, comment := range payload.Comments {
		if comment.ID == "" || comment.CreatedAt.IsZero() {
			continue
		}

		items = append(items, timeline.Item{
			ID:        "rd:comment:" + comment.ID,
			Platform:  platform.Reddit,
			Type:      timeline.TypeComment,
			Timestamp: comment.CreatedAt,
			Title:     titleFrom(comment.Body, shortTitleMax),
			URL:       permalinkURL(comment.LinkPermalink),
			Payload: timeline.CommentPayload{
				Subreddit:     comment.Subreddit,
				LinkTitle:     comment.LinkTitle,
				LinkPermalink: comment.LinkPermalink,
				Score:         comment.Score,
				IsOP:          comment.IsSubmitter,
				ParentTitle:   comment.LinkTitle,
				ParentURL:     permalinkURL(comment.LinkPermalink),
			},
		})
	}

	return items, nil
}

func permalinkURL(permalink string) string {
	if permalink == "" {
		return ""
	}

	return redditWebBase + permalink
}
