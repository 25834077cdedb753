package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pulseboard/pulseboard/internal/platform"
)

// YouTube adapter constants.
const (
	youtubeDefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	youtubeMaxResults     = 50

	// youtubeQuotaRetryAfter is the advisory wait applied when a 401/403
	// response body mentions quota exhaustion.
	youtubeQuotaRetryAfter = 3600
)

// YouTubeThumbnail is one thumbnail rendition.
type YouTubeThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// YouTubeSnippet is the metadata of one playlist item.
type YouTubeSnippet struct {
	PublishedAt  time.Time                   `json:"publishedAt"`
	ChannelID    string                      `json:"channelId"`
	ChannelTitle string                      `json:"channelTitle"`
	Title        string                      `json:"title"`
	Description  string                      `json:"description"`
	Thumbnails   map[string]YouTubeThumbnail `json:"thumbnails,omitempty"`
	ResourceID   struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

// YouTubePlaylistItem is one item of the uploads playlist.
type YouTubePlaylistItem struct {
	ID      string         `json:"id"`
	Snippet YouTubeSnippet `json:"snippet"`
}

// YouTubePayload is the raw output of one youtube fetch.
type YouTubePayload struct {
	Items     []YouTubePlaylistItem `json:"items"`
	FetchedAt time.Time             `json:"fetched_at"`
}

// Platform implements Payload.
func (YouTubePayload) Platform() platform.Platform { return platform.YouTube }

// YouTubeProvider fetches the authenticated channel's uploads playlist.
type YouTubeProvider struct {
	BaseURL    string
	Client     *http.Client
	MaxResults int
	Now        func() time.Time
}

// NewYouTubeProvider returns a YouTubeProvider with production defaults.
func NewYouTubeProvider() *YouTubeProvider {
	return &YouTubeProvider{
		BaseURL:    youtubeDefaultBaseURL,
		MaxResults: youtubeMaxResults,
		Now:        time.Now,
	}
}

// Platform implements Provider.
func (y *YouTubeProvider) Platform() platform.Platform { return platform.YouTube }

// Fetch resolves the channel's uploads playlist and retrieves up to
// MaxResults items from it.
func (y *YouTubeProvider) Fetch(ctx context.Context, token string) (Result, error) {
	client := httpClient(y.Client)
	base := y.BaseURL

	if base == "" {
		base = youtubeDefaultBaseURL
	}

	var channels struct {
		Items []struct {
			ContentDetails struct {
				RelatedPlaylists struct {
					Uploads string `json:"uploads"`
				} `json:"relatedPlaylists"`
			} `json:"contentDetails"`
		} `json:"items"`
	}

	resp, err := getJSON(ctx, client, base+"/channels?part=contentDetails&mine=true",
		"Bearer "+token, nil, &channels)
	if err != nil {
		return Result{}, classifyYouTube(resp, err, y.now)
	}

	headers := resp.Header
	payload := YouTubePayload{FetchedAt: y.now()}

	if len(channels.Items) == 0 {
		return Result{Payload: payload, Headers: headers}, nil
	}

	uploads := channels.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return Result{Payload: payload, Headers: headers}, nil
	}

	maxResults := y.MaxResults
	if maxResults <= 0 || maxResults > youtubeMaxResults {
		maxResults = youtubeMaxResults
	}

	itemsURL := fmt.Sprintf("%s/playlistItems?part=snippet&playlistId=%s&maxResults=%d",
		base, url.QueryEscape(uploads), maxResults)

	var items struct {
		Items []YouTubePlaylistItem `json:"items"`
	}

	resp, err = getJSON(ctx, client, itemsURL, "Bearer "+token, nil, &items)
	if err != nil {
		return Result{}, classifyYouTube(resp, err, y.now)
	}

	payload.Items = items.Items

	return Result{Payload: payload, Headers: resp.Header}, nil
}

func (y *YouTubeProvider) now() time.Time {
	if y.Now != nil {
		return y.Now()
	}

	return time.Now()
}

// classifyYouTube maps YouTube error responses: a 401/403 whose body
// mentions quota is re-tagged as rate_limited with a one-hour retry.
func classifyYouTube(resp *http.Response, err error, now func() time.Time) error {
	if err != errStatus { //nolint:errorlint // sentinel identity check.
		return err
	}

	body := readErrorBody(resp)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return RateLimited(retryAfterSeconds(resp.Header, now()))
	case http.StatusUnauthorized, http.StatusForbidden:
		if strings.Contains(strings.ToLower(body), "quota") {
			return RateLimited(youtubeQuotaRetryAfter)
		}

		return AuthExpired(body)
	default:
		return APIError(resp.StatusCode, body)
	}
}
