package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pulseboard/pulseboard/internal/platform"
)

// Bluesky adapter constants.
const (
	blueskyDefaultBaseURL = "https://bsky.social"
	blueskyFeedLimit      = 50

	// BlueskyRepostReason is the reason tag marking a feed item as a repost.
	BlueskyRepostReason = "app.bsky.feed.defs#reasonRepost"
)

// BlueskyAuthor identifies a post author.
type BlueskyAuthor struct {
	DID         string `json:"did,omitempty"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
}

// BlueskyReplyRef marks a record as a reply; only presence matters to the
// normalizer.
type BlueskyReplyRef struct {
	Parent struct {
		URI string `json:"uri"`
	} `json:"parent"`
}

// BlueskyRecord is the authored content of a post.
type BlueskyRecord struct {
	Text      string           `json:"text"`
	CreatedAt time.Time        `json:"createdAt"`
	Reply     *BlueskyReplyRef `json:"reply,omitempty"`
}

// BlueskyImage is one embedded image.
type BlueskyImage struct {
	Thumb    string `json:"thumb,omitempty"`
	Fullsize string `json:"fullsize,omitempty"`
	Alt      string `json:"alt,omitempty"`
}

// BlueskyEmbed carries embedded media on a post.
type BlueskyEmbed struct {
	Images []BlueskyImage `json:"images,omitempty"`
}

// BlueskyPost is one post as returned in an author feed.
type BlueskyPost struct {
	URI         string        `json:"uri"`
	CID         string        `json:"cid"`
	Author      BlueskyAuthor `json:"author"`
	Record      BlueskyRecord `json:"record"`
	Embed       *BlueskyEmbed `json:"embed,omitempty"`
	ReplyCount  int           `json:"replyCount"`
	RepostCount int           `json:"repostCount"`
	LikeCount   int           `json:"likeCount"`
	IndexedAt   time.Time     `json:"indexedAt"`
}

// BlueskyReason explains why an item appears in the feed (e.g. repost).
type BlueskyReason struct {
	Type string        `json:"$type"`
	By   BlueskyAuthor `json:"by,omitempty"`
}

// BlueskyFeedItem pairs a post with its optional feed reason.
type BlueskyFeedItem struct {
	Post   BlueskyPost    `json:"post"`
	Reason *BlueskyReason `json:"reason,omitempty"`
}

// BlueskyPayload is the raw output of one bluesky fetch.
type BlueskyPayload struct {
	Feed      []BlueskyFeedItem `json:"feed"`
	Cursor    string            `json:"cursor,omitempty"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Platform implements Payload.
func (BlueskyPayload) Platform() platform.Platform { return platform.Bluesky }

// BlueskyProvider fetches the author's most recent feed items over XRPC.
type BlueskyProvider struct {
	BaseURL string
	Client  *http.Client
	Limit   int
	Now     func() time.Time
}

// NewBlueskyProvider returns a BlueskyProvider with production defaults.
func NewBlueskyProvider() *BlueskyProvider {
	return &BlueskyProvider{
		BaseURL: blueskyDefaultBaseURL,
		Limit:   blueskyFeedLimit,
		Now:     time.Now,
	}
}

// Platform implements Provider.
func (b *BlueskyProvider) Platform() platform.Platform { return platform.Bluesky }

// Fetch resolves the session's DID and retrieves the author feed.
func (b *BlueskyProvider) Fetch(ctx context.Context, token string) (Result, error) {
	client := httpClient(b.Client)
	base := b.BaseURL

	if base == "" {
		base = blueskyDefaultBaseURL
	}

	var session struct {
		DID    string `json:"did"`
		Handle string `json:"handle"`
	}

	resp, err := getJSON(ctx, client, base+"/xrpc/com.atproto.server.getSession",
		"Bearer "+token, nil, &session)
	if err != nil {
		return Result{}, classifyCommon(resp, err, b.now)
	}

	limit := b.Limit
	if limit <= 0 {
		limit = blueskyFeedLimit
	}

	feedURL := fmt.Sprintf("%s/xrpc/app.bsky.feed.getAuthorFeed?actor=%s&limit=%d",
		base, url.QueryEscape(session.DID), limit)

	var feed struct {
		Feed   []BlueskyFeedItem `json:"feed"`
		Cursor string            `json:"cursor"`
	}

	resp, err = getJSON(ctx, client, feedURL, "Bearer "+token, nil, &feed)
	if err != nil {
		return Result{}, classifyCommon(resp, err, b.now)
	}

	payload := BlueskyPayload{
		Feed:      feed.Feed,
		Cursor:    feed.Cursor,
		FetchedAt: b.now(),
	}

	return Result{Payload: payload, Headers: resp.Header}, nil
}

func (b *BlueskyProvider) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}

	return time.Now()
}

// classifyCommon is the default status mapping shared by adapters without
// platform-specific quirks: 429 is rate_limited, 401/403 auth_expired,
// anything else api_error. The caller's clock feeds the retry_after math.
func classifyCommon(resp *http.Response, err error, now func() time.Time) error {
	if err != errStatus { //nolint:errorlint // sentinel identity check.
		return err
	}

	body := readErrorBody(resp)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return RateLimited(retryAfterSeconds(resp.Header, now()))
	case http.StatusUnauthorized, http.StatusForbidden:
		return AuthExpired(body)
	default:
		return APIError(resp.StatusCode, body)
	}
}
