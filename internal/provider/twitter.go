package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pulseboard/pulseboard/internal/platform"
)

// Twitter adapter constants.
const (
	twitterDefaultBaseURL = "https://api.twitter.com/2"
	twitterPageSize       = 100
)

// TwitterVerifiedType is the closed set of verification labels.
type TwitterVerifiedType string

// Verification labels.
const (
	TwitterVerifiedBlue       TwitterVerifiedType = "blue"
	TwitterVerifiedBusiness   TwitterVerifiedType = "business"
	TwitterVerifiedGovernment TwitterVerifiedType = "government"
	TwitterVerifiedNone       TwitterVerifiedType = "none"
)

// MapVerifiedType folds an arbitrary verified_type value into the closed set.
func MapVerifiedType(value string) TwitterVerifiedType {
	switch TwitterVerifiedType(value) {
	case TwitterVerifiedBlue, TwitterVerifiedBusiness, TwitterVerifiedGovernment:
		return TwitterVerifiedType(value)
	default:
		return TwitterVerifiedNone
	}
}

// TwitterMeta describes the authenticated account.
type TwitterMeta struct {
	UserID       string              `json:"user_id"`
	Username     string              `json:"username"`
	Name         string              `json:"name,omitempty"`
	VerifiedType TwitterVerifiedType `json:"verified_type"`
	FetchedAt    time.Time           `json:"fetched_at"`
}

// Tweet is one user-authored post.
type Tweet struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
	RetweetCount int       `json:"retweet_count"`
	ReplyCount   int       `json:"reply_count"`
	LikeCount    int       `json:"like_count"`
	QuoteCount   int       `json:"quote_count"`
}

// TwitterPayload is the raw output of one twitter fetch.
type TwitterPayload struct {
	Meta   TwitterMeta `json:"meta"`
	Tweets []Tweet     `json:"tweets"`
}

// Platform implements Payload.
func (TwitterPayload) Platform() platform.Platform { return platform.Twitter }

// TwitterProvider fetches a bounded page of user-authored posts.
type TwitterProvider struct {
	BaseURL  string
	Client   *http.Client
	PageSize int
	Now      func() time.Time
}

// NewTwitterProvider returns a TwitterProvider with production defaults.
func NewTwitterProvider() *TwitterProvider {
	return &TwitterProvider{
		BaseURL:  twitterDefaultBaseURL,
		PageSize: twitterPageSize,
		Now:      time.Now,
	}
}

// Platform implements Provider.
func (t *TwitterProvider) Platform() platform.Platform { return platform.Twitter }

// Fetch resolves the authenticated user, then retrieves one page of their
// most recent tweets with public metrics.
func (t *TwitterProvider) Fetch(ctx context.Context, token string) (Result, error) {
	client := httpClient(t.Client)
	base := t.BaseURL

	if base == "" {
		base = twitterDefaultBaseURL
	}

	var me struct {
		Data struct {
			ID           string `json:"id"`
			Username     string `json:"username"`
			Name         string `json:"name"`
			VerifiedType string `json:"verified_type"`
		} `json:"data"`
	}

	resp, err := getJSON(ctx, client, base+"/users/me?user.fields=verified_type",
		"Bearer "+token, nil, &me)
	if err != nil {
		return Result{}, classifyCommon(resp, err, t.now)
	}

	pageSize := t.PageSize
	if pageSize <= 0 || pageSize > twitterPageSize {
		pageSize = twitterPageSize
	}

	tweetsURL := fmt.Sprintf("%s/users/%s/tweets?max_results=%d&tweet.fields=created_at,public_metrics",
		base, url.PathEscape(me.Data.ID), pageSize)

	var page struct {
		Data []struct {
			ID            string    `json:"id"`
			Text          string    `json:"text"`
			CreatedAt     time.Time `json:"created_at"`
			PublicMetrics struct {
				RetweetCount int `json:"retweet_count"`
				ReplyCount   int `json:"reply_count"`
				LikeCount    int `json:"like_count"`
				QuoteCount   int `json:"quote_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}

	resp, err = getJSON(ctx, client, tweetsURL, "Bearer "+token, nil, &page)
	if err != nil {
		return Result{}, classifyCommon(resp, err, t.now)
	}

	payload := TwitterPayload{
		Meta: TwitterMeta{
			UserID:       me.Data.ID,
			Username:     me.Data.Username,
			Name:         me.Data.Name,
			VerifiedType: MapVerifiedType(me.Data.VerifiedType),
			FetchedAt:    t.now(),
		},
	}

	for _, tweet := range page.Data {
		payload.Tweets = append(payload.Tweets, Tweet{
			ID:           tweet.ID,
			Text:         tweet.Text,
			CreatedAt:    tweet.CreatedAt,
			RetweetCount: tweet.PublicMetrics.RetweetCount,
			ReplyCount:   tweet.PublicMetrics.ReplyCount,
			LikeCount:    tweet.PublicMetrics.LikeCount,
			QuoteCount:   tweet.PublicMetrics.QuoteCount,
		})
	}

	return Result{Payload: payload, Headers: resp.Header}, nil
}

func (t *TwitterProvider) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}

	return time.Now()
}
