// Package timeline defines the normalized activity model shared by the
// normalizer, the assembler, and the stored timeline artifact, plus the
// assembler itself.
package timeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulseboard/pulseboard/internal/platform"
)

// ItemType discriminates the payload variant of a timeline item.
type ItemType string

// Item types.
const (
	TypeCommit      ItemType = "commit"
	TypePullRequest ItemType = "pull_request"
	TypePost        ItemType = "post"
	TypeVideo       ItemType = "video"
	TypeTask        ItemType = "task"
	TypeComment     ItemType = "comment"
)

// Payload is the tagged variant carried by an item; the concrete type always
// matches the item's Type.
type Payload interface {
	payloadType() ItemType
}

// CommitPayload is the commit variant.
type CommitPayload struct {
	Repo         string `json:"repo"`
	SHA          string `json:"sha"`
	Message      string `json:"message"`
	Branch       string `json:"branch"`
	Additions    int    `json:"additions,omitempty"`
	Deletions    int    `json:"deletions,omitempty"`
	FilesChanged int    `json:"files_changed,omitempty"`
}

func (CommitPayload) payloadType() ItemType { return TypeCommit }

// PRCommit is one commit attached to a pull request entry.
type PRCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// PullRequestPayload is the pull_request variant.
type PullRequestPayload struct {
	Repo           string     `json:"repo"`
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	State          string     `json:"state"`
	Action         string     `json:"action,omitempty"`
	HeadRef        string     `json:"head_ref,omitempty"`
	BaseRef        string     `json:"base_ref,omitempty"`
	CommitSHAs     []string   `json:"commit_shas,omitempty"`
	MergeCommitSHA string     `json:"merge_commit_sha,omitempty"`
	Commits        []PRCommit `json:"commits,omitempty"`
}

func (PullRequestPayload) payloadType() ItemType { return TypePullRequest }

// PostPayload is the post variant (microblogs).
type PostPayload struct {
	Content      string `json:"content"`
	AuthorHandle string `json:"author_handle,omitempty"`
	ReplyCount   int    `json:"reply_count"`
	RepostCount  int    `json:"repost_count"`
	LikeCount    int    `json:"like_count"`
	HasMedia     bool   `json:"has_media"`
	IsReply      bool   `json:"is_reply"`
	IsRepost     bool   `json:"is_repost"`
}

func (PostPayload) payloadType() ItemType { return TypePost }

// VideoPayload is the video variant.
type VideoPayload struct {
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	Description  string `json:"description,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

func (VideoPayload) payloadType() ItemType { return TypeVideo }

// TaskPayload is the task variant.
type TaskPayload struct {
	Status      string     `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	Project     string     `json:"project,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (TaskPayload) payloadType() ItemType { return TypeTask }

// CommentPayload is the comment variant (link aggregator).
type CommentPayload struct {
	Subreddit     string `json:"subreddit"`
	LinkTitle     string `json:"link_title,omitempty"`
	LinkPermalink string `json:"link_permalink,omitempty"`
	Score         int    `json:"score"`
	IsOP          bool   `json:"is_op"`
	ParentTitle   string `json:"parent_title,omitempty"`
	ParentURL     string `json:"parent_url,omitempty"`
}

func (CommentPayload) payloadType() ItemType { return TypeComment }

// Item is one normalized activity record.
type Item struct {
	ID        string            `json:"id"`
	Platform  platform.Platform `json:"platform"`
	Type      ItemType          `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Title     string            `json:"title"`
	URL       string            `json:"url,omitempty"`
	Payload   Payload           `json:"payload"`
}

// itemAlias avoids UnmarshalJSON recursion.
type itemAlias struct {
	ID        string            `json:"id"`
	Platform  platform.Platform `json:"platform"`
	Type      ItemType          `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Title     string            `json:"title"`
	URL       string            `json:"url,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
}

// UnmarshalJSON decodes the payload variant selected by the type
// discriminator.
func (it *Item) UnmarshalJSON(data []byte) error {
	var alias itemAlias

	err := json.Unmarshal(data, &alias)
	if err != nil {
		return err
	}

	it.ID = alias.ID
	it.Platform = alias.Platform
	it.Type = alias.Type
	it.Timestamp = alias.Timestamp
	it.Title = alias.Title
	it.URL = alias.URL

	if len(alias.Payload) == 0 {
		it.Payload = nil

		return nil
	}

	payload, err := decodePayload(alias.Type, alias.Payload)
	if err != nil {
		return err
	}

	it.Payload = payload

	return nil
}

func decodePayload(t ItemType, data json.RawMessage) (Payload, error) {
	switch t {
	case TypeCommit:
		return decodeAs[CommitPayload](data)
	case TypePullRequest:
		return decodeAs[PullRequestPayload](data)
	case TypePost:
		return decodeAs[PostPayload](data)
	case TypeVideo:
		return decodeAs[VideoPayload](data)
	case TypeTask:
		return decodeAs[TaskPayload](data)
	case TypeComment:
		return decodeAs[CommentPayload](data)
	default:
		return nil, fmt.Errorf("unknown item type %q", t)
	}
}

func decodeAs[T Payload](data json.RawMessage) (Payload, error) {
	var payload T

	err := json.Unmarshal(data, &payload)
	if err != nil {
		return nil, err
	}

	return payload, nil
}
