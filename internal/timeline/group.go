package timeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntryTypeCommitGroup is the discriminator value marking a commit group
// entry; item entries carry their item type instead.
const EntryTypeCommitGroup = "commit_group"

// DateKeyLayout renders a timestamp's UTC calendar date as a grouping key.
const DateKeyLayout = "2006-01-02"

// DateKey extracts the YYYY-MM-DD grouping key of a timestamp.
func DateKey(ts time.Time) string {
	return ts.UTC().Format(DateKeyLayout)
}

// CommitGroup bundles orphan commits sharing (repo, branch, calendar date).
// It is a peer of Item in a date group's entries, not an item itself.
type CommitGroup struct {
	Type              string `json:"type"`
	Repo              string `json:"repo"`
	Branch            string `json:"branch"`
	Date              string `json:"date"`
	Commits           []Item `json:"commits"`
	TotalAdditions    int    `json:"total_additions"`
	TotalDeletions    int    `json:"total_deletions"`
	TotalFilesChanged int    `json:"total_files_changed"`
}

// Entry is either a timeline item or a commit group. Exactly one side is
// non-nil.
type Entry struct {
	Item  *Item
	Group *CommitGroup
}

// ItemEntry wraps an item as an entry.
func ItemEntry(item Item) Entry {
	return Entry{Item: &item}
}

// GroupEntry wraps a commit group as an entry.
func GroupEntry(group CommitGroup) Entry {
	return Entry{Group: &group}
}

// SortTimestamp is the instant used to order entries within a date group:
// the item's timestamp, or the newest commit of a group.
func (e Entry) SortTimestamp() time.Time {
	if e.Item != nil {
		return e.Item.Timestamp
	}

	if e.Group != nil && len(e.Group.Commits) > 0 {
		return e.Group.Commits[0].Timestamp
	}

	return time.Time{}
}

// MarshalJSON emits the wrapped variant directly; the type field
// discriminates on the wire.
func (e Entry) MarshalJSON() ([]byte, error) {
	switch {
	case e.Item != nil:
		return json.Marshal(e.Item)
	case e.Group != nil:
		return json.Marshal(e.Group)
	default:
		return nil, fmt.Errorf("empty timeline entry")
	}
}

// UnmarshalJSON dispatches on the type discriminator.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type string `json:"type"`
	}

	err := json.Unmarshal(data, &probe)
	if err != nil {
		return err
	}

	if probe.Type == EntryTypeCommitGroup {
		var group CommitGroup

		err := json.Unmarshal(data, &group)
		if err != nil {
			return err
		}

		e.Group = &group
		e.Item = nil

		return nil
	}

	var item Item

	err = json.Unmarshal(data, &item)
	if err != nil {
		return err
	}

	e.Item = &item
	e.Group = nil

	return nil
}

// DateGroup is one calendar date's entries, newest first.
type DateGroup struct {
	Date  string  `json:"date"`
	Items []Entry `json:"items"`
}

// Artifact is the stored timeline document for one user.
type Artifact struct {
	UserID      string      `json:"user_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Groups      []DateGroup `json:"groups"`
}
