// Package platform defines the platform identifiers known to the engine and
// the canonical store-id grammar of the versioned object store.
package platform

// Platform identifies a third-party activity source.
type Platform string

// Supported platforms.
const (
	GitHub  Platform = "github"
	Bluesky Platform = "bluesky"
	YouTube Platform = "youtube"
	Dayplan Platform = "dayplan"
	Reddit  Platform = "reddit"
	Twitter Platform = "twitter"
)

// All lists every supported platform.
var All = []Platform{GitHub, Bluesky, YouTube, Dayplan, Reddit, Twitter}

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	switch p {
	case GitHub, Bluesky, YouTube, Dayplan, Reddit, Twitter:
		return true
	default:
		return false
	}
}

// MultiStore reports whether the platform persists merged sub-stores
// (meta plus keyed collections) in addition to its raw snapshot.
func (p Platform) MultiStore() bool {
	switch p {
	case GitHub, Reddit, Twitter:
		return true
	default:
		return false
	}
}

func (p Platform) String() string {
	return string(p)
}
