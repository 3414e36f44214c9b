package model

// Section is a titled, ordered column of links on a user's board.
//
// Rank orders a user's sections. Reorders rewrite ranks to 0..N-1, but ranks
// are not guaranteed contiguous at rest: a partial reorder can leave gaps or
// duplicates among the sections it did not mention.
type Section struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID int64  `json:"-"` // owner; never exposed, never taken from input
	Rank   int    `json:"rank"`
}

// LinkType tells a plain bookmark from a group of bookmarks.
type LinkType string

const (
	LinkTypeSingle LinkType = "SINGLE"
	LinkTypeGroup  LinkType = "GROUP"
)

// Link is a bookmark inside a section.
//
// LINK GROUPS:
// A GROUP link is a folder-like entry with a favicon and no URL. SINGLE links
// point at it through LinkGroupID. Groups and their children always share a
// section: moving a group moves its children, deleting a group deletes them.
//
// Ownership is never stored on the link. A link belongs to whoever owns its
// section, so every ownership check joins links to sections.
type Link struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	URL         *string  `json:"url"`
	Favicon     *string  `json:"favicon"`
	SectionID   int64    `json:"sectionId"`
	Rank        int      `json:"rank"`
	Type        LinkType `json:"type"`
	LinkGroupID *int64   `json:"linkGroupId"`
}

// BoardBackgroundType selects how the board background is rendered.
type BoardBackgroundType string

const (
	BackgroundColor     BoardBackgroundType = "COLOR"
	BackgroundImage     BoardBackgroundType = "IMAGE"
	BackgroundEarthPorn BoardBackgroundType = "EARTHPORN"
)

// BoardBackground is a colour, an image URL, or an image from the feed.
type BoardBackground struct {
	Type  BoardBackgroundType `json:"type"`
	Value string              `json:"value"`
}

// BoardSettings groups per-user board preferences.
type BoardSettings struct {
	Background BoardBackground `json:"background"`
}

// EarthPornImage is one entry of the landscape image feed.
//
// Width, Height and IsOriginalContent are parsed from the post title and stay
// nil when the title carries no resolution tag.
type EarthPornImage struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	Title             string `json:"title"`
	ThumbnailURL      string `json:"thumbnailUrl"`
	Width             *int   `json:"width"`
	Height            *int   `json:"height"`
	IsOriginalContent *bool  `json:"isOriginalContent"`
}
