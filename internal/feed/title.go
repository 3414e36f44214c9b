package feed

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// "[2916x3839]", "(4000 × 3000)", "[1920X1080]"
	dimensionsPattern = regexp.MustCompile(`(\[|\()([0-9]{3,})\s*(x|×|X)\s*([0-9]{3,})(\]|\))`)
	// "[OC]", "(OC)"
	ocPattern = regexp.MustCompile(`(\[|\()OC(\]|\))`)
)

// TitleMetadata is what a post title says beyond its text.
// Width, Height and IsOriginalContent are nil when the title carries no
// resolution tag.
type TitleMetadata struct {
	Title             string
	Width             *int
	Height            *int
	IsOriginalContent *bool
}

// ParseTitle strips the resolution and [OC] tags from a post title.
//
//	"Coyote Buttes, Utah [OC] [2916x3839]"
//	→ {Title: "Coyote Buttes, Utah", Width: 2916, Height: 3839, IsOriginalContent: true}
//
// Titles without a recognizable resolution are returned unchanged; an [OC]
// marker alone is not enough to touch them.
func ParseTitle(raw string) TitleMetadata {
	m := dimensionsPattern.FindStringSubmatch(raw)
	if m == nil {
		return TitleMetadata{Title: raw}
	}

	// The pattern only matches 3+ digits, so Atoi can only fail on overflow.
	width, errW := strconv.Atoi(m[2])
	height, errH := strconv.Atoi(m[4])
	if errW != nil || errH != nil {
		return TitleMetadata{Title: raw}
	}

	title := dimensionsPattern.ReplaceAllString(raw, "")
	title = strings.TrimSpace(ocPattern.ReplaceAllString(title, ""))
	oc := ocPattern.MatchString(raw)

	return TitleMetadata{
		Title:             title,
		Width:             &width,
		Height:            &height,
		IsOriginalContent: &oc,
	}
}
