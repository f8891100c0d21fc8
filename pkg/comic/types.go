package comic

import (
	"fmt"
	"strings"
)

// =============================================================================
// Panel
// =============================================================================

// Tag marks a panel produced by spread handling.
type Tag int

const (
	// TagNone is a plain page.
	TagNone Tag = iota
	// TagRotated is a spread rotated to fit a portrait screen.
	TagRotated
	// TagFirstSplit is the half of a split spread read first.
	TagFirstSplit
	// TagSecondSplit is the half of a split spread read second.
	TagSecondSplit
)

// String returns the tag name used in logs and cache entries.
func (t Tag) String() string {
	switch t {
	case TagRotated:
		return "rotated"
	case TagFirstSplit:
		return "first-split"
	case TagSecondSplit:
		return "second-split"
	default:
		return "none"
	}
}

// Panel is one prepared page image ready for packaging.
type Panel struct {
	// Path is the prepared JPEG inside the preparer's workspace.
	Path string
	// Tag is set only for panels derived from a spread.
	Tag Tag
}

// Chapter is an ordered run of panels under one title.
type Chapter struct {
	Title  string
	Panels []Panel
}

// =============================================================================
// Reading direction and page placement
// =============================================================================

// Direction is the reading direction of a book.
type Direction int

const (
	LeftToRight Direction = iota
	RightToLeft
)

// ParseDirection accepts "ltr" or "rtl" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ltr", "left-to-right":
		return LeftToRight, nil
	case "rtl", "right-to-left":
		return RightToLeft, nil
	}
	return LeftToRight, fmt.Errorf("invalid direction: %q (must be one of: ltr, rtl)", s)
}

// String returns the value used for page-progression-direction.
func (d Direction) String() string {
	if d == RightToLeft {
		return "rtl"
	}
	return "ltr"
}

// FirstSide is the side a spread opens on.
func (d Direction) FirstSide() Side {
	if d == RightToLeft {
		return SideRight
	}
	return SideLeft
}

// Side is the placement of a page within a two-page spread.
type Side int

const (
	SideLeft Side = iota
	SideRight
	SideCenter
)

// String returns the side as used in rendition:page-spread-* properties.
func (s Side) String() string {
	switch s {
	case SideRight:
		return "right"
	case SideCenter:
		return "center"
	default:
		return "left"
	}
}

// Opposite returns the other side of a spread. Center is its own opposite.
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return SideCenter
	}
}

// Orientation is the rendition orientation hint attached to a spine entry.
type Orientation int

const (
	OrientationAuto Orientation = iota
	OrientationPortrait
	OrientationLandscape
)

// String returns the orientation as used in rendition:orientation-* properties.
func (o Orientation) String() string {
	switch o {
	case OrientationPortrait:
		return "portrait"
	case OrientationLandscape:
		return "landscape"
	default:
		return "auto"
	}
}
