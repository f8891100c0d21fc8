package book

import "github.com/matzehuels/comicpress/pkg/comic"

// Placement is the resolved spread position of one spine entry.
type Placement struct {
	Side        comic.Side
	Orientation comic.Orientation
}

// Properties formats the placement as spine itemref properties.
func (p Placement) Properties() string {
	return "rendition:page-spread-" + p.Side.String() + " rendition:orientation-" + p.Orientation.String()
}

// Paginate assigns a spread side and orientation hint to every panel of one
// chapter, given the panels' tags in reading order.
//
// Plain pages alternate sides starting on the direction's first side. A
// rotated spread is centered, split halves are pinned to the first and
// opposite side; every tagged page restarts the alternation at the first
// side. Collisions are then resolved by centering the earlier page of the
// pair, and a trailing page on the opening side is centered.
func Paginate(tags []comic.Tag, dir comic.Direction) []Placement {
	first := dir.FirstSide()
	out := make([]Placement, len(tags))

	running := first
	for i, tag := range tags {
		switch tag {
		case comic.TagRotated:
			out[i] = Placement{Side: comic.SideCenter, Orientation: comic.OrientationPortrait}
			running = first
		case comic.TagFirstSplit:
			out[i] = Placement{Side: first, Orientation: comic.OrientationLandscape}
			running = first
		case comic.TagSecondSplit:
			out[i] = Placement{Side: first.Opposite(), Orientation: comic.OrientationLandscape}
			running = first
		default:
			out[i] = Placement{Side: running, Orientation: comic.OrientationAuto}
			running = running.Opposite()
		}
	}

	for i := 1; i < len(out); i++ {
		prev := &out[i-1]
		if out[i].Side == comic.SideCenter && prev.Side == first {
			prev.Side = comic.SideCenter
		}
		if out[i].Side == prev.Side {
			prev.Side = comic.SideCenter
		}
	}

	if n := len(out); n > 0 && out[n-1].Side == first {
		out[n-1].Side = comic.SideCenter
	}
	return out
}
