package book

import (
	"fmt"

	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/device"
)

// region is one panel-view zoom box on a page.
type region struct {
	ID      string
	Ordinal int
	Style   string
}

// box is a zoom box anchor; its placement style depends on the page size.
type box string

const (
	boxTop         box = "PV-T"
	boxBottom      box = "PV-B"
	boxLeft        box = "PV-L"
	boxRight       box = "PV-R"
	boxTopLeft     box = "PV-TL"
	boxTopRight    box = "PV-TR"
	boxBottomLeft  box = "PV-BL"
	boxBottomRight box = "PV-BR"
)

var (
	quadBoxes      = []box{boxTopLeft, boxTopRight, boxBottomLeft, boxBottomRight}
	topBottomBoxes = []box{boxTop, boxBottom}
	leftRightBoxes = []box{boxLeft, boxRight}
)

// style positions the zoomed copy of a width x height page inside the
// device screen, offsetting by half the resolution gap.
func (b box) style(width, height int, dev device.Profile) string {
	gapW := float64(dev.Width-width) / 2
	gapH := float64(dev.Height-height) / 2
	pctW := int(gapW / float64(dev.Width) * 100)
	pctH := int(gapH / float64(dev.Height) * 100)

	switch b {
	case boxTop:
		return fmt.Sprintf("position:absolute;top:0;left:%d%%;", pctW)
	case boxBottom:
		return fmt.Sprintf("position:absolute;bottom:0;left:%d%%;", pctW)
	case boxLeft:
		return fmt.Sprintf("position:absolute;left:0;top:%d%%;", pctH)
	case boxRight:
		return fmt.Sprintf("position:absolute;right:0;top:%d%%;", pctH)
	case boxTopLeft:
		return "position:absolute;left:0;top:0;"
	case boxTopRight:
		return "position:absolute;right:0;top:0;"
	case boxBottomLeft:
		return "position:absolute;left:0;bottom:0;"
	default:
		return "position:absolute;right:0;bottom:0;"
	}
}

// differs reports whether got deviates from native by more than 1%.
func differs(got, native int) bool {
	d := got - native
	if d < 0 {
		d = -d
	}
	return d*100 > native
}

// panelRegions returns the zoom regions of a width x height page, or nil
// when the device has no panel view or the page matches its resolution.
// A page whose width matches the device but whose height does not gets the
// top/bottom pair; a matching height with a differing width gets left/right.
func panelRegions(width, height int, tag comic.Tag, dir comic.Direction, dev device.Profile) []region {
	if !dev.PanelView || dev.Width <= 0 || dev.Height <= 0 {
		return nil
	}
	wide, tall := differs(width, dev.Width), differs(height, dev.Height)
	rotated := tag == comic.TagRotated
	rtl := dir == comic.RightToLeft

	var boxes []box
	var order []int
	switch {
	case wide && tall:
		boxes = quadBoxes
		switch {
		case rotated && rtl:
			order = []int{1, 3, 2, 4}
		case rotated:
			order = []int{2, 4, 1, 3}
		case rtl:
			order = []int{2, 1, 4, 3}
		default:
			order = []int{1, 2, 3, 4}
		}
	case tall:
		boxes = topBottomBoxes
		order = []int{1, 2}
		if rotated && !rtl {
			order = []int{2, 1}
		}
	case wide:
		boxes = leftRightBoxes
		order = []int{1, 2}
		if !rotated && rtl {
			order = []int{2, 1}
		}
	default:
		return nil
	}

	out := make([]region, len(boxes))
	for i, b := range boxes {
		out[i] = region{ID: string(b), Ordinal: order[i], Style: b.style(width, height, dev)}
	}
	return out
}

// panelViewCSS styles the zoom boxes and hides their magnified copies.
const panelViewCSS = `#PV {
position: absolute;
width: 100%;
height: 100%;
top: 0;
left: 0;
}
#PV-T {
top: 0;
width: 100%;
height: 50%;
}
#PV-B {
bottom: 0;
width: 100%;
height: 50%;
}
#PV-L {
left: 0;
width: 49.5%;
height: 100%;
float: left;
}
#PV-R {
right: 0;
width: 49.5%;
height: 100%;
float: right;
}
#PV-TL {
top: 0;
left: 0;
width: 49.5%;
height: 50%;
float: left;
}
#PV-TR {
top: 0;
right: 0;
width: 49.5%;
height: 50%;
float: right;
}
#PV-BL {
bottom: 0;
left: 0;
width: 49.5%;
height: 50%;
float: left;
}
#PV-BR {
bottom: 0;
right: 0;
width: 49.5%;
height: 50%;
float: right;
}
.PV-P {
width: 100%;
height: 100%;
top: 0;
position: absolute;
display: none;
}
`
