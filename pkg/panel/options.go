package panel

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/matzehuels/comicpress/pkg/cache"
	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/device"
)

// pipelineVersion is folded into cache keys; bump it when the image
// pipeline changes output for identical options.
const pipelineVersion = 1

// =============================================================================
// Policies
// =============================================================================

// Background selects the fill color used when a page is padded.
type Background int

const (
	// BackgroundNone pads with the detected page color and trims the padding
	// again after resizing.
	BackgroundNone Background = iota
	BackgroundWhite
	BackgroundBlack
)

// ParseBackground accepts none, white or black.
func ParseBackground(s string) (Background, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "auto":
		return BackgroundNone, nil
	case "white":
		return BackgroundWhite, nil
	case "black":
		return BackgroundBlack, nil
	}
	return BackgroundNone, fmt.Errorf("invalid background: %q (must be one of: none, white, black)", s)
}

func (b Background) String() string {
	switch b {
	case BackgroundWhite:
		return "white"
	case BackgroundBlack:
		return "black"
	default:
		return "none"
	}
}

// fill returns the padding color; detected is used for BackgroundNone.
func (b Background) fill(detected color.Gray) color.Gray {
	switch b {
	case BackgroundWhite:
		return color.Gray{Y: 0xff}
	case BackgroundBlack:
		return color.Gray{Y: 0x00}
	default:
		return detected
	}
}

// ResizeMode selects how a page is fitted to the screen.
type ResizeMode int

const (
	// ResizeUpscale scales uniformly to fit, enlarging small pages.
	ResizeUpscale ResizeMode = iota
	// ResizeStretch scales non-uniformly to fill the screen exactly.
	ResizeStretch
	// ResizeNothing only shrinks pages larger than the screen in both axes.
	ResizeNothing
)

// ParseResizeMode accepts upscale, stretch or nothing.
func ParseResizeMode(s string) (ResizeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upscale":
		return ResizeUpscale, nil
	case "stretch":
		return ResizeStretch, nil
	case "nothing", "none":
		return ResizeNothing, nil
	}
	return ResizeUpscale, fmt.Errorf("invalid resize mode: %q (must be one of: upscale, stretch, nothing)", s)
}

func (m ResizeMode) String() string {
	switch m {
	case ResizeStretch:
		return "stretch"
	case ResizeNothing:
		return "nothing"
	default:
		return "upscale"
	}
}

// SplitPolicy selects how spreads (pages wider than tall) are handled.
type SplitPolicy int

const (
	// SplitHalves cuts a spread into two pages.
	SplitHalves SplitPolicy = iota
	// SplitRotate turns a spread sideways to fill a portrait screen.
	SplitRotate
)

// ParseSplitPolicy accepts split or rotate.
func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "split":
		return SplitHalves, nil
	case "rotate":
		return SplitRotate, nil
	}
	return SplitHalves, fmt.Errorf("invalid split mode: %q (must be one of: split, rotate)", s)
}

func (s SplitPolicy) String() string {
	if s == SplitRotate {
		return "rotate"
	}
	return "split"
}

// DitherScan is the pixel traversal order of error diffusion.
type DitherScan int

const (
	// DitherForward is classic top-left to bottom-right Floyd-Steinberg.
	DitherForward DitherScan = iota
	// DitherReverse walks bottom-right to top-left while still diffusing
	// error to the right and downward, reproducing legacy output.
	DitherReverse
)

// ParseDitherScan accepts forward or reverse.
func ParseDitherScan(s string) (DitherScan, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward":
		return DitherForward, nil
	case "reverse":
		return DitherReverse, nil
	}
	return DitherForward, fmt.Errorf("invalid dither scan: %q (must be one of: forward, reverse)", s)
}

func (d DitherScan) String() string {
	if d == DitherReverse {
		return "reverse"
	}
	return "forward"
}

// Contrast is either an explicit multiplier or automatic histogram stretch.
type Contrast struct {
	Auto  bool
	Value float64
}

// AutoContrast stretches each page's gray range to [0, 255].
var AutoContrast = Contrast{Auto: true}

// ParseContrast accepts "auto" or a positive number.
func ParseContrast(s string) (Contrast, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "auto" {
		return AutoContrast, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return Contrast{}, fmt.Errorf("invalid contrast: %q (must be auto or a positive number)", s)
	}
	return Contrast{Value: v}, nil
}

func (c Contrast) String() string {
	if c.Auto {
		return "auto"
	}
	return strconv.FormatFloat(c.Value, 'g', -1, 64)
}

// =============================================================================
// Options
// =============================================================================

// Options controls how a page is prepared. It is passed by value and never
// mutated by the preparer.
type Options struct {
	Device     device.Profile
	Direction  comic.Direction
	Background Background
	Resize     ResizeMode
	Split      SplitPolicy
	Contrast   Contrast
	Dither     DitherScan
}

// KeyOpts returns the cache key options for these settings.
func (o Options) KeyOpts() cache.PanelKeyOpts {
	return cache.PanelKeyOpts{
		Width:      o.Device.Width,
		Height:     o.Device.Height,
		Palette:    o.Device.Palette,
		Direction:  o.Direction.String(),
		Background: o.Background.String(),
		Resize:     o.Resize.String(),
		Split:      o.Split.String(),
		Contrast:   o.Contrast.Value,
		Auto:       o.Contrast.Auto,
		Dither:     o.Dither.String(),
		Version:    pipelineVersion,
	}
}
