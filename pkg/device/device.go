// Package device describes the e-reader screens comicpress can target.
//
// A [Profile] carries the native resolution, the gray [Palette] the screen
// can display, whether the vendor reader supports panel-view zoom regions,
// and the output formats the device can open. Built-in Kobo and Kindle
// profiles live in a [Registry]; callers can add their own profiles (from a
// config file) or build an ad-hoc one with [Custom].
package device

import (
	"fmt"
	"slices"

	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/errors"
)

// Profile is an immutable description of a target device.
type Profile struct {
	ID        string
	Name      string
	Width     int
	Height    int
	Palette   Palette
	PanelView bool
	Formats   []comic.Format
}

// Supports reports whether the device can open the given format.
func (p Profile) Supports(f comic.Format) bool {
	return slices.Contains(p.Formats, f)
}

// DefaultFormat is the first (preferred) format of the device.
func (p Profile) DefaultFormat() comic.Format {
	if len(p.Formats) == 0 {
		return comic.FormatCBZ
	}
	return p.Formats[0]
}

// Resolution formats the screen size as WIDTHxHEIGHT.
func (p Profile) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// Validate checks that the profile can drive a conversion.
func (p Profile) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "device %q: resolution must be positive, got %s", p.ID, p.Resolution())
	}
	if len(p.Formats) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "device %q: no supported formats", p.ID)
	}
	for _, f := range p.Formats {
		if !comic.ValidFormats[f] {
			return errors.New(errors.ErrCodeInvalidFormat, "device %q: unknown format %q", p.ID, f)
		}
	}
	return nil
}

// CheckFormat returns an UNSUPPORTED_COMBINATION error when the device cannot
// open format f.
func (p Profile) CheckFormat(f comic.Format) error {
	if !p.Supports(f) {
		return errors.New(errors.ErrCodeUnsupported, "%s does not support %s (supported: %v)", p.Name, f, p.Formats)
	}
	return nil
}

// CustomID is the identifier of profiles built by [Custom].
const CustomID = "custom"

// Custom returns a profile for an arbitrary screen: no palette, no panel
// view and every format allowed.
func Custom(width, height int) Profile {
	return Profile{
		ID:      CustomID,
		Name:    fmt.Sprintf("Custom %dx%d", width, height),
		Width:   width,
		Height:  height,
		Formats: slices.Clone(comic.AllFormats),
	}
}
