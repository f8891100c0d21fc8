// Package pipeline drives a complete comic conversion.
//
// A run walks the input directory, prepares every page for the target
// device, groups the prepared panels into chapters and hands them to the
// assembler for the selected output format. The same Options type backs the
// CLI flags, the config file defaults and the tests, so every entry point
// validates and defaults in one place.
//
// # Input layout
//
// An input directory with at least one subdirectory is in directory mode:
// every subdirectory holding images becomes a chapter titled after its
// normalized name. Otherwise the input is in flat mode and becomes a single
// chapter titled after the directory itself. Files that are not decodable
// images are skipped.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:  "One Piece",
//	    Device: profile,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Output)
package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/comicpress/pkg/book"
	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/device"
	"github.com/matzehuels/comicpress/pkg/errors"
	"github.com/matzehuels/comicpress/pkg/panel"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Config
// =============================================================================

const (
	// DefaultBackground pads with the detected page color.
	DefaultBackground = panel.BackgroundNone

	// DefaultResize fits pages uniformly, enlarging small ones.
	DefaultResize = panel.ResizeUpscale

	// DefaultSplit cuts spreads into two pages.
	DefaultSplit = panel.SplitHalves

	// DefaultDirection is the reading direction of western comics.
	DefaultDirection = comic.LeftToRight
)

// DefaultWorkers is the number of pages prepared concurrently.
var DefaultWorkers = runtime.NumCPU()

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options contains all configuration for one conversion.
type Options struct {
	// Input is the source directory.
	Input string `json:"input"`

	// Output is the container path. Empty derives <parent>/<input name><ext>.
	Output string `json:"output,omitempty"`

	// Format defaults to the device's preferred format.
	Format comic.Format `json:"format,omitempty"`

	// Title defaults to the output file name without its extension.
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`

	Device     device.Profile    `json:"device"`
	Direction  comic.Direction   `json:"direction"`
	Background panel.Background  `json:"background"`
	Resize     panel.ResizeMode  `json:"resize"`
	Split      panel.SplitPolicy `json:"split"`
	Contrast   panel.Contrast    `json:"contrast"`
	Dither     panel.DitherScan  `json:"dither"`

	// Workers bounds concurrent page preparation. Zero selects DefaultWorkers.
	Workers int `json:"workers,omitempty"`

	// Sync prepares pages one at a time in source order.
	Sync bool `json:"sync,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger   `json:"-"`
	Compiler book.Compiler `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result describes a finished conversion.
type Result struct {
	// Output is the path of the written container.
	Output string

	// Format is the container format.
	Format comic.Format

	// Chapters lists what was assembled, in book order.
	Chapters []ChapterSummary

	// Cover is the base name of the source image used as cover.
	Cover string

	// Stats contains timing and size information.
	Stats Stats
}

// ChapterSummary records the panels of one assembled chapter.
type ChapterSummary struct {
	Title  string
	Panels []string
	Tags   []comic.Tag
}

// Stats contains run statistics.
type Stats struct {
	Chapters    int
	Pages       int
	Panels      int
	Skipped     int
	PrepareTime time.Duration
	BuildTime   time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// Calling it more than once has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateInput(); err != nil {
		return err
	}
	if err := o.ValidateDevice(); err != nil {
		return err
	}
	o.SetOutputDefaults()
	o.SetPanelDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ValidateInput checks that the input is an existing directory.
func (o *Options) ValidateInput() error {
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input directory is required")
	}
	info, err := os.Stat(o.Input)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "input %s", o.Input)
	}
	if !info.IsDir() {
		return errors.New(errors.ErrCodeInvalidInput, "input %s is not a directory", o.Input)
	}
	return nil
}

// ValidateDevice checks the device profile and the format it must produce.
// An empty format selects the device's preferred one.
func (o *Options) ValidateDevice() error {
	if o.Device.ID == "" && o.Device.Width == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "device is required")
	}
	if err := o.Device.Validate(); err != nil {
		return err
	}
	if o.Format == "" {
		o.Format = o.Device.DefaultFormat()
	}
	if !comic.ValidFormats[o.Format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q", o.Format)
	}
	return o.Device.CheckFormat(o.Format)
}

// SetOutputDefaults derives the output path and book metadata.
func (o *Options) SetOutputDefaults() {
	if o.Output == "" {
		input := filepath.Clean(o.Input)
		if abs, err := filepath.Abs(input); err == nil {
			input = abs
		}
		o.Output = filepath.Join(filepath.Dir(input), filepath.Base(input)+o.Format.Extension())
	}
	if o.Title == "" {
		o.Title = comic.TitleFromOutput(o.Output)
	}
	if o.Author == "" {
		o.Author = book.DefaultAuthor
	}
}

// SetPanelDefaults fills unset page preparation settings.
func (o *Options) SetPanelDefaults() {
	if !o.Contrast.Auto && o.Contrast.Value == 0 {
		o.Contrast = panel.AutoContrast
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Sync {
		o.Workers = 1
	}
}

// PanelOptions returns the page preparation settings of the run.
func (o *Options) PanelOptions() panel.Options {
	return panel.Options{
		Device:     o.Device,
		Direction:  o.Direction,
		Background: o.Background,
		Resize:     o.Resize,
		Split:      o.Split,
		Contrast:   o.Contrast,
		Dither:     o.Dither,
	}
}

// BookConfig returns the assembler configuration of the run.
func (o *Options) BookConfig() book.Config {
	return book.Config{
		Output:    o.Output,
		Title:     o.Title,
		Author:    o.Author,
		Direction: o.Direction,
		Device:    o.Device,
		Logger:    o.Logger,
		Compiler:  o.Compiler,
	}
}
