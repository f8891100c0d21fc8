package book

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/errors"
)

// epubVariant is a plain fixed-layout EPUB 3.
type epubVariant struct{}

func (epubVariant) format() comic.Format { return comic.FormatEPUB }
func (epubVariant) metadata(Config) []opfMeta { return nil }
func (epubVariant) css(Config) string { return "" }
func (epubVariant) regions(int, int, comic.Tag, Config) []region { return nil }
func (epubVariant) containerPath(cfg Config) string { return cfg.Output }
func (epubVariant) finish(_ context.Context, built string, _ Config) string { return built }

// kepubVariant is byte-for-byte an EPUB; Kobo readers select their
// renderer by the .kepub.epub file name.
type kepubVariant struct{ epubVariant }

func (kepubVariant) format() comic.Format { return comic.FormatKEPUB }

// nativeVariant targets Kindle readers: Kindle fixed-layout metadata,
// panel-view zoom regions, and a compile step to MOBI.
type nativeVariant struct {
	compiler Compiler
}

func (nativeVariant) format() comic.Format { return comic.FormatMOBI }

func (nativeVariant) metadata(cfg Config) []opfMeta {
	mode := "horizontal-lr"
	if cfg.Direction == comic.RightToLeft {
		mode = "horizontal-rl"
	}
	return []opfMeta{
		{Name: "fixed-layout", Content: "true"},
		{Name: "original-resolution", Content: cfg.Device.Resolution()},
		{Name: "book-type", Content: "comic"},
		{Name: "primary-writing-mode", Content: mode},
		{Name: "zero-gutter", Content: "true"},
		{Name: "zero-margin", Content: "true"},
		{Name: "ke-border-color", Content: "#FFFFFF"},
		{Name: "ke-border-width", Content: "0"},
	}
}

func (nativeVariant) css(cfg Config) string {
	if cfg.Device.PanelView {
		return panelViewCSS
	}
	return ""
}

func (nativeVariant) regions(width, height int, tag comic.Tag, cfg Config) []region {
	return panelRegions(width, height, tag, cfg.Direction, cfg.Device)
}

// containerPath is the intermediate EPUB handed to the compiler.
func (nativeVariant) containerPath(cfg Config) string {
	stem := strings.TrimSuffix(cfg.Output, filepath.Ext(cfg.Output))
	p := stem + comic.FormatEPUB.Extension()
	if p == cfg.Output {
		p = stem + ".kindle" + comic.FormatEPUB.Extension()
	}
	return p
}

// finish compiles the intermediate EPUB. A missing or failing compiler is
// not an error: the EPUB stays as the final output.
func (v nativeVariant) finish(ctx context.Context, built string, cfg Config) string {
	start := time.Now()
	compiled, err := v.compiler.Compile(ctx, built)
	if err != nil {
		cfg.Logger.Warn("native compiler unavailable, keeping EPUB",
			"path", built,
			"error", errors.UserMessage(err))
		return built
	}

	final := cfg.Output
	if compiled != final {
		if err := os.Rename(compiled, final); err != nil {
			cfg.Logger.Warn("could not move compiled book", "from", compiled, "to", final, "error", err)
			final = compiled
		}
	}
	if built != final {
		_ = os.Remove(built)
	}
	cfg.Logger.Debug("compiled native book", "path", final, "duration", time.Since(start))
	return final
}
