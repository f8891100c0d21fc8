// Package panel turns source page images into screen-ready JPEG panels.
//
// A [Preparer] owns a private temporary workspace. Each call to
// [Preparer.Prepare] decodes one source image and runs the single-page
// pipeline, in this order:
//
//  1. Autocrop: trim margins of the detected background color.
//  2. Resize: fit to the device resolution (upscale, stretch or nothing).
//  3. Quantize: gray conversion and Floyd-Steinberg dithering into the
//     device palette.
//  4. Contrast: explicit multiplier or automatic histogram stretch.
//
// Spreads (pages wider than tall) are either rotated into one panel or cut
// into two halves ordered by reading direction. Prepared panels are written
// into the workspace and stay valid until [Preparer.CleanUp].
//
// Prepare is safe for concurrent use; every stage works on buffers owned by
// the calling goroutine.
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/comicpress/pkg/cache"
	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/errors"
	"github.com/matzehuels/comicpress/pkg/observability"
)

// jpegQuality is the encoder quality of prepared panels.
const jpegQuality = 90

// Split suffixes. The first half of a spread always sorts first.
const (
	firstSuffix  = "-A"
	secondSuffix = "-B"
)

// Source identifies one page to prepare.
type Source struct {
	// Path is the source image file.
	Path string
	// Group is the workspace subdirectory, one per chapter.
	Group string
	// Index is the page position in its chapter; it names the artifact.
	Index int
}

// Preparer prepares pages into a private workspace.
type Preparer struct {
	dir    string
	logger *log.Logger
	cache  cache.Cache
	keyer  cache.Keyer

	mu     sync.RWMutex
	closed bool
}

// Option configures a Preparer.
type Option func(*Preparer)

// WithLogger sets the logger used for per-page debug output.
func WithLogger(l *log.Logger) Option {
	return func(p *Preparer) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCache stores prepared panels in c, keyed by source content and
// options. A nil keyer selects cache.DefaultKeyer.
func WithCache(c cache.Cache, keyer cache.Keyer) Option {
	return func(p *Preparer) {
		p.cache = c
		p.keyer = keyer
		if p.keyer == nil {
			p.keyer = cache.NewDefaultKeyer()
		}
	}
}

// New creates a Preparer with a fresh temporary workspace.
func New(opts ...Option) (*Preparer, error) {
	dir, err := os.MkdirTemp("", "comicpress-panels-*")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create panel workspace")
	}
	p := &Preparer{
		dir:    dir,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Workspace returns the workspace root.
func (p *Preparer) Workspace() string {
	return p.dir
}

// CleanUp deletes the workspace. Paths returned by Prepare are invalid
// afterwards and further Prepare calls fail. Calling CleanUp again is a no-op.
func (p *Preparer) CleanUp() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := os.RemoveAll(p.dir); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "remove panel workspace")
	}
	return nil
}

// prepared is one encoded panel before it is written to the workspace.
type prepared struct {
	Suffix string    `json:"suffix"`
	Tag    comic.Tag `json:"tag"`
	JPEG   []byte    `json:"jpeg"`
}

// Prepare turns src into one panel, or two for a spread under the split
// policy, and returns them in reading order.
func (p *Preparer) Prepare(ctx context.Context, src Source, opts Options) ([]comic.Panel, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, errors.New(errors.ErrCodeInvalidState, "panel workspace already cleaned up")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	dir := filepath.Join(p.dir, groupDir(src.Group))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodePipeline, err, "create workspace for %s", src.Path)
	}

	key := p.cacheKey(src.Path, opts)
	pages, hit := p.lookup(ctx, key)
	if !hit {
		img, err := imaging.Open(src.Path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodePipeline, err, "decode %s", src.Path)
		}
		pages, err = render(img, opts)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodePipeline, err, "prepare %s", src.Path)
		}
		p.store(ctx, key, pages)
	}

	stem := fmt.Sprintf("%04d", src.Index+1)
	panels := make([]comic.Panel, 0, len(pages))
	for _, pg := range pages {
		path := filepath.Join(dir, stem+pg.Suffix+".jpg")
		if err := os.WriteFile(path, pg.JPEG, 0o644); err != nil {
			return nil, errors.Wrap(errors.ErrCodePipeline, err, "write panel for %s", src.Path)
		}
		panels = append(panels, comic.Panel{Path: path, Tag: pg.Tag})
	}

	p.logger.Debug("prepared page",
		"src", filepath.Base(src.Path),
		"panels", len(panels),
		"cached", hit,
		"duration", time.Since(start))
	return panels, nil
}

// render runs the spread policy and the single-page pipeline.
func render(img image.Image, opts Options) ([]prepared, error) {
	b := img.Bounds()
	if b.Dx() <= b.Dy() {
		data, err := encode(processPage(img, opts))
		if err != nil {
			return nil, err
		}
		return []prepared{{Tag: comic.TagNone, JPEG: data}}, nil
	}

	if opts.Split == SplitRotate {
		data, err := encode(processPage(imaging.Rotate90(img), opts))
		if err != nil {
			return nil, err
		}
		return []prepared{{Tag: comic.TagRotated, JPEG: data}}, nil
	}

	mid := b.Min.X + b.Dx()/2
	left := imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, mid, b.Max.Y))
	right := imaging.Crop(img, image.Rect(mid, b.Min.Y, b.Max.X, b.Max.Y))
	first, second := left, right
	if opts.Direction == comic.RightToLeft {
		first, second = right, left
	}

	half := opts
	half.Background = BackgroundNone
	firstData, err := encode(processPage(first, half))
	if err != nil {
		return nil, err
	}
	secondData, err := encode(processPage(second, half))
	if err != nil {
		return nil, err
	}
	return []prepared{
		{Suffix: firstSuffix, Tag: comic.TagFirstSplit, JPEG: firstData},
		{Suffix: secondSuffix, Tag: comic.TagSecondSplit, JPEG: secondData},
	}, nil
}

// processPage is the single-page pipeline.
func processPage(img image.Image, opts Options) *image.Gray {
	bg := DetectBackground(img)
	cropped := Autocrop(img, bg)

	var fitted image.Image = Resize(cropped, opts.Device.Width, opts.Device.Height, opts.Resize, opts.Background.fill(bg))
	if opts.Background == BackgroundNone {
		fitted = TrimBackground(fitted, bg)
	}

	g := Quantize(fitted, opts.Device.Palette, opts.Dither)
	if opts.Contrast.Auto {
		StretchContrast(g)
	} else {
		ApplyContrast(g, opts.Contrast.Value)
	}
	return g
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// Cache
// =============================================================================

func (p *Preparer) cacheKey(path string, opts Options) string {
	if p.cache == nil {
		return ""
	}
	h, err := cache.HashFile(path)
	if err != nil {
		return ""
	}
	return p.keyer.PanelKey(h, opts.KeyOpts())
}

func (p *Preparer) lookup(ctx context.Context, key string) ([]prepared, bool) {
	if key == "" {
		return nil, false
	}
	data, hit, err := p.cache.Get(ctx, key)
	if err != nil || !hit {
		if err != nil {
			p.logger.Warn("cache read failed", "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, "panel")
		return nil, false
	}
	var pages []prepared
	if err := json.Unmarshal(data, &pages); err != nil || len(pages) == 0 {
		observability.Cache().OnCacheMiss(ctx, "panel")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "panel")
	return pages, true
}

func (p *Preparer) store(ctx context.Context, key string, pages []prepared) {
	if key == "" {
		return
	}
	data, err := json.Marshal(pages)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, data, cache.TTLPanel); err != nil {
		p.logger.Warn("cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "panel", len(data))
}

// groupDir maps a group name to a single path element.
func groupDir(group string) string {
	if group == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, group)
}
