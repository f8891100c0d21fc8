package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/errors"
	"github.com/matzehuels/comicpress/pkg/observability"
	"github.com/matzehuels/comicpress/pkg/panel"
)

// ChapterSource is one chapter of the input before preparation.
type ChapterSource struct {
	// Title is the chapter title used inside the container.
	Title string
	// Dir is the directory the pages were read from.
	Dir string
	// Pages are the source images in natural order.
	Pages []string
}

// Layout is the discovered input.
type Layout struct {
	// Nested is true in directory mode.
	Nested   bool
	Chapters []ChapterSource
	// Skipped counts files that were not decodable images.
	Skipped int
}

// Cover returns the cover source: the first page of the first chapter.
// Chapters and pages are already in natural order.
func (l *Layout) Cover() string {
	for _, ch := range l.Chapters {
		if len(ch.Pages) > 0 {
			return ch.Pages[0]
		}
	}
	return ""
}

// PageCount returns the number of source pages.
func (l *Layout) PageCount() int {
	n := 0
	for _, ch := range l.Chapters {
		n += len(ch.Pages)
	}
	return n
}

// Discover walks input and groups its images into chapters. Any
// subdirectory switches to directory mode, where loose files at the top
// level are ignored and directories without images are dropped. Hidden
// entries are ignored in both modes. An input without a single image is an
// INVALID_INPUT error.
func Discover(ctx context.Context, input string, logger *log.Logger) (*Layout, error) {
	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read input %s", input)
	}

	d := &discoverer{logger: logger, hooks: observability.Pipeline()}
	layout := &Layout{}
	for _, e := range entries {
		if e.IsDir() && !hidden(e.Name()) {
			layout.Nested = true
			break
		}
	}

	if layout.Nested {
		var dirs []string
		for _, e := range entries {
			if !e.IsDir() || hidden(e.Name()) {
				if !e.IsDir() {
					logger.Debug("ignoring top-level file in directory mode", "file", e.Name())
				}
				continue
			}
			dirs = append(dirs, e.Name())
		}
		comic.SortNatural(dirs)
		width := comic.TitleWidth(dirs)
		for _, name := range dirs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			dir := filepath.Join(input, name)
			pages, err := d.images(ctx, dir)
			if err != nil {
				return nil, err
			}
			if len(pages) == 0 {
				logger.Warn("skipping chapter without images", "dir", name)
				continue
			}
			layout.Chapters = append(layout.Chapters, ChapterSource{
				Title: comic.NormalizeTitle(name, width),
				Dir:   dir,
				Pages: pages,
			})
		}
	} else {
		pages, err := d.images(ctx, input)
		if err != nil {
			return nil, err
		}
		if len(pages) > 0 {
			layout.Chapters = []ChapterSource{{
				Title: flatTitle(input),
				Dir:   input,
				Pages: pages,
			}}
		}
	}

	layout.Skipped = d.skipped
	if len(layout.Chapters) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no images found in %s", input)
	}
	if err := uniqueTitles(layout.Chapters); err != nil {
		return nil, err
	}
	return layout, nil
}

type discoverer struct {
	logger  *log.Logger
	hooks   observability.PipelineHooks
	skipped int
}

// images returns the decodable images directly inside dir in natural order.
func (d *discoverer) images(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", dir)
	}
	var pages []string
	for _, e := range entries {
		if e.IsDir() || hidden(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := panel.Sniff(path); err != nil {
			if !errors.Recoverable(err) {
				return nil, err
			}
			d.skipped++
			d.logger.Info("skipping file", "file", path, "reason", errors.UserMessage(err))
			d.hooks.OnPageSkipped(ctx, path, err)
			continue
		}
		pages = append(pages, path)
	}
	comic.SortPaths(pages)
	return pages, nil
}

// flatTitle names the single chapter of a flat input after its directory.
func flatTitle(input string) string {
	if abs, err := filepath.Abs(input); err == nil {
		input = abs
	}
	return filepath.Base(input)
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// uniqueTitles rejects inputs whose directory names normalize to the same
// title, such as "7" and "007".
func uniqueTitles(chapters []ChapterSource) error {
	seen := make(map[string]string, len(chapters))
	for _, ch := range chapters {
		if err := errors.ValidateTitle(ch.Title); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "chapter %s", filepath.Base(ch.Dir))
		}
		if prev, ok := seen[ch.Title]; ok {
			return errors.New(errors.ErrCodeInvalidInput, "chapters %s and %s both map to title %q",
				prev, filepath.Base(ch.Dir), ch.Title)
		}
		seen[ch.Title] = filepath.Base(ch.Dir)
	}
	return nil
}
