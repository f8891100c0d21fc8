package book

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/matzehuels/comicpress/pkg/archive"
	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/errors"
)

// archiveBuilder writes a CBZ: one folder per chapter, panels in order.
type archiveBuilder struct {
	cfg  Config
	work string

	lc     lifecycle
	titles []string
	seen   map[string]bool
}

func newArchiveBuilder(cfg Config) (*archiveBuilder, error) {
	work, err := os.MkdirTemp("", "comicpress-cbz-*")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create working tree")
	}
	return &archiveBuilder{cfg: cfg, work: work, seen: make(map[string]bool)}, nil
}

func (b *archiveBuilder) AddChapter(ctx context.Context, ch comic.Chapter) error {
	b.lc.mu.Lock()
	defer b.lc.mu.Unlock()
	if err := b.lc.accumulate(); err != nil {
		return err
	}
	if err := checkChapter(ch, b.seen); err != nil {
		return err
	}

	dir := filepath.Join(b.work, ch.Title)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeContainerWrite, err, "create chapter %q", ch.Title)
	}
	for _, p := range ch.Panels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(filepath.Join(dir, filepath.Base(p.Path)), p.Path); err != nil {
			return errors.Wrap(errors.ErrCodeContainerWrite, err, "copy panel %s", filepath.Base(p.Path))
		}
	}
	b.seen[ch.Title] = true
	b.titles = append(b.titles, ch.Title)

	b.cfg.Logger.Debug("added chapter", "format", comic.FormatCBZ, "chapter", ch.Title, "panels", len(ch.Panels))
	return nil
}

func (b *archiveBuilder) Build(ctx context.Context, _ *comic.Panel) (string, error) {
	b.lc.mu.Lock()
	defer b.lc.mu.Unlock()
	if err := b.lc.finalize(); err != nil {
		return "", err
	}
	defer b.removeWork()

	start := time.Now()
	titles := append([]string(nil), b.titles...)
	sort.Slice(titles, func(i, j int) bool { return comic.Less(titles[i], titles[j]) })

	w, err := archive.Create(b.cfg.Output)
	if err != nil {
		return "", err
	}
	for _, t := range titles {
		if err := ctx.Err(); err != nil {
			w.Abort()
			return "", err
		}
		if err := w.AddDir(t, filepath.Join(b.work, t)); err != nil {
			w.Abort()
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	b.cfg.Logger.Debug("built container", "format", comic.FormatCBZ, "chapters", len(titles), "duration", time.Since(start))
	return b.cfg.Output, nil
}

func (b *archiveBuilder) Close() error {
	b.lc.mu.Lock()
	defer b.lc.mu.Unlock()
	b.lc.closed = true
	return b.removeWork()
}

func (b *archiveBuilder) removeWork() error {
	if err := os.RemoveAll(b.work); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "remove working tree")
	}
	return nil
}
