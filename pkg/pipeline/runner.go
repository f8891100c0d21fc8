package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/comicpress/pkg/book"
	"github.com/matzehuels/comicpress/pkg/cache"
	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/observability"
	"github.com/matzehuels/comicpress/pkg/panel"
)

// coverGroup is the workspace directory of the prepared cover. Hidden
// directories never become chapters.
const coverGroup = ".cover"

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger; it doesn't
// store run results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute converts opts.Input into one container.
//
// Any page failure aborts the run. The panel workspace and the assembler's
// working tree are removed on every path. Containers are written to a
// temporary file first, so a failed run never leaves a partial output.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger

	layout, err := Discover(ctx, opts.Input, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("discovered input",
		"chapters", len(layout.Chapters),
		"pages", layout.PageCount(),
		"skipped", layout.Skipped,
		"nested", layout.Nested)

	return r.Build(ctx, layout, opts)
}

// Build prepares and assembles an already discovered layout.
func (r *Runner) Build(ctx context.Context, layout *Layout, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger

	prep, err := panel.New(r.preparerOptions(logger)...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := prep.CleanUp(); cerr != nil {
			logger.Warn("failed to remove panel workspace", "dir", prep.Workspace(), "error", cerr)
		}
	}()

	asm, err := book.New(opts.Format, opts.BookConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := asm.Close(); cerr != nil {
			logger.Warn("failed to remove book workspace", "error", cerr)
		}
	}()

	if opts.Direction == comic.RightToLeft && !opts.Format.Paginated() {
		logger.Debug("archive formats carry no reading direction; only split halves are reordered", "format", opts.Format)
	}

	result := &Result{Format: opts.Format}
	result.Stats.Skipped = layout.Skipped

	prepareStart := time.Now()
	for _, src := range layout.Chapters {
		ch, err := r.prepareChapter(ctx, prep, src, opts)
		if err != nil {
			return nil, fmt.Errorf("chapter %s: %w", src.Title, err)
		}
		if len(ch.Panels) == 0 {
			logger.Warn("skipping empty chapter", "chapter", src.Title)
			continue
		}
		if err := asm.AddChapter(ctx, ch); err != nil {
			return nil, err
		}
		result.Chapters = append(result.Chapters, summarize(ch))
		result.Stats.Chapters++
		result.Stats.Pages += len(src.Pages)
		result.Stats.Panels += len(ch.Panels)
	}

	cover, err := r.prepareCover(ctx, prep, layout.Cover(), opts)
	if err != nil {
		return nil, fmt.Errorf("cover: %w", err)
	}
	if cover != nil {
		result.Cover = filepath.Base(layout.Cover())
	}
	result.Stats.PrepareTime = time.Since(prepareStart)

	logger.Info("prepared pages",
		"chapters", result.Stats.Chapters,
		"panels", result.Stats.Panels,
		"duration", result.Stats.PrepareTime)

	hooks := observability.Pipeline()
	buildStart := time.Now()
	hooks.OnBuildStart(ctx, string(opts.Format), opts.Output)
	out, err := asm.Build(ctx, cover)
	result.Stats.BuildTime = time.Since(buildStart)
	hooks.OnBuildComplete(ctx, string(opts.Format), out, result.Stats.BuildTime, err)
	if err != nil {
		return nil, err
	}
	result.Output = out

	logger.Info("built container",
		"format", opts.Format,
		"output", out,
		"duration", result.Stats.BuildTime)

	return result, nil
}

// prepareChapter prepares the pages of one chapter with at most
// opts.Workers running at once. Panels keep source page order regardless of
// completion order.
func (r *Runner) prepareChapter(ctx context.Context, prep *panel.Preparer, src ChapterSource, opts Options) (comic.Chapter, error) {
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnChapterStart(ctx, src.Title, len(src.Pages))

	popts := opts.PanelOptions()
	results := make([][]comic.Panel, len(src.Pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, path := range src.Pages {
		i, path := i, path
		g.Go(func() error {
			pageStart := time.Now()
			panels, err := prep.Prepare(gctx, panel.Source{Path: path, Group: src.Title, Index: i}, popts)
			hooks.OnPageComplete(gctx, path, len(panels), time.Since(pageStart), err)
			if err != nil {
				return err
			}
			results[i] = panels
			return nil
		})
	}
	err := g.Wait()

	ch := comic.Chapter{Title: src.Title}
	if err == nil {
		for _, panels := range results {
			ch.Panels = append(ch.Panels, panels...)
		}
	}
	hooks.OnChapterComplete(ctx, src.Title, len(ch.Panels), time.Since(start), err)
	return ch, err
}

// prepareCover re-prepares the cover source as a single full page,
// rotating it if it is a spread.
func (r *Runner) prepareCover(ctx context.Context, prep *panel.Preparer, path string, opts Options) (*comic.Panel, error) {
	if path == "" {
		return nil, nil
	}
	popts := opts.PanelOptions()
	popts.Split = panel.SplitRotate
	panels, err := prep.Prepare(ctx, panel.Source{Path: path, Group: coverGroup}, popts)
	if err != nil {
		return nil, err
	}
	if len(panels) == 0 {
		return nil, nil
	}
	return &panels[0], nil
}

func (r *Runner) preparerOptions(logger *log.Logger) []panel.Option {
	opts := []panel.Option{panel.WithLogger(logger)}
	if _, disabled := r.Cache.(*cache.NullCache); !disabled {
		opts = append(opts, panel.WithCache(r.Cache, r.Keyer))
	}
	return opts
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func summarize(ch comic.Chapter) ChapterSummary {
	s := ChapterSummary{Title: ch.Title}
	for _, p := range ch.Panels {
		s.Panels = append(s.Panels, filepath.Base(p.Path))
		s.Tags = append(s.Tags, p.Tag)
	}
	return s
}
