package cli

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/comicpress/pkg/observability"
)

// progressHooks reports conversion progress through the logger and shows a
// spinner while the container is written.
type progressHooks struct {
	logger *log.Logger
	w      io.Writer

	pages atomic.Int64

	mu      sync.Mutex
	spinner *Spinner
}

func newProgressHooks(logger *log.Logger, w io.Writer) *progressHooks {
	return &progressHooks{logger: logger, w: w}
}

func (h *progressHooks) OnPageComplete(_ context.Context, src string, panels int, d time.Duration, err error) {
	if err != nil {
		return
	}
	h.pages.Add(1)
	h.logger.Debug("page done", "src", filepath.Base(src), "panels", panels, "duration", d.Round(time.Millisecond))
}

func (h *progressHooks) OnPageSkipped(context.Context, string, error) {}

func (h *progressHooks) OnChapterStart(_ context.Context, title string, pages int) {
	h.logger.Debug("preparing chapter", "chapter", title, "pages", pages)
}

func (h *progressHooks) OnChapterComplete(_ context.Context, title string, panels int, d time.Duration, err error) {
	if err != nil {
		return
	}
	h.logger.Info("chapter ready", "chapter", title, "panels", panels, "duration", d.Round(time.Millisecond))
}

func (h *progressHooks) OnBuildStart(ctx context.Context, format string, output string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.spinner = newSpinnerWriter(ctx, h.w, "Writing "+filepath.Base(output)+"...")
	h.spinner.Start()
}

func (h *progressHooks) OnBuildComplete(context.Context, string, string, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.spinner != nil {
		h.spinner.Stop()
		h.spinner = nil
	}
}

// Pages returns the number of pages prepared so far.
func (h *progressHooks) Pages() int64 {
	return h.pages.Load()
}

// cacheStats counts prepared-page cache traffic.
type cacheStats struct {
	hits   atomic.Int64
	misses atomic.Int64
	bytes  atomic.Int64
}

func (s *cacheStats) OnCacheHit(context.Context, string)  { s.hits.Add(1) }
func (s *cacheStats) OnCacheMiss(context.Context, string) { s.misses.Add(1) }
func (s *cacheStats) OnCacheSet(_ context.Context, _ string, size int) {
	s.bytes.Add(int64(size))
}

// installHooks registers progress and cache hooks for one command. The
// returned function restores the no-op hooks.
func installHooks(logger *log.Logger, w io.Writer) (*progressHooks, *cacheStats, func()) {
	progress := newProgressHooks(logger, w)
	stats := &cacheStats{}
	observability.SetPipelineHooks(progress)
	observability.SetCacheHooks(stats)
	return progress, stats, observability.Reset
}
