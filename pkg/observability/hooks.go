// Package observability provides hooks for progress reporting and metrics.
//
// Libraries emit events through the registered hooks; front ends decide what
// to do with them (print progress, count cache hits, export metrics). The
// default hooks do nothing, so library code never checks for nil.
//
// Register hooks at application startup:
//
//	observability.SetPipelineHooks(&progressHooks{})
//	observability.SetCacheHooks(&statsHooks{})
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnChapterStart(ctx, title, pages)
//	// ... prepare pages ...
//	observability.Pipeline().OnChapterComplete(ctx, title, panels, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from a conversion run.
type PipelineHooks interface {
	// Page events, emitted from worker goroutines.
	OnPageComplete(ctx context.Context, src string, panels int, duration time.Duration, err error)
	OnPageSkipped(ctx context.Context, src string, reason error)

	// Chapter events
	OnChapterStart(ctx context.Context, title string, pages int)
	OnChapterComplete(ctx context.Context, title string, panels int, duration time.Duration, err error)

	// Build events
	OnBuildStart(ctx context.Context, format string, output string)
	OnBuildComplete(ctx context.Context, format string, output string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnPageComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnPageSkipped(context.Context, string, error)                      {}
func (NoopPipelineHooks) OnChapterStart(context.Context, string, int)                       {}
func (NoopPipelineHooks) OnChapterComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnBuildStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnBuildComplete(context.Context, string, string, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any conversion.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
}
