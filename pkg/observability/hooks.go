// Package observability lets binaries watch the libraries without the
// libraries depending on a metrics backend.
//
// Library code reports through [Pipeline], [Fetch], [Cache] and [HTTP].
// Until a binary registers its own implementation each of these is a
// no-op. The server registers Prometheus counters and histograms:
//
//	observability.SetFetchHooks(metrics)
//
//	start := time.Now()
//	buf, err := stage.Fetch(ctx, key)
//	observability.Fetch().OnStageComplete(ctx, stage.Name, time.Since(start), err)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks follows a query through resolve, load and render. origin
// names the fallback stage that produced the graph.
type PipelineHooks interface {
	OnResolveComplete(ctx context.Context, query, key string, duration time.Duration, err error)
	OnLoadComplete(ctx context.Context, key, origin string, nodeCount int, duration time.Duration, err error)
	OnRenderStart(ctx context.Context, format string)
	OnRenderComplete(ctx context.Context, format string, duration time.Duration, err error)
}

// FetchHooks sees every fallback stage attempt, successful or not.
type FetchHooks interface {
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)
}

// CacheHooks counts lookups per key kind ("ego", "frame", "tile").
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks sees outgoing API requests. OnError covers requests that got
// no response at all.
type HTTPHooks interface {
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnResolveComplete(context.Context, string, string, time.Duration, error) {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnRenderStart(context.Context, string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, string, time.Duration, error) {}

type NoopFetchHooks struct{}

func (NoopFetchHooks) OnStageComplete(context.Context, string, time.Duration, error) {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// hookSet is swapped as a whole so readers on the render path never lock.
type hookSet struct {
	pipeline PipelineHooks
	fetch    FetchHooks
	cache    CacheHooks
	http     HTTPHooks
}

var (
	noop   = hookSet{NoopPipelineHooks{}, NoopFetchHooks{}, NoopCacheHooks{}, NoopHTTPHooks{}}
	active atomic.Pointer[hookSet]
)

func init() { Reset() }

func current() *hookSet { return active.Load() }

// update applies fn to a copy of the active set and publishes it.
func update(fn func(*hookSet)) {
	for {
		old := active.Load()
		next := *old
		fn(&next)
		if active.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetPipelineHooks, SetFetchHooks, SetCacheHooks and SetHTTPHooks replace
// one kind of hook. Nil leaves the current hooks in place.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		update(func(s *hookSet) { s.pipeline = h })
	}
}

func SetFetchHooks(h FetchHooks) {
	if h != nil {
		update(func(s *hookSet) { s.fetch = h })
	}
}

func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(s *hookSet) { s.cache = h })
	}
}

func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(s *hookSet) { s.http = h })
	}
}

func Pipeline() PipelineHooks { return current().pipeline }
func Fetch() FetchHooks       { return current().fetch }
func Cache() CacheHooks       { return current().cache }
func HTTP() HTTPHooks         { return current().http }

// Reset drops every registered hook. Tests that register hooks defer it.
func Reset() {
	fresh := noop
	active.Store(&fresh)
}
