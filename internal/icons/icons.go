// internal/icons/icons.go
//
// Icon enrichment decorates reagents with image locations. It is optional:
// a failed or disabled lookup yields an Icon with no URL, which the UI shows
// as "no image". Nothing here ever returns an error to the caller.
//
// Callers tag each Enrich call with their own generation. A strictly newer
// generation cancels the batches in flight; a call carrying an older one
// returns at once marked Stale. Start order of the calls does not matter.

package icons

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	defaultCacheSize   = 256
	defaultCacheTTL    = time.Hour
)

// ErrNoIcon is returned by a Source when the item definitively has no icon.
// These misses are cached; transport failures are not.
var ErrNoIcon = errors.New("icons: no icon for item")

// Source resolves an item reference to an image location.
type Source interface {
	Lookup(ctx context.Context, itemID int) (string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, itemID int) (string, error)

// Lookup calls f.
func (f SourceFunc) Lookup(ctx context.Context, itemID int) (string, error) {
	return f(ctx, itemID)
}

// Logger receives degraded lookups.
type Logger interface {
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

// Icon is the enrichment outcome for one item.
type Icon struct {
	ItemID int
	URL    string
}

// Available reports whether an image location was found.
func (i Icon) Available() bool {
	return i.URL != ""
}

// Result is one batch of lookups.
type Result struct {
	Generation uint64
	Icons      map[int]Icon
	// Stale is set when a newer generation had already started.
	Stale bool
}

// Icon returns the entry for itemID, absent when unknown.
func (r Result) Icon(itemID int) Icon {
	if icon, ok := r.Icons[itemID]; ok {
		return icon
	}
	return Icon{ItemID: itemID}
}

// Settings tunes the enricher.
type Settings struct {
	Enabled     bool
	Concurrency int
	CacheSize   int
	CacheTTL    time.Duration
}

// Option customizes enricher construction.
type Option func(*Enricher)

// WithLogger routes degraded lookups to l.
func WithLogger(l Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}

// Enricher fans out icon lookups with bounded concurrency and caches results.
type Enricher struct {
	source      Source
	enabled     bool
	concurrency int
	cache       *lru.Cache[int, cacheEntry]
	ttl         time.Duration
	now         func() time.Time
	logger      Logger

	mu         sync.Mutex
	generation uint64
	cancels    []context.CancelFunc // batches running for generation
}

type cacheEntry struct {
	url     string
	expires time.Time
}

// WithClock overrides the cache clock.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an enricher over source. A nil source behaves as disabled.
func New(source Source, settings Settings, opts ...Option) *Enricher {
	if settings.Concurrency <= 0 {
		settings.Concurrency = defaultConcurrency
	}
	if settings.CacheSize <= 0 {
		settings.CacheSize = defaultCacheSize
	}
	if settings.CacheTTL <= 0 {
		settings.CacheTTL = defaultCacheTTL
	}
	// lru.New only fails for non-positive sizes.
	cache, _ := lru.New[int, cacheEntry](settings.CacheSize)
	e := &Enricher{
		source:      source,
		enabled:     settings.Enabled && source != nil,
		concurrency: settings.Concurrency,
		cache:       cache,
		ttl:         settings.CacheTTL,
		now:         time.Now,
		logger:      nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Enabled reports whether lookups reach the source.
func (e *Enricher) Enabled() bool {
	return e != nil && e.enabled
}

// IsCurrent reports whether gen is the newest generation seen.
func (e *Enricher) IsCurrent(gen uint64) bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}

// Cancel aborts the in-flight batches, if any.
func (e *Enricher) Cancel() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cancel := range e.cancels {
		cancel()
	}
	e.cancels = nil
}

// begin registers a batch for gen. ok is false when a newer generation has
// already started.
func (e *Enricher) begin(parent context.Context, gen uint64) (context.Context, context.CancelFunc, bool) {
	if parent == nil {
		parent = context.Background()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen < e.generation {
		return nil, nil, false
	}
	if gen > e.generation {
		for _, cancel := range e.cancels {
			cancel()
		}
		e.cancels = nil
		e.generation = gen
	}
	ctx, cancel := context.WithCancel(parent)
	e.cancels = append(e.cancels, cancel)
	return ctx, cancel, true
}

// Enrich resolves itemIDs for generation gen. Zero or negative ids are
// reported as absent without a lookup. The returned map has an entry for
// every requested id.
func (e *Enricher) Enrich(ctx context.Context, gen uint64, itemIDs []int) Result {
	result := Result{Generation: gen, Icons: make(map[int]Icon, len(itemIDs))}
	for _, id := range itemIDs {
		result.Icons[id] = Icon{ItemID: id}
	}

	batchCtx, cancel, ok := e.begin(ctx, gen)
	if !ok {
		result.Stale = true
		return result
	}
	defer cancel()

	var pending []int
	seen := make(map[int]bool, len(itemIDs))
	for _, id := range itemIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if id <= 0 || !e.enabled {
			continue
		}
		if url, ok := e.cached(id); ok {
			result.Icons[id] = Icon{ItemID: id, URL: url}
			continue
		}
		pending = append(pending, id)
	}
	if len(pending) == 0 {
		return result
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(batchCtx)
	g.SetLimit(e.concurrency)
	for _, id := range pending {
		g.Go(func() error {
			url, err := e.source.Lookup(gctx, id)
			switch {
			case err == nil:
				e.store(id, url)
			case errors.Is(err, ErrNoIcon):
				e.store(id, "")
				return nil
			default:
				if gctx.Err() == nil {
					e.logger.Warnf("icon lookup for item %d unavailable: %v", id, err)
				}
				return nil
			}
			mu.Lock()
			result.Icons[id] = Icon{ItemID: id, URL: url}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if batchCtx.Err() != nil && !e.IsCurrent(gen) {
		result.Stale = true
	}
	return result
}

func (e *Enricher) cached(id int) (string, bool) {
	entry, ok := e.cache.Get(id)
	if !ok {
		return "", false
	}
	if e.now().After(entry.expires) {
		e.cache.Remove(id)
		return "", false
	}
	return entry.url, true
}

func (e *Enricher) store(id int, url string) {
	e.cache.Add(id, cacheEntry{url: url, expires: e.now().Add(e.ttl)})
}
