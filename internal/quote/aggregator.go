package quote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cityhop/internal/cache"
	"cityhop/internal/fare"
	"cityhop/internal/geo"
)

// WarmMirror is the subset of cache.RedisCache the aggregator needs.
// It is optional: a nil WarmMirror simply disables the warm-cache
// path and the in-memory Cache remains fully authoritative (§4.8/§9).
type WarmMirror interface {
	GetJSONCompressed(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSONCompressed(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Event is published on the aggregator's stream channel as each
// producer finishes, ahead of Compare's return. Subscribers (the
// websocket QuoteStream in internal/transport) see quotes arrive
// incrementally instead of waiting for the slowest producer.
type Event struct {
	RequestID string    `json:"requestId"`
	Quotes    []FareQuote `json:"quotes"`
	Done      bool      `json:"done"`
}

// Aggregator fans a single fare request out to every registered
// Producer concurrently, merges whatever comes back, and falls back
// to synthesized estimates for producers that returned nothing.
type Aggregator struct {
	producers []Producer
	fallback  *FallbackEstimator
	cache     *Cache
	warm      WarmMirror
	warmTTL   time.Duration
	logger    *slog.Logger
	timeout   time.Duration

	subsMu sync.Mutex
	subs   map[chan Event]struct{}
}

func NewAggregator(producers []Producer, fallback *FallbackEstimator, cache *Cache, timeout time.Duration, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		producers: producers,
		fallback:  fallback,
		cache:     cache,
		logger:    logger,
		timeout:   timeout,
		subs:      make(map[chan Event]struct{}),
	}
}

// WithWarmMirror attaches an optional Redis-backed secondary cache.
// It is consulted only after an in-memory miss, and is populated
// whenever the in-memory cache is, so a process restart can still
// serve a warm quote list without re-querying every producer.
func (a *Aggregator) WithWarmMirror(warm WarmMirror, ttl time.Duration) *Aggregator {
	a.warm = warm
	a.warmTTL = ttl
	return a
}

// Subscribe registers a channel for incremental quote events. The
// caller must call the returned unsubscribe func when done reading.
func (a *Aggregator) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	a.subsMu.Lock()
	a.subs[ch] = struct{}{}
	a.subsMu.Unlock()

	unsubscribe := func() {
		a.subsMu.Lock()
		delete(a.subs, ch)
		a.subsMu.Unlock()
		close(ch)
	}
	return ch, unsubscribe
}

func (a *Aggregator) publish(evt Event) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	for ch := range a.subs {
		select {
		case ch <- evt:
		default:
			// slow subscriber; drop rather than block the aggregation.
		}
	}
}

// Compare runs every producer concurrently and returns the merged
// quote list in producer-registration order. A cache hit short-
// circuits the fan-out entirely.
func (a *Aggregator) Compare(ctx context.Context, requestID string, pickup, drop geo.Coordinate, classes []fare.VehicleClass) []FareQuote {
	key := Key(pickup, drop)
	if cached, ok := a.cache.Get(key); ok {
		a.publish(Event{RequestID: requestID, Quotes: markCached(cached), Done: true})
		return markCached(cached)
	}

	if a.warm != nil {
		var warmQuotes []FareQuote
		if ok, err := a.warm.GetJSONCompressed(ctx, cache.KeyQuotes(key), &warmQuotes); err != nil {
			a.logger.Debug("warm cache lookup failed", "error", err)
		} else if ok && len(warmQuotes) > 0 {
			a.cache.Put(key, warmQuotes)
			a.publish(Event{RequestID: requestID, Quotes: markCached(warmQuotes), Done: true})
			return markCached(warmQuotes)
		}
	}

	var wg sync.WaitGroup
	results := make([][]FareQuote, len(a.producers))
	var mus = make([]sync.Mutex, len(a.producers))

	wg.Add(len(a.producers))
	for i, p := range a.producers {
		go func(i int, p Producer) {
			defer wg.Done()

			reqCtx := ctx
			var cancel context.CancelFunc
			if a.timeout > 0 {
				reqCtx, cancel = context.WithTimeout(ctx, a.timeout)
				defer cancel()
			}

			out := a.safeQuote(reqCtx, p, pickup, drop)
			if len(out) == 0 {
				out = a.fallback.Estimate(p.PlatformName(), pickup, drop, classes)
			}

			mus[i].Lock()
			results[i] = out
			mus[i].Unlock()

			a.publish(Event{RequestID: requestID, Quotes: out})
		}(i, p)
	}
	wg.Wait()

	merged := make([]FareQuote, 0, len(a.producers)*len(classes))
	for i := range a.producers {
		mus[i].Lock()
		merged = append(merged, results[i]...)
		mus[i].Unlock()
	}

	a.cache.Put(key, merged)
	if a.warm != nil && len(merged) > 0 {
		if err := a.warm.SetJSONCompressed(ctx, cache.KeyQuotes(key), merged, a.warmTTL); err != nil {
			a.logger.Debug("warm cache write failed", "error", err)
		}
	}
	a.publish(Event{RequestID: requestID, Quotes: merged, Done: true})

	a.logger.Debug("compare completed", "request_id", requestID, "producers", len(a.producers), "quotes", len(merged))

	return merged
}

// markCached returns a copy of quotes with provenance overwritten to
// "cached", per §4.8's "second call within TTL" rule.
func markCached(quotes []FareQuote) []FareQuote {
	out := make([]FareQuote, len(quotes))
	for i, q := range quotes {
		q.Provenance = ProvenanceCached
		out[i] = q
	}
	return out
}

// safeQuote isolates a panicking producer from the rest of the
// fan-out (slow producers are bounded by Compare's per-producer
// timeout context instead); Producer.Quote is documented to never
// return an error, but a misbehaving third-party integration could
// still panic.
func (a *Aggregator) safeQuote(ctx context.Context, p Producer, pickup, drop geo.Coordinate) (out []FareQuote) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("producer panicked", "platform", p.PlatformName(), "panic", r)
			out = nil
		}
	}()
	return p.Quote(ctx, pickup, drop)
}
