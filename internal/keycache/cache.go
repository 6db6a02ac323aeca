// Package keycache holds the pan-domain public key and refreshes it from a
// slow external source at most once per TTL window.
package keycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/guardian/panda-go/internal/logging"
	"github.com/guardian/panda-go/internal/metrics"
)

// DefaultTTL is how long a fetched key is served before it is refetched.
const DefaultTTL = 60 * time.Second

const flightKey = "public-key"

// ErrEmptyKey is returned when the fetch function yields an empty key.
var ErrEmptyKey = errors.New("keycache: fetched empty public key")

// FetchFunc retrieves the current PEM-encoded public key.
type FetchFunc func(ctx context.Context) (string, error)

// Holder is a fetched key and the time it was fetched. Holders are replaced
// wholesale on refresh and never mutated.
type Holder struct {
	Key         string
	LastUpdated time.Time
}

type Option func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithClock replaces time.Now for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache serves the current public key.
//
// Concurrent callers that find the key stale share a single in-flight fetch.
// A failed fetch is returned to every waiting caller and leaves the previous
// holder in place, so the next call tries again.
type Cache struct {
	fetch   FetchFunc
	ttl     time.Duration
	now     func() time.Time
	logger  logging.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	holder *Holder
	group  singleflight.Group

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
}

func New(fetch FetchFunc, opts ...Option) *Cache {
	c := &Cache{
		fetch:  fetch,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logging.Nop(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("module", "keycache")
	return c
}

// TTL returns the configured cache lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Current returns the cached holder without fetching.
func (c *Cache) Current() (Holder, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.holder == nil {
		return Holder{}, false
	}
	return *c.holder, true
}

// PublicKey returns the cached key, fetching a new one first when the cache
// is empty or older than the TTL.
//
// ctx only bounds how long this caller waits; the fetch itself runs to
// completion for the other callers sharing it.
func (c *Cache) PublicKey(ctx context.Context) (string, error) {
	if key, ok := c.fresh(); ok {
		return key, nil
	}

	ch := c.group.DoChan(flightKey, func() (any, error) {
		if key, ok := c.fresh(); ok {
			return key, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Cache) fresh() (string, bool) {
	c.mu.RLock()
	h := c.holder
	c.mu.RUnlock()

	if h == nil || c.now().Sub(h.LastUpdated) > c.ttl {
		return "", false
	}
	return h.Key, true
}

func (c *Cache) refresh(ctx context.Context) (string, error) {
	key, err := c.fetch(ctx)
	if err == nil && key == "" {
		err = ErrEmptyKey
	}

	fetchedAt := c.now()
	c.metrics.ObserveKeyFetch(err, float64(fetchedAt.Unix()))
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.holder = &Holder{Key: key, LastUpdated: fetchedAt}
	c.mu.Unlock()

	c.logger.Info(ctx, "public key refreshed")
	return key, nil
}

// Start fetches the key in the background and then calls PublicKey every TTL
// so that an upstream rotation is picked up without traffic. It returns
// immediately. The refresher exits on Stop or when ctx is done.
func (c *Cache) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.started.Store(true)
		go c.run(ctx)
	})
}

// Stop cancels the background refresher and waits for it to exit. It is
// safe to call more than once, and before Start.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.started.Load() {
		<-c.done
	}
}

func (c *Cache) run(ctx context.Context) {
	defer close(c.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	select {
	case <-c.stop:
		return
	default:
	}
	c.tick(ctx)

	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Cache) tick(ctx context.Context) {
	if _, err := c.PublicKey(ctx); err != nil && ctx.Err() == nil {
		c.logger.Warn(ctx, "background public key refresh failed", "error", err)
	}
}
