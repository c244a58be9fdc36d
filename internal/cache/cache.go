// Package cache provides a time-bounded single-flight memoizer.
//
// A Memo wraps one computation. For each key at most one computation is in
// flight; concurrent callers join it and receive the same result. A settled
// result (value or error) is reused until TTL has elapsed since the entry
// was created, after which the next call recomputes and replaces it.
// Expiry is evaluated lazily on access; there is no background timer.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Func computes the value for key. It runs detached from the cancellation of
// the caller that triggered it, since other callers may be joined to it.
type Func[V any] func(ctx context.Context, key string) (V, error)

// Observer receives cache events. Implementations must be safe for
// concurrent use.
type Observer interface {
	Hit(cache string)
	Miss(cache string)
	Computed(cache string, d time.Duration, err error)
}

// Options configures a Memo.
type Options struct {
	TTL      time.Duration
	Size     int              // maximum number of keys retained; default 1024
	Now      func() time.Time // clock; default time.Now
	Observer Observer
}

const defaultSize = 1024

// entry is one computation. done is closed once val/err are set.
type entry[V any] struct {
	done      chan struct{}
	val       V
	err       error
	createdAt time.Time
}

// Memo is a TTL-bounded, single-flight memoized function.
type Memo[V any] struct {
	name string
	fn   Func[V]
	ttl  time.Duration
	now  func() time.Time
	obs  Observer

	mu       sync.Mutex
	entries  *lru.Cache[string, *entry[V]] // settled results
	inflight map[string]*entry[V]         // pending; never evicted
}

// New creates a Memo named name around fn.
func New[V any](name string, fn Func[V], opts Options) *Memo[V] {
	size := opts.Size
	if size <= 0 {
		size = defaultSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, *entry[V]](size)
	return &Memo[V]{
		name:    name,
		fn:      fn,
		ttl:     opts.TTL,
		now:     now,
		obs:      opts.Observer,
		entries:  entries,
		inflight: make(map[string]*entry[V]),
	}
}

// Get returns the cached or in-flight result for key, starting a new
// computation when there is no live entry. If ctx is cancelled while
// waiting, Get returns ctx.Err() but the computation keeps running for
// other callers.
func (m *Memo[V]) Get(ctx context.Context, key string) (V, error) {
	m.mu.Lock()
	e, ok := m.inflight[key]
	if !ok {
		e, ok = m.entries.Get(key)
		ok = ok && m.now().Sub(e.createdAt) < m.ttl
	}
	if ok {
		m.mu.Unlock()
		if m.obs != nil {
			m.obs.Hit(m.name)
		}
		return m.wait(ctx, e)
	}

	// Register the pending entry before computing so concurrent callers join it.
	e = &entry[V]{done: make(chan struct{}), createdAt: m.now()}
	m.inflight[key] = e
	m.mu.Unlock()

	if m.obs != nil {
		m.obs.Miss(m.name)
	}
	go m.compute(context.WithoutCancel(ctx), key, e)
	return m.wait(ctx, e)
}

// compute runs fn and then moves e from inflight into the LRU, unless it
// was invalidated meanwhile.
func (m *Memo[V]) compute(ctx context.Context, key string, e *entry[V]) {
	start := time.Now()
	e.val, e.err = m.fn(ctx, key)
	if m.obs != nil {
		m.obs.Computed(m.name, time.Since(start), e.err)
	}

	m.mu.Lock()
	if m.inflight[key] == e {
		delete(m.inflight, key)
		m.entries.Add(key, e)
	}
	m.mu.Unlock()
	close(e.done)
}

func (m *Memo[V]) wait(ctx context.Context, e *entry[V]) (V, error) {
	select {
	case <-e.done:
		return e.val, e.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Invalidate drops key so the next Get recomputes. Callers already joined
// to an in-flight computation still receive its result.
func (m *Memo[V]) Invalidate(key string) {
	m.mu.Lock()
	delete(m.inflight, key)
	m.entries.Remove(key)
	m.mu.Unlock()
}

// Len returns the number of retained keys, live, expired or pending.
func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.entries.Len()
	for key := range m.inflight {
		if !m.entries.Contains(key) {
			n++
		}
	}
	return n
}

// Key joins parts into a composite cache key, e.g. Key("book", "BTCUSDT").
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
