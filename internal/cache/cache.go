// Package cache owns the pool of loaded model instances. It bounds resource
// usage with strict LRU eviction and guarantees at most one load is in flight
// per (engine, model) key.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Handle is the opaque native resource backing a loaded model. The cache
// closes it when the entry is evicted or cleared and no request still uses it.
type Handle interface {
	Close() error
}

// LoaderFunc constructs the native resource on a cache miss. It is invoked
// without any cache lock held.
type LoaderFunc func(ctx context.Context) (Handle, error)

// LoadedModel is a model instance resident in the cache. The handle is owned
// by the cache; requests borrow it for the duration of one execution and must
// return it via Release.
type LoadedModel struct {
	Engine       string
	Name         string
	Handle       Handle
	LoadedAt     time.Time
	LoadDuration time.Duration

	// guarded by Cache.mu
	refs    int
	evicted bool
}

// Key returns the cache key for the model.
func (m *LoadedModel) Key() string { return m.Engine + "/" + m.Name }

type entry struct {
	model    *LoadedModel
	lastUsed time.Time
}

// flight tracks a load in progress so concurrent callers for the same key
// share one loader execution.
type flight struct {
	done    chan struct{}
	waiters int
	model   *LoadedModel
	err     error
}

// Cache is a bounded key to loaded-instance store with LRU eviction.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	entries  map[string]*list.Element
	flights  map[string]*flight

	evictions uint64
	onEvict   func(key string)
}

// New returns a Cache holding at most capacity models. Values below one fall
// back to one.
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	c := &Cache{
		capacity: capacity,
		ll:       list.New(),
		entries:  make(map[string]*list.Element),
		flights:  make(map[string]*flight),
	}
	return c
}

// SetEvictHook installs a callback invoked (outside any lock) after an entry
// is evicted. Intended for metrics; must be set before first use.
func (c *Cache) SetEvictHook(fn func(key string)) { c.onEvict = fn }

// GetOrLoad returns the handle for (engine, name), loading it via loader on a
// miss. The second return reports whether the call was a cache hit. Callers
// must pass the returned model to Release when the execution finishes.
func (c *Cache) GetOrLoad(ctx context.Context, engine, name string, loader LoaderFunc) (*LoadedModel, bool, error) {
	key := engine + "/" + name

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry)
		ent.lastUsed = time.Now()
		c.ll.MoveToFront(el)
		ent.model.refs++
		c.mu.Unlock()
		return ent.model, true, nil
	}
	if f, ok := c.flights[key]; ok {
		// Another caller is loading this key; wait for it instead of
		// doubling the work.
		f.waiters++
		c.mu.Unlock()
		return c.awaitFlight(ctx, f)
	}
	f := &flight{done: make(chan struct{})}
	c.flights[key] = f
	c.mu.Unlock()

	start := time.Now()
	h, err := loader(ctx)

	c.mu.Lock()
	delete(c.flights, key)
	if err != nil {
		// No entry is inserted; capacity is unaffected.
		f.err = err
		close(f.done)
		c.mu.Unlock()
		return nil, false, err
	}
	m := &LoadedModel{
		Engine:       engine,
		Name:         name,
		Handle:       h,
		LoadedAt:     time.Now(),
		LoadDuration: time.Since(start),
	}
	// One reference for the loader plus one per waiter still parked on the
	// flight; waiters that gave up already decremented themselves.
	m.refs = 1 + f.waiters
	f.model = m
	close(f.done)

	var victims []*LoadedModel
	for c.ll.Len() >= c.capacity {
		v := c.removeLRULocked()
		if v == nil {
			break
		}
		victims = append(victims, v)
	}
	el := c.ll.PushFront(&entry{model: m, lastUsed: time.Now()})
	c.entries[key] = el
	c.mu.Unlock()

	for _, v := range victims {
		if c.onEvict != nil {
			c.onEvict(v.Key())
		}
	}
	return m, false, nil
}

// awaitFlight blocks until the shared load finishes or ctx is canceled.
func (c *Cache) awaitFlight(ctx context.Context, f *flight) (*LoadedModel, bool, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		c.mu.Lock()
		select {
		case <-f.done:
			// Load finished while we were giving up; our reference was
			// already counted, return it.
			c.mu.Unlock()
			if f.err != nil {
				return nil, false, f.err
			}
			c.release(f.model)
			return nil, false, ctx.Err()
		default:
			f.waiters--
			c.mu.Unlock()
			return nil, false, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, false, f.err
	}
	// The model was not resident when this caller arrived, so it observes a
	// miss even though the load itself ran once.
	return f.model, false, nil
}

// Release returns a borrowed handle. The underlying resource is closed once
// the entry has been evicted and the last borrower releases it.
func (c *Cache) Release(m *LoadedModel) {
	if m == nil {
		return
	}
	c.release(m)
}

func (c *Cache) release(m *LoadedModel) {
	c.mu.Lock()
	m.refs--
	closeNow := m.evicted && m.refs <= 0
	c.mu.Unlock()
	if closeNow {
		_ = m.Handle.Close()
	}
}

// removeLRULocked evicts the least-recently-used entry. Entries touched at
// the same instant keep list order, so ties fall to the oldest inserted.
func (c *Cache) removeLRULocked() *LoadedModel {
	el := c.ll.Back()
	if el == nil {
		return nil
	}
	ent := el.Value.(*entry)
	c.ll.Remove(el)
	delete(c.entries, ent.model.Key())
	c.evictions++
	ent.model.evicted = true
	if ent.model.refs <= 0 {
		_ = ent.model.Handle.Close()
	}
	return ent.model
}

// Clear evicts and releases every resident entry. In-flight loads are not
// interrupted; they insert their entry when they complete. Executions holding
// a borrowed handle finish with it, the entry is simply gone from future
// lookups. Returns the number of entries removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	var toClose []*LoadedModel
	n := c.ll.Len()
	for el := c.ll.Front(); el != nil; el = el.Next() {
		ent := el.Value.(*entry)
		ent.model.evicted = true
		if ent.model.refs <= 0 {
			toClose = append(toClose, ent.model)
		}
	}
	c.ll.Init()
	c.entries = make(map[string]*list.Element)
	c.mu.Unlock()

	for _, m := range toClose {
		_ = m.Handle.Close()
	}
	return n
}

// Len reports the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Keys returns the resident keys ordered most-recently-used first.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).model.Key())
	}
	return out
}

// Evictions reports the total number of evictions performed.
func (c *Cache) Evictions() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

// Healthy reports liveness for health checks without mutating state.
func (c *Cache) Healthy() bool { return c != nil && c.entries != nil }
