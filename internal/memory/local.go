package memory

import (
	"context"
	"sync"
	"time"
)

// LocalBackend keeps contexts in process with one lock per key, so updates
// for different users never wait on each other beyond a map lookup.
type LocalBackend struct {
	mu      sync.Mutex
	entries map[Key]*localEntry
}

type localEntry struct {
	mu      sync.Mutex
	ctx     *Context
	removed bool
}

func NewLocalBackend() *LocalBackend {
	return &LocalBackend{entries: make(map[Key]*localEntry)}
}

func (b *LocalBackend) entry(key Key) *localEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		e = &localEntry{}
		b.entries[key] = e
	}
	return e
}

func (b *LocalBackend) Load(_ context.Context, key Key) (*Context, error) {
	b.mu.Lock()
	e, ok := b.entries[key]
	b.mu.Unlock()
	if !ok {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.Clone(), nil
}

func (b *LocalBackend) Update(ctx context.Context, key Key, fn func(c *Context) error) (*Context, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := b.entry(key)
		e.mu.Lock()
		if e.removed {
			// Swept between lookup and lock; fetch the replacement entry.
			e.mu.Unlock()
			continue
		}
		working := &Context{}
		if e.ctx != nil {
			working = e.ctx.Clone()
		}
		if err := fn(working); err != nil {
			e.mu.Unlock()
			return nil, err
		}
		e.ctx = working
		out := working.Clone()
		e.mu.Unlock()
		return out, nil
	}
}

func (b *LocalBackend) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for key, e := range b.entries {
		e.mu.Lock()
		if e.ctx == nil || e.ctx.Expired(now) {
			e.removed = true
			delete(b.entries, key)
			if e.ctx != nil {
				removed++
			}
		}
		e.mu.Unlock()
	}
	return removed, nil
}

// Len reports how many keys are held, including ones not yet swept.
func (b *LocalBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
