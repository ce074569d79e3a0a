package providers

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryDirectory is an in-process directory, used for local runs and tests.
type MemoryDirectory struct {
	mu     sync.RWMutex
	byID   map[int64]Provider
	nextID int64
}

// NewMemoryDirectory seeds a directory; providers without an ID get one assigned.
func NewMemoryDirectory(seed ...Provider) *MemoryDirectory {
	d := &MemoryDirectory{byID: make(map[int64]Provider)}
	for _, p := range seed {
		d.Upsert(p)
	}
	return d
}

// Upsert stores p, assigning an ID when p.ID is zero, and returns the stored copy.
func (d *MemoryDirectory) Upsert(p Provider) Provider {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.ID == 0 {
		d.nextID++
		p.ID = d.nextID
	} else if p.ID > d.nextID {
		d.nextID = p.ID
	}
	d.byID[p.ID] = p
	return p
}

func (d *MemoryDirectory) Get(_ context.Context, id int64) (*Provider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (d *MemoryDirectory) FindByName(_ context.Context, name string) (*Provider, error) {
	needle := normalizeName(name)
	if needle == "" {
		return nil, ErrNotFound
	}
	for _, p := range d.sorted() {
		if strings.Contains(normalizeName(p.Name), needle) {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) List(_ context.Context, specialization string) ([]Provider, error) {
	spec := strings.ToLower(strings.TrimSpace(specialization))
	out := []Provider{}
	for _, p := range d.sorted() {
		if spec != "" && !strings.Contains(strings.ToLower(p.Specialization), spec) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *MemoryDirectory) sorted() []Provider {
	d.mu.RLock()
	out := make([]Provider, 0, len(d.byID))
	for _, p := range d.byID {
		out = append(out, p)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}
