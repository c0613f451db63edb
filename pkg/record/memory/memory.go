// Package memory provides an in-memory Recorder for testing and
// lightweight setups. Exchanges are lost when the process exits. Optional
// LRU eviction limits memory usage.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/frage-dev/frage/pkg/record"
)

// Recorder is an in-memory record.Recorder with optional LRU eviction.
type Recorder struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lruList *list.List // front = most recently used, back = least recently used
	maxSize int        // 0 = unlimited
}

type entry struct {
	ex      *record.Exchange
	lruElem *list.Element
}

// Ensure Recorder implements record.Recorder at compile time.
var _ record.Recorder = (*Recorder)(nil)

// New creates an in-memory recorder. If maxSize is 0, it grows without
// limit; otherwise the oldest exchange is evicted when the limit is
// reached.
func New(maxSize int) *Recorder {
	return &Recorder{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// Save implements record.Recorder.
func (r *Recorder) Save(ctx context.Context, ex *record.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[ex.ID]; exists {
		return record.ErrConflict
	}

	if r.maxSize > 0 && len(r.entries) >= r.maxSize {
		r.evictOldest()
	}

	r.entries[ex.ID] = &entry{
		ex:      ex,
		lruElem: r.lruList.PushFront(ex.ID),
	}
	return nil
}

// Get implements record.Recorder.
func (r *Recorder) Get(ctx context.Context, id string) (*record.Exchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, record.ErrNotFound
	}
	r.lruList.MoveToFront(e.lruElem)
	return e.ex, nil
}

// List implements record.Recorder.
func (r *Recorder) List(ctx context.Context, limit int) ([]*record.Exchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*record.Exchange, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.ex)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete implements record.Recorder.
func (r *Recorder) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return record.ErrNotFound
	}
	r.lruList.Remove(e.lruElem)
	delete(r.entries, id)
	return nil
}

// Close implements record.Recorder.
func (r *Recorder) Close() error { return nil }

// evictOldest removes the least recently used exchange. Caller holds the
// write lock.
func (r *Recorder) evictOldest() {
	back := r.lruList.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	r.lruList.Remove(back)
	delete(r.entries, id)
}
