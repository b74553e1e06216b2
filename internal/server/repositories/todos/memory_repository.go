package todos

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/server/cursor"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
)

type memoryEntry struct {
	seq  int64
	todo models.Todo
}

// MemoryRepository is a process-local store listing in insertion order.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*memoryEntry
	seq   int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*memoryEntry)}
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*models.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	t := e.todo
	return &t, nil
}

func seqFromKey(k cursor.Key) (int64, error) {
	switch v := k["seq"].(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: missing seq", common.ErrorDecode)
	}
}

func (r *MemoryRepository) List(_ context.Context, limit int, after cursor.Key) ([]*models.Todo, cursor.Key, error) {
	if limit < 1 {
		limit = 1
	}
	var from int64
	if after != nil {
		s, err := seqFromKey(after)
		if err != nil {
			return nil, nil, err
		}
		from = s
	}

	r.mu.RLock()
	entries := make([]*memoryEntry, 0, len(r.items))
	for _, e := range r.items {
		if e.seq > from {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	var next cursor.Key
	if len(entries) > limit {
		entries = entries[:limit]
		next = cursor.Key{"seq": entries[limit-1].seq}
	}
	items := make([]*models.Todo, len(entries))
	for i, e := range entries {
		t := e.todo
		items[i] = &t
	}
	r.mu.RUnlock()

	return items, next, nil
}

func (r *MemoryRepository) Put(_ context.Context, t *models.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.items[t.ID]; ok {
		e.todo = *t
		return nil
	}
	r.seq++
	r.items[t.ID] = &memoryEntry{seq: r.seq, todo: *t}
	return nil
}

func (r *MemoryRepository) UpdateFields(_ context.Context, id string, patch models.Patch, updatedAt time.Time) (*models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	patch.Apply(&e.todo, updatedAt)
	t := e.todo
	return &t, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}
