package missrepo

import (
	"context"
	"sync"

	"github.com/yanqian/qnabot/internal/domain/qnabot"
)

const defaultCapacity = 1000

// MemoryRepository keeps the most recent misses in a bounded slice.
type MemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	capacity int
	items    []qnabot.Miss
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, capacity: defaultCapacity}
}

// RecordMiss implements qnabot.MissRepository.
func (r *MemoryRepository) RecordMiss(_ context.Context, miss qnabot.Miss) (qnabot.Miss, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	miss.ID = r.nextID
	r.nextID++
	r.items = append(r.items, miss)
	if len(r.items) > r.capacity {
		r.items = append([]qnabot.Miss(nil), r.items[len(r.items)-r.capacity:]...)
	}
	return miss, nil
}

// RecentMisses returns up to limit misses, newest first.
func (r *MemoryRepository) RecentMisses(_ context.Context, limit int) ([]qnabot.Miss, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.items) {
		limit = len(r.items)
	}
	out := make([]qnabot.Miss, 0, limit)
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.items[i])
	}
	return out, nil
}

var _ qnabot.MissRepository = (*MemoryRepository)(nil)
