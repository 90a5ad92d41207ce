package answerstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yanqian/qnabot/internal/domain/qnabot"
)

type cachedCandidates struct {
	candidates []qnabot.CandidateAnswer
	expiresAt  time.Time
}

func (c cachedCandidates) expired(now time.Time) bool {
	return !c.expiresAt.IsZero() && c.expiresAt.Before(now)
}

// MemoryStore keeps the candidate cache and trending counters in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	cache    map[string]cachedCandidates
	trending map[string]int64
	displays map[string]string
	now      func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache:    make(map[string]cachedCandidates),
		trending: make(map[string]int64),
		displays: make(map[string]string),
		now:      time.Now,
	}
}

// GetCandidates implements qnabot.Store.
func (s *MemoryStore) GetCandidates(_ context.Context, key string) ([]qnabot.CandidateAnswer, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if entry.expired(s.now()) {
		s.mu.Lock()
		if current, ok := s.cache[key]; ok && current.expired(s.now()) {
			delete(s.cache, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return cloneCandidates(entry.candidates), true, nil
}

// SaveCandidates caches the candidate list with an optional TTL.
func (s *MemoryStore) SaveCandidates(_ context.Context, key string, candidates []qnabot.CandidateAnswer, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cachedCandidates{
		candidates: cloneCandidates(candidates),
		expiresAt:  exp,
	}
	return nil
}

// IncrementQuery bumps the counter for a canonical query and records a display string.
func (s *MemoryStore) IncrementQuery(_ context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trending[canonical]++
	if _, exists := s.displays[canonical]; !exists {
		s.displays[canonical] = display
	}
	return nil
}

// TopQueries returns the most frequent canonical questions.
func (s *MemoryStore) TopQueries(_ context.Context, limit int) ([]qnabot.TrendingQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = len(s.trending)
	}
	items := make([]qnabot.TrendingQuery, 0, len(s.trending))
	for canonical, count := range s.trending {
		display := s.displays[canonical]
		if display == "" {
			display = canonical
		}
		items = append(items, qnabot.TrendingQuery{Query: display, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Query < items[j].Query
		}
		return items[i].Count > items[j].Count
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func cloneCandidates(in []qnabot.CandidateAnswer) []qnabot.CandidateAnswer {
	out := make([]qnabot.CandidateAnswer, len(in))
	for i, c := range in {
		c.AlternateQuestions = append([]string(nil), c.AlternateQuestions...)
		out[i] = c
	}
	return out
}

var _ qnabot.Store = (*MemoryStore)(nil)
