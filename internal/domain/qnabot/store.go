package qnabot

import (
	"context"
	"time"
)

// Store caches candidate lists and keeps trending query counters.
type Store interface {
	GetCandidates(ctx context.Context, key string) ([]CandidateAnswer, bool, error)
	SaveCandidates(ctx context.Context, key string, candidates []CandidateAnswer, ttl time.Duration) error
	IncrementQuery(ctx context.Context, canonical, display string) error
	TopQueries(ctx context.Context, limit int) ([]TrendingQuery, error)
}
