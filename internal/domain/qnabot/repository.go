package qnabot

import "context"

// MissRepository persists queries the knowledge base could not answer directly.
type MissRepository interface {
	RecordMiss(ctx context.Context, miss Miss) (Miss, error)
	RecentMisses(ctx context.Context, limit int) ([]Miss, error)
}
