package missrepo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/qnabot/internal/domain/qnabot"
)

func TestMemoryRepository_RecentMissesNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, err := repo.RecordMiss(ctx, qnabot.Miss{Query: "first", Outcome: qnabot.MissNoAnswer})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ID)
	_, err = repo.RecordMiss(ctx, qnabot.Miss{Query: "second", Outcome: qnabot.MissAmbiguous, TopScore: 0.6})
	require.NoError(t, err)

	items, err := repo.RecentMisses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "second", items[0].Query)
	require.Equal(t, int64(2), items[0].ID)
	require.Equal(t, "first", items[1].Query)

	items, err = repo.RecentMisses(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestMemoryRepository_Bounded(t *testing.T) {
	repo := NewMemoryRepository()
	repo.capacity = 3
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := repo.RecordMiss(ctx, qnabot.Miss{Query: fmt.Sprintf("q%d", i)})
		require.NoError(t, err)
	}

	items, err := repo.RecentMisses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "q4", items[0].Query)
	require.Equal(t, "q2", items[2].Query)
}
