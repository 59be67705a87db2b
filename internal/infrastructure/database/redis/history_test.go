package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/EconSOM/internal/domain/run"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/internal/testutil"
	pkgerrors "github.com/turtacn/EconSOM/pkg/errors"
)

var _ run.History = (*RunHistory)(nil)

func newHistory(t *testing.T, size int, ttl time.Duration) (*miniredis.Miniredis, *RunHistory) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRunHistory(client, logging.NewNopLogger(), size, ttl)
}

func summary(i int) *run.Summary {
	return &run.Summary{
		ID:         fmt.Sprintf("run-%d", i),
		Profile:    "full",
		Source:     run.SourceHTTP,
		Status:     run.StatusSuccess,
		Rows:       6,
		Cols:       6,
		Iterations: 500,
		Seed:       42,
		StartedAt:  time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
	}
}

func TestRunHistory_RecentIsNewestFirstAndCapped(t *testing.T) {
	_, h := newHistory(t, 3, time.Hour)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, h.Record(ctx, summary(i)))
	}

	n, err := h.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "run-5", got[0].ID)
	assert.Equal(t, "run-3", got[2].ID)
	assert.Equal(t, 500, got[0].Iterations)

	got, err = h.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "run-5", got[0].ID)

	got, err = h.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunHistory_GetAndExpiry(t *testing.T) {
	mr, h := newHistory(t, 10, time.Minute)
	ctx := context.Background()
	require.NoError(t, h.Record(ctx, summary(1)))

	s, err := h.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.StatusSuccess, s.Status)
	assert.Equal(t, time.Minute, mr.TTL("econsom:runs"))

	mr.FastForward(2 * time.Minute)
	_, err = h.Get(ctx, "run-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeNotFound))
}

func TestRunHistory_SkipsCorruptEntries(t *testing.T) {
	mr, h := newHistory(t, 10, time.Hour)
	ctx := context.Background()
	require.NoError(t, h.Record(ctx, summary(1)))
	_, err := mr.Lpush("econsom:runs", "{broken")
	require.NoError(t, err)

	got, err := h.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "run-1", got[0].ID)
}

func TestRunHistory_RejectsSummaryWithoutID(t *testing.T) {
	_, h := newHistory(t, 0, 0)
	err := h.Record(context.Background(), &run.Summary{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidParam))
}

func TestRunHistory_MatchesMemoryHistoryOrdering(t *testing.T) {
	_, h := newHistory(t, 10, time.Hour)
	mem := &testutil.MemoryHistory{}
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, h.Record(ctx, summary(i)))
		require.NoError(t, mem.Record(ctx, summary(i)))
	}

	a, err := h.Recent(ctx, 3)
	require.NoError(t, err)
	b, err := mem.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, a, len(b))
	for i := range a {
		assert.Equal(t, b[i].ID, a[i].ID)
	}
}
//Personal.AI order the ending
