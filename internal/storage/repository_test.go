package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRecordAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, kind := range []string{"income", "fixedCost", "saving"} {
		ok, err := repo.Record(ctx, JournalEntry{
			Kind:       kind,
			Operation:  "close_out",
			ItemID:     int64(i + 1),
			Month:      "2024-03",
			DateTo:     "2024-02",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		assert.True(t, ok)
	}

	got, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "saving", got[0].Kind)
	assert.Equal(t, "fixedCost", got[1].Kind)
	assert.True(t, got[0].OccurredAt.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, "2024-02", got[0].DateTo)
	assert.False(t, got[0].RecordedAt.IsZero())
}

func TestRecentOrdersWithinTheSameSecond(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	whole := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, e := range []JournalEntry{
		{Kind: "income", Operation: "close_out", ItemID: 1, OccurredAt: whole.Add(-500 * time.Millisecond)},
		{Kind: "fixedCost", Operation: "close_out", ItemID: 2, OccurredAt: whole},
		{Kind: "saving", Operation: "delete", ItemID: 3, OccurredAt: whole.Add(500 * time.Millisecond)},
	} {
		_, err := repo.Record(ctx, e)
		require.NoError(t, err)
	}

	got, err := repo.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"saving", "fixedCost", "income"}, []string{got[0].Kind, got[1].Kind, got[2].Kind})
	assert.True(t, got[1].OccurredAt.Equal(whole))
}

func TestRecordIgnoresRedelivery(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	e := JournalEntry{Kind: "saving", Operation: "delete", ItemID: 9, OccurredAt: time.Now()}

	ok, err := repo.Record(ctx, e)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Record(ctx, e)
	require.NoError(t, err)
	assert.False(t, ok)

	counts, err := repo.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"saving": 1}, counts)
}

func TestRecordRejectsIncompleteEntry(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Record(context.Background(), JournalEntry{Kind: "saving"})
	assert.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Ping(context.Background()))
}
