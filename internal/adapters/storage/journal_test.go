package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/offerbot/internal/adapters/storage"
	"github.com/alejandrodnm/offerbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeReport(id string, startedAt time.Time, dryRun bool) *domain.RunReport {
	return &domain.RunReport{
		RunID:      id,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(2 * time.Second),
		DryRun:     dryRun,
		Capital:    domain.NewCapital(4_000_000, 0.5),
		Market:     domain.MarketSummary{PoolSize: 7},
		Decisions: []domain.Decision{
			{
				Template:  "1m_30d",
				Kind:      domain.KindCreate,
				ListingID: "new-1",
				Pricing:   &domain.PricingResult{FixedFee: 0, FeeRatePPM: 150, APR: 1.83},
				Ceiling:   2_000_000,
				Steps: []domain.StepResult{
					{Action: domain.ActionCreate, ListingID: "new-1", OK: true},
					{Action: domain.ActionDisable, ListingID: "new-1", OK: true},
				},
			},
			{Template: "5m_90d", Kind: domain.KindSkipCreate, Reason: domain.ReasonInsufficientCap},
		},
		Orphans: []domain.Decision{
			{Kind: domain.KindDisable, ListingID: "old", Steps: []domain.StepResult{{Action: domain.ActionDisable, ListingID: "old", Err: "boom"}}},
		},
	}
}

func TestSQLiteJournal_SaveAndRecent(t *testing.T) {
	j, err := storage.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, j.SaveRun(ctx, makeReport("r1", now.Add(-time.Hour), true)))
	require.NoError(t, j.SaveRun(ctx, makeReport("r2", now, false)))

	runs, err := j.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Más reciente primero
	assert.Equal(t, "r2", runs[0].RunID)
	assert.False(t, runs[0].DryRun)
	assert.True(t, runs[1].DryRun)

	r := runs[0]
	assert.Equal(t, int64(4_000_000), r.Balance)
	assert.Equal(t, int64(2_000_000), r.TotalAllocatable)
	assert.Equal(t, 7, r.PoolSize)
	assert.Equal(t, 3, r.Decisions)
	assert.Equal(t, 2, r.Mutations) // CREATE + DISABLE huérfana
	assert.Equal(t, 1, r.Errors)
	assert.True(t, r.StartedAt.Equal(now))
}

func TestSQLiteJournal_RecentRunsLimit(t *testing.T) {
	j, err := storage.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	base := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, j.SaveRun(ctx, makeReport(id, base.Add(time.Duration(i)*time.Minute), true)))
	}

	runs, err := j.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
}

func TestSQLiteJournal_AbortedRunWithoutDecisions(t *testing.T) {
	j, err := storage.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	report := &domain.RunReport{RunID: "x", StartedAt: time.Now(), Aborted: "balance unavailable"}
	require.NoError(t, j.SaveRun(ctx, report))

	runs, err := j.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "balance unavailable", runs[0].Aborted)
	assert.Zero(t, runs[0].Decisions)
}

func TestSQLiteJournal_DuplicateRunIDFails(t *testing.T) {
	j, err := storage.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	require.NoError(t, j.SaveRun(ctx, makeReport("dup", time.Now(), true)))
	assert.Error(t, j.SaveRun(ctx, makeReport("dup", time.Now(), true)))
}

func TestSQLiteJournal_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := storage.NewSQLiteJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.SaveRun(ctx, makeReport("keep", time.Now(), false)))
	require.NoError(t, j.Close())

	j, err = storage.NewSQLiteJournal(path)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "keep", runs[0].RunID)
}

func TestSQLiteJournal_PendingFirstEnable(t *testing.T) {
	j, err := storage.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	// Dry-run: la creación no fue real
	require.NoError(t, j.SaveRun(ctx, makeReport("dry", now.Add(-2*time.Hour), true)))
	pending, err := j.PendingFirstEnable(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, j.SaveRun(ctx, makeReport("live", now.Add(-time.Hour), false)))
	pending, err = j.PendingFirstEnable(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"new-1": true}, pending)

	// Un ENABLE fallido no cuenta como activación
	failed := &domain.RunReport{
		RunID: "enable-failed", StartedAt: now.Add(-30 * time.Minute),
		Decisions: []domain.Decision{{
			Template: "1m_30d", Kind: domain.KindEnable, ListingID: "new-1",
			Steps: []domain.StepResult{{Action: domain.ActionEnable, ListingID: "new-1", Err: "toggle returned false"}},
		}},
	}
	require.NoError(t, j.SaveRun(ctx, failed))
	pending, err = j.PendingFirstEnable(ctx)
	require.NoError(t, err)
	assert.True(t, pending["new-1"])

	enabled := &domain.RunReport{
		RunID: "enable-ok", StartedAt: now,
		Decisions: []domain.Decision{{
			Template: "1m_30d", Kind: domain.KindEnable, ListingID: "new-1",
			Steps: []domain.StepResult{{Action: domain.ActionEnable, ListingID: "new-1", OK: true}},
		}},
	}
	require.NoError(t, j.SaveRun(ctx, enabled))
	pending, err = j.PendingFirstEnable(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLiteJournal_PrunesOldRunsOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := storage.NewSQLiteJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.SaveRun(ctx, makeReport("ancient", time.Now().UTC().Add(-200*24*time.Hour), false)))
	require.NoError(t, j.SaveRun(ctx, makeReport("recent", time.Now().UTC(), false)))
	require.NoError(t, j.Close())

	j, err = storage.NewSQLiteJournal(path)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "recent", runs[0].RunID)
}
