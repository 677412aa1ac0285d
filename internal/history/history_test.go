// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/buildcfg/internal/args"
	"github.com/ManuGH/buildcfg/internal/history"
	"github.com/ManuGH/buildcfg/internal/snapshot"
	"github.com/ManuGH/buildcfg/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func evalSnapshot(id string, createdAt time.Time) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		ID:                id,
		CreatedAt:         createdAt,
		Tool:              "test",
		TargetEnvironment: target.EnvSimulator,
		TargetCPU:         target.CPUX64,
		Args: map[string]args.Value{
			"target_environment": {Raw: "simulator", Source: args.SourceDefault},
			"target_cpu":         {Raw: "x64", Source: args.SourceFlag},
		},
	}
}

func TestRecordAndRecentEvaluations(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordEvaluation(ctx, evalSnapshot("eval-1", base)))
	require.NoError(t, s.RecordEvaluation(ctx, evalSnapshot("eval-2", base.Add(time.Hour))))

	evals, err := s.RecentEvaluations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, evals, 2)

	assert.Equal(t, "eval-2", evals[0].SnapshotID)
	assert.Equal(t, "eval-1", evals[1].SnapshotID)
	assert.Equal(t, "simulator", evals[0].TargetEnvironment)
	assert.Equal(t, "x64", evals[0].TargetCPU)
	assert.False(t, evals[0].IsCronetBuild)
	assert.Equal(t, "simulator", evals[0].Args["target_environment"])
}

func TestRecordEvaluationReplacesSameSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	first := evalSnapshot("eval-dup", base)
	require.NoError(t, s.RecordEvaluation(ctx, first))

	second := evalSnapshot("eval-dup", base.Add(time.Minute))
	second.TargetEnvironment = target.EnvDevice
	require.NoError(t, s.RecordEvaluation(ctx, second))

	evals, err := s.RecentEvaluations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, "device", evals[0].TargetEnvironment)
}

func TestRecentEvaluationsLimit(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		snap := evalSnapshot("eval-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.RecordEvaluation(ctx, snap))
	}

	evals, err := s.RecentEvaluations(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, evals, 3)
	assert.Equal(t, "eval-e", evals[0].SnapshotID)
}

func TestSizeDiffHistory(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	latest, err := s.LatestSizeDiff(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest, "empty history has no latest size diff")

	id, err := s.RecordSizeDiff(ctx, history.SizeDiff{
		CheckedAt:          time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Status:             "pass",
		Packages:           4,
		ThresholdBytes:     12288,
		LargestGrowthBytes: 1024,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.RecordSizeDiff(ctx, history.SizeDiff{
		CheckedAt:          time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		SnapshotID:         "eval-1",
		Status:             "fail",
		Packages:           4,
		ThresholdBytes:     12288,
		LargestGrowthBytes: 20480,
	})
	require.NoError(t, err)

	latest, err = s.LatestSizeDiff(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "fail", latest.Status)
	assert.Equal(t, int64(20480), latest.LargestGrowthBytes)
	assert.Equal(t, "eval-1", latest.SnapshotID)

	recs, err := s.RecentSizeDiffs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "fail", recs[0].Status)
	assert.Equal(t, "pass", recs[1].Status)
}

func TestRecordSizeDiffRejectsBadStatus(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.RecordSizeDiff(ctx, history.SizeDiff{
		Status:         "maybe",
		ThresholdBytes: 12288,
	})
	require.Error(t, err, "CHECK constraint must reject unknown status")
}
