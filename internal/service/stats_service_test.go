package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/model"
)

func TestProductivityScore(t *testing.T) {
	tests := []struct {
		name string
		in   ScoreInput
		want int
	}{
		{
			name: "perfect",
			in:   ScoreInput{CompletionRate: 100, CurrentStreak: 15, OverdueTasks: 0, DaysSinceLastActivity: 0},
			want: 100,
		},
		{
			name: "worst clamps to zero",
			in:   ScoreInput{CompletionRate: 0, CurrentStreak: 0, OverdueTasks: 10, DaysSinceLastActivity: 30},
			want: 0,
		},
		{
			name: "streak capped at 30",
			in:   ScoreInput{CompletionRate: 0, CurrentStreak: 50, OverdueTasks: 0, DaysSinceLastActivity: 30},
			want: 30,
		},
		{
			name: "overdue penalty capped at 20",
			in:   ScoreInput{CompletionRate: 100, CurrentStreak: 0, OverdueTasks: 100, DaysSinceLastActivity: 30},
			want: 30,
		},
		{
			name: "activity decays to zero after ten days",
			in:   ScoreInput{CompletionRate: 0, CurrentStreak: 0, OverdueTasks: 0, DaysSinceLastActivity: 10},
			want: 0,
		},
		{
			name: "upper clamp",
			in:   ScoreInput{CompletionRate: 100, CurrentStreak: 50, OverdueTasks: 0, DaysSinceLastActivity: 0},
			want: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProductivityScore(tt.in))
		})
	}
}

func TestRecomputeCounters(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.freezeNow(now)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	env.seedTask(t, &model.Task{UserID: "alice", GroupID: group.ID, Title: "p", StartAt: now, Priority: model.PriorityLow})
	env.seedTask(t, &model.Task{UserID: "alice", GroupID: group.ID, Title: "i", StartAt: now, Status: model.StatusInProgress, Priority: model.PriorityHigh})

	weekOld := now.AddDate(0, 0, -3)
	env.seedTask(t, &model.Task{
		UserID: "alice", GroupID: group.ID, Title: "c", StartAt: weekOld,
		Status: model.StatusCompleted, CompletedAt: &weekOld,
	})

	// Overdue: due yesterday, still pending.
	env.seedTask(t, &model.Task{
		UserID: "alice", GroupID: group.ID, Title: "late", StartAt: now.AddDate(0, 0, -2),
		DueAt: timePtr(now.AddDate(0, 0, -1)),
	})

	// Legacy draft-status rows are excluded from aggregation entirely.
	env.seedTask(t, &model.Task{UserID: "alice", GroupID: group.ID, Title: "legacy", StartAt: now, Status: model.StatusDraft})

	stats, err := env.stats.Recompute(ctx, "alice")
	require.NoError(t, err)

	assert.EqualValues(t, 4, stats.TotalTasks)
	assert.EqualValues(t, 2, stats.PendingTasks)
	assert.EqualValues(t, 1, stats.InProgressTasks)
	assert.EqualValues(t, 1, stats.CompletedTasks)
	assert.EqualValues(t, 1, stats.OverdueTasks)
	assert.EqualValues(t, 1, stats.LowPriorityTasks)
	assert.EqualValues(t, 2, stats.MediumPriorityTasks)
	assert.EqualValues(t, 1, stats.HighPriorityTasks)
	assert.EqualValues(t, 1, stats.TotalGroups)
	assert.Equal(t, 25, stats.CompletionRate)
	assert.EqualValues(t, 1, stats.WeeklyCompleted)
	assert.EqualValues(t, 1, stats.MonthlyCompleted)
	require.NotNil(t, stats.LastActivity)
	assert.True(t, stats.LastActivity.Equal(weekOld))
}

func TestRecomputeLazyCreatesSingleRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// First read creates the row.
	stats, err := env.stats.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", stats.UserID)
	assert.EqualValues(t, 0, stats.TotalTasks)

	_, err = env.stats.Recompute(ctx, "alice")
	require.NoError(t, err)

	count, err := env.statsRepo.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestCurrentStreakWalk(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.freezeNow(now)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	// Completions on three consecutive days, two on the same day, then a gap.
	for _, offset := range []int{0, 0, -1, -2, -5} {
		completedAt := now.AddDate(0, 0, offset)
		env.seedTask(t, &model.Task{
			UserID: "alice", GroupID: group.ID, Title: "t", StartAt: completedAt,
			Status: model.StatusCompleted, CompletedAt: &completedAt,
		})
	}

	stats, err := env.stats.Recompute(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)
}

func TestLongestStreakNeverDecreases(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.freezeNow(now)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	var ids []string
	for _, offset := range []int{0, -1, -2} {
		completedAt := now.AddDate(0, 0, offset)
		task := env.seedTask(t, &model.Task{
			UserID: "alice", GroupID: group.ID, Title: "t", StartAt: completedAt,
			Status: model.StatusCompleted, CompletedAt: &completedAt,
		})
		ids = append(ids, task.ID)
	}

	stats, err := env.stats.Recompute(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)

	// Reviving the middle task breaks the chain; the high-water mark holds.
	_, err = env.taskRepo.BulkRevive(ctx, "alice", ids[1:2])
	require.NoError(t, err)

	stats, err = env.stats.Recompute(ctx, "alice")
	require.NoError(t, err)
	assert.Less(t, stats.CurrentStreak, 3)
	assert.Equal(t, 3, stats.LongestStreak)
}

func TestAverageCompletionTime(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.freezeNow(now)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	// Two tasks completed 2h and 4h after creation. CreatedAt is set by the
	// store at insert time, so steer it through the repository directly.
	for _, hours := range []int{2, 4} {
		completedAt := now
		task := env.seedTask(t, &model.Task{
			UserID: "alice", GroupID: group.ID, Title: "t", StartAt: now,
			Status: model.StatusCompleted, CompletedAt: &completedAt,
		})
		task.CreatedAt = now.Add(-time.Duration(hours) * time.Hour)
		require.NoError(t, env.taskRepo.Save(ctx, task))
	}

	stats, err := env.stats.Recompute(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, stats.AverageCompletionTime, 0.01)
}

func TestScoreRecomputedOnEveryWrite(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.freezeNow(now)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	completedAt := now
	env.seedTask(t, &model.Task{
		UserID: "alice", GroupID: group.ID, Title: "done", StartAt: now,
		Status: model.StatusCompleted, CompletedAt: &completedAt,
	})

	stats, err := env.stats.Recompute(ctx, "alice")
	require.NoError(t, err)

	// 100% completion (50) + streak 1 (2) - 0 + fresh activity (20).
	assert.Equal(t, 72, stats.ProductivityScore)
}

func TestGetUserRankAndLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.freezeNow(now)
	ctx := context.Background()

	// alice: one completed task; bob: one pending task; carol: nothing.
	groupA := env.seedGroup(t, "alice", "Work")
	completedAt := now
	env.seedTask(t, &model.Task{
		UserID: "alice", GroupID: groupA.ID, Title: "done", StartAt: now,
		Status: model.StatusCompleted, CompletedAt: &completedAt,
	})
	groupB := env.seedGroup(t, "bob", "Work")
	env.seedTask(t, &model.Task{UserID: "bob", GroupID: groupB.ID, Title: "open", StartAt: now})

	for _, user := range []string{"alice", "bob", "carol"} {
		_, err := env.stats.Recompute(ctx, user)
		require.NoError(t, err)
	}

	rank, err := env.stats.GetUserRank(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rank.Rank)
	assert.EqualValues(t, 3, rank.TotalUsers)
	assert.Equal(t, 67, rank.Percentile)

	board, err := env.stats.GetLeaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "alice", board[0].UserID)
	assert.GreaterOrEqual(t, board[0].ProductivityScore, board[1].ProductivityScore)
}
