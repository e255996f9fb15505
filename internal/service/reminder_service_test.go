package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/model"
)

type fakeNotifier struct {
	sent map[int64][]string
}

func (f *fakeNotifier) Notify(chatID int64, text string) error {
	if f.sent == nil {
		f.sent = make(map[int64][]string)
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}

func TestScanDueDeliversTrailingWindowDigest(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	user, _, err := env.userRepo.UpsertFromTelegram(ctx, 42, "Alice", "", "alice")
	require.NoError(t, err)
	group := env.seedGroup(t, user.ID, "Work")

	// Reminder fired 2 minutes ago: inside the 5-minute trailing window.
	env.seedTask(t, &model.Task{
		UserID: user.ID, GroupID: group.ID, Title: "Call dentist", StartAt: now,
		Reminders: model.TimeList{now.Add(-2 * time.Minute)},
	})
	// Fired 20 minutes ago: outside the window.
	env.seedTask(t, &model.Task{
		UserID: user.ID, GroupID: group.ID, Title: "Too old", StartAt: now,
		Reminders: model.TimeList{now.Add(-20 * time.Minute)},
	})
	// Inside the window but already completed: never notified.
	env.seedTask(t, &model.Task{
		UserID: user.ID, GroupID: group.ID, Title: "Done already", StartAt: now,
		Status: model.StatusCompleted, CompletedAt: &now,
		Reminders: model.TimeList{now.Add(-time.Minute)},
	})

	notifier := &fakeNotifier{}
	svc := NewReminderService(env.taskRepo, env.userRepo, notifier, 5*time.Minute)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.ScanDue(ctx))

	require.Len(t, notifier.sent[42], 1)
	digest := notifier.sent[42][0]
	assert.Contains(t, digest, "Call dentist")
	assert.NotContains(t, digest, "Too old")
	assert.NotContains(t, digest, "Done already")

	// The scan is stateless: a second pass in the same window re-delivers.
	require.NoError(t, svc.ScanDue(ctx))
	assert.Len(t, notifier.sent[42], 2)
}
