package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

func TestPromoteInboxToDraft(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.freezeNow(now)
	ctx := context.Background()

	item, err := env.promotions.CreateInboxItem(ctx, "alice", InboxInput{Title: "idea", Notes: "try it"})
	require.NoError(t, err)

	result, err := env.promotions.PromoteInboxToDraft(ctx, "alice", item.ID)
	require.NoError(t, err)

	require.NotNil(t, result.Draft)
	assert.Equal(t, model.DraftSourceInbox, result.Draft.Source)
	assert.Equal(t, "idea", result.Draft.Title)
	assert.Equal(t, "try it", result.Draft.Notes)
	require.NotNil(t, result.Draft.InboxRef)
	assert.Equal(t, item.ID, *result.Draft.InboxRef)
	assert.False(t, result.Draft.IsPromoted)

	require.NotNil(t, result.InboxItem)
	assert.True(t, result.InboxItem.IsPromoted)
	require.NotNil(t, result.InboxItem.PromotedAt)
	assert.True(t, result.InboxItem.PromotedAt.Equal(now))

	// A promoted item cannot be promoted again.
	_, err = env.promotions.PromoteInboxToDraft(ctx, "alice", item.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyPromoted)
}

func TestPromoteInboxToDraftGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.promotions.PromoteInboxToDraft(ctx, "alice", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	item, err := env.promotions.CreateInboxItem(ctx, "alice", InboxInput{Title: "idea"})
	require.NoError(t, err)

	_, err = env.promotions.PromoteInboxToDraft(ctx, "bob", item.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.promotions.SoftDeleteInbox(ctx, "alice", item.ID)
	require.NoError(t, err)
	_, err = env.promotions.PromoteInboxToDraft(ctx, "alice", item.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPromoteDraftToTask(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.freezeNow(now)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	draft, err := env.promotions.CreateDraft(ctx, "alice", DraftInput{Title: "Ship v1", Notes: "finish docs"})
	require.NoError(t, err)

	due := now.AddDate(0, 0, 2)
	result, err := env.promotions.PromoteDraftToTask(ctx, "alice", draft.ID, TaskExtra{
		GroupID:     group.ID,
		Priority:    model.PriorityHigh,
		DueAt:       &due,
		Tags:        []string{"release"},
		IsImportant: true,
	})
	require.NoError(t, err)

	task := result.Task
	require.NotNil(t, task)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.Equal(t, "Ship v1", task.Title)
	assert.Equal(t, "finish docs", task.Description)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.True(t, task.IsImportant)
	require.NotNil(t, task.DraftRef)
	assert.Equal(t, draft.ID, *task.DraftRef)

	assert.True(t, result.Draft.IsPromoted)
	require.NotNil(t, result.Draft.PromotedAt)

	// Second promotion fails and creates no second task.
	_, err = env.promotions.PromoteDraftToTask(ctx, "alice", draft.ID, TaskExtra{GroupID: group.ID})
	assert.ErrorIs(t, err, apperr.ErrAlreadyPromoted)

	tasks, err := env.taskRepo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestPromoteDraftWithBlankTitle(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	draft, err := env.promotions.CreateDraft(ctx, "alice", DraftInput{Title: "   ", Notes: "no title"})
	require.NoError(t, err)

	_, err = env.promotions.PromoteDraftToTask(ctx, "alice", draft.ID, TaskExtra{GroupID: group.ID})
	assert.ErrorIs(t, err, apperr.ErrCannotPromote)

	// Neither a task nor a draft state change happened.
	tasks, err := env.taskRepo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	reread, err := env.draftRepo.FindByID(ctx, "alice", draft.ID)
	require.NoError(t, err)
	assert.False(t, reread.IsPromoted)
	assert.Nil(t, reread.PromotedAt)
}

func TestPromoteDraftRequiresGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.promotions.CreateDraft(ctx, "alice", DraftInput{Title: "orphan"})
	require.NoError(t, err)

	_, err = env.promotions.PromoteDraftToTask(ctx, "alice", draft.ID, TaskExtra{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// The failed promotion left the draft untouched.
	reread, err := env.draftRepo.FindByID(ctx, "alice", draft.ID)
	require.NoError(t, err)
	assert.False(t, reread.IsPromoted)
}

func TestPromoteInboxToTaskDirect(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	item, err := env.promotions.CreateInboxItem(ctx, "alice", InboxInput{Title: "quick win", Notes: "just do it"})
	require.NoError(t, err)

	result, err := env.promotions.PromoteInboxToTask(ctx, "alice", item.ID, false, TaskExtra{GroupID: group.ID})
	require.NoError(t, err)

	require.NotNil(t, result.Task)
	assert.Nil(t, result.Draft)
	assert.Equal(t, model.StatusPending, result.Task.Status)
	require.NotNil(t, result.Task.InboxRef)
	assert.Equal(t, item.ID, *result.Task.InboxRef)
	assert.Nil(t, result.Task.DraftRef)
	assert.True(t, result.InboxItem.IsPromoted)
}

func TestPromoteInboxToTaskViaDraft(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	item, err := env.promotions.CreateInboxItem(ctx, "alice", InboxInput{Title: "two-step"})
	require.NoError(t, err)

	result, err := env.promotions.PromoteInboxToTask(ctx, "alice", item.ID, true, TaskExtra{GroupID: group.ID})
	require.NoError(t, err)

	require.NotNil(t, result.Draft)
	assert.True(t, result.Draft.IsPromoted)
	assert.Equal(t, model.DraftSourceInbox, result.Draft.Source)

	require.NotNil(t, result.Task)
	require.NotNil(t, result.Task.DraftRef)
	assert.Equal(t, result.Draft.ID, *result.Task.DraftRef)
	require.NotNil(t, result.Task.InboxRef)
	assert.Equal(t, item.ID, *result.Task.InboxRef)

	// The inbox item was marked promoted exactly once, at the end.
	assert.True(t, result.InboxItem.IsPromoted)
	_, err = env.promotions.PromoteInboxToTask(ctx, "alice", item.ID, true, TaskExtra{GroupID: group.ID})
	assert.ErrorIs(t, err, apperr.ErrAlreadyPromoted)
}

func TestSoftDeleteInbox(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.freezeNow(now)
	ctx := context.Background()

	item, err := env.promotions.CreateInboxItem(ctx, "alice", InboxInput{Title: "junk"})
	require.NoError(t, err)

	deleted, err := env.promotions.SoftDeleteInbox(ctx, "alice", item.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	require.NotNil(t, deleted.DeletedAt)
	assert.True(t, deleted.DeletedAt.Equal(now))

	// Idempotent on an already-deleted item.
	again, err := env.promotions.SoftDeleteInbox(ctx, "alice", item.ID)
	require.NoError(t, err)
	assert.True(t, again.IsDeleted)

	// The row still exists; soft delete never removes it.
	listed, err := env.promotions.ListInbox(ctx, "alice", true)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
	visible, err := env.promotions.ListInbox(ctx, "alice", false)
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestHardDeleteInbox(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item, err := env.promotions.CreateInboxItem(ctx, "alice", InboxInput{Title: "gone"})
	require.NoError(t, err)

	require.NoError(t, env.promotions.HardDeleteInbox(ctx, "alice", item.ID))
	assert.ErrorIs(t, env.promotions.HardDeleteInbox(ctx, "alice", item.ID), apperr.ErrNotFound)
}

func TestUpdateGuardsOnPromoted(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	item, err := env.promotions.CreateInboxItem(ctx, "alice", InboxInput{Title: "frozen"})
	require.NoError(t, err)
	_, err = env.promotions.PromoteInboxToTask(ctx, "alice", item.ID, false, TaskExtra{GroupID: group.ID})
	require.NoError(t, err)

	_, err = env.promotions.UpdateInboxItem(ctx, "alice", item.ID, InboxInput{Title: "edited"})
	assert.ErrorIs(t, err, apperr.ErrAlreadyPromoted)

	draft, err := env.promotions.CreateDraft(ctx, "alice", DraftInput{Title: "to freeze"})
	require.NoError(t, err)
	_, err = env.promotions.PromoteDraftToTask(ctx, "alice", draft.ID, TaskExtra{GroupID: group.ID})
	require.NoError(t, err)

	_, err = env.promotions.UpdateDraft(ctx, "alice", draft.ID, DraftInput{Title: "edited"})
	assert.ErrorIs(t, err, apperr.ErrAlreadyPromoted)
}

func TestDeleteDraftsSkipsPromotedByDefault(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	kept, err := env.promotions.CreateDraft(ctx, "alice", DraftInput{Title: "promoted"})
	require.NoError(t, err)
	_, err = env.promotions.PromoteDraftToTask(ctx, "alice", kept.ID, TaskExtra{GroupID: group.ID})
	require.NoError(t, err)

	plain, err := env.promotions.CreateDraft(ctx, "alice", DraftInput{Title: "plain"})
	require.NoError(t, err)

	deleted, err := env.promotions.DeleteDrafts(ctx, "alice", []string{kept.ID, plain.ID}, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	// Explicit override removes promoted drafts too.
	deleted, err = env.promotions.DeleteDrafts(ctx, "alice", []string{kept.ID}, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestPromotionUpdatesGroupCount(t *testing.T) {
	env := newTestEnv(t)
	group := env.seedGroup(t, "alice", "Work")
	ctx := context.Background()

	draft, err := env.promotions.CreateDraft(ctx, "alice", DraftInput{Title: "counted"})
	require.NoError(t, err)
	_, err = env.promotions.PromoteDraftToTask(ctx, "alice", draft.ID, TaskExtra{GroupID: group.ID})
	require.NoError(t, err)

	reread, err := env.groupRepo.FindByID(ctx, "alice", group.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, reread.TaskCount)
}
