package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

// TaskRepository handles CRUD and aggregate queries for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindByID returns the task matching id and owner, or apperr.ErrNotFound.
// An id owned by another user is indistinguishable from a missing one.
func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// Delete removes a task for the given user and reports whether a row matched.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).
		Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// CountByGroup returns the live number of tasks referencing a group. This is
// the source of truth behind Group.TaskCount.
func (r *TaskRepository) CountByGroup(ctx context.Context, groupID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("group_id = ?", groupID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count group tasks: %w", err)
	}
	return count, nil
}

// StatusCounts aggregates task counts by status for an owner, optionally
// restricted to one group.
func (r *TaskRepository) StatusCounts(ctx context.Context, userID, groupID string) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row

	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("status, count(*) as count").
		Where("user_id = ?", userID)
	if groupID != "" {
		q = q.Where("group_id = ?", groupID)
	}
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate status counts: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ListCompleted returns completed tasks ordered by completion time descending,
// with offset pagination and optional group / recency filters.
func (r *TaskRepository) ListCompleted(ctx context.Context, userID, groupID string, since *time.Time, limit, offset int) ([]model.Task, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND status = ?", userID, model.StatusCompleted)
	if groupID != "" {
		q = q.Where("group_id = ?", groupID)
	}
	if since != nil {
		q = q.Where("completed_at >= ?", *since)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count completed tasks: %w", err)
	}

	var tasks []model.Task
	if err := q.Order("completed_at DESC").Limit(limit).Offset(offset).Find(&tasks).Error; err != nil {
		return nil, 0, fmt.Errorf("list completed tasks: %w", err)
	}
	return tasks, total, nil
}

// ListRecentCompleted returns up to limit completed tasks, most recent first.
func (r *TaskRepository) ListRecentCompleted(ctx context.Context, userID string, limit int) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND completed_at IS NOT NULL", userID, model.StatusCompleted).
		Order("completed_at DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list recent completed: %w", err)
	}
	return tasks, nil
}

// ListCalendar returns tasks overlapping [start, end]: startAt in range,
// dueAt in range, or the task spanning the whole range.
func (r *TaskRepository) ListCalendar(ctx context.Context, userID string, start, end time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(
			r.db.Where("start_at BETWEEN ? AND ?", start, end).
				Or("due_at BETWEEN ? AND ?", start, end).
				Or("start_at <= ? AND due_at >= ?", start, end),
		).
		Order("start_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list calendar tasks: %w", err)
	}
	return tasks, nil
}

// ListNotCompletedWithReminders returns an owner's non-completed tasks that
// carry at least one reminder. Reminder timestamps live in a JSON column, so
// window filtering happens in the caller.
func (r *TaskRepository) ListNotCompletedWithReminders(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, model.StatusCompleted).
		Where("reminders IS NOT NULL AND reminders <> '' AND reminders <> '[]'").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks with reminders: %w", err)
	}
	return tasks, nil
}

// ListAllNotCompletedWithReminders is the cross-user variant used by the
// background reminder scan.
func (r *TaskRepository) ListAllNotCompletedWithReminders(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("status <> ?", model.StatusCompleted).
		Where("reminders IS NOT NULL AND reminders <> '' AND reminders <> '[]'").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("scan tasks with reminders: %w", err)
	}
	return tasks, nil
}

// BulkComplete marks the matching non-completed tasks completed, clearing all
// reminders unconditionally. Returns the number of rows modified.
func (r *TaskRepository) BulkComplete(ctx context.Context, userID string, taskIDs []string, completedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id IN ? AND status <> ?", userID, taskIDs, model.StatusCompleted).
		Updates(map[string]interface{}{
			"status":       model.StatusCompleted,
			"completed_at": completedAt,
			"reminders":    "[]",
		})
	if res.Error != nil {
		return 0, fmt.Errorf("bulk complete: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// BulkRevive returns the matching completed tasks to pending.
func (r *TaskRepository) BulkRevive(ctx context.Context, userID string, taskIDs []string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id IN ? AND status = ?", userID, taskIDs, model.StatusCompleted).
		Updates(map[string]interface{}{
			"status":       model.StatusPending,
			"completed_at": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("bulk revive: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteCompletedBefore permanently removes completed tasks finished before
// the cutoff. Irreversible.
func (r *TaskRepository) DeleteCompletedBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND completed_at < ?", userID, model.StatusCompleted, cutoff).
		Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("cleanup completed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
