package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string
	Description string
	GroupID     string
	Status      string
	Priority    string
	Tags        []string
	IsImportant bool
	IsAllDay    bool

	StartAt   *time.Time
	DueAt     *time.Time
	DueDate   *time.Time // legacy alias for DueAt, normalized on create
	Reminders []time.Time

	RecurrencePattern  string
	RecurrenceInterval int
	RecurrenceEndDate  *time.Time
	RecurrenceCount    *int
}

// TaskPatch carries optional edits; nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	GroupID     *string
	Status      *string
	Priority    *string
	Tags        *[]string
	IsImportant *bool
	IsAllDay    *bool
	StartAt     *time.Time
	DueAt       *time.Time
	Reminders   *[]time.Time
}

// TaskStatusCounts is the status-count aggregate for an owner.
type TaskStatusCounts struct {
	Total      int64
	Pending    int64
	InProgress int64
	Completed  int64
}

// CompletedQuery filters and pages GetCompletedTasks.
type CompletedQuery struct {
	GroupID string
	DaysAgo int
	Limit   int
	Offset  int
}

// TaskService owns the task lifecycle: creation, status transitions,
// recurrence expansion, bulk operations and retention cleanup. Every
// successful mutation refreshes the affected group counts and kicks off an
// asynchronous statistics recompute; failures in either are logged, never
// propagated.
type TaskService struct {
	taskRepo  *repository.TaskRepository
	groupRepo *repository.GroupRepository
	groups    *GroupService
	stats     *StatsService
	now       func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, groupRepo *repository.GroupRepository, groups *GroupService, stats *StatsService) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		groupRepo: groupRepo,
		groups:    groups,
		stats:     stats,
		now:       time.Now,
	}
}

// Create validates and persists a new task.
func (s *TaskService) Create(ctx context.Context, userID string, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > model.TitleMaxLen {
		return nil, fmt.Errorf("title must be 1-%d characters: %w", model.TitleMaxLen, apperr.ErrValidation)
	}
	if len(input.Description) > model.DescriptionMaxLen {
		return nil, fmt.Errorf("description too long: %w", apperr.ErrValidation)
	}
	if input.GroupID == "" {
		return nil, fmt.Errorf("group is required: %w", apperr.ErrValidation)
	}
	if _, err := s.groupRepo.FindByID(ctx, userID, input.GroupID); err != nil {
		return nil, fmt.Errorf("resolve group: %w", err)
	}

	status := input.Status
	if status == "" {
		status = model.StatusPending
	}
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("invalid status %q: %w", status, apperr.ErrValidation)
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("invalid priority %q: %w", priority, apperr.ErrValidation)
	}
	pattern := input.RecurrencePattern
	if pattern == "" {
		pattern = model.RecurNone
	}
	if !model.ValidRecurrence(pattern) {
		return nil, fmt.Errorf("invalid recurrence %q: %w", pattern, apperr.ErrValidation)
	}
	interval := input.RecurrenceInterval
	if interval <= 0 {
		interval = 1
	}

	now := s.now()
	dueAt := input.DueAt
	if dueAt == nil {
		dueAt = input.DueDate
	}
	startAt := now
	if input.StartAt != nil {
		startAt = *input.StartAt
	}

	task := model.Task{
		ID:                 uuid.NewString(),
		UserID:             userID,
		GroupID:            input.GroupID,
		Title:              title,
		Description:        input.Description,
		Status:             status,
		Priority:           priority,
		Tags:               model.StringList(input.Tags),
		IsImportant:        input.IsImportant,
		IsAllDay:           input.IsAllDay,
		StartAt:            startAt,
		DueAt:              dueAt,
		Reminders:          sortedReminders(input.Reminders),
		RecurrencePattern:  pattern,
		RecurrenceInterval: interval,
		RecurrenceEndDate:  input.RecurrenceEndDate,
		RecurrenceCount:    input.RecurrenceCount,
	}
	if status == model.StatusCompleted {
		task.CompletedAt = &now
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}

	s.afterMutation(userID, task.GroupID)
	return &task, nil
}

// Get returns a task by id, owner-scoped.
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, userID, taskID)
}

// Update applies a patch to a task. A group change refreshes both the old and
// new groups' cached counts.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, patch TaskPatch) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	prevGroup := task.GroupID
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" || len(title) > model.TitleMaxLen {
			return nil, fmt.Errorf("title must be 1-%d characters: %w", model.TitleMaxLen, apperr.ErrValidation)
		}
		task.Title = title
	}
	if patch.Description != nil {
		if len(*patch.Description) > model.DescriptionMaxLen {
			return nil, fmt.Errorf("description too long: %w", apperr.ErrValidation)
		}
		task.Description = *patch.Description
	}
	if patch.GroupID != nil && *patch.GroupID != task.GroupID {
		if _, err := s.groupRepo.FindByID(ctx, userID, *patch.GroupID); err != nil {
			return nil, fmt.Errorf("resolve group: %w", err)
		}
		task.GroupID = *patch.GroupID
	}
	if patch.Status != nil {
		if !model.ValidStatus(*patch.Status) {
			return nil, fmt.Errorf("invalid status %q: %w", *patch.Status, apperr.ErrValidation)
		}
		task.Status = *patch.Status
		if task.Status == model.StatusCompleted {
			if task.CompletedAt == nil {
				now := s.now()
				task.CompletedAt = &now
			}
		} else {
			task.CompletedAt = nil
		}
	}
	if patch.Priority != nil {
		if !model.ValidPriority(*patch.Priority) {
			return nil, fmt.Errorf("invalid priority %q: %w", *patch.Priority, apperr.ErrValidation)
		}
		task.Priority = *patch.Priority
	}
	if patch.Tags != nil {
		task.Tags = model.StringList(*patch.Tags)
	}
	if patch.IsImportant != nil {
		task.IsImportant = *patch.IsImportant
	}
	if patch.IsAllDay != nil {
		task.IsAllDay = *patch.IsAllDay
	}
	if patch.StartAt != nil {
		task.StartAt = *patch.StartAt
	}
	if patch.DueAt != nil {
		task.DueAt = patch.DueAt
		if task.StartAt.IsZero() {
			task.StartAt = s.now()
		}
	}
	if patch.Reminders != nil {
		task.Reminders = sortedReminders(*patch.Reminders)
	}

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}

	if task.GroupID != prevGroup {
		s.afterMutation(userID, prevGroup, task.GroupID)
	} else {
		s.afterMutation(userID, task.GroupID)
	}
	return task, nil
}

// Complete marks a task completed, dropping only reminders that already
// fired. Recurrence expansion runs best-effort: its failure is logged and
// never blocks the completion.
func (s *TaskService) Complete(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == model.StatusCompleted {
		return nil, fmt.Errorf("task %s: %w", taskID, apperr.ErrAlreadyCompleted)
	}

	now := s.now()
	task.Status = model.StatusCompleted
	task.CompletedAt = &now
	task.Reminders = futureReminders(task.Reminders, now)

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}

	if task.RecurrencePattern != model.RecurNone {
		if _, err := s.expandRecurrence(ctx, task); err != nil {
			log.Printf("recurrence expansion for task %s: %v", task.ID, err)
		}
	}

	s.afterMutation(userID, task.GroupID)
	return task, nil
}

// Revive returns a completed task to pending. A task that was in-progress
// before completion is not restored to in-progress.
func (s *TaskService) Revive(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.StatusCompleted {
		return nil, fmt.Errorf("task %s: %w", taskID, apperr.ErrNotCompleted)
	}

	task.Status = model.StatusPending
	task.CompletedAt = nil
	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}

	s.afterMutation(userID, task.GroupID)
	return task, nil
}

// ToggleCompletion dispatches to Complete or Revive based on current status.
func (s *TaskService) ToggleCompletion(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == model.StatusCompleted {
		return s.Revive(ctx, userID, taskID)
	}
	return s.Complete(ctx, userID, taskID)
}

// Delete removes a task permanently.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	task, err := s.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if _, err := s.taskRepo.Delete(ctx, userID, taskID); err != nil {
		return err
	}
	s.afterMutation(userID, task.GroupID)
	return nil
}

// expandRecurrence creates the next occurrence of a repeating task. Start,
// due date and every reminder shift by the same delta, preserving relative
// offsets. Expansion stops at the recurrence end date or when the remaining
// count runs out; the count decrements on each occurrence.
func (s *TaskService) expandRecurrence(ctx context.Context, task *model.Task) (*model.Task, error) {
	if task.RecurrencePattern == model.RecurNone {
		return nil, nil
	}

	interval := task.RecurrenceInterval
	if interval <= 0 {
		interval = 1
	}

	var nextStart time.Time
	switch task.RecurrencePattern {
	case model.RecurDaily:
		nextStart = task.StartAt.AddDate(0, 0, interval)
	case model.RecurWeekly:
		nextStart = task.StartAt.AddDate(0, 0, 7*interval)
	case model.RecurMonthly:
		nextStart = task.StartAt.AddDate(0, interval, 0)
	case model.RecurYearly:
		nextStart = task.StartAt.AddDate(interval, 0, 0)
	default:
		return nil, fmt.Errorf("unknown recurrence pattern %q", task.RecurrencePattern)
	}

	if task.RecurrenceEndDate != nil && nextStart.After(*task.RecurrenceEndDate) {
		return nil, nil
	}
	if task.RecurrenceCount != nil && *task.RecurrenceCount <= 1 {
		return nil, nil
	}

	delta := nextStart.Sub(task.StartAt)

	next := model.Task{
		ID:                 uuid.NewString(),
		UserID:             task.UserID,
		GroupID:            task.GroupID,
		Title:              task.Title,
		Description:        task.Description,
		Status:             model.StatusPending,
		Priority:           task.Priority,
		Tags:               append(model.StringList(nil), task.Tags...),
		IsImportant:        task.IsImportant,
		IsAllDay:           task.IsAllDay,
		StartAt:            nextStart,
		RecurrencePattern:  task.RecurrencePattern,
		RecurrenceInterval: task.RecurrenceInterval,
		RecurrenceEndDate:  task.RecurrenceEndDate,
	}
	if task.DueAt != nil {
		due := task.DueAt.Add(delta)
		next.DueAt = &due
	}
	if len(task.Reminders) > 0 {
		shifted := make(model.TimeList, len(task.Reminders))
		for i, r := range task.Reminders {
			shifted[i] = r.Add(delta)
		}
		next.Reminders = shifted
	}
	if task.RecurrenceCount != nil {
		remaining := *task.RecurrenceCount - 1
		next.RecurrenceCount = &remaining
	}

	if err := s.taskRepo.Create(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// BulkComplete completes all matching non-completed tasks owned by userID and
// clears every reminder on them, fired or not. It deliberately does not
// expand recurrences for the affected tasks.
func (s *TaskService) BulkComplete(ctx context.Context, userID string, taskIDs []string) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	modified, err := s.taskRepo.BulkComplete(ctx, userID, taskIDs, s.now())
	if err != nil {
		return 0, err
	}
	if modified > 0 {
		s.afterBulkMutation(ctx, userID)
	}
	return modified, nil
}

// BulkRevive returns all matching completed tasks to pending.
func (s *TaskService) BulkRevive(ctx context.Context, userID string, taskIDs []string) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	modified, err := s.taskRepo.BulkRevive(ctx, userID, taskIDs)
	if err != nil {
		return 0, err
	}
	if modified > 0 {
		s.afterBulkMutation(ctx, userID)
	}
	return modified, nil
}

// MoveToGroup reassigns the listed tasks to another group and refreshes the
// cached counts of every affected source group plus the destination.
func (s *TaskService) MoveToGroup(ctx context.Context, userID string, taskIDs []string, groupID string) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	if _, err := s.groupRepo.FindByID(ctx, userID, groupID); err != nil {
		return 0, fmt.Errorf("resolve group: %w", err)
	}

	affected := map[string]struct{}{groupID: {}}
	var moved int64
	for _, id := range taskIDs {
		task, err := s.taskRepo.FindByID(ctx, userID, id)
		if err != nil {
			continue
		}
		if task.GroupID == groupID {
			continue
		}
		affected[task.GroupID] = struct{}{}
		task.GroupID = groupID
		if err := s.taskRepo.Save(ctx, task); err != nil {
			return moved, err
		}
		moved++
	}

	groupIDs := make([]string, 0, len(affected))
	for id := range affected {
		groupIDs = append(groupIDs, id)
	}
	s.afterMutation(userID, groupIDs...)
	return moved, nil
}

// CleanupCompleted permanently deletes completed tasks older than daysOld
// days. Returns the number deleted.
func (s *TaskService) CleanupCompleted(ctx context.Context, userID string, daysOld int) (int64, error) {
	if daysOld < 0 {
		return 0, fmt.Errorf("daysOld must be non-negative: %w", apperr.ErrValidation)
	}
	cutoff := s.now().AddDate(0, 0, -daysOld)
	deleted, err := s.taskRepo.DeleteCompletedBefore(ctx, userID, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.afterBulkMutation(ctx, userID)
	}
	return deleted, nil
}

// GetTaskStats returns status counts for an owner, optionally filtered to a
// group. Legacy draft-status rows are excluded from the total.
func (s *TaskService) GetTaskStats(ctx context.Context, userID, groupID string) (TaskStatusCounts, error) {
	counts, err := s.taskRepo.StatusCounts(ctx, userID, groupID)
	if err != nil {
		return TaskStatusCounts{}, err
	}
	out := TaskStatusCounts{
		Pending:    counts[model.StatusPending],
		InProgress: counts[model.StatusInProgress],
		Completed:  counts[model.StatusCompleted],
	}
	out.Total = out.Pending + out.InProgress + out.Completed
	return out, nil
}

// GetCompletedTasks returns completed tasks, most recent first, paginated.
func (s *TaskService) GetCompletedTasks(ctx context.Context, userID string, q CompletedQuery) ([]model.Task, int64, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	var since *time.Time
	if q.DaysAgo > 0 {
		cutoff := s.now().AddDate(0, 0, -q.DaysAgo)
		since = &cutoff
	}
	return s.taskRepo.ListCompleted(ctx, userID, q.GroupID, since, limit, q.Offset)
}

// GetCalendarTasks returns tasks overlapping [start, end].
func (s *TaskService) GetCalendarTasks(ctx context.Context, userID string, start, end time.Time) ([]model.Task, error) {
	return s.taskRepo.ListCalendar(ctx, userID, start, end)
}

// GetUpcomingReminders returns the owner's non-completed tasks with at least
// one reminder inside the next `hours` hours.
func (s *TaskService) GetUpcomingReminders(ctx context.Context, userID string, hours int) ([]model.Task, error) {
	tasks, err := s.taskRepo.ListNotCompletedWithReminders(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	until := now.Add(time.Duration(hours) * time.Hour)

	var due []model.Task
	for _, task := range tasks {
		for _, r := range task.Reminders {
			if !r.Before(now) && !r.After(until) {
				due = append(due, task)
				break
			}
		}
	}
	return due, nil
}

// afterMutation refreshes the cached count of each named group and schedules
// a stats recompute. Both are side effects of an already-successful
// operation, so failures are logged and swallowed.
func (s *TaskService) afterMutation(userID string, groupIDs ...string) {
	ctx := context.Background()
	for _, groupID := range groupIDs {
		if groupID == "" {
			continue
		}
		if err := s.groups.UpdateTaskCount(ctx, groupID); err != nil {
			log.Printf("group count fixup %s: %v", groupID, err)
		}
	}
	s.stats.RecomputeAsync(userID)
}

// afterBulkMutation refreshes every group of the owner; bulk operations do
// not track which groups they touched.
func (s *TaskService) afterBulkMutation(ctx context.Context, userID string) {
	groups, err := s.groupRepo.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("group count fixup for user %s: %v", userID, err)
		s.stats.RecomputeAsync(userID)
		return
	}
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	s.afterMutation(userID, ids...)
}

func sortedReminders(reminders []time.Time) model.TimeList {
	if len(reminders) == 0 {
		return nil
	}
	out := make(model.TimeList, len(reminders))
	copy(out, reminders)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func futureReminders(reminders model.TimeList, now time.Time) model.TimeList {
	var kept model.TimeList
	for _, r := range reminders {
		if r.After(now) {
			kept = append(kept, r)
		}
	}
	return kept
}
