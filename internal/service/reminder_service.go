package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"sort"
	"strings"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// Notifier delivers an advisory message to a user's chat.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// ReminderService runs the background reminder scan: each pass re-queries all
// non-completed tasks with a reminder inside a trailing window and delivers a
// digest per user. The scan is stateless, so delivery is at-least-once with
// no dedup; acceptable because reminders are advisory.
type ReminderService struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	notifier Notifier
	window   time.Duration
	now      func() time.Time
}

func NewReminderService(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository, notifier Notifier, window time.Duration) *ReminderService {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &ReminderService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		notifier: notifier,
		window:   window,
		now:      time.Now,
	}
}

// ScanDue finds every task with a reminder inside [now-window, now] and sends
// one digest per affected user. Per-user delivery failures are logged and do
// not stop the scan.
func (s *ReminderService) ScanDue(ctx context.Context) error {
	tasks, err := s.taskRepo.ListAllNotCompletedWithReminders(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	since := now.Add(-s.window)

	byUser := make(map[string][]model.Task)
	for _, task := range tasks {
		for _, r := range task.Reminders {
			if !r.Before(since) && !r.After(now) {
				byUser[task.UserID] = append(byUser[task.UserID], task)
				break
			}
		}
	}

	for userID, due := range byUser {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			log.Printf("reminder scan: resolve user %s: %v", userID, err)
			continue
		}
		if user.TelegramID == 0 {
			continue
		}
		if err := s.notifier.Notify(user.TelegramID, s.digest(due, now)); err != nil {
			log.Printf("reminder scan: notify user %s: %v", userID, err)
		}
	}
	return nil
}

// digest renders one reminder message for a user's due tasks.
func (s *ReminderService) digest(tasks []model.Task, now time.Time) string {
	sort.SliceStable(tasks, func(i, j int) bool {
		switch {
		case tasks[i].DueAt == nil && tasks[j].DueAt == nil:
			return tasks[i].StartAt.Before(tasks[j].StartAt)
		case tasks[i].DueAt == nil:
			return false
		case tasks[j].DueAt == nil:
			return true
		default:
			return tasks[i].DueAt.Before(*tasks[j].DueAt)
		}
	})

	var builder strings.Builder
	builder.WriteString("⏰ <b>Task reminders</b>\n\n")
	for _, task := range tasks {
		icon := "🔔"
		if task.IsOverdue(now) {
			icon = "⚠️"
		}
		builder.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))
		if task.DueAt != nil {
			builder.WriteString(fmt.Sprintf("\n   📅 due %s", task.DueAt.In(now.Location()).Format("2006-01-02 15:04")))
		}
		builder.WriteByte('\n')
	}
	return strings.TrimSpace(builder.String())
}
