package service

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

const (
	// Windows over completed tasks considered by the aggregation.
	avgCompletionSample = 50
	streakSample        = 10
)

// ScoreInput holds the counters the productivity score derives from.
type ScoreInput struct {
	CompletionRate        int
	CurrentStreak         int
	OverdueTasks          int64
	DaysSinceLastActivity int
}

// ProductivityScore derives the bounded 0-100 score: up to 50 from the
// completion rate, up to 30 from the streak, up to 20 subtracted for overdue
// tasks, and up to 20 from activity recency (decaying to zero after 10 idle
// days).
func ProductivityScore(in ScoreInput) int {
	completion := float64(in.CompletionRate) / 100 * 50
	streak := math.Min(float64(in.CurrentStreak)*2, 30)
	penalty := math.Min(float64(in.OverdueTasks)*5, 20)
	activity := math.Max(0, 20-float64(in.DaysSinceLastActivity)*2)

	score := int(math.Round(completion + streak - penalty + activity))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Rank is a user's position among all scored users.
type Rank struct {
	Rank       int64
	TotalUsers int64
	Percentile int
}

// StatsService recomputes the per-user aggregate counters from live task and
// group rows. Recomputation is idempotent and safe to run concurrently for
// the same owner; last write wins.
type StatsService struct {
	statsRepo *repository.StatsRepository
	taskRepo  *repository.TaskRepository
	groupRepo *repository.GroupRepository
	now       func() time.Time
}

func NewStatsService(statsRepo *repository.StatsRepository, taskRepo *repository.TaskRepository, groupRepo *repository.GroupRepository) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
		taskRepo:  taskRepo,
		groupRepo: groupRepo,
		now:       time.Now,
	}
}

// Get returns the owner's stats snapshot, computing it lazily on first read.
func (s *StatsService) Get(ctx context.Context, userID string) (*model.Stats, error) {
	stats, err := s.statsRepo.FindByUser(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return s.Recompute(ctx, userID)
	}
	return stats, err
}

// Recompute rebuilds every counter from the owner's live tasks and groups and
// persists the result. The productivity score is rederived on every write and
// the longest streak is a high-water mark that never decreases.
func (s *StatsService) Recompute(ctx context.Context, userID string) (*model.Stats, error) {
	tasks, err := s.taskRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	groupCount, err := s.groupRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.taskRepo.ListRecentCompleted(ctx, userID, avgCompletionSample)
	if err != nil {
		return nil, err
	}

	now := s.now()
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	stats, err := s.statsRepo.FindByUser(ctx, userID)
	created := false
	if errors.Is(err, apperr.ErrNotFound) {
		stats = &model.Stats{ID: uuid.NewString(), UserID: userID}
		created = true
	} else if err != nil {
		return nil, err
	}

	var total, pending, inProgress, completed, overdue int64
	var low, medium, high int64
	var weekly, monthly int64
	var lastActivity *time.Time

	for i := range tasks {
		t := &tasks[i]
		if t.Status == model.StatusDraft {
			continue // legacy rows, excluded from aggregation
		}
		total++
		switch t.Status {
		case model.StatusPending:
			pending++
		case model.StatusInProgress:
			inProgress++
		case model.StatusCompleted:
			completed++
		}
		if t.IsOverdue(now) {
			overdue++
		}
		switch t.Priority {
		case model.PriorityLow:
			low++
		case model.PriorityMedium:
			medium++
		case model.PriorityHigh:
			high++
		}
		if t.CompletedAt != nil {
			if t.CompletedAt.After(weekAgo) {
				weekly++
			}
			if t.CompletedAt.After(monthAgo) {
				monthly++
			}
			if lastActivity == nil || t.CompletedAt.After(*lastActivity) {
				lastActivity = t.CompletedAt
			}
		}
	}

	completionRate := 0
	if total > 0 {
		completionRate = int(math.Round(float64(completed) / float64(total) * 100))
	}

	streak := currentStreak(recent)
	longest := stats.LongestStreak
	if streak > longest {
		longest = streak
	}

	if lastActivity == nil {
		lastActivity = stats.LastActivity
	}
	daysSinceActivity := 9999
	if lastActivity != nil {
		daysSinceActivity = int(now.Sub(*lastActivity).Hours() / 24)
	}

	stats.TotalTasks = total
	stats.PendingTasks = pending
	stats.InProgressTasks = inProgress
	stats.CompletedTasks = completed
	stats.OverdueTasks = overdue
	stats.LowPriorityTasks = low
	stats.MediumPriorityTasks = medium
	stats.HighPriorityTasks = high
	stats.TotalGroups = groupCount
	stats.CompletionRate = completionRate
	stats.AverageCompletionTime = averageCompletionHours(recent)
	stats.CurrentStreak = streak
	stats.LongestStreak = longest
	stats.WeeklyCompleted = weekly
	stats.MonthlyCompleted = monthly
	stats.LastActivity = lastActivity
	stats.LastUpdated = now
	stats.ProductivityScore = ProductivityScore(ScoreInput{
		CompletionRate:        completionRate,
		CurrentStreak:         streak,
		OverdueTasks:          overdue,
		DaysSinceLastActivity: daysSinceActivity,
	})

	if created {
		if err := s.statsRepo.Create(ctx, stats); err != nil {
			return nil, err
		}
		return stats, nil
	}
	if err := s.statsRepo.Save(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// RecomputeAsync runs Recompute in the background. It is invoked after
// successful task and group mutations; a failed recompute only logs.
func (s *StatsService) RecomputeAsync(userID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.Recompute(ctx, userID); err != nil {
			log.Printf("stats recompute for user %s: %v", userID, err)
		}
	}()
}

// GetUserRank returns the owner's rank and percentile by productivity score.
func (s *StatsService) GetUserRank(ctx context.Context, userID string) (Rank, error) {
	stats, err := s.Get(ctx, userID)
	if err != nil {
		return Rank{}, err
	}
	totalUsers, err := s.statsRepo.CountUsers(ctx)
	if err != nil {
		return Rank{}, err
	}
	higher, err := s.statsRepo.CountHigherScore(ctx, userID, stats.ProductivityScore)
	if err != nil {
		return Rank{}, err
	}

	rank := higher + 1
	percentile := 0
	if totalUsers > 0 {
		percentile = int(math.Round(float64(totalUsers-rank) / float64(totalUsers) * 100))
	}
	return Rank{Rank: rank, TotalUsers: totalUsers, Percentile: percentile}, nil
}

// GetLeaderboard returns the top users by score, completed tasks, streak.
func (s *StatsService) GetLeaderboard(ctx context.Context, limit int) ([]model.Stats, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.statsRepo.ListTop(ctx, limit)
}

// currentStreak walks the most recent completions (newest first) and counts
// consecutive calendar days with at least one completion, starting from the
// most recent completion date and breaking on the first gap. Multiple
// completions on the same day neither extend nor break the streak.
func currentStreak(recent []model.Task) int {
	var days []time.Time
	for i := range recent {
		if i >= streakSample {
			break
		}
		if recent[i].CompletedAt == nil {
			continue
		}
		days = append(days, calendarDay(*recent[i].CompletedAt))
	}
	if len(days) == 0 {
		return 0
	}

	streak := 1
	prev := days[0]
	for _, day := range days[1:] {
		switch {
		case day.Equal(prev):
			continue
		case day.Equal(prev.AddDate(0, 0, -1)):
			streak++
			prev = day
		default:
			return streak
		}
	}
	return streak
}

// averageCompletionHours averages creation-to-completion time over the
// sampled completed tasks that carry both timestamps.
func averageCompletionHours(recent []model.Task) float64 {
	var sum float64
	var n int
	for i := range recent {
		t := &recent[i]
		if t.CompletedAt == nil || t.CreatedAt.IsZero() {
			continue
		}
		sum += t.CompletedAt.Sub(t.CreatedAt).Hours()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
