package model

import "time"

// Stats is the per-user aggregate counters record, exactly one row per user.
// Every field is recomputed from live Task and Group rows on each update;
// ProductivityScore is a pure function of the other counters and is never
// written independently. LongestStreak only ever grows.
type Stats struct {
	ID     string `gorm:"primaryKey"`
	UserID string `gorm:"uniqueIndex"`

	TotalTasks      int64
	PendingTasks    int64
	InProgressTasks int64
	CompletedTasks  int64
	OverdueTasks    int64

	LowPriorityTasks    int64
	MediumPriorityTasks int64
	HighPriorityTasks   int64

	TotalGroups int64

	CompletionRate        int     // percent, rounded
	AverageCompletionTime float64 // hours
	ProductivityScore     int     // 0-100

	CurrentStreak    int
	LongestStreak    int
	WeeklyCompleted  int64
	MonthlyCompleted int64

	LastUpdated  time.Time
	LastActivity *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
