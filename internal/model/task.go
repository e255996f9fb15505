package model

import (
	"math"
	"time"
)

// Task statuses. StatusDraft is deprecated in favor of the Draft entity but
// legacy rows may still carry it; aggregation excludes it from totals.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusDraft      = "draft"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Recurrence patterns. RecurNone means the task never expands.
const (
	RecurNone    = "none"
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
	RecurYearly  = "yearly"
)

const (
	TitleMaxLen       = 100
	DescriptionMaxLen = 500
)

// Task represents a single unit of work, always scoped to its owner.
type Task struct {
	ID          string     `gorm:"primaryKey"`
	UserID      string     `gorm:"index"`
	GroupID     string     `gorm:"index"`
	Title       string
	Description string
	Status      string     `gorm:"index;default:pending"`
	Priority    string     `gorm:"default:medium"`
	Tags        StringList `gorm:"type:text"`
	IsImportant bool
	IsAllDay    bool

	StartAt     time.Time
	DueAt       *time.Time
	CompletedAt *time.Time
	Reminders   TimeList `gorm:"type:text"`

	RecurrencePattern  string `gorm:"default:none"`
	RecurrenceInterval int    `gorm:"default:1"`
	RecurrenceEndDate  *time.Time
	RecurrenceCount    *int

	// Back-references left by promotion, for traceability.
	DraftRef *string
	InboxRef *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOverdue reports whether the task's due date has passed without completion.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueAt != nil && t.DueAt.Before(now) && t.Status != StatusCompleted
}

// DaysUntilDue returns whole days until the due date, negative when overdue.
// Returns 0 when no due date is set.
func (t *Task) DaysUntilDue(now time.Time) int {
	if t.DueAt == nil {
		return 0
	}
	return int(math.Ceil(t.DueAt.Sub(now).Hours() / 24))
}

// ValidStatus reports whether s is an accepted status for new writes.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// ValidPriority reports whether p is a member of the priority enum.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidRecurrence reports whether p is a member of the recurrence enum.
func ValidRecurrence(p string) bool {
	switch p {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly, RecurYearly:
		return true
	}
	return false
}
