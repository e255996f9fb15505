package model

import "time"

const (
	GroupNameMaxLen        = 50
	GroupDescriptionMaxLen = 200
)

// Group is a user-defined task bucket. TaskCount is a denormalized cache,
// recomputed from live tasks after every task mutation — never authoritative.
type Group struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index"`
	Name        string
	Description string
	Color       string
	Icon        string
	IsDefault   bool
	TaskCount   int64 `gorm:"default:0"`

	// Optional completion tracking.
	EndGoal      string
	ExpectedDate *time.Time
	IsCompleted  bool
	CompletedAt  *time.Time
	CompletedBy  string

	CreatedAt time.Time
	UpdatedAt time.Time
}
