package model

import "time"

const (
	InboxTitleMaxLen = 200
	InboxNotesMaxLen = 1000
)

// InboxItem is an unstructured capture awaiting triage. Once promoted it is
// immutable outside the promotion paths.
type InboxItem struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"index"`
	Title      string
	Notes      string
	IsPromoted bool
	PromotedAt *time.Time
	IsDeleted  bool
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
