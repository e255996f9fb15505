package model

import (
	"strings"
	"time"
)

// Draft sources.
const (
	DraftSourceInbox    = "inbox"
	DraftSourceQuick    = "quick"
	DraftSourceTaskForm = "taskform"
)

const (
	DraftTitleMaxLen = 200
	DraftNotesMaxLen = 5000
)

// Draft is an intermediate, promotable task stub. IsPromoted is monotonic:
// once true the draft is frozen and can only be read.
type Draft struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"index"`
	Title      string
	Notes      string
	Source     string `gorm:"default:quick"`
	InboxRef   *string
	IsPromoted bool
	PromotedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CanPromote reports whether the draft satisfies the promotability
// precondition: unpromoted with a non-blank title.
func (d *Draft) CanPromote() bool {
	return !d.IsPromoted && strings.TrimSpace(d.Title) != ""
}

// ValidDraftSource reports whether s is a member of the source enum.
func ValidDraftSource(s string) bool {
	return s == DraftSourceInbox || s == DraftSourceQuick || s == DraftSourceTaskForm
}
