package model

import "time"

// User stores account metadata and the optional Telegram chat linkage used
// for advisory reminder delivery.
type User struct {
	ID         string `gorm:"primaryKey"`
	TelegramID int64  `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
