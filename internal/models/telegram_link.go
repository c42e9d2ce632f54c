package models

import "time"

// TelegramLink represents a link between a Telegram account and a LifeSlice user
type TelegramLink struct {
	Base
	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	// TelegramUserID holds 0 while the link is pending, so uniqueness is
	// enforced by the migration's partial index, not a model tag.
	TelegramUserID    int64      `gorm:"not null" json:"telegram_user_id"`
	TelegramUsername  string     `json:"telegram_username,omitempty"`
	TelegramFirstName string     `json:"telegram_first_name,omitempty"`
	LinkCode          string     `gorm:"size:6" json:"-"`
	LinkCodeExpiresAt *time.Time `json:"-"`
	// No default tag: a pending link is created inactive, and GORM would
	// treat the zero value as unset and write the column default instead.
	IsActive bool `json:"is_active"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
	MessageCount      int64      `gorm:"default:0" json:"message_count"`
	User              User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
