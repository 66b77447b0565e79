package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account. Passwords are stored as bcrypt hashes only.
// Coins and FreezeTokens are a single balance shared across all of the
// user's streaks, never partitioned per streak.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:255;index" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	AvatarURL    string `gorm:"size:512" json:"avatar_url"`
	Coins        int    `gorm:"default:0" json:"coins"`
	FreezeTokens int    `gorm:"default:0" json:"freeze_tokens"`
	// Fitbit OAuth tokens for wearable auto check-in
	FitbitAccessToken  string         `gorm:"size:512" json:"-"`
	FitbitRefreshToken string         `gorm:"size:512" json:"-"`
	FitbitTokenExpiry  time.Time      `json:"-"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
	Streaks            []Streak       `json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
