package models

import "time"

// Co-op invite states.
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteRejected = "rejected"
)

// CoopInvite pairs one user's streak with another user's, by email so
// the recipient does not need an account yet.
type CoopInvite struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FromStreakID uint      `gorm:"index;not null" json:"from_streak_id"`
	FromUserID   uint      `gorm:"index;not null" json:"from_user_id"`
	ToEmail      string    `gorm:"size:255;index;not null" json:"to_email"`
	ToStreakID   *uint     `json:"to_streak_id"`
	Status       string    `gorm:"size:16;default:'pending';not null" json:"status"`
	CreatedAt    time.Time `json:"created_at"`

	FromUser   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"from_user"`
	FromStreak Streak `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"from_streak"`
}
