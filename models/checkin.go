package models

import "time"

// CheckIn status: a genuine check-in or a synthetic frozen placeholder
// inserted by the ledger when bridging a gap with freeze tokens.
const (
	CheckInStatusDone   = "checked_in"
	CheckInStatusFrozen = "frozen"
)

// Effort tiers. Tiers size coin rewards only; streak arithmetic ignores them.
const (
	TierFull    = "full"
	TierHalf    = "half"
	TierMinimal = "minimal"
)

// CheckIn records that a habit was performed on one calendar day.
// The unique index on (streak_id, check_in_date) is the invariant that
// makes concurrent same-day check-ins resolve to exactly one winner.
type CheckIn struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	StreakID    uint   `gorm:"uniqueIndex:idx_streak_day;not null" json:"streak_id"`
	UserID      uint   `gorm:"index;not null" json:"user_id"`
	CheckInDate string `gorm:"size:10;uniqueIndex:idx_streak_day;not null" json:"check_in_date"` // YYYY-MM-DD
	Status      string `gorm:"size:16;default:'checked_in';not null" json:"status"`
	Tier        string `gorm:"size:8;default:'full';not null" json:"tier"`
	Mood        string `gorm:"size:16" json:"mood,omitempty"`
	Note        string `gorm:"size:512" json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidTier reports whether t is one of the known effort tiers.
func ValidTier(t string) bool {
	return t == TierFull || t == TierHalf || t == TierMinimal
}
