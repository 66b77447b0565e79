package models

import "time"

// Stake lifecycle states for a streak's side bet.
const (
	StakeNone   = "none"
	StakeActive = "active"
	StakeWon    = "won"
	StakeLost   = "lost"
)

// Auto check-in sources.
const (
	AutoSourceNone   = "none"
	AutoSourceFitbit = "fitbit"
)

// Streak is a tracked daily habit. CurrentStreak, LongestStreak and
// LastCheckIn are derived fields maintained exclusively by the ledger
// engine; controllers must never write them directly.
type Streak struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"index;not null" json:"user_id"`
	Title      string `gorm:"size:255;not null" json:"title"`
	Emoji      string `gorm:"size:16;default:'🔥'" json:"emoji"`
	Color      string `gorm:"size:16;default:'#f97316'" json:"color"`
	TargetDays int    `gorm:"default:0" json:"target_days"`

	CurrentStreak int    `gorm:"default:0;not null" json:"current_streak"`
	LongestStreak int    `gorm:"default:0;not null" json:"longest_streak"`
	LastCheckIn   string `gorm:"size:10" json:"last_check_in"` // YYYY-MM-DD, empty when never checked in

	// Side bet: coins escrowed against reaching TargetDays
	StakeAmount int    `gorm:"default:0;not null" json:"stake_amount"`
	StakeStatus string `gorm:"size:8;default:'none';not null" json:"stake_status"`

	// Co-op: paired streak of another user, nil when solo
	CoopPartnerStreakID *uint `json:"coop_partner_streak_id"`

	// Wearable auto check-in thresholds (steps OR active minutes)
	AutoCheckinSource     string `gorm:"size:8;default:'none';not null" json:"auto_checkin_source"`
	AutoCheckinMinMinutes int    `gorm:"default:10;not null" json:"auto_checkin_min_minutes"`
	AutoCheckinMinSteps   int    `gorm:"default:2000;not null" json:"auto_checkin_min_steps"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CheckIns  []CheckIn `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
