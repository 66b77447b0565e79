package models

import "time"

// Death pool states.
const (
	PoolActive = "active"
	PoolEnded  = "ended"
)

// DeathPool is an elimination game: members stake coins, anyone who
// misses a day of check-ins is eliminated, survivors split the pot at
// the end date.
type DeathPool struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	StakeAmount int       `gorm:"not null" json:"stake_amount"`
	StartDate   string    `gorm:"size:10;not null" json:"start_date"` // YYYY-MM-DD
	EndDate     string    `gorm:"size:10;not null" json:"end_date"`
	Status      string    `gorm:"size:8;default:'active';not null" json:"status"`
	CreatedBy   uint      `gorm:"index;not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`

	Members []DeathPoolMember `gorm:"foreignKey:PoolID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"members"`
}

// DeathPoolMember is a user's membership and escrowed stake in a pool.
type DeathPoolMember struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PoolID     uint      `gorm:"uniqueIndex:idx_pool_user;not null" json:"pool_id"`
	UserID     uint      `gorm:"uniqueIndex:idx_pool_user;not null" json:"user_id"`
	StakeCoins int       `gorm:"not null" json:"stake_coins"`
	IsActive   bool      `gorm:"default:true;not null" json:"is_active"`
	JoinedAt   time.Time `json:"joined_at"`

	User User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
}
