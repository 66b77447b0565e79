// Package ledger maintains the derived streak state for every habit:
// current consecutive-day count, longest historical run, last check-in
// day, and freeze-token bridging of missed days. It is the only code
// allowed to mutate those fields, and every mutation happens inside a
// single database transaction so readers never observe a habit row that
// disagrees with its check-in history.
package ledger

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/minhpham/blaze/models"
)

var (
	// ErrAlreadyCheckedIn is returned when a record already exists for
	// (streak, today). User-correctable, surfaced verbatim.
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	// ErrNothingToUndo is returned when no genuine check-in exists for
	// today. Frozen placeholder days are not undoable.
	ErrNothingToUndo = errors.New("no check-in to undo today")
	// ErrStreakNotFound covers both a missing streak and one owned by a
	// different user.
	ErrStreakNotFound = errors.New("streak not found")
)

// Engine is the streak ledger. It consumes the persistence collaborator
// (gorm) and a Clock; it never grants currency itself.
type Engine struct {
	db    *gorm.DB
	clock Clock
}

// New creates an engine using the system UTC clock.
func New(db *gorm.DB) *Engine {
	return &Engine{db: db, clock: SystemClock()}
}

// NewWithClock creates an engine with an explicit clock.
func NewWithClock(db *gorm.DB, clock Clock) *Engine {
	return &Engine{db: db, clock: clock}
}

// Clock returns the engine's clock so callers share its notion of today.
func (e *Engine) Clock() Clock {
	return e.clock
}

// lockForUpdate applies SELECT ... FOR UPDATE where the dialect supports
// it. SQLite has no FOR UPDATE; its single-writer transaction lock
// already serializes the same rows.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// CheckInInput carries the optional per-check-in fields. Tier defaults
// to full and only affects reward sizing, never streak arithmetic.
type CheckInInput struct {
	Tier string
	Mood string
	Note string
}

// CheckInResult reports what a successful check-in did, so callers can
// size coin rewards and surface forfeitures.
type CheckInResult struct {
	Day            string `json:"day"`
	CurrentStreak  int    `json:"current_streak"`
	LongestStreak  int    `json:"longest_streak"`
	FreezeSpent    int    `json:"freeze_spent"`
	StreakReset    bool   `json:"streak_reset"`
	StakeForfeited bool   `json:"stake_forfeited"`
}

// RecordCheckIn records today's check-in for the streak and atomically
// updates the derived fields. Exactly one of two concurrent calls for
// the same (streak, day) succeeds; the loser gets ErrAlreadyCheckedIn
// from the unique index on (streak_id, check_in_date).
//
// A gap since the last check-in is bridged with the owner's shared
// freeze-token pool when the pool covers every missed day: one frozen
// full-tier record per missed day, streak continuity preserved. With an
// insufficient pool the streak hard-resets to 1 and an active stake on
// the streak is forfeited in the same transaction.
func (e *Engine) RecordCheckIn(streakID, userID uint, in CheckInInput) (*CheckInResult, error) {
	day := e.clock.Today()
	tier := in.Tier
	if tier == "" {
		tier = models.TierFull
	}

	res := &CheckInResult{Day: day}
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := lockForUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}

		var streak models.Streak
		err := lockForUpdate(tx).
			Where("id = ? AND user_id = ?", streakID, userID).
			First(&streak).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStreakNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.CheckIn{}).
			Where("streak_id = ? AND check_in_date = ?", streakID, day).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyCheckedIn
		}

		newCurrent := 1
		switch {
		case streak.LastCheckIn == AddDays(day, -1):
			newCurrent = streak.CurrentStreak + 1
		case streak.LastCheckIn == "":
			// first ever check-in
		default:
			missed := DaysBetween(streak.LastCheckIn, day) - 1
			if user.FreezeTokens >= missed {
				// Bridge: one synthetic frozen record per missed day,
				// paid from the shared token pool. Never refunded.
				for i := 1; i <= missed; i++ {
					frozen := models.CheckIn{
						StreakID:    streakID,
						UserID:      userID,
						CheckInDate: AddDays(streak.LastCheckIn, i),
						Status:      models.CheckInStatusFrozen,
						Tier:        models.TierFull,
					}
					if err := tx.Create(&frozen).Error; err != nil {
						return err
					}
				}
				res.FreezeSpent = missed
				newCurrent = streak.CurrentStreak + missed + 1
			} else {
				res.StreakReset = true
				if streak.StakeStatus == models.StakeActive {
					streak.StakeStatus = models.StakeLost
					streak.StakeAmount = 0
					res.StakeForfeited = true
				}
			}
		}

		record := models.CheckIn{
			StreakID:    streakID,
			UserID:      userID,
			CheckInDate: day,
			Status:      models.CheckInStatusDone,
			Tier:        tier,
			Mood:        in.Mood,
			Note:        in.Note,
		}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyCheckedIn
			}
			return err
		}

		streak.CurrentStreak = newCurrent
		if newCurrent > streak.LongestStreak {
			streak.LongestStreak = newCurrent
		}
		streak.LastCheckIn = day
		if err := tx.Save(&streak).Error; err != nil {
			return err
		}

		if res.FreezeSpent > 0 {
			user.FreezeTokens -= res.FreezeSpent
			if err := tx.Save(&user).Error; err != nil {
				return err
			}
		}

		res.CurrentStreak = streak.CurrentStreak
		res.LongestStreak = streak.LongestStreak
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UndoCheckIn deletes today's genuine check-in and recomputes the
// derived fields from the remaining history. Frozen records and the
// tokens that paid for them stay: undo only reverses the most recent
// genuine action. LongestStreak never decreases.
func (e *Engine) UndoCheckIn(streakID, userID uint) error {
	day := e.clock.Today()
	return e.db.Transaction(func(tx *gorm.DB) error {
		var streak models.Streak
		err := lockForUpdate(tx).
			Where("id = ? AND user_id = ?", streakID, userID).
			First(&streak).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStreakNotFound
			}
			return err
		}

		var record models.CheckIn
		err = tx.Where("streak_id = ? AND check_in_date = ? AND status = ?",
			streakID, day, models.CheckInStatusDone).First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNothingToUndo
			}
			return err
		}
		if err := tx.Delete(&models.CheckIn{}, record.ID).Error; err != nil {
			return err
		}

		// Rebuild current streak by walking back one day at a time from
		// the newest remaining record, counting records of any kind.
		var days []string
		if err := tx.Model(&models.CheckIn{}).
			Where("streak_id = ?", streakID).
			Order("check_in_date DESC").
			Pluck("check_in_date", &days).Error; err != nil {
			return err
		}

		current := 0
		last := ""
		if len(days) > 0 {
			last = days[0]
			seen := make(map[string]struct{}, len(days))
			for _, d := range days {
				seen[d] = struct{}{}
			}
			for d := last; ; d = AddDays(d, -1) {
				if _, ok := seen[d]; !ok {
					break
				}
				current++
			}
		}

		streak.CurrentStreak = current
		streak.LastCheckIn = last
		return tx.Save(&streak).Error
	})
}
