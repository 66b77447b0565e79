package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/config"
	"github.com/minhpham/blaze/ledger"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// CheckInController exposes the ledger engine over HTTP and pays out
// coin rewards scaled by effort tier.
type CheckInController struct {
	db     *gorm.DB
	engine *ledger.Engine
}

// NewCheckInController creates a controller backed by the given engine.
func NewCheckInController(db *gorm.DB, engine *ledger.Engine) *CheckInController {
	return &CheckInController{db: db, engine: engine}
}

type checkInRequest struct {
	Tier string `json:"tier"`
	Mood string `json:"mood" binding:"omitempty,max=32"`
	Note string `json:"note" binding:"omitempty,max=500"`
}

// rewardForTier sizes the coin reward. Full effort earns the configured
// base, half effort earns half, minimal a quarter.
func rewardForTier(tier string) int {
	base := config.Get().CheckinRewardCoins
	switch tier {
	case models.TierHalf:
		return base / 2
	case models.TierMinimal:
		return base / 4
	default:
		return base
	}
}

// CheckIn records today's check-in and credits the coin reward.
func (c *CheckInController) CheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	streakID, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid streak id")
		return
	}

	// The body is optional; an empty POST means a full-tier check-in.
	var req checkInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}
	if req.Tier != "" && !models.ValidTier(req.Tier) {
		utils.Error(ctx, http.StatusBadRequest, 40014, "invalid effort tier")
		return
	}

	result, err := c.engine.RecordCheckIn(streakID, userID, ledger.CheckInInput{
		Tier: req.Tier,
		Mood: utils.Sanitize(req.Mood),
		Note: utils.Sanitize(req.Note),
	})
	if err != nil {
		respondLedgerError(ctx, err)
		return
	}

	// Frozen backfill can reach into a previous month, so any cached
	// month summaries for this user are stale now.
	if result.FreezeSpent > 0 {
		utils.InvalidateByPrefix(fmt.Sprintf("wrapped:%d:", userID))
	}

	reward := rewardForTier(req.Tier)
	if err := c.db.Model(&models.User{}).Where("id = ?", userID).
		Update("coins", gorm.Expr("coins + ?", reward)).Error; err != nil {
		utils.Sugar.Errorw("coin reward failed", "user_id", userID, "error", err)
	}

	utils.Success(ctx, gin.H{
		"result":       result,
		"coins_earned": reward,
	})
}

// Undo reverses today's check-in. Frozen records and coins already
// spent or earned are left alone.
func (c *CheckInController) Undo(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	streakID, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid streak id")
		return
	}

	if err := c.engine.UndoCheckIn(streakID, userID); err != nil {
		respondLedgerError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "check-in undone"})
}

// ListMonth returns all check-in records for a streak in a given
// calendar month (query param month=YYYY-MM, defaults to the current
// month).
func (c *CheckInController) ListMonth(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	streakID, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid streak id")
		return
	}

	month := ctx.Query("month")
	if month == "" {
		month = c.engine.Clock().Today()[:7]
	}
	if !monthPattern.MatchString(month) {
		utils.Error(ctx, http.StatusBadRequest, 40015, "month must be YYYY-MM")
		return
	}

	var streak models.Streak
	if err := c.db.Where("id = ? AND user_id = ?", streakID, userID).First(&streak).Error; err != nil {
		respondStreakLookup(ctx, err)
		return
	}

	var checkIns []models.CheckIn
	if err := c.db.Where("streak_id = ? AND check_in_date LIKE ?", streak.ID, month+"-%").
		Order("check_in_date ASC").Find(&checkIns).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to load check-ins")
		return
	}
	utils.Success(ctx, gin.H{"month": month, "check_ins": checkIns})
}

func respondLedgerError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrAlreadyCheckedIn):
		utils.Error(ctx, http.StatusConflict, 40910, "already checked in today")
	case errors.Is(err, ledger.ErrNothingToUndo):
		utils.Error(ctx, http.StatusConflict, 40911, "nothing to undo today")
	case errors.Is(err, ledger.ErrStreakNotFound):
		utils.Error(ctx, http.StatusNotFound, 40420, "streak not found")
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50016, "check-in failed")
	}
}
