package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/config"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

// StakeController lets users bet coins on reaching a streak's target.
// A lost stake is settled by the ledger engine when the streak breaks;
// this controller only places and claims.
type StakeController struct {
	db *gorm.DB
}

// NewStakeController creates a new controller instance.
func NewStakeController(db *gorm.DB) *StakeController {
	return &StakeController{db: db}
}

type placeStakeRequest struct {
	Amount int `json:"amount" binding:"required,min=1"`
}

// PlaceStake escrows coins against an owned streak with a target.
func (s *StakeController) PlaceStake(ctx *gin.Context) {
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

	var req placeStakeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var streak models.Streak
		if err := tx.Where("id = ? AND user_id = ?", streakID, userID).First(&streak).Error; err != nil {
			return err
		}
		if streak.TargetDays <= 0 {
			return errStakeNoTarget
		}
		if streak.StakeStatus == models.StakeActive {
			return errStakeAlreadyActive
		}

		// Conditional deduction keeps the balance non-negative under
		// concurrent spends.
		res := tx.Model(&models.User{}).
			Where("id = ? AND coins >= ?", userID, req.Amount).
			Update("coins", gorm.Expr("coins - ?", req.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStakeInsufficient
		}

		return tx.Model(&streak).Updates(map[string]interface{}{
			"stake_amount": req.Amount,
			"stake_status": models.StakeActive,
		}).Error
	})
	if err != nil {
		respondStakeError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "stake placed", "amount": req.Amount})
}

// ClaimStake pays out a won stake once the streak reaches its target.
func (s *StakeController) ClaimStake(ctx *gin.Context) {
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

	var payout int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var streak models.Streak
		if err := tx.Where("id = ? AND user_id = ?", streakID, userID).First(&streak).Error; err != nil {
			return err
		}
		if streak.StakeStatus != models.StakeActive {
			return errStakeNotActive
		}
		if streak.CurrentStreak < streak.TargetDays {
			return errStakeNotReached
		}

		payout = streak.StakeAmount * config.Get().StakePayoutPercent / 100

		if err := tx.Model(&streak).Updates(map[string]interface{}{
			"stake_amount": 0,
			"stake_status": models.StakeWon,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			Update("coins", gorm.Expr("coins + ?", payout)).Error
	})
	if err != nil {
		respondStakeError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "stake won", "payout": payout})
}

type stakeError string

func (e stakeError) Error() string { return string(e) }

const (
	errStakeNoTarget      = stakeError("streak has no target")
	errStakeAlreadyActive = stakeError("stake already active")
	errStakeInsufficient  = stakeError("insufficient coins")
	errStakeNotActive     = stakeError("no active stake")
	errStakeNotReached    = stakeError("target not reached")
)

func respondStakeError(ctx *gin.Context, err error) {
	switch err {
	case errStakeNoTarget:
		utils.Error(ctx, http.StatusBadRequest, 40030, "set a target before staking")
	case errStakeAlreadyActive:
		utils.Error(ctx, http.StatusConflict, 40930, "a stake is already active on this streak")
	case errStakeInsufficient:
		utils.Error(ctx, http.StatusPaymentRequired, 40221, "not enough coins")
	case errStakeNotActive:
		utils.Error(ctx, http.StatusConflict, 40931, "no active stake to claim")
	case errStakeNotReached:
		utils.Error(ctx, http.StatusConflict, 40932, "target not reached yet")
	default:
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "streak not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "stake operation failed")
	}
}
