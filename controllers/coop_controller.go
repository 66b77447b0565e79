package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/ledger"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

// CoopController pairs two users' streaks so partners can see each
// other's daily progress.
type CoopController struct {
	db *gorm.DB
}

// NewCoopController creates a new controller instance.
func NewCoopController(db *gorm.DB) *CoopController {
	return &CoopController{db: db}
}

type sendInviteRequest struct {
	StreakID uint   `json:"streak_id" binding:"required"`
	ToEmail  string `json:"to_email" binding:"required,email"`
}

// SendInvite creates a pending invite and emails the recipient. Mail
// delivery is best effort; the invite stands either way.
func (c *CoopController) SendInvite(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req sendInviteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}
	toEmail := strings.ToLower(strings.TrimSpace(req.ToEmail))

	var streak models.Streak
	if err := c.db.Where("id = ? AND user_id = ?", req.StreakID, userID).First(&streak).Error; err != nil {
		respondStreakLookup(ctx, err)
		return
	}
	if streak.CoopPartnerStreakID != nil {
		utils.Error(ctx, http.StatusConflict, 40940, "streak already has a partner")
		return
	}

	var me models.User
	if err := c.db.First(&me, userID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load user")
		return
	}
	if strings.EqualFold(me.Email, toEmail) {
		utils.Error(ctx, http.StatusBadRequest, 40040, "cannot invite yourself")
		return
	}

	var pending int64
	c.db.Model(&models.CoopInvite{}).
		Where("from_streak_id = ? AND status = ?", streak.ID, models.InvitePending).
		Count(&pending)
	if pending > 0 {
		utils.Error(ctx, http.StatusConflict, 40941, "an invite is already pending for this streak")
		return
	}

	invite := models.CoopInvite{
		FromStreakID: streak.ID,
		FromUserID:   userID,
		ToEmail:      toEmail,
		Status:       models.InvitePending,
	}
	if err := c.db.Create(&invite).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to create invite")
		return
	}

	go func() {
		subject := fmt.Sprintf("%s invited you to a co-op streak", me.Username)
		body := fmt.Sprintf("%s wants to keep the habit \"%s\" together with you on Blaze. Log in and accept the invite to pair up.", me.Username, streak.Title)
		if err := utils.SendMail(toEmail, subject, body); err != nil {
			utils.Sugar.Warnw("invite mail failed", "to", toEmail, "error", err)
		}
	}()

	utils.Success(ctx, gin.H{"invite": invite})
}

// ListInvites returns pending invites addressed to the caller's email.
func (c *CoopController) ListInvites(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var me models.User
	if err := c.db.First(&me, userID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load user")
		return
	}

	var invites []models.CoopInvite
	if err := c.db.Preload("FromUser").Preload("FromStreak").
		Where("to_email = ? AND status = ?", strings.ToLower(me.Email), models.InvitePending).
		Order("created_at DESC").Find(&invites).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to list invites")
		return
	}
	utils.Success(ctx, gin.H{"invites": invites})
}

type acceptInviteRequest struct {
	StreakID uint `json:"streak_id" binding:"required"`
}

// AcceptInvite links the inviter's streak and one of the caller's
// streaks as co-op partners. Both links are written in one
// transaction.
func (c *CoopController) AcceptInvite(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	inviteID, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid invite id")
		return
	}

	var req acceptInviteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		invite, err := c.inviteForUser(tx, inviteID, userID)
		if err != nil {
			return err
		}
		if invite.Status != models.InvitePending {
			return errInviteSettled
		}

		var mine models.Streak
		if err := tx.Where("id = ? AND user_id = ?", req.StreakID, userID).First(&mine).Error; err != nil {
			return err
		}
		if mine.CoopPartnerStreakID != nil {
			return errStreakPaired
		}

		var theirs models.Streak
		if err := tx.First(&theirs, invite.FromStreakID).Error; err != nil {
			return err
		}
		if theirs.CoopPartnerStreakID != nil {
			return errStreakPaired
		}

		if err := tx.Model(&mine).Update("coop_partner_streak_id", theirs.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&theirs).Update("coop_partner_streak_id", mine.ID).Error; err != nil {
			return err
		}
		return tx.Model(invite).Updates(map[string]interface{}{
			"status":       models.InviteAccepted,
			"to_streak_id": mine.ID,
		}).Error
	})
	if err != nil {
		respondInviteError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "invite accepted"})
}

// RejectInvite declines a pending invite.
func (c *CoopController) RejectInvite(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	inviteID, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid invite id")
		return
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		invite, err := c.inviteForUser(tx, inviteID, userID)
		if err != nil {
			return err
		}
		if invite.Status != models.InvitePending {
			return errInviteSettled
		}
		return tx.Model(invite).Update("status", models.InviteRejected).Error
	})
	if err != nil {
		respondInviteError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "invite rejected"})
}

// Dissolve unlinks an owned streak from its partner. Either side may
// dissolve.
func (c *CoopController) Dissolve(ctx *gin.Context) {
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

	err := c.db.Transaction(func(tx *gorm.DB) error {
		var mine models.Streak
		if err := tx.Where("id = ? AND user_id = ?", streakID, userID).First(&mine).Error; err != nil {
			return err
		}
		if mine.CoopPartnerStreakID == nil {
			return errNoPartner
		}
		partnerID := *mine.CoopPartnerStreakID

		if err := tx.Model(&models.Streak{}).Where("id = ?", partnerID).
			Update("coop_partner_streak_id", nil).Error; err != nil {
			return err
		}
		return tx.Model(&mine).Update("coop_partner_streak_id", nil).Error
	})
	if err != nil {
		respondInviteError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "partnership dissolved"})
}

// PartnerStatus reports the partner streak's progress and whether the
// partner has checked in today.
func (c *CoopController) PartnerStatus(ctx *gin.Context) {
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

	var mine models.Streak
	if err := c.db.Where("id = ? AND user_id = ?", streakID, userID).First(&mine).Error; err != nil {
		respondStreakLookup(ctx, err)
		return
	}
	if mine.CoopPartnerStreakID == nil {
		utils.Error(ctx, http.StatusNotFound, 40440, "streak has no partner")
		return
	}

	var partner models.Streak
	if err := c.db.First(&partner, *mine.CoopPartnerStreakID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load partner")
		return
	}
	var partnerUser models.User
	if err := c.db.First(&partnerUser, partner.UserID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load partner")
		return
	}

	today := ledger.SystemClock().Today()
	var todayCount int64
	c.db.Model(&models.CheckIn{}).
		Where("streak_id = ? AND check_in_date = ?", partner.ID, today).
		Count(&todayCount)

	utils.Success(ctx, gin.H{
		"partner": gin.H{
			"username":         partnerUser.Username,
			"avatar_url":       partnerUser.AvatarURL,
			"title":            partner.Title,
			"emoji":            partner.Emoji,
			"current_streak":   partner.CurrentStreak,
			"longest_streak":   partner.LongestStreak,
			"checked_in_today": todayCount > 0,
		},
	})
}

// inviteForUser loads an invite addressed to the user's email.
func (c *CoopController) inviteForUser(tx *gorm.DB, inviteID, userID uint) (*models.CoopInvite, error) {
	var me models.User
	if err := tx.First(&me, userID).Error; err != nil {
		return nil, err
	}
	var invite models.CoopInvite
	err := tx.Where("id = ? AND to_email = ?", inviteID, strings.ToLower(me.Email)).First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

type coopError string

func (e coopError) Error() string { return string(e) }

const (
	errInviteSettled = coopError("invite already settled")
	errStreakPaired  = coopError("streak already paired")
	errNoPartner     = coopError("streak has no partner")
)

func respondInviteError(ctx *gin.Context, err error) {
	switch err {
	case errInviteSettled:
		utils.Error(ctx, http.StatusConflict, 40942, "invite already settled")
	case errStreakPaired:
		utils.Error(ctx, http.StatusConflict, 40940, "streak already has a partner")
	case errNoPartner:
		utils.Error(ctx, http.StatusNotFound, 40440, "streak has no partner")
	default:
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40441, "invite or streak not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50044, "co-op operation failed")
	}
}
