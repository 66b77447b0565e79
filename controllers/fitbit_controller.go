package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/fitsync"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

const stateTTL = 10 * time.Minute

// FitbitController handles the wearable connect flow and per-streak
// auto check-in settings.
type FitbitController struct {
	db     *gorm.DB
	worker *fitsync.Worker
}

// NewFitbitController creates a controller sharing the sync worker.
func NewFitbitController(db *gorm.DB, worker *fitsync.Worker) *FitbitController {
	return &FitbitController{db: db, worker: worker}
}

// Connect starts the OAuth dance. The state carries the user id so the
// callback can attribute tokens without a session.
func (f *FitbitController) Connect(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	state := fmt.Sprintf("%d:%s", userID, uuid.NewString())
	utils.SaveState(state, stateTTL)

	utils.Success(ctx, gin.H{"url": fitsync.OAuthConfig().AuthCodeURL(state)})
}

// Callback finishes the OAuth dance and stores the tokens.
func (f *FitbitController) Callback(ctx *gin.Context) {
	state := ctx.Query("state")
	code := ctx.Query("code")
	if state == "" || code == "" {
		utils.Error(ctx, http.StatusBadRequest, 40060, "missing state or code")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid or expired state")
		return
	}

	idPart, _, ok := strings.Cut(state, ":")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid or expired state")
		return
	}
	userID, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid or expired state")
		return
	}

	token, err := fitsync.OAuthConfig().Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Sugar.Warnw("fitbit token exchange failed", "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50270, "token exchange failed")
		return
	}

	err = f.db.Model(&models.User{}).Where("id = ?", uint(userID)).Updates(map[string]interface{}{
		"fitbit_access_token":  token.AccessToken,
		"fitbit_refresh_token": token.RefreshToken,
		"fitbit_token_expiry":  token.Expiry,
	}).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to store tokens")
		return
	}
	utils.Success(ctx, gin.H{"message": "fitbit connected"})
}

// Disconnect drops stored tokens and turns off auto check-ins.
func (f *FitbitController) Disconnect(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"fitbit_access_token":  "",
			"fitbit_refresh_token": "",
			"fitbit_token_expiry":  time.Time{},
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Streak{}).
			Where("user_id = ? AND auto_checkin_source = ?", userID, models.AutoSourceFitbit).
			Update("auto_checkin_source", models.AutoSourceNone).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to disconnect")
		return
	}
	utils.Success(ctx, gin.H{"message": "fitbit disconnected"})
}

type autoCheckinRequest struct {
	Source     string `json:"source" binding:"required,oneof=none fitbit"`
	MinSteps   int    `json:"min_steps" binding:"omitempty,min=0"`
	MinMinutes int    `json:"min_minutes" binding:"omitempty,min=0"`
}

// SetAutoCheckin configures automatic check-ins for an owned streak.
func (f *FitbitController) SetAutoCheckin(ctx *gin.Context) {
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

	var req autoCheckinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	if req.Source == models.AutoSourceFitbit {
		var me models.User
		if err := f.db.First(&me, userID).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load user")
			return
		}
		if me.FitbitAccessToken == "" {
			utils.Error(ctx, http.StatusConflict, 40960, "connect fitbit first")
			return
		}
	}

	updates := map[string]interface{}{"auto_checkin_source": req.Source}
	if req.MinSteps > 0 {
		updates["auto_checkin_min_steps"] = req.MinSteps
	}
	if req.MinMinutes > 0 {
		updates["auto_checkin_min_minutes"] = req.MinMinutes
	}

	res := f.db.Model(&models.Streak{}).
		Where("id = ? AND user_id = ?", streakID, userID).
		Updates(updates)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to update settings")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40420, "streak not found")
		return
	}
	utils.Success(ctx, gin.H{"message": "auto check-in updated"})
}

// SyncNow triggers one sync pass. Routed behind the cron secret.
func (f *FitbitController) SyncNow(ctx *gin.Context) {
	n, err := f.worker.RunOnce(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "sync failed")
		return
	}
	utils.Success(ctx, gin.H{"auto_check_ins": n})
}
