package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

// StreakController manages CRUD for streaks. Derived fields
// (current/longest/last check-in) are owned by the ledger engine and
// never writable through this controller.
type StreakController struct {
	db *gorm.DB
}

// NewStreakController creates a new controller instance.
func NewStreakController(db *gorm.DB) *StreakController {
	return &StreakController{db: db}
}

type streakRequest struct {
	Title      string `json:"title" binding:"required,min=1,max=255"`
	Emoji      string `json:"emoji"`
	Color      string `json:"color"`
	TargetDays int    `json:"target_days" binding:"omitempty,min=0,max=3650"`
}

// ListStreaks returns all streaks owned by the caller, most recently
// updated first.
func (s *StreakController) ListStreaks(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var streaks []models.Streak
	if err := s.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&streaks).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to list streaks")
		return
	}
	utils.Success(ctx, gin.H{"streaks": streaks})
}

// CreateStreak creates a new habit for the caller.
func (s *StreakController) CreateStreak(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req streakRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40012, "title cannot be empty")
		return
	}

	streak := models.Streak{
		UserID:      userID,
		Title:       title,
		TargetDays:  req.TargetDays,
		StakeStatus: models.StakeNone,
	}
	if req.Emoji != "" {
		streak.Emoji = req.Emoji
	}
	if req.Color != "" {
		streak.Color = req.Color
	}

	if err := s.db.Create(&streak).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to create streak")
		return
	}
	utils.Created(ctx, gin.H{"streak": streak})
}

// UpdateStreak updates display metadata and target of an owned streak.
func (s *StreakController) UpdateStreak(ctx *gin.Context) {
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

	var req streakRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	streak, err := s.ownedStreak(streakID, userID)
	if err != nil {
		respondStreakLookup(ctx, err)
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40012, "title cannot be empty")
		return
	}
	streak.Title = title
	if req.Emoji != "" {
		streak.Emoji = req.Emoji
	}
	if req.Color != "" {
		streak.Color = req.Color
	}
	streak.TargetDays = req.TargetDays

	if err := s.db.Save(streak).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to update streak")
		return
	}
	utils.Success(ctx, gin.H{"streak": streak})
}

// DeleteStreak removes an owned streak and its check-in history.
func (s *StreakController) DeleteStreak(ctx *gin.Context) {
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

	streak, err := s.ownedStreak(streakID, userID)
	if err != nil {
		respondStreakLookup(ctx, err)
		return
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("streak_id = ?", streak.ID).Delete(&models.CheckIn{}).Error; err != nil {
			return err
		}
		return tx.Delete(streak).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to delete streak")
		return
	}
	utils.Success(ctx, gin.H{"message": "streak deleted"})
}

// GetBadges returns earned badges and progress toward the next one,
// computed from the streak's longest run.
func (s *StreakController) GetBadges(ctx *gin.Context) {
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

	streak, err := s.ownedStreak(streakID, userID)
	if err != nil {
		respondStreakLookup(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{
		"earned":           models.EarnedBadges(streak.LongestStreak),
		"next":             models.NextBadge(streak.LongestStreak),
		"progress_percent": models.ProgressToNext(streak.LongestStreak),
	})
}

func (s *StreakController) ownedStreak(streakID, userID uint) (*models.Streak, error) {
	var streak models.Streak
	err := s.db.Where("id = ? AND user_id = ?", streakID, userID).First(&streak).Error
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

func respondStreakLookup(ctx *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40420, "streak not found")
		return
	}
	utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load streak")
}
