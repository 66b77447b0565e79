package controllers

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/ledger"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

const statsCacheKey = "stats:public"

// StatsController serves the public landing-page counters.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new controller instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

type publicStats struct {
	Users         int64 `json:"users"`
	Streaks       int64 `json:"streaks"`
	CheckInsToday int64 `json:"check_ins_today"`
}

// GetStats returns site-wide counters, cached for a minute.
func (s *StatsController) GetStats(ctx *gin.Context) {
	if b, hit := utils.CacheGetBytes(statsCacheKey); hit {
		var cached publicStats
		if err := json.Unmarshal(b, &cached); err == nil {
			utils.Success(ctx, gin.H{"stats": cached})
			return
		}
	}

	var stats publicStats
	s.db.Model(&models.User{}).Count(&stats.Users)
	s.db.Model(&models.Streak{}).Count(&stats.Streaks)
	s.db.Model(&models.CheckIn{}).
		Where("check_in_date = ? AND status = ?", ledger.SystemClock().Today(), models.CheckInStatusDone).
		Count(&stats.CheckInsToday)

	utils.CacheSetJSON(statsCacheKey, stats, time.Minute)
	utils.Success(ctx, gin.H{"stats": stats})
}
