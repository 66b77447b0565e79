package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/ledger"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

// WrappedController builds a month-in-review summary. Past months
// never change so results are cached aggressively.
type WrappedController struct {
	db *gorm.DB
}

// NewWrappedController creates a new controller instance.
func NewWrappedController(db *gorm.DB) *WrappedController {
	return &WrappedController{db: db}
}

type wrappedSummary struct {
	Month              string         `json:"month"`
	TotalCheckIns      int64          `json:"total_check_ins"`
	FrozenDays         int64          `json:"frozen_days"`
	PerfectStreaks     int            `json:"perfect_streaks"`
	BestStreak         *wrappedStreak `json:"best_streak"`
	MoodCounts         map[string]int `json:"mood_counts"`
	TierCounts         map[string]int `json:"tier_counts"`
	ActiveDays         int            `json:"active_days"`
	ConsistencyPercent int            `json:"consistency_percent"`
	BestRunInMonth     int            `json:"best_run_in_month"`
	StrongestWeekday   string         `json:"strongest_weekday"`
	TopHabit           string         `json:"top_habit"`
}

type wrappedStreak struct {
	Title   string `json:"title"`
	Emoji   string `json:"emoji"`
	Current int    `json:"current_streak"`
	Longest int    `json:"longest_streak"`
}

// GetWrapped returns the summary for a month (param :month, YYYY-MM;
// defaults to last month).
func (w *WrappedController) GetWrapped(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	month := ctx.Param("month")
	if month == "" {
		month = time.Now().UTC().AddDate(0, -1, 0).Format("2006-01")
	}
	if !monthPattern.MatchString(month) {
		utils.Error(ctx, http.StatusBadRequest, 40015, "month must be YYYY-MM")
		return
	}

	cacheKey := fmt.Sprintf("wrapped:%d:%s", userID, month)
	if b, hit := utils.CacheGetBytes(cacheKey); hit {
		var cached wrappedSummary
		if err := json.Unmarshal(b, &cached); err == nil {
			utils.Success(ctx, gin.H{"wrapped": cached})
			return
		}
	}

	summary, err := w.buildSummary(userID, month)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to build summary")
		return
	}

	// Only closed months are immutable enough to cache for a day.
	if month < time.Now().UTC().Format("2006-01") {
		utils.CacheSetJSON(cacheKey, summary, 24*time.Hour)
	}
	utils.Success(ctx, gin.H{"wrapped": summary})
}

func (w *WrappedController) buildSummary(userID uint, month string) (*wrappedSummary, error) {
	var checkIns []models.CheckIn
	err := w.db.
		Joins("JOIN streaks ON streaks.id = check_ins.streak_id").
		Where("streaks.user_id = ? AND check_ins.check_in_date LIKE ?", userID, month+"-%").
		Find(&checkIns).Error
	if err != nil {
		return nil, err
	}

	summary := &wrappedSummary{
		Month:      month,
		MoodCounts: map[string]int{},
		TierCounts: map[string]int{},
	}

	days := map[string]bool{}
	weekdays := map[string]int{}
	countByStreak := map[uint]int{}
	genuineByStreak := map[uint]map[string]bool{}
	for _, ci := range checkIns {
		days[ci.CheckInDate] = true
		if ci.Status == models.CheckInStatusFrozen {
			summary.FrozenDays++
			continue
		}
		summary.TotalCheckIns++
		countByStreak[ci.StreakID]++
		if t, err := time.Parse(ledger.DayLayout, ci.CheckInDate); err == nil {
			weekdays[t.Weekday().String()]++
		}
		if ci.Mood != "" {
			summary.MoodCounts[ci.Mood]++
		}
		summary.TierCounts[ci.Tier]++
		if genuineByStreak[ci.StreakID] == nil {
			genuineByStreak[ci.StreakID] = map[string]bool{}
		}
		genuineByStreak[ci.StreakID][ci.CheckInDate] = true
	}
	summary.ActiveDays = len(days)

	monthDays := daysInMonth(month)
	if monthDays > 0 {
		summary.ConsistencyPercent = summary.ActiveDays * 100 / monthDays
	}

	// A perfect streak checked in by hand every single day of the month.
	for _, byDay := range genuineByStreak {
		if len(byDay) == monthDays {
			summary.PerfectStreaks++
		}
	}

	summary.BestRunInMonth = longestRun(days)

	topWeekday := 0
	for name, n := range weekdays {
		if n > topWeekday || (n == topWeekday && summary.StrongestWeekday == "") {
			topWeekday = n
			summary.StrongestWeekday = name
		}
	}

	var topID uint
	topCount := 0
	for id, n := range countByStreak {
		if n > topCount {
			topCount = n
			topID = id
		}
	}
	if topID != 0 {
		var top models.Streak
		if err := w.db.First(&top, topID).Error; err == nil {
			summary.TopHabit = top.Title
		}
	}

	var best models.Streak
	err = w.db.Where("user_id = ?", userID).Order("longest_streak DESC").First(&best).Error
	if err == nil {
		summary.BestStreak = &wrappedStreak{
			Title:   best.Title,
			Emoji:   best.Emoji,
			Current: best.CurrentStreak,
			Longest: best.LongestStreak,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return summary, nil
}

// longestRun finds the longest consecutive stretch in a set of day keys.
func longestRun(days map[string]bool) int {
	best := 0
	for day := range days {
		if days[ledger.AddDays(day, -1)] {
			continue // not a run start
		}
		n := 1
		for next := ledger.AddDays(day, 1); days[next]; next = ledger.AddDays(next, 1) {
			n++
		}
		if n > best {
			best = n
		}
	}
	return best
}

func daysInMonth(month string) int {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return 0
	}
	first := t.Format(ledger.DayLayout)
	next := t.AddDate(0, 1, 0).Format(ledger.DayLayout)
	return ledger.DaysBetween(first, next)
}
