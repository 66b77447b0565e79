package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/models"
)

func wrappedRouter(db *gorm.DB, userID uint) *gin.Engine {
	c := NewWrappedController(db)
	r := gin.New()
	g := r.Group("", asUser(userID))
	g.GET("/wrapped/:month", c.GetWrapped)
	return r
}

func TestWrappedAggregatesMonth(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	run := seedStreak(t, db, user.ID, "Run")
	read := seedStreak(t, db, user.ID, "Read")

	seed := []struct {
		streakID uint
		day      string
		status   string
		mood     string
	}{
		{run.ID, "2024-03-01", models.CheckInStatusDone, "great"},
		{run.ID, "2024-03-02", models.CheckInStatusDone, "great"},
		{run.ID, "2024-03-03", models.CheckInStatusFrozen, ""},
		{run.ID, "2024-03-04", models.CheckInStatusDone, "okay"},
		{read.ID, "2024-03-01", models.CheckInStatusDone, ""},
		{read.ID, "2024-04-01", models.CheckInStatusDone, ""}, // outside month
	}
	for _, s := range seed {
		rec := models.CheckIn{StreakID: s.streakID, UserID: user.ID, CheckInDate: s.day, Status: s.status, Tier: models.TierFull, Mood: s.mood}
		if err := db.Create(&rec).Error; err != nil {
			t.Fatalf("seed check-in: %v", err)
		}
	}

	w := doJSON(t, wrappedRouter(db, user.ID), http.MethodGet, "/wrapped/2024-03", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	wrapped, _ := dataField(t, resp, "wrapped").(map[string]interface{})
	if wrapped == nil {
		t.Fatal("missing wrapped payload")
	}

	if got := wrapped["total_check_ins"].(float64); got != 4 {
		t.Errorf("total_check_ins = %v, want 4", got)
	}
	if got := wrapped["frozen_days"].(float64); got != 1 {
		t.Errorf("frozen_days = %v, want 1", got)
	}
	if got := wrapped["active_days"].(float64); got != 4 {
		t.Errorf("active_days = %v, want 4", got)
	}
	// 2024-03-01 through 2024-03-04, frozen day included in the run
	if got := wrapped["best_run_in_month"].(float64); got != 4 {
		t.Errorf("best_run_in_month = %v, want 4", got)
	}
	if got := wrapped["top_habit"].(string); got != "Run" {
		t.Errorf("top_habit = %q, want Run", got)
	}
	moods, _ := wrapped["mood_counts"].(map[string]interface{})
	if moods["great"].(float64) != 2 {
		t.Errorf("mood great = %v, want 2", moods["great"])
	}
}

func TestWrappedRejectsBadMonth(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)

	w := doJSON(t, wrappedRouter(db, user.ID), http.MethodGet, "/wrapped/springtime", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
