package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/models"
)

func streakRouter(db *gorm.DB, userID uint) *gin.Engine {
	c := NewStreakController(db)
	r := gin.New()
	g := r.Group("", asUser(userID))
	g.GET("/streaks", c.ListStreaks)
	g.POST("/streaks", c.CreateStreak)
	g.PUT("/streaks/:id", c.UpdateStreak)
	g.DELETE("/streaks/:id", c.DeleteStreak)
	g.GET("/streaks/:id/badges", c.GetBadges)
	return r
}

func TestCreateStreakDefaults(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	r := streakRouter(db, user.ID)

	w := doJSON(t, r, http.MethodPost, "/streaks", map[string]interface{}{"title": "Morning run"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	got := reloadStreak(t, db, 1)
	if got.Title != "Morning run" {
		t.Fatalf("title = %q", got.Title)
	}
	if got.Emoji != "🔥" || got.Color != "#f97316" {
		t.Fatalf("defaults not applied: emoji=%q color=%q", got.Emoji, got.Color)
	}
	if got.CurrentStreak != 0 || got.LastCheckIn != "" {
		t.Fatalf("derived fields must start empty")
	}
}

func TestCreateStreakStripsMarkup(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	r := streakRouter(db, user.ID)

	w := doJSON(t, r, http.MethodPost, "/streaks", map[string]interface{}{"title": "<b>Run</b><script>x()</script>"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := reloadStreak(t, db, 1).Title; got != "Runx()" && got != "Run" {
		t.Fatalf("title = %q, markup not stripped", got)
	}
}

func TestUpdateStreakKeepsDerivedFields(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	streak := seedStreak(t, db, user.ID, "Run")
	db.Model(&streak).Updates(map[string]interface{}{"current_streak": 5, "longest_streak": 9, "last_check_in": "2024-03-09"})
	r := streakRouter(db, user.ID)

	w := doJSON(t, r, http.MethodPut, "/streaks/1", map[string]interface{}{"title": "Evening run", "target_days": 30})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	got := reloadStreak(t, db, streak.ID)
	if got.Title != "Evening run" || got.TargetDays != 30 {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.CurrentStreak != 5 || got.LongestStreak != 9 || got.LastCheckIn != "2024-03-09" {
		t.Fatalf("derived fields changed: %+v", got)
	}
}

func TestUpdateOtherUsersStreakNotFound(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "alice", 0, 0)
	seedStreak(t, db, owner.ID, "Run")
	intruder := seedUser(t, db, "bob", 0, 0)
	r := streakRouter(db, intruder.ID)

	w := doJSON(t, r, http.MethodPut, "/streaks/1", map[string]interface{}{"title": "Hijack"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDeleteStreakRemovesHistory(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	streak := seedStreak(t, db, user.ID, "Run")
	rec := models.CheckIn{StreakID: streak.ID, UserID: user.ID, CheckInDate: "2024-03-09", Status: models.CheckInStatusDone, Tier: models.TierFull}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed check-in: %v", err)
	}
	r := streakRouter(db, user.ID)

	w := doJSON(t, r, http.MethodDelete, "/streaks/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var streaks, checkIns int64
	db.Model(&models.Streak{}).Count(&streaks)
	db.Model(&models.CheckIn{}).Count(&checkIns)
	if streaks != 0 || checkIns != 0 {
		t.Fatalf("leftovers: streaks=%d check_ins=%d", streaks, checkIns)
	}
}

func TestListStreaksOnlyOwn(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice", 0, 0)
	bob := seedUser(t, db, "bob", 0, 0)
	seedStreak(t, db, alice.ID, "Run")
	seedStreak(t, db, bob.ID, "Swim")
	r := streakRouter(db, alice.ID)

	w := doJSON(t, r, http.MethodGet, "/streaks", nil)
	resp := decodeResponse(t, w)
	list, _ := dataField(t, resp, "streaks").([]interface{})
	if len(list) != 1 {
		t.Fatalf("streaks count = %d, want 1", len(list))
	}
}

func TestGetBadgesProgress(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	streak := seedStreak(t, db, user.ID, "Run")
	db.Model(&streak).Update("longest_streak", 20)
	r := streakRouter(db, user.ID)

	w := doJSON(t, r, http.MethodGet, "/streaks/1/badges", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	earned, _ := dataField(t, resp, "earned").([]interface{})
	if len(earned) != 2 { // 7 and 14 day badges
		t.Fatalf("earned badges = %d, want 2", len(earned))
	}
	next, _ := dataField(t, resp, "next").(map[string]interface{})
	if next == nil || next["required_days"].(float64) != 30 {
		t.Fatalf("next badge = %#v, want 30 days", next)
	}
}
