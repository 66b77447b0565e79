package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/ledger"
	"github.com/minhpham/blaze/models"
)

const testDay = "2024-03-10"

func checkInRouter(db *gorm.DB, userID uint) *gin.Engine {
	engine := ledger.NewWithClock(db, ledger.FixedClock(testDay))
	c := NewCheckInController(db, engine)

	r := gin.New()
	g := r.Group("", asUser(userID))
	g.POST("/streaks/:id/checkin", c.CheckIn)
	g.DELETE("/streaks/:id/checkin", c.Undo)
	g.GET("/streaks/:id/checkins", c.ListMonth)
	return r
}

func TestCheckInAwardsFullReward(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	streak := seedStreak(t, db, user.ID, "Read")
	r := checkInRouter(db, user.ID)

	w := doJSON(t, r, http.MethodPost, "/streaks/1/checkin", map[string]string{"tier": "full"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if earned, _ := dataField(t, resp, "coins_earned").(float64); earned != 30 {
		t.Fatalf("coins_earned = %v, want 30", earned)
	}
	if got := reloadUser(t, db, user.ID).Coins; got != 30 {
		t.Fatalf("coins = %d, want 30", got)
	}
	if got := reloadStreak(t, db, streak.ID).CurrentStreak; got != 1 {
		t.Fatalf("current streak = %d, want 1", got)
	}
}

func TestCheckInScalesRewardByTier(t *testing.T) {
	cases := []struct {
		tier string
		want int
	}{
		{"half", 15},
		{"minimal", 7},
	}
	for _, tc := range cases {
		t.Run(tc.tier, func(t *testing.T) {
			db := newTestDB(t)
			user := seedUser(t, db, "alice", 0, 0)
			seedStreak(t, db, user.ID, "Read")
			r := checkInRouter(db, user.ID)

			w := doJSON(t, r, http.MethodPost, "/streaks/1/checkin", map[string]string{"tier": tc.tier})
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			if got := reloadUser(t, db, user.ID).Coins; got != tc.want {
				t.Fatalf("coins = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCheckInRejectsUnknownTier(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	seedStreak(t, db, user.ID, "Read")
	r := checkInRouter(db, user.ID)

	w := doJSON(t, r, http.MethodPost, "/streaks/1/checkin", map[string]string{"tier": "heroic"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCheckInEmptyBodyDefaultsToFull(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	streak := seedStreak(t, db, user.ID, "Read")
	r := checkInRouter(db, user.ID)

	w := doJSON(t, r, http.MethodPost, "/streaks/1/checkin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var rec models.CheckIn
	if err := db.Where("streak_id = ?", streak.ID).First(&rec).Error; err != nil {
		t.Fatalf("load check-in: %v", err)
	}
	if rec.Tier != models.TierFull {
		t.Fatalf("tier = %q, want full", rec.Tier)
	}
}

func TestSecondCheckInConflicts(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	seedStreak(t, db, user.ID, "Read")
	r := checkInRouter(db, user.ID)

	doJSON(t, r, http.MethodPost, "/streaks/1/checkin", nil)
	w := doJSON(t, r, http.MethodPost, "/streaks/1/checkin", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	// Reward must not be paid twice.
	if got := reloadUser(t, db, user.ID).Coins; got != 30 {
		t.Fatalf("coins = %d, want 30", got)
	}
}

func TestCheckInOtherUsersStreakNotFound(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "alice", 0, 0)
	seedStreak(t, db, owner.ID, "Read")
	intruder := seedUser(t, db, "bob", 0, 0)
	r := checkInRouter(db, intruder.ID)

	w := doJSON(t, r, http.MethodPost, "/streaks/1/checkin", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUndoCheckIn(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	streak := seedStreak(t, db, user.ID, "Read")
	r := checkInRouter(db, user.ID)

	doJSON(t, r, http.MethodPost, "/streaks/1/checkin", nil)
	w := doJSON(t, r, http.MethodDelete, "/streaks/1/checkin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	got := reloadStreak(t, db, streak.ID)
	if got.CurrentStreak != 0 || got.LastCheckIn != "" {
		t.Fatalf("streak not reset: current=%d last=%q", got.CurrentStreak, got.LastCheckIn)
	}
}

func TestUndoWithoutCheckInConflicts(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	seedStreak(t, db, user.ID, "Read")
	r := checkInRouter(db, user.ID)

	w := doJSON(t, r, http.MethodDelete, "/streaks/1/checkin", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestListMonthFiltersByMonth(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	streak := seedStreak(t, db, user.ID, "Read")
	for _, day := range []string{"2024-02-28", "2024-03-01", "2024-03-09"} {
		rec := models.CheckIn{StreakID: streak.ID, UserID: user.ID, CheckInDate: day, Status: models.CheckInStatusDone, Tier: models.TierFull}
		if err := db.Create(&rec).Error; err != nil {
			t.Fatalf("seed check-in: %v", err)
		}
	}
	r := checkInRouter(db, user.ID)

	w := doJSON(t, r, http.MethodGet, "/streaks/1/checkins?month=2024-03", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	list, _ := dataField(t, resp, "check_ins").([]interface{})
	if len(list) != 2 {
		t.Fatalf("check_ins count = %d, want 2", len(list))
	}
}

func TestListMonthDefaultsToClockMonth(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	streak := seedStreak(t, db, user.ID, "Read")
	rec := models.CheckIn{StreakID: streak.ID, UserID: user.ID, CheckInDate: testDay, Status: models.CheckInStatusDone, Tier: models.TierFull}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed check-in: %v", err)
	}
	r := checkInRouter(db, user.ID)

	// No month param: the engine's clock decides, not the wall clock.
	w := doJSON(t, r, http.MethodGet, "/streaks/1/checkins", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if month, _ := dataField(t, resp, "month").(string); month != "2024-03" {
		t.Fatalf("month = %q, want 2024-03", month)
	}
	list, _ := dataField(t, resp, "check_ins").([]interface{})
	if len(list) != 1 {
		t.Fatalf("check_ins count = %d, want 1", len(list))
	}
}

func TestListMonthRejectsBadMonth(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	seedStreak(t, db, user.ID, "Read")
	r := checkInRouter(db, user.ID)

	w := doJSON(t, r, http.MethodGet, "/streaks/1/checkins?month=march", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
