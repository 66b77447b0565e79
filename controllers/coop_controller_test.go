package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/ledger"
	"github.com/minhpham/blaze/models"
)

func coopRouter(db *gorm.DB, userID uint) *gin.Engine {
	c := NewCoopController(db)
	r := gin.New()
	g := r.Group("", asUser(userID))
	g.POST("/coop/invites", c.SendInvite)
	g.GET("/coop/invites", c.ListInvites)
	g.POST("/coop/invites/:id/accept", c.AcceptInvite)
	g.POST("/coop/invites/:id/reject", c.RejectInvite)
	g.DELETE("/streaks/:id/coop", c.Dissolve)
	g.GET("/streaks/:id/coop", c.PartnerStatus)
	return r
}

func TestSendAndListInvite(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice", 0, 0)
	bob := seedUser(t, db, "bob", 0, 0)
	streak := seedStreak(t, db, alice.ID, "Run")

	w := doJSON(t, coopRouter(db, alice.ID), http.MethodPost, "/coop/invites",
		map[string]interface{}{"streak_id": streak.ID, "to_email": bob.Email})
	if w.Code != http.StatusOK {
		t.Fatalf("send status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, coopRouter(db, bob.ID), http.MethodGet, "/coop/invites", nil)
	resp := decodeResponse(t, w)
	invites, _ := dataField(t, resp, "invites").([]interface{})
	if len(invites) != 1 {
		t.Fatalf("invites = %d, want 1", len(invites))
	}
}

func TestSendInviteToSelfRejected(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice", 0, 0)
	streak := seedStreak(t, db, alice.ID, "Run")

	w := doJSON(t, coopRouter(db, alice.ID), http.MethodPost, "/coop/invites",
		map[string]interface{}{"streak_id": streak.ID, "to_email": alice.Email})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAcceptInviteLinksBothStreaks(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice", 0, 0)
	bob := seedUser(t, db, "bob", 0, 0)
	aliceStreak := seedStreak(t, db, alice.ID, "Run")
	bobStreak := seedStreak(t, db, bob.ID, "Swim")

	doJSON(t, coopRouter(db, alice.ID), http.MethodPost, "/coop/invites",
		map[string]interface{}{"streak_id": aliceStreak.ID, "to_email": bob.Email})

	w := doJSON(t, coopRouter(db, bob.ID), http.MethodPost, "/coop/invites/1/accept",
		map[string]interface{}{"streak_id": bobStreak.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body %s", w.Code, w.Body.String())
	}

	gotAlice := reloadStreak(t, db, aliceStreak.ID)
	gotBob := reloadStreak(t, db, bobStreak.ID)
	if gotAlice.CoopPartnerStreakID == nil || *gotAlice.CoopPartnerStreakID != bobStreak.ID {
		t.Fatalf("alice not linked: %+v", gotAlice.CoopPartnerStreakID)
	}
	if gotBob.CoopPartnerStreakID == nil || *gotBob.CoopPartnerStreakID != aliceStreak.ID {
		t.Fatalf("bob not linked: %+v", gotBob.CoopPartnerStreakID)
	}

	var invite models.CoopInvite
	db.First(&invite, 1)
	if invite.Status != models.InviteAccepted || invite.ToStreakID == nil {
		t.Fatalf("invite not settled: %+v", invite)
	}
}

func TestAcceptInviteTwiceConflicts(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice", 0, 0)
	bob := seedUser(t, db, "bob", 0, 0)
	aliceStreak := seedStreak(t, db, alice.ID, "Run")
	bobStreak := seedStreak(t, db, bob.ID, "Swim")

	doJSON(t, coopRouter(db, alice.ID), http.MethodPost, "/coop/invites",
		map[string]interface{}{"streak_id": aliceStreak.ID, "to_email": bob.Email})
	doJSON(t, coopRouter(db, bob.ID), http.MethodPost, "/coop/invites/1/accept",
		map[string]interface{}{"streak_id": bobStreak.ID})

	w := doJSON(t, coopRouter(db, bob.ID), http.MethodPost, "/coop/invites/1/accept",
		map[string]interface{}{"streak_id": bobStreak.ID})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestRejectInvite(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice", 0, 0)
	bob := seedUser(t, db, "bob", 0, 0)
	streak := seedStreak(t, db, alice.ID, "Run")

	doJSON(t, coopRouter(db, alice.ID), http.MethodPost, "/coop/invites",
		map[string]interface{}{"streak_id": streak.ID, "to_email": bob.Email})
	w := doJSON(t, coopRouter(db, bob.ID), http.MethodPost, "/coop/invites/1/reject", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var invite models.CoopInvite
	db.First(&invite, 1)
	if invite.Status != models.InviteRejected {
		t.Fatalf("status = %q, want rejected", invite.Status)
	}
}

func TestDissolveUnlinksBothSides(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice", 0, 0)
	bob := seedUser(t, db, "bob", 0, 0)
	aliceStreak := seedStreak(t, db, alice.ID, "Run")
	bobStreak := seedStreak(t, db, bob.ID, "Swim")
	db.Model(&aliceStreak).Update("coop_partner_streak_id", bobStreak.ID)
	db.Model(&bobStreak).Update("coop_partner_streak_id", aliceStreak.ID)

	w := doJSON(t, coopRouter(db, alice.ID), http.MethodDelete, "/streaks/1/coop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if reloadStreak(t, db, aliceStreak.ID).CoopPartnerStreakID != nil {
		t.Fatal("alice still linked")
	}
	if reloadStreak(t, db, bobStreak.ID).CoopPartnerStreakID != nil {
		t.Fatal("bob still linked")
	}
}

func TestPartnerStatusShowsTodaysCheckIn(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice", 0, 0)
	bob := seedUser(t, db, "bob", 0, 0)
	aliceStreak := seedStreak(t, db, alice.ID, "Run")
	bobStreak := seedStreak(t, db, bob.ID, "Swim")
	db.Model(&aliceStreak).Update("coop_partner_streak_id", bobStreak.ID)
	db.Model(&bobStreak).Update("coop_partner_streak_id", aliceStreak.ID)

	today := ledger.SystemClock().Today()
	rec := models.CheckIn{StreakID: bobStreak.ID, UserID: bob.ID, CheckInDate: today, Status: models.CheckInStatusDone, Tier: models.TierFull}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed check-in: %v", err)
	}

	w := doJSON(t, coopRouter(db, alice.ID), http.MethodGet, "/streaks/1/coop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	partner, _ := dataField(t, resp, "partner").(map[string]interface{})
	if partner["username"] != "bob" {
		t.Fatalf("partner = %v", partner["username"])
	}
	if partner["checked_in_today"] != true {
		t.Fatal("expected checked_in_today = true")
	}
}
