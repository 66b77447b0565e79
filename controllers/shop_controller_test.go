package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func shopRouter(db *gorm.DB, userID uint) *gin.Engine {
	c := NewShopController(db)
	r := gin.New()
	g := r.Group("", asUser(userID))
	g.GET("/shop", c.Catalog)
	g.POST("/shop/freeze-token", c.BuyFreezeToken)
	return r
}

func TestBuyFreezeToken(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 250, 0)
	r := shopRouter(db, user.ID)

	w := doJSON(t, r, http.MethodPost, "/shop/freeze-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	got := reloadUser(t, db, user.ID)
	if got.Coins != 150 || got.FreezeTokens != 1 {
		t.Fatalf("coins=%d tokens=%d, want 150/1", got.Coins, got.FreezeTokens)
	}
}

func TestBuyFreezeTokenInsufficientCoins(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 99, 0)
	r := shopRouter(db, user.ID)

	w := doJSON(t, r, http.MethodPost, "/shop/freeze-token", nil)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", w.Code)
	}
	got := reloadUser(t, db, user.ID)
	if got.Coins != 99 || got.FreezeTokens != 0 {
		t.Fatalf("balance changed: coins=%d tokens=%d", got.Coins, got.FreezeTokens)
	}
}

func TestCatalogListsFreezeToken(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice", 0, 0)
	r := shopRouter(db, user.ID)

	w := doJSON(t, r, http.MethodGet, "/shop", nil)
	resp := decodeResponse(t, w)
	items, _ := dataField(t, resp, "items").([]interface{})
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["price_coins"].(float64) != 100 {
		t.Fatalf("price = %v, want 100", item["price_coins"])
	}
}
