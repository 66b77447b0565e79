package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/minhpham/blaze/config"
	"github.com/minhpham/blaze/middleware"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()
	config.SetForTesting(config.AppConfig{
		JWTSecret:          "test-secret",
		CheckinRewardCoins: 30,
		FreezeTokenPrice:   100,
		StakePayoutPercent: 150,
	})
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Streak{},
		&models.CheckIn{},
		&models.CoopInvite{},
		&models.DeathPool{},
		&models.DeathPoolMember{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// asUser fakes the auth middleware for handler tests.
func asUser(userID uint) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUserIDKey, userID)
		ctx.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) utils.JSONResponse {
	t.Helper()
	var resp utils.JSONResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return resp
}

func dataField(t *testing.T, resp utils.JSONResponse, key string) interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("response data is not an object: %#v", resp.Data)
	}
	return data[key]
}

func seedUser(t *testing.T, db *gorm.DB, username string, coins, freezeTokens int) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		Coins:        coins,
		FreezeTokens: freezeTokens,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedStreak(t *testing.T, db *gorm.DB, userID uint, title string) models.Streak {
	t.Helper()
	streak := models.Streak{UserID: userID, Title: title, StakeStatus: models.StakeNone}
	if err := db.Create(&streak).Error; err != nil {
		t.Fatalf("seed streak: %v", err)
	}
	return streak
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return user
}

func reloadStreak(t *testing.T, db *gorm.DB, id uint) models.Streak {
	t.Helper()
	var streak models.Streak
	if err := db.First(&streak, id).Error; err != nil {
		t.Fatalf("reload streak: %v", err)
	}
	return streak
}
