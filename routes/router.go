package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/config"
	"github.com/minhpham/blaze/controllers"
	"github.com/minhpham/blaze/fitsync"
	"github.com/minhpham/blaze/middleware"
	"github.com/minhpham/blaze/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, worker *fitsync.Worker) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	streakController := controllers.NewStreakController(db)
	checkInController := controllers.NewCheckInController(db, worker.Engine())
	shopController := controllers.NewShopController(db)
	stakeController := controllers.NewStakeController(db)
	coopController := controllers.NewCoopController(db)
	poolController := controllers.NewPoolController(db)
	wrappedController := controllers.NewWrappedController(db)
	statsController := controllers.NewStatsController(db)
	fitbitController := controllers.NewFitbitController(db, worker)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public stats endpoint
	api.GET("/stats", statsController.GetStats)

	// OAuth callback lands here without a bearer token
	api.GET("/fitbit/callback", fitbitController.Callback)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.GET("/streaks", streakController.ListStreaks)
	protected.POST("/streaks", streakController.CreateStreak)
	protected.PUT("/streaks/:id", streakController.UpdateStreak)
	protected.DELETE("/streaks/:id", streakController.DeleteStreak)
	protected.GET("/streaks/:id/badges", streakController.GetBadges)

	protected.POST("/streaks/:id/checkin", checkInController.CheckIn)
	protected.DELETE("/streaks/:id/checkin", checkInController.Undo)
	protected.GET("/streaks/:id/checkins", checkInController.ListMonth)

	protected.GET("/shop", shopController.Catalog)
	protected.POST("/shop/freeze-token", shopController.BuyFreezeToken)

	protected.POST("/streaks/:id/stake", stakeController.PlaceStake)
	protected.POST("/streaks/:id/stake/claim", stakeController.ClaimStake)

	protected.POST("/coop/invites", coopController.SendInvite)
	protected.GET("/coop/invites", coopController.ListInvites)
	protected.POST("/coop/invites/:id/accept", coopController.AcceptInvite)
	protected.POST("/coop/invites/:id/reject", coopController.RejectInvite)
	protected.DELETE("/streaks/:id/coop", coopController.Dissolve)
	protected.GET("/streaks/:id/coop", coopController.PartnerStatus)

	protected.POST("/pools", poolController.CreatePool)
	protected.POST("/pools/:id/join", poolController.JoinPool)
	protected.GET("/pools", poolController.ListPools)

	protected.GET("/wrapped/:month", wrappedController.GetWrapped)

	protected.GET("/fitbit/connect", fitbitController.Connect)
	protected.DELETE("/fitbit", fitbitController.Disconnect)
	protected.PATCH("/streaks/:id/auto-checkin", fitbitController.SetAutoCheckin)

	cron := api.Group("/cron")
	cron.Use(middleware.CronSecret())
	cron.POST("/fitsync", fitbitController.SyncNow)
	cron.POST("/pools/sweep", poolController.Sweep)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
