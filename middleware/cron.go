package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minhpham/blaze/config"
	"github.com/minhpham/blaze/utils"
)

// CronSecret guards scheduler-only endpoints with a shared secret
// passed in the x-cron-secret header.
func CronSecret() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		secret := config.Get().CronSecret
		got := ctx.GetHeader("x-cron-secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(got)) != 1 {
			utils.Error(ctx, http.StatusForbidden, 40310, "forbidden")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
