package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/config"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

// ShopController sells freeze tokens for coins.
type ShopController struct {
	db *gorm.DB
}

// NewShopController creates a new controller instance.
func NewShopController(db *gorm.DB) *ShopController {
	return &ShopController{db: db}
}

// Catalog returns purchasable items and prices.
func (s *ShopController) Catalog(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"items": []gin.H{
			{
				"sku":         "freeze_token",
				"name":        "Freeze Token",
				"description": "Bridges one missed day without breaking the streak.",
				"price_coins": config.Get().FreezeTokenPrice,
			},
		},
	})
}

// BuyFreezeToken trades coins for one freeze token. The deduction is a
// single conditional UPDATE so a concurrent purchase can never drive
// the balance negative.
func (s *ShopController) BuyFreezeToken(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	price := config.Get().FreezeTokenPrice
	res := s.db.Model(&models.User{}).
		Where("id = ? AND coins >= ?", userID, price).
		Updates(map[string]interface{}{
			"coins":         gorm.Expr("coins - ?", price),
			"freeze_tokens": gorm.Expr("freeze_tokens + 1"),
		})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "purchase failed")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusPaymentRequired, 40220, "not enough coins")
		return
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load balance")
		return
	}
	utils.Success(ctx, gin.H{
		"coins":         user.Coins,
		"freeze_tokens": user.FreezeTokens,
	})
}
