package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/minhpham/blaze/ledger"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/utils"
)

// PoolController runs death pools. Members escrow coins, anyone who
// misses a day of check-ins is swept out, survivors split the pot when
// the pool ends.
type PoolController struct {
	db    *gorm.DB
	clock ledger.Clock
}

// NewPoolController creates a new controller instance.
func NewPoolController(db *gorm.DB) *PoolController {
	return &PoolController{db: db, clock: ledger.SystemClock()}
}

type createPoolRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	StakeAmount int    `json:"stake_amount" binding:"required,min=1"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
}

// CreatePool creates a pool and enrolls the creator, escrowing their
// stake immediately.
func (p *PoolController) CreatePool(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req createPoolRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}
	if !validDay(req.StartDate) || !validDay(req.EndDate) || req.EndDate <= req.StartDate {
		utils.Error(ctx, http.StatusBadRequest, 40050, "dates must be YYYY-MM-DD with end after start")
		return
	}
	if req.StartDate < p.clock.Today() {
		utils.Error(ctx, http.StatusBadRequest, 40051, "start date cannot be in the past")
		return
	}

	var pool models.DeathPool
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := escrowCoins(tx, userID, req.StakeAmount); err != nil {
			return err
		}
		pool = models.DeathPool{
			Name:        utils.Sanitize(req.Name),
			StakeAmount: req.StakeAmount,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Status:      models.PoolActive,
			CreatedBy:   userID,
		}
		if err := tx.Create(&pool).Error; err != nil {
			return err
		}
		return tx.Create(&models.DeathPoolMember{
			PoolID:     pool.ID,
			UserID:     userID,
			StakeCoins: req.StakeAmount,
			IsActive:   true,
			JoinedAt:   time.Now().UTC(),
		}).Error
	})
	if err != nil {
		respondPoolError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"pool": pool})
}

// JoinPool enrolls the caller in a pool that has not started yet.
func (p *PoolController) JoinPool(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	poolID, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid pool id")
		return
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		var pool models.DeathPool
		if err := tx.First(&pool, poolID).Error; err != nil {
			return err
		}
		if pool.Status != models.PoolActive {
			return errPoolEnded
		}
		if pool.StartDate <= p.clock.Today() {
			return errPoolStarted
		}

		if err := escrowCoins(tx, userID, pool.StakeAmount); err != nil {
			return err
		}
		member := models.DeathPoolMember{
			PoolID:     pool.ID,
			UserID:     userID,
			StakeCoins: pool.StakeAmount,
			IsActive:   true,
			JoinedAt:   time.Now().UTC(),
		}
		if err := tx.Create(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errPoolAlreadyIn
			}
			return err
		}
		return nil
	})
	if err != nil {
		respondPoolError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "joined pool"})
}

// ListPools returns pools the caller belongs to plus joinable upcoming
// pools.
func (p *PoolController) ListPools(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var mine []models.DeathPool
	if err := p.db.Preload("Members").Preload("Members.User").
		Joins("JOIN death_pool_members ON death_pool_members.pool_id = death_pools.id").
		Where("death_pool_members.user_id = ?", userID).
		Order("death_pools.created_at DESC").Find(&mine).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list pools")
		return
	}

	var open []models.DeathPool
	if err := p.db.Where("status = ? AND start_date > ?", models.PoolActive, p.clock.Today()).
		Order("start_date ASC").Limit(20).Find(&open).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list pools")
		return
	}

	utils.Success(ctx, gin.H{"my_pools": mine, "open_pools": open})
}

// Sweep eliminates members who missed yesterday and settles pools past
// their end date. Meant to be hit by a daily scheduler.
func (p *PoolController) Sweep(ctx *gin.Context) {
	eliminated, settled, err := p.RunSweep()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "sweep failed")
		return
	}
	utils.Success(ctx, gin.H{"eliminated": eliminated, "pools_settled": settled})
}

// RunSweep does the elimination and settlement passes. Exposed so the
// background worker can share it with the HTTP handler.
func (p *PoolController) RunSweep() (eliminated int, settled int, err error) {
	today := p.clock.Today()
	yesterday := ledger.AddDays(today, -1)

	var pools []models.DeathPool
	if err = p.db.Where("status = ?", models.PoolActive).Find(&pools).Error; err != nil {
		return 0, 0, err
	}

	for i := range pools {
		pool := &pools[i]
		if pool.StartDate >= today {
			continue
		}

		poolErr := p.db.Transaction(func(tx *gorm.DB) error {
			var members []models.DeathPoolMember
			if err := tx.Where("pool_id = ? AND is_active = ?", pool.ID, true).Find(&members).Error; err != nil {
				return err
			}

			for j := range members {
				m := &members[j]
				var count int64
				if err := tx.Model(&models.CheckIn{}).
					Joins("JOIN streaks ON streaks.id = check_ins.streak_id").
					Where("streaks.user_id = ? AND check_ins.check_in_date = ?", m.UserID, yesterday).
					Count(&count).Error; err != nil {
					return err
				}
				if count == 0 {
					if err := tx.Model(m).Update("is_active", false).Error; err != nil {
						return err
					}
					eliminated++
				}
			}

			if pool.EndDate < today {
				return settlePool(tx, pool)
			}
			return nil
		})
		if poolErr != nil {
			utils.Sugar.Errorw("pool sweep failed", "pool_id", pool.ID, "error", poolErr)
			continue
		}
		if pool.EndDate < today {
			settled++
		}
	}
	return eliminated, settled, nil
}

// settlePool splits the pot evenly among surviving members. With no
// survivors the pot is burned.
func settlePool(tx *gorm.DB, pool *models.DeathPool) error {
	var members []models.DeathPoolMember
	if err := tx.Where("pool_id = ?", pool.ID).Find(&members).Error; err != nil {
		return err
	}

	pot := 0
	survivors := make([]uint, 0, len(members))
	for _, m := range members {
		pot += m.StakeCoins
		if m.IsActive {
			survivors = append(survivors, m.UserID)
		}
	}

	if len(survivors) > 0 {
		share := pot / len(survivors)
		for _, uid := range survivors {
			if err := tx.Model(&models.User{}).Where("id = ?", uid).
				Update("coins", gorm.Expr("coins + ?", share)).Error; err != nil {
				return err
			}
		}
	}

	return tx.Model(pool).Update("status", models.PoolEnded).Error
}

// escrowCoins deducts a stake with a conditional UPDATE so concurrent
// joins cannot overdraw.
func escrowCoins(tx *gorm.DB, userID uint, amount int) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND coins >= ?", userID, amount).
		Update("coins", gorm.Expr("coins - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errPoolInsufficient
	}
	return nil
}

func validDay(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse(ledger.DayLayout, s)
	return err == nil
}

type poolError string

func (e poolError) Error() string { return string(e) }

const (
	errPoolEnded        = poolError("pool has ended")
	errPoolStarted      = poolError("pool already started")
	errPoolAlreadyIn    = poolError("already a member")
	errPoolInsufficient = poolError("insufficient coins")
)

func respondPoolError(ctx *gin.Context, err error) {
	switch err {
	case errPoolEnded:
		utils.Error(ctx, http.StatusConflict, 40950, "pool has ended")
	case errPoolStarted:
		utils.Error(ctx, http.StatusConflict, 40951, "pool already started")
	case errPoolAlreadyIn:
		utils.Error(ctx, http.StatusConflict, 40952, "already a member of this pool")
	case errPoolInsufficient:
		utils.Error(ctx, http.StatusPaymentRequired, 40222, "not enough coins")
	default:
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "pool not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50052, "pool operation failed")
	}
}
