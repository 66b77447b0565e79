package main

import (
	"github.com/minhpham/blaze/config"
	"github.com/minhpham/blaze/fitsync"
	"github.com/minhpham/blaze/models"
	"github.com/minhpham/blaze/routes"
	"github.com/minhpham/blaze/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Streak{},
		&models.CheckIn{},
		&models.CoopInvite{},
		&models.DeathPool{},
		&models.DeathPoolMember{},
	)

	// Background Fitbit sync records automatic check-ins
	worker := fitsync.NewWorker(db)
	worker.Start()
	defer worker.Stop()

	r := routes.SetupRouter(db, worker)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
