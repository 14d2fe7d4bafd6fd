package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/garageworks/repair-shop/internal/config"
	"github.com/garageworks/repair-shop/internal/database"
	"github.com/garageworks/repair-shop/internal/handler"
	"github.com/garageworks/repair-shop/internal/queue"
	"github.com/garageworks/repair-shop/internal/repository"
	"github.com/garageworks/repair-shop/internal/router"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables the stats cache and the auth
	// rate limiter instead of failing startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	repairs := repository.NewRepairRepo(db)
	stats := repository.NewStatsRepo(db)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, rdb, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users),
		Repairs: handler.NewRepairHandler(repairs),
		Stats:   handler.NewStatsHandler(stats),
		Users:   handler.NewUserHandler(users),
		Uploads: handler.NewUploadHandler(cfg.UploadDir),
	}, router.Stores{
		Users:   users,
		Repairs: repairs,
	})

	// Repair lifecycle events land in logs/repairs.log; the consumer keeps
	// its own reconnect loop and never takes the server down.
	go func() {
		if err := queue.StartRepairConsumer(); err != nil {
			log.Printf("repair consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
