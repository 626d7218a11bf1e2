package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/avelkov/task-manager/internal/config"
	"github.com/avelkov/task-manager/internal/database"
	"github.com/avelkov/task-manager/internal/handler"
	"github.com/avelkov/task-manager/internal/queue"
	"github.com/avelkov/task-manager/internal/repository"
	"github.com/avelkov/task-manager/internal/router"
	"github.com/avelkov/task-manager/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("database: %v", err)
	}
	cancel()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tasks := repository.NewTaskRepo(db)
	teams := repository.NewTeamRepo(db)

	auth := service.NewAuthService(cfg, users, tokens)

	authH := handler.NewAuthHandler(cfg, auth)
	taskH := handler.NewTaskHandler(tasks)
	teamH := handler.NewTeamHandler(teams)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; auth rate limiting disabled")
	}

	// Audit consumer runs for the lifetime of the process and reconnects on
	// broker failures.
	go func() {
		if err := queue.StartAuthConsumer(); err != nil {
			log.Printf("auth consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, config.LoadRateLimitConfig(), rdb)
	router.RegisterAPI(e, cfg, authH, taskH, teamH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
