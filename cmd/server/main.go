package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/smartflow/backend/internal/agent"
	"github.com/smartflow/backend/internal/config"
	"github.com/smartflow/backend/internal/database"
	"github.com/smartflow/backend/internal/handler"
	"github.com/smartflow/backend/internal/llm"
	"github.com/smartflow/backend/internal/queue"
	"github.com/smartflow/backend/internal/repository"
	"github.com/smartflow/backend/internal/router"
	queue_publisher "github.com/smartflow/backend/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is absent; middleware degrades

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tasks := repository.NewTaskRepo(db)
	steps := repository.NewPlanStepRepo(db)
	logs := repository.NewLogRepo(db)
	suggestions := repository.NewSuggestionRepo(db)
	activity := repository.NewActivityRepo(db)

	completer := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModel)
	store := repository.NewAssistantStore(tasks, logs, steps, suggestions)
	orchestrator := agent.NewOrchestrator(completer, store)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterAPI(e, cfg.JWTSecret, rdb, config.LoadRateLimitConfig(), config.LoadCacheConfig(), router.APIHandlers{
		Tasks:       handler.NewTaskHandler(tasks, steps),
		Logs:        handler.NewLogHandler(logs),
		Suggestions: handler.NewSuggestionHandler(suggestions),
		Activity:    handler.NewActivityHandler(activity),
		Assistant:   handler.NewAssistantHandler(orchestrator, tasks, steps, queue_publisher.PublishAssistantEvent),
	})

	// Background consumer mirrors assistant events into logs/assistant.log.
	go func() {
		if err := queue.StartAssistantConsumer(); err != nil {
			log.Printf("assistant-consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
