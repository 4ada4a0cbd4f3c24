// Command ledgerapi is the write/read HTTP ingress: it accepts commands
// and queries over REST, delegates commands to the command service, and
// serves queries from the KV projection. It never writes a projection
// row itself — that is cmd/ledgerprojector's job — grounded on the
// teacher's account-service/cmd/main.go wiring shape.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eagleledger/ledger/internal/command"
	"github.com/eagleledger/ledger/internal/eventlog"
	"github.com/eagleledger/ledger/internal/handler"
	"github.com/eagleledger/ledger/internal/platform/config"
	"github.com/eagleledger/ledger/internal/platform/logging"
	"github.com/eagleledger/ledger/internal/platform/middleware"
	platformredis "github.com/eagleledger/ledger/internal/platform/redis"
	"github.com/eagleledger/ledger/internal/projection"
	"github.com/eagleledger/ledger/internal/query"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Error("failed to ping database", "err", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CallTimeout())
	if err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// --- CQRS wiring: write side through the event log, read side from the
	// KV projection. The two never share a code path.
	eventLog := eventlog.NewStore(db, cfg.ShardCount)
	commandSvc := command.NewService(eventLog, cfg.CommandRetryMax, cfg.CallTimeout())

	balances := platformredis.NewViewCache[projection.AccountBalanceView](redisClient.Client, 0, logging.WithComponent(log, "redis.balances"))
	transactions := platformredis.NewViewCache[projection.TransactionView](redisClient.Client, 0, logging.WithComponent(log, "redis.transactions"))
	kvStore := projection.NewRedisStore(redisClient, balances, transactions)
	querySvc := query.NewService(kvStore)

	accountHandler := handler.NewAccountHandler(commandSvc, querySvc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(logging.WithComponent(log, "http")))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "ledgerapi"})
	})

	v1 := router.Group("/v1", middleware.AuthMiddleware(cfg.JWTSecret))
	v1.POST("/accounts", accountHandler.OpenAccount)
	v1.GET("/accounts/:accountId", accountHandler.GetAccount)
	v1.POST("/accounts/:accountId/deposit", accountHandler.Deposit)
	v1.POST("/accounts/:accountId/withdraw", accountHandler.Withdraw)
	v1.POST("/accounts/:accountId/close", accountHandler.Close)
	v1.GET("/accounts/:accountId/transactions", accountHandler.ListTransactions)
	v1.POST("/transfers", accountHandler.Transfer)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("ledgerapi starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
}
