// Command ledgerprojector tails the event log's change stream and applies
// every event to the KV and relational projections, grounded on the
// teacher's event-subscriber binaries (transaction-service's Redis
// Streams consumer goroutine), adapted to poll the Postgres outbox table
// instead of a broker.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/eagleledger/ledger/internal/platform/config"
	"github.com/eagleledger/ledger/internal/platform/logging"
	platformredis "github.com/eagleledger/ledger/internal/platform/redis"
	"github.com/eagleledger/ledger/internal/projection"
	"github.com/eagleledger/ledger/internal/stream"
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

	balances := platformredis.NewViewCache[projection.AccountBalanceView](redisClient.Client, 0, logging.WithComponent(log, "redis.balances"))
	transactions := platformredis.NewViewCache[projection.TransactionView](redisClient.Client, 0, logging.WithComponent(log, "redis.transactions"))
	kvStore := projection.NewRedisStore(redisClient, balances, transactions)

	kvTarget := projection.NewKVTarget(kvStore)
	relationalTarget := projection.NewRelationalTarget(db)
	projectionSvc := projection.NewService(kvTarget, relationalTarget, cfg.CallTimeout(), logging.WithComponent(log, "projection"))

	outbox := stream.NewPostgresOutbox(db)
	checkpoints := stream.NewPostgresCheckpoints(db)

	consumer := stream.NewConsumer(outbox, checkpoints, projectionSvc, stream.Config{
		PollInterval:     cfg.PollInterval(),
		BatchLimit:       cfg.StreamBatchLimit,
		InitPolicy:       stream.IteratorPolicy(cfg.IteratorInit),
		DescribeInterval: cfg.DescribeInterval(),
		CallTimeout:      cfg.CallTimeout(),
	}, logging.WithComponent(log, "stream"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	log.Info("ledgerprojector starting", "shard_count", cfg.ShardCount)
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("consumer stopped unexpectedly", "err", err)
		os.Exit(1)
	}
	log.Info("ledgerprojector stopped")
}
