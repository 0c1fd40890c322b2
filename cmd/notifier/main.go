package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmtable/internal/config"
	"farmtable/internal/db"
	"farmtable/internal/events"
	"farmtable/internal/notify"
	chatrepo "farmtable/internal/repository/chat"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[notifier] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatalf("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.ConnectWithRetry(ctx, cfg.DBConnString, 10, 2*time.Second)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	var dedupe notify.Deduper
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Printf("redis not reachable, dedupe may let duplicates through: %v", err)
		}
		dedupe = notify.NewRedisDeduper(rdb, cfg.NotifyDedupeTTL)
	}

	bridge := notify.NewBridge(chatrepo.NewPostgres(dbpool, logger), dedupe, logger)

	group, err := events.NewConsumerGroup(cfg.KafkaBrokers, cfg.NotifierGroupID)
	if err != nil {
		logger.Fatalf("create consumer group: %v", err)
	}
	defer group.Close()

	logger.Printf("consuming %s as group %s", cfg.OrderEventsTopic, cfg.NotifierGroupID)
	if err := events.NewConsumer(group, cfg.OrderEventsTopic, bridge, logger).Run(ctx); err != nil {
		logger.Fatalf("consume: %v", err)
	}
	logger.Printf("notifier stopped")
}
