package main

import (
	"context"
	"fmt"
	"net/http"

	"transaction-processor/internal/config"
	"transaction-processor/internal/logger"
	"transaction-processor/internal/model"
	"transaction-processor/internal/queue"
	"transaction-processor/internal/repo"
	"transaction-processor/internal/service"
	httptransport "transaction-processor/internal/transport/http"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. load config
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&model.Transaction{}, &model.ProcessedTransaction{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. redis result backend
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. kafka writers
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	dlqw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.DLQTopic,
		Balancer: &kafka.LeastBytes{},
	}

	// 6. store, queue & gateway service
	store := repo.NewStore(gdb, log)
	status := queue.NewStatusStore(rdb, cfg.Redis.StatusTTL, log)
	taskQueue := queue.NewQueue(kw, dlqw, status, cfg.Kafka.EnqueueTimeout, log)
	submitter := service.NewSubmitter(store, taskQueue, log)

	// 7. gin router
	router := httptransport.NewRouter(submitter, status, cfg.RateLimit, log)

	// 8. serve
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("transaction-server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
