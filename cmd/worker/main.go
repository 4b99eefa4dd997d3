package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"transaction-processor/internal/config"
	"transaction-processor/internal/logger"
	"transaction-processor/internal/model"
	"transaction-processor/internal/queue"
	"transaction-processor/internal/rates"
	"transaction-processor/internal/repo"
	"transaction-processor/internal/worker"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&model.Transaction{}, &model.ProcessedTransaction{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	dlqw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.DLQTopic,
		Balancer: &kafka.LeastBytes{},
	}

	store := repo.NewStore(gdb, log)
	status := queue.NewStatusStore(rdb, cfg.Redis.StatusTTL, log)
	taskQueue := queue.NewQueue(nil, dlqw, status, cfg.Kafka.EnqueueTimeout, log)
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, log)
	defer consumer.Close()

	rateClient := rates.NewClient(cfg.Rates.BaseURL, cfg.Rates.APIKey,
		cfg.Rates.TargetCurrency, cfg.Rates.Timeout, log)
	processor := worker.NewProcessor(store, rateClient, cfg.Rates.TargetCurrency, log)

	w := worker.New(consumer, taskQueue, status, cfg.Worker.MaxAttempts, cfg.Worker.RetryBackoff, log)
	w.Register(queue.KindConvertTransaction, processor.Process)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("transaction-worker consuming %s (group %s)", cfg.Kafka.Topic, cfg.Kafka.GroupID)
	if err := w.Run(ctx); err != nil {
		log.Fatalf("worker: %v", err)
	}
	log.Info("transaction-worker stopped")
}
