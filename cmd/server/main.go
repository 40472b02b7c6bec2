package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ovii/ledger-service/internal/config"
	"github.com/ovii/ledger-service/internal/ledger"
	"github.com/ovii/ledger-service/internal/logger"
	"github.com/ovii/ledger-service/internal/model"
	"github.com/ovii/ledger-service/internal/repo"
	"github.com/ovii/ledger-service/internal/service"
	httptransport "github.com/ovii/ledger-service/internal/transport/http"

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
	log, err := logger.NewLogger("ledger-server")
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(
		&model.User{},
		&model.Wallet{},
		&model.Transaction{},
		&model.TransactionCharge{},
		&model.SystemWallet{},
		&model.OutboxEvent{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. kafka writer
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	// 6. repo, engine, service
	repository := repo.NewRepository(gdb, rdb, kw, log)
	tierLimits, err := cfg.Ledger.ParsedTierLimits()
	if err != nil {
		log.Fatalf("parse tier limits: %v", err)
	}
	engine := ledger.NewEngine(
		repository,
		ledger.NewLimitEnforcer(repository, tierLimits),
		ledger.NewChargeResolver(repository),
		cfg.Ledger.FeeWalletName,
		cfg.Ledger.LockTimeout(),
		log,
	)
	svc := service.NewWalletService(repository, engine, log)

	// 7. gin router
	router := httptransport.NewRouter(svc, cfg.RateLimit, log)

	// 8. serve
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("ledger-server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
