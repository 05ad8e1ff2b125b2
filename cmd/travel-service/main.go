package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ms-travel-sales/internal/api"
	"ms-travel-sales/internal/auth"
	"ms-travel-sales/internal/cart"
	"ms-travel-sales/internal/config"
	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/database/migrations"
	"ms-travel-sales/internal/inventory"
	"ms-travel-sales/internal/kafka"
	"ms-travel-sales/internal/lock"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/payment"
	"ms-travel-sales/internal/sales"
	"ms-travel-sales/internal/sales/qr"
	"ms-travel-sales/internal/settlement"
	"ms-travel-sales/internal/sse"
	"ms-travel-sales/internal/users"
)

func newPublisher(ctx context.Context, cfg *config.Config, log *logger.Logger) kafka.Publisher {
	if !cfg.Kafka.Enabled {
		log.Warn("KAFKA", "Kafka disabled, domain events are dropped")
		return kafka.NoopPublisher{}
	}

	log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers %v", cfg.Kafka.Brokers))
	if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		log.Info("KAFKA", "Required topics ensured successfully")
	}
	return kafka.NewProducer(cfg.Kafka.Brokers)
}

func main() {
	log := logger.NewLogger("travel-sales")
	defer log.Close()

	log.Info("APP", "Starting travel sales service")
	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db, cfg.Database, log); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
	}

	rdb, err := lock.Connect(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("REDIS", err.Error())
	}
	defer rdb.Close()

	stream := sse.NewBroker()
	publisher := kafka.Tee(newPublisher(ctx, cfg, log), stream)
	defer publisher.Close()
	events := kafka.NewEmitter(publisher, cfg.Kafka.Topics, log)

	locker := lock.NewRedisLocker(rdb, cfg.Lock.TTL, cfg.Lock.MaxWait)
	engine := settlement.NewEngine(db, locker, events, log)

	handler := &api.Handler{
		Inventory: inventory.NewService(db, nil, events, log),
		Carts:     cart.NewService(db, locker, events, log),
		Engine:    engine,
		Payments:  payment.NewService(db, engine, locker, events, log),
		Sales:     sales.NewService(db, qr.NewQRGenerator(cfg.Invoice.QRSecret), log),
		Users:     users.NewService(db, log),
		Issuer:    auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Revoked:   auth.NewRevocationList(rdb),
		Logger:    log,

		Stream: stream,
		StreamTopics: []string{
			cfg.Kafka.Topics.PaymentSubmitted,
			cfg.Kafka.Topics.PaymentApproved,
			cfg.Kafka.Topics.PaymentRejected,
		},
	}

	log.Info("HTTP", "Setting up router and middleware")
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Travel sales service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP", fmt.Sprintf("HTTP server error: %v", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
		os.Exit(1)
	}
	log.Info("HTTP", "Travel sales service shutdown complete")
}
