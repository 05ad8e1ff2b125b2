// Command event-tail follows the domain event topics and logs every envelope.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"ms-travel-sales/internal/config"
	"ms-travel-sales/internal/kafka"
	"ms-travel-sales/internal/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	topics := flag.StringSlice("topics", cfg.Kafka.Topics.All(), "topics to follow")
	group := flag.String("group", "travel-sales-tail", "consumer group id")
	brokers := flag.StringSlice("brokers", cfg.Kafka.Brokers, "kafka brokers")
	flag.Parse()

	log := logger.NewConsoleLogger(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(*brokers, *topics, *group, log)
	defer consumer.Close()

	log.Info("KAFKA", fmt.Sprintf("Following %v as %s", *topics, *group))
	err := consumer.Start(ctx, func(env kafka.Envelope) error {
		log.Info("EVENT", fmt.Sprintf("%s at %s: %s", env.Type, env.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), env.Payload))
		return nil
	})
	if err != nil {
		log.Fatal("KAFKA", err.Error())
	}
}
