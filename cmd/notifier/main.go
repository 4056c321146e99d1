package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-bookstore.git/internal/config"
	kafkax "github.com/ariefcatur/go-bookstore.git/internal/kafka"
	"github.com/ariefcatur/go-bookstore.git/internal/logging"
	"github.com/ariefcatur/go-bookstore.git/internal/notifier"
	"github.com/ariefcatur/go-bookstore.git/internal/orders"
	"github.com/ariefcatur/go-bookstore.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName + "-notifier")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notifier.Service{Redis: rdb, Log: log}

	group := getenv("NOTIFIER_GROUP", "order-notifier")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), 4)
	topics := []string{orders.TopicOrderEvents}
	cons := kafkax.NewConsumer(log, cfg.KafkaBrokers, group, topics, workers)

	go func() {
		log.Info("consumer started", "group", group, "topics", topics, "workers", workers)
		if err := cons.Start(ctx, svc.HandleEvent); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
