package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-bookstore.git/internal/books"
	"github.com/ariefcatur/go-bookstore.git/internal/config"
	"github.com/ariefcatur/go-bookstore.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-bookstore.git/internal/kafka"
	"github.com/ariefcatur/go-bookstore.git/internal/logging"
	"github.com/ariefcatur/go-bookstore.git/internal/orders"
	"github.com/ariefcatur/go-bookstore.git/internal/postgres"
	"github.com/ariefcatur/go-bookstore.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(log, cfg.KafkaBrokers, orders.TopicOrderEvents, 1024)
	prod.Start(ctx)

	ledger := &orders.StockLedger{DB: db}
	workflow := &orders.Workflow{DB: db, Stock: ledger}
	cart := &orders.CartStore{DB: db}
	catalog := &books.Repo{DB: db, Stock: ledger}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Workflow: workflow,
		Cart:     cart,
		Stock:    ledger,
		Redis:    rdb,
		Producer: prod,
		Service:  cfg.ServiceName,
	}
	oh.Register(router)
	bh := &httpx.BooksHandler{Repo: catalog}
	bh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	prod.WaitClosed()
}
