package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"designhouse-backend/internal/cache"
	"designhouse-backend/internal/catalog"
	"designhouse-backend/internal/config"
	"designhouse-backend/internal/database"
	"designhouse-backend/internal/entries"
	"designhouse-backend/internal/events"
	"designhouse-backend/internal/inventory"
	"designhouse-backend/internal/logger"
	"designhouse-backend/internal/orders"
	"designhouse-backend/internal/pricing"
	"designhouse-backend/internal/server"
	"designhouse-backend/internal/store/gormstore"

	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	log := logger.Get()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	st := gormstore.New(db, cfg.TxTimeout)

	ctx := context.Background()
	rdb, err := cache.NewClient(ctx, cache.Options{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warnf("redis unavailable, running without cache and guards: %v", err)
		rdb = nil
	}
	locker := cache.NewLocker(rdb, cfg.TxTimeout+5*time.Second)

	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	clients := []namedCloser{{"event publisher", publisher}}
	if rdb != nil {
		clients = append(clients, namedCloser{"redis", rdb})
	}

	inv := inventory.NewService(st, cache.New(rdb))
	ldg := inv.Ledger()

	app := server.NewApp(server.Deps{
		Config: cfg,
		Store:  st,
		Orders: orders.NewService(orders.Deps{
			Store:   st,
			Ledger:  ldg,
			Pricing: pricing.New(cfg.Pricing),
			Locker:  locker,
			Events:  publisher,
			Discrepancy: orders.DiscrepancyPolicy{
				AlertPercent: cfg.DiscrepancyAlertPercent,
				Hold:         cfg.DiscrepancyHold,
			},
		}),
		Entries: entries.NewService(entries.Deps{
			Store:  st,
			Ledger: ldg,
			Locker: locker,
			Events: publisher,
		}),
		Inventory: inv,
		Catalog:   catalog.NewService(st),
	})

	stopped := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		shutdown(app, shutdownTimeout, clients...)
		close(stopped)
	}()

	log.Infof("server listening on port %s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Errorf("listen: %v", err)
		closeAll(clients)
		os.Exit(1)
	}
	<-stopped
}

const shutdownTimeout = 10 * time.Second

type namedCloser struct {
	name string
	io.Closer
}

// shutdown drains in-flight requests, then closes the clients they use.
func shutdown(app *fiber.App, timeout time.Duration, clients ...namedCloser) {
	if err := app.ShutdownWithTimeout(timeout); err != nil {
		logger.Get().Warnf("shutdown: %v", err)
	}
	closeAll(clients)
}

func closeAll(clients []namedCloser) {
	for _, c := range clients {
		if err := c.Close(); err != nil {
			logger.Get().Warnf("close %s: %v", c.name, err)
		}
	}
}
