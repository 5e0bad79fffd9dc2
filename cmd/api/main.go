package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freight-auction/internal/core/clock"
	"freight-auction/internal/core/config"
	"freight-auction/internal/core/events"
	"freight-auction/internal/core/logger"
	"freight-auction/internal/core/server"
	offerhandler "freight-auction/internal/features/offers/handler"
	offerservice "freight-auction/internal/features/offers/service"
	settlementhandler "freight-auction/internal/features/settlement/handler"
	settlementservice "freight-auction/internal/features/settlement/service"
	shipmenthandler "freight-auction/internal/features/shipments/handler"
	shipmentservice "freight-auction/internal/features/shipments/service"
	"freight-auction/internal/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// @title Freight Auction API
// @version 1.0
// @description This API runs freight shipment auctions: customers post shipments, logistics agents bid, and acceptance settles the auction atomically.
// @contact.name API Support
// @contact.email support@freightauction.io
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	store, err := newStore(cfg)
	if err != nil {
		l.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		l.Fatal("Store health check failed", zap.Error(err))
	}
	l.Info("Store connection verified")

	dispatcher, err := newDispatcher(cfg)
	if err != nil {
		l.Fatal("Failed to initialize event publishers", zap.Error(err))
	}
	defer dispatcher.Close()

	clk := clock.System{}

	// Services
	registry := shipmentservice.NewRegistry(store, clk, dispatcher, cfg.PenaltyPercent)
	ledger := offerservice.NewLedger(store, clk)
	coordinator := settlementservice.NewCoordinator(store, clk, dispatcher)
	scheduler := settlementservice.NewDeadlineScheduler(store, registry, clk,
		time.Duration(cfg.SweepIntervalSeconds)*time.Second)

	// Handlers
	shipmentHdl := shipmenthandler.NewShipmentHandler(registry, ledger)
	offerHdl := offerhandler.NewOfferHandler(ledger)
	settlementHdl := settlementhandler.NewSettlementHandler(coordinator)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Post("/shipments", shipmentHdl.CreateShipment)
	srv.App.Get("/shipments/:id", shipmentHdl.GetShipment)
	srv.App.Patch("/shipments/:id/deadline", shipmentHdl.ExtendDeadline)
	srv.App.Post("/shipments/:id/cancel", shipmentHdl.CancelShipment)
	srv.App.Post("/shipments/:id/offers", offerHdl.SubmitOffer)
	srv.App.Post("/shipments/:id/accept", settlementHdl.AcceptOffer)
	srv.App.Post("/offers/:id/reject", offerHdl.RejectOffer)
	srv.App.Get("/health", func(c *fiber.Ctx) error {
		if err := store.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Deadline sweeper
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go scheduler.Run(sweepCtx)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		l.Info("Shutting down")
		stopSweep()
		if err := srv.App.ShutdownWithTimeout(10 * time.Second); err != nil {
			l.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}

// newStore builds the configured storage backend.
func newStore(cfg *config.AppConfig) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		return storage.NewRedisStore(cfg.Storage.RedisURL)
	case "postgres":
		store, err := storage.NewPostgresStore(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(context.Background()); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return storage.NewMemoryStore(), nil
	}
}

// newDispatcher assembles the event fan-out from the configured publishers.
func newDispatcher(cfg *config.AppConfig) (*events.Dispatcher, error) {
	var publishers []events.Publisher

	if cfg.Events.KafkaBroker != "" {
		publishers = append(publishers, events.NewKafkaPublisher(cfg.Events.KafkaBroker, cfg.Events.KafkaTopic))
	}

	feed, err := events.NewRedisFeedPublisher(cfg.Storage.RedisURL, cfg.Events.FeedChannelPrefix)
	if err != nil {
		return nil, err
	}
	publishers = append(publishers, feed)

	return events.NewDispatcher(publishers...), nil
}
