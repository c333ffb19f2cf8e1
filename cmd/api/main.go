// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/analytics"
	"github.com/your-org/shoe-pos/internal/domain/cart"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/events"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
	"github.com/your-org/shoe-pos/internal/domain/sales"
	"github.com/your-org/shoe-pos/internal/infrastructure/database"
	"github.com/your-org/shoe-pos/internal/infrastructure/database/migration"
	"github.com/your-org/shoe-pos/internal/infrastructure/database/redis"
	"github.com/your-org/shoe-pos/internal/infrastructure/messaging"
	"github.com/your-org/shoe-pos/internal/interfaces/http"
	"github.com/your-org/shoe-pos/internal/interfaces/http/routes"
	"github.com/your-org/shoe-pos/internal/interfaces/websocket"
	"github.com/your-org/shoe-pos/internal/pkg/email"
	"github.com/your-org/shoe-pos/internal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg)
	logg.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Infof("🚀 Starting %s", cfg.App.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.NewConnection(cfg, logg)
	if err != nil {
		logg.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Connect to Redis. The API still sells without it; carts, idempotent
	// replay and cross-instance push are disabled.
	var redisClient *goredis.Client
	if rc, err := redis.NewConnection(cfg, logg); err != nil {
		logg.WithError(err).Warn("Redis unavailable, running without carts and shared events")
	} else {
		defer rc.Close()
		redisClient = rc.GetClient()
	}

	// Run database migrations
	m := migration.NewMigration(db.GetDB(), logg)

	if err := m.RunAutoMigrations(); err != nil {
		logg.WithError(err).Fatal("Database migration failed")
	}

	if err := m.CreateIndexes(); err != nil {
		logg.WithError(err).Warn("Index creation failed")
	}

	// Seed sample data in development
	if cfg.IsDevelopment() && cfg.Database.SeedSample {
		if err := m.SeedInitialData(); err != nil {
			logg.WithError(err).Warn("Data seeding failed")
		}
		if _, err := m.GetTableInfo(); err != nil {
			logg.WithError(err).Warn("Failed to read table info")
		}
	}

	// Inventory events: Redis fans out to every instance's hub, Kafka is
	// an optional durable sink for downstream consumers.
	var hub *websocket.Hub
	if cfg.Realtime.Enabled {
		hub = websocket.NewHub(cfg.Realtime, cfg.Security.CORSAllowedOrigins, logg)
		go hub.Run(ctx)
	}

	var publishers []events.Publisher
	switch {
	case redisClient != nil:
		publishers = append(publishers, messaging.NewRedisPublisher(redisClient, cfg.Realtime.Channel))
		if hub != nil {
			subscriber := messaging.NewRedisSubscriber(redisClient, cfg.Realtime.Channel, logg)
			go func() {
				if err := subscriber.Run(ctx, hub.Broadcast); err != nil && ctx.Err() == nil {
					logg.WithError(err).Error("Inventory event subscription stopped")
				}
			}()
		}
	case hub != nil:
		publishers = append(publishers, hub)
	}

	if cfg.KafkaEnabled() {
		kafkaPublisher := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logg)
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
	}
	publisher := events.NewMulti(publishers...)

	// Domain services
	inventoryService := inventory.NewService(db.GetDB(), cfg, logg)
	if cfg.AlertEmailsEnabled() {
		inventoryService.SetNotifier(inventory.NewEmailNotifier(email.NewService(cfg, logg)))
		logg.WithField("provider", cfg.Email.Provider).Info("Stock alert emails enabled")
	}
	catalogService := catalog.NewService(db.GetDB(), cfg, inventoryService, publisher, logg)
	salesService := sales.NewService(db.GetDB(), cfg, inventoryService, publisher, logg)
	analyticsService := analytics.NewService(db.GetDB(), cfg, logg)

	var cartService *cart.Service
	if redisClient != nil {
		cartService = cart.NewService(redisClient, cfg, catalogService, salesService, logg)
	}

	logg.Info("✅ All systems operational!")

	server := http.NewServer(cfg, logg, db, redisClient, hub, &routes.Dependencies{
		Config:      cfg,
		Log:         logg,
		RedisClient: redisClient,
		Catalog:     catalogService,
		Inventory:   inventoryService,
		Sales:       salesService,
		Analytics:   analyticsService,
		Carts:       cartService,
	})

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logg.WithError(err).Error("HTTP server failed")
		}
	}

	logg.Info("👋 Shutting down gracefully...")

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logg.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	stop()
	logg.Info("✅ Server shutdown completed")
}
