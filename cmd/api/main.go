package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gravitypharm/gravistock/internal/catalog"
	"github.com/gravitypharm/gravistock/internal/config"
	"github.com/gravitypharm/gravistock/internal/database"
	"github.com/gravitypharm/gravistock/internal/handlers"
	"github.com/gravitypharm/gravistock/internal/ledger"
	"github.com/gravitypharm/gravistock/internal/messaging"
	"github.com/gravitypharm/gravistock/internal/models"
	"github.com/gravitypharm/gravistock/internal/services/master"
	"github.com/gravitypharm/gravistock/internal/supply"
	"github.com/gravitypharm/gravistock/internal/sweep"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema (Critical for Zero-Config)
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAccount{},
		&models.Slot{},
		&models.CatalogEntry{},
		&models.StockUnit{},
		&models.MissingFlag{},
		&models.SupplyRun{},
		&models.SupplyLine{},
		&models.StationRequest{},
		&models.EventLog{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Product master bridge + catalog service
	masterClient := master.NewClient(cfg.Master.URL, cfg.Master.Database, cfg.Master.Username, cfg.Master.Password)
	if _, err := masterClient.Authenticate(); err != nil {
		log.Printf("⚠️ Product master unreachable, running on local catalog: %v", err)
	}

	cache := catalog.NewNameCache()
	catalogSvc := catalog.NewService(db.DB, masterClient, cache,
		time.Duration(cfg.Master.RefreshInterval)*time.Minute)
	catalogSvc.Start()

	// 5. Domain services
	led := ledger.New(db.DB, catalogSvc, cfg.Station.Name, cfg.Station.DeliveryWeekday)
	swp := sweep.New(led, cfg.Station.Name)
	workflow := supply.New(led, cfg.Station.Name)
	requests := messaging.New(db.DB, cfg.Station.Name)

	// 6. Station request poller. The hub watches incoming requests, every
	// other station watches for answers to its own.
	poller := messaging.NewPoller(requests, cfg.Station.PollInterval, cfg.Station.Hub,
		func(req models.StationRequest) {
			log.Printf("📨 Station request %s [%s] %s x%d (%s)",
				req.ID, req.Status, req.DisplayName, req.Quantity, req.SenderStation)
		})
	poller.Start()

	// 7. Set up HTTP router
	router := handlers.NewRouter(db, cfg, catalogSvc, led, swp, workflow, requests)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Station %q starting on port %s (hub=%v)\n", cfg.Station.Name, cfg.Port, cfg.Station.Hub)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	poller.Stop()
	catalogSvc.Stop()

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
