package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/propertindo/pemilu-api/internal/config"
	"github.com/propertindo/pemilu-api/internal/logger"
	"github.com/propertindo/pemilu-api/internal/scheduler"
	"github.com/propertindo/pemilu-api/internal/server"
	"github.com/propertindo/pemilu-api/internal/storage/postgres"
	"github.com/propertindo/pemilu-api/internal/ws"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.LogLevel)
	log := logger.Get()

	log.Info("Starting Pemilu API")

	db, err := postgres.Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer postgres.Close()

	if err := postgres.AutoMigrate(db); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	hub := ws.NewHub()

	eventRepo := postgres.NewEventRepository(db)
	participantRepo := postgres.NewParticipantRepository(db)
	selectionRepo := postgres.NewSelectionRepository(db)
	listingRepo := postgres.NewListingRepository(db)

	driver := scheduler.NewDriver(eventRepo, participantRepo, selectionRepo, listingRepo, hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := scheduler.NewTicker(driver, cfg.Scheduler.TickInterval)
	go ticker.Run(ctx)

	srv := server.New(cfg, db, driver, hub)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped")
}
