// Package main is the entry point for the alarm routine manager server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/alarm-routine-manager/backend/internal/calendarsync"
	"github.com/alarm-routine-manager/backend/internal/config"
	"github.com/alarm-routine-manager/backend/internal/importer"
	"github.com/alarm-routine-manager/backend/internal/logger"
	"github.com/alarm-routine-manager/backend/internal/provider"
	"github.com/alarm-routine-manager/backend/internal/storage"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	importFile := flag.String("import", "", "Import alarms from this file and exit")
	importUser := flag.String("user", "", "User UUID for -import")
	overwrite := flag.Bool("overwrite", false, "Overwrite same-named alarms during -import")
	flag.Parse()

	log := logger.Logger()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if level, ok := logger.ParseLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	log.Infof("Starting alarm routine manager (version: %s)", version)

	db, err := storage.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Info("Database migrations complete")

	alarmRepo := storage.NewAlarmRepository(db)
	syncStateRepo := storage.NewSyncStateRepository(db)

	importService := importer.NewService(alarmRepo, log)

	// One-shot import mode.
	if *importFile != "" {
		runImport(importService, *importFile, *importUser, *overwrite)
		return
	}

	clients, err := provider.BuildClients(cfg.Providers)
	if err != nil {
		log.Fatalf("Failed to build provider clients: %v", err)
	}
	log.Infof("Configured %d calendar provider(s)", len(clients))

	coordinator := calendarsync.NewCoordinator(alarmRepo, syncStateRepo, clients, cfg.Sync, log)
	scheduler := calendarsync.NewScheduler(coordinator, syncStateRepo, cfg.Sync.IntervalMin, log)

	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start sync scheduler: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	scheduler.Stop()
	log.Info("Shutdown complete")
}

// runImport imports a batch of alarms from a local file.
func runImport(service *importer.Service, path, userID string, overwrite bool) {
	log := logger.Logger()

	uid, err := uuid.Parse(userID)
	if err != nil {
		log.Fatalf("Invalid -user UUID %q: %v", userID, err)
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open import file: %v", err)
	}
	defer f.Close()

	outcome, err := service.ImportAlarms(context.Background(), uid, f, path, overwrite)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	for _, rowErr := range outcome.RowErrors {
		log.Warnf("Import %s: %v", path, rowErr)
	}
	for _, skipped := range outcome.Skipped {
		log.Infof("Skipped duplicate alarm %q (row %d)", skipped.Name, skipped.Row)
	}
}
