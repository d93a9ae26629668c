package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"benepick/database"
	"benepick/internal/config"
	"benepick/server"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════")
	log.Println("Starting benepick recommendation server...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create data directory %s: %v", dir, err)
		}
	}

	db, err := database.NewCatalogDBWithConfig(cfg.DatabasePath, database.DBConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer db.Close()
	log.Printf("Catalog database ready: %s", cfg.DatabasePath)

	if err := db.SeedCatalogIfEmpty(); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}

	container, err := server.NewContainer(db, cfg)
	if err != nil {
		log.Fatalf("Failed to build dependency container: %v", err)
	}

	srv := server.NewServer(container)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("═══════════════════════════════════════════════════════")
	log.Printf("Server listening on port %s", cfg.Port)
	log.Printf("API available at: http://localhost:%s/api", cfg.Port)
	log.Println("Press Ctrl+C to stop")
	log.Println("═══════════════════════════════════════════════════════")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
