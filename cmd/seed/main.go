package main

import (
	"context"
	"log"
	"os"

	"github.com/jordanlanch/leadrouter/config"
	"github.com/jordanlanch/leadrouter/pkg/auth"
	"github.com/jordanlanch/leadrouter/pkg/database"
	"github.com/jordanlanch/leadrouter/pkg/models"
	"github.com/jordanlanch/leadrouter/pkg/store"
)

// Seeds an admin and a few sample agents with distribution configs.
// Safe to rerun; existing handles are skipped.
func main() {
	cfg := config.Load()

	ctx := context.Background()
	db, err := database.NewClient(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed connecting to database: %v", err)
	}
	defer db.Close()

	agents := store.NewAgentStore(db.Pool)
	configs := store.NewConfigStore(db.Pool)

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
		log.Println("SEED_ADMIN_PASSWORD not set, using default")
	}

	seeds := []struct {
		handle   string
		name     string
		role     string
		password string
		weight   int
		category models.Category
	}{
		{"admin", "Administrator", "admin", adminPassword, 0, models.CategoryBoth},
		{"ana", "Ana Souza", "agent", "changeme", 5, models.CategoryBoth},
		{"bruno", "Bruno Lima", "agent", "changeme", 3, models.CategorySale},
		{"carla", "Carla Reis", "agent", "changeme", 2, models.CategoryRecovery},
	}

	for _, s := range seeds {
		if _, err := agents.GetByHandle(ctx, s.handle); err == nil {
			log.Printf("agent %q already exists, skipping", s.handle)
			continue
		}
		hash, err := auth.HashPassword(s.password)
		if err != nil {
			log.Fatalf("failed hashing password for %q: %v", s.handle, err)
		}
		created, err := agents.Create(ctx, &models.Agent{
			Handle:       s.handle,
			Name:         s.name,
			Role:         s.role,
			PasswordHash: hash,
		})
		if err != nil {
			log.Fatalf("failed creating agent %q: %v", s.handle, err)
		}
		if s.weight > 0 {
			if err := configs.Upsert(ctx, created.ID, s.weight, s.category); err != nil {
				log.Fatalf("failed saving config for %q: %v", s.handle, err)
			}
		}
		log.Printf("created agent %q (%s)", s.handle, s.role)
	}

	log.Println("seed complete")
}
