// Command seed applies a YAML catalog: it creates or updates the dashboard
// admin and the ticket types, then drops cached catalog responses.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

func main() {
	file := pflag.StringP("file", "f", "seed.yaml", "seed file with admin and ticket_types")
	adminPassword := pflag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "password for the seeded admin")
	migrate := pflag.Bool("migrate", true, "apply the schema before seeding")
	dryRun := pflag.Bool("dry-run", false, "validate the seed file without touching the database")
	pflag.Parse()

	fh, err := os.Open(*file)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	seed, err := parseSeed(fh)
	fh.Close()
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	types, err := seed.ticketTypes()
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if seed.Admin != nil && len(*adminPassword) < utils.MinPasswordLen {
		log.Fatalf("seed: --admin-password (or SEED_ADMIN_PASSWORD) must be at least %d characters", utils.MinPasswordLen)
	}
	if *dryRun {
		log.Printf("seed: %s ok (%d ticket types, admin=%t)", *file, len(types), seed.Admin != nil)
		return
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if *migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	if seed.Admin != nil {
		hash, err := utils.HashPassword(*adminPassword, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("hash: %v", err)
		}
		id, err := repository.NewAdminRepo(db).Upsert(ctx, seed.Admin.Name, seed.Admin.Email, hash)
		if err != nil {
			log.Fatalf("admin: %v", err)
		}
		log.Printf("seed: admin %s (id=%d)", seed.Admin.Email, id)
	}

	repo := repository.NewTicketTypeRepo(db)
	for i := range types {
		if err := repo.Upsert(ctx, &types[i]); err != nil {
			log.Fatalf("ticket type %q: %v", types[i].Name, err)
		}
		log.Printf("seed: ticket type %q price=%s (id=%d)", types[i].Name, types[i].Price.StringFixed(2), types[i].ID)
	}

	if rdb := config.NewRedisClient(); rdb != nil {
		if err := middleware.PurgeCache(ctx, rdb, config.LoadCacheConfig().Prefix); err != nil {
			log.Printf("seed: purge catalog cache: %v", err)
		}
		_ = rdb.Close()
	}
}
