// Command seed migrates the schema and upserts lookup rows and the default
// strategies. It is idempotent.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/deaglo/apigateway/internal/cloud"
	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/repository"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "migrate the schema without seeding")
	backfill := flag.Bool("backfill-spot", false, "pad stored spot rates up to today (development databases only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithFormat(cfg.Log.Level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if cfg.AWS.SSMEnabled {
		awsCfg, err := cloud.LoadConfig(ctx, cfg.AWS)
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
		if err := config.ApplySSM(ctx, cfg, cloud.NewParameterStore(awsCfg)); err != nil {
			log.Fatalf("Failed to load SSM parameters: %v", err)
		}
	}

	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}
	logger.Info("✅ Schema migrated")
	if *migrateOnly {
		return
	}
	if err := repository.Seed(ctx, db); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	logger.Info("✅ Seed data upserted")

	if *backfill {
		n, err := repository.NewStore(db).BackfillSpotRates(ctx, time.Now())
		if err != nil {
			log.Fatalf("Failed to backfill spot rates: %v", err)
		}
		logger.Info("✅ Spot rates backfilled", "rows", n)
	}
}
