// seed-checklist loads the catalog into an empty store and reports what was created.
// A store that already has clients is left untouched.
//
// Usage (from backend directory):
//
//	DATABASE_URL=... CATALOG_PATH=data/dados_mestres.json go run ./cmd/seed-checklist
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/checklist_backend/config"
	"bitbucket.org/mmdatafocus/checklist_backend/models"
)

func main() {
	catalogPath := flag.String("catalog", "", "Catalog file (defaults to CATALOG_PATH)")
	skipMigrate := flag.Bool("skip-migrate", false, "Do not run AutoMigrate before seeding")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := config.ConnectDatabaseWithRetry(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database not reachable: %v\n", err)
		os.Exit(1)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if !*skipMigrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	checklist := models.NewChecklist(models.ChecklistOptions{
		DB:      db,
		Catalog: models.NewFileCatalog(cfg.CatalogPath, logger),
		Logger:  logger,
	})
	result, err := checklist.Seed(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	if result.Skipped {
		fmt.Println("Store already seeded; nothing to do.")
		return
	}
	fmt.Printf("Seeded clientes=%d categorias=%d documentos=%d\n", result.Clientes, result.Categorias, result.Documentos)
}
