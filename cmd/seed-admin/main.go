// seed-admin creates or updates a login user for the checklist API.
//
// Usage (from backend directory):
//
//	DATABASE_URL=... go run ./cmd/seed-admin -username auditor -password '...' -name 'Auditor'
//
// The password may also come from SEED_ADMIN_PASSWORD so it stays out of shell history.
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
	username := flag.String("username", "checklistAdmin", "Login name to create or update")
	password := flag.String("password", "", "Password (defaults to SEED_ADMIN_PASSWORD)")
	name := flag.String("name", "", "Display name (defaults to the username)")
	inactive := flag.Bool("inactive", false, "Disable the user instead of enabling it")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("SEED_ADMIN_PASSWORD")
	}
	if *password == "" {
		fmt.Fprintln(os.Stderr, "password required: pass -password or set SEED_ADMIN_PASSWORD")
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := config.ConnectDatabaseWithRetry(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database not reachable: %v\n", err)
		os.Exit(1)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := models.MigrateTable(db); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	active := !*inactive
	user, err := models.UpsertUser(ctx, db, models.NewUser{
		Username: *username,
		Name:     *name,
		Password: *password,
		IsActive: &active,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to upsert user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved user: id=%d username=%q active=%t\n", user.ID, user.Username, active)
}
