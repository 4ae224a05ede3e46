package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// OpenDatabase makes a single connection attempt and applies pool settings and plugins.
func OpenDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, initConfig())
	if err != nil {
		return nil, err
	}

	if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
		maxOpen := cfg.MaxOpenConns
		if cfg.Driver == DriverSQLite {
			// SQLite serializes writers; one connection avoids "database is locked".
			maxOpen = 1
		}
		if maxOpen > 0 {
			sqlDB.SetMaxOpenConns(maxOpen)
		}
		if cfg.MaxIdleConns >= 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		if cfg.ConnMaxIdleTime > 0 {
			sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
		}
	}

	if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
	return db, nil
}

// ConnectDatabaseWithRetry keeps trying until the store answers or ctx is done.
// Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry(ctx context.Context, cfg DatabaseConfig, logg *logrus.Logger) (*gorm.DB, error) {
	var attempt int
	for {
		attempt++
		db, err := OpenDatabase(cfg)
		if err == nil {
			logg.WithFields(logrus.Fields{
				"field":   "database",
				"driver":  cfg.Driver,
				"attempt": attempt,
			}).Info("connected to database")
			return db, nil
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logg.WithFields(logrus.Fields{
			"field":   "database",
			"driver":  cfg.Driver,
			"attempt": attempt,
		}).Warn("failed to connect database; retrying in " + sleep.String() + ": " + err.Error())

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect database: %w", ctx.Err())
		case <-time.After(sleep):
		}
	}
}

func dialectorFor(cfg DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverMySQL:
		return mysql.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// InitConfig Initialize Config
func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
		// Unique violations surface as gorm.ErrDuplicatedKey on every driver.
		TranslateError: true,
	}
}

// InitLog Connection Log Configuration
func initLog() logger.Interface {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // Output to standard output
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error, // Adjust log level as needed
			SlowThreshold: time.Second,
		},
	)
	return newLogger
}

// InitNamingStrategy Init NamingStrategy
func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
