package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/checklist_backend/config"
	"bitbucket.org/mmdatafocus/checklist_backend/models"
	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

// server owns the dependencies shared by the handlers. Fields other than ready are written
// once by connect before ready is set and only read afterwards.
type server struct {
	cfg    *config.Config
	logger *logrus.Logger
	tokens *utils.TokenIssuer
	ready  atomic.Bool

	db        *gorm.DB
	rdb       *redis.Client
	checklist *models.Checklist
}

func newServer(cfg *config.Config, logger *logrus.Logger) *server {
	return &server{
		cfg:    cfg,
		logger: logger,
		tokens: utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenLifespan),
	}
}

func (s *server) redisClient() *redis.Client {
	if !s.ready.Load() {
		return nil
	}
	return s.rdb
}

// connect brings up the store and the optional collaborators, then opens the readiness gate.
// The returned cleanup func is never nil.
func (s *server) connect(ctx context.Context) (func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := config.ConnectDatabaseWithRetry(ctx, s.cfg.Database, s.logger)
	if err != nil {
		return cleanup, err
	}
	closers = append(closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	// AutoMigrate can block tables; allow running it as a separate job instead.
	if !s.cfg.SkipMigrations {
		if err := models.MigrateTable(db); err != nil {
			return cleanup, err
		}
	} else {
		s.logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	rdb, locker := config.ConnectRedis(ctx, s.cfg.RedisAddress, s.logger)
	if rdb != nil {
		closers = append(closers, func() { _ = rdb.Close() })
	}

	var publisher models.MessagePublisher
	if s.cfg.PubSubTopic != "" {
		p, err := config.NewPubSubPublisher(ctx, s.cfg.PubSubProjectID, s.cfg.PubSubTopic, s.cfg.PubSubCredentialsJSON)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"field": "pubsub"}).Warn("status events disabled: " + err.Error())
		} else {
			publisher = p
			closers = append(closers, func() { _ = p.Close() })
		}
	}

	files, closeFiles, err := models.NewFileLister(ctx, s.cfg, s.logger)
	if err != nil {
		return cleanup, err
	}
	closers = append(closers, closeFiles)

	checklist := models.NewChecklist(models.ChecklistOptions{
		DB:        db,
		Catalog:   models.NewFileCatalog(s.cfg.CatalogPath, s.logger),
		Files:     files,
		Policy:    models.ParseMatchPolicy(s.cfg.MatchPolicy),
		Locker:    locker,
		Publisher: publisher,
		Logger:    s.logger,
	})

	if !s.cfg.SkipSeed {
		// a failed seed leaves reads working with PENDENTE defaults
		if _, err := checklist.Seed(ctx); err != nil {
			s.logger.WithFields(logrus.Fields{"field": "seed"}).Error("initial seeding failed: " + err.Error())
		}
	}

	s.db = db
	s.rdb = rdb
	s.checklist = checklist
	s.ready.Store(true)
	return cleanup, nil
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	s := newServer(cfg, logger)

	// Start listening immediately; app endpoints answer 503 until dependencies are ready.
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s.newRouter(),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	cleanup, err := s.connect(sigCtx)
	defer cleanup()
	if err != nil && sigCtx.Err() == nil {
		logger.WithFields(logrus.Fields{"field": "startup"}).Error("dependencies failed: " + err.Error())
		stopSignals()
	}

	if s.ready.Load() {
		logger.WithFields(logrus.Fields{
			"info": "Connection Established",
		}).Info("checklist api listening on port ", cfg.Port)
	}

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
