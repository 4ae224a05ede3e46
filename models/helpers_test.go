package models

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/checklist_backend/config"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		DSN:          filepath.Join(t.TempDir(), "checklist_test.db"),
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := MigrateTable(db); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func testLogger() *logrus.Logger {
	logg := logrus.New()
	logg.SetOutput(io.Discard)
	return logg
}

func acmeCatalog() StaticCatalog {
	return StaticCatalog{
		{
			ID:   1,
			Nome: "Acme",
			Categorias: []CategoryDef{
				{Nome: "Fiscal", Documentos: []string{"A.xls", "B.pdf"}},
				{Nome: "Contábil", Documentos: []string{"Balancete.pdf"}},
			},
		},
		{
			ID:       2,
			Nome:     "Beta Ltda",
			Grupo:    "Grupo Sul",
			Segmento: "Varejo",
			Categorias: []CategoryDef{
				{Nome: "Pessoal", Documentos: []string{"folha.pdf"}},
			},
		},
	}
}

type staticListing struct {
	byKey       map[string][]string
	unavailable bool
}

func (s staticListing) ListFiles(ctx context.Context, storageKey string) FileListing {
	if s.unavailable {
		return FileListing{Files: []string{}}
	}
	files := s.byKey[storageKey]
	if files == nil {
		files = []string{}
	}
	return FileListing{Files: files, Available: true}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []StatusEvent
	attrs  []map[string]string
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	var ev StatusEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return "", err
	}
	p.events = append(p.events, ev)
	p.attrs = append(p.attrs, attributes)
	return "msg-1", nil
}

func (p *recordingPublisher) Events() []StatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StatusEvent(nil), p.events...)
}

func newTestChecklist(t *testing.T, catalog CatalogLoader, files FileLister) (*Checklist, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewChecklist(ChecklistOptions{
		DB:      db,
		Catalog: catalog,
		Files:   files,
		Policy:  MatchPolicySubstring,
		Logger:  testLogger(),
		Now:     func() time.Time { return testNow },
	}), db
}

// failOnTable makes every statement of the given kind against table fail.
func failOnTable(t *testing.T, db *gorm.DB, kind string, table string) {
	t.Helper()
	fail := func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(errors.New("injected failure"))
		}
	}
	var err error
	switch kind {
	case "create":
		err = db.Callback().Create().Before("gorm:create").Register("test:fail_create", fail)
	case "update":
		err = db.Callback().Update().Before("gorm:update").Register("test:fail_update", fail)
	}
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

// failCreates makes the first n creates against table fail with err and counts every create attempt.
func failCreates(t *testing.T, db *gorm.DB, table string, n int, err error) *int {
	t.Helper()
	attempts := 0
	fail := func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		attempts++
		if attempts <= n {
			_ = tx.AddError(err)
		}
	}
	if regErr := db.Callback().Create().Before("gorm:create").Register("test:fail_creates", fail); regErr != nil {
		t.Fatalf("register callback: %v", regErr)
	}
	return &attempts
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
