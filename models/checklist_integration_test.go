package models_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/checklist_backend/config"
	"bitbucket.org/mmdatafocus/checklist_backend/models"
	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}
}

func discardLogger() *logrus.Logger {
	logg := logrus.New()
	logg.SetOutput(io.Discard)
	return logg
}

func newMySQLStore(t *testing.T, logg *logrus.Logger) *gorm.DB {
	t.Helper()
	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	dbCfg := config.DatabaseConfig{
		Driver:       config.DriverMySQL,
		DSN:          config.MySQLDSN("root", "testpw", "127.0.0.1", mysqlPort, "checklist_test"),
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}
	connectCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	db, err := config.ConnectDatabaseWithRetry(connectCtx, dbCfg, logg)
	if err != nil {
		t.Fatalf("ConnectDatabaseWithRetry: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}
	return db
}

// confirmConcurrently seeds client 1 only, so client 2 exercises the first-insert race,
// then fires concurrent confirmations for both and checks one row per category.
func confirmConcurrently(t *testing.T, db *gorm.DB, locker *redislock.Client, logg *logrus.Logger) *models.Checklist {
	t.Helper()
	ctx := context.Background()

	catalog := models.StaticCatalog{
		{ID: 1, Nome: "Acme", Categorias: []models.CategoryDef{
			{Nome: "Fiscal", Documentos: []string{"A.xls", "B.pdf"}},
		}},
		// not seeded: created on first confirmation
		{ID: 2, Nome: "Beta", Categorias: []models.CategoryDef{
			{Nome: "Pessoal", Documentos: []string{"folha.pdf"}},
		}},
	}
	seeder := models.NewChecklist(models.ChecklistOptions{
		DB:      db,
		Catalog: catalog[:1],
		Logger:  logg,
	})
	if _, err := seeder.Seed(ctx); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	cl := models.NewChecklist(models.ChecklistOptions{
		DB:      db,
		Catalog: catalog,
		Locker:  locker,
		Logger:  logg,
	})

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		for _, target := range []models.ConfirmStatusInput{
			{ClienteId: 1, NomeCategoria: "Fiscal", Status: "RECEBIDO"},
			{ClienteId: 2, NomeCategoria: "Pessoal", Status: "RECEBIDO"},
		} {
			wg.Add(1)
			go func(in models.ConfirmStatusInput) {
				defer wg.Done()
				_, err := cl.ConfirmStatus(ctx, in)
				errs <- err
			}(target)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ConfirmStatus: %v", err)
		}
	}

	var n int64
	if err := db.Model(&models.CategoriaChecklist{}).Count(&n).Error; err != nil {
		t.Fatalf("count categories: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected exactly 2 category rows, got %d", n)
	}

	summaries, err := cl.ListClients(ctx)
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	for _, s := range summaries {
		if s.Concluidas != 1 {
			t.Fatalf("expected client %d completed=1, got %d", s.ID, s.Concluidas)
		}
	}
	return cl
}

func TestChecklistOnMySQLWithRedisLocks(t *testing.T) {
	skipUnlessIntegration(t)
	logg := discardLogger()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	db := newMySQLStore(t, logg)

	rdb, locker := config.ConnectRedis(context.Background(), fmt.Sprintf("127.0.0.1:%s", redisPort), logg)
	if locker == nil {
		t.Fatalf("expected redis lock client")
	}
	t.Cleanup(func() { _ = rdb.Close() })

	cl := confirmConcurrently(t, db, locker, logg)

	// bulk confirm against MySQL row locks
	ctx := context.Background()
	cmp, err := cl.GetComparison(ctx, 1)
	if err != nil {
		t.Fatalf("GetComparison: %v", err)
	}
	input := models.BulkConfirmInput{ClienteId: 1}
	for _, d := range cmp.Documentos {
		input.Documentos = append(input.Documentos, models.DocumentStatusInput{DocumentoId: d.ID, Status: "RECEBIDO"})
	}
	res, err := cl.BulkConfirm(utils.SetUsernameInContext(ctx, "integration"), input)
	if err != nil {
		t.Fatalf("BulkConfirm: %v", err)
	}
	if res.Atualizados != 2 {
		t.Fatalf("expected 2 documents updated, got %+v", res)
	}
}

// Without Redis only InnoDB guards the first insert; concurrent inserts behind gap locks
// deadlock and must be retried rather than surface as internal errors.
func TestChecklistOnMySQLWithoutLocks(t *testing.T) {
	skipUnlessIntegration(t)
	logg := discardLogger()

	db := newMySQLStore(t, logg)
	confirmConcurrently(t, db, nil, logg)
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("checklist-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("checklist-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=checklist_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
