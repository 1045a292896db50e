package db

import (
	"fmt"
	"os"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tarikbs/repairdesk/internal/config"
	"github.com/tarikbs/repairdesk/internal/models"
)

// Connect opens the Postgres connection with a bounded retry so the service
// survives a database that is still starting up.
func Connect(dsn string) (*gorm.DB, error) {
	dsn = NormalizeDSN(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		config.Log.WithField("attempt", i+1).WithError(err).Warn("database connection failed, retrying")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	return db, nil
}

// Migrate applies the schema. With useSQL it runs the versioned SQL
// migrations in ./migrations via golang-migrate; otherwise it falls back to
// GORM AutoMigrate (dev convenience).
func Migrate(db *gorm.DB, dsn string, useSQL bool) error {
	if useSQL {
		if err := runSQLMigrations(NormalizeDSN(dsn)); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(db); err != nil {
			return err
		}
	}

	// sanity check: core tables must exist after either path
	for _, table := range []string{"users", "jobs", "job_counters", "companies", "invoices"} {
		if !db.Migrator().HasTable(table) {
			return fmt.Errorf("missing table after migration: %s", table)
		}
	}
	return nil
}

// AutoMigrate creates/updates the schema from the model definitions.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range []any{
		&models.Permission{},
		&models.Profile{},
		&models.User{},
		&models.Company{},
		&models.Job{},
		&models.JobCounter{},
		&models.Invoice{},
	} {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// runSQLMigrations executes migrations in ./migrations using the
// golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
