package config

import (
	"fmt"
	"time"

	"restaurant-api/models"

	"github.com/glebarez/sqlite"
	"github.com/romana/rlog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// InitDB opens the configured database, attaches read replicas and migrates the schema
func InitDB(cfg *Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.GinMode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector(cfg.DBDriver, cfg.DBSource), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if len(cfg.DBReplicas) > 0 {
		if cfg.DBDriver != "postgres" {
			return nil, fmt.Errorf("DB_REPLICAS requires DB_DRIVER=postgres")
		}
		replicas := make([]gorm.Dialector, 0, len(cfg.DBReplicas))
		for _, dsn := range cfg.DBReplicas {
			replicas = append(replicas, postgres.Open(dsn))
		}
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxIdleConns(10).
			SetMaxOpenConns(cfg.DBMaxOpenConns).
			SetConnMaxLifetime(time.Hour))
		if err != nil {
			return nil, fmt.Errorf("register read replicas: %w", err)
		}
		rlog.Infof("Registered %d read replica(s)", len(replicas))
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	rlog.Infof("Database (%s) connected and migrated", cfg.DBDriver)
	return db, nil
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

func dialector(driver, dsn string) gorm.Dialector {
	if driver == "postgres" {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}
