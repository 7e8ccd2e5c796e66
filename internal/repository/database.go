package repository

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // Required for file source
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// NewPostgresDB connects to the Postgres instance backing the upload store.
// sqlx.Connect pings the database, so a returned handle is known good.
func NewPostgresDB(dataSourceName string, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to the upload store")
	return db, nil
}

// MigrateDB brings the image_uploads schema up to date at startup.
func MigrateDB(db *sqlx.DB, logger *zap.Logger) {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		logger.Fatal("Failed to prepare the migration driver", zap.Error(err))
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "chameleon", driver)
	if err != nil {
		logger.Fatal("Failed to create the migrate instance", zap.Error(err))
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("Failed to apply upload store migrations", zap.Error(err))
	}

	logger.Info("Upload store schema is up to date")
}
