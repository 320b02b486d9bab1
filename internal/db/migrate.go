package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/db/migrations"
)

// Migrate brings the schema at dsn up to migrations.Version.
func Migrate(dsn string, log *zap.Logger) error {
	driver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	defer driver.Close()

	mg, err := migrate.NewWithSourceInstance("iofs", driver, dsn)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer mg.Close()

	from, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", from)
	}

	if err := mg.Migrate(migrations.Version); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("schema up to date", zap.Uint("version", migrations.Version))
			return nil
		}
		return err
	}

	log.Info("migrations applied", zap.Uint("from", from), zap.Uint("to", migrations.Version))
	return nil
}
