package server

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mohammad-safakhou/arxiv-digest/migrations"
)

// Migrate applies database migrations from the given source URL.
// dir example: file://migrations. An empty dir uses the migrations compiled into the binary.
func Migrate(dir string, dsn string, direction string, steps int) error {
	if dsn == "" {
		return fmt.Errorf("postgres not configured (DATABASE_URL or storage.postgres)")
	}

	m, err := newMigrator(dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		return fmt.Errorf("unknown direction: %s", direction)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func newMigrator(dir, dsn string) (*migrate.Migrate, error) {
	if dir != "" {
		return migrate.New(dir, dsn)
	}
	src, err := embeddedSource()
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, dsn)
}

func embeddedSource() (source.Driver, error) {
	return iofs.New(migrations.FS, ".")
}
