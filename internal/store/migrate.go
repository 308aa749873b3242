package store

import (
	"embed"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations
var migrationsFS embed.FS

func migrationSource(d Dialect) migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations/" + d.Name,
	}
}

// Migrate applies every pending schema migration and returns how many ran.
func (pdb *Store) Migrate() (int, error) {
	n, err := migrate.Exec(pdb.db, pdb.dialect.Name, migrationSource(pdb.dialect), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("migrate %s: %w", pdb.dialect.Name, err)
	}
	pdb.log.WithField("applied", n).Info("schema migrations done")
	return n, nil
}

// Rollback reverts the most recent max migrations.
func (pdb *Store) Rollback(max int) (int, error) {
	n, err := migrate.ExecMax(pdb.db, pdb.dialect.Name, migrationSource(pdb.dialect), migrate.Down, max)
	if err != nil {
		return n, fmt.Errorf("rollback %s: %w", pdb.dialect.Name, err)
	}
	return n, nil
}
