package database

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationLockID int64 = 5_310_774

// Migrate aplica os .sql pendentes em ordem lexicográfica, numa única transação.
// O advisory lock de transação impede dois deploys migrando ao mesmo tempo
// e é liberado sozinho no commit ou rollback.
func Migrate(ctx context.Context, pool Pool) (err error) {
	log := zap.L().With(zap.String("component", "database.migrate"))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "database: begin migration")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return eris.Wrap(err, "database: acquire migration lock")
	}

	if _, err = tx.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return eris.Wrap(err, "database: ensure schema_migrations")
	}

	names, err := MigrationNames()
	if err != nil {
		return err
	}

	applied, err := appliedMigrations(ctx, tx)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			continue
		}

		data, readErr := migrationFS.ReadFile("migrations/" + name)
		if readErr != nil {
			return eris.Wrapf(readErr, "database: read migration %s", name)
		}

		log.Info("aplicando migração", zap.String("file", name))
		if _, err = tx.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "database: apply migration %s", name)
		}
		if _, err = tx.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", name); err != nil {
			return eris.Wrapf(err, "database: record migration %s", name)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "database: commit migrations")
	}
	return nil
}

func appliedMigrations(ctx context.Context, tx pgx.Tx) (map[string]bool, error) {
	rows, err := tx.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "database: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "database: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// MigrationNames lista os arquivos embutidos, em ordem de aplicação.
func MigrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, eris.Wrap(err, "database: read migrations dir")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
