// Package migrations embeds the PostgreSQL schema and applies it in order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmws/pmws/internal/platform/db"
)

//go:embed *.sql
var files embed.FS

// Names lists the embedded migration files in apply order.
func Names() ([]string, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Apply runs every migration inside one transaction. The statements are
// idempotent so Apply is safe to repeat.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	names, err := Names()
	if err != nil {
		return fmt.Errorf("migrations: list: %w", err)
	}
	return db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		for _, name := range names {
			body, err := files.ReadFile(name)
			if err != nil {
				return fmt.Errorf("migrations: read %s: %w", name, err)
			}
			if _, err := tx.Exec(ctx, string(body)); err != nil {
				return fmt.Errorf("migrations: apply %s: %w", name, err)
			}
		}
		return nil
	})
}
