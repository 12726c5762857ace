package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/fieldarchitect/internal/adapters/postgres"
	"github.com/samirrijal/fieldarchitect/internal/pkg/config"
	"github.com/samirrijal/fieldarchitect/internal/pkg/logging"
)

const migrationsDir = "migrations"

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// migration is one NNN_name.sql file and its optional NNN_name.down.sql.
type migration struct {
	version string
	up      string
	down    string
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|status>")
	}

	cfg, err := config.Load("fieldarchitect-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), postgres.WithMaxConns(2), postgres.WithApplicationName("fieldarchitect-migrate"))
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if _, err := db.Pool.Exec(ctx, createVersionTable); err != nil {
		log.Fatalf("schema_migrations: %v", err)
	}

	migrations, err := discover(migrationsDir)
	if err != nil {
		log.Fatalf("discover: %v", err)
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		log.Fatalf("applied versions: %v", err)
	}

	switch os.Args[1] {
	case "up":
		err = up(ctx, db, migrations, applied)
	case "down":
		err = down(ctx, db, migrations, applied)
	case "status":
		for _, m := range migrations {
			state := "pending"
			if applied[m.version] {
				state = "applied"
			}
			fmt.Printf("%-8s %s\n", state, m.version)
		}
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		log.Fatal(err)
	}
}

// discover pairs up and down files under dir, ordered by version.
func discover(dir string) ([]migration, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	byVersion := make(map[string]*migration)
	for _, f := range files {
		base := filepath.Base(f)
		isDown := strings.HasSuffix(base, ".down.sql")
		version := strings.TrimSuffix(strings.TrimSuffix(base, ".sql"), ".down")

		m, ok := byVersion[version]
		if !ok {
			m = &migration{version: version}
			byVersion[version] = m
		}
		if isDown {
			m.down = f
		} else {
			m.up = f
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up == "" {
			return nil, fmt.Errorf("%s has a down file but no up file", m.version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	if len(out) == 0 {
		return nil, fmt.Errorf("no migration files under %s/", dir)
	}
	return out, nil
}

func appliedVersions(ctx context.Context, db *postgres.DB) (map[string]bool, error) {
	rows, err := db.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

func up(ctx context.Context, db *postgres.DB, migrations []migration, applied map[string]bool) error {
	n := 0
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := apply(ctx, db, m.up, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			return err
		}
		slog.Info("applied", "version", m.version)
		n++
	}
	slog.Info("migrations up to date", "applied", n)
	return nil
}

// down reverts the most recent applied migration only.
func down(ctx context.Context, db *postgres.DB, migrations []migration, applied map[string]bool) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if !applied[m.version] {
			continue
		}
		if m.down == "" {
			return fmt.Errorf("%s has no down migration", m.version)
		}
		if err := apply(ctx, db, m.down, `DELETE FROM schema_migrations WHERE version = $1`, m.version); err != nil {
			return err
		}
		slog.Info("reverted", "version", m.version)
		return nil
	}
	return errors.New("nothing to revert")
}

// apply runs file and the bookkeeping statement in one transaction.
func apply(ctx context.Context, db *postgres.DB, file, record, version string) error {
	sql, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("exec %s: %w", file, err)
		}
		_, err := tx.Exec(ctx, record, version)
		return err
	})
}
