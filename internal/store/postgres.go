package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Priya8975/webhook-gateway/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// RunMigrations executes all .up.sql files in migrations in lexical order,
// skipping versions already recorded in schema_migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context, migrations fs.FS) error {
	// Create migrations tracking table
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var files []string
	err = fs.WalkDir(migrations, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".up.sql") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}

	sort.Strings(files)

	for _, p := range files {
		version := path.Base(p)

		var exists bool
		err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}
		if exists {
			continue
		}

		sql, err := fs.ReadFile(migrations, p)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("executing migration %s: %w", version, err)
		}

		_, err = s.pool.Exec(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)",
			version,
		)
		if err != nil {
			return fmt.Errorf("recording migration %s: %w", version, err)
		}
	}

	return nil
}

func (s *PostgresStore) Append(ctx context.Context, entry domain.LogEntry) error {
	capturedAt, err := time.Parse(domain.TimestampLayout, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("parsing entry timestamp: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO webhook_logs (captured_at, data)
		VALUES ($1, $2)
	`, capturedAt, []byte(entry.Data))
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, n int) (int, []domain.LogEntry, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM webhook_logs`).Scan(&total); err != nil {
		return 0, nil, &LogStoreError{Op: "read", Src: "postgres:webhook_logs", Err: err}
	}
	if total == 0 {
		return 0, nil, ErrNoLogs
	}

	limit := n
	if limit <= 0 {
		limit = total
	}

	rows, err := s.pool.Query(ctx, `
		SELECT captured_at, data FROM (
			SELECT id, captured_at, data FROM webhook_logs
			ORDER BY id DESC LIMIT $1
		) recent
		ORDER BY id ASC
	`, limit)
	if err != nil {
		return 0, nil, &LogStoreError{Op: "read", Src: "postgres:webhook_logs", Err: err}
	}
	defer rows.Close()

	entries := make([]domain.LogEntry, 0, limit)
	for rows.Next() {
		var (
			capturedAt time.Time
			data       []byte
		)
		if err := rows.Scan(&capturedAt, &data); err != nil {
			return 0, nil, &LogStoreError{Op: "parse", Src: "postgres:webhook_logs", Err: err}
		}
		entries = append(entries, domain.NewLogEntry(capturedAt, data))
	}
	if err := rows.Err(); err != nil {
		return 0, nil, &LogStoreError{Op: "read", Src: "postgres:webhook_logs", Err: err}
	}

	return total, entries, nil
}
