package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avdeenkov/catalog-harvester/internal/record"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool for the product table.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresSink inserts product rows into Postgres. Structured fields go
// in as jsonb; the fingerprint column lets re-runs skip duplicates.
type PostgresSink struct {
	pool  execCloser
	table string
}

// NewPostgresSink connects a pool using cfg.
func NewPostgresSink(ctx context.Context, cfg PostgresConfig) (*PostgresSink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresSink{pool: pool, table: table}, nil
}

// NewPostgresSinkWithPool constructs a sink from an existing pool
// (primarily for testing).
func NewPostgresSinkWithPool(pool execCloser, table string) (*PostgresSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresSink{pool: pool, table: table}, nil
}

func (s *PostgresSink) WriteRecord(ctx context.Context, p record.Product) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres sink is not configured")
	}
	posters, err := json.Marshal(p.Posters)
	if err != nil {
		return fmt.Errorf("marshal posters: %w", err)
	}
	characteristics, err := json.Marshal(p.Characteristics)
	if err != nil {
		return fmt.Errorf("marshal characteristics: %w", err)
	}
	specification, err := json.Marshal(p.Specification)
	if err != nil {
		return fmt.Errorf("marshal specification: %w", err)
	}
	documentation, err := json.Marshal(p.Documentation)
	if err != nil {
		return fmt.Errorf("marshal documentation: %w", err)
	}
	accessories, err := json.Marshal(p.Accessories)
	if err != nil {
		return fmt.Errorf("marshal accessories: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	fingerprint,
	title,
	short_description,
	full_description,
	catalog_code,
	article,
	price,
	brand,
	posters,
	characteristics,
	specification,
	documentation,
	accessories,
	harvested_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
ON CONFLICT (fingerprint) DO NOTHING
`, s.table)

	if _, err := s.pool.Exec(ctx, query,
		p.Fingerprint(),
		p.Title,
		p.ShortDescription,
		p.FullDescription,
		p.CatalogCode,
		p.Article,
		p.Price,
		p.Brand,
		posters,
		characteristics,
		specification,
		documentation,
		accessories,
	); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *PostgresSink) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
