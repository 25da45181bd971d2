// Package postgres is a pgx-backed implementation of the market engine's
// persistence interface, grounded on the teacher pack's
// internal/db.PostgresStore (leanlp-BTC-coinjoin): a pgxpool.Pool wrapped in
// a small store type, JSONB columns standing in for that repo's relational
// schema since market/LP records have no query shape that benefits from
// normalisation.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duskex/predictionmarket/internal/market"
)

//go:embed schema.sql
var schema string

// Store persists market-module records in PostgreSQL via a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection to connStr and pings it.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// InitSchema applies the embedded schema, idempotently.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("postgres store: init schema: %w", err)
	}
	return nil
}

// GetGlobalConfig returns the singleton config row, or nil if absent.
func (s *Store) GetGlobalConfig(ctx context.Context) (*market.GlobalConfig, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM global_config WHERE id = 1`).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg market.GlobalConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PutGlobalConfig upserts the singleton config row.
func (s *Store) PutGlobalConfig(ctx context.Context, cfg *market.GlobalConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO global_config (id, payload) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`, raw)
	return err
}

// GetMarket returns a market row, or nil if marketID is unknown.
func (s *Store) GetMarket(ctx context.Context, marketID string) (*market.Market, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM markets WHERE market_id = $1`, marketID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m market.Market
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// PutMarket upserts a market row.
func (s *Store) PutMarket(ctx context.Context, m *market.Market) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO markets (market_id, payload) VALUES ($1, $2)
		ON CONFLICT (market_id) DO UPDATE SET payload = EXCLUDED.payload`, m.ID, raw)
	return err
}

// ListMarkets returns every market row.
func (s *Store) ListMarkets(ctx context.Context) ([]*market.Market, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM markets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*market.Market
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var m market.Market
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// GetLPPosition returns one user's LP position row, or nil.
func (s *Store) GetLPPosition(ctx context.Context, marketID, user string) (*market.LPPosition, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM lp_positions WHERE market_id = $1 AND addr = $2`, marketID, user).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p market.LPPosition
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PutLPPosition upserts an LP position row.
func (s *Store) PutLPPosition(ctx context.Context, p *market.LPPosition) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO lp_positions (market_id, addr, payload) VALUES ($1, $2, $3)
		ON CONFLICT (market_id, addr) DO UPDATE SET payload = EXCLUDED.payload`, p.MarketID, p.User, raw)
	return err
}

// IsWhitelisted reports whether a creator address may call CreateMarket.
func (s *Store) IsWhitelisted(ctx context.Context, creator string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM whitelist WHERE addr = $1)`, creator).Scan(&exists)
	return exists, err
}

// PutWhitelist grants or revokes a creator's market-creation permission.
func (s *Store) PutWhitelist(ctx context.Context, creator string, allowed bool) error {
	if !allowed {
		_, err := s.pool.Exec(ctx, `DELETE FROM whitelist WHERE addr = $1`, creator)
		return err
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO whitelist (addr) VALUES ($1) ON CONFLICT DO NOTHING`, creator)
	return err
}
