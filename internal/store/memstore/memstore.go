// Package memstore is a process-local, mutex-guarded implementation of the
// market engine's persistence interface, grounded on core/state.Manager's
// role as the thin boundary between native engines and durable storage —
// here collapsed to plain Go maps since there is no trie to key into.
package memstore

import (
	"context"
	"sync"

	"github.com/duskex/predictionmarket/internal/market"
)

// Store holds every market-module record in memory. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	cfg        *market.GlobalConfig
	markets    map[string]*market.Market
	lpPositions map[string]*market.LPPosition
	whitelist  map[string]bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		markets:     make(map[string]*market.Market),
		lpPositions: make(map[string]*market.LPPosition),
		whitelist:   make(map[string]bool),
	}
}

func lpKey(marketID, user string) string { return marketID + "\x00" + user }

func cloneConfig(cfg *market.GlobalConfig) *market.GlobalConfig {
	if cfg == nil {
		return nil
	}
	c := *cfg
	return &c
}

func cloneMarket(m *market.Market) *market.Market {
	if m == nil {
		return nil
	}
	clone := *m
	if m.StartSlot != nil {
		v := *m.StartSlot
		clone.StartSlot = &v
	}
	if m.EndingSlot != nil {
		v := *m.EndingSlot
		clone.EndingSlot = &v
	}
	if m.FeeOverride != nil {
		fo := *m.FeeOverride
		clone.FeeOverride = &fo
	}
	return &clone
}

func clonePosition(p *market.LPPosition) *market.LPPosition {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// GetGlobalConfig returns the singleton config, or nil if Configure has
// never been called.
func (s *Store) GetGlobalConfig(ctx context.Context) (*market.GlobalConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfig(s.cfg), nil
}

// PutGlobalConfig overwrites the singleton config.
func (s *Store) PutGlobalConfig(ctx context.Context, cfg *market.GlobalConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cloneConfig(cfg)
	return nil
}

// GetMarket returns a market record, or nil if marketID is unknown.
func (s *Store) GetMarket(ctx context.Context, marketID string) (*market.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMarket(s.markets[marketID]), nil
}

// PutMarket upserts a market record.
func (s *Store) PutMarket(ctx context.Context, m *market.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[m.ID] = cloneMarket(m)
	return nil
}

// ListMarkets returns every market record, order unspecified.
func (s *Store) ListMarkets(ctx context.Context) ([]*market.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*market.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, cloneMarket(m))
	}
	return out, nil
}

// GetLPPosition returns one user's LP position in a market, or nil.
func (s *Store) GetLPPosition(ctx context.Context, marketID, user string) (*market.LPPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePosition(s.lpPositions[lpKey(marketID, user)]), nil
}

// PutLPPosition upserts an LP position record.
func (s *Store) PutLPPosition(ctx context.Context, p *market.LPPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lpPositions[lpKey(p.MarketID, p.User)] = clonePosition(p)
	return nil
}

// IsWhitelisted reports whether a creator address may call CreateMarket.
func (s *Store) IsWhitelisted(ctx context.Context, creator string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.whitelist[creator], nil
}

// PutWhitelist grants or revokes a creator's market-creation permission.
func (s *Store) PutWhitelist(ctx context.Context, creator string, allowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if allowed {
		s.whitelist[creator] = true
	} else {
		delete(s.whitelist, creator)
	}
	return nil
}
