// Package memkv is a badger-backed implementation of the market engine's
// persistence interface, grounded on the teacher pack's Badger usage
// (internal/storage.Storage in the blinklabs-io-shai repo): a thin
// key-prefixed wrapper over *badger.DB, with records marshalled to bytes
// rather than the trie-keyed RLP encoding core/state.Manager uses, since
// there is no Merkle commitment requirement here.
package memkv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/duskex/predictionmarket/internal/market"
)

const (
	globalConfigKey   = "config:global"
	marketKeyPrefix   = "market:"
	lpPositionPrefix  = "lp:"
	whitelistPrefix   = "whitelist:"
)

// Store persists market-module records in a Badger database.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a Badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("memkv: open badger at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func marketKey(marketID string) []byte { return []byte(marketKeyPrefix + marketID) }
func lpKey(marketID, user string) []byte {
	return []byte(lpPositionPrefix + marketID + "\x00" + user)
}
func whitelistKey(creator string) []byte { return []byte(whitelistPrefix + creator) }

func get[T any](db *badger.DB, key []byte) (*T, error) {
	var out T
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &out) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func put(db *badger.DB, key []byte, value any) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

// GetGlobalConfig returns the singleton config, or nil if never configured.
func (s *Store) GetGlobalConfig(ctx context.Context) (*market.GlobalConfig, error) {
	return get[market.GlobalConfig](s.db, []byte(globalConfigKey))
}

// PutGlobalConfig overwrites the singleton config.
func (s *Store) PutGlobalConfig(ctx context.Context, cfg *market.GlobalConfig) error {
	return put(s.db, []byte(globalConfigKey), cfg)
}

// GetMarket returns a market record, or nil if marketID is unknown.
func (s *Store) GetMarket(ctx context.Context, marketID string) (*market.Market, error) {
	return get[market.Market](s.db, marketKey(marketID))
}

// PutMarket upserts a market record.
func (s *Store) PutMarket(ctx context.Context, m *market.Market) error {
	return put(s.db, marketKey(m.ID), m)
}

// ListMarkets scans every market: prefixed key and decodes its record.
func (s *Store) ListMarkets(ctx context.Context) ([]*market.Market, error) {
	var out []*market.Market
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(marketKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m market.Market
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &m) }); err != nil {
				return err
			}
			out = append(out, &m)
		}
		return nil
	})
	return out, err
}

// GetLPPosition returns one user's LP position in a market, or nil.
func (s *Store) GetLPPosition(ctx context.Context, marketID, user string) (*market.LPPosition, error) {
	return get[market.LPPosition](s.db, lpKey(marketID, user))
}

// PutLPPosition upserts an LP position record.
func (s *Store) PutLPPosition(ctx context.Context, p *market.LPPosition) error {
	return put(s.db, lpKey(p.MarketID, p.User), p)
}

// IsWhitelisted reports whether a creator address may call CreateMarket.
func (s *Store) IsWhitelisted(ctx context.Context, creator string) (bool, error) {
	var allowed bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(whitelistKey(creator))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			allowed = len(v) == 1 && v[0] == 1
			return nil
		})
	})
	return allowed, err
}

// PutWhitelist grants or revokes a creator's market-creation permission.
func (s *Store) PutWhitelist(ctx context.Context, creator string, allowedFlag bool) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if !allowedFlag {
			err := txn.Delete(whitelistKey(creator))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return txn.Set(whitelistKey(creator), []byte{1})
	})
}
