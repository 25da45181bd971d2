package memkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskex/predictionmarket/internal/market"
)

func TestStorePutGetMarketRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.PutMarket(ctx, &market.Market{ID: "m1", DisplayName: "will it rain"}))

	got, err := s.GetMarket(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "will it rain", got.DisplayName)

	miss, err := s.GetMarket(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, miss)
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s1.PutGlobalConfig(ctx, &market.GlobalConfig{Authority: "authority"}))
	require.NoError(t, s1.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	cfg, err := s2.GetGlobalConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, "authority", cfg.Authority)
}

func TestStoreListMarketsScansByPrefix(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.PutMarket(ctx, &market.Market{ID: "a"}))
	require.NoError(t, s.PutMarket(ctx, &market.Market{ID: "b"}))

	all, err := s.ListMarkets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestStoreWhitelistAddAndRevoke(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	allowed, err := s.IsWhitelisted(ctx, "alice")
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, s.PutWhitelist(ctx, "alice", true))
	allowed, err = s.IsWhitelisted(ctx, "alice")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, s.PutWhitelist(ctx, "alice", false))
	allowed, err = s.IsWhitelisted(ctx, "alice")
	require.NoError(t, err)
	require.False(t, allowed)
}
