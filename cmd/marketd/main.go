// Command marketd runs the prediction-market HTTP gateway: it loads config,
// opens the configured store, and serves the instruction surface over chi.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/duskex/predictionmarket/internal/config"
	"github.com/duskex/predictionmarket/internal/gateway"
	"github.com/duskex/predictionmarket/internal/ledger"
	"github.com/duskex/predictionmarket/internal/market"
	"github.com/duskex/predictionmarket/internal/observability"
	"github.com/duskex/predictionmarket/internal/store/memkv"
	"github.com/duskex/predictionmarket/internal/store/memstore"
	"github.com/duskex/predictionmarket/internal/store/postgres"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "marketd",
	Short: "Prediction-market LMSR gateway daemon",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	RunE:  runServe,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./marketd.toml", "path to the marketd config file")
	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// marketStore is every method a concrete store (memstore, memkv, postgres)
// exposes that marketd needs: the engine's persistence interface plus the
// gateway's read-side listing methods. Each backend satisfies it
// structurally with no explicit "implements" declaration.
type marketStore interface {
	GetGlobalConfig(ctx context.Context) (*market.GlobalConfig, error)
	PutGlobalConfig(ctx context.Context, cfg *market.GlobalConfig) error
	GetMarket(ctx context.Context, marketID string) (*market.Market, error)
	PutMarket(ctx context.Context, m *market.Market) error
	ListMarkets(ctx context.Context) ([]*market.Market, error)
	GetLPPosition(ctx context.Context, marketID, user string) (*market.LPPosition, error)
	PutLPPosition(ctx context.Context, p *market.LPPosition) error
	IsWhitelisted(ctx context.Context, creator string) (bool, error)
	PutWhitelist(ctx context.Context, creator string, allowed bool) error
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("marketd: load config: %w", err)
	}

	slogLogger := observability.SetupLogging("marketd", "")
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	slogLogger.Info("marketd starting", "listen_address", cfg.ListenAddress, "store_backend", cfg.StoreBackend)

	state, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	lg := ledger.NewMemLedger()
	mintAuthority := ledger.NewMintAuthority()
	engine := market.NewEngine(state, lg, mintAuthority)

	srv := gateway.NewServer(engine, state, logger)
	logger.Info().Str("addr", cfg.ListenAddress).Msg("listening")
	return http.ListenAndServe(cfg.ListenAddress, srv)
}

func openStore(ctx context.Context, cfg *config.Config) (marketStore, func(), error) {
	switch cfg.StoreBackend {
	case "", "mem":
		return memstore.New(), nil, nil
	case "badger":
		s, err := memkv.Open(cfg.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := s.InitSchema(ctx); err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("marketd: unknown store_backend %q", cfg.StoreBackend)
	}
}
