package gateway

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/duskex/predictionmarket/internal/market"
)

// queryStore is the read-side subset of a market store the gateway needs for
// listing/display endpoints, beyond what internal/market's engineState
// already covers.
type queryStore interface {
	GetMarket(ctx context.Context, marketID string) (*market.Market, error)
	ListMarkets(ctx context.Context) ([]*market.Market, error)
}

// Server wires the chi router to a market Engine and its backing store.
type Server struct {
	engine *market.Engine
	store  queryStore
	logger zerolog.Logger
	router chi.Router
}

// NewServer builds the HTTP handler exposing the market instructions listed
// below, mounted the way gateway/routes.New mounts nhbchain's service routes
// onto a chi.Router. Configure, SetMintAuthority, SeedPool, RenameMarket and
// ConfigureMarketFees have no route.
func NewServer(engine *market.Engine, store queryStore, logger zerolog.Logger) *Server {
	s := &Server{engine: engine, store: store, logger: logger}
	r := chi.NewRouter()
	r.Use(accessLog(logger))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/markets", s.handleCreateMarket)
	r.Get("/markets", s.handleListMarkets)
	r.Get("/markets/{marketID}", s.handleGetMarket)
	r.Post("/markets/{marketID}/swap", s.handleSwap)
	r.Post("/markets/{marketID}/mint", s.handleMintCompleteSet)
	r.Post("/markets/{marketID}/redeem", s.handleRedeemCompleteSet)
	r.Post("/markets/{marketID}/liquidity/add", s.handleAddLiquidity)
	r.Post("/markets/{marketID}/liquidity/withdraw", s.handleWithdrawLiquidity)
	r.Post("/markets/{marketID}/liquidity/claim", s.handleClaimLPFees)
	r.Post("/markets/{marketID}/circuit-breaker/reset", s.handleResetCircuitBreaker)
	r.Post("/markets/{marketID}/resolve", s.handleResolve)
	r.Post("/markets/{marketID}/settle", s.handleSettlePool)
	r.Post("/markets/{marketID}/claim", s.handleClaimRewards)
	r.Post("/markets/{marketID}/reclaim-dust", s.handleReclaimDust)

	r.Get("/markets/{marketID}/preview/sell", s.handlePreviewSell)
	r.Get("/markets/{marketID}/preview/claim", s.handlePreviewClaim)
	r.Get("/markets/{marketID}/preview/withdraw", s.handlePreviewWithdraw)
	r.Get("/markets/{marketID}/preview/claim-fees", s.handlePreviewClaimFees)

	r.Post("/admin/pause", s.handlePause)
	r.Post("/admin/unpause", s.handleUnpause)
	r.Post("/admin/whitelist/add", s.handleWhitelistAdd)
	r.Post("/admin/whitelist/remove", s.handleWhitelistRemove)
	r.Post("/admin/authority/nominate", s.handleNominateAuthority)
	r.Post("/admin/authority/accept", s.handleAcceptAuthority)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func chiURLParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
