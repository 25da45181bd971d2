package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/duskex/predictionmarket/internal/market"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps an engine error to an HTTP status the way the pack's
// routing layer does for its proxied RPC errors, coarsely grouped by the
// market package's error taxonomy rather than a per-sentinel table.
func writeError(w http.ResponseWriter, fallback int, err error) {
	status := fallback
	switch {
	case errors.Is(err, market.ErrIncorrectAuthority), errors.Is(err, market.ErrInvalidAuthority), errors.Is(err, market.ErrCreatorNotWhitelisted):
		status = http.StatusForbidden
	case errors.Is(err, market.ErrInvalidParameter), errors.Is(err, market.ErrInvalidAmount),
		errors.Is(err, market.ErrValueTooSmall), errors.Is(err, market.ErrValueTooLarge),
		errors.Is(err, market.ErrInvalidTradeDirection), errors.Is(err, market.ErrInvalidTokenType),
		errors.Is(err, market.ErrInvalidMarketOutcome), errors.Is(err, market.ErrInvalidStartTime),
		errors.Is(err, market.ErrInvalidEndTime):
		status = http.StatusBadRequest
	case errors.Is(err, market.ErrInsufficientBalance), errors.Is(err, market.ErrInsufficientLiquidity),
		errors.Is(err, market.ErrSlippageExceeded), errors.Is(err, market.ErrTradeSizeTooLarge),
		errors.Is(err, market.ErrExcessiveWithdrawal), errors.Is(err, market.ErrPoolTooImbalanced),
		errors.Is(err, market.ErrMarketBelowMinLiquidity):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, market.ErrTradeRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, market.ErrContractPaused), errors.Is(err, market.ErrMarketPaused),
		errors.Is(err, market.ErrMarketNotStarted), errors.Is(err, market.ErrMarketEnded),
		errors.Is(err, market.ErrMarketNotEnded), errors.Is(err, market.ErrCurveAlreadyCompleted),
		errors.Is(err, market.ErrMarketNotCompleted), errors.Is(err, market.ErrCircuitBreakerTriggered),
		errors.Is(err, market.ErrReentrancyDetected), errors.Is(err, market.ErrTokenAlreadyInUse),
		errors.Is(err, market.ErrAlreadyPaused):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// swapRequest carries the JSON body for POST /markets/{id}/swap.
type swapRequest struct {
	User      string `json:"user"`
	Amount    uint64 `json:"amount"`
	Direction string `json:"direction"` // "buy" or "sell"
	Side      string `json:"side"`      // "yes" or "no"
	MinOut    uint64 `json:"min_out"`
	Deadline  int64  `json:"deadline"`
}

func parseSide(s string) (market.Side, error) {
	switch s {
	case "yes":
		return market.SideYes, nil
	case "no":
		return market.SideNo, nil
	default:
		return 0, errors.New("gateway: side must be \"yes\" or \"no\"")
	}
}

func parseDirection(s string) (market.Direction, error) {
	switch s {
	case "buy":
		return market.DirectionBuy, nil
	case "sell":
		return market.DirectionSell, nil
	default:
		return 0, errors.New("gateway: direction must be \"buy\" or \"sell\"")
	}
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	var req swapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	direction, err := parseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.engine.Swap(r.Context(), market.SwapInput{
		MarketID: marketID, User: req.User, Amount: req.Amount,
		Direction: direction, Side: side, MinOut: req.MinOut, Deadline: req.Deadline,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type completeSetRequest struct {
	User   string `json:"user"`
	Amount uint64 `json:"amount"`
}

func (s *Server) handleMintCompleteSet(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	var req completeSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	evt, err := s.engine.MintCompleteSet(r.Context(), marketID, req.User, req.Amount)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (s *Server) handleRedeemCompleteSet(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	var req completeSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	evt, err := s.engine.RedeemCompleteSet(r.Context(), marketID, req.User, req.Amount)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

type addLiquidityRequest struct {
	User       string `json:"user"`
	UsdcAmount uint64 `json:"usdc_amount"`
}

func (s *Server) handleAddLiquidity(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	var req addLiquidityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.engine.AddLiquidity(r.Context(), market.AddLiquidityInput{
		MarketID: marketID, User: req.User, UsdcAmount: req.UsdcAmount,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type withdrawLiquidityRequest struct {
	User       string `json:"user"`
	LPShares   uint64 `json:"lp_shares"`
	MinUsdcOut uint64 `json:"min_usdc_out"`
}

func (s *Server) handleWithdrawLiquidity(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	var req withdrawLiquidityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	evts, err := s.engine.WithdrawLiquidity(r.Context(), market.WithdrawLiquidityInput{
		MarketID: marketID, User: req.User, LPShares: req.LPShares, MinUsdcOut: req.MinUsdcOut,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event":  evts[len(evts)-1],
		"events": evts,
	})
}

type userRequest struct {
	User string `json:"user"`
}

func (s *Server) handleClaimLPFees(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, evt, err := s.engine.ClaimLPFees(r.Context(), marketID, req.User)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"amount": amount, "event": evt})
}

func (s *Server) handleResetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	evt, err := s.engine.ResetCircuitBreaker(r.Context(), marketID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

type resolveRequest struct {
	Winner      int    `json:"winner"`
	YesRatioBps uint64 `json:"yes_ratio_bps"`
	NoRatioBps  uint64 `json:"no_ratio_bps"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	evt, err := s.engine.Resolve(r.Context(), market.ResolveInput{
		MarketID: marketID, Winner: market.Winner(req.Winner),
		YesRatioBps: req.YesRatioBps, NoRatioBps: req.NoRatioBps,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (s *Server) handleSettlePool(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	evt, err := s.engine.SettlePool(r.Context(), marketID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	payout, evt, err := s.engine.ClaimRewards(r.Context(), marketID, req.User)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payout": payout, "event": evt})
}

func (s *Server) handleReclaimDust(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	dust, evt, err := s.engine.ReclaimDust(r.Context(), marketID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dust": dust, "event": evt})
}

type createMarketRequest struct {
	Creator           string  `json:"creator"`
	YesMint           string  `json:"yes_mint"`
	NoMint            string  `json:"no_mint"`
	DisplayName       string  `json:"display_name"`
	StartSlot         *uint64 `json:"start_slot"`
	EndingSlot        *uint64 `json:"ending_slot"`
	InitialYesProbBps uint64  `json:"initial_yes_prob_bps"`
}

func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := s.engine.CreateMarket(r.Context(), market.CreateMarketInput{
		Creator: req.Creator, YesMint: req.YesMint, NoMint: req.NoMint,
		DisplayName: req.DisplayName, StartSlot: req.StartSlot, EndingSlot: req.EndingSlot,
		InitialYesProbBps: req.InitialYesProbBps,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	m, err := s.store.GetMarket(r.Context(), marketID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "market not found"})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.store.ListMarkets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, markets)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	marketID := r.URL.Query().Get("market_id")
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.Pause(r.Context(), marketID, req.Reason); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	marketID := r.URL.Query().Get("market_id")
	if err := s.engine.Unpause(r.Context(), marketID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unpaused"})
}

type whitelistRequest struct {
	Creator string `json:"creator"`
}

func (s *Server) handleWhitelistAdd(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.AddToWhitelist(r.Context(), req.Creator); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "whitelisted"})
}

func (s *Server) handleWhitelistRemove(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.RemoveFromWhitelist(r.Context(), req.Creator); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type nominateAuthorityRequest struct {
	Caller  string `json:"caller"`
	Nominee string `json:"nominee"`
}

func (s *Server) handleNominateAuthority(w http.ResponseWriter, r *http.Request) {
	var req nominateAuthorityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.NominateAuthority(r.Context(), req.Caller, req.Nominee); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "nominated"})
}

func (s *Server) handleAcceptAuthority(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.AcceptAuthority(r.Context(), req.User); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
