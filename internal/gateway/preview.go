package gateway

import (
	"net/http"
	"strconv"
)

// handlePreviewSell answers GET /markets/{id}/preview/sell?side=yes&amount=100
// with the same fee math a real sell swap would apply, without touching any
// balance.
func (s *Server) handlePreviewSell(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	side, err := parseSide(r.URL.Query().Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.engine.PreviewSell(r.Context(), marketID, side, amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePreviewClaim answers GET /markets/{id}/preview/claim?user=...
func (s *Server) handlePreviewClaim(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	user := r.URL.Query().Get("user")
	payout, err := s.engine.PreviewClaim(r.Context(), marketID, user)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"payout": payout})
}

// handlePreviewClaimFees answers GET /markets/{id}/preview/claim-fees?user=...
func (s *Server) handlePreviewClaimFees(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	user := r.URL.Query().Get("user")
	result, err := s.engine.PreviewClaimFees(r.Context(), marketID, user)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePreviewWithdraw answers
// GET /markets/{id}/preview/withdraw?user=...&lp_shares=...
func (s *Server) handlePreviewWithdraw(w http.ResponseWriter, r *http.Request) {
	marketID := chiURLParam(r, "marketID")
	user := r.URL.Query().Get("user")
	lpShares, err := strconv.ParseUint(r.URL.Query().Get("lp_shares"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.engine.PreviewWithdraw(r.Context(), marketID, user, lpShares)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
