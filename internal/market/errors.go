package market

import "errors"

// Sentinel errors grouped by the taxonomy the spec lays out: authorization,
// liveness, state-machine, validation, capacity/economics, arithmetic,
// concurrency and insurance. Engines wrap these with fmt.Errorf("%w: ...")
// to attach instance-specific detail without losing errors.Is matchability.
var (
	// Authorization.
	ErrIncorrectAuthority  = errors.New("market: incorrect authority")
	ErrInvalidAuthority    = errors.New("market: invalid authority")
	ErrCreatorNotWhitelisted = errors.New("market: creator not whitelisted")

	// Liveness.
	ErrContractPaused    = errors.New("market: contract paused")
	ErrMarketPaused      = errors.New("market: market paused")
	ErrAlreadyPaused     = errors.New("market: already paused")
	ErrNotPaused         = errors.New("market: not paused")
	ErrMarketNotStarted  = errors.New("market: not started")
	ErrMarketEnded       = errors.New("market: ended")
	ErrMarketNotEnded    = errors.New("market: not yet ended")
	ErrTransactionExpired = errors.New("market: transaction expired")

	// State-machine.
	ErrCurveAlreadyCompleted          = errors.New("market: curve already completed")
	ErrMarketNotCompleted             = errors.New("market: not completed")
	ErrPoolAlreadySeeded              = errors.New("market: pool already seeded")
	ErrPoolNotSettled                 = errors.New("market: pool not settled")
	ErrMintAuthorityNotTransferred    = errors.New("market: mint authority not transferred")
	ErrCollateralStillLocked          = errors.New("market: collateral still locked")
	ErrLPSharesStillExist             = errors.New("market: lp shares still exist")
	ErrCircuitBreakerTriggered        = errors.New("market: circuit breaker triggered")
	ErrCircuitBreakerNotActive        = errors.New("market: circuit breaker not active")
	ErrCircuitBreakerCooldownNotElapsed = errors.New("market: circuit breaker cooldown not elapsed")
	ErrCircuitBreakerConditionsNotMet = errors.New("market: circuit breaker reset conditions not met")
	ErrWouldTriggerCircuitBreaker     = errors.New("market: trade would trigger circuit breaker")

	// Validation.
	ErrInvalidParameter     = errors.New("market: invalid parameter")
	ErrInvalidAmount        = errors.New("market: invalid amount")
	ErrValueTooSmall        = errors.New("market: value too small")
	ErrValueTooLarge        = errors.New("market: value too large")
	ErrInvalidTradeDirection = errors.New("market: invalid trade direction")
	ErrInvalidTokenType     = errors.New("market: invalid token type")
	ErrInvalidMarketOutcome = errors.New("market: invalid market outcome")
	ErrInvalidStartTime     = errors.New("market: invalid start time")
	ErrInvalidEndTime       = errors.New("market: invalid end time")
	ErrTokenAlreadyInUse    = errors.New("market: token already in use")

	// Capacity / economics.
	ErrInsufficientBalance    = errors.New("market: insufficient balance")
	ErrInsufficientLiquidity  = errors.New("market: insufficient liquidity")
	ErrMarketBelowMinLiquidity = errors.New("market: below minimum trading liquidity")
	ErrSlippageExceeded       = errors.New("market: slippage exceeded")
	ErrTradeSizeTooLarge      = errors.New("market: trade size too large")
	ErrTradeRateLimited       = errors.New("market: trade rate limit exceeded")
	ErrExcessiveWithdrawal    = errors.New("market: excessive withdrawal")
	ErrPoolTooImbalanced      = errors.New("market: pool too imbalanced")

	// Arithmetic.
	ErrMathOverflow    = errors.New("market: math overflow")
	ErrDivisionByZero  = errors.New("market: division by zero")

	// Concurrency.
	ErrReentrancyDetected = errors.New("market: reentrancy detected")

	// Insurance.
	ErrInsurancePoolNotEnabled              = errors.New("market: insurance pool not enabled")
	ErrCannotEnableInsuranceWithoutPlatformFee = errors.New("market: cannot enable insurance without a platform fee")
)
