package pool

import "errors"

// Sentinel errors for the pool engine's error taxonomy. Callers distinguish
// kinds with errors.Is; call sites that need to add context wrap these with
// fmt.Errorf("...: %w", ...).
var (
	ErrNotInitialized      = errors.New("pool: not initialized")
	ErrAlreadyInitialized  = errors.New("pool: already initialized")
	ErrLocked              = errors.New("pool: locked")
	ErrInvalidTickRange    = errors.New("pool: invalid tick range")
	ErrTickOutOfBounds     = errors.New("pool: tick out of bounds")
	ErrTickNotSpaced       = errors.New("pool: tick not a multiple of tick spacing")
	ErrLiquidityOverflow   = errors.New("pool: liquidity overflow")
	ErrInsufficientInput   = errors.New("pool: insufficient input amount")
	ErrPriceLimitOutOfRange = errors.New("pool: price limit out of range")
	ErrOverflow            = errors.New("pool: overflow")
	ErrOracleOld           = errors.New("pool: observation older than oldest recorded")
	ErrZeroAmount          = errors.New("pool: amount must be nonzero")
	ErrUnauthorized        = errors.New("pool: unauthorized")
	ErrInvalidFeeProtocol  = errors.New("pool: invalid protocol fee")
)
