package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PaymentCallback abstracts the deferred-payment pattern the protocol
// relies on for mint/swap/flash: the pool computes an amount owed and
// invokes the callback to collect it before checking its own balances,
// rather than transferring funds itself. Mirrors the external-collaborator
// split the teacher keeps between CorePool and its on-chain token
// transfers, generalized so tests can supply an in-memory vault instead of
// an RPC-backed one.
type PaymentCallback interface {
	PayMint(ctx context.Context, token0Owed, token1Owed decimal.Decimal, data any) error
	PaySwap(ctx context.Context, zeroForOne bool, amountOwed decimal.Decimal, data any) error
	PayFlash(ctx context.Context, fee0, fee1 decimal.Decimal, data any) error
}

// TokenVault abstracts the pool's own token balances, checked after a
// callback to confirm payment actually arrived. Tokens are identified by
// common.Address, the same type the teacher uses for CorePool's
// Token0/Token1 fields.
type TokenVault interface {
	BalanceOf(ctx context.Context, token common.Address) (decimal.Decimal, error)
	Credit(ctx context.Context, token common.Address, amount decimal.Decimal) error
	Debit(ctx context.Context, token common.Address, amount decimal.Decimal) error
}

// InMemoryVault is a minimal reference TokenVault/PaymentCallback pairing
// for tests and simulation: balances live in a map and PayX callbacks
// immediately credit the pool, instead of waiting on an external chain.
type InMemoryVault struct {
	mu       sync.Mutex
	balances map[common.Address]decimal.Decimal
	token0   common.Address
	token1   common.Address
}

func NewInMemoryVault(token0, token1 common.Address) *InMemoryVault {
	return &InMemoryVault{
		balances: map[common.Address]decimal.Decimal{token0: ZERO, token1: ZERO},
		token0:   token0,
		token1:   token1,
	}
}

func (v *InMemoryVault) BalanceOf(_ context.Context, token common.Address) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[token], nil
}

func (v *InMemoryVault) Credit(_ context.Context, token common.Address, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[token] = v.balances[token].Add(amount)
	return nil
}

func (v *InMemoryVault) Debit(_ context.Context, token common.Address, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	bal := v.balances[token]
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("vault: insufficient %s balance: have %s, need %s", token.Hex(), bal, amount)
	}
	v.balances[token] = bal.Sub(amount)
	return nil
}

func (v *InMemoryVault) PayMint(ctx context.Context, token0Owed, token1Owed decimal.Decimal, _ any) error {
	if token0Owed.Sign() > 0 {
		if err := v.Credit(ctx, v.token0, token0Owed); err != nil {
			return err
		}
	}
	if token1Owed.Sign() > 0 {
		if err := v.Credit(ctx, v.token1, token1Owed); err != nil {
			return err
		}
	}
	return nil
}

func (v *InMemoryVault) PaySwap(ctx context.Context, zeroForOne bool, amountOwed decimal.Decimal, _ any) error {
	token := v.token1
	if zeroForOne {
		token = v.token0
	}
	return v.Credit(ctx, token, amountOwed)
}

func (v *InMemoryVault) PayFlash(ctx context.Context, fee0, fee1 decimal.Decimal, _ any) error {
	if fee0.Sign() > 0 {
		if err := v.Credit(ctx, v.token0, fee0); err != nil {
			return err
		}
	}
	if fee1.Sign() > 0 {
		if err := v.Credit(ctx, v.token1, fee1); err != nil {
			return err
		}
	}
	return nil
}
