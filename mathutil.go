package pool

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// wrapAdd256/wrapSub256 implement the modulo-2^256 addition and subtraction
// that the global fee accumulators rely on (spec: "wrap-around addition is
// intentional — differences between snapshots are always taken modulo
// 2^256"). Inputs are assumed to already lie in [0, 2^256).
func wrapAdd256(a, b decimal.Decimal) decimal.Decimal {
	s := a.BigInt()
	s = new(big.Int).Add(s, b.BigInt())
	s = new(big.Int).Mod(s, twoPow256)
	return decimal.NewFromBigInt(s, 0)
}

func wrapSub256(a, b decimal.Decimal) decimal.Decimal {
	d := new(big.Int).Sub(a.BigInt(), b.BigInt())
	d.Mod(d, twoPow256)
	return decimal.NewFromBigInt(d, 0)
}

// wrapAdd128 implements the wrap-only contract for tokensOwed: the design
// assumes owners collect before this would ever overflow u128, so the
// implementation does not guard against it, just wraps.
func wrapAdd128(a, b decimal.Decimal) decimal.Decimal {
	s := new(big.Int).Add(a.BigInt(), b.BigInt())
	s.Mod(s, twoPow128)
	return decimal.NewFromBigInt(s, 0)
}

// AddDelta applies a signed i128 delta to an unsigned u128 accumulator,
// failing LiquidityOverflow on overflow or underflow past the u128 bounds.
func AddDelta(x, delta decimal.Decimal) (decimal.Decimal, error) {
	z := x.Add(delta)
	if z.Sign() < 0 || z.Cmp(MaxUint128) > 0 {
		return ZERO, ErrLiquidityOverflow
	}
	return z, nil
}

// floorDiv performs floor division on plain (non-decimal) ints, used by the
// tick bitmap's compression of an arbitrary tick into a tickSpacing-sized
// bucket index.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.Cmp(b) < 0 {
		return a
	}
	return b
}

// divFloor performs plain integer (floor, not round-to-nearest) division on
// non-negative decimal.Decimal operands, matching the canonical contract's
// feeAmt/feeProtocol and paid/feeProtocol slicing (DivRound rounds to
// nearest and would overstate the protocol's cut).
func divFloor(a, b decimal.Decimal) decimal.Decimal {
	return a.Div(b).Truncate(0)
}
