package pool

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// MulDiv returns floor(a*b/denominator), computing the product at full
// precision (big.Int has no fixed width, so the "512-bit intermediate" the
// spec calls for falls out for free; the 256-bit ceiling is enforced
// explicitly below instead of by the type system). Fails Overflow if
// denominator is zero or the quotient does not fit in 256 bits.
func MulDiv(a, b, denominator decimal.Decimal) (decimal.Decimal, error) {
	if denominator.Sign() == 0 {
		return ZERO, ErrOverflow
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	q := new(big.Int).Quo(product, denominator.BigInt())
	if q.Sign() < 0 || q.Cmp(twoPow256) >= 0 {
		return ZERO, ErrOverflow
	}
	return decimal.NewFromBigInt(q, 0), nil
}

// MulDivRoundingUp returns ceil(a*b/denominator).
func MulDivRoundingUp(a, b, denominator decimal.Decimal) (decimal.Decimal, error) {
	if denominator.Sign() == 0 {
		return ZERO, ErrOverflow
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	q, r := new(big.Int).QuoRem(product, denominator.BigInt(), new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, bigOne)
	}
	if q.Sign() < 0 || q.Cmp(twoPow256) >= 0 {
		return ZERO, ErrOverflow
	}
	return decimal.NewFromBigInt(q, 0), nil
}

// ratioConstants are 1/sqrt(1.0001^(2^i)) in Q128.128, for i = 0..19; the
// array's final slot is left unset and never read. Grounded on the public Uniswap V3 TickMath magic
// constant ladder (see other_examples' tickmath.go port): each bit of the
// tick's absolute value contributes one conditional multiply-and-shift.
var ratioConstants = [21]*uint256.Int{
	mustUint256Hex("0xfffcb933bd6fad37aa2d162d1a594001"),
	mustUint256Hex("0xfff97272373d413259a46990580e213a"),
	mustUint256Hex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	mustUint256Hex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	mustUint256Hex("0xffcb9843d60f6159c9db58835c926644"),
	mustUint256Hex("0xff973b41fa98c081472e6896dfb254c0"),
	mustUint256Hex("0xff2ea16466c96a3843ec78b326b52861"),
	mustUint256Hex("0xfe5dee046a99a2a811c461f1969c3053"),
	mustUint256Hex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	mustUint256Hex("0xf987a7253ac413176f2b074cf7815e54"),
	mustUint256Hex("0xf3392b0822b70005940c7a398e4b70f3"),
	mustUint256Hex("0xe7159475a2c29b7443b29c7fa6e889d9"),
	mustUint256Hex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	mustUint256Hex("0xa9f746462d870fdf8a65dc1f90e061e5"),
	mustUint256Hex("0x70d869a156d2a1b890bb3df62baf32f7"),
	mustUint256Hex("0x31be135f97d08fd981231505542fcfa6"),
	mustUint256Hex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	mustUint256Hex("0x5d6af8dedb81196699c329225ee604"),
	mustUint256Hex("0x2216e584f5fa1ea926041bedfe98"),
	mustUint256Hex("0x48a170391f7dc42444e8fa2"),
}

func mustUint256Hex(s string) *uint256.Int {
	v, err := uint256.FromHex(s)
	if err != nil {
		panic(err)
	}
	return v
}

// GetSqrtRatioAtTick computes sqrt(1.0001^tick) as a Q64.96 unsigned
// integer, bit-exact, for tick in [MinTick, MaxTick].
func GetSqrtRatioAtTick(tick int) (decimal.Decimal, error) {
	if tick < MinTick || tick > MaxTick {
		return ZERO, ErrTickOutOfBounds
	}

	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	ratio := new(uint256.Int)
	if absTick&0x1 != 0 {
		ratio.Set(ratioConstants[0])
	} else {
		ratio.SetOne()
		ratio.Lsh(ratio, 128)
	}
	for i := 1; i < 20; i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, ratioConstants[i])
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		maxU256 := new(uint256.Int).SetAllOne()
		ratio = new(uint256.Int).Div(maxU256, ratio)
	}

	// ratio is Q128.128; shift down to Q64.96, rounding up on any
	// truncated remainder (the pool always rounds price ladder results in
	// its own favor).
	mask32 := new(uint256.Int).SetUint64(0xffffffff)
	remainder := new(uint256.Int).And(ratio, mask32)
	ratio.Rsh(ratio, 32)
	if !remainder.IsZero() {
		ratio.AddUint64(ratio, 1)
	}

	return decimal.NewFromBigInt(ratio.ToBig(), 0), nil
}

// GetTickAtSqrtRatio returns the unique tick t such that
// GetSqrtRatioAtTick(t) <= sqrtPriceX96 < GetSqrtRatioAtTick(t+1), found by
// binary search over the monotonic ladder above (same contract the public
// Uniswap V3 TickMath port in other_examples implements with an identical
// search; preferred here over the bit-length/log-base-1.0001 shortcut
// described informally in the spec, since it is simpler to get exactly
// right without the ability to execute the code under test).
func GetTickAtSqrtRatio(sqrtPriceX96 decimal.Decimal) (int, error) {
	if sqrtPriceX96.Cmp(MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, ErrTickOutOfBounds
	}
	low, high := MinTick, MaxTick
	tick := MinTick
	for low <= high {
		mid := (low + high) / 2
		ratio, err := GetSqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Cmp(sqrtPriceX96) <= 0 {
			tick = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return tick, nil
}

// GetAmount0Delta returns the signed amount of token0 for a liquidity
// change of `liquidity` (signed) between sqrtA and sqrtB: rounds up when
// liquidity >= 0, down when liquidity < 0, per spec (the pool always rounds
// in its own favor on deposits/owed amounts).
func GetAmount0Delta(sqrtA, sqrtB, liquidity decimal.Decimal) (decimal.Decimal, error) {
	if liquidity.Sign() < 0 {
		d, err := getAmount0DeltaUnsigned(sqrtA, sqrtB, liquidity.Abs(), false)
		if err != nil {
			return ZERO, err
		}
		return d.Neg(), nil
	}
	return getAmount0DeltaUnsigned(sqrtA, sqrtB, liquidity, true)
}

// GetAmount1Delta is GetAmount0Delta's counterpart for token1.
func GetAmount1Delta(sqrtA, sqrtB, liquidity decimal.Decimal) (decimal.Decimal, error) {
	if liquidity.Sign() < 0 {
		d, err := getAmount1DeltaUnsigned(sqrtA, sqrtB, liquidity.Abs(), false)
		if err != nil {
			return ZERO, err
		}
		return d.Neg(), nil
	}
	return getAmount1DeltaUnsigned(sqrtA, sqrtB, liquidity, true)
}

func orderSqrt(sqrtA, sqrtB decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if sqrtA.Cmp(sqrtB) > 0 {
		return sqrtB, sqrtA
	}
	return sqrtA, sqrtB
}

// getAmount0DeltaUnsigned implements Δx = L·(sqrtB−sqrtA)/(sqrtA·sqrtB).
func getAmount0DeltaUnsigned(sqrtA, sqrtB, liquidity decimal.Decimal, roundUp bool) (decimal.Decimal, error) {
	sqrtA, sqrtB = orderSqrt(sqrtA, sqrtB)
	if sqrtA.Sign() <= 0 {
		return ZERO, ErrOverflow
	}
	numerator1 := liquidity.Mul(Q96).Truncate(0)
	numerator2 := sqrtB.Sub(sqrtA)
	if roundUp {
		inner, err := MulDivRoundingUp(numerator1, numerator2, sqrtB)
		if err != nil {
			return ZERO, err
		}
		q, r := new(big.Int).QuoRem(inner.BigInt(), sqrtA.BigInt(), new(big.Int))
		if r.Sign() != 0 {
			q.Add(q, bigOne)
		}
		return decimal.NewFromBigInt(q, 0), nil
	}
	inner, err := MulDiv(numerator1, numerator2, sqrtB)
	if err != nil {
		return ZERO, err
	}
	q := new(big.Int).Quo(inner.BigInt(), sqrtA.BigInt())
	return decimal.NewFromBigInt(q, 0), nil
}

// getAmount1DeltaUnsigned implements Δy = L·(sqrtB−sqrtA).
func getAmount1DeltaUnsigned(sqrtA, sqrtB, liquidity decimal.Decimal, roundUp bool) (decimal.Decimal, error) {
	sqrtA, sqrtB = orderSqrt(sqrtA, sqrtB)
	if roundUp {
		return MulDivRoundingUp(liquidity, sqrtB.Sub(sqrtA), Q96)
	}
	return MulDiv(liquidity, sqrtB.Sub(sqrtA), Q96)
}

// GetNextSqrtPriceFromInput solves the curve for the price reached after
// consuming amountIn of the input token.
func GetNextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn decimal.Decimal, zeroForOne bool) (decimal.Decimal, error) {
	if sqrtPX96.Sign() <= 0 || liquidity.Sign() <= 0 {
		return ZERO, ErrOverflow
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput solves the curve for the price reached after
// producing amountOut of the output token.
func GetNextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut decimal.Decimal, zeroForOne bool) (decimal.Decimal, error) {
	if sqrtPX96.Sign() <= 0 || liquidity.Sign() <= 0 {
		return ZERO, ErrOverflow
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountOut, false)
	}
	return getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountOut, false)
}

func getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount decimal.Decimal, add bool) (decimal.Decimal, error) {
	if amount.IsZero() {
		return sqrtPX96, nil
	}
	numerator1 := liquidity.Mul(Q96).Truncate(0)
	if add {
		product := amount.Mul(sqrtPX96).Truncate(0)
		denominator := numerator1.Add(product)
		if denominator.Cmp(numerator1) >= 0 {
			return MulDivRoundingUp(numerator1, sqrtPX96, denominator)
		}
		// denominator "overflowed" the nominal width; fall back to the
		// algebraically equivalent form that avoids the intermediate sum.
		q := new(big.Int).Quo(numerator1.BigInt(), sqrtPX96.BigInt())
		denom := new(big.Int).Add(q, amount.BigInt())
		result := new(big.Int)
		rem := new(big.Int)
		result.QuoRem(numerator1.BigInt(), denom, rem)
		if rem.Sign() != 0 {
			result.Add(result, bigOne)
		}
		return decimal.NewFromBigInt(result, 0), nil
	}
	product := amount.Mul(sqrtPX96).Truncate(0)
	if numerator1.Cmp(product) <= 0 {
		return ZERO, ErrInsufficientInput
	}
	denominator := numerator1.Sub(product)
	return MulDivRoundingUp(numerator1, sqrtPX96, denominator)
}

func getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount decimal.Decimal, add bool) (decimal.Decimal, error) {
	if add {
		quotient, err := MulDiv(amount, Q96, liquidity)
		if err != nil {
			return ZERO, err
		}
		return sqrtPX96.Add(quotient), nil
	}
	quotient, err := MulDivRoundingUp(amount, Q96, liquidity)
	if err != nil {
		return ZERO, err
	}
	if sqrtPX96.Cmp(quotient) <= 0 {
		return ZERO, ErrInsufficientInput
	}
	return sqrtPX96.Sub(quotient), nil
}

// TickSpacingToMaxLiquidityPerTick computes floor((2^128-1) / numTicks)
// where numTicks is (MaxTick-MinTick)/tickSpacing + 1, taken off the raw
// MinTick/MaxTick bounds without first rounding them to a tickSpacing
// multiple. When tickSpacing does not divide MaxTick evenly, numTicks can be
// one more than the number of tickSpacing multiples in [MinTick, MaxTick]
// (29576 against 29575 for tickSpacing 60).
func TickSpacingToMaxLiquidityPerTick(tickSpacing int) decimal.Decimal {
	numTicks := (MaxTick-MinTick)/tickSpacing + 1
	q := new(big.Int).Quo(new(big.Int).Sub(twoPow128, bigOne), big.NewInt(int64(numTicks)))
	return decimal.NewFromBigInt(q, 0)
}
