package pool

import "github.com/shopspring/decimal"

// ComputeSwapStep computes the result of swapping up to amountRemaining of
// one token for the other within a single initialized-tick interval, i.e.
// until either the target price is reached or amountRemaining (or its
// output-exact counterpart) is exhausted. Mirrors the teacher's
// StepComputations loop body, generalized into the standalone SwapMath
// function the protocol factors it as.
func ComputeSwapStep(
	sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining decimal.Decimal, feePips int64,
) (sqrtRatioNextX96, amountIn, amountOut, feeAmount decimal.Decimal, err error) {
	zeroForOne := sqrtRatioCurrentX96.Cmp(sqrtRatioTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0

	fee := decimal.NewFromInt(feePips)

	if exactIn {
		amountRemainingLessFee, mdErr := MulDiv(amountRemaining, milliPips.Sub(fee), milliPips)
		if mdErr != nil {
			return ZERO, ZERO, ZERO, ZERO, mdErr
		}
		if zeroForOne {
			amountIn, err = getAmount0DeltaUnsigned(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			amountIn, err = getAmount1DeltaUnsigned(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return ZERO, ZERO, ZERO, ZERO, err
		}
		if amountRemainingLessFee.Cmp(amountIn) >= 0 {
			sqrtRatioNextX96 = sqrtRatioTargetX96
		} else {
			sqrtRatioNextX96, err = GetNextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
			if err != nil {
				return ZERO, ZERO, ZERO, ZERO, err
			}
		}
	} else {
		if zeroForOne {
			amountOut, err = getAmount1DeltaUnsigned(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			amountOut, err = getAmount0DeltaUnsigned(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return ZERO, ZERO, ZERO, ZERO, err
		}
		negRemaining := amountRemaining.Neg()
		if negRemaining.Cmp(amountOut) >= 0 {
			sqrtRatioNextX96 = sqrtRatioTargetX96
		} else {
			sqrtRatioNextX96, err = GetNextSqrtPriceFromOutput(sqrtRatioCurrentX96, liquidity, negRemaining, zeroForOne)
			if err != nil {
				return ZERO, ZERO, ZERO, ZERO, err
			}
		}
	}

	max := sqrtRatioNextX96.Equal(sqrtRatioTargetX96)

	if zeroForOne {
		if !(max && exactIn) {
			amountIn, err = getAmount0DeltaUnsigned(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true)
			if err != nil {
				return ZERO, ZERO, ZERO, ZERO, err
			}
		}
		if !(max && !exactIn) {
			amountOut, err = getAmount1DeltaUnsigned(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false)
			if err != nil {
				return ZERO, ZERO, ZERO, ZERO, err
			}
		}
	} else {
		if !(max && exactIn) {
			amountIn, err = getAmount1DeltaUnsigned(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, true)
			if err != nil {
				return ZERO, ZERO, ZERO, ZERO, err
			}
		}
		if !(max && !exactIn) {
			amountOut, err = getAmount0DeltaUnsigned(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, false)
			if err != nil {
				return ZERO, ZERO, ZERO, ZERO, err
			}
		}
	}

	// Cap output at the remaining amount for exact-output swaps, since the
	// curve math above can overshoot by rounding.
	if !exactIn && amountOut.Cmp(amountRemaining.Neg()) > 0 {
		amountOut = amountRemaining.Neg()
	}

	if exactIn && !sqrtRatioNextX96.Equal(sqrtRatioTargetX96) {
		// Reached amountRemaining before the target price: the fee is
		// whatever is left after amountIn.
		feeAmount = amountRemaining.Sub(amountIn)
	} else {
		feeAmount, err = MulDivRoundingUp(amountIn, fee, milliPips.Sub(fee))
		if err != nil {
			return ZERO, ZERO, ZERO, ZERO, err
		}
	}

	return sqrtRatioNextX96, amountIn, amountOut, feeAmount, nil
}
