package pool

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSwapStepExactInCapByTarget(t *testing.T) {
	current, err := GetSqrtRatioAtTick(0)
	require.NoError(t, err)
	target, err := GetSqrtRatioAtTick(-100)
	require.NoError(t, err)
	liquidity := decimal.NewFromInt(1_000_000_000_000)

	next, amountIn, amountOut, fee, err := ComputeSwapStep(current, target, liquidity, decimal.NewFromInt(1_000_000), 3000)
	require.NoError(t, err)

	assert.True(t, amountIn.Sign() > 0)
	assert.True(t, amountOut.Sign() >= 0)
	assert.True(t, fee.Sign() >= 0)
	assert.True(t, next.Cmp(current) <= 0)
	assert.True(t, next.Cmp(target) >= 0)
}

func TestComputeSwapStepExactOutCapByRemaining(t *testing.T) {
	current, err := GetSqrtRatioAtTick(0)
	require.NoError(t, err)
	target, err := GetSqrtRatioAtTick(100)
	require.NoError(t, err)
	liquidity := decimal.NewFromInt(1_000_000_000_000)

	_, amountIn, amountOut, fee, err := ComputeSwapStep(current, target, liquidity, decimal.NewFromInt(-500), 3000)
	require.NoError(t, err)

	assert.True(t, amountOut.Cmp(decimal.NewFromInt(500)) <= 0)
	assert.True(t, amountIn.Sign() > 0)
	assert.True(t, fee.Sign() >= 0)
}

func TestComputeSwapStepZeroFeeNoFeeCollected(t *testing.T) {
	current, err := GetSqrtRatioAtTick(0)
	require.NoError(t, err)
	target, err := GetSqrtRatioAtTick(-10)
	require.NoError(t, err)
	liquidity := decimal.NewFromInt(1_000_000_000_000)

	_, _, _, fee, err := ComputeSwapStep(current, target, liquidity, decimal.NewFromInt(1000), 0)
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
}
