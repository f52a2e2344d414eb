package pool

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickBookUpdateFlipsOnFirstLiquidity(t *testing.T) {
	tb := NewTickBook()
	liquidity := decimal.NewFromInt(1000)

	flipped, err := tb.Update(60, 0, liquidity, ZERO, ZERO, ZERO, ZERO, 1, false, MaxUint128)
	require.NoError(t, err)
	assert.True(t, flipped, "first liquidity at a tick should flip initialized")

	flipped, err = tb.Update(60, 0, liquidity, ZERO, ZERO, ZERO, ZERO, 1, false, MaxUint128)
	require.NoError(t, err)
	assert.False(t, flipped, "adding more liquidity to an already-initialized tick should not flip")
}

func TestTickBookUpdateFlipsOffAtZero(t *testing.T) {
	tb := NewTickBook()
	liquidity := decimal.NewFromInt(1000)

	_, err := tb.Update(60, 0, liquidity, ZERO, ZERO, ZERO, ZERO, 1, false, MaxUint128)
	require.NoError(t, err)

	flipped, err := tb.Update(60, 0, liquidity.Neg(), ZERO, ZERO, ZERO, ZERO, 1, false, MaxUint128)
	require.NoError(t, err)
	assert.True(t, flipped)
}

func TestTickBookUpdateRejectsOverMaxLiquidity(t *testing.T) {
	tb := NewTickBook()
	maxPerTick := decimal.NewFromInt(500)
	_, err := tb.Update(60, 0, decimal.NewFromInt(1000), ZERO, ZERO, ZERO, ZERO, 1, false, maxPerTick)
	assert.ErrorIs(t, err, ErrLiquidityOverflow)
}

func TestGetFeeGrowthInsideSymmetricAtCurrentTick(t *testing.T) {
	tb := NewTickBook()
	global0 := decimal.NewFromInt(100)
	global1 := decimal.NewFromInt(200)

	inside0, inside1 := tb.GetFeeGrowthInside(-60, 60, 0, global0, global1)
	assert.True(t, inside0.Equal(global0), "with no crossings yet, all growth should be inside a range straddling tick 0")
	assert.True(t, inside1.Equal(global1))
}

func TestCrossFlipsOutsideToMirrorGlobal(t *testing.T) {
	tb := NewTickBook()
	_, err := tb.Update(60, 0, decimal.NewFromInt(1000), ZERO, ZERO, ZERO, ZERO, 1, false, MaxUint128)
	require.NoError(t, err)

	global0 := decimal.NewFromInt(500)
	global1 := decimal.NewFromInt(700)
	net := tb.Cross(60, global0, global1, ZERO, ZERO, 2)
	assert.True(t, net.Equal(tb.get(60).LiquidityNet))

	info := tb.get(60)
	assert.True(t, info.FeeGrowthOutside0X128.Equal(global0))
	assert.True(t, info.FeeGrowthOutside1X128.Equal(global1))
}
