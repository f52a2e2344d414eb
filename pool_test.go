package pool

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usdc   = common.HexToAddress("0x0000000000000000000000000000000000000A")
	weth   = common.HexToAddress("0x0000000000000000000000000000000000000B")
	alice  = common.HexToAddress("0x000000000000000000000000000000000000A1")
	bob    = common.HexToAddress("0x000000000000000000000000000000000000A2")
	carol  = common.HexToAddress("0x000000000000000000000000000000000000A3")
	ghost  = common.HexToAddress("0x000000000000000000000000000000000000FF")
	lp     = common.HexToAddress("0x000000000000000000000000000000000000B1")
	trader = common.HexToAddress("0x000000000000000000000000000000000000B2")
	lender = common.HexToAddress("0x000000000000000000000000000000000000B3")
)

func newTestPool(t *testing.T) (*PoolEngine, *InMemoryVault) {
	t.Helper()
	vault := NewInMemoryVault(usdc, weth)
	p, err := NewPoolEngine(usdc, weth, 3000, 60, vault, nil)
	require.NoError(t, err)
	sqrtP, err := GetSqrtRatioAtTick(0)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(sqrtP, 1000))
	return p, vault
}

func TestInitializeRejectsDoubleInit(t *testing.T) {
	p, _ := newTestPool(t)
	sqrtP, _ := GetSqrtRatioAtTick(0)
	err := p.Initialize(sqrtP, 1001)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestMintRejectsUninitializedPool(t *testing.T) {
	vault := NewInMemoryVault(usdc, weth)
	p, err := NewPoolEngine(usdc, weth, 3000, 60, vault, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, _, err = p.Mint(ctx, alice, 60, 6000, decimal.NewFromInt(1_000_000), 1000, nil, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestMintRequiresPositiveAmount(t *testing.T) {
	p, _ := newTestPool(t)
	ctx := context.Background()
	_, _, err := p.Mint(ctx, alice, -60, 60, ZERO, 1000, nil, nil)
	assert.ErrorIs(t, err, ErrZeroAmount)
}

func TestMintStraddlingCurrentTickRequiresBothTokens(t *testing.T) {
	p, vault := newTestPool(t)
	ctx := context.Background()

	amount0, amount1, err := p.Mint(ctx, alice, -600, 600, decimal.NewFromInt(1_000_000), 1000, vault, nil)
	require.NoError(t, err)
	assert.True(t, amount0.Sign() > 0, "range straddling current tick needs token0")
	assert.True(t, amount1.Sign() > 0, "range straddling current tick needs token1")
	assert.True(t, p.Liquidity().Equal(decimal.NewFromInt(1_000_000)))
}

func TestMintRangeBelowCurrentTickNeedsOnlyToken1(t *testing.T) {
	p, vault := newTestPool(t)
	ctx := context.Background()

	// The range [-6000,-60] lies entirely below the current price (tick 0),
	// so price has already moved past it — it holds only token1.
	amount0, amount1, err := p.Mint(ctx, alice, -6000, -60, decimal.NewFromInt(1_000_000), 1000, vault, nil)
	require.NoError(t, err)
	assert.True(t, amount0.IsZero())
	assert.True(t, amount1.Sign() > 0)
	// Out-of-range liquidity contributes nothing to active liquidity.
	assert.True(t, p.Liquidity().IsZero())
}

func TestMintRangeAboveCurrentTickNeedsOnlyToken0(t *testing.T) {
	p, vault := newTestPool(t)
	ctx := context.Background()

	// The range [60,6000] lies entirely above the current price, so it
	// holds only token0.
	amount0, amount1, err := p.Mint(ctx, alice, 60, 6000, decimal.NewFromInt(1_000_000), 1000, vault, nil)
	require.NoError(t, err)
	assert.True(t, amount0.Sign() > 0)
	assert.True(t, amount1.IsZero())
	assert.True(t, p.Liquidity().IsZero())
}

func TestMintRejectsMisalignedTicks(t *testing.T) {
	p, _ := newTestPool(t)
	ctx := context.Background()
	_, _, err := p.Mint(ctx, alice, -61, 60, decimal.NewFromInt(1000), 1000, nil, nil)
	assert.ErrorIs(t, err, ErrTickNotSpaced)
}

func TestBurnThenCollectReturnsPrincipal(t *testing.T) {
	p, vault := newTestPool(t)
	ctx := context.Background()

	_, _, err := p.Mint(ctx, alice, -600, 600, decimal.NewFromInt(1_000_000), 1000, vault, nil)
	require.NoError(t, err)

	burn0, burn1, err := p.Burn(alice, -600, 600, decimal.NewFromInt(1_000_000), 1001)
	require.NoError(t, err)
	assert.True(t, burn0.Sign() > 0)
	assert.True(t, burn1.Sign() > 0)
	assert.True(t, p.Liquidity().IsZero(), "burning all liquidity should zero out active liquidity")

	_, lowerStillTracked := p.ticks.ticks[-600]
	_, upperStillTracked := p.ticks.ticks[600]
	assert.False(t, lowerStillTracked, "fully burned lower boundary tick should be cleared from the tick book")
	assert.False(t, upperStillTracked, "fully burned upper boundary tick should be cleared from the tick book")
	assert.False(t, p.ticks.bitmap.isInitialized(-600/p.TickSpacing), "lower boundary tick should be cleared from the bitmap")
	assert.False(t, p.ticks.bitmap.isInitialized(600/p.TickSpacing), "upper boundary tick should be cleared from the bitmap")

	collect0, collect1, err := p.Collect(ctx, alice, alice, -600, 600, MaxUint128, MaxUint128)
	require.NoError(t, err)
	assert.True(t, collect0.Equal(burn0))
	assert.True(t, collect1.Equal(burn1))
}

func TestCollectWithoutPositionFails(t *testing.T) {
	p, _ := newTestPool(t)
	ctx := context.Background()
	_, _, err := p.Collect(ctx, ghost, ghost, -60, 60, ONE, ONE)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSwapZeroForOneMovesPriceDown(t *testing.T) {
	p, vault := newTestPool(t)
	ctx := context.Background()

	_, _, err := p.Mint(ctx, lp, -6000, 6000, decimal.NewFromInt(10_000_000), 1000, vault, nil)
	require.NoError(t, err)

	require.NoError(t, vault.Credit(ctx, usdc, decimal.NewFromInt(1_000_000_000)))
	require.NoError(t, vault.Credit(ctx, weth, decimal.NewFromInt(1_000_000_000)))

	startTick := p.Slot0().Tick
	limit := MinSqrtRatio.Add(ONE)

	amount0, amount1, err := p.Swap(ctx, trader, true, decimal.NewFromInt(1000), limit, 1001, vault, nil)
	require.NoError(t, err)
	assert.True(t, amount0.Sign() > 0, "pool receives token0")
	assert.True(t, amount1.Sign() < 0, "pool pays out token1")
	assert.True(t, p.Slot0().Tick <= startTick, "price should move down (or stay, rounding) on zeroForOne swap")
}

func TestSwapOneForZeroMovesPriceUp(t *testing.T) {
	p, vault := newTestPool(t)
	ctx := context.Background()

	_, _, err := p.Mint(ctx, lp, -6000, 6000, decimal.NewFromInt(10_000_000), 1000, vault, nil)
	require.NoError(t, err)

	require.NoError(t, vault.Credit(ctx, usdc, decimal.NewFromInt(1_000_000_000)))
	require.NoError(t, vault.Credit(ctx, weth, decimal.NewFromInt(1_000_000_000)))

	startTick := p.Slot0().Tick
	limit := MaxSqrtRatio.Sub(ONE)

	amount0, amount1, err := p.Swap(ctx, trader, false, decimal.NewFromInt(1000), limit, 1001, vault, nil)
	require.NoError(t, err)
	assert.True(t, amount1.Sign() > 0, "pool receives token1")
	assert.True(t, amount0.Sign() < 0, "pool pays out token0")
	assert.True(t, p.Slot0().Tick >= startTick)
}

func TestSwapRejectsOutOfRangePriceLimit(t *testing.T) {
	p, vault := newTestPool(t)
	ctx := context.Background()
	_, _, err := p.Swap(ctx, trader, true, decimal.NewFromInt(1000), p.Slot0().SqrtPriceX96, 1001, vault, nil)
	assert.ErrorIs(t, err, ErrPriceLimitOutOfRange)
}

func TestSwapWithNoLiquidityFails(t *testing.T) {
	p, vault := newTestPool(t)
	ctx := context.Background()
	limit := MinSqrtRatio.Add(ONE)
	_, _, err := p.Swap(ctx, trader, true, decimal.NewFromInt(1000), limit, 1001, vault, nil)
	assert.Error(t, err)
}

func TestFlashRepaysFeeIntoGlobalGrowth(t *testing.T) {
	p, vault := newTestPool(t)
	ctx := context.Background()

	_, _, err := p.Mint(ctx, lp, -6000, 6000, decimal.NewFromInt(10_000_000), 1000, vault, nil)
	require.NoError(t, err)
	require.NoError(t, vault.Credit(ctx, usdc, decimal.NewFromInt(1_000_000)))
	require.NoError(t, vault.Credit(ctx, weth, decimal.NewFromInt(1_000_000)))

	err = p.Flash(ctx, lender, decimal.NewFromInt(100_000), decimal.NewFromInt(0), vault, nil)
	require.NoError(t, err)
	assert.True(t, p.feeGrowthGlobal0X128.Sign() > 0, "repaid token0 fee should raise feeGrowthGlobal0X128")
}

func TestSetFeeProtocolValidatesRange(t *testing.T) {
	p, _ := newTestPool(t)
	err := p.SetFeeProtocol(3, 0)
	assert.ErrorIs(t, err, ErrInvalidFeeProtocol)

	err = p.SetFeeProtocol(5, 6)
	assert.NoError(t, err)
}

func TestGrowOracleIncreasesCardinalityNext(t *testing.T) {
	p, _ := newTestPool(t)
	require.NoError(t, p.GrowOracle(10))
	assert.Equal(t, 10, p.Slot0().ObservationCardinalityNext)
}

func TestSnapshotCumulativesInsideForFullRange(t *testing.T) {
	p, vault := newTestPool(t)
	ctx := context.Background()
	_, _, err := p.Mint(ctx, lp, -887220, 887220, decimal.NewFromInt(1000), 1000, vault, nil)
	require.NoError(t, err)

	_, _, secondsInside, err := p.SnapshotCumulativesInside(-887220, 887220, 1005)
	require.NoError(t, err)
	assert.True(t, secondsInside >= 0)
}
