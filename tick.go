package pool

import "github.com/shopspring/decimal"

// TickInfo is the per-tick accounting record: gross/net liquidity for
// crossing decisions, and the fee-growth-outside snapshots used to derive
// the fee growth inside any range that has this tick as a boundary.
// Grounded on CorePool's TickManager fields in the teacher, generalized
// from decimal-everywhere gorm columns to a plain in-memory struct.
type TickInfo struct {
	LiquidityGross decimal.Decimal
	LiquidityNet   decimal.Decimal

	FeeGrowthOutside0X128 decimal.Decimal
	FeeGrowthOutside1X128 decimal.Decimal

	TickCumulativeOutside      decimal.Decimal
	SecondsPerLiquidityOutsideX128 decimal.Decimal
	SecondsOutside             int64

	Initialized bool
}

// TickBook owns both the per-tick ledger and the bitmap index over it.
type TickBook struct {
	ticks  map[int]*TickInfo
	bitmap *TickBitmap
}

func NewTickBook() *TickBook {
	return &TickBook{
		ticks:  make(map[int]*TickInfo),
		bitmap: NewTickBitmap(),
	}
}

func (tb *TickBook) get(tick int) *TickInfo {
	if info, ok := tb.ticks[tick]; ok {
		return info
	}
	return &TickInfo{
		LiquidityGross:                 ZERO,
		LiquidityNet:                   ZERO,
		FeeGrowthOutside0X128:          ZERO,
		FeeGrowthOutside1X128:          ZERO,
		TickCumulativeOutside:          ZERO,
		SecondsPerLiquidityOutsideX128: ZERO,
	}
}

// Update adjusts a tick's liquidity accounting for a position whose
// boundary sits at this tick, flipping its initialized state when gross
// liquidity transitions to/from zero. liquidityDelta is signed: Update
// applies it directly via AddDelta rather than its absolute value, matching
// the canonical LiquidityMath.addDelta(liquidityGrossBefore, liquidityDelta)
// contract (the "adjust by the magnitude" phrasing describes the common
// case of a single-sided mint, not a literal abs()).
func (tb *TickBook) Update(
	tick, tickCurrent int,
	liquidityDelta decimal.Decimal,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 decimal.Decimal,
	secondsPerLiquidityCumulativeX128 decimal.Decimal,
	tickCumulative decimal.Decimal,
	time int64,
	upper bool,
	maxLiquidity decimal.Decimal,
) (flipped bool, err error) {
	info := tb.get(tick)
	liquidityGrossBefore := info.LiquidityGross

	liquidityGrossAfter, err := AddDelta(liquidityGrossBefore, liquidityDelta)
	if err != nil {
		return false, err
	}
	if liquidityGrossAfter.Cmp(maxLiquidity) > 0 {
		return false, ErrLiquidityOverflow
	}

	flipped = liquidityGrossAfter.IsZero() != liquidityGrossBefore.IsZero()

	if liquidityGrossBefore.IsZero() {
		// By convention ticks below the current price start as though
		// every unit of growth happened below them.
		if tick <= tickCurrent {
			info.FeeGrowthOutside0X128 = feeGrowthGlobal0X128
			info.FeeGrowthOutside1X128 = feeGrowthGlobal1X128
			info.SecondsPerLiquidityOutsideX128 = secondsPerLiquidityCumulativeX128
			info.TickCumulativeOutside = tickCumulative
			info.SecondsOutside = time
		}
		info.Initialized = true
	}

	info.LiquidityGross = liquidityGrossAfter
	if upper {
		info.LiquidityNet = info.LiquidityNet.Sub(liquidityDelta)
	} else {
		info.LiquidityNet = info.LiquidityNet.Add(liquidityDelta)
	}

	tb.ticks[tick] = info
	return flipped, nil
}

// Clear removes a tick's bookkeeping entirely once its gross liquidity
// returns to zero; the bitmap bit must already have been flipped off by
// the caller.
func (tb *TickBook) Clear(tick int) {
	delete(tb.ticks, tick)
}

// Cross flips a tick's outside accumulators to mirror the global
// accumulators as the pool's current tick crosses it, and returns the
// signed net liquidity the caller should apply to pool liquidity.
func (tb *TickBook) Cross(
	tick int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 decimal.Decimal,
	secondsPerLiquidityCumulativeX128 decimal.Decimal,
	tickCumulative decimal.Decimal,
	time int64,
) decimal.Decimal {
	info := tb.get(tick)
	info.FeeGrowthOutside0X128 = wrapSub256(feeGrowthGlobal0X128, info.FeeGrowthOutside0X128)
	info.FeeGrowthOutside1X128 = wrapSub256(feeGrowthGlobal1X128, info.FeeGrowthOutside1X128)
	info.SecondsPerLiquidityOutsideX128 = wrapSub256(secondsPerLiquidityCumulativeX128, info.SecondsPerLiquidityOutsideX128)
	info.TickCumulativeOutside = tickCumulative.Sub(info.TickCumulativeOutside)
	info.SecondsOutside = time - info.SecondsOutside
	tb.ticks[tick] = info
	return info.LiquidityNet
}

// GetFeeGrowthInside computes the per-unit-liquidity fee growth accrued
// strictly inside [tickLower, tickUpper] as of the current pool state, by
// subtracting each boundary's "outside" growth from the global total —
// the standard three-region derivation (below-lower, inside, above-upper).
func (tb *TickBook) GetFeeGrowthInside(
	tickLower, tickUpper, tickCurrent int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 decimal.Decimal,
) (inside0, inside1 decimal.Decimal) {
	lower := tb.get(tickLower)
	upper := tb.get(tickUpper)

	var below0, below1 decimal.Decimal
	if tickCurrent >= tickLower {
		below0, below1 = lower.FeeGrowthOutside0X128, lower.FeeGrowthOutside1X128
	} else {
		below0 = wrapSub256(feeGrowthGlobal0X128, lower.FeeGrowthOutside0X128)
		below1 = wrapSub256(feeGrowthGlobal1X128, lower.FeeGrowthOutside1X128)
	}

	var above0, above1 decimal.Decimal
	if tickCurrent < tickUpper {
		above0, above1 = upper.FeeGrowthOutside0X128, upper.FeeGrowthOutside1X128
	} else {
		above0 = wrapSub256(feeGrowthGlobal0X128, upper.FeeGrowthOutside0X128)
		above1 = wrapSub256(feeGrowthGlobal1X128, upper.FeeGrowthOutside1X128)
	}

	inside0 = wrapSub256(wrapSub256(feeGrowthGlobal0X128, below0), above0)
	inside1 = wrapSub256(wrapSub256(feeGrowthGlobal1X128, below1), above1)
	return
}

func (tb *TickBook) flipInitialized(tick, tickSpacing int) error {
	return tb.bitmap.Flip(tick, tickSpacing)
}

func (tb *TickBook) nextInitializedTick(tick, tickSpacing int, lte bool) (int, bool) {
	return tb.bitmap.NextInitializedTickWithinOneWord(tick, tickSpacing, lte)
}
