package pool

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Tick domain bounds, per the 1.0001^tick price curve: MIN_TICK/MAX_TICK
// bracket the range representable in a Q64.96 sqrt price without overflow.
const (
	MinTick = -887272
	MaxTick = 887272

	// MaxTickSpacing is exclusive: a pool's tickSpacing must be smaller.
	MaxTickSpacing = 16384
)

var (
	ZERO = decimal.Zero
	ONE  = decimal.NewFromInt(1)

	bigOne = big.NewInt(1)

	twoPow128 = new(big.Int).Lsh(bigOne, 128)
	twoPow160 = new(big.Int).Lsh(bigOne, 160)
	twoPow256 = new(big.Int).Lsh(bigOne, 256)

	// Q96 / Q128 are the fixed-point scaling factors used throughout: prices
	// are Q64.96, fee growth and position math are Q128.128.
	Q96  = decimal.NewFromBigInt(new(big.Int).Lsh(bigOne, 96), 0)
	Q128 = decimal.NewFromBigInt(twoPow128, 0)

	MaxUint128 = decimal.NewFromBigInt(new(big.Int).Sub(twoPow128, bigOne), 0)
	MaxUint160 = decimal.NewFromBigInt(new(big.Int).Sub(twoPow160, bigOne), 0)
	MaxUint256 = decimal.NewFromBigInt(new(big.Int).Sub(twoPow256, bigOne), 0)

	// MinSqrtRatio/MaxSqrtRatio are sqrtRatioAtTick(MinTick) / sqrtRatioAtTick(MaxTick).
	MinSqrtRatio, _ = decimal.NewFromString("4295128739")
	MaxSqrtRatio, _ = decimal.NewFromString("1461446703485210103287273052203988822378723970342")

	// milliPips is the fee/amount denominator: fee is expressed in
	// hundredths of a basis point (parts per million).
	milliPips = decimal.NewFromInt(1_000_000)
)

// FeeAmount is a fee tier expressed in hundredths of a basis point
// (denominator 1,000,000), e.g. 3000 == 0.3%.
type FeeAmount int64
