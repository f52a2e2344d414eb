package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PositionKey identifies a position by owner and the tick range it covers.
// Mirrors the owner+tickLower+tickUpper composite key the teacher's
// PositionManager indexes positions by, generalized from a gorm-query key
// onto a plain Go map key; Owner is a common.Address the same way the
// teacher's own Token0/Token1 fields are, since a position owner is just
// another on-chain account.
type PositionKey struct {
	Owner     common.Address
	TickLower int
	TickUpper int
}

// Position is one liquidity provider's stake in a single tick range.
type Position struct {
	Liquidity decimal.Decimal

	FeeGrowthInside0LastX128 decimal.Decimal
	FeeGrowthInside1LastX128 decimal.Decimal

	TokensOwed0 decimal.Decimal
	TokensOwed1 decimal.Decimal
}

// PositionLedger owns the full set of positions for a pool.
type PositionLedger struct {
	positions map[PositionKey]*Position
}

func NewPositionLedger() *PositionLedger {
	return &PositionLedger{positions: make(map[PositionKey]*Position)}
}

func (pl *PositionLedger) Get(key PositionKey) *Position {
	if p, ok := pl.positions[key]; ok {
		return p
	}
	return nil
}

func (pl *PositionLedger) getOrCreate(key PositionKey) *Position {
	if p, ok := pl.positions[key]; ok {
		return p
	}
	p := &Position{
		Liquidity:                ZERO,
		FeeGrowthInside0LastX128: ZERO,
		FeeGrowthInside1LastX128: ZERO,
		TokensOwed0:              ZERO,
		TokensOwed1:              ZERO,
	}
	pl.positions[key] = p
	return p
}

// Update applies a liquidity delta (which may be zero, e.g. a pure
// fee-collection touch) and credits accrued fees since the position's last
// touch, using the range's current fee-growth-inside snapshot.
func (pl *PositionLedger) Update(
	key PositionKey,
	liquidityDelta decimal.Decimal,
	feeGrowthInside0X128, feeGrowthInside1X128 decimal.Decimal,
) (*Position, error) {
	p := pl.getOrCreate(key)

	var liquidityNext decimal.Decimal
	if liquidityDelta.IsZero() {
		if p.Liquidity.IsZero() {
			return nil, ErrZeroAmount
		}
		liquidityNext = p.Liquidity
	} else {
		next, err := AddDelta(p.Liquidity, liquidityDelta)
		if err != nil {
			return nil, err
		}
		liquidityNext = next
	}

	feesOwed0, err := MulDiv(wrapSub256(feeGrowthInside0X128, p.FeeGrowthInside0LastX128), p.Liquidity, Q128)
	if err != nil {
		return nil, err
	}
	feesOwed1, err := MulDiv(wrapSub256(feeGrowthInside1X128, p.FeeGrowthInside1LastX128), p.Liquidity, Q128)
	if err != nil {
		return nil, err
	}

	if liquidityDelta.Sign() != 0 {
		p.Liquidity = liquidityNext
	}
	p.FeeGrowthInside0LastX128 = feeGrowthInside0X128
	p.FeeGrowthInside1LastX128 = feeGrowthInside1X128

	if feesOwed0.Sign() > 0 {
		p.TokensOwed0 = wrapAdd128(p.TokensOwed0, feesOwed0)
	}
	if feesOwed1.Sign() > 0 {
		p.TokensOwed1 = wrapAdd128(p.TokensOwed1, feesOwed1)
	}

	return p, nil
}
