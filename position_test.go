package pool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionLedgerUpdateAccruesFees(t *testing.T) {
	pl := NewPositionLedger()
	key := PositionKey{Owner: alice, TickLower: -60, TickUpper: 60}

	p, err := pl.Update(key, decimal.NewFromInt(1000), ZERO, ZERO)
	require.NoError(t, err)
	assert.True(t, p.Liquidity.Equal(decimal.NewFromInt(1000)))
	assert.True(t, p.TokensOwed0.IsZero())

	feeGrowth0 := Q128.Div(decimal.NewFromInt(1000)).Ceil()
	p, err = pl.Update(key, ZERO, feeGrowth0, ZERO)
	require.NoError(t, err)
	assert.True(t, p.TokensOwed0.Sign() > 0, "fee growth since last touch should credit tokensOwed0")
}

func TestPositionLedgerUpdateZeroDeltaRequiresExistingLiquidity(t *testing.T) {
	pl := NewPositionLedger()
	key := PositionKey{Owner: bob, TickLower: -60, TickUpper: 60}
	_, err := pl.Update(key, ZERO, ZERO, ZERO)
	assert.ErrorIs(t, err, ErrZeroAmount)
}

func TestPositionLedgerGetMissingReturnsNil(t *testing.T) {
	pl := NewPositionLedger()
	assert.Nil(t, pl.Get(PositionKey{Owner: common.HexToAddress("0x00000000000000000000000000000000000000"), TickLower: 0, TickUpper: 60}))
}

func TestPositionLedgerUpdateRejectsLiquidityUnderflow(t *testing.T) {
	pl := NewPositionLedger()
	key := PositionKey{Owner: carol, TickLower: -60, TickUpper: 60}
	_, err := pl.Update(key, decimal.NewFromInt(100), ZERO, ZERO)
	require.NoError(t, err)

	_, err = pl.Update(key, decimal.NewFromInt(-200), ZERO, ZERO)
	assert.ErrorIs(t, err, ErrLiquidityOverflow)
}
