package pool

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOracleInitializeSeedsFirstSlot(t *testing.T) {
	o := NewOracle()
	o.Initialize(1000)
	assert.Equal(t, 1, o.cardinality)
	assert.True(t, o.observations[0].Initialized)
	assert.Equal(t, int64(1000), o.observations[0].BlockTimestamp)
}

func TestOracleObserveSingleNowMatchesWrite(t *testing.T) {
	o := NewOracle()
	o.Initialize(1000)
	o.Write(1010, 100, decimal.NewFromInt(5000))

	tickCum, _, err := o.ObserveSingle(1010, 0, 100, decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.True(t, tickCum.Equal(decimal.NewFromInt(1000)), "tickCumulative should be tick*elapsed = 100*10")
}

func TestOracleGrowIncreasesCardinalityNext(t *testing.T) {
	o := NewOracle()
	o.Initialize(1000)
	next := o.Grow(5)
	assert.Equal(t, 5, next)
	assert.Equal(t, 5, o.cardinalityNext)

	// Growing to a smaller value is a no-op.
	same := o.Grow(3)
	assert.Equal(t, 5, same)
}

func TestOracleWriteAdvancesIndexWithinCardinality(t *testing.T) {
	o := NewOracle()
	o.Initialize(1000)
	o.Grow(3)

	o.Write(1010, 10, decimal.NewFromInt(100))
	assert.Equal(t, 1, o.index)
	o.Write(1020, 20, decimal.NewFromInt(100))
	assert.Equal(t, 2, o.index)
	assert.Equal(t, 3, o.cardinality)
}

func TestOracleObserveSecondsAgoInterpolates(t *testing.T) {
	o := NewOracle()
	o.Initialize(0)
	o.Grow(3)
	o.Write(10, 100, decimal.NewFromInt(1000))
	o.Write(20, 200, decimal.NewFromInt(1000))

	tickCum, _, err := o.ObserveSingle(20, 10, 200, decimal.NewFromInt(1000))
	require.NoError(t, err)
	// at time=10 (the first write), cumulative should be exactly 100*10=1000
	assert.True(t, tickCum.Equal(decimal.NewFromInt(1000)), "got %s", tickCum)
}

func TestObserveSingleRejectsWindowOlderThanOldestObservation(t *testing.T) {
	o := NewOracle()
	o.Initialize(1000)
	o.Grow(2)
	o.Write(1010, 100, decimal.NewFromInt(1000))
	o.Write(1020, 100, decimal.NewFromInt(1000))

	_, _, err := o.ObserveSingle(1020, 100, 100, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrOracleOld)
}

func TestLteHandlesWraparound(t *testing.T) {
	const twoPow32 = int64(1) << 32
	// time has wrapped past 2^32: twoPow32-5 was recorded before the wrap
	// and so lies before 5, which was recorded after it.
	time := int64(10)
	assert.True(t, lte(time, twoPow32-5, 5))
	assert.False(t, lte(time, 5, twoPow32-5))
}
