package pool

import "github.com/shopspring/decimal"

// OracleCardinality caps the ring buffer size, matching the protocol's
// practical ceiling on observation slots.
const OracleCardinality = 65535

// Observation is one recorded price/liquidity sample.
type Observation struct {
	BlockTimestamp                     int64
	TickCumulative                     decimal.Decimal
	SecondsPerLiquidityCumulativeX128  decimal.Decimal
	Initialized                        bool
}

// Oracle is the pool's ring buffer of observations, grown on demand and
// written once per block. Grounded on spec section 6 and the
// transform/write/grow/observeSingle/binarySearch split used by the
// canonical Uniswap V3 Oracle library.
type Oracle struct {
	observations []Observation

	cardinality     int
	cardinalityNext int
	index           int
}

func NewOracle() *Oracle {
	return &Oracle{
		observations: make([]Observation, 1, 16),
	}
}

// Initialize writes the first observation slot at pool creation time.
func (o *Oracle) Initialize(time int64) {
	o.observations[0] = Observation{
		BlockTimestamp: time,
		TickCumulative: ZERO,
		SecondsPerLiquidityCumulativeX128: ZERO,
		Initialized:    true,
	}
	o.cardinality = 1
	o.cardinalityNext = 1
	o.index = 0
}

func transform(last Observation, blockTimestamp int64, tick int, liquidity decimal.Decimal) Observation {
	delta := blockTimestamp - last.BlockTimestamp
	tickDelta := decimal.NewFromInt(int64(tick)).Mul(decimal.NewFromInt(delta))

	var liqContribution decimal.Decimal
	if liquidity.IsZero() {
		liqContribution = decimal.NewFromInt(delta).Mul(Q128)
	} else {
		liqContribution = decimal.NewFromInt(delta).Mul(Q128).Div(liquidity).Truncate(0)
	}

	return Observation{
		BlockTimestamp: blockTimestamp,
		TickCumulative: last.TickCumulative.Add(tickDelta),
		SecondsPerLiquidityCumulativeX128: wrapAdd256(
			last.SecondsPerLiquidityCumulativeX128, liqContribution,
		),
		Initialized: true,
	}
}

// Write records a new observation if enough time has passed since the
// last one recorded (at most one write per block), advancing the ring
// index and growing into any already-allocated cardinalityNext capacity.
func (o *Oracle) Write(blockTimestamp int64, tick int, liquidity decimal.Decimal) {
	last := o.observations[o.index]
	if last.BlockTimestamp == blockTimestamp {
		return
	}

	cardinalityUpdated := o.cardinality
	if o.cardinalityNext > o.cardinality && o.index == o.cardinality-1 {
		cardinalityUpdated = o.cardinalityNext
	}

	indexUpdated := (o.index + 1) % cardinalityUpdated
	next := transform(last, blockTimestamp, tick, liquidity)

	for len(o.observations) <= indexUpdated {
		o.observations = append(o.observations, Observation{})
	}
	o.observations[indexUpdated] = next

	o.cardinality = cardinalityUpdated
	o.index = indexUpdated
}

// writeOnSwap is Write plus the bookkeeping a caller needs to update its own
// cached slot0 index/cardinality after a swap moved the tick.
func (o *Oracle) writeOnSwap(
	blockTimestamp int64, tick int, liquidity decimal.Decimal,
	index, cardinality, cardinalityNext int,
) (newIndex, newCardinality int) {
	o.index = index
	o.cardinality = cardinality
	o.cardinalityNext = cardinalityNext
	o.Write(blockTimestamp, tick, liquidity)
	return o.index, o.cardinality
}

// Grow reserves additional observation slots for future writes, filling
// them with a placeholder timestamp of 1 and Initialized false; binarySearch
// skips such slots by their Initialized flag.
func (o *Oracle) Grow(next int) int {
	current := o.cardinalityNext
	if current == 0 {
		current = 1
	}
	if next <= current {
		return current
	}
	for len(o.observations) < next {
		o.observations = append(o.observations, Observation{BlockTimestamp: 1})
	}
	o.cardinalityNext = next
	return next
}

func lte(time, a, b int64) bool {
	if a <= time && b <= time {
		return a <= b
	}
	aAdjusted := a
	if a > time {
		aAdjusted = a - (1 << 32)
	}
	bAdjusted := b
	if b > time {
		bAdjusted = b - (1 << 32)
	}
	return aAdjusted <= bAdjusted
}

// binarySearch finds the observations straddling target, assuming the ring
// buffer has at least two initialized entries.
func (o *Oracle) binarySearch(time, target int64) (before, after Observation) {
	l := (o.index + 1) % o.cardinality
	r := l + o.cardinality - 1
	var beforeI, afterI int
	for {
		i := (l + r) / 2
		beforeI = i % o.cardinality
		beforeObs := o.observations[beforeI]
		if !beforeObs.Initialized {
			l = i + 1
			continue
		}
		afterI = (beforeI + 1) % o.cardinality
		afterObs := o.observations[afterI]

		targetAtOrAfter := lte(time, beforeObs.BlockTimestamp, target)
		if targetAtOrAfter && lte(time, target, afterObs.BlockTimestamp) {
			return beforeObs, afterObs
		}
		if !targetAtOrAfter {
			r = i - 1
		} else {
			l = i + 1
		}
	}
}

func (o *Oracle) getSurroundingObservations(
	time int64, target int64, tick int, liquidity decimal.Decimal,
) (before, after Observation, err error) {
	before = o.observations[o.index]
	if lte(time, before.BlockTimestamp, target) {
		if before.BlockTimestamp == target {
			return before, Observation{}, nil
		}
		return before, transform(before, target, tick, liquidity), nil
	}

	oldestIndex := (o.index + 1) % o.cardinality
	oldest := o.observations[oldestIndex]
	if !oldest.Initialized {
		oldest = o.observations[0]
	}
	if !lte(time, oldest.BlockTimestamp, target) {
		return Observation{}, Observation{}, ErrOracleOld
	}

	before, after = o.binarySearch(time, target)
	return before, after, nil
}

// ObserveSingle returns the tick-cumulative and seconds-per-liquidity
// accumulators as of secondsAgo in the past (0 means "now"). Returns
// ErrOracleOld if secondsAgo reaches further back than the oldest recorded
// observation.
func (o *Oracle) ObserveSingle(
	time int64, secondsAgo int64, tick int, liquidity decimal.Decimal,
) (tickCumulative decimal.Decimal, secondsPerLiquidityCumulativeX128 decimal.Decimal, err error) {
	if secondsAgo == 0 {
		last := o.observations[o.index]
		if last.BlockTimestamp != time {
			last = transform(last, time, tick, liquidity)
		}
		return last.TickCumulative, last.SecondsPerLiquidityCumulativeX128, nil
	}

	target := time - secondsAgo
	before, after, err := o.getSurroundingObservations(time, target, tick, liquidity)
	if err != nil {
		return ZERO, ZERO, err
	}

	if target == before.BlockTimestamp {
		return before.TickCumulative, before.SecondsPerLiquidityCumulativeX128, nil
	}
	if target == after.BlockTimestamp {
		return after.TickCumulative, after.SecondsPerLiquidityCumulativeX128, nil
	}

	observationTimeDelta := after.BlockTimestamp - before.BlockTimestamp
	targetDelta := target - before.BlockTimestamp

	tickDiff := after.TickCumulative.Sub(before.TickCumulative)
	tickCumulative = before.TickCumulative.Add(
		tickDiff.Mul(decimal.NewFromInt(targetDelta)).Div(decimal.NewFromInt(observationTimeDelta)).Truncate(0),
	)

	liqDiff := after.SecondsPerLiquidityCumulativeX128.Sub(before.SecondsPerLiquidityCumulativeX128)
	secondsPerLiquidityCumulativeX128 = before.SecondsPerLiquidityCumulativeX128.Add(
		liqDiff.Mul(decimal.NewFromInt(targetDelta)).Div(decimal.NewFromInt(observationTimeDelta)).Truncate(0),
	)
	return tickCumulative, secondsPerLiquidityCumulativeX128, nil
}

// Observe evaluates ObserveSingle for each entry in secondsAgos.
func (o *Oracle) Observe(
	time int64, secondsAgos []int64, tick int, liquidity decimal.Decimal,
) (tickCumulatives []decimal.Decimal, secondsPerLiquidityCumulativeX128s []decimal.Decimal, err error) {
	tickCumulatives = make([]decimal.Decimal, len(secondsAgos))
	secondsPerLiquidityCumulativeX128s = make([]decimal.Decimal, len(secondsAgos))
	for i, sa := range secondsAgos {
		tickCumulatives[i], secondsPerLiquidityCumulativeX128s[i], err = o.ObserveSingle(time, sa, tick, liquidity)
		if err != nil {
			return nil, nil, err
		}
	}
	return tickCumulatives, secondsPerLiquidityCumulativeX128s, nil
}
