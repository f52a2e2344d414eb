package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PoolEventListener receives a synchronous callback for every state
// transition the engine commits. Every event except Initialize (which runs
// without the lock) is dispatched while still holding the reentrancy lock.
// Grounded on the teacher's Record/ActionType log trail,
// generalized from a gorm-persisted audit row into a typed fan-out
// interface so callers can wire metrics, indexers, or logging without the
// engine depending on any of them directly.
type PoolEventListener interface {
	OnInitialize(e InitializeEvent)
	OnMint(e MintEvent)
	OnBurn(e BurnEvent)
	OnCollect(e CollectEvent)
	OnSwap(e SwapEvent)
	OnFlash(e FlashEvent)
	OnIncreaseObservationCardinalityNext(e IncreaseObservationCardinalityNextEvent)
	OnSetFeeProtocol(e SetFeeProtocolEvent)
	OnCollectProtocol(e CollectProtocolEvent)
}

type InitializeEvent struct {
	SqrtPriceX96 decimal.Decimal
	Tick         int
}

type MintEvent struct {
	Sender               common.Address
	Owner                common.Address
	TickLower, TickUpper int
	Amount               decimal.Decimal
	Amount0, Amount1     decimal.Decimal
}

type BurnEvent struct {
	Owner                common.Address
	TickLower, TickUpper int
	Amount               decimal.Decimal
	Amount0, Amount1     decimal.Decimal
}

type CollectEvent struct {
	Owner                common.Address
	Recipient            common.Address
	TickLower, TickUpper int
	Amount0, Amount1     decimal.Decimal
}

type SwapEvent struct {
	Sender       common.Address
	Recipient    common.Address
	Amount0      decimal.Decimal
	Amount1      decimal.Decimal
	SqrtPriceX96 decimal.Decimal
	Liquidity    decimal.Decimal
	Tick         int
}

type FlashEvent struct {
	Sender    common.Address
	Recipient common.Address
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
	Paid0     decimal.Decimal
	Paid1     decimal.Decimal
}

type IncreaseObservationCardinalityNextEvent struct {
	ObservationCardinalityNextOld int
	ObservationCardinalityNextNew int
}

type SetFeeProtocolEvent struct {
	FeeProtocol0Old, FeeProtocol1Old int
	FeeProtocol0New, FeeProtocol1New int
}

type CollectProtocolEvent struct {
	Sender    common.Address
	Recipient common.Address
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
}

// NoopListener discards every event; used as the default when a caller
// does not supply one.
type NoopListener struct{}

func (NoopListener) OnInitialize(InitializeEvent)                                           {}
func (NoopListener) OnMint(MintEvent)                                                        {}
func (NoopListener) OnBurn(BurnEvent)                                                        {}
func (NoopListener) OnCollect(CollectEvent)                                                  {}
func (NoopListener) OnSwap(SwapEvent)                                                        {}
func (NoopListener) OnFlash(FlashEvent)                                                      {}
func (NoopListener) OnIncreaseObservationCardinalityNext(IncreaseObservationCardinalityNextEvent) {}
func (NoopListener) OnSetFeeProtocol(SetFeeProtocolEvent)                                    {}
func (NoopListener) OnCollectProtocol(CollectProtocolEvent)                                  {}
