package core

import (
	"cosmossdk.io/math"
	"lukechampine.com/uint128"
)

// NetworkFeeConfig holds the individual line items that compose the
// network-fee component of CostModel. Each field is a
// configured constant expressed in base units of the chain's native asset.
type NetworkFeeConfig struct {
	BaseFee          uint64
	PriorityFee      uint64
	ComputeUnits     uint64
	ComputeUnitPrice uint64
	ATARent          uint64
	ProtocolFee      uint64
	SlippageBuffer   uint64
}

// Total sums the configured line items into the network_fees output of
// network conditions.
func (c NetworkFeeConfig) Total() uint64 {
	return c.BaseFee + c.PriorityFee + c.ComputeUnits*c.ComputeUnitPrice + c.ATARent + c.ProtocolFee + c.SlippageBuffer
}

// DefaultNetworkFeeConfig is a conservative placeholder; real deployments
// override every field from pkg/config.
func DefaultNetworkFeeConfig() NetworkFeeConfig {
	return NetworkFeeConfig{
		BaseFee:          5_000,
		PriorityFee:      1_000,
		ComputeUnits:     200_000,
		ComputeUnitPrice: 1,
		ATARent:          2_039_280,
		ProtocolFee:      0,
		SlippageBuffer:   5_000,
	}
}

// CostModel decomposes the non-profit components of a candidate two-hop
// trade: network fees, trading fees, and a depth-based price-impact proxy
// distinct from the venue slippage factor QuoteEngine already applied.
type CostModel struct {
	NetworkFees            NetworkFeeConfig
	DepthImpactCoefficient math.LegacyDec
	MinProfitThreshold     int64
}

// NewCostModel builds a CostModel with sensible defaults: depth-impact
// coefficient 0.1, minimum profit threshold 10,000 base units.
func NewCostModel(fees NetworkFeeConfig) *CostModel {
	return &CostModel{
		NetworkFees:            fees,
		DepthImpactCoefficient: math.LegacyNewDecWithPrec(1, 1), // 0.1
		MinProfitThreshold:     10_000,
	}
}

// LegInputs describes one hop's contribution to trading fees and depth
// impact.
type LegInputs struct {
	AmountIn uint64
	FeeBps   uint16
	ReserveA uint64
	ReserveB uint64
}

// Breakdown is the full decomposition of a candidate trade's costs and
// resulting profit.
type Breakdown struct {
	NetworkFees  uint64
	TradingFees  uint64
	DepthImpact  uint64
	TotalCost    uint64
	GrossProfit  int64
	NetProfit    int64
}

// Evaluate computes the full cost/profit breakdown for a two-leg route.
// initialIn is the leg-1 input amount in the chain's native-asset base
// units comparable to finalOut (Opportunity already expresses
// both hops in the same accounting unit by construction: the scanner never
// mixes mints across initialIn/finalOut).
func (c *CostModel) Evaluate(leg1, leg2 LegInputs, initialIn, finalOut uint64) Breakdown {
	networkFees := c.NetworkFees.Total()

	tradingFees := (leg1.AmountIn*uint64(leg1.FeeBps) + leg2.AmountIn*uint64(leg2.FeeBps)) / 10_000

	depth1 := c.depthImpact(leg1)
	depth2 := c.depthImpact(leg2)
	depthImpact := depth1 + depth2

	totalCost := networkFees + tradingFees + depthImpact
	grossProfit := int64(finalOut) - int64(initialIn)
	netProfit := grossProfit - int64(totalCost)

	return Breakdown{
		NetworkFees: networkFees,
		TradingFees: tradingFees,
		DepthImpact: depthImpact,
		TotalCost:   totalCost,
		GrossProfit: grossProfit,
		NetProfit:   netProfit,
	}
}

// depthImpact computes (amount_in^2)/(reserve_a+reserve_b), scaled by the
// configured coefficient, as a first-order price-impact proxy.
func (c *CostModel) depthImpact(leg LegInputs) uint64 {
	sum := leg.ReserveA + leg.ReserveB
	if sum == 0 {
		return 0
	}
	proxy := uint128.From64(leg.AmountIn).Mul64(leg.AmountIn).Div64(sum).Lo
	scaled := math.LegacyNewDec(int64(proxy)).Mul(c.DepthImpactCoefficient)
	return scaled.TruncateInt().Uint64()
}

// Accept reports whether netProfit clears the configured minimum profit
// filter.
func (c *CostModel) Accept(netProfit int64) bool {
	return netProfit >= c.MinProfitThreshold
}
