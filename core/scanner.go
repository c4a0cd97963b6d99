package core

import (
	"fmt"
	"sort"
)

// ProbeLadder is the ascending sequence of notional input amounts the
// scanner tries for every pair/direction (the "probe ladder").
// Each rung is independent; the scanner retains only the best rung per
// (pair, direction).
type ProbeLadder []uint64

// DefaultProbeLadder builds a representative ladder, scaled off a base
// unit; real deployments size this from pkg/config per asset decimals.
func DefaultProbeLadder(baseUnits uint64) ProbeLadder {
	return ProbeLadder{baseUnits, baseUnits * 5, baseUnits * 25, baseUnits * 100}
}

// OpportunityScanner enumerates every pair of catalogued pools that share a
// mint, probes both directions across the notional ladder using QuoteEngine
// and CostModel, and returns the ranked, deduplicated set of profitable
// opportunities.
type OpportunityScanner struct {
	quotes *QuoteEngine
	cost   *CostModel
	ladder ProbeLadder
}

// NewOpportunityScanner builds a scanner from its two collaborators and a
// probe ladder.
func NewOpportunityScanner(quotes *QuoteEngine, cost *CostModel, ladder ProbeLadder) *OpportunityScanner {
	return &OpportunityScanner{quotes: quotes, cost: cost, ladder: ladder}
}

// Scan enumerates every pair of pools in snapshot that share a mint and
// returns the accepted opportunities sorted by descending ProfitBps, with
// ties broken by descending NetProfit and then by ascending Id for full
// determinism.
func (s *OpportunityScanner) Scan(snapshot map[PoolAddress]PoolState) []Opportunity {
	addrs := make([]PoolAddress, 0, len(snapshot))
	for addr := range snapshot {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].String() < addrs[j].String() })

	var found []Opportunity
	for i := 0; i < len(addrs); i++ {
		for j := i + 1; j < len(addrs); j++ {
			poolA := snapshot[addrs[i]]
			poolB := snapshot[addrs[j]]
			shared, ok := sharedMint(poolA, poolB)
			if !ok {
				continue
			}
			found = append(found, s.bestForPair(poolA, poolB, shared)...)
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].ProfitBps != found[j].ProfitBps {
			return found[i].ProfitBps > found[j].ProfitBps
		}
		if found[i].NetProfit != found[j].NetProfit {
			return found[i].NetProfit > found[j].NetProfit
		}
		return found[i].Id < found[j].Id
	})
	return found
}

// sharedMint returns the single mint present in both pools. Pools sharing
// both mints (parallel venues for the same pair) use TokenAMint as the
// pivot deterministically; either choice of leg ordering is probed by
// bestForPair regardless.
func sharedMint(a, b PoolState) (TokenId, bool) {
	switch a.TokenAMint {
	case b.TokenAMint, b.TokenBMint:
		return a.TokenAMint, true
	}
	switch a.TokenBMint {
	case b.TokenAMint, b.TokenBMint:
		return a.TokenBMint, true
	}
	return TokenId{}, false
}

// bestForPair probes both directions (A->shared->B and B->shared->A) across
// the full notional ladder and returns the best accepted opportunity for
// each direction, so at most one per direction.
func (s *OpportunityScanner) bestForPair(poolA, poolB PoolState, shared TokenId) []Opportunity {
	var out []Opportunity

	tryDirection := func(first, second PoolState) {
		var best Opportunity
		haveBest := false
		startMint := otherMint(first, shared)
		for _, notional := range s.ladder {
			opp, ok := s.probe(first, second, startMint, shared, notional)
			if !ok {
				continue
			}
			if !haveBest || opp.ProfitBps > best.ProfitBps {
				best = opp
				haveBest = true
			}
		}
		if haveBest {
			out = append(out, best)
		}
	}
	tryDirection(poolA, poolB)
	tryDirection(poolB, poolA)

	return out
}

// otherMint returns whichever of pool's two mints is not shared.
func otherMint(pool PoolState, shared TokenId) TokenId {
	if pool.TokenAMint == shared {
		return pool.TokenBMint
	}
	return pool.TokenAMint
}

// probe evaluates a single (direction, notional) rung: quote leg1 through
// first (startMint -> shared), quote leg2 through second (shared ->
// startMint), cost the round trip, and accept only if CostModel.Accept
// clears the configured minimum profit.
func (s *OpportunityScanner) probe(first, second PoolState, startMint, shared TokenId, notional uint64) (Opportunity, bool) {
	if otherMint(second, shared) != startMint {
		return Opportunity{}, false
	}
	mid, err := s.quotes.Quote(first, notional, startMint)
	if err != nil || mid == 0 {
		return Opportunity{}, false
	}
	final, err := s.quotes.Quote(second, mid, shared)
	if err != nil || final == 0 {
		return Opportunity{}, false
	}

	leg1 := LegInputs{AmountIn: notional, FeeBps: first.FeeBps, ReserveA: first.ReserveA, ReserveB: first.ReserveB}
	leg2 := LegInputs{AmountIn: mid, FeeBps: second.FeeBps, ReserveA: second.ReserveA, ReserveB: second.ReserveB}
	breakdown := s.cost.Evaluate(leg1, leg2, notional, final)
	if !s.cost.Accept(breakdown.NetProfit) {
		return Opportunity{}, false
	}

	profitBps := int32(breakdown.NetProfit * 10_000 / int64(notional))

	id := fmt.Sprintf("%s:%s:%s:%d", first.Address, second.Address, startMint, notional)
	hops := []SwapLeg{
		{Pool: first.Address, ProgramId: first.ProgramId, Kind: first.Kind, InputMint: startMint, OutputMint: shared, AmountIn: notional, MinAmountOut: mid * 99 / 100},
		{Pool: second.Address, ProgramId: second.ProgramId, Kind: second.Kind, InputMint: shared, OutputMint: startMint, AmountIn: mid, MinAmountOut: final * 99 / 100},
	}

	return Opportunity{
		Id:           id,
		PoolA:        first,
		PoolB:        second,
		SharedMint:   shared,
		NotionalIn:   notional,
		EstimatedOut: final,
		NetProfit:    breakdown.NetProfit,
		ProfitBps:    profitBps,
		Hops:         hops,
	}, true
}
