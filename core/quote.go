package core

import (
	"fmt"

	"lukechampine.com/uint128"
)

// QuoteError reports why a quote could not be computed for a given pool and
// input token.
type QuoteError struct {
	Kind QuoteErrorKind
}

type QuoteErrorKind uint8

const (
	QuoteTokenNotInPool QuoteErrorKind = iota
	QuoteDrainedPool
)

func (e *QuoteError) Error() string {
	switch e.Kind {
	case QuoteTokenNotInPool:
		return "quote: input mint not in pool"
	case QuoteDrainedPool:
		return "quote: pool reserve is zero"
	default:
		return "quote: unknown error"
	}
}

var (
	errTokenNotInPool = &QuoteError{Kind: QuoteTokenNotInPool}
	errDrainedPool    = &QuoteError{Kind: QuoteDrainedPool}
)

// SlippageFactor is a per-venue empirical reduction applied after the
// constant-product output, expressed as Num/Den (e.g. 995/1000).
type SlippageFactor struct {
	Num uint64
	Den uint64
}

// defaultSlippageFactors holds the per-venue slippage defaults.
func defaultSlippageFactors() map[PoolKind]SlippageFactor {
	return map[PoolKind]SlippageFactor{
		ConstantProductA:      {Num: 995, Den: 1000},
		ConstantProductB:      {Num: 990, Den: 1000},
		ConcentratedLiquidity: {Num: 998, Den: 1000},
		OrderBook:             {Num: 992, Den: 1000},
	}
}

// QuoteEngine computes constant-product swap output net of protocol fee and
// venue slippage. All arithmetic is deterministic: identical inputs and pool
// state always yield a bit-identical output.
type QuoteEngine struct {
	slippage map[PoolKind]SlippageFactor
}

// NewQuoteEngine builds a QuoteEngine. overrides may supply a subset of
// PoolKind factors; any kind left unset falls back to the package default.
func NewQuoteEngine(overrides map[PoolKind]SlippageFactor) *QuoteEngine {
	factors := defaultSlippageFactors()
	for k, v := range overrides {
		factors[k] = v
	}
	return &QuoteEngine{slippage: factors}
}

// Quote computes the expected output amount for swapping amountIn of
// inputMint through pool, after the pool's protocol fee and this pool
// kind's venue slippage factor.
func (q *QuoteEngine) Quote(pool PoolState, amountIn uint64, inputMint TokenId) (uint64, error) {
	var reserveIn, reserveOut uint64
	switch inputMint {
	case pool.TokenAMint:
		reserveIn, reserveOut = pool.ReserveA, pool.ReserveB
	case pool.TokenBMint:
		reserveIn, reserveOut = pool.ReserveB, pool.ReserveA
	default:
		return 0, errTokenNotInPool
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, errDrainedPool
	}

	amountInNet := amountIn * uint64(10_000-pool.FeeBps) / 10_000

	denom := reserveIn + amountInNet
	k := uint128.From64(reserveIn).Mul64(reserveOut)
	quotient := k.Div64(denom)
	if quotient.Cmp64(reserveOut) > 0 {
		// Only reachable when reserveIn+amountInNet wraps around uint64:
		// treated as no output.
		return 0, nil
	}
	amountOutPre := reserveOut - quotient.Lo

	factor, ok := q.slippage[pool.Kind]
	if !ok {
		return 0, fmt.Errorf("quote: no slippage factor configured for %s", pool.Kind)
	}
	finalOut := uint128.From64(amountOutPre).Mul64(factor.Num).Div64(factor.Den).Lo
	return finalOut, nil
}
