// Package core implements the cross-venue AMM arbitrage engine: pool
// discovery and reconciliation, binary account decoding, opportunity
// analysis, and execution planning. Wallet signing, RPC transport, and
// telemetry sinks are deliberately kept outside this package behind the
// ChainClient and Signer capability interfaces.
package core

import (
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// Pubkey is the common 32-byte opaque blockchain address shape shared by
// tokens, pools, programs, and wallets. TokenId, PoolAddress, and ProgramId
// are distinct defined types over it so the compiler catches a token mint
// accidentally passed where a pool address is expected, even though on the
// wire they are identical.
type Pubkey [32]byte

// String renders the address in base58, the canonical encoding for this
// chain family (the same one every Solana account key, mint, and program id
// uses on explorers and in RPC responses).
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero reports whether p is the all-zero sentinel address.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// ParsePubkey decodes a base58 address string into a Pubkey, the inverse of
// String. Used at process startup to turn configuration (program ids,
// fallback pool addresses) into the typed addresses core works with.
func ParsePubkey(s string) (Pubkey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("parse pubkey %q: %w", s, err)
	}
	if len(raw) != 32 {
		return Pubkey{}, fmt.Errorf("parse pubkey %q: decoded length %d, want 32", s, len(raw))
	}
	var p Pubkey
	copy(p[:], raw)
	return p, nil
}

// ParsePoolKind maps a PoolKind's String() name back to its value, used to
// decode the program_kinds configuration table.
func ParsePoolKind(name string) (PoolKind, error) {
	switch name {
	case "ConstantProductA":
		return ConstantProductA, nil
	case "ConstantProductB":
		return ConstantProductB, nil
	case "ConcentratedLiquidity":
		return ConcentratedLiquidity, nil
	case "OrderBook":
		return OrderBook, nil
	default:
		return 0, fmt.Errorf("unknown pool kind %q", name)
	}
}

// TokenId identifies a token mint.
type TokenId Pubkey

func (t TokenId) String() string { return Pubkey(t).String() }
func (t TokenId) IsZero() bool   { return Pubkey(t).IsZero() }

// MarshalText renders the base58 form, so JSON output (and JSON map keys)
// carry the address string rather than a 32-number array.
func (t TokenId) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// PoolAddress identifies a pool account (or, for ATA derivation, any
// program-derived account).
type PoolAddress Pubkey

func (p PoolAddress) String() string { return Pubkey(p).String() }
func (p PoolAddress) IsZero() bool   { return Pubkey(p).IsZero() }

func (p PoolAddress) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// ProgramId identifies the on-chain program that owns an account.
type ProgramId Pubkey

func (p ProgramId) String() string { return Pubkey(p).String() }
func (p ProgramId) IsZero() bool   { return Pubkey(p).IsZero() }

func (p ProgramId) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// WalletAddress identifies the signer submitting transactions.
type WalletAddress Pubkey

func (w WalletAddress) String() string { return Pubkey(w).String() }

// PoolKind is the closed set of AMM families the codec understands.
type PoolKind uint8

const (
	ConstantProductA PoolKind = iota + 1
	ConstantProductB
	ConcentratedLiquidity
	OrderBook
)

func (k PoolKind) String() string {
	switch k {
	case ConstantProductA:
		return "ConstantProductA"
	case ConstantProductB:
		return "ConstantProductB"
	case ConcentratedLiquidity:
		return "ConcentratedLiquidity"
	case OrderBook:
		return "OrderBook"
	default:
		return fmt.Sprintf("PoolKind(%d)", uint8(k))
	}
}

// MinLiquidity is the default per-side reserve floor (spec's
// min_pool_liquidity_reserve) below which a pool is excluded from the
// catalogue. Overridable via config.
const MinLiquidity uint64 = 1000

// PoolState is the uniform, protocol-agnostic view of a liquidity pool
// produced by PoolCodec and held by PoolCatalogue.
type PoolState struct {
	Address         PoolAddress
	ProgramId       ProgramId
	Kind            PoolKind
	TokenAMint      TokenId
	TokenBMint      TokenId
	TokenAVault     PoolAddress
	TokenBVault     PoolAddress
	ReserveA        uint64
	ReserveB        uint64
	LPMint          TokenId // zero sentinel for ConcentratedLiquidity
	LPSupply        uint64
	FeeBps          uint16
	LastRefreshedAt time.Time
}

// Validate enforces the decoding invariants against a decoded
// PoolState. minLiquidity lets callers apply a configured floor instead of
// the package default.
func (p *PoolState) Validate(minLiquidity uint64) error {
	if p.TokenAMint == p.TokenBMint {
		return fmt.Errorf("pool %s: token_a_mint equals token_b_mint", p.Address)
	}
	if p.TokenAMint.IsZero() || p.TokenBMint.IsZero() {
		return fmt.Errorf("pool %s: zero mint address", p.Address)
	}
	if p.TokenAVault.IsZero() || p.TokenBVault.IsZero() {
		return fmt.Errorf("pool %s: zero vault address", p.Address)
	}
	if p.ReserveA < minLiquidity || p.ReserveB < minLiquidity {
		return fmt.Errorf("pool %s: reserves below floor %d (have %d/%d)", p.Address, minLiquidity, p.ReserveA, p.ReserveB)
	}
	if p.FeeBps > 10_000 {
		return fmt.Errorf("pool %s: fee_bps %d exceeds 10000", p.Address, p.FeeBps)
	}
	return nil
}

// SwapLeg is one hop of a planned route, fully specified down to the
// protocol-specific instruction payload.
type SwapLeg struct {
	ProgramId          ProgramId
	Pool               PoolAddress
	Kind               PoolKind
	InputMint          TokenId
	OutputMint         TokenId
	AmountIn           uint64
	MinAmountOut       uint64
	InstructionPayload []byte
}

// Opportunity is an ephemeral, ranked two-hop arbitrage candidate produced
// by OpportunityScanner and consumed by ExecutionPlanner.
type Opportunity struct {
	Id            string
	PoolA         PoolState
	PoolB         PoolState
	SharedMint    TokenId
	NotionalIn    uint64
	EstimatedOut  uint64
	NetProfit     int64
	ProfitBps     int32
	Hops          []SwapLeg
}
