package core

import "context"

// Account is the raw on-chain account envelope returned by ChainClient. Only
// the fields the codec and catalogue need are modeled; anything
// protocol-specific (rent epoch, executable flag, ...) is the concrete
// client's concern.
type Account struct {
	Owner    ProgramId
	Data     []byte
	Lamports uint64
}

// BlockId is an opaque recent-block identifier used to bound transaction
// validity (a Solana "recent blockhash", or the equivalent for another
// chain family behind a different ChainClient implementation).
type BlockId [32]byte

// Signature identifies a submitted transaction.
type Signature [64]byte

// ChainClient is the capability the core depends on for every piece of
// on-chain read/write access. It is intentionally the only place the core
// touches the network; see internal/solanarpc for the concrete
// implementation used by cmd/arbitraged. Every method is asynchronous via
// ctx and none are assumed idempotent on the write path.
type ChainClient interface {
	GetAccount(ctx context.Context, addr PoolAddress) (Account, error)
	// GetTokenAccountBalance reads the 8-byte little-endian amount field at
	// byte offset 64 of a standard token account (data length >= 165).
	GetTokenAccountBalance(ctx context.Context, addr PoolAddress) (uint64, error)
	GetTokenSupply(ctx context.Context, mint TokenId) (uint64, error)
	GetRecentBlockId(ctx context.Context) (BlockId, error)
	SubmitSigned(ctx context.Context, tx SignedTransaction) (Signature, error)
	AccountExists(ctx context.Context, addr PoolAddress) (bool, error)
}

// SignedTransaction is the opaque wire-ready payload produced by Signer from
// a Plan. The core never inspects its contents; it only carries it from the
// planner to ChainClient.SubmitSigned.
type SignedTransaction struct {
	Raw []byte
}

// Instruction is one protocol call within a Plan: an ordered account list
// plus an opaque data payload, enough for a Signer to build and sign a
// transaction without the core needing to know transaction wire format.
type Instruction struct {
	ProgramId ProgramId
	Accounts  []AccountMeta
	Data      []byte
}

// AccountMeta describes one account reference within an Instruction.
type AccountMeta struct {
	Address    PoolAddress
	IsSigner   bool
	IsWritable bool
}

// Plan is the ordered instruction batch ExecutionPlanner produces for a
// chosen Opportunity: preparatory instructions (e.g. create-ATA) followed by
// the swap hops, in the exact order they must execute on-chain.
type Plan struct {
	Preparatory []Instruction
	Hops        []Instruction
}

// Signer is the capability that turns a Plan plus a recent block id into a
// SignedTransaction using a locally held wallet key. Kept abstract for the
// same reason as ChainClient: the core never needs to see key material.
type Signer interface {
	Wallet() WalletAddress
	Sign(ctx context.Context, plan Plan, recent BlockId) (SignedTransaction, error)
}
