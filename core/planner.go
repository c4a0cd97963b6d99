package core

import (
	"context"
	"encoding/binary"

	solana "github.com/gagliardetto/solana-go"
)

// SPLTokenProgramId is the well-known SPL Token program; AssociatedTokenProgramId
// is the well-known SPL Associated Token Account program. Both are constants
// of the chain, not configuration.
var (
	SPLTokenProgramId        = ProgramId(solana.TokenProgramID)
	AssociatedTokenProgramId = ProgramId(solana.SPLAssociatedTokenAccountProgramID)
)

// DeriveATA computes a wallet's associated token account address for mint,
// using tokenProgram as the owning token program (support for both the
// original SPL Token program and newer token-extension programs). This is a
// pure function of its three inputs: no network access, no ChainClient.
func DeriveATA(wallet WalletAddress, mint TokenId, tokenProgram ProgramId) (PoolAddress, error) {
	seeds := [][]byte{
		wallet[:],
		tokenProgram[:],
		mint[:],
	}
	addr, _, err := solana.FindProgramAddress(seeds, solana.PublicKey(AssociatedTokenProgramId))
	if err != nil {
		return PoolAddress{}, err
	}
	return PoolAddress(addr), nil
}

// derivePoolAuthorityPDA computes the program-derived signing authority a
// pool's vaults are owned by, seeded on the pool's own address. Like
// DeriveATA this is a pure function: no network access, no ChainClient.
func derivePoolAuthorityPDA(pool PoolAddress, programId ProgramId) (PoolAddress, error) {
	seeds := [][]byte{
		pool[:],
		[]byte("authority"),
	}
	addr, _, err := solana.FindProgramAddress(seeds, solana.PublicKey(programId))
	if err != nil {
		return PoolAddress{}, err
	}
	return PoolAddress(addr), nil
}

// ExecutionPlanner turns a ranked Opportunity into an ordered Plan of
// on-chain instructions: any missing associated token accounts first, then
// the swap hops in order.
type ExecutionPlanner struct {
	client       ChainClient
	tokenProgram ProgramId
}

// NewExecutionPlanner builds a planner bound to a ChainClient (for the
// account_exists precheck) and the token program id ATAs are derived
// against.
func NewExecutionPlanner(client ChainClient, tokenProgram ProgramId) *ExecutionPlanner {
	return &ExecutionPlanner{client: client, tokenProgram: tokenProgram}
}

// Plan builds the full instruction batch for opp, executed by wallet. Every
// account referenced by a later hop either already exists or was created by
// a preparatory instruction earlier in the same batch — accounts derived
// for mints first appearing later in Hops are still derived and precheck
// up front, preserving that invariant regardless of hop order.
func (p *ExecutionPlanner) Plan(ctx context.Context, wallet WalletAddress, opp Opportunity) (Plan, error) {
	plan := Plan{}
	seenATAs := make(map[PoolAddress]bool)

	mintsNeeded := make([]TokenId, 0, 4)
	mintsNeeded = append(mintsNeeded, opp.SharedMint)
	for _, h := range opp.Hops {
		mintsNeeded = append(mintsNeeded, h.InputMint, h.OutputMint)
	}

	for _, mint := range mintsNeeded {
		ata, err := DeriveATA(wallet, mint, p.tokenProgram)
		if err != nil {
			return Plan{}, err
		}
		if seenATAs[ata] {
			continue
		}
		seenATAs[ata] = true

		exists, err := p.client.AccountExists(ctx, ata)
		if err != nil {
			return Plan{}, &ClientError{Op: "AccountExists", Err: err}
		}
		if !exists {
			plan.Preparatory = append(plan.Preparatory, buildCreateATAInstruction(wallet, ata, mint, p.tokenProgram))
		}
	}

	for _, hop := range opp.Hops {
		pool := opp.PoolA
		if hop.Pool == opp.PoolB.Address {
			pool = opp.PoolB
		}
		instr, err := BuildSwapInstructionForKind(wallet, hop.Kind, hop, pool, p.tokenProgram)
		if err != nil {
			return Plan{}, err
		}
		plan.Hops = append(plan.Hops, instr)
	}

	return plan, nil
}

// buildCreateATAInstruction builds the SPL Associated Token Account
// program's single instruction: CreateIdempotent, discriminator byte 1.
func buildCreateATAInstruction(wallet WalletAddress, ata PoolAddress, mint TokenId, tokenProgram ProgramId) Instruction {
	return Instruction{
		ProgramId: AssociatedTokenProgramId,
		Accounts: []AccountMeta{
			{Address: PoolAddress(wallet), IsSigner: true, IsWritable: true},
			{Address: ata, IsSigner: false, IsWritable: true},
			{Address: PoolAddress(wallet), IsSigner: false, IsWritable: false},
			{Address: PoolAddress(mint), IsSigner: false, IsWritable: false},
			{Address: PoolAddress{}, IsSigner: false, IsWritable: false}, // system program
			{Address: PoolAddress(tokenProgram), IsSigner: false, IsWritable: false},
		},
		Data: []byte{1}, // CreateIdempotent
	}
}

// BuildSwapInstructionForKind builds one hop's instruction for a known pool
// kind. pool supplies the vault and LP-mint accounts the hop's own
// PoolState carries; tokenProgram is the SPL token program the hop's user
// ATAs and the instruction's token_program account are derived against.
// ExecutionPlanner.Plan calls it with each hop's SwapLeg.Kind, so the kind
// is never re-derived from the opaque ProgramId on SwapLeg; it is exported
// so a single hop's instruction can also be built without a full Plan.
func BuildSwapInstructionForKind(wallet WalletAddress, kind PoolKind, hop SwapLeg, pool PoolState, tokenProgram ProgramId) (Instruction, error) {
	switch kind {
	case ConstantProductA:
		return buildConstantProductASwap(wallet, hop, pool, tokenProgram)
	case ConstantProductB:
		return buildConstantProductBSwap(wallet, hop, pool, tokenProgram)
	case ConcentratedLiquidity, OrderBook:
		return Instruction{}, errPlannerUnsupported(kind)
	default:
		return Instruction{}, errPlannerUnsupported(kind)
	}
}

// constantProductASwapDiscriminator is the single-byte instruction tag for
// a ConstantProductA swap.
const constantProductASwapDiscriminator = 9

// buildConstantProductASwap builds the account list
// [token_program, pool, authority_pda, user_in_ata, user_out_ata,
// pool_vault_a, pool_vault_b, user_signer].
func buildConstantProductASwap(wallet WalletAddress, hop SwapLeg, pool PoolState, tokenProgram ProgramId) (Instruction, error) {
	userIn, err := DeriveATA(wallet, hop.InputMint, tokenProgram)
	if err != nil {
		return Instruction{}, err
	}
	userOut, err := DeriveATA(wallet, hop.OutputMint, tokenProgram)
	if err != nil {
		return Instruction{}, err
	}
	authority, err := derivePoolAuthorityPDA(hop.Pool, hop.ProgramId)
	if err != nil {
		return Instruction{}, err
	}

	data := make([]byte, 1+8+8)
	data[0] = constantProductASwapDiscriminator
	binary.LittleEndian.PutUint64(data[1:9], hop.AmountIn)
	binary.LittleEndian.PutUint64(data[9:17], hop.MinAmountOut)
	return Instruction{
		ProgramId: hop.ProgramId,
		Accounts: []AccountMeta{
			{Address: PoolAddress(tokenProgram), IsSigner: false, IsWritable: false},
			{Address: hop.Pool, IsSigner: false, IsWritable: true},
			{Address: authority, IsSigner: false, IsWritable: false},
			{Address: userIn, IsSigner: false, IsWritable: true},
			{Address: userOut, IsSigner: false, IsWritable: true},
			{Address: pool.TokenAVault, IsSigner: false, IsWritable: true},
			{Address: pool.TokenBVault, IsSigner: false, IsWritable: true},
			{Address: PoolAddress(wallet), IsSigner: true, IsWritable: false},
		},
		Data: data,
	}, nil
}

// constantProductBSwapDiscriminator is the single-byte instruction tag for
// a ConstantProductB swap.
const constantProductBSwapDiscriminator = 1

// buildConstantProductBSwap builds the account list
// [token_program, pool, user_signer, user_in_ata, user_out_ata,
// pool_vault_a, pool_vault_b, lp_mint].
func buildConstantProductBSwap(wallet WalletAddress, hop SwapLeg, pool PoolState, tokenProgram ProgramId) (Instruction, error) {
	userIn, err := DeriveATA(wallet, hop.InputMint, tokenProgram)
	if err != nil {
		return Instruction{}, err
	}
	userOut, err := DeriveATA(wallet, hop.OutputMint, tokenProgram)
	if err != nil {
		return Instruction{}, err
	}

	data := make([]byte, 1+8+8)
	data[0] = constantProductBSwapDiscriminator
	binary.LittleEndian.PutUint64(data[1:9], hop.AmountIn)
	binary.LittleEndian.PutUint64(data[9:17], hop.MinAmountOut)
	return Instruction{
		ProgramId: hop.ProgramId,
		Accounts: []AccountMeta{
			{Address: PoolAddress(tokenProgram), IsSigner: false, IsWritable: false},
			{Address: hop.Pool, IsSigner: false, IsWritable: true},
			{Address: PoolAddress(wallet), IsSigner: true, IsWritable: false},
			{Address: userIn, IsSigner: false, IsWritable: true},
			{Address: userOut, IsSigner: false, IsWritable: true},
			{Address: pool.TokenAVault, IsSigner: false, IsWritable: true},
			{Address: pool.TokenBVault, IsSigner: false, IsWritable: true},
			{Address: PoolAddress(pool.LPMint), IsSigner: false, IsWritable: false},
		},
		Data: data,
	}, nil
}
