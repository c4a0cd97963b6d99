package core_test

import (
	"context"
	"errors"
	"testing"

	core "dexarb/core"
)

type plannerFakeClient struct {
	existing map[core.PoolAddress]bool
}

func (f *plannerFakeClient) GetAccount(ctx context.Context, addr core.PoolAddress) (core.Account, error) {
	return core.Account{}, errors.New("not implemented")
}
func (f *plannerFakeClient) GetTokenAccountBalance(ctx context.Context, addr core.PoolAddress) (uint64, error) {
	return 0, errors.New("not implemented")
}
func (f *plannerFakeClient) GetTokenSupply(ctx context.Context, mint core.TokenId) (uint64, error) {
	return 0, nil
}
func (f *plannerFakeClient) GetRecentBlockId(ctx context.Context) (core.BlockId, error) {
	return core.BlockId{}, nil
}
func (f *plannerFakeClient) SubmitSigned(ctx context.Context, tx core.SignedTransaction) (core.Signature, error) {
	return core.Signature{}, nil
}
func (f *plannerFakeClient) AccountExists(ctx context.Context, addr core.PoolAddress) (bool, error) {
	return f.existing[addr], nil
}

func sampleOpportunity() core.Opportunity {
	mintX := core.TokenId{0x01}
	mintY := core.TokenId{0x02}
	poolA := core.PoolAddress{0xA1}
	poolB := core.PoolAddress{0xB2}
	progA := core.ProgramId{0x11}
	progB := core.ProgramId{0x12}

	return core.Opportunity{
		Id:         "test",
		SharedMint: mintY,
		NotionalIn: 1_000_000,
		PoolA: core.PoolState{
			Address:     poolA,
			ProgramId:   progA,
			Kind:        core.ConstantProductA,
			TokenAMint:  mintX,
			TokenBMint:  mintY,
			TokenAVault: core.PoolAddress{0xA3},
			TokenBVault: core.PoolAddress{0xA4},
		},
		PoolB: core.PoolState{
			Address:     poolB,
			ProgramId:   progB,
			Kind:        core.ConstantProductB,
			TokenAMint:  mintY,
			TokenBMint:  mintX,
			TokenAVault: core.PoolAddress{0xB3},
			TokenBVault: core.PoolAddress{0xB4},
			LPMint:      core.TokenId{0xB5},
		},
		Hops: []core.SwapLeg{
			{Pool: poolA, ProgramId: progA, Kind: core.ConstantProductA, InputMint: mintX, OutputMint: mintY, AmountIn: 1_000_000, MinAmountOut: 990_000},
			{Pool: poolB, ProgramId: progB, Kind: core.ConstantProductB, InputMint: mintY, OutputMint: mintX, AmountIn: 990_000, MinAmountOut: 980_000},
		},
	}
}

// Property 8 — every ATA a hop's mints need is either pre-existing or
// created by a preparatory instruction earlier in the same plan; one mint
// (the shared mint, reused by both hops) is deduplicated into a single
// preparatory instruction rather than two.
func TestPlanner_EveryAccountPreexistingOrCreatedEarlier(t *testing.T) {
	opp := sampleOpportunity()
	wallet := core.WalletAddress{0xFF}

	existingMint := opp.Hops[0].InputMint // pre-populate one ATA as already existing
	existingATA, err := core.DeriveATA(wallet, existingMint, core.SPLTokenProgramId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client := &plannerFakeClient{existing: map[core.PoolAddress]bool{existingATA: true}}
	planner := core.NewExecutionPlanner(client, core.SPLTokenProgramId)

	plan, err := planner.Plan(context.Background(), wallet, opp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created := make(map[core.PoolAddress]bool)
	for _, instr := range plan.Preparatory {
		created[instr.Accounts[1].Address] = true // account[1] is the ATA being created
	}
	if created[existingATA] {
		t.Fatal("expected no preparatory instruction for the pre-existing ATA")
	}

	mints := map[core.TokenId]bool{opp.SharedMint: true}
	for _, h := range opp.Hops {
		mints[h.InputMint] = true
		mints[h.OutputMint] = true
	}
	for mint := range mints {
		ata, err := core.DeriveATA(wallet, mint, core.SPLTokenProgramId)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ata == existingATA {
			continue
		}
		if !created[ata] {
			t.Fatalf("mint %s's ATA %s is neither pre-existing nor created in the plan", mint, ata)
		}
	}

	// The shared mint's ATA must appear exactly once across preparatory
	// instructions even though both hops reference it.
	sharedATA, err := core.DeriveATA(wallet, opp.SharedMint, core.SPLTokenProgramId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count := 0
	for _, instr := range plan.Preparatory {
		if instr.Accounts[1].Address == sharedATA {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 preparatory instruction for the shared mint's ATA, got %d", count)
	}
}

func TestPlanner_SkipsCreateWhenATAAlreadyExists(t *testing.T) {
	opp := sampleOpportunity()
	wallet := core.WalletAddress{0xFF}

	ata, err := core.DeriveATA(wallet, opp.SharedMint, core.SPLTokenProgramId)
	if err != nil {
		t.Fatalf("unexpected error deriving ATA: %v", err)
	}
	client := &plannerFakeClient{existing: map[core.PoolAddress]bool{ata: true}}
	planner := core.NewExecutionPlanner(client, core.SPLTokenProgramId)

	plan, err := planner.Plan(context.Background(), wallet, opp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, instr := range plan.Preparatory {
		if instr.Accounts[1].Address == ata {
			t.Fatal("expected no preparatory instruction for an already-existing ATA")
		}
	}
}

func TestPlanner_ConcentratedLiquidityUnsupported(t *testing.T) {
	wallet := core.WalletAddress{0xFF}
	hop := core.SwapLeg{Pool: core.PoolAddress{0x01}, Kind: core.ConcentratedLiquidity}
	_, err := core.BuildSwapInstructionForKind(wallet, core.ConcentratedLiquidity, hop, core.PoolState{}, core.SPLTokenProgramId)
	var pe *core.PlannerError
	if !errors.As(err, &pe) || pe.Kind != core.PlannerUnsupported {
		t.Fatalf("expected PlannerUnsupported, got %v", err)
	}
}

func TestPlanner_OrderBookUnsupported(t *testing.T) {
	wallet := core.WalletAddress{0xFF}
	hop := core.SwapLeg{Pool: core.PoolAddress{0x01}, Kind: core.OrderBook}
	_, err := core.BuildSwapInstructionForKind(wallet, core.OrderBook, hop, core.PoolState{}, core.SPLTokenProgramId)
	var pe *core.PlannerError
	if !errors.As(err, &pe) || pe.Kind != core.PlannerUnsupported {
		t.Fatalf("expected PlannerUnsupported, got %v", err)
	}
}

// Property: a ConstantProductA hop's instruction carries the full
// [token_program, pool, authority_pda, user_in_ata, user_out_ata,
// pool_vault_a, pool_vault_b, user_signer] account list, with the user's
// ATAs and the pool's own vaults actually referenced (not just the
// preparatory create-ATA instructions).
func TestPlanner_ConstantProductASwapAccountList(t *testing.T) {
	opp := sampleOpportunity()
	wallet := core.WalletAddress{0xFF}
	hop := opp.Hops[0]

	instr, err := core.BuildSwapInstructionForKind(wallet, hop.Kind, hop, opp.PoolA, core.SPLTokenProgramId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instr.Accounts) != 8 {
		t.Fatalf("expected 8 accounts, got %d", len(instr.Accounts))
	}
	if instr.Accounts[0].Address != core.PoolAddress(core.SPLTokenProgramId) {
		t.Fatalf("account 0 should be token_program, got %v", instr.Accounts[0].Address)
	}
	if instr.Accounts[1].Address != hop.Pool {
		t.Fatalf("account 1 should be the pool, got %v", instr.Accounts[1].Address)
	}
	userIn, err := core.DeriveATA(wallet, hop.InputMint, core.SPLTokenProgramId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	userOut, err := core.DeriveATA(wallet, hop.OutputMint, core.SPLTokenProgramId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if instr.Accounts[3].Address != userIn {
		t.Fatalf("account 3 should be user_in_ata %v, got %v", userIn, instr.Accounts[3].Address)
	}
	if instr.Accounts[4].Address != userOut {
		t.Fatalf("account 4 should be user_out_ata %v, got %v", userOut, instr.Accounts[4].Address)
	}
	if instr.Accounts[5].Address != opp.PoolA.TokenAVault {
		t.Fatalf("account 5 should be pool_vault_a %v, got %v", opp.PoolA.TokenAVault, instr.Accounts[5].Address)
	}
	if instr.Accounts[6].Address != opp.PoolA.TokenBVault {
		t.Fatalf("account 6 should be pool_vault_b %v, got %v", opp.PoolA.TokenBVault, instr.Accounts[6].Address)
	}
	if instr.Accounts[7].Address != core.PoolAddress(wallet) || !instr.Accounts[7].IsSigner {
		t.Fatalf("account 7 should be the signing user_signer, got %+v", instr.Accounts[7])
	}
	if len(instr.Data) != 17 || instr.Data[0] != 9 {
		t.Fatalf("expected 17-byte payload with discriminator 9, got %v", instr.Data)
	}
}

// Property: a ConstantProductB hop's instruction carries the full
// [token_program, pool, user_signer, user_in_ata, user_out_ata,
// pool_vault_a, pool_vault_b, lp_mint] account list and a 17-byte payload
// with discriminator 1.
func TestPlanner_ConstantProductBSwapAccountList(t *testing.T) {
	opp := sampleOpportunity()
	wallet := core.WalletAddress{0xFF}
	hop := opp.Hops[1]

	instr, err := core.BuildSwapInstructionForKind(wallet, hop.Kind, hop, opp.PoolB, core.SPLTokenProgramId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instr.Accounts) != 8 {
		t.Fatalf("expected 8 accounts, got %d", len(instr.Accounts))
	}
	if instr.Accounts[0].Address != core.PoolAddress(core.SPLTokenProgramId) {
		t.Fatalf("account 0 should be token_program, got %v", instr.Accounts[0].Address)
	}
	if instr.Accounts[1].Address != hop.Pool {
		t.Fatalf("account 1 should be the pool, got %v", instr.Accounts[1].Address)
	}
	if instr.Accounts[2].Address != core.PoolAddress(wallet) || !instr.Accounts[2].IsSigner {
		t.Fatalf("account 2 should be the signing user_signer, got %+v", instr.Accounts[2])
	}
	userIn, err := core.DeriveATA(wallet, hop.InputMint, core.SPLTokenProgramId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	userOut, err := core.DeriveATA(wallet, hop.OutputMint, core.SPLTokenProgramId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if instr.Accounts[3].Address != userIn {
		t.Fatalf("account 3 should be user_in_ata %v, got %v", userIn, instr.Accounts[3].Address)
	}
	if instr.Accounts[4].Address != userOut {
		t.Fatalf("account 4 should be user_out_ata %v, got %v", userOut, instr.Accounts[4].Address)
	}
	if instr.Accounts[5].Address != opp.PoolB.TokenAVault {
		t.Fatalf("account 5 should be pool_vault_a %v, got %v", opp.PoolB.TokenAVault, instr.Accounts[5].Address)
	}
	if instr.Accounts[6].Address != opp.PoolB.TokenBVault {
		t.Fatalf("account 6 should be pool_vault_b %v, got %v", opp.PoolB.TokenBVault, instr.Accounts[6].Address)
	}
	if instr.Accounts[7].Address != core.PoolAddress(opp.PoolB.LPMint) {
		t.Fatalf("account 7 should be lp_mint %v, got %v", opp.PoolB.LPMint, instr.Accounts[7].Address)
	}
	if len(instr.Data) != 17 || instr.Data[0] != 1 {
		t.Fatalf("expected 17-byte payload with discriminator 1, got %v", instr.Data)
	}
}

func TestPlanner_DeriveATADeterministic(t *testing.T) {
	wallet := core.WalletAddress{0x01}
	mint := core.TokenId{0x02}
	a1, err1 := core.DeriveATA(wallet, mint, core.SPLTokenProgramId)
	a2, err2 := core.DeriveATA(wallet, mint, core.SPLTokenProgramId)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected error: %v / %v", err1, err2)
	}
	if a1 != a2 {
		t.Fatalf("expected deterministic ATA derivation, got %s vs %s", a1, a2)
	}
}
