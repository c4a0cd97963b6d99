package core_test

import (
	"context"
	"errors"
	"testing"

	core "dexarb/core"
)

type fakeClient struct {
	balances map[core.PoolAddress]uint64
	supplies map[core.TokenId]uint64
	failVaults map[core.PoolAddress]bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		balances:   make(map[core.PoolAddress]uint64),
		supplies:   make(map[core.TokenId]uint64),
		failVaults: make(map[core.PoolAddress]bool),
	}
}

func (f *fakeClient) GetAccount(ctx context.Context, addr core.PoolAddress) (core.Account, error) {
	return core.Account{}, errors.New("not implemented")
}

func (f *fakeClient) GetTokenAccountBalance(ctx context.Context, addr core.PoolAddress) (uint64, error) {
	if f.failVaults[addr] {
		return 0, errors.New("rpc error")
	}
	if bal, ok := f.balances[addr]; ok {
		return bal, nil
	}
	return 0, errors.New("unknown account")
}

func (f *fakeClient) GetTokenSupply(ctx context.Context, mint core.TokenId) (uint64, error) {
	return f.supplies[mint], nil
}

func (f *fakeClient) GetRecentBlockId(ctx context.Context) (core.BlockId, error) {
	return core.BlockId{}, nil
}

func (f *fakeClient) SubmitSigned(ctx context.Context, tx core.SignedTransaction) (core.Signature, error) {
	return core.Signature{}, nil
}

func (f *fakeClient) AccountExists(ctx context.Context, addr core.PoolAddress) (bool, error) {
	return false, nil
}

func pubkeyAt(b byte) core.Pubkey {
	var p core.Pubkey
	p[31] = b
	return p
}

func putPubkey(data []byte, offset int, p core.Pubkey) {
	copy(data[offset:offset+32], p[:])
}

var ownerA = core.ProgramId{0x01}

func testCodec() *core.PoolCodec {
	return core.NewPoolCodec(map[core.ProgramId]core.PoolKind{
		ownerA: core.ConstantProductA,
	})
}

// S1 — Decoder accepts a canonical ConstantProductA record.
func TestDecodeConstantProductA_Canonical(t *testing.T) {
	data := make([]byte, 752)
	data[0] = 6 // status, little-endian u64, low byte only needed
	coinVault := pubkeyAt(1)
	pcVault := pubkeyAt(2)
	coinMint := pubkeyAt(3)
	pcMint := pubkeyAt(4)
	lpMint := pubkeyAt(5)
	putPubkey(data, 232, coinVault)
	putPubkey(data, 264, pcVault)
	putPubkey(data, 296, coinMint)
	putPubkey(data, 328, pcMint)
	putPubkey(data, 360, lpMint)

	client := newFakeClient()
	client.balances[core.PoolAddress(coinVault)] = 10_000_000
	client.balances[core.PoolAddress(pcVault)] = 20_000_000

	codec := testCodec()
	addr := core.PoolAddress{0xAA}
	ps, err := codec.Decode(context.Background(), client, addr, ownerA, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ps.ReserveA != 10_000_000 || ps.ReserveB != 20_000_000 {
		t.Fatalf("unexpected reserves: %d/%d", ps.ReserveA, ps.ReserveB)
	}
	if ps.FeeBps != 25 {
		t.Fatalf("expected fee_bps 25, got %d", ps.FeeBps)
	}
	if ps.Kind != core.ConstantProductA {
		t.Fatalf("expected ConstantProductA, got %v", ps.Kind)
	}
}

// S2 — Decoder rejects a truncated record.
func TestDecodeConstantProductA_TooShort(t *testing.T) {
	data := make([]byte, 391)
	codec := testCodec()
	_, err := codec.Decode(context.Background(), newFakeClient(), core.PoolAddress{}, ownerA, data)
	var ce *core.CodecError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CodecError, got %v", err)
	}
	if ce.Actual != 391 || ce.Required != 392 {
		t.Fatalf("expected actual=391 required=392, got actual=%d required=%d", ce.Actual, ce.Required)
	}
}

// Property 1 — unknown owner -> Unsupported, regardless of data.
func TestDecode_UnknownOwnerIsUnsupported(t *testing.T) {
	codec := testCodec()
	unknown := core.ProgramId{0xFF}
	_, err := codec.Decode(context.Background(), newFakeClient(), core.PoolAddress{}, unknown, make([]byte, 1000))
	var ce *core.CodecError
	if !errors.As(err, &ce) || ce.Kind != core.CodecUnsupported {
		t.Fatalf("expected Unsupported, got %v", err)
	}
}

// Property 2 — zero address fields reject before any ChainClient call.
func TestDecode_ZeroAddressRejectsWithoutClientCall(t *testing.T) {
	data := make([]byte, 752)
	data[0] = 6
	// Leave coin_vault as the zero address; everything else populated.
	putPubkey(data, 264, pubkeyAt(2))
	putPubkey(data, 296, pubkeyAt(3))
	putPubkey(data, 328, pubkeyAt(4))
	putPubkey(data, 360, pubkeyAt(5))

	client := newFakeClient() // no balances registered; any lookup errors
	codec := testCodec()
	_, err := codec.Decode(context.Background(), client, core.PoolAddress{}, ownerA, data)
	var ce *core.CodecError
	if !errors.As(err, &ce) || ce.Kind != core.CodecZeroAddressField {
		t.Fatalf("expected ZeroAddressField, got %v", err)
	}
}

func TestDecode_InvalidStatus(t *testing.T) {
	data := make([]byte, 752)
	data[0] = 9 // not 6 or 7
	codec := testCodec()
	_, err := codec.Decode(context.Background(), newFakeClient(), core.PoolAddress{}, ownerA, data)
	var ce *core.CodecError
	if !errors.As(err, &ce) || ce.Kind != core.CodecInvalidStatus {
		t.Fatalf("expected InvalidStatus, got %v", err)
	}
}

func TestDecode_ConstantProductB_FallsThroughCandidates(t *testing.T) {
	// Build data matching the *second* candidate layout only.
	data := make([]byte, 200)
	mintA := pubkeyAt(10)
	mintB := pubkeyAt(11)
	vaultA := pubkeyAt(12)
	vaultB := pubkeyAt(13)
	lpMint := pubkeyAt(14)
	putPubkey(data, 8, mintA)
	putPubkey(data, 40, mintB)
	putPubkey(data, 72, vaultA)
	putPubkey(data, 104, vaultB)
	putPubkey(data, 136, lpMint)

	client := newFakeClient()
	client.balances[core.PoolAddress(vaultA)] = 5_000_000
	client.balances[core.PoolAddress(vaultB)] = 7_000_000

	ownerB := core.ProgramId{0x02}
	codec := core.NewPoolCodec(map[core.ProgramId]core.PoolKind{ownerB: core.ConstantProductB})
	ps, err := codec.Decode(context.Background(), client, core.PoolAddress{0xBB}, ownerB, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ps.ReserveA != 5_000_000 || ps.ReserveB != 7_000_000 {
		t.Fatalf("unexpected reserves: %d/%d", ps.ReserveA, ps.ReserveB)
	}
	if ps.FeeBps != 30 {
		t.Fatalf("expected fee_bps 30, got %d", ps.FeeBps)
	}
}

func TestDecode_ConstantProductB_AllLayoutsFailed(t *testing.T) {
	data := make([]byte, 200) // all zero, no candidate has non-zero fields
	ownerB := core.ProgramId{0x02}
	codec := core.NewPoolCodec(map[core.ProgramId]core.PoolKind{ownerB: core.ConstantProductB})
	_, err := codec.Decode(context.Background(), newFakeClient(), core.PoolAddress{}, ownerB, data)
	var ce *core.CodecError
	if !errors.As(err, &ce) || ce.Kind != core.CodecAllLayoutsFailed {
		t.Fatalf("expected AllLayoutsFailed, got %v", err)
	}
}

func TestDecode_OrderBookUnsupported(t *testing.T) {
	ownerOB := core.ProgramId{0x03}
	codec := core.NewPoolCodec(map[core.ProgramId]core.PoolKind{ownerOB: core.OrderBook})
	_, err := codec.Decode(context.Background(), newFakeClient(), core.PoolAddress{}, ownerOB, make([]byte, 10))
	var ce *core.CodecError
	if !errors.As(err, &ce) || ce.Kind != core.CodecUnsupported {
		t.Fatalf("expected Unsupported, got %v", err)
	}
}
