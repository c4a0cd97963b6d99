package core

import (
	"context"
	"encoding/binary"
	"time"
)

// PoolCodec decodes raw on-chain accounts into the uniform PoolState
// abstraction. It dispatches on the account's owner program id to a
// per-kind parser; ConstantProductB and ConcentratedLiquidity parsers
// additionally cross-validate each candidate layout against the chain
// (vault balance lookups) before accepting it, since the raw bytes alone
// cannot distinguish one historical layout version from another.
type PoolCodec struct {
	programKinds map[ProgramId]PoolKind
}

// NewPoolCodec builds a codec from a program-id -> PoolKind table. Callers
// own the mapping of concrete on-chain program addresses to the AMM family
// they implement; the codec only knows how to parse bytes once that
// dispatch has been made.
func NewPoolCodec(programKinds map[ProgramId]PoolKind) *PoolCodec {
	cp := make(map[ProgramId]PoolKind, len(programKinds))
	for k, v := range programKinds {
		cp[k] = v
	}
	return &PoolCodec{programKinds: cp}
}

// Decode transforms a raw account into a PoolState, or fails with a typed
// CodecError. client is used by the ConstantProductA/B/ConcentratedLiquidity
// parsers to fetch vault balances; it is never invoked before a candidate's
// address fields have passed the zero-address check.
func (c *PoolCodec) Decode(ctx context.Context, client ChainClient, address PoolAddress, owner ProgramId, data []byte) (PoolState, error) {
	kind, ok := c.programKinds[owner]
	if !ok {
		return PoolState{}, errUnsupported(owner)
	}

	var (
		ps  PoolState
		err error
	)
	switch kind {
	case ConstantProductA:
		ps, err = decodeConstantProductA(ctx, client, data)
	case ConstantProductB:
		ps, err = decodeMultiCandidate(ctx, client, data, cpbCandidates, cpbDefaultFeeBps, ConstantProductB)
	case ConcentratedLiquidity:
		ps, err = decodeMultiCandidate(ctx, client, data, clCandidates, clDefaultFeeBps, ConcentratedLiquidity)
	case OrderBook:
		return PoolState{}, errUnsupported(owner)
	default:
		return PoolState{}, errUnsupported(owner)
	}
	if err != nil {
		return PoolState{}, err
	}
	ps.Address = address
	ps.ProgramId = owner
	ps.Kind = kind
	return ps, nil
}

func decodeConstantProductA(ctx context.Context, client ChainClient, data []byte) (PoolState, error) {
	if len(data) < cpaRequiredLen {
		return PoolState{}, errTooShort(len(data), cpaRequiredLen)
	}
	status := binary.LittleEndian.Uint64(data[cpaStatusOffset : cpaStatusOffset+8])
	if status != 6 && status != 7 {
		return PoolState{}, errInvalidStatus(status)
	}

	coinVault, _ := readPubkey(data, cpaCoinVaultOffset)
	pcVault, _ := readPubkey(data, cpaPcVaultOffset)
	coinMint, _ := readPubkey(data, cpaCoinMintOffset)
	pcMint, _ := readPubkey(data, cpaPcMintOffset)
	lpMint, _ := readPubkey(data, cpaLPMintOffset)

	if coinVault.IsZero() || pcVault.IsZero() || coinMint.IsZero() || pcMint.IsZero() {
		return PoolState{}, errZeroAddressField()
	}

	reserveA, reserveB, err := fetchVaultBalances(ctx, client, PoolAddress(coinVault), PoolAddress(pcVault))
	if err != nil {
		return PoolState{}, err
	}

	lpSupply, _ := client.GetTokenSupply(ctx, TokenId(lpMint))

	return PoolState{
		TokenAMint:      TokenId(coinMint),
		TokenBMint:      TokenId(pcMint),
		TokenAVault:     PoolAddress(coinVault),
		TokenBVault:     PoolAddress(pcVault),
		ReserveA:        reserveA,
		ReserveB:        reserveB,
		LPMint:          TokenId(lpMint),
		LPSupply:        lpSupply,
		FeeBps:          cpaDefaultFeeBps,
		LastRefreshedAt: time.Now(),
	}, nil
}

// decodeMultiCandidate implements the candidate-scan-with-cross-validation
// strategy shared by ConstantProductB and ConcentratedLiquidity: try each
// offset tuple in order, reject it outright (without touching ChainClient)
// if any address field is zero, and accept the first tuple whose vault
// balances can actually be fetched.
func decodeMultiCandidate(ctx context.Context, client ChainClient, data []byte, candidates []offsetTuple, defaultFeeBps uint16, kind PoolKind) (PoolState, error) {
	attempted := 0
	for _, t := range candidates {
		if len(data) < t.requiredLen() {
			continue
		}
		mintA, _ := readPubkey(data, t.mintAOffset)
		mintB, _ := readPubkey(data, t.mintBOffset)
		vaultA, _ := readPubkey(data, t.vaultAOffset)
		vaultB, _ := readPubkey(data, t.vaultBOffset)
		var lpMint Pubkey
		if t.hasLPMint {
			lpMint, _ = readPubkey(data, t.lpMintOffset)
			if lpMint.IsZero() {
				continue
			}
		}
		if mintA.IsZero() || mintB.IsZero() || vaultA.IsZero() || vaultB.IsZero() {
			continue
		}

		attempted++
		reserveA, reserveB, err := fetchVaultBalances(ctx, client, PoolAddress(vaultA), PoolAddress(vaultB))
		if err != nil {
			continue
		}

		var lpSupply uint64
		if t.hasLPMint {
			lpSupply, _ = client.GetTokenSupply(ctx, TokenId(lpMint))
		}

		return PoolState{
			TokenAMint:      TokenId(mintA),
			TokenBMint:      TokenId(mintB),
			TokenAVault:     PoolAddress(vaultA),
			TokenBVault:     PoolAddress(vaultB),
			ReserveA:        reserveA,
			ReserveB:        reserveB,
			LPMint:          TokenId(lpMint),
			LPSupply:        lpSupply,
			FeeBps:          defaultFeeBps,
			LastRefreshedAt: time.Now(),
		}, nil
	}
	return PoolState{}, errAllLayoutsFailed(len(candidates))
}

func fetchVaultBalances(ctx context.Context, client ChainClient, vaultA, vaultB PoolAddress) (uint64, uint64, error) {
	balA, err := client.GetTokenAccountBalance(ctx, vaultA)
	if err != nil {
		return 0, 0, errVaultFetchFailed(vaultA, err)
	}
	balB, err := client.GetTokenAccountBalance(ctx, vaultB)
	if err != nil {
		return 0, 0, errVaultFetchFailed(vaultB, err)
	}
	return balA, balB, nil
}
