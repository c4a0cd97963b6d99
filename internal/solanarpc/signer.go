package solanarpc

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"dexarb/core"
)

// KeypairSigner is a core.Signer backed by a locally held Solana keypair. It
// builds a single-signer legacy transaction from a core.Plan's instructions
// in order (preparatory first, then hops) and signs it with the loaded
// private key.
type KeypairSigner struct {
	key solana.PrivateKey
}

// LoadKeypairSigner reads a wallet key file in the standard Solana CLI
// JSON-array-of-bytes format and returns a Signer over it.
func LoadKeypairSigner(path string) (*KeypairSigner, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("solanarpc: load wallet key %s: %w", path, err)
	}
	return &KeypairSigner{key: key}, nil
}

// LoadKeypairSignerFromEnv reads the wallet key from a base58-encoded
// private key passed directly as an environment value, used for CI and
// sandboxed devnet runs where writing a key file is inconvenient.
func LoadKeypairSignerFromEnv(value string) (*KeypairSigner, error) {
	value = strings.TrimSpace(value)
	key, err := solana.PrivateKeyFromBase58(value)
	if err != nil {
		return nil, fmt.Errorf("solanarpc: parse wallet key from env: %w", err)
	}
	return &KeypairSigner{key: key}, nil
}

func (s *KeypairSigner) Wallet() core.WalletAddress {
	return core.WalletAddress(s.key.PublicKey())
}

// Sign assembles plan's instructions into one transaction bound to recent,
// signs it with the held key, and serializes it for ChainClient.SubmitSigned.
func (s *KeypairSigner) Sign(ctx context.Context, plan core.Plan, recent core.BlockId) (core.SignedTransaction, error) {
	instructions := make([]solana.Instruction, 0, len(plan.Preparatory)+len(plan.Hops))
	for _, ix := range plan.Preparatory {
		instructions = append(instructions, toSolanaInstruction(ix))
	}
	for _, ix := range plan.Hops {
		instructions = append(instructions, toSolanaInstruction(ix))
	}

	tx, err := solana.NewTransaction(
		instructions,
		solana.Hash(recent),
		solana.TransactionPayer(solana.PublicKey(s.Wallet())),
	)
	if err != nil {
		return core.SignedTransaction{}, fmt.Errorf("solanarpc: build transaction: %w", err)
	}

	_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return core.SignedTransaction{}, fmt.Errorf("solanarpc: sign transaction: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return core.SignedTransaction{}, fmt.Errorf("solanarpc: marshal transaction: %w", err)
	}
	return core.SignedTransaction{Raw: raw}, nil
}

// rawInstruction adapts a core.Instruction to solana.Instruction so it can
// be embedded directly in a solana.Transaction without the solana-go types
// leaking back into core.
type rawInstruction struct {
	programID solana.PublicKey
	accounts  solana.AccountMetaSlice
	data      []byte
}

func (r rawInstruction) ProgramID() solana.PublicKey      { return r.programID }
func (r rawInstruction) Accounts() solana.AccountMetaSlice { return r.accounts }
func (r rawInstruction) Data() ([]byte, error)             { return r.data, nil }

func toSolanaInstruction(ix core.Instruction) solana.Instruction {
	metas := make(solana.AccountMetaSlice, 0, len(ix.Accounts))
	for _, am := range ix.Accounts {
		metas = append(metas, &solana.AccountMeta{
			PublicKey:  solana.PublicKey(am.Address),
			IsSigner:   am.IsSigner,
			IsWritable: am.IsWritable,
		})
	}
	return rawInstruction{
		programID: solana.PublicKey(ix.ProgramId),
		accounts:  metas,
		data:      ix.Data,
	}
}
