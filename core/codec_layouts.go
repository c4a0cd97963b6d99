package core

// Byte-offset layout tables for each PoolKind. On-chain AMM account layouts
// are neither self-describing nor stable across protocol versions, so
// recognition is a fallible candidate scan rather than a heuristic guess:
// see Decode in codec.go for how these tables are consumed.

// The cpa* constants describe the single, fixed ConstantProductA layout.
const (
	cpaStatusOffset    = 0
	cpaCoinVaultOffset = 232
	cpaPcVaultOffset   = 264
	cpaCoinMintOffset  = 296
	cpaPcMintOffset    = 328
	cpaLPMintOffset    = 360
	cpaRequiredLen     = cpaLPMintOffset + 32
	cpaDefaultFeeBps   = 25
)

// offsetTuple is one candidate layout for a multi-variant protocol family
// (ConstantProductB or ConcentratedLiquidity).
type offsetTuple struct {
	mintAOffset  int
	mintBOffset  int
	vaultAOffset int
	vaultBOffset int
	lpMintOffset int
	hasLPMint    bool
}

// requiredLen returns the minimum account data length this tuple needs.
func (t offsetTuple) requiredLen() int {
	max := t.mintAOffset
	for _, o := range []int{t.mintBOffset, t.vaultAOffset, t.vaultBOffset} {
		if o > max {
			max = o
		}
	}
	if t.hasLPMint && t.lpMintOffset > max {
		max = t.lpMintOffset
	}
	return max + 32
}

const cpbDefaultFeeBps = 30

// cpbCandidates enumerates the historical layout variants observed for the
// ConstantProductB family, oldest first.
var cpbCandidates = []offsetTuple{
	{mintAOffset: 0, mintBOffset: 32, vaultAOffset: 64, vaultBOffset: 96, lpMintOffset: 128, hasLPMint: true},
	{mintAOffset: 8, mintBOffset: 40, vaultAOffset: 72, vaultBOffset: 104, lpMintOffset: 136, hasLPMint: true},
	{mintAOffset: 16, mintBOffset: 48, vaultAOffset: 80, vaultBOffset: 112, lpMintOffset: 144, hasLPMint: true},
}

const clDefaultFeeBps = 30

// clCandidates enumerates the historical layout variants observed for
// ConcentratedLiquidity pools. There is no lp_mint field; LP supply is
// always zero for this kind.
var clCandidates = []offsetTuple{
	{mintAOffset: 8, mintBOffset: 40, vaultAOffset: 72, vaultBOffset: 104, hasLPMint: false},
	{mintAOffset: 101, mintBOffset: 133, vaultAOffset: 165, vaultBOffset: 197, hasLPMint: false},
}

// readPubkey extracts a 32-byte address at offset, reporting false if data
// is too short.
func readPubkey(data []byte, offset int) (Pubkey, bool) {
	if offset < 0 || offset+32 > len(data) {
		return Pubkey{}, false
	}
	var p Pubkey
	copy(p[:], data[offset:offset+32])
	return p, true
}
