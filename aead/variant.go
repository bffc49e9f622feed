package aead

import (
	"strconv"

	"wbaead/cshake"
	"wbaead/rijndael"
	"wbaead/threefish"
)

// family distinguishes the three keystream primitives. It is an
// unexported tag: callers select behavior through the exported Variant
// values below, never through a string name (spec §9 — map cipher-mode
// polymorphism to a tagged variant with explicit per-variant parameters,
// not runtime string dispatch).
type family int

const (
	familyRCS family = iota
	familyRWS
	familyTSX1024
)

// Variant names a concrete cipher configuration: which keystream
// primitive drives it, its block size (which doubles as its nonce size),
// its legal key sizes, and the fixed version tag used as the cSHAKE
// customization string when the caller supplies no info.
type Variant struct {
	family        family
	name          string
	blockSize     int
	legalKeySizes []int
	versionTag    string
}

var (
	// RCS256 is the 256-bit wide-block Rijndael stream cipher.
	RCS256 = Variant{
		family:        familyRCS,
		name:          "RCS",
		blockSize:     rijndael.BlockSize256,
		legalKeySizes: []int{32, 64, 128},
		versionTag:    "RCS version 1.0a",
	}
	// RWS512 is the 512-bit wide-block Rijndael stream cipher.
	RWS512 = Variant{
		family:        familyRWS,
		name:          "RWS",
		blockSize:     rijndael.BlockSize512,
		legalKeySizes: []int{16, 32, 64, 128},
		versionTag:    "RWS version 1.0a",
	}
	// TSX1024 is the Threefish-1024 based stream cipher.
	TSX1024 = Variant{
		family:        familyTSX1024,
		name:          "TSX",
		blockSize:     threefish.BlockSize,
		legalKeySizes: []int{32, 64, 128},
		versionTag:    "TSX version 1.0a",
	}
)

// BlockSize returns the variant's block size in bytes, which is also its
// required nonce size (spec §6: "Nonce size equals block size").
func (v Variant) BlockSize() int { return v.blockSize }

// Name reports the variant's short cipher name ("RCS", "RWS", "TSX").
func (v Variant) Name() string { return v.name }

func (v Variant) legalKeySize(n int) bool {
	for _, s := range v.legalKeySizes {
		if s == n {
			return true
		}
	}
	return false
}

// modeForKeySize maps a key size in bytes to the KMAC security level with
// the same tag size, per spec §6: "Tag size = KMAC security level in
// bytes = key size in bytes".
func modeForKeySize(n int) (cshake.Mode, bool) {
	switch n {
	case 16:
		return cshake.Mode128, true
	case 32:
		return cshake.Mode256, true
	case 64:
		return cshake.Mode512, true
	case 128:
		return cshake.Mode1024, true
	default:
		return cshake.Mode256, false
	}
}

// roundCount returns the round count for this variant given the user key
// size in bytes, per spec §4.3's table. TSX1024's round count is fixed
// regardless of key size (original_source/CEX/TSX1024.h ROUND_COUNT).
func (v Variant) roundCount(keySizeBytes int) int {
	switch v.family {
	case familyRCS:
		return rijndael.RoundsFor(rijndael.BlockSize256, keySizeBytes)
	case familyRWS:
		return rijndael.RoundsFor(rijndael.BlockSize512, keySizeBytes)
	default:
		return threefish.Rounds
	}
}

// algoName builds the "<algo>" component of the cSHAKE domain-separating
// name string: cipher name concatenated with the KMAC mode name, e.g.
// "RCSK256", "RWSK512" (spec §6).
func (v Variant) algoName(mode cshake.Mode) string {
	return v.name + "K" + strconv.Itoa(mode.TagSize()*8)
}
