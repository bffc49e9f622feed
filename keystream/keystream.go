// Package keystream implements the little-endian counter-mode keystream
// drivers of spec §4.4: each wbaead cipher variant runs its block primitive
// forward over an incrementing counter array the width of its own block,
// producing keystream bytes that the aead package XORs with the caller's
// data. No primitive ever runs in the decrypt direction — the same
// keystream both encrypts and decrypts, exactly like standard CTR mode.
package keystream

import (
	"sync"

	"golang.org/x/sys/cpu"

	"wbaead/rijndael"
	"wbaead/threefish"
)

// Generator produces one block of keystream for the current counter value
// and advances nothing itself — callers own counter lifecycle via
// Increment.
type Generator interface {
	BlockSize() int
	Generate(dst []byte, counter []byte)
}

// Increment treats counter as a little-endian multi-precision integer and
// adds one, propagating carry across the full width — the generalization
// of original_source/CEX/RCS.cpp's IntegerTools::LeIncrease8 to an
// arbitrary block width.
func Increment(counter []byte) {
	for i := range counter {
		counter[i]++
		if counter[i] != 0 {
			return
		}
	}
}

// IncrementBy adds n to the little-endian counter in one pass, the way the
// parallel driver pre-advances each worker's starting counter.
func IncrementBy(counter []byte, n uint64) {
	carry := n
	for i := range counter {
		if carry == 0 {
			return
		}
		sum := uint64(counter[i]) + (carry & 0xFF)
		counter[i] = byte(sum)
		carry = (carry >> 8) + (sum >> 8)
	}
}

var simdOnce sync.Once
var simdFlag bool

// SIMDAvailable reports whether the process detected a wide vector
// instruction set at first use (AVX2 on x86_64, ASIMD on arm64). Computed
// once and never mutated after, per spec §9's "promote to a once-
// initialised process-wide constant" resolution for the SIMD-availability
// singleton. wbaead does not itself use SIMD intrinsics (Go has none
// portable); the flag only selects the keystream batch width.
func SIMDAvailable() bool {
	simdOnce.Do(func() {
		simdFlag = cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD
	})
	return simdFlag
}

// batchBlocks returns the number of blocks generated per inner-loop batch.
// The original CEX driver selects 16/8/4/1 blocks behind AVX512/AVX2/AVX/
// scalar preprocessor paths; Go has no portable SIMD layer to batch
// against, so this collapses to two cases driven by SIMDAvailable.
func batchBlocks() int {
	if SIMDAvailable() {
		return 4
	}
	return 1
}

// rijndaelGenerator drives Block256 or Block512 over an incrementing
// counter. blockSize selects which transform runs.
type rijndaelGenerator struct {
	roundKeys [][]byte
	rounds    int
	blockSize int
}

// NewRijndael256 constructs a keystream generator for the RCS256 variant
// (32-byte block).
func NewRijndael256(roundKeys [][]byte, rounds int) Generator {
	return &rijndaelGenerator{roundKeys: roundKeys, rounds: rounds, blockSize: rijndael.BlockSize256}
}

// NewRijndael512 constructs a keystream generator for the RWS512 variant
// (64-byte block).
func NewRijndael512(roundKeys [][]byte, rounds int) Generator {
	return &rijndaelGenerator{roundKeys: roundKeys, rounds: rounds, blockSize: rijndael.BlockSize512}
}

func (g *rijndaelGenerator) BlockSize() int { return g.blockSize }

func (g *rijndaelGenerator) Generate(dst []byte, counter []byte) {
	block := make([]byte, g.blockSize)
	copy(block, counter)
	if g.blockSize == rijndael.BlockSize512 {
		rijndael.Block512(block, g.roundKeys, g.rounds)
	} else {
		rijndael.Block256(block, g.roundKeys, g.rounds)
	}
	copy(dst, block)
}

// threefishGenerator drives Threefish-1024 over an incrementing 128-byte
// counter treated as the plaintext input, keyed by a fixed 1024-bit key and
// a 128-bit tweak derived from the low 16 bytes of that same counter (spec
// §9's Threefish-1024 nonce-layout resolution, documented in DESIGN.md).
type threefishGenerator struct {
	key [threefish.Words]uint64
}

// NewThreefish1024 constructs a keystream generator for the TSX1024
// variant (128-byte block).
func NewThreefish1024(key [threefish.Words]uint64) Generator {
	return &threefishGenerator{key: key}
}

func (g *threefishGenerator) BlockSize() int { return threefish.BlockSize }

func (g *threefishGenerator) Generate(dst []byte, counter []byte) {
	var nonce [16]byte
	copy(nonce[:], counter[:16])
	threefish.EncryptBytes(dst, counter, keyBytes(g.key), nonce)
}

func keyBytes(key [threefish.Words]uint64) []byte {
	b := make([]byte, threefish.BlockSize)
	for i, w := range key {
		for j := 0; j < 8; j++ {
			b[i*8+j] = byte(w >> (8 * j))
		}
	}
	return b
}

// Fill generates keystream directly into dst, which may span multiple
// blocks; counter is advanced in place by one block per iteration. This is
// the sequential (single-threaded) path; see ParallelDriver for the
// fork-join alternative.
func Fill(gen Generator, dst []byte, counter []byte) {
	bs := gen.BlockSize()
	block := make([]byte, bs)

	batch := batchBlocks()
	for len(dst) >= bs*batch {
		for i := 0; i < batch; i++ {
			gen.Generate(dst[i*bs:(i+1)*bs], counter)
			Increment(counter)
		}
		dst = dst[bs*batch:]
	}
	for len(dst) > 0 {
		gen.Generate(block, counter)
		Increment(counter)
		n := copy(dst, block)
		dst = dst[n:]
	}
}
