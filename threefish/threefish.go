// Package threefish implements the Threefish-1024 tweakable block cipher
// used by the TSX1024 keystream variant. Per original_source/CEX/TSX1024.h
// this implementation runs an extended 120-round permutation (standard
// Threefish-1024 specifies 80) for additional security margin.
package threefish

import "encoding/binary"

// Words is the number of 64-bit words in a Threefish-1024 block (1024 bits).
const Words = 16

// BlockSize is the block size in bytes.
const BlockSize = Words * 8

// Rounds is the round count TSX1024 uses: the standard Threefish-1024
// round count of 80 extended to 120 (original_source/CEX/TSX1024.h,
// ROUND_COUNT). A subkey is injected after the initial whitening and after
// every one of the 120 rounds, giving 121 subkey groups in total (this
// cipher's key schedule injects every round rather than every four, unlike
// the public Threefish-1024 specification).
const Rounds = 120

// c240 is Threefish's fixed key-schedule parity constant.
const c240 = 0x1BD11BDAA9FC1A22

// rotationConstants holds the 8 rotation amounts used by each of the 8 MIX
// operations per round, cycling over d mod 8 across rounds. Standard
// Threefish-1024 rotation schedule (Skein v1.3 specification).
var rotationConstants = [8][8]uint{
	{24, 13, 8, 47, 8, 17, 22, 37},
	{38, 19, 10, 55, 49, 18, 23, 52},
	{33, 4, 51, 13, 34, 41, 59, 17},
	{5, 20, 48, 41, 47, 28, 16, 25},
	{41, 9, 37, 31, 12, 47, 44, 30},
	{16, 34, 56, 51, 4, 53, 42, 41},
	{31, 44, 47, 46, 19, 42, 44, 25},
	{9, 48, 35, 52, 23, 31, 37, 20},
}

// permutation is applied to the 16 words after each round's 8 MIX
// operations: word at input position i moves to output position
// permutation[i].
var permutation = [16]int{0, 9, 2, 13, 6, 11, 4, 15, 10, 7, 12, 3, 14, 5, 8, 1}

func mix(x0, x1 uint64, rot uint) (uint64, uint64) {
	y0 := x0 + x1
	y1 := rotl64(x1, rot) ^ y0
	return y0, y1
}

func rotl64(x uint64, n uint) uint64 {
	return (x << n) | (x >> (64 - n))
}

// expandedKey extends a 16-word key with the standard Threefish parity
// word k[Nw] = C240 ^ k[0] ^ ... ^ k[Nw-1].
func expandedKey(key [Words]uint64) [Words + 1]uint64 {
	var ek [Words + 1]uint64
	copy(ek[:Words], key[:])
	parity := uint64(c240)
	for _, k := range key {
		parity ^= k
	}
	ek[Words] = parity
	return ek
}

// subkey computes the s-th subkey (s = 0..Rounds) from the expanded key
// and the extended tweak (t0, t1, t2 = t0^t1), per the standard Threefish
// key-word/tweak-word selection formula, applied every round instead of
// every four.
func subkey(ek [Words + 1]uint64, tweak [3]uint64, s int) [Words]uint64 {
	var sk [Words]uint64
	for i := 0; i < Words; i++ {
		sk[i] = ek[(s+i)%(Words+1)]
	}
	sk[Words-3] += tweak[s%3]
	sk[Words-2] += tweak[(s+1)%3]
	sk[Words-1] += uint64(s)
	return sk
}

// Encrypt runs the Threefish-1024 permutation on src (16 64-bit words) under
// key and a 128-bit tweak (tweak[0], tweak[1]), writing the result to dst.
// dst and src may alias.
func Encrypt(dst, src *[Words]uint64, key [Words]uint64, tweak [2]uint64) {
	ek := expandedKey(key)
	fullTweak := [3]uint64{tweak[0], tweak[1], tweak[0] ^ tweak[1]}

	var words [Words]uint64
	words = *src

	subkeyIndex := 0
	sk := subkey(ek, fullTweak, subkeyIndex)
	for i := range words {
		words[i] += sk[i]
	}

	for d := 0; d < Rounds; d++ {
		rot := rotationConstants[d%8]
		var mixed [Words]uint64
		for j := 0; j < Words/2; j++ {
			mixed[2*j], mixed[2*j+1] = mix(words[2*j], words[2*j+1], rot[j])
		}

		var permuted [Words]uint64
		for i, v := range mixed {
			permuted[permutation[i]] = v
		}
		words = permuted

		subkeyIndex++
		sk := subkey(ek, fullTweak, subkeyIndex)
		for i := range words {
			words[i] += sk[i]
		}
	}

	*dst = words
}

// EncryptBytes is Encrypt's byte-slice convenience wrapper: src and dst must
// be BlockSize bytes, key must be BlockSize bytes, nonce must be 16 bytes
// (the 128-bit tweak, little-endian per spec §4.3/§9's Threefish-1024 nonce
// resolution).
func EncryptBytes(dst, src []byte, key []byte, nonce [16]byte) {
	var srcWords, keyWords [Words]uint64
	for i := 0; i < Words; i++ {
		srcWords[i] = binary.LittleEndian.Uint64(src[i*8:])
		keyWords[i] = binary.LittleEndian.Uint64(key[i*8:])
	}
	tweak := [2]uint64{
		binary.LittleEndian.Uint64(nonce[0:8]),
		binary.LittleEndian.Uint64(nonce[8:16]),
	}

	var outWords [Words]uint64
	Encrypt(&outWords, &srcWords, keyWords, tweak)

	for i := 0; i < Words; i++ {
		binary.LittleEndian.PutUint64(dst[i*8:], outWords[i])
	}
}
