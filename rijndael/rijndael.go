// Package rijndael implements the wide-block Rijndael round function used
// as the keystream primitive in the RCS256 and RWS512 cipher variants: the
// standard AES S-box and MixColumns step, generalized to 32-byte and
// 64-byte states with the extended ShiftRows permutations described in
// spec §4.3. Only the forward (encryption) direction is implemented: the
// keystream generator always runs Rijndael forward over a counter, the way
// CTR mode runs a block cipher forward regardless of whether the AEAD
// operation is encrypting or decrypting the caller's data.
package rijndael

// SBox is the standard AES substitution table.
var SBox = [256]byte{
	0x63, 0x7c, 0x77, 0x7b, 0xf2, 0x6b, 0x6f, 0xc5, 0x30, 0x01, 0x67, 0x2b, 0xfe, 0xd7, 0xab, 0x76,
	0xca, 0x82, 0xc9, 0x7d, 0xfa, 0x59, 0x47, 0xf0, 0xad, 0xd4, 0xa2, 0xaf, 0x9c, 0xa4, 0x72, 0xc0,
	0xb7, 0xfd, 0x93, 0x26, 0x36, 0x3f, 0xf7, 0xcc, 0x34, 0xa5, 0xe5, 0xf1, 0x71, 0xd8, 0x31, 0x15,
	0x04, 0xc7, 0x23, 0xc3, 0x18, 0x96, 0x05, 0x9a, 0x07, 0x12, 0x80, 0xe2, 0xeb, 0x27, 0xb2, 0x75,
	0x09, 0x83, 0x2c, 0x1a, 0x1b, 0x6e, 0x5a, 0xa0, 0x52, 0x3b, 0xd6, 0xb3, 0x29, 0xe3, 0x2f, 0x84,
	0x53, 0xd1, 0x00, 0xed, 0x20, 0xfc, 0xb1, 0x5b, 0x6a, 0xcb, 0xbe, 0x39, 0x4a, 0x4c, 0x58, 0xcf,
	0xd0, 0xef, 0xaa, 0xfb, 0x43, 0x4d, 0x33, 0x85, 0x45, 0xf9, 0x02, 0x7f, 0x50, 0x3c, 0x9f, 0xa8,
	0x51, 0xa3, 0x40, 0x8f, 0x92, 0x9d, 0x38, 0xf5, 0xbc, 0xb6, 0xda, 0x21, 0x10, 0xff, 0xf3, 0xd2,
	0xcd, 0x0c, 0x13, 0xec, 0x5f, 0x97, 0x44, 0x17, 0xc4, 0xa7, 0x7e, 0x3d, 0x64, 0x5d, 0x19, 0x73,
	0x60, 0x81, 0x4f, 0xdc, 0x22, 0x2a, 0x90, 0x88, 0x46, 0xee, 0xb8, 0x14, 0xde, 0x5e, 0x0b, 0xdb,
	0xe0, 0x32, 0x3a, 0x0a, 0x49, 0x06, 0x24, 0x5c, 0xc2, 0xd3, 0xac, 0x62, 0x91, 0x95, 0xe4, 0x79,
	0xe7, 0xc8, 0x37, 0x6d, 0x8d, 0xd5, 0x4e, 0xa9, 0x6c, 0x56, 0xf4, 0xea, 0x65, 0x7a, 0xae, 0x08,
	0xba, 0x78, 0x25, 0x2e, 0x1c, 0xa6, 0xb4, 0xc6, 0xe8, 0xdd, 0x74, 0x1f, 0x4b, 0xbd, 0x8b, 0x8a,
	0x70, 0x3e, 0xb5, 0x66, 0x48, 0x03, 0xf6, 0x0e, 0x61, 0x35, 0x57, 0xb9, 0x86, 0xc1, 0x1d, 0x9e,
	0xe1, 0xf8, 0x98, 0x11, 0x69, 0xd9, 0x8e, 0x94, 0x9b, 0x1e, 0x87, 0xe9, 0xce, 0x55, 0x28, 0xdf,
	0x8c, 0xa1, 0x89, 0x0d, 0xbf, 0xe6, 0x42, 0x68, 0x41, 0x99, 0x2d, 0x0f, 0xb0, 0x54, 0xbb, 0x16,
}

// BlockSize256 and BlockSize512 are the two wide-block widths spec §4.3
// defines: 8 and 16 AES columns respectively.
const (
	BlockSize256 = 32
	BlockSize512 = 64
)

func subBytes(state []byte) {
	for i, b := range state {
		state[i] = SBox[b]
	}
}

// shiftRows256 applies the extended ShiftRows permutation for the 32-byte
// (8-column) wide block, transcribed from the reference Rijndael256
// permutation: row 1 rotates by one column, row 2 by three, row 3 by four,
// scaled across eight columns instead of AES's four.
func shiftRows256(s []byte) {
	permuteCycle(s, []int{1, 5, 9, 13, 17, 21, 25, 29})
	permuteCycle(s, []int{2, 14, 26, 6, 18, 30, 10, 22})
	permuteCycle(s, []int{3, 19})
	permuteCycle(s, []int{7, 23})
	permuteCycle(s, []int{11, 27})
	permuteCycle(s, []int{15, 31})
}

// shiftRows512 applies the extended ShiftRows permutation for the 64-byte
// (16-column) wide block.
func shiftRows512(s []byte) {
	permuteCycle(s, []int{0, 4, 8, 12, 16, 20, 24, 28, 32, 36, 40, 44, 48, 52, 56, 60})
	permuteCycle(s, []int{1, 9, 17, 25, 33, 41, 49, 57})
	permuteCycle(s, []int{5, 13, 21, 29, 37, 45, 53, 61})
	permuteCycle(s, []int{2, 18, 34, 50})
	permuteCycle(s, []int{6, 22, 38, 54})
	permuteCycle(s, []int{10, 26, 42, 58})
	permuteCycle(s, []int{14, 30, 46, 62})
	permuteCycle(s, []int{3, 35})
	permuteCycle(s, []int{7, 39})
	permuteCycle(s, []int{11, 43})
	permuteCycle(s, []int{15, 47})
	permuteCycle(s, []int{19, 51})
	permuteCycle(s, []int{23, 55})
	permuteCycle(s, []int{27, 59})
	permuteCycle(s, []int{31, 63})
}

// permuteCycle rotates the bytes at the given indices: each index takes on
// the value that was at the next index in the list, and the last index
// takes on what was at the first. This mirrors the chained
// tmp/assignment sequences in the reference ShiftRows implementations.
func permuteCycle(s []byte, idx []int) {
	first := s[idx[0]]
	for i := 0; i < len(idx)-1; i++ {
		s[idx[i]] = s[idx[i+1]]
	}
	s[idx[len(idx)-1]] = first
}

func xtime(b byte) byte {
	if b&0x80 != 0 {
		return (b << 1) ^ 0x1b
	}
	return b << 1
}

func mulGF(b byte, n int) byte {
	r := byte(0)
	for n > 0 {
		if n&1 != 0 {
			r ^= b
		}
		b = xtime(b)
		n >>= 1
	}
	return r
}

// mixColumns applies the standard AES MixColumns matrix (02 03 01 01 /
// 01 02 03 01 / 01 01 02 03 / 03 01 01 02) independently to every 4-byte
// column of the wide block.
func mixColumns(state []byte) {
	for i := 0; i < len(state); i += 4 {
		s0, s1, s2, s3 := state[i], state[i+1], state[i+2], state[i+3]
		state[i+0] = mulGF(s0, 2) ^ mulGF(s1, 3) ^ s2 ^ s3
		state[i+1] = s0 ^ mulGF(s1, 2) ^ mulGF(s2, 3) ^ s3
		state[i+2] = s0 ^ s1 ^ mulGF(s2, 2) ^ mulGF(s3, 3)
		state[i+3] = mulGF(s0, 3) ^ s1 ^ s2 ^ mulGF(s3, 2)
	}
}

func addRoundKey(state, key []byte) {
	for i := range state {
		state[i] ^= key[i]
	}
}

// Block256 runs the wide-block Rijndael round function over a 32-byte
// state in place, using one AddRoundKey-only initial round, rounds-1 full
// rounds, and a final round without MixColumns — the standard AES round
// structure generalized to the 256-bit block. roundKeys must contain
// rounds+1 entries of BlockSize256 bytes each.
func Block256(state []byte, roundKeys [][]byte, rounds int) {
	addRoundKey(state, roundKeys[0])
	for r := 1; r < rounds; r++ {
		subBytes(state)
		shiftRows256(state)
		mixColumns(state)
		addRoundKey(state, roundKeys[r])
	}
	subBytes(state)
	shiftRows256(state)
	addRoundKey(state, roundKeys[rounds])
}

// Block512 is Block256's 64-byte-state counterpart.
func Block512(state []byte, roundKeys [][]byte, rounds int) {
	addRoundKey(state, roundKeys[0])
	for r := 1; r < rounds; r++ {
		subBytes(state)
		shiftRows512(state)
		mixColumns(state)
		addRoundKey(state, roundKeys[r])
	}
	subBytes(state)
	shiftRows512(state)
	addRoundKey(state, roundKeys[rounds])
}

// RoundsFor returns the round count for a given block size and key size in
// bytes, per spec §4.3's table (256-bit block: 22/30/38 for 256/512/1024-bit
// keys; 512-bit block: 20/40/80 for 128/256/512-bit keys).
func RoundsFor(blockSize, keySizeBytes int) int {
	switch blockSize {
	case BlockSize256:
		switch {
		case keySizeBytes <= 32:
			return 22
		case keySizeBytes <= 64:
			return 30
		default:
			return 38
		}
	case BlockSize512:
		switch {
		case keySizeBytes <= 16:
			return 20
		case keySizeBytes <= 32:
			return 40
		default:
			return 80
		}
	default:
		return 22
	}
}
