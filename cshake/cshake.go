// Package cshake implements cSHAKE and KMAC per NIST SP 800-185, built on
// top of the wbaead/keccak permutation. It is the key-schedule and
// authentication engine for the aead package: every round key, MAC key, and
// authentication tag in wbaead passes through here.
package cshake

import "wbaead/keccak"

// Mode selects a security level for cSHAKE/KMAC. Each mode fixes the
// sponge rate and the generator's default output size.
type Mode int

const (
	Mode128 Mode = iota
	Mode256
	Mode512
	Mode1024
)

// Rate returns the sponge rate, in bytes, for the mode.
func (m Mode) Rate() int {
	switch m {
	case Mode128:
		return keccak.RateKMAC128
	case Mode256:
		return keccak.RateKMAC256
	case Mode512:
		return keccak.RateKMAC512
	case Mode1024:
		return keccak.RateKMAC1024
	default:
		return keccak.RateKMAC256
	}
}

// TagSize returns the default MAC/digest size, in bytes, for the mode.
func (m Mode) TagSize() int {
	switch m {
	case Mode128:
		return 16
	case Mode256:
		return 32
	case Mode512:
		return 64
	case Mode1024:
		return 128
	default:
		return 32
	}
}

// Rounds returns the Keccak-f permutation round count for the mode: the
// 1024-bit security level uses the extended 48-round permutation, the rest
// use the standard 24 (spec §4.1).
func (m Mode) Rounds() int {
	return keccak.RoundsForRate(m.Rate())
}

func (m Mode) String() string {
	switch m {
	case Mode128:
		return "cSHAKE128"
	case Mode256:
		return "cSHAKE256"
	case Mode512:
		return "cSHAKE512"
	case Mode1024:
		return "cSHAKE1024"
	default:
		return "cSHAKE?"
	}
}

// CShake is a customizable, keyed-or-unkeyed extendable output function per
// SP 800-185. Zero value is not usable; construct with New.
type CShake struct {
	mode      Mode
	state     keccak.State
	rate      int
	rounds    int
	absorbing bool
	suffix    byte // domain suffix: 0x04 for cSHAKE, 0x1F when N and S are both empty (plain SHAKE)
	buf       []byte

	// squeezeBlock and squeezePos track output position across Read
	// calls: the sponge must permute exactly once between every
	// rate-sized block of output regardless of how the caller chunks
	// its Read calls, so the position has to survive between calls
	// rather than restart from block zero each time.
	squeezeBlock []byte
	squeezePos   int
}

// New constructs a cSHAKE instance for the given mode, function name N, and
// customization string S. When both N and S are empty, cSHAKE degenerates
// to plain SHAKE (not used by wbaead, but preserved for fidelity to SP
// 800-185).
func New(mode Mode, name, custom []byte) *CShake {
	c := &CShake{
		mode:      mode,
		rate:      mode.Rate(),
		rounds:    mode.Rounds(),
		absorbing: true,
		suffix:    0x04,
	}
	if len(name) > 0 || len(custom) > 0 {
		pad := bytepad(append(encodeString(name), encodeString(custom)...), c.rate)
		c.absorbBlocks(pad)
	} else {
		c.suffix = 0x1F
	}
	return c
}

// Write absorbs more input. It must not be called after the first Read.
func (c *CShake) Write(p []byte) (int, error) {
	c.buf = append(c.buf, p...)
	c.absorbBuffered(false)
	return len(p), nil
}

// AbsorbKey absorbs key using the SP 800-185 bytepad(encode_string(key),
// rate) rule KMAC uses to load its key. Exported so the aead package's
// cSHAKE-as-key-schedule (spec §4.3) can key a CShake exactly the way KMAC
// keys itself, without duplicating the encoding rule.
func (c *CShake) AbsorbKey(key []byte) {
	c.Write(bytepad(encodeString(key), c.rate))
}

// Clone returns an independent copy of c, including its buffered-but-not-
// yet-absorbed input. Used to evaluate a tentative MAC finalization
// without mutating the original (aead's decrypt path: verify before
// committing).
func (c *CShake) Clone() *CShake {
	clone := *c
	clone.buf = append([]byte(nil), c.buf...)
	clone.squeezeBlock = append([]byte(nil), c.squeezeBlock...)
	return &clone
}

// Read squeezes output. The first call finalizes absorption (applying the
// pad10*1 padding and domain suffix: 0x04, or SHAKE's 0x1F when N and S
// are both empty) and may be interleaved with
// further Read calls to stream arbitrarily long output: the position
// within the current rate-block is tracked across calls, so splitting
// one Read(n) into Read(a) then Read(n-a) yields the identical bytes.
func (c *CShake) Read(p []byte) (int, error) {
	want := len(p)
	if c.absorbing {
		c.absorbBuffered(true)
		c.absorbing = false
		c.squeezeBlock = make([]byte, c.rate)
		c.state.SqueezeBlock(c.squeezeBlock, c.rate)
		c.squeezePos = 0
	}
	for len(p) > 0 {
		if c.squeezePos == c.rate {
			c.state.Permute(c.rounds)
			c.state.SqueezeBlock(c.squeezeBlock, c.rate)
			c.squeezePos = 0
		}
		n := copy(p, c.squeezeBlock[c.squeezePos:])
		c.squeezePos += n
		p = p[n:]
	}
	return want, nil
}

func (c *CShake) absorbBlocks(data []byte) {
	for len(data) >= c.rate {
		c.state.Absorb(data[:c.rate], c.rounds)
		data = data[c.rate:]
	}
	c.buf = append(c.buf, data...)
}

// absorbBuffered drains c.buf, rate-sized block at a time. When final is
// true, the remainder is padded (pad10*1, domain suffix c.suffix) and absorbed.
func (c *CShake) absorbBuffered(final bool) {
	for len(c.buf) >= c.rate {
		c.state.Absorb(c.buf[:c.rate], c.rounds)
		c.buf = c.buf[c.rate:]
	}
	if !final {
		return
	}

	block := make([]byte, c.rate)
	copy(block, c.buf)
	block[len(c.buf)] ^= c.suffix
	block[c.rate-1] ^= 0x80
	c.state.Absorb(block, c.rounds)
	c.buf = nil
}

// Sum is a convenience wrapper returning an n-byte digest of everything
// written so far, without mutating the receiver (a fresh copy is squeezed).
func (c *CShake) Sum(n int) []byte {
	clone := c.Clone()
	out := make([]byte, n)
	clone.Read(out)
	return out
}

// --- SP 800-185 encoding primitives ---

func leftEncode(x uint64) []byte {
	if x == 0 {
		return []byte{1, 0}
	}
	var rev []byte
	for v := x; v > 0; v >>= 8 {
		rev = append(rev, byte(v))
	}
	out := make([]byte, len(rev)+1)
	out[0] = byte(len(rev))
	for i, b := range rev {
		out[len(rev)-i] = b
	}
	return out
}

func rightEncode(x uint64) []byte {
	if x == 0 {
		return []byte{0, 1}
	}
	var rev []byte
	for v := x; v > 0; v >>= 8 {
		rev = append(rev, byte(v))
	}
	out := make([]byte, len(rev)+1)
	for i, b := range rev {
		out[len(rev)-1-i] = b
	}
	out[len(rev)] = byte(len(rev))
	return out
}

func encodeString(s []byte) []byte {
	return append(leftEncode(uint64(len(s))*8), s...)
}

func bytepad(x []byte, w int) []byte {
	buf := append(leftEncode(uint64(w)), x...)
	if rem := len(buf) % w; rem != 0 {
		buf = append(buf, make([]byte, w-rem)...)
	}
	return buf
}
