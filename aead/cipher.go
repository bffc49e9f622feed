package aead

import (
	"crypto/subtle"
	"encoding/binary"
	"sync"

	"wbaead/cshake"
	"wbaead/keystream"
	"wbaead/rijndael"
	"wbaead/threefish"
)

// state is the assembly's three-position state machine (spec §4.5/§4.6).
type state int

const (
	stateUninitialized state = iota
	stateEncrypt
	stateDecrypt
)

// Cipher is the AEAD assembly: the single user-facing type combining a
// wide-block keystream generator with a KMAC authenticator under one
// cSHAKE-derived key schedule. The zero value is not usable; construct
// with NewCipher.
type Cipher struct {
	mu sync.Mutex

	variant Variant
	mode    cshake.Mode
	rounds  int

	st            state
	authenticated bool

	gen         keystream.Generator
	keyMaterial []byte // raw cSHAKE output the generator was built from; kept for Serialize

	// counter is the live keystream counter (original_source's
	// RcsState::Nonce / RwsState::Nonce): it starts at the Initialize
	// nonce and is advanced in place by fillKeystreamLocked on every
	// Transform. The MAC absorbs this same field each Transform, so by
	// the second message it no longer equals the epoch-start nonce.
	counter []byte

	custom  []byte
	keyBits int

	nameCounter uint64 // finalisation counter, LE64-prefixed into the name string
	processed   uint64 // cumulative processed bytes this epoch

	mac    *cshake.KMAC
	macKey []byte
	tag    []byte

	parallelDegree    int
	parallelBlockSize int
}

// NewCipher constructs an uninitialized assembly for the given variant.
func NewCipher(v Variant) *Cipher {
	return &Cipher{variant: v, st: stateUninitialized}
}

// SetParallelDegree configures the fork-join worker count for Transform.
// n must be even, at least 2, and no more than runtime.NumCPU(); 0
// restores sequential processing. Validated at configuration time, not
// at first Transform (spec SPEC_FULL §D.1).
func (c *Cipher) SetParallelDegree(n int) error {
	opts := Options{ParallelDegree: n, ParallelBlockSize: c.parallelBlockSize}
	if err := opts.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parallelDegree = n
	return nil
}

// SetParallelBlockSize configures the minimum payload size (bytes) that
// triggers the parallel keystream driver. n must be a multiple of
// ParallelMinimumSize; 0 restores the default.
func (c *Cipher) SetParallelBlockSize(n int) error {
	opts := Options{ParallelDegree: c.parallelDegree, ParallelBlockSize: n}
	if err := opts.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parallelBlockSize = n
	return nil
}

// Initialize keys the assembly for the given direction and transitions it
// to Initialized-Encrypt or Initialized-Decrypt, per spec §4.5's 7-step
// procedure. Calling Initialize again on an already-initialized assembly
// starts a new epoch: previous key material is discarded first.
func (c *Cipher) Initialize(encrypt bool, key Key, authenticated bool) error {
	if err := key.Validate(c.variant); err != nil {
		return err
	}

	mode, ok := modeForKeySize(len(key.Key))
	if !ok {
		return errf(InvalidKey, "Initialize", "key size has no matching KMAC security level")
	}
	rounds := c.variant.roundCount(len(key.Key))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.zeroizeLocked()

	c.mode = mode
	c.rounds = rounds
	c.keyBits = len(key.Key) * 8
	c.authenticated = authenticated
	// Initial finalisation counter value: RCS.cpp sets Counter = 1 at
	// Initialize, RWS.cpp sets it to 0 (TSX1024's .cpp did not survive
	// into original_source, so it follows RWS's convention — see
	// DESIGN.md).
	if c.variant.family == familyRCS {
		c.nameCounter = 1
	} else {
		c.nameCounter = 0
	}
	c.processed = 0

	if len(key.Info) > 0 {
		c.custom = append([]byte(nil), key.Info...)
	} else {
		c.custom = []byte(c.variant.versionTag)
	}

	name, custom := c.keySchedulePair()
	ks := cshake.New(c.mode, name, custom)
	ks.AbsorbKey(key.Key)

	prefetchSBox()

	switch c.variant.family {
	case familyTSX1024:
		keyMaterial := make([]byte, threefish.BlockSize)
		ks.Read(keyMaterial)
		var words [threefish.Words]uint64
		for i := 0; i < threefish.Words; i++ {
			words[i] = binary.LittleEndian.Uint64(keyMaterial[i*8:])
		}
		c.gen = keystream.NewThreefish1024(words)
		c.keyMaterial = keyMaterial
	default:
		blockSize := c.variant.BlockSize()
		roundKeyBytes := make([]byte, (c.rounds+1)*blockSize)
		ks.Read(roundKeyBytes)
		roundKeys := make([][]byte, c.rounds+1)
		for i := range roundKeys {
			roundKeys[i] = roundKeyBytes[i*blockSize : (i+1)*blockSize]
		}
		if c.variant.family == familyRWS {
			c.gen = keystream.NewRijndael512(roundKeys, c.rounds)
		} else {
			c.gen = keystream.NewRijndael256(roundKeys, c.rounds)
		}
		c.keyMaterial = roundKeyBytes
	}

	macKey := make([]byte, c.mode.TagSize())
	ks.Read(macKey)
	c.macKey = macKey

	c.mac = cshake.NewKMAC(c.mode)
	if err := c.mac.Initialize(c.macKey, c.custom); err != nil {
		return errf(InvalidKey, "Initialize", err.Error())
	}

	c.counter = append([]byte(nil), key.Nonce...)
	c.tag = nil

	if encrypt {
		c.st = stateEncrypt
	} else {
		c.st = stateDecrypt
	}
	return nil
}

// buildName constructs LE64(finalisation counter) || LE16(key bits) ||
// ASCII(algo name), per spec §6. Must be called with c.mu held.
func (c *Cipher) buildName() []byte {
	name := make([]byte, 10)
	binary.LittleEndian.PutUint64(name[0:8], c.nameCounter)
	binary.LittleEndian.PutUint16(name[8:10], uint16(c.keyBits))
	return append(name, []byte(c.variant.algoName(c.mode))...)
}

// keySchedulePair returns the (name, custom) byte strings fed to the
// cSHAKE key schedule, matching each family's construction in
// original_source rather than a single shared convention:
//
//   - RCS.cpp folds LE64(counter)‖LE16(kbits)‖algoName into the
//     customization string and calls SHAKE.Initialize(key, custom) with
//     no separate name string at all (RCS.cpp:228-245).
//   - RWS.cpp keeps the user info (or version tag) as the customization
//     string and passes LE64(counter)‖LE16(kbits)‖algoName as a
//     distinct name string: SHAKE.Initialize(key, custom, name)
//     (RWS.cpp:405-429). TSX1024's .cpp did not survive into
//     original_source, so it follows RWS's convention here.
//
// Must be called with c.mu held.
func (c *Cipher) keySchedulePair() (name, custom []byte) {
	blob := c.buildName()
	if c.variant.family == familyRCS {
		return nil, blob
	}
	return blob, c.custom
}

// SetAssociatedData absorbs ad into the MAC, followed by LE32(len(ad)) —
// one AD block per call, length-encoded per-call to avoid canonicalisation
// ambiguity between A‖B and AB split differently (spec §4.5).
func (c *Cipher) SetAssociatedData(ad []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st == stateUninitialized {
		return errf(NotInitialized, "SetAssociatedData", "cipher not initialized")
	}
	if !c.authenticated {
		return errf(IllegalOperation, "SetAssociatedData", "cipher is not in authenticated mode")
	}

	c.mac.Update(ad)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(ad)))
	c.mac.Update(lenBuf[:])
	return nil
}

// Transform runs one encrypt or decrypt operation of length n over in,
// writing to out (spec §4.5). Encrypt requires len(out) >= n+tag_size;
// decrypt requires len(in) >= n+tag_size and an authentication pass
// before any plaintext is released.
func (c *Cipher) Transform(in, out []byte, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.st {
	case stateUninitialized:
		return errf(NotInitialized, "Transform", "cipher not initialized")
	case stateEncrypt:
		return c.transformEncryptLocked(in, out, n)
	default:
		return c.transformDecryptLocked(in, out, n)
	}
}

func (c *Cipher) transformEncryptLocked(in, out []byte, n int) error {
	tagSize := c.mode.TagSize()
	if len(out) < n+tagSize {
		return errf(InvalidSize, "Transform", "output buffer too small for ciphertext and tag")
	}
	if len(in) < n {
		return errf(InvalidSize, "Transform", "input shorter than requested length")
	}

	// Absorb the live counter position before it advances — matches
	// original_source's Update(Nonce) call preceding Process, where
	// Nonce/Counter is the same buffer Generate advances in place.
	c.mac.Update(c.counter)

	keystreamBuf := make([]byte, n)
	c.fillKeystreamLocked(keystreamBuf)
	for i := 0; i < n; i++ {
		out[i] = in[i] ^ keystreamBuf[i]
	}

	c.mac.Update(out[:n])
	c.processed += uint64(n)

	tag, err := c.finalizeLocked()
	if err != nil {
		return err
	}
	copy(out[n:n+tagSize], tag)
	return nil
}

func (c *Cipher) transformDecryptLocked(in, out []byte, n int) error {
	tagSize := c.mode.TagSize()
	if len(in) < n+tagSize {
		return errf(InvalidSize, "Transform", "input shorter than ciphertext and tag")
	}
	if len(out) < n {
		return errf(InvalidSize, "Transform", "output buffer too small for plaintext")
	}

	// Trial-authenticate on a cloned MAC so a mismatch leaves the live
	// cipher state (counter, processed count, MAC key) untouched — the
	// counter must never advance past a failed message (spec §8).
	trialMAC := c.mac.Clone()
	trialMAC.Update(c.counter)
	trialMAC.Update(in[:n])

	expectedTag, err := c.finalizeWithMAC(trialMAC, c.processed+uint64(n))
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare(expectedTag, in[n:n+tagSize]) != 1 {
		return errf(AuthenticationFailure, "Transform", "tag mismatch")
	}

	// Commit: re-run the same absorption against the live MAC, advance
	// counter/processed, rotate the MAC key, install the new tag. The
	// counter is still at its pre-Transform value here; fillKeystreamLocked
	// below advances it, same ordering as the encrypt path.
	c.mac.Update(c.counter)
	c.mac.Update(in[:n])
	c.processed += uint64(n)
	if _, err := c.finalizeLocked(); err != nil {
		return err
	}

	keystreamBuf := make([]byte, n)
	c.fillKeystreamLocked(keystreamBuf)
	for i := 0; i < n; i++ {
		out[i] = in[i] ^ keystreamBuf[i]
	}
	return nil
}

// fillKeystreamLocked generates n bytes of keystream into dst and advances
// c.counter, choosing the parallel driver when the payload meets the
// configured parallel_block_size threshold (spec §4.4).
func (c *Cipher) fillKeystreamLocked(dst []byte) {
	threshold := c.parallelBlockSize
	if threshold == 0 {
		threshold = ParallelMinimumSize
	}
	if c.parallelDegree >= 2 && len(dst) >= threshold {
		driver := keystream.NewParallelDriver(c.parallelDegree, c.gen.BlockSize())
		driver.Fill(c.gen, dst, c.counter)
		advanceCounter(c.counter, len(dst), c.gen.BlockSize())
		return
	}
	keystream.Fill(c.gen, dst, c.counter)
}

func advanceCounter(counter []byte, byteLen, blockSize int) {
	blocks := (byteLen + blockSize - 1) / blockSize
	keystream.IncrementBy(counter, uint64(blocks))
}

// finalizeLocked runs the internal Finalize procedure (spec §4.5) against
// the live MAC and rotates it in place.
func (c *Cipher) finalizeLocked() ([]byte, error) {
	tag, err := c.finalizeWithMAC(c.mac, c.processed)
	if err != nil {
		return nil, err
	}
	c.tag = tag

	// Re-key: advance the finalisation counter, derive a new MAC key
	// from the old one, install a fresh KMAC instance absorbing from
	// scratch (spec §3 MAC-state invariant, §4.5 step 3).
	c.nameCounter++
	name, custom := c.keySchedulePair()
	rekey := cshake.New(c.mode, name, custom)
	rekey.AbsorbKey(c.macKey)
	newKey := make([]byte, c.mode.TagSize())
	rekey.Read(newKey)
	c.macKey = newKey

	c.mac = cshake.NewKMAC(c.mode)
	if err := c.mac.Initialize(c.macKey, c.custom); err != nil {
		return nil, errf(InvalidKey, "Transform", err.Error())
	}
	return tag, nil
}

// finalizeWithMAC absorbs the termination string into mac (a live or
// cloned instance) and squeezes the tag, without touching any Cipher
// field — the shared computation behind both the encrypt/commit path and
// the decrypt trial-authentication path.
func (c *Cipher) finalizeWithMAC(mac *cshake.KMAC, processed uint64) ([]byte, error) {
	var term [8]byte
	binary.LittleEndian.PutUint64(term[:], processed+uint64(len(c.counter))+8)
	mac.Update(term[:])
	tag, err := mac.Finalize(c.mode.TagSize())
	if err != nil {
		return nil, errf(IllegalOperation, "Transform", err.Error())
	}
	return tag, nil
}

// Tag returns a copy of the last tag computed by Transform (spec
// SPEC_FULL §D.3 — a Tag() accessor independent of Transform's output
// slicing). Returns IllegalOperation if no Transform has run yet.
func (c *Cipher) Tag() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag == nil {
		return nil, errf(IllegalOperation, "Tag", "no tag computed yet")
	}
	return append([]byte(nil), c.tag...), nil
}

// Stats is a snapshot of assembly state for diagnostics, mirroring the
// teacher's PrintCipherInfo/GetStatistics as a plain accessor rather than
// a side-effecting print (no log line is ever emitted by this package).
type Stats struct {
	Variant       string
	KeyBits       int
	Rounds        int
	Processed     uint64
	Authenticated bool
	Initialized   bool
}

// Stats reports the assembly's current configuration and progress.
func (c *Cipher) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Variant:       c.variant.Name(),
		KeyBits:       c.keyBits,
		Rounds:        c.rounds,
		Processed:     c.processed,
		Authenticated: c.authenticated,
		Initialized:   c.st != stateUninitialized,
	}
}

// Drop transitions the assembly back to Uninitialized, zeroising all key
// material (spec §4.6: "Drop --> Uninitialized, key material zeroised").
func (c *Cipher) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zeroizeLocked()
	c.st = stateUninitialized
}

func (c *Cipher) zeroizeLocked() {
	zero(c.macKey)
	zero(c.counter)
	zero(c.keyMaterial)
	c.macKey = nil
	c.mac = nil
	c.gen = nil
	c.keyMaterial = nil
	c.counter = nil
	c.tag = nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

var sboxPrefetchSink byte

// prefetchSBox reads through the Rijndael S-box once, the portable
// equivalent of original_source's RCS::Prefetch cache-timing defense: Go
// has no portable prefetch instruction, so this substitutes a full
// read-through into a throwaway sink (documented in DESIGN.md).
func prefetchSBox() {
	var sum byte
	for _, b := range rijndael.SBox {
		sum ^= b
	}
	sboxPrefetchSink = sum
}
