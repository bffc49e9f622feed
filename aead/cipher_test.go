package aead

import (
	"bytes"
	"testing"
)

func fillPattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func testKey(v Variant, keySize int) Key {
	return Key{
		Key:   fillPattern(keySize, 0x11),
		Nonce: fillPattern(v.BlockSize(), 0x22),
	}
}

func roundTrip(t *testing.T, v Variant, keySize, msgLen int) {
	t.Helper()

	enc := NewCipher(v)
	if err := enc.Initialize(true, testKey(v, keySize), true); err != nil {
		t.Fatalf("encrypt Initialize: %v", err)
	}
	if err := enc.SetAssociatedData([]byte("header")); err != nil {
		t.Fatalf("SetAssociatedData: %v", err)
	}

	plaintext := fillPattern(msgLen, 0x55)
	tagSize := enc.mode.TagSize()
	out := make([]byte, msgLen+tagSize)
	if err := enc.Transform(plaintext, out, msgLen); err != nil {
		t.Fatalf("encrypt Transform: %v", err)
	}

	dec := NewCipher(v)
	if err := dec.Initialize(false, testKey(v, keySize), true); err != nil {
		t.Fatalf("decrypt Initialize: %v", err)
	}
	if err := dec.SetAssociatedData([]byte("header")); err != nil {
		t.Fatalf("SetAssociatedData: %v", err)
	}

	recovered := make([]byte, msgLen)
	if err := dec.Transform(out, recovered, msgLen); err != nil {
		t.Fatalf("decrypt Transform: %v", err)
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("round trip mismatch: got %x want %x", recovered, plaintext)
	}
}

func TestRoundTripRCS256(t *testing.T) {
	roundTrip(t, RCS256, 32, 100)
}

func TestRoundTripRWS512(t *testing.T) {
	roundTrip(t, RWS512, 32, 200)
}

func TestRoundTripTSX1024(t *testing.T) {
	roundTrip(t, TSX1024, 32, 300)
}

func TestRoundTripEmptyMessage(t *testing.T) {
	roundTrip(t, RCS256, 32, 0)
}

func TestRoundTripAcrossKeySizes(t *testing.T) {
	for _, ks := range []int{32, 64, 128} {
		roundTrip(t, RCS256, ks, 64)
	}
}

func TestAuthenticationBindsAssociatedData(t *testing.T) {
	v := RCS256
	key := testKey(v, 32)

	enc := NewCipher(v)
	if err := enc.Initialize(true, key, true); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := enc.SetAssociatedData([]byte("original header")); err != nil {
		t.Fatalf("SetAssociatedData: %v", err)
	}
	plaintext := fillPattern(50, 0x33)
	out := make([]byte, 50+enc.mode.TagSize())
	if err := enc.Transform(plaintext, out, 50); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	dec := NewCipher(v)
	if err := dec.Initialize(false, key, true); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := dec.SetAssociatedData([]byte("tampered header")); err != nil {
		t.Fatalf("SetAssociatedData: %v", err)
	}
	recovered := make([]byte, 50)
	err := dec.Transform(out, recovered, 50)
	if !IsKind(err, AuthenticationFailure) {
		t.Fatalf("expected AuthenticationFailure for mismatched AD, got %v", err)
	}
	for _, b := range recovered {
		if b != 0 {
			t.Fatalf("plaintext leaked before authentication succeeded: %x", recovered)
		}
	}
}

func TestAuthenticationFailureDoesNotAdvanceCounter(t *testing.T) {
	v := RCS256
	key := testKey(v, 32)

	enc := NewCipher(v)
	if err := enc.Initialize(true, key, true); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	plaintext := fillPattern(40, 0x77)
	out := make([]byte, 40+enc.mode.TagSize())
	if err := enc.Transform(plaintext, out, 40); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	out[0] ^= 0xFF // corrupt ciphertext

	dec := NewCipher(v)
	if err := dec.Initialize(false, key, true); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	recovered := make([]byte, 40)
	before := dec.Stats().Processed
	if err := dec.Transform(out, recovered, 40); !IsKind(err, AuthenticationFailure) {
		t.Fatalf("expected AuthenticationFailure, got %v", err)
	}
	after := dec.Stats().Processed
	if before != after {
		t.Fatalf("processed counter advanced past a failed message: %d -> %d", before, after)
	}

	// A second attempt with the original, uncorrupted ciphertext must still
	// succeed — the failed attempt left no residue in the live cipher.
	out[0] ^= 0xFF // undo corruption
	if err := dec.Transform(out, recovered, 40); err != nil {
		t.Fatalf("retry after failed auth: %v", err)
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("retry mismatch: got %x want %x", recovered, plaintext)
	}
}

func TestTagIsDeterministicForSameInputs(t *testing.T) {
	v := RCS256
	key := testKey(v, 32)
	plaintext := fillPattern(64, 0x99)

	tagOf := func() []byte {
		c := NewCipher(v)
		if err := c.Initialize(true, key, false); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		out := make([]byte, 64+c.mode.TagSize())
		if err := c.Transform(plaintext, out, 64); err != nil {
			t.Fatalf("Transform: %v", err)
		}
		tag, err := c.Tag()
		if err != nil {
			t.Fatalf("Tag: %v", err)
		}
		return tag
	}

	t1 := tagOf()
	t2 := tagOf()
	if !bytes.Equal(t1, t2) {
		t.Fatalf("tag not deterministic: %x vs %x", t1, t2)
	}
}

func TestDifferentNoncesProduceDifferentCiphertext(t *testing.T) {
	v := RCS256
	plaintext := fillPattern(48, 0x44)

	encryptWithNonce := func(nonce byte) []byte {
		c := NewCipher(v)
		key := Key{Key: fillPattern(32, 0x11), Nonce: fillPattern(v.BlockSize(), nonce)}
		if err := c.Initialize(true, key, false); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		out := make([]byte, 48+c.mode.TagSize())
		if err := c.Transform(plaintext, out, 48); err != nil {
			t.Fatalf("Transform: %v", err)
		}
		return out
	}

	a := encryptWithNonce(0x22)
	b := encryptWithNonce(0x23)
	if bytes.Equal(a, b) {
		t.Fatalf("ciphertext identical across different nonces")
	}
}

func TestParallelDriverMatchesSequential(t *testing.T) {
	v := RCS256
	key := testKey(v, 32)
	plaintext := fillPattern(ParallelMinimumSize*4, 0xAB)

	sequential := NewCipher(v)
	if err := sequential.Initialize(true, key, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	outSeq := make([]byte, len(plaintext)+sequential.mode.TagSize())
	if err := sequential.Transform(plaintext, outSeq, len(plaintext)); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	parallel := NewCipher(v)
	if err := parallel.Initialize(true, key, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := parallel.SetParallelDegree(2); err != nil {
		t.Fatalf("SetParallelDegree: %v", err)
	}
	outPar := make([]byte, len(plaintext)+parallel.mode.TagSize())
	if err := parallel.Transform(plaintext, outPar, len(plaintext)); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if !bytes.Equal(outSeq, outPar) {
		t.Fatalf("parallel output diverges from sequential output")
	}
}

func TestSerializeReconstructIdentity(t *testing.T) {
	v := RCS256
	key := testKey(v, 32)

	original := NewCipher(v)
	if err := original.Initialize(true, key, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	first := fillPattern(32, 0x11)
	out1 := make([]byte, 32+original.mode.TagSize())
	if err := original.Transform(first, out1, 32); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	data, err := original.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored, err := Reconstruct(v, data)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}

	originalTag, _ := original.Tag()
	restoredTag, _ := restored.Tag()
	if !bytes.Equal(originalTag, restoredTag) {
		t.Fatalf("reconstructed tag mismatch: %x vs %x", restoredTag, originalTag)
	}
	if restored.Stats().Rounds != original.Stats().Rounds {
		t.Fatalf("reconstructed round count mismatch")
	}
}

func TestTransformBeforeInitializeFails(t *testing.T) {
	c := NewCipher(RCS256)
	out := make([]byte, 16)
	err := c.Transform(make([]byte, 16), out, 16)
	if !IsKind(err, NotInitialized) {
		t.Fatalf("expected NotInitialized, got %v", err)
	}
}

func TestSetAssociatedDataRequiresAuthenticatedMode(t *testing.T) {
	v := RCS256
	c := NewCipher(v)
	if err := c.Initialize(true, testKey(v, 32), false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	err := c.SetAssociatedData([]byte("ad"))
	if !IsKind(err, IllegalOperation) {
		t.Fatalf("expected IllegalOperation, got %v", err)
	}
}

func TestTagBeforeTransformFails(t *testing.T) {
	c := NewCipher(RCS256)
	if err := c.Initialize(true, testKey(RCS256, 32), false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	_, err := c.Tag()
	if !IsKind(err, IllegalOperation) {
		t.Fatalf("expected IllegalOperation, got %v", err)
	}
}

func TestInitializeRejectsWrongNonceSize(t *testing.T) {
	c := NewCipher(RCS256)
	key := Key{Key: fillPattern(32, 0x11), Nonce: fillPattern(4, 0x22)}
	err := c.Initialize(true, key, false)
	if !IsKind(err, InvalidNonce) {
		t.Fatalf("expected InvalidNonce, got %v", err)
	}
}

func TestInitializeRejectsIllegalKeySize(t *testing.T) {
	c := NewCipher(RCS256)
	key := Key{Key: fillPattern(20, 0x11), Nonce: fillPattern(RCS256.BlockSize(), 0x22)}
	err := c.Initialize(true, key, false)
	if !IsKind(err, InvalidKey) {
		t.Fatalf("expected InvalidKey, got %v", err)
	}
}

func TestOutputTooSmallForTag(t *testing.T) {
	v := RCS256
	c := NewCipher(v)
	if err := c.Initialize(true, testKey(v, 32), false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	out := make([]byte, 10) // too small for 10-byte plaintext plus tag
	err := c.Transform(fillPattern(10, 0x11), out, 10)
	if !IsKind(err, InvalidSize) {
		t.Fatalf("expected InvalidSize, got %v", err)
	}
}

func TestDropZeroizesKeyMaterial(t *testing.T) {
	v := RCS256
	c := NewCipher(v)
	if err := c.Initialize(true, testKey(v, 32), false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	c.Drop()
	if c.Stats().Initialized {
		t.Fatalf("Drop did not transition back to Uninitialized")
	}
	out := make([]byte, 16)
	if err := c.Transform(make([]byte, 16), out, 16); !IsKind(err, NotInitialized) {
		t.Fatalf("expected NotInitialized after Drop, got %v", err)
	}
}
