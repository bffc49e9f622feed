package aead

import "io"

// EntropySource is the external collaborator the assembly relies on for
// random bytes (a fresh nonce, for instance). wbaead implements no entropy
// provider of its own — system RNG, hardware RNG, and jitter sources are
// explicitly out of scope — callers supply one.
type EntropySource interface {
	io.Reader
}

// FillRandom reads exactly len(buf) bytes from src into buf.
func FillRandom(src EntropySource, buf []byte) error {
	_, err := io.ReadFull(src, buf)
	if err != nil {
		return errf(InvalidParam, "FillRandom", err.Error())
	}
	return nil
}
