package aead

import "runtime"

// Key holds the symmetric key material consumed by Initialize. It is
// transient: the assembly derives round keys and a MAC key from it and
// does not retain it (spec §3, "Symmetric key structure").
type Key struct {
	Key   []byte
	Nonce []byte
	Info  []byte
}

// Validate checks Key against a variant's legal size rules: key size in
// the variant's legal set, nonce size equal to the variant's block size,
// info size 0 or 16 bytes.
func (k Key) Validate(v Variant) error {
	if !v.legalKeySize(len(k.Key)) {
		return errf(InvalidKey, "Validate", "key size not in the variant's legal set")
	}
	if len(k.Nonce) != v.BlockSize() {
		return errf(InvalidNonce, "Validate", "nonce size must equal block size")
	}
	if len(k.Info) != 0 && len(k.Info) != 16 {
		return errf(InvalidInfo, "Validate", "info size must be 0 or 16 bytes")
	}
	return nil
}

// ParallelMinimumSize is the smallest legal ParallelBlockSize: a multiple
// of the largest simulated SIMD lane width this module models (spec §4.4
// "a multiple of ... the available SIMD width").
const ParallelMinimumSize = 4096

// Options configures the parallel keystream driver. The zero value runs
// fully sequential.
type Options struct {
	ParallelDegree    int
	ParallelBlockSize int
}

// Validate checks configured values: ParallelDegree of 0 means sequential;
// otherwise it must be even, at least 2, and no larger than the number of
// logical CPUs. ParallelBlockSize of 0 selects a default; otherwise it
// must be a multiple of ParallelMinimumSize.
func (o Options) Validate() error {
	if o.ParallelDegree != 0 {
		if o.ParallelDegree < 2 || o.ParallelDegree%2 != 0 {
			return errf(InvalidParam, "Validate", "parallel degree must be even and at least 2")
		}
		if o.ParallelDegree > runtime.NumCPU() {
			return errf(NotSupported, "Validate", "parallel degree exceeds available cores")
		}
	}
	if o.ParallelBlockSize != 0 && o.ParallelBlockSize%ParallelMinimumSize != 0 {
		return errf(InvalidSize, "Validate", "parallel block size must be a multiple of ParallelMinimumSize")
	}
	return nil
}
