package feeder

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bizopsbank/feeder/internal"
)

// SignatureLen is the exact number of raw bytes stored per semaphore entry.
// Any stored value of a different length indicates external corruption.
const SignatureLen = 8

// KeySpace is the number of distinct bounded keys (2^16). The shared map can
// never hold more entries than this, which is the entire point of the design:
// memory stays O(1) no matter how many files the cluster ever sees.
const KeySpace = 1 << 16

// Fingerprint is the immutable identity of one file for the cluster-wide
// semaphore. The bounded key is deliberately collision-prone (it keeps the
// shared map small); the signature disambiguates distinct identifiers that
// land on the same key.
type Fingerprint struct {
	key       uint16
	signature [SignatureLen]byte
}

// ComputeFingerprint derives a Fingerprint from an identifier string
// (a file name or full path). The derivation is deterministic: the same
// identifier yields a byte-identical Fingerprint on any node at any time.
//
// The bounded key is the big-endian uint32 of SHA-256 digest bytes [0..3],
// masked to 16 bits. The signature is digest bytes [23..30].
func ComputeFingerprint(identifier string) (Fingerprint, error) {
	if strings.TrimSpace(identifier) == "" {
		return Fingerprint{}, fmt.Errorf("%w: identifier is empty", internal.ErrInvalidIdentifier)
	}

	digest := sha256.Sum256([]byte(identifier))

	fp := Fingerprint{
		key: uint16(binary.BigEndian.Uint32(digest[0:4]) & 0xFFFF),
	}
	copy(fp.signature[:], digest[23:23+SignatureLen])
	return fp, nil
}

// Key returns the bounded map key, in [0, 65535].
func (f Fingerprint) Key() uint16 {
	return f.key
}

// Signature returns a defensive copy of the 8-byte signature.
func (f Fingerprint) Signature() []byte {
	sig := make([]byte, SignatureLen)
	copy(sig, f.signature[:])
	return sig
}

// Matches reports whether two fingerprints carry the same signature.
func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.signature == other.signature
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("Fingerprint{key: %d, signature: %x}", f.key, f.signature)
}

// SignatureEqual compares a stored raw value against this fingerprint's
// signature byte-for-byte.
func (f Fingerprint) SignatureEqual(raw []byte) bool {
	return bytes.Equal(raw, f.signature[:])
}
