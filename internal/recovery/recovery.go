// Package recovery recovers secp256k1 public keys from recoverable ECDSA signatures.
//
// Firmware metadata carries signatures as R || S || V, where R and S are 32-byte big-endian
// scalars and V is the recovery id (0-3). The recovery id selects which of the candidate curve
// points with x-coordinate R (or R + n) was the signer's nonce point, which is enough to
// reconstruct a unique public key from the message hash alone.
//
// Signature bytes come straight out of flash and are attacker controlled. R and S are
// range-checked with constant-time comparisons before any curve arithmetic happens.
package recovery

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	ScalarLength    = 32
	SignatureLength = 2*ScalarLength + 1
	PublicKeyLength = 33
	HashLength      = sha256.Size

	maxRecoveryID = 3
)

// Header byte of a compact signature for a compressed public key, minus the recovery id.
const compactCompressedHeader = 27 + 4

var (
	ErrMalformedSignature = errors.New("malformed signature")
	ErrRecoveryFailed     = errors.New("public key recovery failed")
)

// curveOrderBytes is read-only. A saferith.Modulus is resized in place by comparisons, so each
// call builds its own.
var curveOrderBytes = secp256k1.S256().Params().N.Bytes()

// inRange returns 1 if scalar encodes a value in [1, n-1]. It is safe for concurrent use.
func inRange(scalar []byte) saferith.Choice {
	order := saferith.ModulusFromBytes(curveOrderBytes)
	var x saferith.Nat
	x.SetBytes(scalar)
	_, _, lt := x.CmpMod(order)
	return lt & (1 ^ x.EqZero())
}

// Recover returns the compressed public key that produced sig over hash.
//
// A nil error does not mean the signature is trustworthy: every well-formed signature recovers to
// some key. Callers must compare the result against the key they expect.
func Recover(hash [HashLength]byte, sig []byte) ([]byte, error) {
	if len(sig) != SignatureLength {
		return nil, ErrMalformedSignature
	}
	r := sig[:ScalarLength]
	s := sig[ScalarLength : 2*ScalarLength]
	recoveryID := sig[2*ScalarLength]

	valid := inRange(r) & inRange(s)
	if valid != 1 || recoveryID > maxRecoveryID {
		return nil, ErrMalformedSignature
	}

	var compact [SignatureLength]byte
	compact[0] = compactCompressedHeader + recoveryID
	copy(compact[1:], sig[:2*ScalarLength])

	pub, _, err := ecdsa.RecoverCompact(compact[:], hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRecoveryFailed, err)
	}
	return pub.SerializeCompressed(), nil
}

// FromCompact converts a 65-byte compact signature (header byte first, as produced by
// ecdsa.SignCompact) into the R || S || V layout stored in firmware metadata.
func FromCompact(compact []byte) ([]byte, error) {
	if len(compact) != SignatureLength || compact[0] < 27 || compact[0] > compactCompressedHeader+maxRecoveryID {
		return nil, ErrMalformedSignature
	}
	recoveryID := (compact[0] - 27) & maxRecoveryID
	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[2*ScalarLength] = recoveryID
	return sig, nil
}
