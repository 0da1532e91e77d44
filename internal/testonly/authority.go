// Package testonly provides signer keys and signed firmware regions for tests.
package testonly

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/skycoin/bootauth/internal/recovery"
	"github.com/skycoin/bootauth/pkg/flash"
	"github.com/skycoin/bootauth/pkg/registry"
)

// Authority holds the private keys behind a test registry.
type Authority struct {
	Keys     [registry.Size]*secp256k1.PrivateKey
	Registry *registry.Registry
}

// NewAuthority returns an Authority whose keys are derived from label, so that different labels
// produce unrelated registries.
func NewAuthority(label string) *Authority {
	var a Authority
	public := make([][]byte, registry.Size)
	for i := range a.Keys {
		seed := sha256.Sum256([]byte(fmt.Sprintf("%s signer %d", label, i+1)))
		a.Keys[i] = secp256k1.PrivKeyFromBytes(seed[:])
		public[i] = a.Keys[i].PubKey().SerializeCompressed()
	}
	reg, err := registry.New(public...)
	if err != nil {
		panic(err)
	}
	a.Registry = reg
	return &a
}

// Code returns n bytes of deterministic application code.
func Code(n int) []byte {
	code := make([]byte, n)
	for i := range code {
		code[i] = byte(i*31 + i>>8)
	}
	return code
}

// Sign returns the signature of the 1-based signer over hash, in firmware metadata layout.
func (a *Authority) Sign(signer uint8, hash [sha256.Size]byte) []byte {
	if signer < 1 || signer > registry.Size {
		panic(fmt.Sprintf("testonly: no signer %d", signer))
	}
	sig, err := recovery.FromCompact(ecdsa.SignCompact(a.Keys[signer-1], hash[:], true))
	if err != nil {
		panic(err)
	}
	return sig
}

// Image builds a firmware region for code whose slots claim the indices in claimed but are signed
// by the signers in signedBy. A signedBy entry outside 1..registry.Size leaves the slot zeroed.
func (a *Authority) Image(code []byte, claimed, signedBy [flash.Slots]uint8) []byte {
	hash := sha256.Sum256(code)
	var sigs [flash.Slots][]byte
	for slot, signer := range signedBy {
		if signer >= 1 && signer <= registry.Size {
			sigs[slot] = a.Sign(signer, hash)
		}
	}
	region, err := flash.Build(code, claimed, sigs)
	if err != nil {
		panic(err)
	}
	return region
}

// SignedImage builds a region in which every slot is honestly signed by the signer it claims.
func (a *Authority) SignedImage(code []byte, indices [flash.Slots]uint8) []byte {
	return a.Image(code, indices, indices)
}
