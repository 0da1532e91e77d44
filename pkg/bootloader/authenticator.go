/*
Package bootloader decides whether installed firmware may run.

An [Authenticator] hashes the application code and requires that each of the three signature
slots in the firmware metadata names a distinct signer from the [registry.Registry] and holds a
signature, over that hash, from which exactly that signer's public key is recovered. There is no
partial credit: a single bad slot rejects the image.

	auth := bootloader.New(registry.Production(), bootloader.Enforced)
	var fingerprint bootloader.ContentHash
	if auth.SignaturesOK(img, &fingerprint) != bootloader.SigOK {
		// refuse to boot
	}

The content hash is returned whenever firmware is present, whether or not the signatures check
out, so that callers can show it to the user.
*/
package bootloader

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/skycoin/bootauth/internal/log"
	"github.com/skycoin/bootauth/internal/recovery"
	"github.com/skycoin/bootauth/pkg/flash"
	"github.com/skycoin/bootauth/pkg/registry"
)

// Quorum is the number of distinct signers that must endorse firmware.
const Quorum = flash.Slots

// ContentHash is the SHA-256 digest of the application code. Signatures are computed over it.
type ContentHash [sha256.Size]byte

func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}

// EnforcementMode selects whether signatures are checked at all.
type EnforcementMode int

const (
	// Enforced requires a signer quorum. This is the only mode for release devices.
	Enforced EnforcementMode = iota
	// Disabled accepts any present firmware. It exists for manufacturing and debug builds.
	Disabled
)

func (m EnforcementMode) String() string {
	switch m {
	case Enforced:
		return "enforced"
	case Disabled:
		return "disabled"
	}
	return fmt.Sprintf("EnforcementMode(%d)", int(m))
}

// Result is the outcome of [Authenticator.SignaturesOK]. SigOK is a multi-bit pattern; every other
// value, including zero, means failure.
type Result uint32

const (
	SigFail Result = 0x00000000
	SigOK   Result = 0x5A3CA5C3
)

func (r Result) String() string {
	if r == SigOK {
		return "ok"
	}
	return "fail"
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithConcurrentRecovery recovers the signers' public keys in parallel. The result is identical to
// sequential recovery, including which slot is reported on failure.
func WithConcurrentRecovery() Option {
	return func(a *Authenticator) {
		a.concurrent = true
	}
}

// An Authenticator checks firmware against a fixed signer registry. It holds no mutable state and
// may be shared between goroutines.
type Authenticator struct {
	registry   *registry.Registry
	mode       EnforcementMode
	concurrent bool
}

// New returns an Authenticator that checks firmware against reg. Anything other than Disabled is
// treated as Enforced.
func New(reg *registry.Registry, mode EnforcementMode, options ...Option) *Authenticator {
	if mode != Disabled {
		mode = Enforced
	}
	a := &Authenticator{
		registry: reg,
		mode:     mode,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// Mode returns the enforcement mode a was built with.
func (a *Authenticator) Mode() EnforcementMode {
	return a.mode
}

// Verify checks fw and returns its content hash.
//
// If no firmware is present, Verify returns an error matching ErrNoFirmware and a zero hash
// without reading the code. Otherwise the returned hash is always the SHA-256 digest of fw.Code(),
// and the error is nil only if the Authenticator is Disabled or all Quorum slots name distinct,
// valid signers whose keys are recovered from their signatures. Errors match ErrInvalidIndex,
// ErrDuplicateSigner or ErrSignatureMismatch.
func (a *Authenticator) Verify(fw Firmware) (hash ContentHash, err error) {
	if !fw.Present() {
		log.Warning("No firmware present")
		return hash, newError(ErrCodeNoFirmware, 0, "")
	}
	hash = sha256.Sum256(fw.Code())
	log.Debug("Firmware content hash %s", hash)

	if a.mode == Disabled {
		log.Warning("Signature enforcement disabled, accepting firmware %s", hash)
		return hash, nil
	}

	var indices [Quorum]uint8
	for slot := range indices {
		indices[slot] = fw.SignerIndex(slot)
		if _, ok := a.registry.Key(indices[slot]); !ok {
			err = newError(ErrCodeInvalidIndex, slot+1, fmt.Sprintf("signer index %d outside 1..%d", indices[slot], registry.Size))
			log.Warning("Rejecting firmware %s: %s", hash, err)
			return hash, err
		}
	}

	signers := make(map[uint8]struct{}, Quorum)
	for _, index := range indices {
		signers[index] = struct{}{}
	}
	if len(signers) != Quorum {
		err = newError(ErrCodeDuplicateSigner, firstRepeat(indices), fmt.Sprintf("signer indices %v are not distinct", indices))
		log.Warning("Rejecting firmware %s: %s", hash, err)
		return hash, err
	}

	if err = a.checkSignatures(hash, fw, indices); err != nil {
		log.Warning("Rejecting firmware %s: %s", hash, err)
		return hash, err
	}
	log.Info("Firmware %s authorized by signers %v", hash, indices)
	return hash, nil
}

// SignaturesOK is the boot-time form of Verify. It reports SigOK or SigFail and, if storeHash is
// not nil and firmware is present, writes the content hash to storeHash regardless of the result.
func (a *Authenticator) SignaturesOK(fw Firmware, storeHash *ContentHash) Result {
	hash, err := a.Verify(fw)
	if errors.Is(err, ErrNoFirmware) {
		return SigFail
	}
	if storeHash != nil {
		*storeHash = hash
	}
	if err != nil {
		return SigFail
	}
	return SigOK
}

// firstRepeat returns the 1-based slot whose index repeats an earlier slot's, or 0.
func firstRepeat(indices [Quorum]uint8) int {
	for i := range indices {
		for j := 0; j < i; j++ {
			if indices[i] == indices[j] {
				return i + 1
			}
		}
	}
	return 0
}

func (a *Authenticator) checkSignatures(hash ContentHash, fw Firmware, indices [Quorum]uint8) error {
	var sigs [Quorum][]byte
	for slot := range sigs {
		sigs[slot] = fw.Signature(slot)
	}

	if !a.concurrent {
		for slot := range sigs {
			if err := a.checkSigner(hash, slot, indices[slot], sigs[slot]); err != nil {
				return err
			}
		}
		return nil
	}

	var results [Quorum]error
	eg := &errgroup.Group{}
	for slot := range sigs {
		eg.Go(func() error {
			results[slot] = a.checkSigner(hash, slot, indices[slot], sigs[slot])
			return results[slot]
		})
	}
	if eg.Wait() == nil {
		return nil
	}
	// Report the lowest failing slot, as sequential checking would.
	for _, err := range results {
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Authenticator) checkSigner(hash ContentHash, slot int, index uint8, sig []byte) error {
	expected, ok := a.registry.Key(index)
	if !ok {
		return newError(ErrCodeInvalidIndex, slot+1, fmt.Sprintf("signer index %d outside 1..%d", index, registry.Size))
	}
	recovered, err := recovery.Recover(hash, sig)
	if err != nil {
		log.Debug("Slot %d: %s", slot+1, err)
		return newError(ErrCodeSignatureMismatch, slot+1, err.Error())
	}
	if subtle.ConstantTimeCompare(recovered, expected) != 1 {
		if other, ok := a.registry.Index(recovered); ok {
			log.Debug("Slot %d: signed by signer %d but claims signer %d", slot+1, other, index)
		} else {
			log.Debug("Slot %d: recovered key %x is not an authorized signer", slot+1, recovered)
		}
		return newError(ErrCodeSignatureMismatch, slot+1, fmt.Sprintf("recovered key does not match signer %d", index))
	}
	log.Debug("Slot %d: verified signer %d", slot+1, index)
	return nil
}
