// Package registry holds the authorized signer keys that firmware images must be endorsed by.
//
// A [Registry] is an ordered, fixed-size table of compressed secp256k1 public keys. Signer slots
// are 1-based, matching the indices stored in firmware metadata. A Registry never changes after
// construction; replacing the vendor table is a build-time decision (see [Production]).
package registry

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// Size is the number of authorized signers.
	Size = 5
	// KeyLength is the length of a compressed secp256k1 point.
	KeyLength = 33
)

var (
	ErrWrongSize    = fmt.Errorf("registry must contain exactly %d keys", Size)
	ErrInvalidKey   = errors.New("invalid public key")
	ErrDuplicateKey = errors.New("registry contains the same key twice")
)

// Registry is an immutable table of authorized signer keys.
type Registry struct {
	keys [Size][KeyLength]byte
}

// New returns a Registry containing keys, in order. Each key may be a compressed (33-byte) or
// uncompressed (65-byte) SEC1 encoding and must be a valid secp256k1 point.
func New(keys ...[]byte) (*Registry, error) {
	if len(keys) != Size {
		return nil, ErrWrongSize
	}
	var r Registry
	for i, encoded := range keys {
		pkey, err := secp256k1.ParsePubKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: signer %d: %s", ErrInvalidKey, i+1, err)
		}
		copy(r.keys[i][:], pkey.SerializeCompressed())
		for j := 0; j < i; j++ {
			if r.keys[j] == r.keys[i] {
				return nil, fmt.Errorf("%w: signers %d and %d", ErrDuplicateKey, j+1, i+1)
			}
		}
	}
	return &r, nil
}

// Key returns the compressed public key of the 1-based signer index. The second return value is
// false if index is outside 1..Size.
func (r *Registry) Key(index uint8) ([]byte, bool) {
	if index < 1 || index > Size {
		return nil, false
	}
	key := r.keys[index-1]
	return key[:], true
}

// Index returns the 1-based signer index holding key, if any.
func (r *Registry) Index(key []byte) (uint8, bool) {
	for i := range r.keys {
		if string(r.keys[i][:]) == string(key) {
			return uint8(i + 1), true
		}
	}
	return 0, false
}

// Keys returns a copy of every key, ordered by signer index.
func (r *Registry) Keys() [][]byte {
	keys := make([][]byte, Size)
	for i := range r.keys {
		key := r.keys[i]
		keys[i] = key[:]
	}
	return keys
}

// Load parses a registry from r. The input contains one hex-encoded public key per line, in signer
// order. Blank lines and lines starting with '#' are ignored, as is anything after the first
// whitespace-separated field (which may be used for a label).
func Load(r io.Reader) (*Registry, error) {
	var keys [][]byte
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		key, err := hex.DecodeString(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %s", line, ErrInvalidKey, err)
		}
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return New(keys...)
}

// LoadFile reads a registry from a file in the format accepted by [Load].
func LoadFile(filename string) (*Registry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file)
}
