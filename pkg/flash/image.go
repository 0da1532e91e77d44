/*
Package flash provides a bounds-checked view of a firmware region as the bootloader sees it.

A region starts with a fixed-size metadata header followed by the application code:

	0x000  magic "SKY1"
	0x004  code length, little-endian uint32
	0x008  signer index for slot 1 (1-based)
	0x009  signer index for slot 2
	0x00A  signer index for slot 3
	0x040  signature for slot 1 (R || S || V, 65 bytes)
	0x0C0  signature for slot 2
	0x140  signature for slot 3
	0x200  application code

Every field is read through accessor methods on [Image]. The code length is untrusted; [Image.Present]
only reports true when the declared code fits inside the region, and [Image.Code] never reads past
it.
*/
package flash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

const (
	// HeaderSize is the size of the metadata header. Application code starts at this offset.
	HeaderSize = 0x200
	// MinCodeLen is the smallest code length accepted as a firmware image.
	MinCodeLen = 4096
	// Slots is the number of (signer index, signature) pairs in the header.
	Slots = 3
	// SignatureLength is the size of each signature field.
	SignatureLength = 65
)

const (
	offsetMagic     = 0x000
	offsetCodeLen   = 0x004
	offsetSigIndex  = 0x008
	offsetSignature = 0x040
	signatureStride = 0x080
)

// Magic identifies a region that holds firmware.
var Magic = [4]byte{'S', 'K', 'Y', '1'}

var (
	ErrRegionTooSmall  = fmt.Errorf("flash region smaller than %d-byte metadata header", HeaderSize)
	ErrSignatureLength = errors.New("signature has wrong length")
	ErrCodeTooLarge    = errors.New("code too large for 32-bit length field")
)

// Image is a read-only view of a firmware region.
type Image struct {
	region []byte
}

// NewImage wraps region. The region is not copied and must not be modified while the Image is in
// use.
func NewImage(region []byte) (*Image, error) {
	if len(region) < HeaderSize {
		return nil, ErrRegionTooSmall
	}
	return &Image{region: region}, nil
}

// Open reads a firmware region from a file.
func Open(filename string) (*Image, error) {
	region, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	img, err := NewImage(region)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return img, nil
}

func (img *Image) field(offset, length int) []byte {
	return img.region[offset : offset+length : offset+length]
}

func checkSlot(slot int) {
	if slot < 0 || slot >= Slots {
		panic(fmt.Sprintf("flash: signer slot %d out of range [0,%d)", slot, Slots))
	}
}

// Capacity is the number of bytes available for application code.
func (img *Image) Capacity() int {
	return len(img.region) - HeaderSize
}

// CodeLen returns the declared code length. The value is untrusted.
func (img *Image) CodeLen() uint32 {
	return binary.LittleEndian.Uint32(img.field(offsetCodeLen, 4))
}

// Present reports whether the region holds a firmware image: the magic matches and the declared
// code length is between MinCodeLen and the region's capacity.
func (img *Image) Present() bool {
	if [4]byte(img.field(offsetMagic, len(Magic))) != Magic {
		return false
	}
	codeLen := uint64(img.CodeLen())
	return codeLen >= MinCodeLen && codeLen <= uint64(img.Capacity())
}

// Code returns exactly CodeLen bytes of application code, or nil if no firmware is present.
func (img *Image) Code() []byte {
	if !img.Present() {
		return nil
	}
	end := HeaderSize + int(img.CodeLen())
	return img.region[HeaderSize:end:end]
}

// SignerIndex returns the 1-based signer index claimed by slot (0-based). The value is untrusted.
func (img *Image) SignerIndex(slot int) uint8 {
	checkSlot(slot)
	return img.field(offsetSigIndex+slot, 1)[0]
}

// Signature returns a copy of the signature stored in slot (0-based).
func (img *Image) Signature(slot int) []byte {
	checkSlot(slot)
	sig := make([]byte, SignatureLength)
	copy(sig, img.field(offsetSignature+slot*signatureStride, SignatureLength))
	return sig
}

// Build assembles a firmware region from code and per-slot metadata. A nil signature leaves the
// slot zeroed. Build does not sign anything.
func Build(code []byte, indices [Slots]uint8, sigs [Slots][]byte) ([]byte, error) {
	if uint64(len(code)) > uint64(^uint32(0)) {
		return nil, ErrCodeTooLarge
	}
	region := make([]byte, HeaderSize+len(code))
	copy(region[offsetMagic:], Magic[:])
	binary.LittleEndian.PutUint32(region[offsetCodeLen:], uint32(len(code)))
	for slot := 0; slot < Slots; slot++ {
		region[offsetSigIndex+slot] = indices[slot]
		if sigs[slot] == nil {
			continue
		}
		if len(sigs[slot]) != SignatureLength {
			return nil, fmt.Errorf("slot %d: %w", slot+1, ErrSignatureLength)
		}
		copy(region[offsetSignature+slot*signatureStride:], sigs[slot])
	}
	copy(region[HeaderSize:], code)
	return region, nil
}
