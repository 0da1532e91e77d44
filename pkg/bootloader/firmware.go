package bootloader

import (
	"github.com/skycoin/bootauth/pkg/flash"
)

//go:generate mockgen -source firmware.go -destination ../../mocks/firmware.go -package mocks -mock_names Firmware=Firmware

// Firmware is the view of flash that an [Authenticator] consumes. Every value it returns is
// untrusted except Present, which the flash layer guarantees has validated the code length.
type Firmware interface {
	// Present reports whether a firmware image is installed.
	Present() bool
	// Code returns exactly the declared code length of application bytes.
	Code() []byte
	// SignerIndex returns the 1-based registry index claimed by the 0-based slot.
	SignerIndex(slot int) uint8
	// Signature returns the recoverable signature stored in the 0-based slot.
	Signature(slot int) []byte
}

var _ Firmware = (*flash.Image)(nil)
