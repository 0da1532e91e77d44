package bootloader

import (
	"fmt"
)

// ErrorCode classifies why firmware was rejected. Callers at the boot boundary only see
// [SigFail]; the code is for diagnostics.
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeNoFirmware
	ErrCodeInvalidIndex
	ErrCodeDuplicateSigner
	ErrCodeSignatureMismatch
)

var errCodeNames = map[ErrorCode]string{
	ErrCodeNone:              "None",
	ErrCodeNoFirmware:        "NoFirmware",
	ErrCodeInvalidIndex:      "InvalidIndex",
	ErrCodeDuplicateSigner:   "DuplicateSigner",
	ErrCodeSignatureMismatch: "SignatureMismatch",
}

func (c ErrorCode) String() string {
	if name, ok := errCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Error describes a failed firmware check.
type Error struct {
	Code ErrorCode
	// Slot is the 1-based signature slot that failed, or 0 if the failure isn't tied to one slot.
	Slot int
	Info string
}

// Sentinel errors for use with errors.Is. An *Error matches the sentinel with the same Code,
// regardless of Slot and Info.
var (
	ErrNoFirmware        = &Error{Code: ErrCodeNoFirmware}
	ErrInvalidIndex      = &Error{Code: ErrCodeInvalidIndex}
	ErrDuplicateSigner   = &Error{Code: ErrCodeDuplicateSigner}
	ErrSignatureMismatch = &Error{Code: ErrCodeSignatureMismatch}
)

func newError(code ErrorCode, slot int, info string) error {
	return &Error{Code: code, Slot: slot, Info: info}
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Slot != 0 {
		msg = fmt.Sprintf("%s: slot %d", msg, e.Slot)
	}
	if e.Info != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Info)
	}
	return msg
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	return false
}
