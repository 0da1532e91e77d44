package bootloader

// FingerprintLineLength is the number of hex characters per line of a fingerprint.
const FingerprintLineLength = 16

// Fingerprint formats h as lowercase hex split into lines short enough for the device display.
func Fingerprint(h ContentHash) []string {
	encoded := h.String()
	lines := make([]string, 0, len(encoded)/FingerprintLineLength)
	for i := 0; i < len(encoded); i += FingerprintLineLength {
		lines = append(lines, encoded[i:i+FingerprintLineLength])
	}
	return lines
}
