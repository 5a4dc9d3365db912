package image

import "fmt"

// ChecksumError indicates an Intel HEX record whose checksum byte is wrong.
type ChecksumError struct {
	Expected byte
	Actual   byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: got 0x%02X, expected 0x%02X", e.Actual, e.Expected)
}
