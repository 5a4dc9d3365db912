package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// parseUint parses a number with an optional 0x, 0o or 0b prefix.
func parseUint(s string, bitSize int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, bitSize)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("number %q does not fit in %d bits", s, bitSize)
		}
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// parseAddress parses a 32-bit bus address.
func parseAddress(s string) (uint32, error) {
	v, err := parseUint(s, 32)
	if err != nil {
		return 0, fmt.Errorf("address: %w", err)
	}
	return uint32(v), nil
}
