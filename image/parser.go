package image

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Intel HEX record types.
const (
	recordData             = 0x00
	recordEOF              = 0x01
	recordExtendedSegment  = 0x02
	recordStartSegment     = 0x03
	recordExtendedLinear   = 0x04
	recordStartLinear      = 0x05
	recordHeaderSize       = 4 // count + address(2) + type
	recordChecksumSize     = 1
	minimumRecordBytes     = recordHeaderSize + recordChecksumSize
	addressSpace           = 1 << 32
	maxScannerLineCapacity = 1024 * 1024
)

// hexExtensions are the file extensions Load treats as Intel HEX.
var hexExtensions = map[string]bool{
	".hex":  true,
	".ihex": true,
	".ihx":  true,
}

// Load reads an image file from the given path. Files ending in .hex, .ihex
// or .ihx are parsed as Intel HEX; anything else is raw binary.
//
// base is the load address of a raw image. For Intel HEX it is an offset
// added to every record address.
//
// Example:
//
//	img, err := image.Load("boot.bin", 0x10000000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes in %d segment(s)\n", img.Size(), len(img.Segments))
func Load(path string, base uint32) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if hexExtensions[strings.ToLower(filepath.Ext(path))] {
		return ParseIntelHex(f, base)
	}
	return LoadRaw(f, base)
}

// LoadRaw reads a flat binary image from r and places it at base.
func LoadRaw(r io.Reader, base uint32) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if uint64(base)+uint64(len(data)) > addressSpace {
		return nil, fmt.Errorf("%d bytes at 0x%08X run past the end of the address space", len(data), base)
	}

	img := &Image{Format: FormatRaw}
	if len(data) > 0 {
		img.Segments = []Segment{{Address: base, Data: data}}
	}
	return img, nil
}

// ParseIntelHex parses an Intel HEX file from any io.Reader. offset is added
// to every record address.
//
// Example:
//
//	img, err := image.ParseIntelHex(strings.NewReader(hexText), 0)
func ParseIntelHex(r io.Reader, offset uint32) (*Image, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxScannerLineCapacity)

	var (
		segments []Segment
		upper    uint64
		sawEOF   bool
	)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines
		if line == "" {
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		switch rec.kind {
		case recordData:
			if len(rec.data) == 0 {
				continue
			}
			addr := uint64(offset) + upper + uint64(rec.address)
			if addr+uint64(len(rec.data)) > addressSpace {
				return nil, fmt.Errorf("line %d: data at 0x%X runs past the end of the address space", lineNum, addr)
			}
			segments = append(segments, Segment{Address: uint32(addr), Data: rec.data})

		case recordEOF:
			sawEOF = true

		case recordExtendedSegment:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: extended segment address record needs 2 data bytes, got %d", lineNum, len(rec.data))
			}
			upper = uint64(uint16(rec.data[0])<<8|uint16(rec.data[1])) << 4

		case recordExtendedLinear:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: extended linear address record needs 2 data bytes, got %d", lineNum, len(rec.data))
			}
			upper = uint64(uint16(rec.data[0])<<8|uint16(rec.data[1])) << 16

		case recordStartSegment, recordStartLinear:
			// Execution start address, meaningless for a bus load.

		default:
			return nil, fmt.Errorf("line %d: unknown record type 0x%02X", lineNum, rec.kind)
		}

		if sawEOF {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if !sawEOF {
		return nil, fmt.Errorf("missing end-of-file record")
	}

	merged, err := mergeSegments(segments)
	if err != nil {
		return nil, err
	}

	return &Image{Format: FormatIntelHex, Segments: merged}, nil
}

type record struct {
	kind    byte
	address uint16
	data    []byte
}

// parseRecord decodes a single Intel HEX record line.
//
// Record format:
//
//	:[Count(1 byte)][Address(2 bytes)][Type(1 byte)][Data(Count bytes)][Checksum(1 byte)]
//
// All values are hex-encoded. Address is big-endian.
func parseRecord(line string) (*record, error) {
	if line[0] != ':' {
		return nil, fmt.Errorf("record must start with ':'")
	}

	raw, err := hex.DecodeString(line[1:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}

	if len(raw) < minimumRecordBytes {
		return nil, fmt.Errorf("record too short: got %d bytes, minimum is %d", len(raw), minimumRecordBytes)
	}

	count := int(raw[0])
	expectedLen := recordHeaderSize + count + recordChecksumSize
	if len(raw) != expectedLen {
		return nil, fmt.Errorf("data length mismatch: got %d bytes, expected %d (header=%d + data=%d + checksum=%d)",
			len(raw), expectedLen, recordHeaderSize, count, recordChecksumSize)
	}

	checksum := raw[len(raw)-1]
	calculated := calculateChecksum(raw[:len(raw)-1])
	if checksum != calculated {
		return nil, &ChecksumError{Expected: calculated, Actual: checksum}
	}

	rec := &record{
		kind:    raw[3],
		address: uint16(raw[1])<<8 | uint16(raw[2]),
		data:    make([]byte, count),
	}
	copy(rec.data, raw[recordHeaderSize:recordHeaderSize+count])

	return rec, nil
}

// calculateChecksum computes the two's complement of the byte sum.
func calculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}

// mergeSegments sorts segments by address and joins the ones that touch.
// Overlapping data is rejected.
func mergeSegments(segments []Segment) ([]Segment, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Address < segments[j].Address
	})

	merged := []Segment{segments[0]}
	for _, s := range segments[1:] {
		last := &merged[len(merged)-1]
		switch {
		case uint64(s.Address) < last.End():
			return nil, fmt.Errorf("overlapping data at 0x%08X", s.Address)
		case uint64(s.Address) == last.End():
			last.Data = append(last.Data, s.Data...)
		default:
			merged = append(merged, s)
		}
	}
	return merged, nil
}
