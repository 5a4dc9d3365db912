package image

import "fmt"

// Format identifies how an image file is encoded.
type Format int

const (
	// FormatRaw is a flat binary file
	FormatRaw Format = iota

	// FormatIntelHex is an Intel HEX text file
	FormatIntelHex
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatIntelHex:
		return "ihex"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Segment is a run of contiguous bytes destined for one address range.
type Segment struct {
	// Address is the bus address of Data[0]
	Address uint32

	// Data is the segment contents
	Data []byte
}

// End returns the address one past the last byte of the segment.
func (s Segment) End() uint64 {
	return uint64(s.Address) + uint64(len(s.Data))
}

// Image is a loaded memory image. Segments are sorted by address and never overlap.
type Image struct {
	Format   Format
	Segments []Segment
}

// Size returns the total number of data bytes in the image.
func (img *Image) Size() int {
	n := 0
	for _, s := range img.Segments {
		n += len(s.Data)
	}
	return n
}

// Truncate keeps only the first n data bytes, in address order.
// A negative n, or one at least Size, leaves the image unchanged.
func (img *Image) Truncate(n int) {
	if n < 0 || n >= img.Size() {
		return
	}

	kept := img.Segments[:0]
	for _, s := range img.Segments {
		if n == 0 {
			break
		}
		if len(s.Data) > n {
			s.Data = s.Data[:n]
		}
		n -= len(s.Data)
		kept = append(kept, s)
	}
	img.Segments = kept
}
