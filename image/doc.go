// Package image loads memory images for writing to a bus target.
//
// # Formats
//
// Two file formats are supported:
//
//   - Raw binary: the file contents form a single segment placed at a
//     caller-supplied base address.
//   - Intel HEX: data records (type 00) carry their own addresses; extended
//     segment (02) and extended linear (04) address records set the upper
//     address bits. Start address records (03, 05) are ignored. Reading stops
//     at the end-of-file record (01).
//
// Every Intel HEX record is checksummed: the sum of all record bytes,
// including the checksum byte, must be zero modulo 256.
//
// Example record:
//
//	:0400100001020304E2
//	  04       = byte count
//	  0010     = address (big-endian)
//	  00       = record type (data)
//	  01020304 = data
//	  E2       = checksum
//
// # Usage
//
//	img, err := image.Load("firmware.hex", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, seg := range img.Segments {
//	    if err := eng.Write(ctx, seg.Address, seg.Data); err != nil {
//	        log.Fatal(err)
//	    }
//	}
package image
