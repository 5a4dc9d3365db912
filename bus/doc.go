// Package bus provides a high-level API for reading and writing a device's
// 32-bit address space over a USB FIFO link.
//
// # Overview
//
// An Engine owns one transport.Device and drives the bus protocol over it:
//   - Block reads and writes of any length, split into profile-sized chunks
//   - Single 32-bit word reads and writes
//   - GPIO byte reads and writes
//
// The device is opened lazily on the first operation and stays open until
// Close is called. Nothing closes it implicitly.
//
// # Basic Usage
//
//	opener := transport.OpenerFunc(func(ctx context.Context) (transport.Device, error) {
//	    id, err := transport.ParseIdentifier("FT3XO4LY.1", bus.SyncFIFO.DefaultInterface)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return transport.OpenFTDI(ctx, id, nil)
//	})
//
//	eng := bus.New(opener, bus.WithProfile(bus.SyncFIFO))
//	defer eng.Close()
//
//	if err := eng.Write(ctx, 0x1000, image); err != nil {
//	    log.Fatal(err)
//	}
//	v, err := eng.Read32(ctx, 0x1000)
//
// # Profiles
//
// A Profile fixes the chunk sizes, the connect-time link setup and whether
// empty reads are retried:
//
//	bus.AsyncFIFO // write 16 / read 32, no setup
//	bus.SyncFIFO  // write 64 / read 64, sync FIFO bit mode + RTS/CTS, retries empty reads
//
// # Transfer Options
//
//	eng.Write(ctx, fifoPort, samples, bus.WithFixedAddress())
//	eng.Read(ctx, 0x0, 4096, bus.WithMaxChunk(255))
//
// # Progress Tracking
//
//	eng := bus.New(opener,
//	    bus.WithProgressCallback(func(p bus.Progress) {
//	        fmt.Printf("%s %d/%d\n", p.Operation, p.BytesDone, p.BytesTotal)
//	    }),
//	)
//
// The callback sees (0, total) before the first chunk and one report after
// every chunk.
//
// # Error Handling
//
//   - ChunkSizeError, AddressRangeError, protocol.LengthError: request rejected
//     before any byte was sent
//   - VerificationError: read-back data differs from what was written
//   - anything else: transport failure, wrapped with %w; the transfer is abandoned
//
// # Concurrency
//
// An Engine is safe for concurrent use. Every command and its response, and
// every block transfer as a whole, runs under one lock, so exchanges from
// different goroutines never interleave on the link.
package bus
