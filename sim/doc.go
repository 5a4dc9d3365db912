// Package sim provides a simulated bus master that speaks the FIFO bus
// protocol over an in-memory byte stream.
//
// A Target decodes every command written to it, applies writes to a sparse
// 32-bit memory map and queues read responses exactly as the hardware would:
// raw bytes, no envelope. It implements transport.Device and
// transport.Configurer, so the bus engine can run against it unchanged:
//
//	target := sim.New(sim.WithBurst(3))
//	eng := bus.New(target.Opener())
//	_ = eng.Write32(ctx, 0x100, 0xCAFEF00D)
//	v, _ := eng.Read32(ctx, 0x100) // 0xCAFEF00D
//
// WithBurst and WithEmptyReads make the target hand back responses in small
// pieces, as a synchronous FIFO link does.
package sim
