package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-fifobus/protocol"
	"github.com/moffa90/go-fifobus/sim"
	"github.com/moffa90/go-fifobus/transport"
)

// recordingDevice wraps a simulated target and keeps a copy of every write.
type recordingDevice struct {
	*sim.Target
	writes [][]byte
	reads  int
}

func (r *recordingDevice) Write(p []byte) (int, error) {
	r.writes = append(r.writes, append([]byte(nil), p...))
	return r.Target.Write(p)
}

func (r *recordingDevice) Read(p []byte) (int, error) {
	r.reads++
	return r.Target.Read(p)
}

func (r *recordingDevice) opener() transport.Opener {
	return transport.OpenerFunc(func(ctx context.Context) (transport.Device, error) {
		return r, nil
	})
}

// scriptedDevice returns canned results for failure tests.
type scriptedDevice struct {
	writeErr   error
	shortWrite bool
	readChunks [][]byte
	readErr    error
	closed     bool
}

func (d *scriptedDevice) Write(p []byte) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	if d.shortWrite {
		return len(p) - 1, nil
	}
	return len(p), nil
}

func (d *scriptedDevice) Read(p []byte) (int, error) {
	if len(d.readChunks) == 0 {
		if d.readErr != nil {
			return 0, d.readErr
		}
		return 0, nil
	}
	n := copy(p, d.readChunks[0])
	d.readChunks = d.readChunks[1:]
	return n, nil
}

func (d *scriptedDevice) Flush() error { return nil }

func (d *scriptedDevice) Close() error {
	d.closed = true
	return nil
}

func openerFor(dev transport.Device) transport.Opener {
	return transport.OpenerFunc(func(ctx context.Context) (transport.Device, error) {
		return dev, nil
	})
}

// MockLogger records messages for testing
type MockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorMsgs = append(l.errorMsgs, msg)
}

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestNew(t *testing.T) {
	target := sim.New()

	tests := []struct {
		name    string
		options []Option
		want    Profile
	}{
		{
			name: "defaults to sync FIFO",
			want: SyncFIFO,
		},
		{
			name:    "async profile",
			options: []Option{WithProfile(AsyncFIFO)},
			want:    AsyncFIFO,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := New(target.Opener(), tt.options...)
			require.NotNil(t, eng)
			assert.Equal(t, tt.want.Name, eng.Profile().Name)
			assert.Equal(t, tt.want.WriteChunk, eng.Profile().WriteChunk)
			assert.Equal(t, tt.want.ReadChunk, eng.Profile().ReadChunk)
			assert.Equal(t, Disconnected, eng.State())
		})
	}

	assert.Panics(t, func() { New(nil) })
}

func TestChunkSizeOptions(t *testing.T) {
	target := sim.New()

	eng := New(target.Opener(), WithProfile(AsyncFIFO), WithWriteChunk(128), WithReadChunk(200))
	assert.Equal(t, 128, eng.Profile().WriteChunk)
	assert.Equal(t, 200, eng.Profile().ReadChunk)
	assert.Equal(t, 16, AsyncFIFO.WriteChunk, "profile value must not be modified")

	eng = New(target.Opener(), WithProfile(AsyncFIFO), WithWriteChunk(0), WithReadChunk(protocol.MaxLength+1))
	assert.Equal(t, AsyncFIFO.WriteChunk, eng.Profile().WriteChunk)
	assert.Equal(t, AsyncFIFO.ReadChunk, eng.Profile().ReadChunk)
}

func TestWriteChunkingScenario(t *testing.T) {
	target := sim.New()
	eng := New(target.Opener(), WithProfile(AsyncFIFO))

	data := pattern(40)
	err := eng.Write(context.Background(), 0x1000, data, WithMaxChunk(16))
	require.NoError(t, err)

	assert.Equal(t, []sim.Command{
		{Opcode: protocol.OpWrite, Address: 0x1000, Length: 16},
		{Opcode: protocol.OpWrite, Address: 0x1010, Length: 16},
		{Opcode: protocol.OpWrite, Address: 0x1020, Length: 8},
	}, target.Commands())
	assert.Equal(t, data, target.Memory(0x1000, 40))
}

func TestChunkCountAndAddresses(t *testing.T) {
	lengths := []int{1, 15, 16, 17, 63, 64, 65, 255, 1000}
	chunks := []int{1, 7, 16, 64, 255}

	for _, op := range []protocol.Opcode{protocol.OpRead, protocol.OpWrite} {
		for _, length := range lengths {
			for _, maxChunk := range chunks {
				for _, increment := range []bool{true, false} {
					name := fmt.Sprintf("%v/L=%d/M=%d/inc=%v", op, length, maxChunk, increment)
					t.Run(name, func(t *testing.T) {
						target := sim.New()
						eng := New(target.Opener(), WithProfile(AsyncFIFO))

						opts := []TransferOption{WithMaxChunk(maxChunk)}
						if !increment {
							opts = append(opts, WithFixedAddress())
						}

						const base = 0x4000
						data := pattern(length)
						var err error
						if op == protocol.OpWrite {
							err = eng.Write(context.Background(), base, data, opts...)
						} else {
							_, err = eng.Read(context.Background(), base, length, opts...)
						}
						require.NoError(t, err)

						cmds := target.Commands()
						wantChunks := (length + maxChunk - 1) / maxChunk
						require.Len(t, cmds, wantChunks)

						sum := 0
						for i, c := range cmds {
							assert.Equal(t, op, c.Opcode, "chunk %d", i)
							if increment {
								assert.Equal(t, uint32(base+sum), c.Address, "chunk %d", i)
							} else {
								assert.Equal(t, uint32(base), c.Address, "chunk %d", i)
							}
							sum += c.Length
						}
						assert.Equal(t, length, sum)

						wantLast := length % maxChunk
						if wantLast == 0 {
							wantLast = maxChunk
						}
						assert.Equal(t, wantLast, cmds[len(cmds)-1].Length)

						if op != protocol.OpWrite {
							return
						}
						if increment {
							assert.Equal(t, data, target.Memory(base, length))
						} else {
							// Each chunk overwrites the same port; the last one remains.
							assert.Equal(t, data[length-wantLast:], target.Memory(base, wantLast))
						}
					})
				}
			}
		}
	}
}

func TestFixedAddressWrite(t *testing.T) {
	target := sim.New()
	eng := New(target.Opener(), WithProfile(AsyncFIFO))

	err := eng.Write(context.Background(), 0x8000, pattern(48), WithFixedAddress())
	require.NoError(t, err)

	cmds := target.Commands()
	require.Len(t, cmds, 3)
	for _, c := range cmds {
		assert.Equal(t, uint32(0x8000), c.Address)
	}
	// Last chunk wins at the fixed port.
	assert.Equal(t, pattern(48)[32:48], target.Memory(0x8000, 16))
}

func TestReadRoundTripWithBurstyLink(t *testing.T) {
	target := sim.New(sim.WithBurst(3), sim.WithEmptyReads(4))
	eng := New(target.Opener(), WithProfile(SyncFIFO))

	data := pattern(300)
	ctx := context.Background()
	require.NoError(t, eng.Write(ctx, 0x100, data))

	got, err := eng.Read(ctx, 0x100, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, 0, target.Pending())
}

func TestAsyncProfileRejectsEmptyRead(t *testing.T) {
	dev := &scriptedDevice{}
	eng := New(openerFor(dev), WithProfile(AsyncFIFO))

	_, err := eng.Read(context.Background(), 0, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrNoProgress)
}

func TestSyncProfileRetriesEmptyReads(t *testing.T) {
	dev := &scriptedDevice{readChunks: [][]byte{{}, {0x11}, {}, {}, {0x22, 0x33}, {0x44}}}
	eng := New(openerFor(dev), WithProfile(Profile{Name: "test", WriteChunk: 4, ReadChunk: 4, RetryEmptyReads: true}))

	got, err := eng.Read(context.Background(), 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, got)
}

func TestZeroLengthTransfer(t *testing.T) {
	target := sim.New()
	var reports []Progress
	eng := New(target.Opener(), WithProgressCallback(func(p Progress) {
		reports = append(reports, p)
	}))

	require.NoError(t, eng.Write(context.Background(), 0x10, nil))
	got, err := eng.Read(context.Background(), 0x10, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Empty(t, target.Commands())
	require.Len(t, reports, 2)
	assert.Equal(t, 0, reports[0].BytesDone)
	assert.Equal(t, 0, reports[0].BytesTotal)
	assert.Equal(t, OperationWrite, reports[0].Operation)
	assert.Equal(t, OperationRead, reports[1].Operation)
}

func TestProgressReports(t *testing.T) {
	target := sim.New()
	var reports []Progress
	eng := New(target.Opener(), WithProfile(AsyncFIFO), WithProgressCallback(func(p Progress) {
		reports = append(reports, p)
	}))

	const length = 100
	require.NoError(t, eng.Write(context.Background(), 0x0, pattern(length)))

	// One initial report plus one per chunk.
	require.Len(t, reports, 1+7)
	assert.Equal(t, 0, reports[0].BytesDone)

	completions := 0
	for i, p := range reports {
		assert.Equal(t, length, p.BytesTotal)
		assert.Equal(t, uint32(0), p.Address)
		if i > 0 {
			assert.GreaterOrEqual(t, p.BytesDone, reports[i-1].BytesDone)
		}
		if p.BytesDone == length {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
	assert.Equal(t, 100.0, reports[len(reports)-1].Percentage())

	reports = nil
	eng.SetProgressCallback(nil)
	require.NoError(t, eng.Write(context.Background(), 0x0, pattern(length)))
	assert.Empty(t, reports)
}

func TestInvalidChunkSize(t *testing.T) {
	for _, size := range []int{0, -1, protocol.MaxLength + 1} {
		t.Run(fmt.Sprintf("size %d", size), func(t *testing.T) {
			target := sim.New()
			eng := New(target.Opener())

			err := eng.Write(context.Background(), 0, pattern(10), WithMaxChunk(size))
			var cse *ChunkSizeError
			require.ErrorAs(t, err, &cse)
			assert.Equal(t, size, cse.Size)

			_, err = eng.Read(context.Background(), 0, 10, WithMaxChunk(size))
			require.ErrorAs(t, err, &cse)

			assert.Equal(t, 0, target.Opens(), "nothing may be sent for a rejected request")
			assert.Equal(t, Disconnected, eng.State())
		})
	}
}

func TestNegativeReadLength(t *testing.T) {
	eng := New(sim.New().Opener())
	_, err := eng.Read(context.Background(), 0, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestAddressRange(t *testing.T) {
	target := sim.New()
	eng := New(target.Opener())
	ctx := context.Background()

	err := eng.Write(ctx, 0xFFFFFFF0, pattern(32))
	var are *AddressRangeError
	require.ErrorAs(t, err, &are)
	assert.Equal(t, uint32(0xFFFFFFF0), are.Address)

	// Exactly reaching the top is fine.
	require.NoError(t, eng.Write(ctx, 0xFFFFFFF0, pattern(16)))

	// A fixed address never advances.
	require.NoError(t, eng.Write(ctx, 0xFFFFFFFC, pattern(32), WithFixedAddress()))
}

func TestRead32Scenario(t *testing.T) {
	rec := &recordingDevice{Target: sim.New()}
	rec.Load(0xF0000000, []byte{0x78, 0x56, 0x34, 0x12})
	eng := New(rec.opener(), WithProfile(AsyncFIFO))

	v, err := eng.Read32(context.Background(), 0xF0000000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)

	require.Len(t, rec.writes, 1)
	assert.Equal(t, []byte{0x02, 0x04, 0xF0, 0x00, 0x00, 0x00}, rec.writes[0])
	assert.Equal(t, 0, rec.Pending(), "exactly 4 response bytes consumed")
}

func TestWord32RoundTrip(t *testing.T) {
	rec := &recordingDevice{Target: sim.New(sim.WithBurst(1))}
	eng := New(rec.opener())
	ctx := context.Background()

	require.NoError(t, eng.Write32(ctx, 0x12345678, 0xDEADBEEF))
	require.Len(t, rec.writes, 1)
	assert.Equal(t, []byte{0x01, 0x04, 0x12, 0x34, 0x56, 0x78, 0xEF, 0xBE, 0xAD, 0xDE}, rec.writes[0])
	assert.Equal(t, []byte{0xEF, 0xBE, 0xAD, 0xDE}, rec.Memory(0x12345678, 4))

	v, err := eng.Read32(ctx, 0x12345678)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v)
}

func TestMagicAddressIsNotRedirected(t *testing.T) {
	target := sim.New(sim.WithGPIOInput(0x99))
	eng := New(target.Opener())
	ctx := context.Background()

	require.NoError(t, eng.Write32(ctx, protocol.MagicAddr, 0x01))
	_, err := eng.Read32(ctx, protocol.MagicAddr)
	require.NoError(t, err)

	for _, c := range target.Commands() {
		assert.NotEqual(t, protocol.OpGPIOWrite, c.Opcode)
		assert.NotEqual(t, protocol.OpGPIORead, c.Opcode)
	}
	assert.Equal(t, uint8(0), target.GPIOOutput())
}

func TestGPIO(t *testing.T) {
	rec := &recordingDevice{Target: sim.New(sim.WithGPIOInput(0x3C))}
	eng := New(rec.opener(), WithProfile(AsyncFIFO))
	ctx := context.Background()

	require.NoError(t, eng.WriteGPIO(ctx, 0xAB))
	require.Len(t, rec.writes, 1)
	assert.Equal(t, []byte{0x03, 0xAB}, rec.writes[0])
	assert.Equal(t, 0, rec.reads, "gpio write must not read")
	assert.Equal(t, uint8(0xAB), rec.GPIOOutput())

	v, err := eng.ReadGPIO(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x3C), v)
	assert.Equal(t, []byte{0x04}, rec.writes[1])
}

func TestWordAndGPIODoNotReportProgress(t *testing.T) {
	calls := 0
	eng := New(sim.New().Opener(), WithProgressCallback(func(Progress) { calls++ }))
	ctx := context.Background()

	require.NoError(t, eng.Write32(ctx, 0, 1))
	_, err := eng.Read32(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, eng.WriteGPIO(ctx, 1))
	_, err = eng.ReadGPIO(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, calls)
}

func TestLazyConnect(t *testing.T) {
	target := sim.New()
	eng := New(target.Opener(), WithProfile(AsyncFIFO))
	ctx := context.Background()

	assert.Equal(t, Disconnected, eng.State())
	assert.Equal(t, 0, target.Opens())

	require.NoError(t, eng.Write32(ctx, 0, 1))
	require.NoError(t, eng.Write(ctx, 0, pattern(40)))
	_, err := eng.ReadGPIO(ctx)
	require.NoError(t, err)

	assert.Equal(t, Connected, eng.State())
	assert.Equal(t, 1, target.Opens())

	require.NoError(t, eng.Close())
	assert.Equal(t, Disconnected, eng.State())
	require.NoError(t, eng.Close())

	require.NoError(t, eng.Connect(ctx))
	assert.Equal(t, 2, target.Opens())
}

func TestSyncFIFOSetup(t *testing.T) {
	target := sim.New()
	eng := New(target.Opener(), WithProfile(SyncFIFO))

	require.NoError(t, eng.Connect(context.Background()))

	mode, flow := target.LinkMode()
	assert.Equal(t, transport.BitModeSyncFF, mode)
	assert.Equal(t, transport.FlowRTSCTS, flow)
	assert.Equal(t, 2, target.Flushes())
}

func TestAsyncFIFONoSetup(t *testing.T) {
	target := sim.New()
	eng := New(target.Opener(), WithProfile(AsyncFIFO))

	require.NoError(t, eng.Connect(context.Background()))

	mode, flow := target.LinkMode()
	assert.Equal(t, byte(0), mode)
	assert.Equal(t, transport.FlowNone, flow)
	assert.Equal(t, 0, target.Flushes())
}

func TestSyncFIFOSetupNeedsConfigurer(t *testing.T) {
	dev := &scriptedDevice{}
	logger := &MockLogger{}
	eng := New(openerFor(dev), WithProfile(SyncFIFO), WithLogger(logger))

	err := eng.WriteGPIO(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrNotConfigurable)
	assert.True(t, dev.closed, "device must be closed when setup fails")
	assert.Equal(t, Disconnected, eng.State())
	assert.Contains(t, logger.errorMsgs, "link setup failed")
}

func TestOpenError(t *testing.T) {
	openErr := errors.New("no such device")
	eng := New(transport.OpenerFunc(func(ctx context.Context) (transport.Device, error) {
		return nil, openErr
	}))

	_, err := eng.Read32(context.Background(), 0)
	assert.ErrorIs(t, err, openErr)
	assert.Equal(t, Disconnected, eng.State())
}

func TestTransportErrors(t *testing.T) {
	pipeErr := errors.New("usb pipe error")

	tests := []struct {
		name string
		dev  *scriptedDevice
		run  func(*Engine) error
		want error
	}{
		{
			name: "block write failure",
			dev:  &scriptedDevice{writeErr: pipeErr},
			run: func(e *Engine) error {
				return e.Write(context.Background(), 0, pattern(64))
			},
			want: pipeErr,
		},
		{
			name: "short write",
			dev:  &scriptedDevice{shortWrite: true},
			run: func(e *Engine) error {
				return e.Write32(context.Background(), 0, 1)
			},
			want: io.ErrShortWrite,
		},
		{
			name: "read failure",
			dev:  &scriptedDevice{readErr: pipeErr},
			run: func(e *Engine) error {
				_, err := e.Read32(context.Background(), 0)
				return err
			},
			want: pipeErr,
		},
		{
			name: "link closed mid response",
			dev:  &scriptedDevice{readChunks: [][]byte{{0x01, 0x02}}, readErr: io.EOF},
			run: func(e *Engine) error {
				_, err := e.Read(context.Background(), 0, 4)
				return err
			},
			want: io.ErrUnexpectedEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &MockLogger{}
			eng := New(openerFor(tt.dev), WithProfile(AsyncFIFO), WithLogger(logger))

			err := tt.run(eng)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWriteFailureStopsTransfer(t *testing.T) {
	dev := &scriptedDevice{writeErr: errors.New("gone")}
	var reports []Progress
	logger := &MockLogger{}
	eng := New(openerFor(dev), WithProfile(AsyncFIFO), WithLogger(logger),
		WithProgressCallback(func(p Progress) { reports = append(reports, p) }))

	err := eng.Write(context.Background(), 0x40, pattern(64))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at 0x00000040")

	// Only the initial report; the first chunk failed.
	require.Len(t, reports, 1)
	assert.Contains(t, logger.errorMsgs, "write failed")
}

func TestCancelledContext(t *testing.T) {
	target := sim.New()
	eng := New(target.Opener(), WithProfile(AsyncFIFO))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := eng.Write(ctx, 0, pattern(32))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, target.Opens())
}

func TestCancelBetweenChunks(t *testing.T) {
	target := sim.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := New(target.Opener(), WithProfile(AsyncFIFO), WithProgressCallback(func(p Progress) {
		if p.BytesDone == 32 {
			cancel()
		}
	}))

	err := eng.Write(ctx, 0, pattern(64))
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "after 32 of 64 bytes")
	assert.Len(t, target.Commands(), 2)
}

func TestLoggerMessages(t *testing.T) {
	logger := &MockLogger{}
	eng := New(sim.New().Opener(), WithProfile(AsyncFIFO), WithLogger(logger))
	ctx := context.Background()

	require.NoError(t, eng.Write(ctx, 0, pattern(20)))
	_, err := eng.Read(ctx, 0, 20)
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	assert.Equal(t, []string{"connected"}, logger.infoMsgs)
	assert.Equal(t, []string{"write complete", "read complete", "disconnected"}, logger.debugMsgs)
	assert.Empty(t, logger.errorMsgs)
}

func TestConcurrentCallersDoNotInterleave(t *testing.T) {
	target := sim.New(sim.WithBurst(1))
	eng := New(target.Opener(), WithProfile(SyncFIFO))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			addr := uint32(0x1000 * (g + 1))
			for i := 0; i < 20; i++ {
				value := uint32(g<<16 | i)
				if err := eng.Write32(ctx, addr, value); err != nil {
					errs <- err
					return
				}
				got, err := eng.Read32(ctx, addr)
				if err != nil {
					errs <- err
					return
				}
				if got != value {
					errs <- fmt.Errorf("goroutine %d: got 0x%08X, want 0x%08X", g, got, value)
					return
				}
			}
			data := pattern(100 + g)
			if err := eng.Write(ctx, addr+0x100, data); err != nil {
				errs <- err
				return
			}
			back, err := eng.Read(ctx, addr+0x100, len(data))
			if err != nil {
				errs <- err
				return
			}
			if err := Compare(addr+0x100, data, back); err != nil {
				errs <- err
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 1, target.Opens())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "state(7)", State(7).String())
}
