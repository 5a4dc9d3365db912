package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/moffa90/go-fifobus/protocol"
	"github.com/moffa90/go-fifobus/transport"
)

// State is the connection state of an Engine.
type State int

const (
	// Disconnected means no device is open; the next operation opens one
	Disconnected State = iota

	// Connected means the device is open and the profile setup has run
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Engine drives the bus protocol over a single transport device.
//
// Engine is safe for concurrent use.
type Engine struct {
	opener transport.Opener
	config Config

	mu  sync.Mutex
	dev transport.Device
}

// New creates a new Engine that opens its device through opener on first use.
//
// Example:
//
//	eng := bus.New(opener,
//	    bus.WithProfile(bus.AsyncFIFO),
//	    bus.WithProgressCallback(progressFunc),
//	)
func New(opener transport.Opener, opts ...Option) *Engine {
	if opener == nil {
		panic("opener cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Engine{
		opener: opener,
		config: cfg,
	}
}

// Profile returns the profile the engine was created with.
func (e *Engine) Profile() Profile {
	return e.config.Profile
}

// State reports whether the device is open.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dev == nil {
		return Disconnected
	}
	return Connected
}

// SetProgressCallback replaces the progress callback. nil disables reporting.
func (e *Engine) SetProgressCallback(callback ProgressCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.config.ProgressCallback = callback
}

// Connect opens the device and runs the profile setup if that has not
// happened yet. Calling it is optional; every operation connects on demand.
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.connect(ctx)
}

// Close closes the device if it is open and implements io.Closer.
// The engine returns to Disconnected; a later operation reopens the device.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dev == nil {
		return nil
	}

	dev := e.dev
	e.dev = nil
	e.logDebug("disconnected", "profile", e.config.Profile.Name)

	if c, ok := dev.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Write writes data to the bus starting at addr, in chunks of at most the
// profile's write chunk size.
//
// Example:
//
//	err := eng.Write(ctx, 0x1000, image)
//	err := eng.Write(ctx, fifoPort, samples, bus.WithFixedAddress())
func (e *Engine) Write(ctx context.Context, addr uint32, data []byte, opts ...TransferOption) error {
	tc := newTransferConfig(e.config.Profile.WriteChunk, opts)
	if err := checkTransfer(addr, len(data), tc); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.connect(ctx); err != nil {
		return err
	}

	startTime := time.Now()
	total := len(data)
	base := addr

	e.reportProgress(Progress{
		Operation:  OperationWrite,
		Address:    base,
		BytesTotal: total,
	})

	done := 0
	for done < total {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled after %d of %d bytes: %w", done, total, err)
		}

		n := min(tc.maxChunk, total-done)

		cmd, err := protocol.BuildWriteCmd(addr, data[done:done+n])
		if err != nil {
			return err
		}
		if err := e.send(cmd); err != nil {
			e.logError("write failed", "address", fmt.Sprintf("0x%08X", addr), "error", err)
			return fmt.Errorf("write %d bytes at 0x%08X: %w", n, addr, err)
		}

		done += n

		e.reportProgress(Progress{
			Operation:   OperationWrite,
			Address:     base,
			BytesDone:   done,
			BytesTotal:  total,
			ElapsedTime: time.Since(startTime),
		})

		if tc.increment {
			addr += uint32(n)
		}
	}

	e.logDebug("write complete",
		"address", fmt.Sprintf("0x%08X", base),
		"bytes", total,
		"chunk", tc.maxChunk,
		"increment", tc.increment,
		"elapsed", time.Since(startTime).String(),
	)

	return nil
}

// Read reads length bytes from the bus starting at addr, in chunks of at
// most the profile's read chunk size.
//
// Example:
//
//	data, err := eng.Read(ctx, 0x1000, 256)
func (e *Engine) Read(ctx context.Context, addr uint32, length int, opts ...TransferOption) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("read length %d is negative", length)
	}

	tc := newTransferConfig(e.config.Profile.ReadChunk, opts)
	if err := checkTransfer(addr, length, tc); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.connect(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now()
	base := addr
	data := make([]byte, length)

	e.reportProgress(Progress{
		Operation:  OperationRead,
		Address:    base,
		BytesTotal: length,
	})

	done := 0
	for done < length {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cancelled after %d of %d bytes: %w", done, length, err)
		}

		n := min(tc.maxChunk, length-done)

		cmd, err := protocol.BuildReadCmd(addr, n)
		if err != nil {
			return nil, err
		}
		if err := e.send(cmd); err != nil {
			e.logError("read request failed", "address", fmt.Sprintf("0x%08X", addr), "error", err)
			return nil, fmt.Errorf("request %d bytes at 0x%08X: %w", n, addr, err)
		}
		if err := e.receive(data[done : done+n]); err != nil {
			e.logError("read response failed", "address", fmt.Sprintf("0x%08X", addr), "error", err)
			return nil, fmt.Errorf("read %d bytes at 0x%08X: %w", n, addr, err)
		}

		done += n

		e.reportProgress(Progress{
			Operation:   OperationRead,
			Address:     base,
			BytesDone:   done,
			BytesTotal:  length,
			ElapsedTime: time.Since(startTime),
		})

		if tc.increment {
			addr += uint32(n)
		}
	}

	e.logDebug("read complete",
		"address", fmt.Sprintf("0x%08X", base),
		"bytes", length,
		"chunk", tc.maxChunk,
		"increment", tc.increment,
		"elapsed", time.Since(startTime).String(),
	)

	return data, nil
}

// connect opens the device on first use. Caller must hold e.mu.
func (e *Engine) connect(ctx context.Context) error {
	if e.dev != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dev, err := e.opener.Open(ctx)
	if err != nil {
		e.logError("open failed", "profile", e.config.Profile.Name, "error", err)
		return fmt.Errorf("connect: %w", err)
	}

	if setup := e.config.Profile.Setup; setup != nil {
		if err := setup(ctx, dev); err != nil {
			if c, ok := dev.(io.Closer); ok {
				_ = c.Close()
			}
			e.logError("link setup failed", "profile", e.config.Profile.Name, "error", err)
			return fmt.Errorf("connect: %w", err)
		}
	}

	e.dev = dev
	e.logInfo("connected",
		"profile", e.config.Profile.Name,
		"write_chunk", e.config.Profile.WriteChunk,
		"read_chunk", e.config.Profile.ReadChunk,
	)

	return nil
}

// send writes a complete command frame. Caller must hold e.mu.
func (e *Engine) send(cmd []byte) error {
	n, err := e.dev.Write(cmd)
	if err != nil {
		return err
	}
	if n != len(cmd) {
		return io.ErrShortWrite
	}
	return nil
}

// receive fills p from the device. Caller must hold e.mu.
//
// The link may hand back bytes in arbitrarily small pieces. A read that
// returns nothing is retried only when the profile allows it.
func (e *Engine) receive(p []byte) error {
	got := 0
	for got < len(p) {
		n, err := e.dev.Read(p[got:])
		got += n
		if err != nil {
			if got == len(p) {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if n == 0 && !e.config.Profile.RetryEmptyReads {
			return io.ErrNoProgress
		}
	}
	return nil
}

// exchange sends cmd and, when resp is non-empty, fills resp with the reply.
func (e *Engine) exchange(ctx context.Context, cmd []byte, resp []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.connect(ctx); err != nil {
		return err
	}
	if err := e.send(cmd); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	if len(resp) == 0 {
		return nil
	}
	if err := e.receive(resp); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return nil
}

func newTransferConfig(defaultChunk int, opts []TransferOption) transferConfig {
	tc := transferConfig{
		increment: true,
		maxChunk:  defaultChunk,
	}
	for _, opt := range opts {
		opt(&tc)
	}
	return tc
}

// checkTransfer rejects requests that cannot be framed, before anything is sent.
func checkTransfer(addr uint32, length int, tc transferConfig) error {
	if tc.maxChunk < 1 || tc.maxChunk > protocol.MaxLength {
		return &ChunkSizeError{Size: tc.maxChunk}
	}
	if tc.increment && uint64(addr)+uint64(length) > 1<<32 {
		return &AddressRangeError{Address: addr, Length: length}
	}
	return nil
}

// reportProgress calls the progress callback if configured.
func (e *Engine) reportProgress(progress Progress) {
	if e.config.ProgressCallback != nil {
		e.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (e *Engine) logDebug(msg string, keysAndValues ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (e *Engine) logInfo(msg string, keysAndValues ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (e *Engine) logError(msg string, keysAndValues ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Error(msg, keysAndValues...)
	}
}
