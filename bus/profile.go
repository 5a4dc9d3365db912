package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moffa90/go-fifobus/transport"
)

// Profile is the fixed set of chunk sizes and connect-time setup for one
// kind of FIFO link.
type Profile struct {
	// Name identifies the profile on the command line
	Name string

	// WriteChunk is the default maximum payload per write command
	WriteChunk int

	// ReadChunk is the default maximum payload per read command
	ReadChunk int

	// DefaultInterface is the FTDI channel used when the identifier names none
	DefaultInterface int

	// RetryEmptyReads keeps polling when the link returns 0 bytes.
	// When false, an empty read is a transport error.
	RetryEmptyReads bool

	// Setup runs once, right after the device is opened (optional)
	Setup func(ctx context.Context, dev transport.Device) error
}

// syncSettleDelay is the pause between the first flush and the mode switch.
const syncSettleDelay = 10 * time.Millisecond

var (
	// AsyncFIFO is the FT245-style asynchronous FIFO link. The bridge accepts
	// up to 2048 bytes per write; 16 keeps the target's receive FIFO from overflowing.
	AsyncFIFO = Profile{
		Name:             "ftdi_async",
		WriteChunk:       16,
		ReadChunk:        32,
		DefaultInterface: 2,
	}

	// SyncFIFO is the 245 synchronous FIFO link with RTS/CTS handshake.
	// Its data arrives in bursts, so empty reads are retried.
	SyncFIFO = Profile{
		Name:             "ftdi",
		WriteChunk:       64,
		ReadChunk:        64,
		DefaultInterface: 1,
		RetryEmptyReads:  true,
		Setup:            setupSyncFIFO,
	}
)

// Profiles lists the built-in profiles.
func Profiles() []Profile {
	return []Profile{SyncFIFO, AsyncFIFO}
}

// ProfileByName returns the built-in profile with the given name.
func ProfileByName(name string) (Profile, error) {
	for _, p := range Profiles() {
		if p.Name == name {
			return p, nil
		}
	}

	names := make([]string, 0, len(Profiles()))
	for _, p := range Profiles() {
		names = append(names, p.Name)
	}
	return Profile{}, fmt.Errorf("unknown profile %q (valid: %s)", name, strings.Join(names, ", "))
}

// setupSyncFIFO flushes the link, waits for it to settle, switches the
// channel to sync FIFO mode with hardware handshake and flushes again.
func setupSyncFIFO(ctx context.Context, dev transport.Device) error {
	cfg, ok := dev.(transport.Configurer)
	if !ok {
		return fmt.Errorf("sync FIFO setup: %w", transport.ErrNotConfigurable)
	}

	if err := dev.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	timer := time.NewTimer(syncSettleDelay)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}

	if err := cfg.SetBitMode(0x00, transport.BitModeSyncFF); err != nil {
		return err
	}
	if err := cfg.SetFlowControl(transport.FlowRTSCTS); err != nil {
		return err
	}
	if err := dev.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	return nil
}
