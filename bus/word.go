package bus

import (
	"context"
	"fmt"

	"github.com/moffa90/go-fifobus/protocol"
)

// Read32 reads one 32-bit word with a single read command.
// No chunking and no progress reports. protocol.MagicAddr is not special here.
func (e *Engine) Read32(ctx context.Context, addr uint32) (uint32, error) {
	cmd, err := protocol.BuildRead32Cmd(addr)
	if err != nil {
		return 0, err
	}

	resp := make([]byte, protocol.WordSize)
	if err := e.exchange(ctx, cmd, resp); err != nil {
		return 0, fmt.Errorf("read32 at 0x%08X: %w", addr, err)
	}

	return protocol.ParseWord32(resp)
}

// Write32 writes one 32-bit word with a single write command.
func (e *Engine) Write32(ctx context.Context, addr uint32, value uint32) error {
	cmd, err := protocol.BuildWrite32Cmd(addr, value)
	if err != nil {
		return err
	}

	if err := e.exchange(ctx, cmd, nil); err != nil {
		return fmt.Errorf("write32 at 0x%08X: %w", addr, err)
	}
	return nil
}

// ReadGPIO samples the bus master's GPIO input byte.
func (e *Engine) ReadGPIO(ctx context.Context) (uint8, error) {
	resp := make([]byte, protocol.GPIOResponseSize)
	if err := e.exchange(ctx, protocol.BuildGPIOReadCmd(), resp); err != nil {
		return 0, fmt.Errorf("read gpio: %w", err)
	}

	return protocol.ParseGPIO(resp)
}

// WriteGPIO drives the bus master's GPIO output byte. The device sends nothing back.
func (e *Engine) WriteGPIO(ctx context.Context, value uint8) error {
	if err := e.exchange(ctx, protocol.BuildGPIOWriteCmd(value), nil); err != nil {
		return fmt.Errorf("write gpio: %w", err)
	}
	return nil
}
