package bus

import "github.com/moffa90/go-fifobus/protocol"

// Config holds the engine configuration.
type Config struct {
	// Profile selects chunk sizes, link setup and read policy.
	// Default is SyncFIFO.
	Profile Profile

	// ProgressCallback is called during block transfers (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Profile: SyncFIFO,
	}
}

// Option is a functional option for configuring the Engine.
type Option func(*Config)

// WithProfile selects the link profile.
//
// Example:
//
//	eng := bus.New(opener, bus.WithProfile(bus.AsyncFIFO))
func WithProfile(p Profile) Option {
	return func(c *Config) {
		c.Profile = p
	}
}

// WithProgressCallback sets a callback function to track block transfers.
//
// Example:
//
//	eng := bus.New(opener,
//	    bus.WithProgressCallback(func(p bus.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage())
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for engine operations.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithWriteChunk overrides the profile's default write chunk size.
// Values outside 1-protocol.MaxLength are ignored.
func WithWriteChunk(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= protocol.MaxLength {
			c.Profile.WriteChunk = size
		}
	}
}

// WithReadChunk overrides the profile's default read chunk size.
// Values outside 1-protocol.MaxLength are ignored.
func WithReadChunk(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= protocol.MaxLength {
			c.Profile.ReadChunk = size
		}
	}
}

// transferConfig holds per-call block transfer settings.
type transferConfig struct {
	increment bool
	maxChunk  int
}

// TransferOption adjusts a single Read or Write call.
type TransferOption func(*transferConfig)

// WithFixedAddress sends every chunk to the base address instead of
// advancing it, for streaming into or out of a FIFO-mapped register.
func WithFixedAddress() TransferOption {
	return func(c *transferConfig) {
		c.increment = false
	}
}

// WithMaxChunk overrides the chunk size for one call. Unlike the engine
// options, an invalid size makes the call fail with ChunkSizeError.
func WithMaxChunk(size int) TransferOption {
	return func(c *transferConfig) {
		c.maxChunk = size
	}
}
