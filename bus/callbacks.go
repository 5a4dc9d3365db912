package bus

import "time"

// Operation names reported in Progress.
const (
	OperationRead  = "read"
	OperationWrite = "write"
)

// Progress contains information about a block transfer in flight.
// Passed to ProgressCallback during Read and Write.
type Progress struct {
	// Operation is OperationRead or OperationWrite
	Operation string

	// Address is the base address of the transfer
	Address uint32

	// BytesDone is the number of bytes transferred so far
	BytesDone int

	// BytesTotal is the length of the whole transfer
	BytesTotal int

	// ElapsedTime is the time since the transfer started
	ElapsedTime time.Duration
}

// Percentage returns completion as 0.0 to 100.0. An empty transfer is complete.
func (p Progress) Percentage() float64 {
	if p.BytesTotal == 0 {
		return 100
	}
	return float64(p.BytesDone) * 100 / float64(p.BytesTotal)
}

// ProgressCallback is called synchronously from the transferring goroutine.
// Implementations should return quickly; the link sits idle while they run.
// The engine lock is held during the call, so the callback must not call
// back into the Engine.
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the engine.
// This allows integration with any logging framework.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
