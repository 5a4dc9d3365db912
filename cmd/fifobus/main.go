// Command fifobus reads and writes target memory over an FTDI FIFO bus bridge.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/moffa90/go-fifobus/cmd/fifobus/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cmd.Execute(ctx)
	stop()
	os.Exit(code)
}
