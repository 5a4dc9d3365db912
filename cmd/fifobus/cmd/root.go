// Package cmd implements the fifobus CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moffa90/go-fifobus/bus"
	"github.com/moffa90/go-fifobus/internal/config"
	"github.com/moffa90/go-fifobus/internal/logging"
	"github.com/moffa90/go-fifobus/sim"
	"github.com/moffa90/go-fifobus/transport"
)

// Version is set at build time
var Version = "0.1.0"

// exitError carries a process exit code out of a command without printing anything.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app holds the state shared by one invocation of the command tree.
type app struct {
	out    io.Writer
	errOut io.Writer

	// Global flags
	linkType   string
	device     string
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
	eng    *bus.Engine

	// sim is the target used by -t sim; created on demand
	sim *sim.Target
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fifobus",
		Short: "Access target memory over an FTDI FIFO bus bridge",
		Long: `fifobus reads and writes the memory of a target attached through an
FTDI FT2232H/FT232H style FIFO link.

Link types:
  ftdi        245 synchronous FIFO through libusb (default)
  ftdi_async  asynchronous FIFO through libusb
  serial      asynchronous FIFO exposed as a tty (-d /dev/ttyUSB1)
  sim         in-memory simulated target, for dry runs

Devices are named SERIAL[.IFACE], e.g. FT3XO4LY.1. Numbers accept 0x, 0o
and 0b prefixes.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.linkType, "type", "t", config.TypeFTDI,
		fmt.Sprintf("Link type: %s", strings.Join(config.Types, ", ")))
	flags.StringVarP(&a.device, "device", "d", "", "Device ID SERIAL.IFACE (e.g. FT3XO4LY.1) or tty path")
	flags.StringVar(&a.configPath, "config", "", "Config file (default: ~/.config/fifobus/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newLoadCmd(a),
		newPeekCmd(a),
		newPokeCmd(a),
		newGPIOCmd(a),
	)

	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	a := newApp(os.Stdout, os.Stderr)
	return a.execute(ctx, newRootCmd(a), os.Args[1:])
}

func (a *app) execute(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	a.teardown()
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}

	pterm.Error.WithWriter(a.errOut).Println(err.Error())
	return 1
}

// setup merges flags over the config file and builds the logger and engine.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("type") {
		cfg.Type = a.linkType
	}
	if flags.Changed("device") {
		cfg.Device = a.device
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logging.NewWithWriter(cfg.LogLevel, a.errOut)
	if err != nil {
		return err
	}

	a.eng, err = a.newEngine()
	return err
}

// teardown closes the device whether or not the command failed.
func (a *app) teardown() {
	if a.eng != nil {
		if err := a.eng.Close(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// newEngine selects the profile and opener for the configured link type.
func (a *app) newEngine() (*bus.Engine, error) {
	log := logging.NewAdapter(a.logger)

	var (
		profile bus.Profile
		opener  transport.Opener
	)

	switch a.cfg.Type {
	case config.TypeFTDI, config.TypeFTDIAsync:
		profile = bus.SyncFIFO
		if a.cfg.Type == config.TypeFTDIAsync {
			profile = bus.AsyncFIFO
		}

		id, err := transport.ParseIdentifier(a.cfg.Device, profile.DefaultInterface)
		if err != nil {
			return nil, err
		}
		opener = transport.OpenerFunc(func(ctx context.Context) (transport.Device, error) {
			dev, err := transport.OpenFTDI(ctx, id, log)
			if err != nil {
				return nil, err
			}
			return dev, nil
		})

	case config.TypeSerial:
		profile = bus.AsyncFIFO
		opts := transport.SerialOptions{Port: a.cfg.Device, BaudRate: a.cfg.Baud}
		opener = transport.OpenerFunc(func(ctx context.Context) (transport.Device, error) {
			dev, err := transport.OpenSerial(ctx, opts)
			if err != nil {
				return nil, err
			}
			return dev, nil
		})

	case config.TypeSim:
		profile = bus.SyncFIFO
		if a.sim == nil {
			a.sim = sim.New()
		}
		opener = a.sim.Opener()

	default:
		return nil, fmt.Errorf("unknown link type %q", a.cfg.Type)
	}

	a.logger.Debug("link selected",
		zap.String("type", a.cfg.Type),
		zap.String("profile", profile.Name),
		zap.String("device", a.cfg.Device),
	)

	return bus.New(opener,
		bus.WithProfile(profile),
		bus.WithWriteChunk(a.cfg.WriteChunk),
		bus.WithReadChunk(a.cfg.ReadChunk),
		bus.WithLogger(log),
	), nil
}
