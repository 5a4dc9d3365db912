package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-fifobus/bus"
	"github.com/moffa90/go-fifobus/image"
)

type loadOptions struct {
	file    string
	address string
	size    int
	verify  bool
}

func newLoadCmd(a *app) *cobra.Command {
	opts := &loadOptions{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Write a file to target memory",
		Long: `Write a raw binary or Intel HEX file to target memory.

Raw files are written at the load address. Intel HEX records are written at
their own addresses plus the load address.`,
		Example: `  fifobus load -f boot.bin -a 0x10000000 -v
  fifobus -t ftdi_async -d FT3XO4LY.2 load -f app.hex`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLoad(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "File to load (.hex/.ihex/.ihx for Intel HEX)")
	cmd.Flags().StringVarP(&opts.address, "address", "a", "0", "Load address")
	cmd.Flags().IntVarP(&opts.size, "size", "s", -1, "Size override: load at most this many bytes")
	cmd.Flags().BoolVarP(&opts.verify, "verify", "v", false, "Read back and compare after writing")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (a *app) runLoad(ctx context.Context, opts *loadOptions) error {
	base, err := parseAddress(opts.address)
	if err != nil {
		return err
	}

	img, err := image.Load(opts.file, base)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.file, err)
	}
	img.Truncate(opts.size)

	total := img.Size()
	if len(img.Segments) == 1 {
		fmt.Fprintf(a.out, "Load: %d bytes to 0x%08x\n", total, img.Segments[0].Address)
	} else {
		fmt.Fprintf(a.out, "Load: %d bytes in %d segments\n", total, len(img.Segments))
	}

	err = a.withProgress(ctx, "Write", total, img, func(ctx context.Context, seg image.Segment) error {
		return a.eng.Write(ctx, seg.Address, seg.Data)
	})
	if err != nil {
		return err
	}

	if !opts.verify {
		pterm.Success.WithWriter(a.out).Printfln("Wrote %d bytes", total)
		return nil
	}

	err = a.withProgress(ctx, "Verify", total, img, func(ctx context.Context, seg image.Segment) error {
		return a.eng.Verify(ctx, seg.Address, seg.Data)
	})

	var mismatch *bus.VerificationError
	if errors.As(err, &mismatch) {
		return fmt.Errorf("verify failed: data mismatch @ 0x%08x: 0x%02x != 0x%02x",
			mismatch.Address, mismatch.Actual, mismatch.Expected)
	}
	if err != nil {
		return err
	}

	pterm.Success.WithWriter(a.out).Printfln("Verify: done, %d bytes match", total)
	return nil
}

// withProgress runs fn over every segment of img behind a single progress bar.
func (a *app) withProgress(ctx context.Context, title string, total int, img *image.Image,
	fn func(context.Context, image.Segment) error) error {
	if total == 0 {
		return nil
	}

	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle(title).
		WithWriter(a.errOut).
		Start()
	if err != nil {
		return err
	}
	defer func() { _, _ = bar.Stop() }()

	last := 0
	a.eng.SetProgressCallback(func(p bus.Progress) {
		if p.BytesDone > last {
			bar.Add(p.BytesDone - last)
		}
		last = p.BytesDone
	})
	defer a.eng.SetProgressCallback(nil)

	for _, seg := range img.Segments {
		last = 0
		if err := fn(ctx, seg); err != nil {
			return err
		}
	}
	return nil
}
