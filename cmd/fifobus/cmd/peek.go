package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPeekCmd(a *app) *cobra.Command {
	var (
		address string
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Read a 32-bit word",
		Long: `Read a 32-bit little-endian word from target memory.

With -q nothing is printed and the process exit code is set to the low
8 bits of the value.`,
		Example: `  fifobus peek -a 0xF0000000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(address)
			if err != nil {
				return err
			}

			value, err := a.eng.Read32(cmd.Context(), addr)
			if err != nil {
				return err
			}

			if quiet {
				if code := int(value & 0xFF); code != 0 {
					return &exitError{code: code}
				}
				return nil
			}

			fmt.Fprintf(a.out, "%08x: 0x%08x (%d)\n", addr, value, value)
			return nil
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Address to read")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode: set exit code to the value read")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}
