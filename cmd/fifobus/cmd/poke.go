package cmd

import (
	"github.com/spf13/cobra"
)

func newPokeCmd(a *app) *cobra.Command {
	var address, value string

	cmd := &cobra.Command{
		Use:     "poke",
		Short:   "Write a 32-bit word",
		Example: `  fifobus poke -a 0x1000 -v 0xDEADBEEF`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(address)
			if err != nil {
				return err
			}
			v, err := parseUint(value, 32)
			if err != nil {
				return err
			}
			return a.eng.Write32(cmd.Context(), addr, uint32(v))
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Address to write")
	cmd.Flags().StringVarP(&value, "value", "v", "", "Value to write")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}
