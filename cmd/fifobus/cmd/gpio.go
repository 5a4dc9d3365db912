package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGPIOCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gpio",
		Short: "Read or drive the bridge's 8-bit GPIO port",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "read",
			Short: "Read the GPIO inputs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.eng.ReadGPIO(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "gpio: 0x%02x\n", v)
				return nil
			},
		},
		&cobra.Command{
			Use:     "write <value>",
			Short:   "Drive the GPIO outputs",
			Example: `  fifobus gpio write 0x81`,
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := parseUint(args[0], 8)
				if err != nil {
					return err
				}
				return a.eng.WriteGPIO(cmd.Context(), uint8(v))
			},
		},
	)

	return cmd
}
