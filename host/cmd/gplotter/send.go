package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gplotter/host/sender"
	"gplotter/host/serial"
)

var sendCmd = &cobra.Command{
	Use:   "send FILE",
	Short: "Stream a G-code file to a plotter on a serial port",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, _ := cmd.Flags().GetString("device")
		baud, _ := cmd.Flags().GetInt("baud")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		sc := serial.DefaultConfig(device)
		sc.Baud = baud
		s, err := sender.Connect(sc, logger)
		if err != nil {
			return err
		}
		defer s.Close()
		s.SetTimeout(timeout)

		banner, err := s.Handshake(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), banner)

		res, err := s.Stream(cmd.Context(), f)
		fmt.Fprintf(cmd.OutOrStdout(), "sent %d commands, %d rejected\n", res.Sent, res.Failed)
		return err
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringP("device", "d", "/dev/ttyUSB0", "Serial device of the plotter")
	sendCmd.Flags().IntP("baud", "b", 115200, "Serial baud rate")
	sendCmd.Flags().Duration("timeout", sender.DefaultTimeout, "How long to wait for each reply")
}
