package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gplotter/core"
	"gplotter/host/serial"
	"gplotter/metrics"
	"gplotter/protocol"
	"gplotter/standalone"
	"gplotter/standalone/gcode"
	"gplotter/standalone/manager"
	"gplotter/standalone/planner"
)

// host builds drive an in-memory pin bank the size of an RP2040's
const hostMaxPin = 29

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Accept G-code on stdin or a serial port and plot it",
	Long: `Runs the plotter loop. Without --device commands are read from stdin and
replies go to stdout, which lets a sender talk to gplotter over a pipe or a
socat PTY. With --dry-run no motors are driven and every motion primitive is
logged instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		device, _ := cmd.Flags().GetString("device")
		baud, _ := cmd.Flags().GetInt("baud")
		poll, _ := cmd.Flags().GetBool("poll")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var observer standalone.Observer = standalone.NopObserver{}
		if metricsAddr != "" {
			collector := metrics.NewCollector()
			srv := metrics.NewServer(metricsAddr, collector, logger)
			if _, err := srv.Start(); err != nil {
				return fmt.Errorf("start metrics server: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					logger.Warn("metrics server shutdown", "error", err)
				}
			}()
			observer = collector
		}

		var in io.Reader = cmd.InOrStdin()
		var out io.Writer = cmd.OutOrStdout()
		if device != "" {
			sc := serial.DefaultConfig(device)
			sc.Baud = baud
			port, err := serial.Open(sc)
			if err != nil {
				return err
			}
			defer port.Close()
			if err := port.Flush(); err != nil {
				logger.Warn("flush serial port", "error", err)
			}
			in, out = port, port
			logger.Info("listening on serial port", "device", device, "baud", baud)
		}

		m := manager.NewManagerWithConfig(cfg, out, logger, observer)
		if dryRun {
			rec := planner.NewRecorder(logger)
			rec.MaxOps = 1000
			err = m.InitializeSink(rec)
		} else {
			err = m.Initialize(core.NewMemoryGPIO(hostMaxPin))
		}
		if err != nil {
			return err
		}

		var loop *gcode.Loop
		if poll {
			uart := protocol.NewAsyncUART(in, out, 0)
			defer uart.Close()
			loop, err = m.PollingLoop(uart)
		} else {
			loop, err = m.BlockingLoop(in)
		}
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = loop.Run(ctx)
		if errors.Is(err, context.Canceled) {
			logger.Info("stopped")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("device", "d", "", "Serial device to listen on (default: stdin/stdout)")
	runCmd.Flags().IntP("baud", "b", 115200, "Serial baud rate")
	runCmd.Flags().Bool("poll", false, "Use the non-blocking polling loop with unsolicited status reports")
	runCmd.Flags().Bool("dry-run", false, "Log motion primitives instead of driving motors")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :2112)")
}
