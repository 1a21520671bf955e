//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"time"

	"gplotter/standalone/config"
	"gplotter/standalone/manager"
)

func main() {
	// Wait for USB enumeration
	time.Sleep(time.Second)
	if err := InitUSB(); err != nil {
		fail()
	}

	port := usbSerial{}
	m := manager.NewManagerWithConfig(config.DefaultPlotterConfig(), port, nil, nil)
	if err := m.Initialize(NewRPGPIODriver()); err != nil {
		fail()
	}

	blink(3, 200*time.Millisecond)

	// m30 ends the program; start over for the next one
	for {
		loop, err := m.PollingLoop(port)
		if err != nil {
			fail()
		}
		if err := loop.Run(context.Background()); err != nil {
			// read failure; flag it and wait for the next program
			blink(5, 100*time.Millisecond)
		}
	}
}

func blink(n int, period time.Duration) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < n; i++ {
		led.High()
		time.Sleep(period)
		led.Low()
		time.Sleep(period)
	}
}

// fail flashes the LED rapidly forever
func fail() {
	for {
		blink(1, 100*time.Millisecond)
	}
}
