// Package serial receives line-oriented telemetry from the bin's
// microcontroller (load cell, lid switch) over a serial port.
package serial

import (
	"io"
	"time"

	ser "go.bug.st/serial"
)

// Options to be passed to Open.
type Options struct {
	BaudRate int
	DataBits int
	StopBits StopBits
	Parity   Parity

	// ReadTimeout in milliseconds. Zero blocks until data arrives;
	// the listener relies on Close to unblock a pending read.
	ReadTimeout int
}

// Parity describes a serial port parity setting.
type Parity int

const (
	// NoParity disables parity control (default).
	NoParity Parity = iota
	// OddParity enables odd-parity check.
	OddParity
	// EvenParity enables even-parity check.
	EvenParity
)

// StopBits describes a serial port stop bits setting.
type StopBits int

const (
	// OneStopBit sets 1 stop bit (default).
	OneStopBit StopBits = iota
	// OnePointFiveStopBits sets 1.5 stop bits.
	OnePointFiveStopBits
	// TwoStopBits sets 2 stop bits.
	TwoStopBits
)

// DefaultOptions returns the microcontroller's wire settings, 115200 8N1.
func DefaultOptions() Options {
	return Options{
		BaudRate: 115200,
		DataBits: 8,
		StopBits: OneStopBit,
		Parity:   NoParity,
	}
}

// Open attempts to open a serial device on the given path. It's a
// variable so tests can substitute a pipe for a device node.
var Open = func(devicePath string, options Options) (io.ReadWriteCloser, error) {
	mode := &ser.Mode{
		BaudRate: options.BaudRate,
		DataBits: options.DataBits,
		StopBits: ser.StopBits(options.StopBits),
		Parity:   ser.Parity(options.Parity),
	}

	device, err := ser.Open(devicePath, mode)
	if err != nil {
		return nil, err
	}

	if options.ReadTimeout > 0 {
		timeout := time.Duration(options.ReadTimeout) * time.Millisecond
		if err := device.SetReadTimeout(timeout); err != nil {
			device.Close()
			return nil, err
		}
	}

	return device, nil
}
