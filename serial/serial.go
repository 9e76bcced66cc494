// Package serial opens serial devices. Open is a variable so tests can substitute the transport.
package serial

import (
	"io"
	"time"

	"github.com/pkg/errors"
	ser "go.bug.st/serial"
	"go.uber.org/multierr"
)

// Options to be passed to Open(). Frames are always 8N1.
type Options struct {
	BaudRate    int
	ReadTimeout time.Duration
}

func (o Options) mode() *ser.Mode {
	return &ser.Mode{
		BaudRate: o.BaudRate,
		DataBits: 8,
		Parity:   ser.NoParity,
		StopBits: ser.OneStopBit,
	}
}

// Open attempts to open a serial device on the given path. It's a variable
// in case you need to override it during tests.
var Open = func(devicePath string, options Options) (io.ReadWriteCloser, error) {
	device, err := ser.Open(devicePath, options.mode())
	if err != nil {
		return nil, err
	}
	if options.ReadTimeout > 0 {
		if err := device.SetReadTimeout(options.ReadTimeout); err != nil {
			return nil, errors.Wrap(multierr.Combine(err, device.Close()), "setting read timeout")
		}
	}
	if err := device.ResetInputBuffer(); err != nil {
		return nil, errors.Wrap(multierr.Combine(err, device.Close()), "flushing input buffer")
	}

	return device, nil
}
