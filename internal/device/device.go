package device

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	hid "github.com/sstallion/go-hid"

	"github.com/3axap4eHko/litra/internal/constants"
	"github.com/3axap4eHko/litra/internal/protocol"
)

// ErrNotFound is returned when no Litra Glow is plugged in (or the HID
// handle cannot be opened, e.g. missing udev permissions on Linux).
var ErrNotFound = errors.New("litra device not found")

// Lamp is the write/read surface of an opened device, narrowed so the
// controller and CLI can be tested against a mock.
type Lamp interface {
	Send(cmd protocol.Command) error
	TryRead() (protocol.Response, bool, error)
	Close() error
}

// OpenFunc opens a lamp; the controller holds one so it can re-open the
// device after an unplug.
type OpenFunc func() (Lamp, error)

type Device struct {
	logger *log.Logger
	hid    *hid.Device
}

// Open finds and opens the first Litra Glow on the bus.
func Open(logger *log.Logger) (Lamp, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("error initialising hid api: %w", err)
	}

	logger.Debugf("looking for device vid=%04x pid=%04x", protocol.VendorID, protocol.ProductID)
	d, err := hid.OpenFirst(protocol.VendorID, protocol.ProductID)
	if err != nil {
		logger.Debugf("open failed: %v", err)
		return nil, ErrNotFound
	}

	logger.Debug("device opened")
	return &Device{logger: logger, hid: d}, nil
}

// Send writes one output report to the lamp.
func (d *Device) Send(cmd protocol.Command) error {
	data := cmd.Bytes()
	d.logger.Debugf("sending %s: % 02x", cmd, data[:8])
	if _, err := d.hid.Write(data); err != nil {
		return fmt.Errorf("error writing %s report: %w", cmd, err)
	}
	return nil
}

// TryRead polls for one input report; ok is false when nothing arrived
// within the read timeout or the report was not recognised.
func (d *Device) TryRead() (protocol.Response, bool, error) {
	buf := make([]byte, 64)
	n, err := d.hid.ReadWithTimeout(buf, constants.ReadTimeout)
	if err != nil {
		return protocol.Response{}, false, fmt.Errorf("error reading report: %w", err)
	}
	if n == 0 {
		return protocol.Response{}, false, nil
	}

	resp, ok := protocol.ParseResponse(buf[:n])
	if !ok {
		d.logger.Debugf("ignoring unrecognised report: % 02x", buf[:min(n, 16)])
		return protocol.Response{}, false, nil
	}
	return resp, true, nil
}

func (d *Device) Close() error {
	return d.hid.Close()
}
