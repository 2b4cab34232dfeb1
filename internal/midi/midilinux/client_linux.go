//go:build linux && midi_native
// +build linux,midi_native

package midilinux

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/midibridge/sdk/contracts"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/multierr"
)

// Error definitions for MIDI output on Linux.
var (
	ErrNoMIDIDevices = errors.New("no MIDI output ports found")
	ErrDriverClosed  = errors.New("MIDI driver closed")
)

// PortDriver opens ALSA sequencer ports through rtmidi.
type PortDriver struct {
	logger contracts.Logger
	drv    *rtmididrv.Driver
	mu     sync.Mutex
	ports  []*port
	closed bool
}

// NewPortDriver initializes the rtmidi driver.
func NewPortDriver(options *contracts.ClientOptions) (contracts.PortDriver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv.New: %w", err)
	}
	options.Logger.Info("MIDI port driver created for Linux")
	return &PortDriver{logger: options.Logger, drv: drv}, nil
}

// ListDevices lists the output ports known to the sequencer.
func (d *PortDriver) ListDevices() ([]contracts.DeviceInfo, error) {
	outs, err := d.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI outputs: %w", err)
	}
	if len(outs) == 0 {
		d.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}
	devices := make([]contracts.DeviceInfo, len(outs))
	for i, out := range outs {
		devices[i] = contracts.DeviceInfo{
			Name:       out.String(),
			EntityName: out.String(),
			Number:     out.Number(),
		}
	}
	return devices, nil
}

// OpenPort opens the output whose name matches exactly.
func (d *PortDriver) OpenPort(name string) (contracts.Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDriverClosed
	}
	outs, err := d.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI outputs: %w", err)
	}
	for _, out := range outs {
		if out.String() != name {
			continue
		}
		if err := out.Open(); err != nil {
			return nil, fmt.Errorf("failed to open MIDI output %q: %w", name, err)
		}
		return d.track(name, out), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoMIDIDevices, name)
}

// OpenVirtualPort creates an ALSA port other clients can subscribe to.
func (d *PortDriver) OpenVirtualPort(name string) (contracts.Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDriverClosed
	}
	out, err := d.drv.OpenVirtualOut(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual MIDI output port %q: %w", name, err)
	}
	return d.track(name, out), nil
}

func (d *PortDriver) track(name string, out drivers.Out) *port {
	p := &port{name: name, out: out}
	d.ports = append(d.ports, p)
	d.logger.Info("MIDI output opened", d.logger.Field().String("name", name))
	return p
}

// Close closes every opened port and the rtmidi driver.
func (d *PortDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	var err error
	for _, p := range d.ports {
		err = multierr.Append(err, p.Close())
	}
	d.ports = nil
	return multierr.Append(err, d.drv.Close())
}

type port struct {
	name string
	out  drivers.Out
}

func (p *port) Name() string { return p.name }

// Send writes data right away; rtmidi has no scheduled delivery.
func (p *port) Send(data []byte, timestamp uint64) error {
	return p.out.Send(data)
}

func (p *port) Close() error {
	if !p.out.IsOpen() {
		return nil
	}
	return p.out.Close()
}
