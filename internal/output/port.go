package output

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/leandrodaf/midibridge/sdk/contracts"
	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/multierr"
)

// PortOpener opens outputs backed by a hardware or virtual MIDI port.
type PortOpener struct {
	Driver     contracts.PortDriver
	Logger     contracts.Logger
	OwnsDriver bool // Close the driver together with the output it opened.
}

type openResult struct {
	port contracts.Port
	err  error
}

// Open enumerates the driver's ports and opens the one called name, or the
// first port when name is empty. With the Virtual option a software port is
// created under name instead.
func (o PortOpener) Open(ctx context.Context, name string, opts ...contracts.OutputOption) (contracts.Output, error) {
	if o.Driver == nil {
		return nil, fmt.Errorf("%w: no MIDI port driver for this platform", contracts.ErrDeviceUnavailable)
	}
	options := contracts.ApplyOutputOptions(opts...)
	if options.Virtual && strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: a virtual port needs a name", contracts.ErrMalformedRequest)
	}

	// Drivers can hang during enumeration; give up when ctx is done.
	ch := make(chan openResult, 1)
	go func() {
		port, err := o.acquire(name, options.Virtual)
		ch <- openResult{port: port, err: err}
	}()

	var res openResult
	select {
	case <-ctx.Done():
		// The driver stays open until acquire returns.
		go func() {
			if r := <-ch; r.port != nil {
				_ = r.port.Close()
			}
			o.closeDriver()
		}()
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.err != nil {
		o.closeDriver()
		return nil, res.err
	}

	out := &PortOutput{port: res.port, logger: o.Logger}
	if o.OwnsDriver {
		out.driver = o.Driver
	}
	o.Logger.Info("MIDI port opened",
		o.Logger.Field().String("name", res.port.Name()),
		o.Logger.Field().Bool("virtual", options.Virtual))

	if options.Autoreset {
		if err := out.Reset(); err != nil {
			return nil, multierr.Append(fmt.Errorf("autoreset %q: %w", res.port.Name(), err), out.Close())
		}
	}
	return out, nil
}

func (o PortOpener) closeDriver() {
	if o.OwnsDriver {
		_ = o.Driver.Close()
	}
}

func (o PortOpener) acquire(name string, virtual bool) (contracts.Port, error) {
	if virtual {
		port, err := o.Driver.OpenVirtualPort(name)
		if err != nil {
			return nil, fmt.Errorf("%w: virtual port %q: %v", contracts.ErrDeviceUnavailable, name, err)
		}
		return port, nil
	}

	devices, err := o.Driver.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("%w: listing MIDI outputs: %v", contracts.ErrDeviceUnavailable, err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no MIDI outputs found", contracts.ErrDeviceUnavailable)
	}

	target := name
	if target == "" {
		target = devices[0].Name
	} else if !hasDevice(devices, target) {
		names := make([]string, len(devices))
		for i, d := range devices {
			names[i] = d.Name
		}
		return nil, fmt.Errorf("%w: MIDI output %q not found (available: %s)",
			contracts.ErrDeviceUnavailable, target, strings.Join(names, ", "))
	}

	port, err := o.Driver.OpenPort(target)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %v", contracts.ErrDeviceUnavailable, target, err)
	}
	return port, nil
}

func hasDevice(devices []contracts.DeviceInfo, name string) bool {
	for _, d := range devices {
		if d.Name == name {
			return true
		}
	}
	return false
}

// PortOutput writes encoded messages to an opened port.
type PortOutput struct {
	port   contracts.Port
	driver contracts.PortDriver // Non-nil when the output owns the driver.
	logger contracts.Logger
	mu     sync.Mutex
	closed bool
}

func (p *PortOutput) Name() string { return p.port.Name() }
func (p *PortOutput) IsInput() bool { return false }
func (p *PortOutput) IsOutput() bool { return true }

// Send encodes msg and forwards the bytes and timestamp to the port.
func (p *PortOutput) Send(msg contracts.Message, timestamp uint64) error {
	if p.isClosed() {
		return fmt.Errorf("%w: send on closed port %q", contracts.ErrInvalidState, p.Name())
	}
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	if err := p.port.Send(data, timestamp); err != nil {
		return fmt.Errorf("%w: writing %s to %q: %v", contracts.ErrDeliveryFailure, msg.Type, p.Name(), err)
	}
	return nil
}

// Panic sends All Sound Off on every channel.
func (p *PortOutput) Panic() error {
	if p.isClosed() {
		return fmt.Errorf("%w: panic on closed port %q", contracts.ErrInvalidState, p.Name())
	}
	return forEachChannel(func(ch uint8) error {
		return p.port.Send(gomidi.ControlChange(ch, ccAllSoundOff, 0), 0)
	})
}

// Reset sends All Notes Off and Reset All Controllers on every channel.
func (p *PortOutput) Reset() error {
	if p.isClosed() {
		return fmt.Errorf("%w: reset on closed port %q", contracts.ErrInvalidState, p.Name())
	}
	return forEachChannel(func(ch uint8) error {
		return multierr.Append(
			p.port.Send(gomidi.ControlChange(ch, ccAllNotesOff, 0), 0),
			p.port.Send(gomidi.ControlChange(ch, ccResetAllControllers, 0), 0),
		)
	})
}

// Close closes the port, and the driver when owned. Later calls return nil.
func (p *PortOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.port.Close()
	if p.driver != nil {
		err = multierr.Append(err, p.driver.Close())
	}
	p.logger.Info("MIDI port closed", p.logger.Field().String("name", p.port.Name()))
	return err
}

func (p *PortOutput) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
