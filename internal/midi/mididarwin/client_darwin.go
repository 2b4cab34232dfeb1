//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/midibridge/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices       = errors.New("no MIDI destinations found")
	ErrCreateOutputPort    = errors.New("error creating output port")
	ErrCreateVirtualSource = errors.New("error creating virtual source")
	ErrDriverClosed        = errors.New("MIDI driver closed")
)

// PortDriver opens CoreMIDI destinations and virtual sources on Darwin (macOS).
type PortDriver struct {
	logger     contracts.Logger
	client     coremidi.Client           // CoreMIDI client instance for MIDI operations.
	outputPort *coremidi.OutputPort      // Lazily created output port shared by every destination.
	ports      []*port                   // Ports opened through this driver.
	config     *contracts.CoreMIDIConfig // Configuration for MIDI client.
	mu         sync.Mutex                // Mutex for thread safety on shared resources.
	closed     bool
}

// NewPortDriver registers a CoreMIDI client named after options.CoreMIDIConfig.
func NewPortDriver(options *contracts.ClientOptions) (contracts.PortDriver, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI client successfully created",
		options.Logger.Field().String("client", options.CoreMIDIConfig.ClientName))

	return &PortDriver{
		logger: options.Logger,
		client: client,
		config: options.CoreMIDIConfig,
	}, nil
}

// ListDevices retrieves the available MIDI destinations.
func (d *PortDriver) ListDevices() ([]contracts.DeviceInfo, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	if len(destinations) == 0 {
		d.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(destinations))
	for i, destination := range destinations {
		entity := destination.Entity()
		devices[i] = contracts.DeviceInfo{
			Name:         destination.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
			Number:       i,
		}
	}
	return devices, nil
}

// OpenPort connects to the destination with exactly this name.
func (d *PortDriver) OpenPort(name string) (contracts.Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDriverClosed
	}

	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	for i := range destinations {
		if destinations[i].Name() != name {
			continue
		}
		if d.outputPort == nil {
			op, err := coremidi.NewOutputPort(d.client, d.config.ClientName+" Output")
			if err != nil {
				d.logger.Error(ErrCreateOutputPort.Error(), d.logger.Field().Error("error", err))
				return nil, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
			}
			d.outputPort = &op
		}
		p := &port{name: name, outputPort: d.outputPort, destination: destinations[i]}
		d.ports = append(d.ports, p)
		d.logger.Info("MIDI destination connected", d.logger.Field().String("name", name))
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoMIDIDevices, name)
}

// OpenVirtualPort publishes a virtual source other applications can read from.
func (d *PortDriver) OpenVirtualPort(name string) (contracts.Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDriverClosed
	}

	source, err := coremidi.NewSource(d.client, name)
	if err != nil {
		d.logger.Error(ErrCreateVirtualSource.Error(), d.logger.Field().Error("error", err))
		return nil, fmt.Errorf("%w: %v", ErrCreateVirtualSource, err)
	}
	p := &port{name: name, source: &source}
	d.ports = append(d.ports, p)
	d.logger.Info("Virtual MIDI source created", d.logger.Field().String("name", name))
	return p, nil
}

// Close marks every opened port closed. The CoreMIDI client lives until the process exits.
func (d *PortDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	for _, p := range d.ports {
		_ = p.Close()
	}
	d.ports = nil
	d.logger.Info("MIDI client closed")
	return nil
}

// port writes packets either to a destination through the shared output port
// or, for virtual ports, as if received from a source.
type port struct {
	name        string
	outputPort  *coremidi.OutputPort
	destination coremidi.Destination
	source      *coremidi.Source
	mu          sync.Mutex
	closed      bool
}

func (p *port) Name() string { return p.name }

// Send delivers data immediately. CoreMIDI timestamps are host ticks, which
// have no relation to the caller's timestamp, so 0 (now) is used instead.
func (p *port) Send(data []byte, timestamp uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("port %q closed", p.name)
	}
	packet := coremidi.NewPacket(data, 0)
	if p.source != nil {
		return packet.Received(p.source)
	}
	return packet.Send(p.outputPort, &p.destination)
}

func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
