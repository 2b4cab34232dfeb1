package contracts

import "context"

// Output is one destination for messages. Implementations are selected at
// startup and are not safe for concurrent use; callers serialize Send.
type Output interface {
	Name() string   // Opaque identifier of the destination.
	IsInput() bool  // Always false for the backends of this bridge.
	IsOutput() bool // Always true for the backends of this bridge.

	// Send delivers one message. It is fire-and-forget: a nil error means the
	// message was handed to the destination, not that it was acknowledged.
	Send(msg Message, timestamp uint64) error
	// Panic sends All Sound Off on every channel.
	Panic() error
	// Reset sends All Notes Off and Reset All Controllers on every channel.
	Reset() error
	// Close releases the destination. Calling it more than once is safe.
	Close() error
}

// OutputOptions holds the options accepted by Opener.Open.
type OutputOptions struct {
	Virtual   bool // Request a software-only port instead of physical hardware.
	Autoreset bool // Run Reset right after a successful open.
}

// OutputOption modifies OutputOptions.
type OutputOption func(*OutputOptions)

// Virtual requests a virtual port.
func Virtual() OutputOption {
	return func(o *OutputOptions) { o.Virtual = true }
}

// Autoreset requests a reset sequence on open.
func Autoreset() OutputOption {
	return func(o *OutputOptions) { o.Autoreset = true }
}

// ApplyOutputOptions folds opts into an OutputOptions value.
func ApplyOutputOptions(opts ...OutputOption) OutputOptions {
	var o OutputOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Opener acquires an Output. Open may block on device enumeration or engine
// initialization and honours ctx cancellation.
type Opener interface {
	Open(ctx context.Context, name string, opts ...OutputOption) (Output, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, name string, opts ...OutputOption) (Output, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, name string, opts ...OutputOption) (Output, error) {
	return f(ctx, name, opts...)
}

// DeviceInfo describes one MIDI output port as reported by a PortDriver.
type DeviceInfo struct {
	Name         string // Port name, the key OpenPort matches against.
	Number       int    // Driver specific index.
	Manufacturer string
	EntityName   string // Owning entity, when the platform reports one.
}

// PortDriver enumerates and opens MIDI output ports on one platform.
type PortDriver interface {
	ListDevices() ([]DeviceInfo, error)        // Lists available output ports.
	OpenPort(name string) (Port, error)        // Opens the output port with exactly this name.
	OpenVirtualPort(name string) (Port, error) // Creates a virtual output port with this name.
	Close() error                              // Releases the driver and every port it opened.
}

// Port is an opened hardware or virtual MIDI output.
type Port interface {
	Name() string
	Send(data []byte, timestamp uint64) error // Forwards one encoded message.
	Close() error
}

// InstrumentID identifies an instrument loaded into a synthesis engine.
type InstrumentID int

// Synthesizer is the set of synthesis primitives the software synth backend drives.
type Synthesizer interface {
	Ready() bool // Reports whether an instrument is loaded and the engine can sound.
	NoteOn(channel, note, velocity int32)
	NoteOff(channel, note int32)
	ControlChange(channel, control, value int32)
}

// InstrumentLoader loads instrument files into a synthesis engine. It is a
// setup step and never part of the per-event path.
type InstrumentLoader interface {
	LoadInstrument(data []byte) (InstrumentID, error)
}
