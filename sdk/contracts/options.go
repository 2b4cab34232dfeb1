package contracts

// BackendKind selects one of the closed set of output backends.
type BackendKind string

const (
	// NullBackend logs every message and produces no sound.
	NullBackend BackendKind = "null"
	// PortBackend encodes messages to the MIDI wire format and writes them to a hardware or virtual port.
	PortBackend BackendKind = "port"
	// SynthBackend drives an in-process software synthesizer directly.
	SynthBackend BackendKind = "synth"
)

// ParseBackendKind validates a backend name coming from configuration.
func ParseBackendKind(s string) (BackendKind, bool) {
	switch k := BackendKind(s); k {
	case NullBackend, PortBackend, SynthBackend:
		return k, true
	}
	return "", false
}

// CoreMIDIConfig holds configuration for the platform MIDI client.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client registered with the OS.
}

// ClientOptions defines the configuration options for the bridge.
type ClientOptions struct {
	Logger         Logger          // Logger for logging events and errors.
	LogLevel       *LogLevel       // Level of logging to use; nil keeps the logger's own level.
	LogFilePath    string          // File path for logging if file logging is enabled.
	Backend        BackendKind     // Backend to open when using midi.Open.
	PortName       string          // Port name for the port backend; empty selects the first port.
	Output         []OutputOption  // Options forwarded to the backend's Open.
	PortDriver     PortDriver      // Overrides the platform port driver.
	Synthesizer    Synthesizer     // Engine for the synth backend.
	CoreMIDIConfig *CoreMIDIConfig // Configuration specific to the platform MIDI client.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = &level
	}
}

// WithLogFile directs logs to the given file in addition to the default destination.
func WithLogFile(path string) Option {
	return func(opts *ClientOptions) {
		opts.LogFilePath = path
	}
}

// WithBackend selects the backend kind.
func WithBackend(kind BackendKind) Option {
	return func(opts *ClientOptions) {
		opts.Backend = kind
	}
}

// WithPortName sets the port to open for the port backend.
func WithPortName(name string) Option {
	return func(opts *ClientOptions) {
		opts.PortName = name
	}
}

// WithVirtual requests a virtual port.
func WithVirtual() Option {
	return func(opts *ClientOptions) {
		opts.Output = append(opts.Output, Virtual())
	}
}

// WithAutoreset requests a reset sequence right after the backend opens.
func WithAutoreset() Option {
	return func(opts *ClientOptions) {
		opts.Output = append(opts.Output, Autoreset())
	}
}

// WithPortDriver overrides the platform port driver.
func WithPortDriver(d PortDriver) Option {
	return func(opts *ClientOptions) {
		opts.PortDriver = d
	}
}

// WithSynthesizer sets the engine driven by the synth backend.
func WithSynthesizer(s Synthesizer) Option {
	return func(opts *ClientOptions) {
		opts.Synthesizer = s
	}
}

// WithCoreMIDIConfig sets the platform MIDI client configuration.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *ClientOptions) {
		opts.CoreMIDIConfig = &config
	}
}
