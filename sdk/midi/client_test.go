package midi

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leandrodaf/midibridge/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDispatcherStartsUninitialized(t *testing.T) {
	log, _ := observedLogger()
	d, err := NewDispatcher(contracts.WithLogger(log))
	require.NoError(t, err)
	assert.Equal(t, Uninitialized, d.State())
}

func TestOpenDefaultsToNullBackend(t *testing.T) {
	log, logs := observedLogger()
	d, err := Open(context.Background(), contracts.WithLogger(log))
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, Bound, d.State())
	assert.Equal(t, "null", d.Backend().Name())
	require.NoError(t, d.Send(contracts.NewMessage(contracts.ProgramChange, contracts.WithProgram(12)), 3))
	assert.Equal(t, 1, logs.FilterMessage("program_change channel=0 program=12").Len())
}

func TestOpenPortBackend(t *testing.T) {
	log, _ := observedLogger()
	drv := &fakeDriver{devices: []contracts.DeviceInfo{{Name: "IAC Bus 1"}, {Name: "Synth Module"}}}

	d, err := Open(context.Background(),
		contracts.WithLogger(log),
		contracts.WithBackend(contracts.PortBackend),
		contracts.WithPortDriver(drv),
		contracts.WithPortName("Synth Module"),
	)
	require.NoError(t, err)
	assert.Equal(t, "Synth Module", d.Backend().Name())
	require.NoError(t, d.Close())
	assert.Zero(t, drv.closed, "injected drivers are owned by the caller")
}

func TestOpenPortBackendMissingDevice(t *testing.T) {
	log, _ := observedLogger()
	drv := &fakeDriver{devices: []contracts.DeviceInfo{{Name: "IAC Bus 1"}}}

	_, err := Open(context.Background(),
		contracts.WithLogger(log),
		contracts.WithBackend(contracts.PortBackend),
		contracts.WithPortDriver(drv),
		contracts.WithPortName("Nope"),
	)
	assert.ErrorIs(t, err, contracts.ErrDeviceUnavailable)
}

func TestOpenSynthBackendWithAutoreset(t *testing.T) {
	log, _ := observedLogger()
	engine := &countingSynth{}

	d, err := Open(context.Background(),
		contracts.WithLogger(log),
		contracts.WithBackend(contracts.SynthBackend),
		contracts.WithSynthesizer(engine),
		contracts.WithAutoreset(),
	)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, 32, engine.others, "CC123 and CC121 on all 16 channels")
}

func TestOpenUnknownBackend(t *testing.T) {
	log, _ := observedLogger()
	_, err := Open(context.Background(), contracts.WithLogger(log), contracts.WithBackend("carrier-pigeon"))
	assert.ErrorIs(t, err, contracts.ErrMalformedRequest)
}

func TestApplyDefaultOptions(t *testing.T) {
	options, err := applyDefaultOptions()
	require.NoError(t, err)
	assert.NotNil(t, options.Logger)
	assert.Equal(t, contracts.NullBackend, options.Backend)
	assert.Equal(t, "GO MIDI Bridge", options.CoreMIDIConfig.ClientName)
}

func TestApplyDefaultOptionsLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")
	options, err := applyDefaultOptions(contracts.WithLogFile(path), contracts.WithLogLevel(contracts.DebugLevel))
	require.NoError(t, err)
	options.Logger.Debug("hello")
	assert.FileExists(t, path)
}

func TestListPortsWithDriver(t *testing.T) {
	drv := &fakeDriver{devices: []contracts.DeviceInfo{{Name: "A", Number: 0}, {Name: "B", Number: 1}}}
	devices, err := ListPorts(contracts.WithPortDriver(drv))
	require.NoError(t, err)
	assert.Len(t, devices, 2)
	assert.Zero(t, drv.closed)
}

func TestCallerLoggerKeepsItsLevel(t *testing.T) {
	log, logs := observedLogger()
	log.SetLevel(contracts.WarnLevel)

	_, err := NewDispatcher(contracts.WithLogger(log))
	require.NoError(t, err)
	log.Info("hidden")
	assert.Zero(t, logs.FilterMessage("hidden").Len())

	_, err = NewDispatcher(contracts.WithLogger(log), contracts.WithLogLevel(contracts.DebugLevel))
	require.NoError(t, err)
	log.Debug("visible")
	assert.Equal(t, 1, logs.FilterMessage("visible").Len())
}

func TestApplyDefaultOptionsLevel(t *testing.T) {
	options, err := applyDefaultOptions()
	require.NoError(t, err)
	require.NotNil(t, options.LogLevel)
	assert.Equal(t, contracts.InfoLevel, *options.LogLevel)

	log, _ := observedLogger()
	options, err = applyDefaultOptions(contracts.WithLogger(log))
	require.NoError(t, err)
	assert.Nil(t, options.LogLevel)
}
