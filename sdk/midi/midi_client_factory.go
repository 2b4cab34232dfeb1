package midi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/midibridge/internal/midi/mididarwin"
	"github.com/leandrodaf/midibridge/internal/midi/midilinux"
	"github.com/leandrodaf/midibridge/internal/midi/midiwindows"
	"github.com/leandrodaf/midibridge/sdk/contracts"
)

// ErrUnsupportedOS is returned when the operating system has no MIDI port driver.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// driverInitializers maps OS names to corresponding MIDI port driver initializers.
var driverInitializers = map[string]func(*contracts.ClientOptions) (contracts.PortDriver, error){
	"darwin":  mididarwin.NewPortDriver,  // macOS (CoreMIDI) port driver.
	"windows": midiwindows.NewPortDriver, // Windows (winmm) port driver.
	"linux":   midilinux.NewPortDriver,   // Linux (ALSA through rtmidi) port driver.
}

// NewPortDriver initializes the MIDI port driver for the current operating system.
//
// opts *contracts.ClientOptions: Configuration options for the driver.
//
// Returns:
//   - contracts.PortDriver: The platform driver.
//   - error: An error if the operating system is unsupported or if initialization fails.
func NewPortDriver(opts *contracts.ClientOptions) (contracts.PortDriver, error) {
	if initializer, exists := driverInitializers[runtime.GOOS]; exists {
		return initializer(opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
}

// ListPorts lists the output ports of the platform driver.
func ListPorts(opts ...contracts.Option) ([]contracts.DeviceInfo, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	drv := options.PortDriver
	if drv == nil {
		if drv, err = NewPortDriver(&options); err != nil {
			return nil, err
		}
		defer drv.Close()
	}
	return drv.ListDevices()
}
