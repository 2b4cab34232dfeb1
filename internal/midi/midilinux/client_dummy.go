//go:build !linux || !midi_native
// +build !linux !midi_native

package midilinux

import (
	"fmt"

	"github.com/leandrodaf/midibridge/sdk/contracts"
)

// NewPortDriver reports that the ALSA driver is not available. On Linux it
// needs cgo and the ALSA headers: build with -tags midi_native.
func NewPortDriver(options *contracts.ClientOptions) (contracts.PortDriver, error) {
	options.Logger.Debug("ALSA port driver not compiled in")
	return nil, fmt.Errorf("ALSA MIDI is not available in this build (use -tags midi_native on Linux)")
}
