//go:build !windows
// +build !windows

package midiwindows

import (
	"fmt"

	"github.com/leandrodaf/midibridge/sdk/contracts"
)

// NewPortDriver reports that winmm is not available on this platform.
func NewPortDriver(options *contracts.ClientOptions) (contracts.PortDriver, error) {
	options.Logger.Debug("winmm port driver requested on non-Windows system")
	return nil, fmt.Errorf("winmm MIDI is not available on this platform")
}
