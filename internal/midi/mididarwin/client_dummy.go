//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/leandrodaf/midibridge/sdk/contracts"
)

// NewPortDriver reports that CoreMIDI is not available on this platform.
func NewPortDriver(options *contracts.ClientOptions) (contracts.PortDriver, error) {
	options.Logger.Debug("CoreMIDI port driver requested on non-macOS system")
	return nil, fmt.Errorf("CoreMIDI is not available on this platform")
}
