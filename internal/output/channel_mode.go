package output

import "go.uber.org/multierr"

// Channel mode controller numbers.
const (
	ccAllSoundOff         = 120
	ccResetAllControllers = 121
	ccAllNotesOff         = 123
	numChannels           = 16
)

// forEachChannel runs fn for channels 0-15 and keeps going after failures so
// that one bad channel never leaves the others sounding.
func forEachChannel(fn func(ch uint8) error) error {
	var err error
	for ch := uint8(0); ch < numChannels; ch++ {
		err = multierr.Append(err, fn(ch))
	}
	return err
}
