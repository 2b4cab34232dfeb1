package output

import (
	"fmt"

	"github.com/leandrodaf/midibridge/sdk/contracts"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Encode translates msg into its standard MIDI wire encoding: a status byte
// carrying the channel nibble followed by 0-2 data bytes, or an F0..F7 frame
// for sysex. Out of range values are rejected rather than masked.
func Encode(msg contracts.Message) ([]byte, error) {
	if err := checkRanges(msg); err != nil {
		return nil, err
	}
	ch := uint8(msg.Channel)
	switch msg.Type {
	case contracts.NoteOn:
		return []byte(gomidi.NoteOn(ch, uint8(msg.Note), uint8(msg.Velocity))), nil
	case contracts.NoteOff:
		return []byte(gomidi.NoteOffVelocity(ch, uint8(msg.Note), uint8(msg.Velocity))), nil
	case contracts.ControlChange:
		return []byte(gomidi.ControlChange(ch, uint8(msg.Control), uint8(msg.Value))), nil
	case contracts.ProgramChange:
		return []byte(gomidi.ProgramChange(ch, uint8(msg.Program))), nil
	case contracts.PitchBend:
		return []byte(gomidi.Pitchbend(ch, int16(msg.Pitch))), nil
	case contracts.SongSelect:
		return []byte(gomidi.SongSelect(uint8(msg.Song))), nil
	case contracts.SysEx:
		return []byte(gomidi.SysEx(msg.Data)), nil
	}
	return nil, fmt.Errorf("%w: no wire encoding for message type %q", contracts.ErrDeliveryFailure, msg.Type)
}

// checkRanges validates the fields msg.Type makes meaningful.
func checkRanges(msg contracts.Message) error {
	for _, f := range msg.Meaningful() {
		var v, lo, hi int
		switch f {
		case "channel":
			v, lo, hi = msg.Channel, 0, 15
		case "note":
			v, lo, hi = msg.Note, 0, 127
		case "velocity":
			v, lo, hi = msg.Velocity, 0, 127
		case "control":
			v, lo, hi = msg.Control, 0, 127
		case "value":
			v, lo, hi = msg.Value, 0, 127
		case "program":
			v, lo, hi = msg.Program, 0, 127
		case "song":
			v, lo, hi = msg.Song, 0, 127
		case "pitch":
			v, lo, hi = msg.Pitch, -8192, 8191
		case "data":
			for i, b := range msg.Data {
				if b > 127 {
					return fmt.Errorf("%w: %s data byte %d out of range: %d", contracts.ErrDeliveryFailure, msg.Type, i, b)
				}
			}
			continue
		}
		if v < lo || v > hi {
			return fmt.Errorf("%w: %s %s out of range [%d, %d]: %d", contracts.ErrDeliveryFailure, msg.Type, f, lo, hi, v)
		}
	}
	return nil
}

// Validate reports whether msg can be delivered by any backend.
func Validate(msg contracts.Message) error {
	return checkRanges(msg)
}
