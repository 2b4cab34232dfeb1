package sequence

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/leandrodaf/midibridge/sdk/contracts"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Event is a message placed at an offset from the start of the performance.
type Event struct {
	At      time.Duration
	Message contracts.Message
}

// Performance is a Standard MIDI File flattened into time ordered events.
type Performance struct {
	Events  []Event
	Length  time.Duration
	Skipped int // Meta and unsupported channel events left out.
}

// LoadFile reads the Standard MIDI File at path.
func LoadFile(path string, logger contracts.Logger) (*Performance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("Performance loaded",
		logger.Field().String("file", path),
		logger.Field().String("size", humanize.Bytes(uint64(len(data)))),
		logger.Field().Int("events", len(p.Events)),
		logger.Field().Int("skipped", p.Skipped),
		logger.Field().String("length", durafmt.Parse(p.Length).LimitFirstN(2).String()))
	return p, nil
}

// Load decodes a Standard MIDI File. Events of all tracks are merged by
// absolute time; events sharing a time keep their track order.
func Load(r io.Reader) (*Performance, error) {
	p := &Performance{}
	rd := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		at := time.Duration(te.AbsMicroSeconds) * time.Microsecond
		msg, ok := decode(gomidi.Message(te.Message))
		if !ok {
			p.Skipped++
			return
		}
		msg = msg.With(contracts.WithPos(float64(te.AbsTicks)), contracts.WithTime(at.Seconds()))
		p.Events = append(p.Events, Event{At: at, Message: msg})
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("%w: invalid MIDI file: %v", contracts.ErrMalformedRequest, err)
	}

	sort.SliceStable(p.Events, func(i, j int) bool { return p.Events[i].At < p.Events[j].At })
	if n := len(p.Events); n > 0 {
		p.Length = p.Events[n-1].At
	}
	return p, nil
}

// decode maps one channel or sysex message onto a contracts.Message.
func decode(m gomidi.Message) (contracts.Message, bool) {
	var ch, key, vel, ctl, val, prog uint8
	var rel int16
	var abs uint16
	var data []byte

	switch {
	case m.GetNoteStart(&ch, &key, &vel):
		return contracts.NewMessage(contracts.NoteOn,
			contracts.WithChannel(int(ch)), contracts.WithNote(int(key)), contracts.WithVelocity(int(vel))), true
	case m.GetNoteOff(&ch, &key, &vel):
		return contracts.NewMessage(contracts.NoteOff,
			contracts.WithChannel(int(ch)), contracts.WithNote(int(key)), contracts.WithVelocity(int(vel))), true
	case m.GetNoteEnd(&ch, &key): // note on with velocity 0
		return contracts.NewMessage(contracts.NoteOff,
			contracts.WithChannel(int(ch)), contracts.WithNote(int(key)), contracts.WithVelocity(0)), true
	case m.GetControlChange(&ch, &ctl, &val):
		return contracts.NewMessage(contracts.ControlChange,
			contracts.WithChannel(int(ch)), contracts.WithControl(int(ctl)), contracts.WithValue(int(val))), true
	case m.GetProgramChange(&ch, &prog):
		return contracts.NewMessage(contracts.ProgramChange,
			contracts.WithChannel(int(ch)), contracts.WithProgram(int(prog))), true
	case m.GetPitchBend(&ch, &rel, &abs):
		return contracts.NewMessage(contracts.PitchBend,
			contracts.WithChannel(int(ch)), contracts.WithPitch(int(rel))), true
	case m.GetSysEx(&data):
		return contracts.NewMessage(contracts.SysEx, contracts.WithData(data)), true
	}
	return contracts.Message{}, false
}
