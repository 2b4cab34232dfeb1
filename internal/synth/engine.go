package synth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/leandrodaf/midibridge/sdk/contracts"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

// SampleRate is the rate the engine renders at and the audio sink plays at.
const SampleRate = 44100

const (
	channelCount   = 2
	bytesPerSample = 4 // float32
	frameSize      = channelCount * bytesPerSample
	ccCommand      = 0xB0
)

// Engine is a SoundFont synthesizer. Note and controller calls come from the
// dispatch path while Read runs on the audio goroutine, so every access to
// the synthesizer goes through mu.
type Engine struct {
	logger      contracts.Logger
	mu          sync.Mutex
	settings    *meltysynth.SynthesizerSettings
	synth       *meltysynth.Synthesizer
	instruments []*meltysynth.SoundFont
	active      contracts.InstrumentID
	left, right []float32
}

// NewEngine creates an engine with no instrument loaded.
func NewEngine(logger contracts.Logger) *Engine {
	return &Engine{
		logger:   logger,
		settings: meltysynth.NewSynthesizerSettings(SampleRate),
		active:   -1,
	}
}

// LoadInstrument parses a SoundFont and makes it the active instrument.
func (e *Engine) LoadInstrument(data []byte) (contracts.InstrumentID, error) {
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return -1, fmt.Errorf("parsing soundfont: %w", err)
	}

	e.mu.Lock()
	e.instruments = append(e.instruments, sf)
	id := contracts.InstrumentID(len(e.instruments) - 1)
	err = e.activate(id)
	e.mu.Unlock()
	if err != nil {
		return -1, err
	}

	e.logger.Info("Instrument loaded",
		e.logger.Field().Int("id", int(id)),
		e.logger.Field().String("size", humanize.Bytes(uint64(len(data)))))
	return id, nil
}

// SelectInstrument switches to a previously loaded instrument. Sounding notes are cut.
func (e *Engine) SelectInstrument(id contracts.InstrumentID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activate(id)
}

func (e *Engine) activate(id contracts.InstrumentID) error {
	if id < 0 || int(id) >= len(e.instruments) {
		return fmt.Errorf("%w: unknown instrument %d", contracts.ErrMalformedRequest, id)
	}
	s, err := meltysynth.NewSynthesizer(e.instruments[id], e.settings)
	if err != nil {
		return fmt.Errorf("creating synthesizer: %w", err)
	}
	e.synth = s
	e.active = id
	return nil
}

// Ready reports whether an instrument is loaded.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.synth != nil
}

// NoteOn starts a note. It is a no-op until an instrument is loaded.
func (e *Engine) NoteOn(channel, note, velocity int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth != nil {
		e.synth.NoteOn(channel, note, velocity)
	}
}

// NoteOff releases a note.
func (e *Engine) NoteOff(channel, note int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth != nil {
		e.synth.NoteOff(channel, note)
	}
}

// ControlChange applies a controller change, channel mode messages included.
func (e *Engine) ControlChange(channel, control, value int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth != nil {
		e.synth.ProcessMidiMessage(channel, ccCommand, control, value)
	}
}

// Read renders interleaved stereo float32 little-endian PCM into p. Without
// an instrument it produces silence. Partial frames at the end of p are left
// unwritten.
func (e *Engine) Read(p []byte) (int, error) {
	frames := len(p) / frameSize
	if frames == 0 {
		return 0, nil
	}

	e.mu.Lock()
	if cap(e.left) < frames {
		e.left = make([]float32, frames)
		e.right = make([]float32, frames)
	}
	left, right := e.left[:frames], e.right[:frames]
	if e.synth != nil {
		e.synth.Render(left, right)
	} else {
		clear(left)
		clear(right)
	}
	for i := 0; i < frames; i++ {
		off := i * frameSize
		binary.LittleEndian.PutUint32(p[off:], math.Float32bits(left[i]))
		binary.LittleEndian.PutUint32(p[off+bytesPerSample:], math.Float32bits(right[i]))
	}
	e.mu.Unlock()

	return frames * frameSize, nil
}
