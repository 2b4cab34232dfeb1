package output

import (
	"context"
	"fmt"
	"sync"

	"github.com/leandrodaf/midibridge/sdk/contracts"
)

// SynthControlChannel is the only channel whose control changes reach the
// synthesizer. Control changes on every other channel are dropped on purpose.
const SynthControlChannel = 0

// SynthOpener opens outputs that drive a software synthesizer directly.
type SynthOpener struct {
	Engine contracts.Synthesizer
	Logger contracts.Logger
}

// Open fails with ErrDeviceUnavailable when there is no engine or it has no instrument loaded.
func (o SynthOpener) Open(ctx context.Context, name string, opts ...contracts.OutputOption) (contracts.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.Engine == nil {
		return nil, fmt.Errorf("%w: no synthesis engine configured", contracts.ErrDeviceUnavailable)
	}
	if !o.Engine.Ready() {
		return nil, fmt.Errorf("%w: synthesis engine has no instrument loaded", contracts.ErrDeviceUnavailable)
	}
	if name == "" {
		name = string(contracts.SynthBackend)
	}
	out := &SynthOutput{name: name, engine: o.Engine, logger: o.Logger}
	o.Logger.Info("Synthesizer output opened", o.Logger.Field().String("name", name))
	if contracts.ApplyOutputOptions(opts...).Autoreset {
		_ = out.Reset()
	}
	return out, nil
}

// SynthOutput translates messages into synthesis primitives. It does not use
// the wire encoding.
type SynthOutput struct {
	name   string
	engine contracts.Synthesizer
	logger contracts.Logger
	mu     sync.Mutex
	closed bool
}

func (s *SynthOutput) Name() string { return s.name }
func (s *SynthOutput) IsInput() bool { return false }
func (s *SynthOutput) IsOutput() bool { return true }

// Send drives the engine for note_on, note_off and control_change on
// SynthControlChannel. Every other message is ignored. A panic inside the
// engine is logged and swallowed.
func (s *SynthOutput) Send(msg contracts.Message, timestamp uint64) error {
	if s.isClosed() {
		return fmt.Errorf("%w: send on closed synthesizer %q", contracts.ErrInvalidState, s.name)
	}
	s.guard(string(msg.Type), func() {
		switch msg.Type {
		case contracts.NoteOn:
			s.engine.NoteOn(int32(msg.Channel), int32(msg.Note), int32(msg.Velocity))
		case contracts.NoteOff:
			s.engine.NoteOff(int32(msg.Channel), int32(msg.Note))
		case contracts.ControlChange:
			if msg.Channel == SynthControlChannel {
				s.engine.ControlChange(int32(msg.Channel), int32(msg.Control), int32(msg.Value))
			}
		}
	})
	return nil
}

// Panic sends All Sound Off to every channel of the engine.
func (s *SynthOutput) Panic() error {
	if s.isClosed() {
		return fmt.Errorf("%w: panic on closed synthesizer %q", contracts.ErrInvalidState, s.name)
	}
	return forEachChannel(func(ch uint8) error {
		s.guard("panic", func() { s.engine.ControlChange(int32(ch), ccAllSoundOff, 0) })
		return nil
	})
}

// Reset sends All Notes Off and Reset All Controllers to every channel of the engine.
func (s *SynthOutput) Reset() error {
	if s.isClosed() {
		return fmt.Errorf("%w: reset on closed synthesizer %q", contracts.ErrInvalidState, s.name)
	}
	return forEachChannel(func(ch uint8) error {
		s.guard("reset", func() {
			s.engine.ControlChange(int32(ch), ccAllNotesOff, 0)
			s.engine.ControlChange(int32(ch), ccResetAllControllers, 0)
		})
		return nil
	})
}

// Close detaches the output from the engine. The engine itself stays usable.
func (s *SynthOutput) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.logger.Info("Synthesizer output closed", s.logger.Field().String("name", s.name))
	}
	return nil
}

// guard runs call and logs instead of propagating a panic from the engine.
func (s *SynthOutput) guard(op string, call func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Synthesis call failed",
				s.logger.Field().String("op", op),
				s.logger.Field().String("panic", fmt.Sprint(r)))
		}
	}()
	call()
}

func (s *SynthOutput) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
