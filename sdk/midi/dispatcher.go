package midi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/midibridge/internal/output"
	"github.com/leandrodaf/midibridge/sdk/contracts"
	"golang.org/x/time/rate"
)

// State is the lifecycle state of a Dispatcher.
type State int

const (
	// Uninitialized is the state before any backend was bound.
	Uninitialized State = iota
	// Bound means a backend is open and receives every Send.
	Bound
	// Closed means the bound backend was closed; Bind may be called again.
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Bound:
		return "bound"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// handler delivers one message of a given type to the bound backend.
type handler func(out contracts.Output, msg contracts.Message, timestamp uint64) error

// Dispatcher routes messages from an upstream producer to exactly one bound
// backend. Send is a synchronous pass-through: it never buffers, reorders or
// reinterprets timestamps. Callers driving it from several goroutines must
// serialize their calls.
type Dispatcher struct {
	logger   contracts.Logger
	backend  contracts.Output
	state    State
	handlers map[contracts.MessageType]handler
	failures *rate.Sometimes // Throttles delivery failure logs.
	dropped  uint64          // Messages lost to delivery failures or missing handlers.
	mu       sync.Mutex      // Guards state transitions only; Send is not serialized.
}

// newDispatcher builds an Uninitialized dispatcher.
func newDispatcher(logger contracts.Logger) *Dispatcher {
	d := &Dispatcher{
		logger:   logger,
		failures: &rate.Sometimes{First: 10, Interval: time.Second},
	}
	d.handlers = map[contracts.MessageType]handler{
		contracts.NoteOn:        deliver,
		contracts.NoteOff:       deliver,
		contracts.ControlChange: deliver,
		contracts.ProgramChange: deliver,
		contracts.PitchBend:     deliver,
		contracts.SongSelect:    deliver,
		contracts.SysEx:         deliver,
	}
	return d
}

// deliver validates the fields meaningful for msg.Type and hands msg to the backend.
func deliver(out contracts.Output, msg contracts.Message, timestamp uint64) error {
	if err := output.Validate(msg); err != nil {
		return err
	}
	return out.Send(msg, timestamp)
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Backend returns the bound backend, or nil outside Bound.
func (d *Dispatcher) Backend() contracts.Output {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Bound {
		return nil
	}
	return d.backend
}

// Dropped returns how many messages were dropped since construction.
func (d *Dispatcher) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Bind attaches an already opened backend. Binding while Bound is an
// ErrInvalidState; Close the current backend first.
func (d *Dispatcher) Bind(out contracts.Output) error {
	if out == nil {
		return fmt.Errorf("%w: nil backend", contracts.ErrMalformedRequest)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Bound {
		return fmt.Errorf("%w: already bound to %q, close it first", contracts.ErrInvalidState, d.backend.Name())
	}
	d.backend = out
	d.state = Bound
	d.logger.Info("Dispatcher bound", d.logger.Field().String("backend", out.Name()))
	return nil
}

// BindOpen opens a backend through opener and binds it. When Open fails the
// error is returned unchanged and the dispatcher keeps its previous state.
func (d *Dispatcher) BindOpen(ctx context.Context, opener contracts.Opener, name string, opts ...contracts.OutputOption) error {
	if st := d.State(); st == Bound {
		return fmt.Errorf("%w: cannot open a backend while bound", contracts.ErrInvalidState)
	}
	out, err := opener.Open(ctx, name, opts...)
	if err != nil {
		return err
	}
	if err := d.Bind(out); err != nil {
		_ = out.Close()
		return err
	}
	return nil
}

// Send routes msg to the bound backend. Outside Bound it fails fast with
// ErrInvalidState. Delivery failures, panics included, are logged and
// dropped: Send then returns nil so a single bad event never stops playback.
func (d *Dispatcher) Send(msg contracts.Message, timestamp uint64) error {
	out := d.Backend()
	if out == nil {
		return fmt.Errorf("%w: send while %s", contracts.ErrInvalidState, d.State())
	}

	h, ok := d.handlers[msg.Type]
	if !ok {
		d.drop()
		d.logger.Debug("No handler for message type; dropped",
			d.logger.Field().String("type", string(msg.Type)),
			d.logger.Field().Uint64("timestamp", timestamp))
		return nil
	}

	if err := d.invoke(h, out, msg, timestamp); err != nil {
		d.drop()
		d.failures.Do(func() {
			d.logger.Error("Delivery failed; message dropped",
				d.logger.Field().String("message", msg.String()),
				d.logger.Field().Uint64("timestamp", timestamp),
				d.logger.Field().Error("error", err))
		})
	}
	return nil
}

// invoke runs h and converts a panic into an ErrDeliveryFailure.
func (d *Dispatcher) invoke(h handler, out contracts.Output, msg contracts.Message, timestamp uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: backend panicked: %v", contracts.ErrDeliveryFailure, r)
		}
	}()
	return h(out, msg, timestamp)
}

func (d *Dispatcher) drop() {
	d.mu.Lock()
	d.dropped++
	d.mu.Unlock()
}

// Panic silences every channel of the bound backend.
func (d *Dispatcher) Panic() error {
	out := d.Backend()
	if out == nil {
		return fmt.Errorf("%w: panic while %s", contracts.ErrInvalidState, d.State())
	}
	return out.Panic()
}

// Reset sends All Notes Off and Reset All Controllers through the bound backend.
func (d *Dispatcher) Reset() error {
	out := d.Backend()
	if out == nil {
		return fmt.Errorf("%w: reset while %s", contracts.ErrInvalidState, d.State())
	}
	return out.Reset()
}

// Close closes the bound backend and moves to Closed. Closing an already
// Closed dispatcher is a no-op; closing one that was never bound is an
// ErrInvalidState.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case Closed:
		return nil
	case Uninitialized:
		return fmt.Errorf("%w: close before bind", contracts.ErrInvalidState)
	}
	out := d.backend
	d.backend = nil
	d.state = Closed
	d.logger.Info("Dispatcher closed",
		d.logger.Field().String("backend", out.Name()),
		d.logger.Field().Uint64("dropped", d.dropped))
	return out.Close()
}
