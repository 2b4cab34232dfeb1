package sequence

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hako/durafmt"
	"github.com/leandrodaf/midibridge/sdk/contracts"
)

// Sender receives the messages of a performance. *midi.Dispatcher implements it.
type Sender interface {
	Send(msg contracts.Message, timestamp uint64) error
}

// Player paces a Performance into a Sender in real time.
type Player struct {
	logger   contracts.Logger
	tempo    float64 // Playback speed factor; 2 plays twice as fast.
	velocity float64 // Note on velocity factor.
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithTempo sets the playback speed factor.
func WithTempo(factor float64) PlayerOption {
	return func(p *Player) { p.tempo = factor }
}

// WithVelocityFactor scales every note on velocity.
func WithVelocityFactor(factor float64) PlayerOption {
	return func(p *Player) { p.velocity = factor }
}

// NewPlayer creates a Player. Both factors default to 1 and must be positive.
func NewPlayer(logger contracts.Logger, opts ...PlayerOption) (*Player, error) {
	p := &Player{
		logger:   logger,
		tempo:    1,
		velocity: 1,
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if !(p.tempo > 0) || math.IsInf(p.tempo, 0) {
		return nil, fmt.Errorf("%w: tempo factor must be positive, got %v", contracts.ErrMalformedRequest, p.tempo)
	}
	if !(p.velocity > 0) || math.IsInf(p.velocity, 0) {
		return nil, fmt.Errorf("%w: velocity factor must be positive, got %v", contracts.ErrMalformedRequest, p.velocity)
	}
	return p, nil
}

// Play sends every event of perf to s at its scheduled time. The timestamp is
// the scaled offset in microseconds. Play stops at the first Send error or
// when ctx is done, returning ctx.Err() in the latter case.
func (p *Player) Play(ctx context.Context, perf *Performance, s Sender) error {
	start := p.now()
	p.logger.Info("Playback started",
		p.logger.Field().Int("events", len(perf.Events)),
		p.logger.Field().String("length", durafmt.Parse(p.scale(perf.Length)).LimitFirstN(2).String()),
		p.logger.Field().Float64("tempo", p.tempo))

	// Waits are measured against start so Send latency does not accumulate.
	for _, ev := range perf.Events {
		at := p.scale(ev.At)
		if wait := at - p.now().Sub(start); wait > 0 {
			if err := p.sleep(ctx, wait); err != nil {
				p.logger.Info("Playback interrupted",
					p.logger.Field().String("elapsed", durafmt.Parse(p.now().Sub(start)).LimitFirstN(2).String()))
				return err
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Send(p.adjust(ev.Message), uint64(at.Microseconds())); err != nil {
			return err
		}
	}

	p.logger.Info("Playback finished",
		p.logger.Field().String("elapsed", durafmt.Parse(p.now().Sub(start)).LimitFirstN(2).String()))
	return nil
}

func (p *Player) scale(d time.Duration) time.Duration {
	return time.Duration(float64(d) / p.tempo)
}

// adjust applies the velocity factor to note on messages, clamped to 1..127.
func (p *Player) adjust(msg contracts.Message) contracts.Message {
	if msg.Type != contracts.NoteOn || p.velocity == 1 {
		return msg
	}
	v := int(math.Round(float64(msg.Velocity) * p.velocity))
	v = max(1, min(127, v))
	return msg.With(contracts.WithVelocity(v))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
