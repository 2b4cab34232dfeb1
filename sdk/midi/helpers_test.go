package midi

import (
	"context"
	"errors"
	"sync"

	"github.com/leandrodaf/midibridge/internal/logger"
	"github.com/leandrodaf/midibridge/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (contracts.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}

type sent struct {
	msg       contracts.Message
	timestamp uint64
}

// recordingOutput records every call; sendErr and panicOn inject failures.
type recordingOutput struct {
	name    string
	mu      sync.Mutex
	sent    []sent
	sendErr error
	panicOn contracts.MessageType
	panics  int
	resets  int
	closed  int
}

func (o *recordingOutput) Name() string { return o.name }
func (o *recordingOutput) IsInput() bool { return false }
func (o *recordingOutput) IsOutput() bool { return true }

func (o *recordingOutput) Send(msg contracts.Message, timestamp uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.panicOn != "" && msg.Type == o.panicOn {
		panic("backend exploded")
	}
	if o.sendErr != nil {
		return o.sendErr
	}
	o.sent = append(o.sent, sent{msg: msg, timestamp: timestamp})
	return nil
}

func (o *recordingOutput) Panic() error { o.panics++; return nil }
func (o *recordingOutput) Reset() error { o.resets++; return nil }
func (o *recordingOutput) Close() error { o.closed++; return nil }

func (o *recordingOutput) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

func openerFor(out contracts.Output) contracts.Opener {
	return contracts.OpenerFunc(func(ctx context.Context, name string, opts ...contracts.OutputOption) (contracts.Output, error) {
		return out, nil
	})
}

var errNoDevice = errors.New("no such device")

func failingOpener() contracts.Opener {
	return contracts.OpenerFunc(func(ctx context.Context, name string, opts ...contracts.OutputOption) (contracts.Output, error) {
		return nil, errNoDevice
	})
}

type countingSynth struct {
	noteOns int
	others  int
}

func (s *countingSynth) Ready() bool { return true }
func (s *countingSynth) NoteOn(channel, note, velocity int32) { s.noteOns++ }
func (s *countingSynth) NoteOff(channel, note int32) { s.others++ }
func (s *countingSynth) ControlChange(channel, control, value int32) { s.others++ }

type fakeDriver struct {
	devices []contracts.DeviceInfo
	closed  int
}

func (d *fakeDriver) ListDevices() ([]contracts.DeviceInfo, error) { return d.devices, nil }
func (d *fakeDriver) OpenPort(name string) (contracts.Port, error) { return &fakePort{name: name}, nil }
func (d *fakeDriver) OpenVirtualPort(name string) (contracts.Port, error) {
	return &fakePort{name: name}, nil
}
func (d *fakeDriver) Close() error { d.closed++; return nil }

type fakePort struct {
	name string
	data [][]byte
}

func (p *fakePort) Name() string { return p.name }
func (p *fakePort) Send(data []byte, timestamp uint64) error {
	p.data = append(p.data, append([]byte{}, data...))
	return nil
}
func (p *fakePort) Close() error { return nil }
