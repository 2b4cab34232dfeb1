package output

import (
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

type sentPacket struct {
	data      []byte
	timestamp uint64
}

type fakePort struct {
	name    string
	mu      sync.Mutex
	sent    []sentPacket
	sendErr error
	closed  int
}

func (p *fakePort) Name() string { return p.name }

func (p *fakePort) Send(data []byte, timestamp uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, sentPacket{data: append([]byte{}, data...), timestamp: timestamp})
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

type fakeDriver struct {
	devices   []contracts.DeviceInfo
	listErr   error
	block     chan struct{}
	mu        sync.Mutex
	opened    []*fakePort
	closed    int
	noVirtual bool
}

func (d *fakeDriver) ListDevices() ([]contracts.DeviceInfo, error) {
	if d.block != nil {
		<-d.block
	}
	return d.devices, d.listErr
}

func (d *fakeDriver) OpenPort(name string) (contracts.Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := &fakePort{name: name}
	d.opened = append(d.opened, p)
	return p, nil
}

func (d *fakeDriver) OpenVirtualPort(name string) (contracts.Port, error) {
	if d.noVirtual {
		return nil, errors.New("virtual ports not supported")
	}
	return d.OpenPort(name)
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *fakeDriver) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type synthCall struct {
	op   string
	args []int32
}

type fakeSynth struct {
	ready   bool
	calls   []synthCall
	panicOn string
}

func (s *fakeSynth) Ready() bool { return s.ready }

func (s *fakeSynth) record(op string, args ...int32) {
	if op == s.panicOn {
		panic(op + " exploded")
	}
	s.calls = append(s.calls, synthCall{op: op, args: args})
}

func (s *fakeSynth) NoteOn(channel, note, velocity int32) { s.record("note_on", channel, note, velocity) }
func (s *fakeSynth) NoteOff(channel, note int32) { s.record("note_off", channel, note) }
func (s *fakeSynth) ControlChange(channel, control, value int32) {
	s.record("control_change", channel, control, value)
}
