//go:build windows
// +build windows

package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/leandrodaf/midibridge/sdk/contracts"
	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIOUT windows.Handle

// Constants for winmm results and header flags
const (
	MMSYSERR_NOERROR     = 0
	MIDIERR_STILLPLAYING = 65   // Header still in use by the driver
	MHDR_DONE            = 0x01 // Driver finished with the buffer
)

// Error definitions for MIDI output on Windows.
var (
	ErrNoMIDIDevices    = errors.New("no MIDI output devices found")
	ErrVirtualPorts     = errors.New("virtual MIDI ports are not supported by winmm")
	ErrDriverClosed     = errors.New("MIDI driver closed")
	ErrSysExUnsupported = errors.New("sysex could not be prepared")
)

// Struct representing MIDI output device capabilities
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// Struct describing a long (sysex) message buffer
type midiHdr struct {
	lpData          *byte
	dwBufferLength  uint32
	dwBytesRecorded uint32
	dwUser          uintptr
	dwFlags         uint32
	lpNext          uintptr
	reserved        uintptr
	dwOffset        uint32
	dwReserved      [8]uintptr
}

// Load the winmm.dll library and required functions
var (
	winmm                      = windows.NewLazySystemDLL("winmm.dll")
	procMidiOutGetNumDevs      = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps      = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen            = winmm.NewProc("midiOutOpen")
	procMidiOutShortMsg        = winmm.NewProc("midiOutShortMsg")
	procMidiOutLongMsg         = winmm.NewProc("midiOutLongMsg")
	procMidiOutPrepareHeader   = winmm.NewProc("midiOutPrepareHeader")
	procMidiOutUnprepareHeader = winmm.NewProc("midiOutUnprepareHeader")
	procMidiOutReset           = winmm.NewProc("midiOutReset")
	procMidiOutClose           = winmm.NewProc("midiOutClose")
)

// PortDriver manages MIDI output on Windows
type PortDriver struct {
	logger contracts.Logger
	mu     sync.Mutex
	ports  []*port
	closed bool
}

// NewPortDriver creates a MIDI port driver for Windows
func NewPortDriver(options *contracts.ClientOptions) (contracts.PortDriver, error) {
	options.Logger.Info("MIDI port driver created for Windows")
	return &PortDriver{logger: options.Logger}, nil
}

// ListDevices lists the available MIDI output devices
func (d *PortDriver) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		d.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := collectDevices(numDevices, func(i uint32) (string, string, bool) {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != MMSYSERR_NOERROR {
			d.logger.Warn("Failed to read MIDI device capabilities", d.logger.Field().Int("device", int(i)))
			return "", "", false
		}
		return windows.UTF16ToString(caps.szPname[:]), fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid), true
	})
	if len(devices) == 0 {
		return nil, ErrNoMIDIDevices
	}
	return devices, nil
}

// OpenPort opens the output device with exactly this name
func (d *PortDriver) OpenPort(name string) (contracts.Port, error) {
	devices, err := d.ListDevices()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDriverClosed
	}

	for _, device := range devices {
		if device.Name != name {
			continue
		}
		p := &port{name: name, logger: d.logger}
		r1, _, err := procMidiOutOpen.Call(
			uintptr(unsafe.Pointer(&p.handle)),
			uintptr(device.Number),
			0, 0, 0, // CALLBACK_NULL
		)
		if r1 != MMSYSERR_NOERROR {
			d.logger.Error("Failed to open MIDI device",
				d.logger.Field().String("name", name),
				d.logger.Field().Error("error", err))
			return nil, fmt.Errorf("failed to open MIDI device %q: code %d", name, r1)
		}
		d.ports = append(d.ports, p)
		d.logger.Info("MIDI device connected", d.logger.Field().String("name", name))
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoMIDIDevices, name)
}

// OpenVirtualPort always fails: winmm cannot publish ports
func (d *PortDriver) OpenVirtualPort(name string) (contracts.Port, error) {
	return nil, fmt.Errorf("%w: %q", ErrVirtualPorts, name)
}

// Close closes every device opened through the driver
func (d *PortDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	var err error
	for _, p := range d.ports {
		err = multierr.Append(err, p.Close())
	}
	d.ports = nil
	return err
}

type port struct {
	name   string
	logger contracts.Logger
	handle HMIDIOUT
	mu     sync.Mutex
}

func (p *port) Name() string { return p.name }

// Send writes data immediately; winmm has no scheduling for short messages
func (p *port) Send(data []byte, timestamp uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return fmt.Errorf("MIDI device %q closed", p.name)
	}
	if len(data) == 0 {
		return nil
	}
	if data[0] == 0xF0 {
		return p.sendLong(data)
	}

	// Status in the low byte, data bytes above it.
	var msg uint32
	for i := min(len(data), 3) - 1; i >= 0; i-- {
		msg = msg<<8 | uint32(data[i])
	}
	r1, _, _ := procMidiOutShortMsg.Call(uintptr(p.handle), uintptr(msg))
	if r1 != MMSYSERR_NOERROR {
		return fmt.Errorf("midiOutShortMsg failed on %q: code %d", p.name, r1)
	}
	return nil
}

// sendLong writes a sysex frame and waits until the driver releases the buffer
func (p *port) sendLong(data []byte) error {
	buf := append([]byte{}, data...)
	hdr := midiHdr{lpData: &buf[0], dwBufferLength: uint32(len(buf)), dwBytesRecorded: uint32(len(buf))}
	size := unsafe.Sizeof(hdr)

	if r1, _, _ := procMidiOutPrepareHeader.Call(uintptr(p.handle), uintptr(unsafe.Pointer(&hdr)), size); r1 != MMSYSERR_NOERROR {
		return fmt.Errorf("%w: code %d", ErrSysExUnsupported, r1)
	}
	r1, _, _ := procMidiOutLongMsg.Call(uintptr(p.handle), uintptr(unsafe.Pointer(&hdr)), size)
	for hdr.dwFlags&MHDR_DONE == 0 && r1 == MMSYSERR_NOERROR {
		time.Sleep(time.Millisecond)
	}
	for {
		r2, _, _ := procMidiOutUnprepareHeader.Call(uintptr(p.handle), uintptr(unsafe.Pointer(&hdr)), size)
		if r2 != MIDIERR_STILLPLAYING {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if r1 != MMSYSERR_NOERROR {
		return fmt.Errorf("midiOutLongMsg failed on %q: code %d", p.name, r1)
	}
	return nil
}

// Close resets and closes the device
func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return nil
	}
	procMidiOutReset.Call(uintptr(p.handle))
	r1, _, err := procMidiOutClose.Call(uintptr(p.handle))
	p.handle = 0
	if r1 != MMSYSERR_NOERROR {
		p.logger.Error("Failed to close MIDI device", p.logger.Field().Error("error", err))
		return fmt.Errorf("failed to close MIDI device %q: code %d", p.name, r1)
	}
	p.logger.Info("MIDI device closed", p.logger.Field().String("name", p.name))
	return nil
}
