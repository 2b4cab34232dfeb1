package midi

import (
	"context"
	"errors"
	"testing"

	"github.com/leandrodaf/midibridge/internal/output"
	"github.com/leandrodaf/midibridge/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullBackendLogsEachMessageOnce(t *testing.T) {
	log, logs := observedLogger()
	d := newDispatcher(log)
	require.NoError(t, d.BindOpen(context.Background(), output.NullOpener{Logger: log}, ""))

	msg := contracts.NewMessage(contracts.NoteOn, contracts.WithNote(60), contracts.WithVelocity(100))
	require.NoError(t, d.Send(msg, 1000))

	entries := logs.FilterMessageSnippet("note_on").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "60")
	assert.Contains(t, entries[0].Message, "100")
	assert.Equal(t, uint64(1000), entries[0].ContextMap()["timestamp"])
}

func TestSynthBackendCountsNoteOnsAndDropsUnknownTypes(t *testing.T) {
	log, _ := observedLogger()
	engine := &countingSynth{}
	d := newDispatcher(log)
	require.NoError(t, d.BindOpen(context.Background(), output.SynthOpener{Engine: engine, Logger: log}, ""))

	for i := 0; i < 100; i++ {
		msg := contracts.NewMessage(contracts.NoteOn, contracts.WithNote(i), contracts.WithVelocity(90))
		require.NoError(t, d.Send(msg, uint64(i)))
	}
	require.NoError(t, d.Send(contracts.NewMessage("aftertouch"), 100))

	assert.Equal(t, 100, engine.noteOns)
	assert.Zero(t, engine.others)
	assert.Equal(t, uint64(1), d.Dropped())
}

func TestOpenFailureLeavesDispatcherUninitialized(t *testing.T) {
	log, _ := observedLogger()
	d := newDispatcher(log)

	err := d.BindOpen(context.Background(), failingOpener(), "missing")
	assert.ErrorIs(t, err, errNoDevice)
	assert.Equal(t, Uninitialized, d.State())
	assert.Nil(t, d.Backend())

	err = d.Send(contracts.NewMessage(contracts.NoteOn), 0)
	assert.ErrorIs(t, err, contracts.ErrInvalidState)
}

func TestSynthOpenWithoutInstrumentFails(t *testing.T) {
	log, _ := observedLogger()
	d := newDispatcher(log)

	err := d.BindOpen(context.Background(), output.SynthOpener{Logger: log}, "")
	assert.ErrorIs(t, err, contracts.ErrDeviceUnavailable)
	assert.Equal(t, Uninitialized, d.State())
}

func TestSendAfterCloseFails(t *testing.T) {
	log, _ := observedLogger()
	out := &recordingOutput{name: "rec"}
	d := newDispatcher(log)
	require.NoError(t, d.Bind(out))

	require.NoError(t, d.Close())
	assert.Equal(t, Closed, d.State())
	assert.Equal(t, 1, out.closed)

	err := d.Send(contracts.NewMessage(contracts.NoteOn), 0)
	assert.ErrorIs(t, err, contracts.ErrInvalidState)
	assert.Zero(t, out.count())

	require.NoError(t, d.Close(), "closing twice is a no-op")
	assert.Equal(t, 1, out.closed)
}

func TestCloseBeforeBind(t *testing.T) {
	log, _ := observedLogger()
	d := newDispatcher(log)
	assert.ErrorIs(t, d.Close(), contracts.ErrInvalidState)
}

func TestBindWhileBound(t *testing.T) {
	log, _ := observedLogger()
	first := &recordingOutput{name: "first"}
	second := &recordingOutput{name: "second"}
	d := newDispatcher(log)
	require.NoError(t, d.Bind(first))

	assert.ErrorIs(t, d.Bind(second), contracts.ErrInvalidState)
	assert.ErrorIs(t, d.BindOpen(context.Background(), openerFor(second), ""), contracts.ErrInvalidState)
	assert.Equal(t, first, d.Backend())

	require.NoError(t, d.Close())
	require.NoError(t, d.Bind(second))
	assert.Equal(t, Bound, d.State())

	require.NoError(t, d.Send(contracts.NewMessage(contracts.NoteOff, contracts.WithNote(61)), 7))
	assert.Zero(t, first.count())
	require.Equal(t, 1, second.count())
	assert.Equal(t, uint64(7), second.sent[0].timestamp)
}

func TestBindNil(t *testing.T) {
	log, _ := observedLogger()
	assert.ErrorIs(t, newDispatcher(log).Bind(nil), contracts.ErrMalformedRequest)
}

func TestSendForwardsMessageAndTimestampUnchanged(t *testing.T) {
	log, _ := observedLogger()
	out := &recordingOutput{name: "rec"}
	d := newDispatcher(log)
	require.NoError(t, d.Bind(out))

	msgs := []contracts.Message{
		contracts.NewMessage(contracts.NoteOn, contracts.WithChannel(3), contracts.WithNote(64)),
		contracts.NewMessage(contracts.ControlChange, contracts.WithControl(7), contracts.WithValue(100)),
		contracts.NewMessage(contracts.ProgramChange, contracts.WithProgram(5)),
		contracts.NewMessage(contracts.PitchBend, contracts.WithPitch(-8192)),
		contracts.NewMessage(contracts.SongSelect, contracts.WithSong(2)),
		contracts.NewMessage(contracts.SysEx, contracts.WithData([]byte{0x7E, 0x7F, 0x09, 0x01})),
	}
	for i, msg := range msgs {
		require.NoError(t, d.Send(msg, uint64(500-i)))
	}

	require.Equal(t, len(msgs), out.count())
	for i, s := range out.sent {
		assert.Equal(t, msgs[i], s.msg)
		assert.Equal(t, uint64(500-i), s.timestamp)
	}
}

func TestDeliveryFailureIsLoggedAndContained(t *testing.T) {
	log, logs := observedLogger()
	out := &recordingOutput{name: "rec", sendErr: errors.New("cable unplugged")}
	d := newDispatcher(log)
	require.NoError(t, d.Bind(out))

	require.NoError(t, d.Send(contracts.NewMessage(contracts.NoteOn), 0))

	assert.Equal(t, uint64(1), d.Dropped())
	entries := logs.FilterMessage("Delivery failed; message dropped").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "cable unplugged")
	assert.Equal(t, Bound, d.State())
}

func TestBackendPanicIsContained(t *testing.T) {
	log, logs := observedLogger()
	out := &recordingOutput{name: "rec", panicOn: contracts.NoteOn}
	d := newDispatcher(log)
	require.NoError(t, d.Bind(out))

	require.NotPanics(t, func() {
		require.NoError(t, d.Send(contracts.NewMessage(contracts.NoteOn), 0))
	})
	require.NoError(t, d.Send(contracts.NewMessage(contracts.NoteOff), 1))

	assert.Equal(t, 1, out.count())
	assert.Equal(t, uint64(1), d.Dropped())
	assert.Equal(t, 1, logs.FilterMessage("Delivery failed; message dropped").Len())
}

func TestFailureLogsAreThrottled(t *testing.T) {
	log, logs := observedLogger()
	out := &recordingOutput{name: "rec", sendErr: errors.New("busy")}
	d := newDispatcher(log)
	require.NoError(t, d.Bind(out))

	for i := 0; i < 50; i++ {
		require.NoError(t, d.Send(contracts.NewMessage(contracts.NoteOn), uint64(i)))
	}

	assert.Equal(t, uint64(50), d.Dropped())
	assert.Equal(t, 10, logs.FilterMessage("Delivery failed; message dropped").Len())
}

func TestOutOfRangeFieldsAreDropped(t *testing.T) {
	log, _ := observedLogger()
	out := &recordingOutput{name: "rec"}
	d := newDispatcher(log)
	require.NoError(t, d.Bind(out))

	require.NoError(t, d.Send(contracts.NewMessage(contracts.NoteOn, contracts.WithNote(128)), 0))
	require.NoError(t, d.Send(contracts.NewMessage(contracts.NoteOn, contracts.WithChannel(16)), 0))
	require.NoError(t, d.Send(contracts.NewMessage(contracts.SongSelect, contracts.WithSong(60), contracts.WithNote(300)), 0))

	assert.Equal(t, 1, out.count(), "fields irrelevant to the type are not validated")
	assert.Equal(t, uint64(2), d.Dropped())
}

func TestPanicAndResetPassThrough(t *testing.T) {
	log, _ := observedLogger()
	out := &recordingOutput{name: "rec"}
	d := newDispatcher(log)

	assert.ErrorIs(t, d.Panic(), contracts.ErrInvalidState)
	assert.ErrorIs(t, d.Reset(), contracts.ErrInvalidState)

	require.NoError(t, d.Bind(out))
	require.NoError(t, d.Panic())
	require.NoError(t, d.Reset())
	assert.Equal(t, 1, out.panics)
	assert.Equal(t, 1, out.resets)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "bound", Bound.String())
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "state(9)", State(9).String())
}
