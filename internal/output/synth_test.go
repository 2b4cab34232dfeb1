package output

import (
	"context"
	"testing"

	"github.com/leandrodaf/midibridge/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSynth(t *testing.T, engine *fakeSynth) contracts.Output {
	t.Helper()
	log, _ := observedLogger()
	out, err := SynthOpener{Engine: engine, Logger: log}.Open(context.Background(), "")
	require.NoError(t, err)
	return out
}

func TestSynthNoteOnForwardsChannelNoteVelocity(t *testing.T) {
	engine := &fakeSynth{ready: true}
	out := openSynth(t, engine)

	for ch := 0; ch < 16; ch++ {
		msg := contracts.NewMessage(contracts.NoteOn, contracts.WithChannel(ch), contracts.WithNote(40+ch), contracts.WithVelocity(90-ch))
		require.NoError(t, out.Send(msg, uint64(ch)))
	}

	require.Len(t, engine.calls, 16)
	for ch, c := range engine.calls {
		assert.Equal(t, synthCall{op: "note_on", args: []int32{int32(ch), int32(40 + ch), int32(90 - ch)}}, c)
	}
}

func TestSynthNoteOffDropsVelocity(t *testing.T) {
	engine := &fakeSynth{ready: true}
	out := openSynth(t, engine)

	require.NoError(t, out.Send(contracts.NewMessage(contracts.NoteOff, contracts.WithChannel(1), contracts.WithNote(60), contracts.WithVelocity(10)), 0))
	assert.Equal(t, []synthCall{{op: "note_off", args: []int32{1, 60}}}, engine.calls)
}

func TestSynthControlChangeOnlyOnControlChannel(t *testing.T) {
	engine := &fakeSynth{ready: true}
	out := openSynth(t, engine)

	for ch := 0; ch < 16; ch++ {
		if ch == SynthControlChannel {
			continue
		}
		for _, ctl := range []int{1, 7, 64, 121} {
			msg := contracts.NewMessage(contracts.ControlChange, contracts.WithChannel(ch), contracts.WithControl(ctl), contracts.WithValue(127))
			require.NoError(t, out.Send(msg, 0))
		}
	}
	assert.Empty(t, engine.calls)

	msg := contracts.NewMessage(contracts.ControlChange, contracts.WithChannel(SynthControlChannel), contracts.WithControl(64), contracts.WithValue(127))
	require.NoError(t, out.Send(msg, 0))
	assert.Equal(t, []synthCall{{op: "control_change", args: []int32{SynthControlChannel, 64, 127}}}, engine.calls)
}

func TestSynthIgnoresOtherTypes(t *testing.T) {
	engine := &fakeSynth{ready: true}
	out := openSynth(t, engine)

	for _, typ := range []contracts.MessageType{contracts.ProgramChange, contracts.PitchBend, contracts.SongSelect, contracts.SysEx, "aftertouch"} {
		require.NoError(t, out.Send(contracts.NewMessage(typ), 0))
	}
	assert.Empty(t, engine.calls)
}

func TestSynthContainsEnginePanics(t *testing.T) {
	engine := &fakeSynth{ready: true, panicOn: "note_on"}
	log, logs := observedLogger()
	out, err := SynthOpener{Engine: engine, Logger: log}.Open(context.Background(), "")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		require.NoError(t, out.Send(contracts.NewMessage(contracts.NoteOn, contracts.WithNote(60)), 0))
	})
	require.NoError(t, out.Send(contracts.NewMessage(contracts.NoteOff, contracts.WithNote(60)), 0))

	assert.Equal(t, 1, logs.FilterMessage("Synthesis call failed").Len())
	assert.Equal(t, []synthCall{{op: "note_off", args: []int32{0, 60}}}, engine.calls)
}

func TestSynthOpenRequiresReadyEngine(t *testing.T) {
	log, _ := observedLogger()
	ctx := context.Background()

	_, err := SynthOpener{Logger: log}.Open(ctx, "")
	assert.ErrorIs(t, err, contracts.ErrDeviceUnavailable)

	_, err = SynthOpener{Engine: &fakeSynth{}, Logger: log}.Open(ctx, "")
	assert.ErrorIs(t, err, contracts.ErrDeviceUnavailable)
}

func TestSynthPanicResetAndClose(t *testing.T) {
	engine := &fakeSynth{ready: true}
	log, _ := observedLogger()
	out, err := SynthOpener{Engine: engine, Logger: log}.Open(context.Background(), "", contracts.Autoreset())
	require.NoError(t, err)
	require.Len(t, engine.calls, 32)
	assert.Equal(t, synthCall{op: "control_change", args: []int32{15, 121, 0}}, engine.calls[31])

	engine.calls = nil
	require.NoError(t, out.Panic())
	require.Len(t, engine.calls, 16)
	for ch, c := range engine.calls {
		assert.Equal(t, synthCall{op: "control_change", args: []int32{int32(ch), 120, 0}}, c)
	}

	require.NoError(t, out.Close())
	require.NoError(t, out.Close())
	assert.ErrorIs(t, out.Send(contracts.NewMessage(contracts.NoteOn), 0), contracts.ErrInvalidState)
}
