// Package audio plays rendered PCM on the default output device.
package audio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Sink streams interleaved float32 little-endian stereo PCM from a reader.
type Sink struct {
	player *oto.Player
}

// NewSink opens the audio device at sampleRate and starts streaming from src.
// It waits for the device to become ready or for ctx to be done.
func NewSink(ctx context.Context, src io.Reader, sampleRate int) (*Sink, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	select {
	case <-ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	player := otoCtx.NewPlayer(src)
	player.Play()
	return &Sink{player: player}, nil
}

// Close stops playback.
func (s *Sink) Close() error {
	return s.player.Close()
}
