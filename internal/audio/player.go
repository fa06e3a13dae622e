package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Output plays PCM and blocks until it finishes or ctx is done.
type Output interface {
	Play(ctx context.Context, pcm []byte) error
	Close() error
}

// ErrClosed is returned by Play after Close.
var ErrClosed = errors.New("player is closed")

// pollInterval is how often Play checks whether oto has drained.
const pollInterval = 20 * time.Millisecond

// Player plays PCM on the default audio device. Only one buffer plays at
// a time; a second Play waits for the first.
type Player struct {
	context *oto.Context
	format  Format
	volume  float64

	// Serializes playback.
	mu     sync.Mutex
	closed bool
}

// NewPlayer opens the audio device for PCM in format f.
func NewPlayer(f Format, volume float64) (*Player, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}
	if volume < 0 || volume > 1 {
		return nil, fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}

	op := &oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	return &Player{context: ctx, format: f, volume: volume}, nil
}

// Format returns the PCM format the device was opened with.
func (p *Player) Format() Format {
	return p.format
}

// Play blocks until pcm has played or ctx is done. Cancelling ctx cuts the
// audio off immediately.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	if err := CheckAligned(pcm, p.format); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	// The reader must outlive playback or oto reads freed memory.
	data := bytes.Clone(pcm)
	player := p.context.NewPlayer(bytes.NewReader(data))
	defer player.Close()
	player.SetVolume(p.volume)
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
			if !player.IsPlaying() {
				return player.Err()
			}
		}
	}
}

// Close stops accepting new audio. oto contexts cannot be released, so the
// device stays open until the process exits.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
