package audio

import (
	"context"
	"sync"
	"time"
)

// MockPlayer pretends to play PCM, sleeping for its duration divided by
// Speed. It records every buffer it was given.
type MockPlayer struct {
	Format Format
	Speed  float64

	mu      sync.Mutex
	plays   [][]byte
	cancels int
	closed  bool
}

// NewMockPlayer creates a mock that plays ten times faster than real time.
func NewMockPlayer(f Format) *MockPlayer {
	return &MockPlayer{Format: f, Speed: 10}
}

// Play records pcm and waits for its scaled duration.
func (m *MockPlayer) Play(ctx context.Context, pcm []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.plays = append(m.plays, pcm)
	wait := Duration(len(pcm), m.Format)
	if m.Speed > 0 {
		wait = time.Duration(float64(wait) / m.Speed)
	}
	m.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		m.mu.Lock()
		m.cancels++
		m.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close marks the mock closed.
func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Plays returns the buffers played so far.
func (m *MockPlayer) Plays() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.plays...)
}

// Cancels returns how many plays were cut off by their context.
func (m *MockPlayer) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}
