package audio

import (
	"errors"
	"fmt"
	"time"
)

// Format describes signed little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// PiperFormat is what piper writes with --output-raw for medium voices.
func PiperFormat() Format {
	return Format{SampleRate: 22050, Channels: 1, BitDepth: 16}
}

// FrameSize returns the number of bytes per sample frame.
func (f Format) FrameSize() int {
	return f.BitDepth / 8 * f.Channels
}

// Validate checks that f can be played.
func (f Format) Validate() error {
	switch f.SampleRate {
	case 16000, 22050, 24000, 44100, 48000:
	default:
		return fmt.Errorf("unsupported sample rate %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", f.BitDepth)
	}
	return nil
}

// Duration returns how long n bytes of PCM play for.
func Duration(n int, f Format) time.Duration {
	if f.SampleRate == 0 || f.FrameSize() == 0 {
		return 0
	}
	frames := n / f.FrameSize()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Silence returns zeroed PCM lasting d, rounded down to a whole frame.
func Silence(d time.Duration, f Format) []byte {
	if d <= 0 || f.FrameSize() == 0 {
		return nil
	}
	frames := int(d * time.Duration(f.SampleRate) / time.Second)
	return make([]byte, frames*f.FrameSize())
}

// CheckAligned reports PCM whose length is not a whole number of frames.
func CheckAligned(data []byte, f Format) error {
	if len(data) == 0 {
		return errors.New("empty PCM data")
	}
	if size := f.FrameSize(); size == 0 || len(data)%size != 0 {
		return fmt.Errorf("PCM data length %d is not aligned to %d-byte frames", len(data), size)
	}
	return nil
}
