package speech

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/narration"
)

// vocalizeThreshold is roughly where real engines start reading a long
// silence instruction aloud.
const vocalizeThreshold = 10 * time.Second

// Sim is a backend that produces no sound. Speech takes as long as reading
// the words at WordsPerMinute, silence takes its duration, and both are
// divided by TimeScale.
type Sim struct {
	*worker
	wpm    int
	scale  float64
	logger *log.Logger
}

// NewSim creates a simulated backend.
func NewSim(wpm int, scale float64, logger *log.Logger) *Sim {
	if wpm <= 0 {
		wpm = 150
	}
	if scale <= 0 {
		scale = 1
	}
	s := &Sim{wpm: wpm, scale: scale, logger: logger}
	s.worker = newWorker(s.perform, logger)
	return s
}

// Name returns the backend name.
func (s *Sim) Name() string { return "sim" }

// Length returns how long u takes before scaling.
func (s *Sim) Length(u narration.Utterance) time.Duration {
	switch u.Unit.Kind {
	case narration.UnitSilence:
		return u.Unit.Duration
	default:
		words := len(strings.Fields(u.Unit.Text))
		d := time.Duration(words) * time.Minute / time.Duration(s.wpm)
		if rate := u.Voice.Rate; rate > 0 {
			d = time.Duration(float64(d) / rate)
		}
		return d
	}
}

func (s *Sim) perform(ctx context.Context, u narration.Utterance) error {
	if u.Unit.Kind == narration.UnitSilence && u.Unit.Duration > vocalizeThreshold {
		s.logger.Warn("long silence would be spoken aloud by a real engine", "duration", u.Unit.Duration)
	}
	return sleep(ctx, time.Duration(float64(s.Length(u))/s.scale))
}
