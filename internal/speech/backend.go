package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/config"
	"github.com/dgnsrekt/narrate/internal/narration"
)

// Backend is a narration backend that owns resources.
type Backend interface {
	narration.Backend
	Name() string
	Close() error
}

var (
	_ Backend = (*Sim)(nil)
	_ Backend = (*Say)(nil)
	_ Backend = (*Piper)(nil)
)

// New picks the backend named in cfg. "auto" prefers say on macOS, then
// piper when a model is configured, then sim. A backend that cannot start
// falls back to sim with a warning; only an explicit choice that fails is
// an error.
func New(ctx context.Context, cfg config.Config, pcm *cache.Manager, logger *log.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendSim:
		return newSim(cfg, logger), nil
	case config.BackendSay:
		return newSay(ctx, cfg, logger)
	case config.BackendPiper:
		return newPiper(cfg, pcm, logger)
	}

	if runtime.GOOS == "darwin" {
		if b, err := newSay(ctx, cfg, logger); err == nil {
			return b, nil
		}
	}
	if cfg.Piper.Model != "" {
		b, err := newPiper(cfg, pcm, logger)
		if err == nil {
			return b, nil
		}
		logger.Warn("falling back to simulated speech", "err", err)
	}
	return newSim(cfg, logger), nil
}

func newSim(cfg config.Config, logger *log.Logger) Backend {
	return NewSim(cfg.Sim.WordsPerMinute, cfg.Sim.TimeScale, logger.WithPrefix("sim"))
}

func newSay(ctx context.Context, cfg config.Config, logger *log.Logger) (Backend, error) {
	if _, err := exec.LookPath(cfg.Say.Binary); err != nil {
		return nil, unavailable("say", err)
	}
	return NewSay(ctx, cfg.Say.Binary, cfg.Voice.Name, logger.WithPrefix("say")), nil
}

func newPiper(cfg config.Config, pcm *cache.Manager, logger *log.Logger) (Backend, error) {
	if _, err := exec.LookPath(cfg.Piper.Binary); err != nil {
		return nil, unavailable("piper", err)
	}

	format := audio.PiperFormat()
	format.SampleRate = cfg.Piper.SampleRate
	player, err := audio.NewPlayer(format, cfg.Voice.Volume)
	if err != nil {
		return nil, unavailable("audio device", err)
	}

	b, err := NewPiper(PiperOptions{
		Binary:     cfg.Piper.Binary,
		Model:      cfg.Piper.Model,
		ConfigPath: cfg.Piper.ConfigPath,
		Timeout:    cfg.Piper.Timeout,
		Format:     format,
		Cache:      pcm,
		Output:     player,
	}, logger.WithPrefix("piper"))
	if err != nil {
		_ = player.Close()
		return nil, unavailable("piper", err)
	}
	return b, nil
}

func unavailable(what string, err error) error {
	return narration.NewError(narration.ErrorCodeBackendUnavailable, what,
		errors.Join(narration.ErrBackendUnavailable, fmt.Errorf("%s: %w", what, err)))
}
