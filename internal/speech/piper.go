package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/audio"
	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/narration"
)

// maxTextSize keeps a single piper call short.
const maxTextSize = 5000

// SynthFunc turns text into raw PCM.
type SynthFunc func(ctx context.Context, text string, rate float64) ([]byte, error)

// Piper synthesizes speech with the piper CLI and plays it, and plays
// zeroed PCM for silence units.
type Piper struct {
	*worker
	synth  SynthFunc
	output audio.Output
	format audio.Format
	cache  *cache.Manager
	model  string
	logger *log.Logger
}

// PiperOptions configures NewPiper.
type PiperOptions struct {
	Binary     string
	Model      string
	ConfigPath string
	Timeout    time.Duration
	Format     audio.Format
	Cache      *cache.Manager
	Output     audio.Output
	// Synth replaces the piper subprocess, mostly for tests.
	Synth SynthFunc
}

// NewPiper checks the model exists and starts the backend.
func NewPiper(opts PiperOptions, logger *log.Logger) (*Piper, error) {
	if opts.Output == nil {
		return nil, errors.New("piper needs an audio output")
	}
	synth := opts.Synth
	if synth == nil {
		if opts.Model == "" {
			return nil, errors.New("model path is required")
		}
		if _, err := os.Stat(opts.Model); err != nil {
			return nil, fmt.Errorf("model file not found: %w", err)
		}
		if opts.ConfigPath == "" {
			opts.ConfigPath = opts.Model + ".json"
			if _, err := os.Stat(opts.ConfigPath); err != nil {
				opts.ConfigPath = strings.TrimSuffix(opts.Model, filepath.Ext(opts.Model)) + ".json"
			}
		}
		synth = piperCommand(opts.Binary, opts.Model, opts.ConfigPath, opts.Timeout)
	}

	p := &Piper{
		synth:  synth,
		output: opts.Output,
		format: opts.Format,
		cache:  opts.Cache,
		model:  filepath.Base(opts.Model),
		logger: logger,
	}
	p.worker = newWorker(p.perform, logger)
	return p, nil
}

// Name returns the backend name.
func (p *Piper) Name() string { return "piper" }

// Close stops the worker and releases the audio output.
func (p *Piper) Close() error {
	if err := p.worker.Close(); err != nil {
		return err
	}
	return p.output.Close()
}

func (p *Piper) perform(ctx context.Context, u narration.Utterance) error {
	if u.Unit.Kind == narration.UnitSilence {
		return p.output.Play(ctx, audio.Silence(u.Unit.Duration, p.format))
	}

	pcm, err := p.speech(ctx, u)
	if err != nil {
		return err
	}
	return p.output.Play(ctx, pcm)
}

func (p *Piper) speech(ctx context.Context, u narration.Utterance) ([]byte, error) {
	rate := u.Voice.Rate
	if rate <= 0 {
		rate = 1
	}

	var key string
	if p.cache != nil {
		key = cache.Key(u.Unit.Text, p.model, rate)
		if pcm, ok := p.cache.Get(key); ok {
			return pcm, nil
		}
	}

	if len(u.Unit.Text) > maxTextSize {
		return nil, fmt.Errorf("text too long: %d characters (max %d)", len(u.Unit.Text), maxTextSize)
	}
	pcm, err := p.synth(ctx, u.Unit.Text, rate)
	if err != nil {
		return nil, err
	}
	if err := audio.CheckAligned(pcm, p.format); err != nil {
		return nil, fmt.Errorf("piper output: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.Put(key, pcm); err != nil {
			p.logger.Debug("not caching speech", "err", err)
		}
	}
	return pcm, nil
}

// piperCommand runs a fresh piper process per phrase with the text already
// on stdin.
func piperCommand(binary, model, config string, timeout time.Duration) SynthFunc {
	return func(ctx context.Context, text string, rate float64) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, binary,
			"--model", model,
			"--config", config,
			"--output-raw",
			"--length-scale", fmt.Sprintf("%.2f", 1/rate),
		)
		cmd.Stdin = strings.NewReader(text)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		cmd.WaitDelay = 100 * time.Millisecond

		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("synthesis interrupted: %w", ctx.Err())
			}
			return nil, fmt.Errorf("piper failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
		}
		if stdout.Len() == 0 {
			return nil, fmt.Errorf("piper produced no audio output, stderr: %s", strings.TrimSpace(stderr.String()))
		}
		return stdout.Bytes(), nil
	}
}
