// Package config holds narrate's settings and their defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgnsrekt/narrate/internal/narration"
)

// Backend names.
const (
	BackendAuto  = "auto"
	BackendSim   = "sim"
	BackendSay   = "say"
	BackendPiper = "piper"
)

// Config contains every narrate setting.
type Config struct {
	Backend     string        `yaml:"backend" mapstructure:"backend"`
	SettleDelay time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
	LibraryDir  string        `yaml:"library_dir" mapstructure:"library_dir"`

	Voice VoiceConfig `yaml:"voice" mapstructure:"voice"`
	Sim   SimConfig   `yaml:"sim" mapstructure:"sim"`
	Say   SayConfig   `yaml:"say" mapstructure:"say"`
	Piper PiperConfig `yaml:"piper" mapstructure:"piper"`
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// VoiceConfig is handed to the backend unchanged.
type VoiceConfig struct {
	Name   string  `yaml:"name" mapstructure:"name"`
	Rate   float64 `yaml:"rate" mapstructure:"rate"`
	Pitch  float64 `yaml:"pitch" mapstructure:"pitch"`
	Volume float64 `yaml:"volume" mapstructure:"volume"`
}

// SimConfig drives the simulated backend.
type SimConfig struct {
	WordsPerMinute int     `yaml:"words_per_minute" mapstructure:"words_per_minute"`
	TimeScale      float64 `yaml:"time_scale" mapstructure:"time_scale"`
}

// SayConfig drives the macOS say backend.
type SayConfig struct {
	Binary string `yaml:"binary" mapstructure:"binary"`
}

// PiperConfig drives the piper backend.
type PiperConfig struct {
	Binary     string        `yaml:"binary" mapstructure:"binary"`
	Model      string        `yaml:"model" mapstructure:"model"`
	ConfigPath string        `yaml:"config" mapstructure:"config"`
	SampleRate int           `yaml:"sample_rate" mapstructure:"sample_rate"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig sizes the synthesized audio cache.
type CacheConfig struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir              string        `yaml:"dir" mapstructure:"dir"`
	MemoryMB         int           `yaml:"memory_mb" mapstructure:"memory_mb"`
	DiskMB           int           `yaml:"disk_mb" mapstructure:"disk_mb"`
	CompressionLevel int           `yaml:"compression_level" mapstructure:"compression_level"`
	TTL              time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend:     BackendAuto,
		SettleDelay: narration.DefaultSettleDelay,
		Voice: VoiceConfig{
			Rate:   1.0,
			Pitch:  1.0,
			Volume: 1.0,
		},
		Sim: SimConfig{
			WordsPerMinute: 150,
			TimeScale:      1.0,
		},
		Say: SayConfig{
			Binary: "say",
		},
		Piper: PiperConfig{
			Binary:     "piper",
			SampleRate: 22050,
			Timeout:    30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:          true,
			MemoryMB:         64,
			DiskMB:           512,
			CompressionLevel: 3,
			TTL:              7 * 24 * time.Hour,
		},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendSim, BackendSay, BackendPiper:
	default:
		return fmt.Errorf("backend must be one of auto, sim, say, piper; got %q", c.Backend)
	}
	if c.SettleDelay < 0 || c.SettleDelay > 10*time.Second {
		return fmt.Errorf("settle_delay must be between 0 and 10s, got %v", c.SettleDelay)
	}
	if c.Voice.Rate < 0.5 || c.Voice.Rate > 2.0 {
		return fmt.Errorf("voice.rate must be between 0.5 and 2.0, got %.2f", c.Voice.Rate)
	}
	if c.Voice.Pitch < 0.5 || c.Voice.Pitch > 2.0 {
		return fmt.Errorf("voice.pitch must be between 0.5 and 2.0, got %.2f", c.Voice.Pitch)
	}
	if c.Voice.Volume < 0 || c.Voice.Volume > 1.0 {
		return fmt.Errorf("voice.volume must be between 0.0 and 1.0, got %.2f", c.Voice.Volume)
	}
	if c.Sim.WordsPerMinute <= 0 {
		return errors.New("sim.words_per_minute must be positive")
	}
	if c.Sim.TimeScale <= 0 {
		return errors.New("sim.time_scale must be positive")
	}
	if c.Backend == BackendPiper && c.Piper.Model == "" {
		return errors.New("piper.model is required when backend is piper")
	}
	if c.Piper.Timeout <= 0 {
		return errors.New("piper.timeout must be positive")
	}
	if c.Cache.MemoryMB < 0 || c.Cache.DiskMB < 0 {
		return errors.New("cache sizes must not be negative")
	}
	if c.Cache.CompressionLevel < 1 || c.Cache.CompressionLevel > 22 {
		return fmt.Errorf("cache.compression_level must be between 1 and 22, got %d", c.Cache.CompressionLevel)
	}
	return nil
}

// SchedulerConfig converts the settings the scheduler needs.
func (c Config) SchedulerConfig() narration.Config {
	return narration.Config{
		SettleDelay: c.SettleDelay,
		Voice: narration.Voice{
			Name:   c.Voice.Name,
			Rate:   c.Voice.Rate,
			Pitch:  c.Voice.Pitch,
			Volume: c.Voice.Volume,
		},
	}
}
