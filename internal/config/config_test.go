package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "espeak" }, "backend"},
		{"negative settle", func(c *Config) { c.SettleDelay = -time.Second }, "settle_delay"},
		{"slow rate", func(c *Config) { c.Voice.Rate = 0.1 }, "voice.rate"},
		{"loud", func(c *Config) { c.Voice.Volume = 1.5 }, "voice.volume"},
		{"zero wpm", func(c *Config) { c.Sim.WordsPerMinute = 0 }, "words_per_minute"},
		{"piper without model", func(c *Config) { c.Backend = BackendPiper }, "piper.model"},
		{"compression", func(c *Config) { c.Cache.CompressionLevel = 30 }, "compression_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(`
backend: sim
settle_delay: 1s
voice:
  name: Samantha
  rate: 0.8
sim:
  time_scale: 20
`)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend != BackendSim || cfg.SettleDelay != time.Second {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Voice.Name != "Samantha" || cfg.Voice.Rate != 0.8 || cfg.Voice.Volume != 1.0 {
		t.Errorf("Voice = %+v, want overlay on defaults", cfg.Voice)
	}
	if cfg.Sim.TimeScale != 20 || cfg.Sim.WordsPerMinute != 150 {
		t.Errorf("Sim = %+v", cfg.Sim)
	}

	sc := cfg.SchedulerConfig()
	if sc.Voice.Name != "Samantha" || sc.SettleDelay != time.Second {
		t.Errorf("SchedulerConfig() = %+v", sc)
	}
}

func TestLoadInvalid(t *testing.T) {
	v := viper.New()
	v.Set("backend", "nope")
	if _, err := Load(v); err == nil {
		t.Error("Load() = nil error, want invalid backend")
	}
}
