package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/dgnsrekt/narrate/internal/cache"
	"github.com/dgnsrekt/narrate/internal/config"
	"github.com/dgnsrekt/narrate/internal/narration"
	"github.com/dgnsrekt/narrate/internal/speech"
	"github.com/dgnsrekt/narrate/utils"
)

const megabyte = 1 << 20

// session ties a backend, its audio cache and a running narration loop
// together for one invocation.
type session struct {
	loop    *narration.Loop
	backend speech.Backend
	cache   *cache.Manager
	cancel  context.CancelFunc
	done    chan error
}

// cacheConfig resolves the audio cache settings. An empty dir means the
// user cache dir.
func cacheConfig(cfg config.Config) (cache.Config, error) {
	dir := utils.ExpandPath(cfg.Cache.Dir)
	if dir == "" {
		base, err := gap.NewScope(gap.User, "narrate").CacheDir()
		if err != nil {
			return cache.Config{}, fmt.Errorf("unable to find cache directory: %w", err)
		}
		dir = filepath.Join(base, "audio")
	}
	cc := cache.Config{
		MemoryCapacity:   int64(cfg.Cache.MemoryMB) * megabyte,
		DiskCapacity:     int64(cfg.Cache.DiskMB) * megabyte,
		Dir:              dir,
		CompressionLevel: cfg.Cache.CompressionLevel,
		TTL:              cfg.Cache.TTL,
	}
	if !cfg.Cache.Enabled {
		cc.MemoryCapacity, cc.DiskCapacity = 0, 0
	}
	return cc, nil
}

func openCache(cfg config.Config) (*cache.Manager, error) {
	cc, err := cacheConfig(cfg)
	if err != nil {
		return nil, err
	}
	return cache.NewManager(cc, log.Default().WithPrefix("cache")) //nolint:wrapcheck
}

// startSession builds the backend and starts the loop goroutine. The loop
// stops when ctx is canceled or Close is called.
func startSession(ctx context.Context, cfg config.Config) (*session, error) {
	pcm, err := openCache(cfg)
	if err != nil {
		return nil, err
	}

	logger := log.Default()
	backend, err := speech.New(ctx, cfg, pcm, logger)
	if err != nil {
		_ = pcm.Close()
		return nil, fmt.Errorf("unable to start speech backend: %w", err)
	}
	log.Info("narrating", "backend", backend.Name(), "settle_delay", cfg.SettleDelay)

	sched := narration.NewScheduler(backend, cfg.SchedulerConfig())
	sched.SetLogger(logger.WithPrefix("scheduler"))
	loop := narration.NewLoop(sched)

	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		loop:    loop,
		backend: backend,
		cache:   pcm,
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() { s.done <- loop.Run(ctx) }()
	return s, nil
}

// Close stops narration and releases the backend and cache.
func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	_ = s.loop.Stop(ctx)
	cancel()

	s.cancel()
	err := <-s.done
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, s.backend.Close(), s.cache.Close())
}
