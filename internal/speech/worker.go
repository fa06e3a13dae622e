package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/narration"
	"github.com/dgnsrekt/narrate/internal/queue"
)

// performFunc plays one unit and returns when it has finished or ctx is
// cancelled.
type performFunc func(ctx context.Context, u narration.Utterance) error

type job struct {
	utterance narration.Utterance
	sink      narration.Sink
	gen       uint64
}

// worker runs queued units in order. Cancel drops the queue and interrupts
// the current unit. The interrupted unit still reports completion, which
// the scheduler discards by token.
type worker struct {
	queue   *queue.Queue[job]
	perform performFunc
	logger  *log.Logger

	mu      sync.Mutex
	gen     uint64
	current context.CancelFunc

	stop context.CancelFunc
	done chan struct{}
}

func newWorker(perform performFunc, logger *log.Logger) *worker {
	ctx, stop := context.WithCancel(context.Background())
	w := &worker{
		queue:   queue.New[job](),
		perform: perform,
		logger:  logger,
		stop:    stop,
		done:    make(chan struct{}),
	}
	go w.run(ctx)
	return w
}

// Speak implements narration.Backend.
func (w *worker) Speak(u narration.Utterance, sink narration.Sink) {
	w.mu.Lock()
	gen := w.gen
	w.mu.Unlock()

	if err := w.queue.Push(job{utterance: u, sink: sink, gen: gen}); err != nil {
		w.logger.Warn("dropping unit", "index", u.Unit.Index, "err", err)
	}
}

// Cancel implements narration.Backend.
func (w *worker) Cancel() {
	w.mu.Lock()
	w.gen++
	if w.current != nil {
		w.current()
	}
	w.mu.Unlock()

	if dropped := w.queue.Drain(); len(dropped) > 0 {
		w.logger.Debug("cancelled queued units", "count", len(dropped))
	}
}

// Close stops the worker goroutine and waits for it.
func (w *worker) Close() error {
	w.Cancel()
	w.queue.Close()
	w.stop()
	<-w.done
	return nil
}

func (w *worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		j, err := w.queue.Pop(ctx)
		if err != nil {
			return
		}

		w.mu.Lock()
		if j.gen != w.gen {
			w.mu.Unlock()
			continue
		}
		unitCtx, cancel := context.WithCancel(ctx)
		w.current = cancel
		w.mu.Unlock()

		w.play(unitCtx, j)

		w.mu.Lock()
		w.current = nil
		w.mu.Unlock()
		cancel()
	}
}

func (w *worker) play(ctx context.Context, j job) {
	u := j.utterance
	j.sink(narration.Event{Kind: narration.EventStarted, Unit: u.Unit, Token: u.Token})

	if err := w.perform(ctx, u); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("unit failed", "index", u.Unit.Index, "kind", u.Unit.Kind, "err", err)
	}

	// Completion is always reported so the session can drain even when a
	// unit fails.
	j.sink(narration.Event{Kind: narration.EventCompleted, Unit: u.Unit, Token: u.Token})
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
