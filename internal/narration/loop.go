package narration

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrLoopClosed is returned when a call reaches a loop that is not running.
var ErrLoopClosed = errors.New("narration loop closed")

// Loop owns a Scheduler and serializes every call and backend event onto
// the goroutine running Run.
type Loop struct {
	sched *Scheduler
	inbox chan func()
	done  chan struct{}
}

// NewLoop wires sched so backend events and the settle delay are delivered
// through the loop.
func NewLoop(sched *Scheduler) *Loop {
	l := &Loop{
		sched: sched,
		inbox: make(chan func(), 256),
		done:  make(chan struct{}),
	}
	sched.SetSink(l.deliver)
	sched.SetDeferrer(l.after)
	return l
}

// Run processes the inbox until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.inbox:
			fn()
		}
	}
}

// Start begins a session and returns once the scheduler is active. When it
// returns an error no session was started.
func (l *Loop) Start(ctx context.Context, text string) (Token, error) {
	var tok Token
	err := l.call(ctx, func() { tok = l.sched.Start(text) })
	return tok, err
}

// Stop ends the session and returns once captions are cleared.
func (l *Loop) Stop(ctx context.Context) error {
	return l.call(ctx, l.sched.Stop)
}

// Snapshot reads the scheduler state.
func (l *Loop) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := l.call(ctx, func() { snap = l.sched.Snapshot() })
	return snap, err
}

// OnChange registers an observer. Observers run on the loop goroutine and
// must not call back into the loop.
func (l *Loop) OnChange(ctx context.Context, fn func(Snapshot)) error {
	return l.call(ctx, func() { l.sched.OnChange(fn) })
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// call runs fn on the loop goroutine and waits for it. A call that returns
// ctx.Err() never ran fn: the queued closure is abandoned unless the loop
// already claimed it, in which case call waits for fn to finish.
func (l *Loop) call(ctx context.Context, fn func()) error {
	const (
		pending int32 = iota
		running
		abandoned
	)
	var state atomic.Int32
	reply := make(chan struct{})
	wrapped := func() {
		if !state.CompareAndSwap(pending, running) {
			return
		}
		fn()
		close(reply)
	}

	select {
	case l.inbox <- wrapped:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-reply:
		return nil
	case <-l.done:
	case <-ctx.Done():
		if state.CompareAndSwap(pending, abandoned) {
			return ctx.Err()
		}
	}
	select {
	case <-reply:
		return nil
	case <-l.done:
		if state.Load() == running {
			<-reply
			return nil
		}
		return ErrLoopClosed
	}
}

func (l *Loop) post(fn func()) {
	select {
	case l.inbox <- fn:
	case <-l.done:
	}
}

func (l *Loop) deliver(ev Event) {
	l.post(func() { l.sched.HandleEvent(ev) })
}

func (l *Loop) after(d time.Duration, fn func()) {
	if d <= 0 {
		// Already on the loop goroutine; queue so the caller returns first.
		go l.post(fn)
		return
	}
	time.AfterFunc(d, func() { l.post(fn) })
}
