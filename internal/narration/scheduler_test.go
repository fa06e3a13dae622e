package narration

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type fakeBackend struct {
	spoken  []Utterance
	sink    Sink
	cancels int
}

func (f *fakeBackend) Speak(u Utterance, sink Sink) {
	f.spoken = append(f.spoken, u)
	f.sink = sink
}

func (f *fakeBackend) Cancel() { f.cancels++ }

func (f *fakeBackend) emit(kind EventKind, i int) {
	u := f.spoken[i]
	f.sink(Event{Kind: kind, Unit: u.Unit, Token: u.Token})
}

// play starts and completes unit i.
func (f *fakeBackend) play(i int) {
	f.emit(EventStarted, i)
	f.emit(EventCompleted, i)
}

type harness struct {
	sched   *Scheduler
	backend *fakeBackend
	pending []func()
	snaps   []Snapshot
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{backend: &fakeBackend{}}
	h.sched = NewScheduler(h.backend, Config{
		SettleDelay: DefaultSettleDelay,
		Voice:       Voice{Name: "calm", Rate: 0.9, Pitch: 1, Volume: 1},
	})
	h.sched.SetLogger(log.New(io.Discard))
	h.sched.SetDeferrer(func(d time.Duration, fn func()) {
		if d != DefaultSettleDelay {
			t.Errorf("settle delay = %v, want %v", d, DefaultSettleDelay)
		}
		h.pending = append(h.pending, fn)
	})
	h.sched.OnChange(func(s Snapshot) { h.snaps = append(h.snaps, s) })
	return h
}

// settle runs the oldest deferred dispatch.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	if len(h.pending) == 0 {
		t.Fatal("no pending dispatch")
	}
	fn := h.pending[0]
	h.pending = h.pending[1:]
	fn()
}

func TestSchedulerLifecycle(t *testing.T) {
	h := newHarness(t)

	if got := h.sched.State(); got != StateIdle {
		t.Fatalf("State() = %v, want %v", got, StateIdle)
	}
	if h.sched.Active() {
		t.Fatal("Active() = true before Start")
	}

	tok := h.sched.Start("Breathe in. (3s)\nBreathe out. (3s)")
	if tok.IsZero() {
		t.Fatal("Start() returned zero token")
	}
	if got := h.sched.State(); got != StateLoading {
		t.Errorf("State() = %v, want %v", got, StateLoading)
	}
	if !h.sched.Active() {
		t.Error("Active() = false right after Start")
	}
	if len(h.backend.spoken) != 0 {
		t.Errorf("spoken = %d before settle, want 0", len(h.backend.spoken))
	}

	h.settle(t)
	snap := h.sched.Snapshot()
	if snap.State != StatePlaying || snap.Outstanding != 4 || snap.Units != 4 || snap.Phrases != 2 {
		t.Fatalf("Snapshot() = %+v, want playing with 4 outstanding", snap)
	}
	if len(h.backend.spoken) != 4 {
		t.Fatalf("spoken = %d, want 4", len(h.backend.spoken))
	}

	wantKinds := []UnitKind{UnitSpeech, UnitSilence, UnitSpeech, UnitSilence}
	for i, u := range h.backend.spoken {
		if u.Unit.Kind != wantKinds[i] {
			t.Errorf("unit %d kind = %v, want %v", i, u.Unit.Kind, wantKinds[i])
		}
		if u.Token != tok {
			t.Errorf("unit %d token = %v, want %v", i, u.Token, tok)
		}
		if u.Voice.Name != "calm" || u.Voice.Rate != 0.9 {
			t.Errorf("unit %d voice = %+v, want passthrough", i, u.Voice)
		}
	}

	h.backend.emit(EventStarted, 0)
	if got := h.sched.Snapshot().Current; got != "Breathe in." {
		t.Errorf("Current = %q, want %q", got, "Breathe in.")
	}
	h.backend.emit(EventCompleted, 0)
	h.backend.play(1)
	h.backend.emit(EventStarted, 2)

	snap = h.sched.Snapshot()
	if snap.Current != "Breathe out." || snap.Previous != "Breathe in." {
		t.Errorf("caption = (%q, %q), want (%q, %q)", snap.Current, snap.Previous, "Breathe out.", "Breathe in.")
	}
	h.backend.emit(EventCompleted, 2)
	h.backend.emit(EventStarted, 3)
	if !h.sched.Active() {
		t.Error("Active() = false during final pause")
	}

	h.backend.emit(EventCompleted, 3)
	snap = h.sched.Snapshot()
	if snap.State != StateStopped || snap.Active || snap.Current != "" || snap.Previous != "" || snap.Outstanding != 0 {
		t.Errorf("Snapshot() = %+v, want stopped and cleared", snap)
	}
}

func TestSchedulerActiveUntilLastChunk(t *testing.T) {
	h := newHarness(t)
	h.sched.Start("Relax now. (14s)")
	h.settle(t)

	if n := len(h.backend.spoken); n != 4 {
		t.Fatalf("spoken = %d, want 4", n)
	}
	for i := 0; i < 3; i++ {
		h.backend.play(i)
		if !h.sched.Active() {
			t.Fatalf("Active() = false after %d of 4 completions", i+1)
		}
	}
	h.backend.play(3)
	if h.sched.Active() {
		t.Error("Active() = true after last completion")
	}

	// Late duplicates change nothing.
	h.backend.emit(EventCompleted, 3)
	if snap := h.sched.Snapshot(); snap.Outstanding != 0 || snap.State != StateStopped {
		t.Errorf("Snapshot() = %+v after duplicate completion", snap)
	}
}

func TestSchedulerCaptionPointer(t *testing.T) {
	h := newHarness(t)
	h.sched.Start("One. (3s) Two. (3s)")
	h.settle(t)

	h.backend.emit(EventStarted, 1)
	if snap := h.sched.Snapshot(); snap.Pointer != 0 || snap.Current != "" {
		t.Errorf("silence start moved caption: %+v", snap)
	}

	for i := 0; i < 5; i++ {
		h.backend.emit(EventStarted, 0)
	}
	snap := h.sched.Snapshot()
	if snap.Pointer != snap.Phrases {
		t.Errorf("Pointer = %d, want %d", snap.Pointer, snap.Phrases)
	}
	if snap.Current != "Two." || snap.Previous != "One." {
		t.Errorf("caption = (%q, %q), want (%q, %q)", snap.Current, snap.Previous, "Two.", "One.")
	}
}

func TestSchedulerSupersede(t *testing.T) {
	h := newHarness(t)
	first := h.sched.Start("First. (3s)")
	h.settle(t)
	h.backend.emit(EventStarted, 0)
	old := len(h.backend.spoken)

	second := h.sched.Start("Second. (8s)")
	if first == second {
		t.Fatal("Start() reused a token")
	}
	if h.backend.cancels != 1 {
		t.Errorf("cancels = %d, want 1", h.backend.cancels)
	}
	if snap := h.sched.Snapshot(); snap.Current != "" || !snap.Active || snap.State != StateLoading {
		t.Errorf("Snapshot() = %+v, want loading with empty caption", snap)
	}

	h.settle(t)
	if got := h.sched.Snapshot().Outstanding; got != 3 {
		t.Fatalf("Outstanding = %d, want 3", got)
	}

	for i := 0; i < old; i++ {
		h.backend.play(i)
	}
	snap := h.sched.Snapshot()
	if snap.Outstanding != 3 || snap.Current != "" || snap.Token != second {
		t.Errorf("stale events changed session: %+v", snap)
	}

	for i := old; i < len(h.backend.spoken); i++ {
		h.backend.play(i)
	}
	if h.sched.Active() {
		t.Error("Active() = true after second session completed")
	}
}

func TestSchedulerSupersedeBeforeSettle(t *testing.T) {
	h := newHarness(t)
	h.sched.Start("First. (3s)")
	h.sched.Start("Second.")

	h.settle(t)
	if len(h.backend.spoken) != 0 {
		t.Errorf("stale dispatch spoke %d units", len(h.backend.spoken))
	}
	if got := h.sched.State(); got != StateLoading {
		t.Errorf("State() = %v, want %v", got, StateLoading)
	}

	h.settle(t)
	if len(h.backend.spoken) != 2 || h.backend.spoken[0].Unit.Text != "Second." {
		t.Errorf("spoken = %+v, want only the second text", h.backend.spoken)
	}
}

func TestSchedulerStop(t *testing.T) {
	h := newHarness(t)
	h.sched.Start("One. (3s) Two. (20s) Three.")
	h.settle(t)
	h.backend.play(0)
	h.backend.emit(EventStarted, 1)

	h.sched.Stop()
	snap := h.sched.Snapshot()
	if snap.Active || snap.State != StateStopped || snap.Current != "" || snap.Previous != "" || snap.Outstanding != 0 {
		t.Errorf("Snapshot() = %+v, want stopped and cleared", snap)
	}
	if !snap.Token.IsZero() {
		t.Errorf("Token = %v, want revoked", snap.Token)
	}
	if h.backend.cancels != 1 {
		t.Errorf("cancels = %d, want 1", h.backend.cancels)
	}

	for i := 1; i < len(h.backend.spoken); i++ {
		h.backend.play(i)
	}
	if snap := h.sched.Snapshot(); snap.Current != "" || snap.Outstanding != 0 || snap.Active {
		t.Errorf("late events after Stop changed state: %+v", snap)
	}
}

func TestSchedulerStopWhileLoading(t *testing.T) {
	h := newHarness(t)
	h.sched.Start("One.")
	h.sched.Stop()
	h.settle(t)

	if len(h.backend.spoken) != 0 {
		t.Errorf("spoken = %d after Stop, want 0", len(h.backend.spoken))
	}
	if h.sched.Active() {
		t.Error("Active() = true after Stop")
	}
}

func TestSchedulerStopIdle(t *testing.T) {
	h := newHarness(t)
	h.sched.Stop()
	if got := h.sched.State(); got != StateStopped {
		t.Errorf("State() = %v, want %v", got, StateStopped)
	}
	if h.backend.cancels != 1 {
		t.Errorf("cancels = %d, want 1", h.backend.cancels)
	}
}

func TestSchedulerEmptyInput(t *testing.T) {
	h := newHarness(t)
	h.sched.Start("  (3s) ")
	if !h.sched.Active() {
		t.Error("Active() = false right after Start")
	}
	h.settle(t)

	if h.sched.Active() || h.sched.State() != StateStopped {
		t.Errorf("Snapshot() = %+v, want stopped", h.sched.Snapshot())
	}
	if len(h.backend.spoken) != 0 {
		t.Errorf("spoken = %d, want 0", len(h.backend.spoken))
	}
}

func TestSchedulerObserver(t *testing.T) {
	h := newHarness(t)
	h.sched.Start("Hi.")
	if len(h.snaps) == 0 {
		t.Fatal("no snapshot after Start")
	}
	if first := h.snaps[0]; !first.Active || first.State != StateLoading {
		t.Errorf("first snapshot = %+v, want active loading", first)
	}

	h.settle(t)
	for i := range h.backend.spoken {
		h.backend.play(i)
	}
	last := h.snaps[len(h.snaps)-1]
	if last.Active || last.State != StateStopped {
		t.Errorf("last snapshot = %+v, want inactive stopped", last)
	}

	for _, s := range h.snaps {
		if s.Outstanding < 0 {
			t.Errorf("Outstanding = %d", s.Outstanding)
		}
	}
}

func TestSchedulerDegradedSegmenter(t *testing.T) {
	h := newHarness(t)
	seg, _ := NewSegmenter("(")
	h.sched.SetSegmenter(seg)

	h.sched.Start("Breathe in. (3s) Breathe out. (3s)")
	h.settle(t)
	if len(h.backend.spoken) != 1 {
		t.Fatalf("spoken = %d, want 1", len(h.backend.spoken))
	}
	if got := h.backend.spoken[0].Unit.Text; got != "Breathe in. Breathe out." {
		t.Errorf("text = %q", got)
	}
}

func TestGuard(t *testing.T) {
	var g Guard
	a := g.Mint()
	b := g.Mint()
	if a == b {
		t.Fatal("Mint() returned duplicate tokens")
	}
	if g.Valid(a) {
		t.Error("Valid() = true before Accept")
	}
	g.Accept(a)
	if !g.Valid(a) || g.Valid(b) {
		t.Error("Valid() accepted the wrong token")
	}
	g.Revoke()
	if g.Valid(a) {
		t.Error("Valid() = true after Revoke")
	}
	if g.Valid(Token{}) {
		t.Error("zero token is valid")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateLoading, "loading"},
		{StatePlaying, "playing"},
		{StateStopped, "stopped"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestMachineRejectsPlayingFromIdle(t *testing.T) {
	m := newMachine()
	if m.transition(StatePlaying) {
		t.Error("transition(playing) from idle succeeded")
	}
	if !m.transition(StateLoading) || !m.transition(StatePlaying) {
		t.Error("loading -> playing rejected")
	}
}
