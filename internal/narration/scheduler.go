package narration

import (
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// DefaultSettleDelay lets a backend drain a cancelled session before the
// next one dispatches.
const DefaultSettleDelay = 300 * time.Millisecond

// Voice parameters are passed to the backend untouched.
type Voice struct {
	Name   string
	Rate   float64
	Pitch  float64
	Volume float64
}

// Utterance is one unit submitted to a backend, tagged with the session
// that dispatched it.
type Utterance struct {
	Unit  Unit
	Voice Voice
	Token Token
}

// EventKind says what happened to a unit.
type EventKind int

const (
	EventStarted EventKind = iota
	EventCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Event reports progress of a dispatched unit. Token is copied from the
// Utterance.
type Event struct {
	Kind  EventKind
	Unit  Unit
	Token Token
}

// Sink receives backend events. It may be called from any goroutine.
type Sink func(Event)

// Backend speaks units out of band.
type Backend interface {
	// Speak queues u and returns immediately. The backend later calls sink
	// with a started and then a completed event for u.
	Speak(u Utterance, sink Sink)
	// Cancel drops everything queued and interrupts the current unit.
	Cancel()
}

// Deferrer runs fn after d on the scheduler's goroutine.
type Deferrer func(d time.Duration, fn func())

// Config holds scheduler settings.
type Config struct {
	SettleDelay time.Duration
	Voice       Voice
}

// Snapshot is a read-only view of the scheduler.
type Snapshot struct {
	State       State
	Active      bool
	Current     string
	Previous    string
	Outstanding int
	Pointer     int
	Phrases     int
	Units       int
	Token       Token
}

// Scheduler runs narration sessions. It is not safe for concurrent use:
// every method must be called from one goroutine, which Loop provides.
type Scheduler struct {
	backend   Backend
	config    Config
	segmenter *Segmenter
	guard     Guard
	sm        *machine
	caption   Caption

	active      bool
	outstanding int
	pointer     int
	phrases     []string
	units       int

	sink      Sink
	deferrer  Deferrer
	observers []func(Snapshot)
	logger    *log.Logger
	stale     rate.Sometimes
}

// NewScheduler creates an idle scheduler that speaks through backend.
// Without a Loop, events go straight to HandleEvent and the settle delay
// is skipped.
func NewScheduler(backend Backend, config Config) *Scheduler {
	seg, err := NewSegmenter(MarkerPattern)
	s := &Scheduler{
		backend:   backend,
		config:    config,
		segmenter: seg,
		sm:        newMachine(),
		logger:    log.Default().WithPrefix("narration"),
		stale:     rate.Sometimes{First: 3, Interval: time.Second},
	}
	if err != nil {
		s.logger.Warn("narrating without pauses", "err", err)
	}
	s.sink = s.HandleEvent
	s.deferrer = func(_ time.Duration, fn func()) { fn() }
	s.sm.enter(StateStopped, func() {
		s.logger.Debug("session stopped", "token", s.guard.Current(), "outstanding", s.outstanding)
	})
	return s
}

// SetSink replaces the sink handed to the backend.
func (s *Scheduler) SetSink(sink Sink) { s.sink = sink }

// SetDeferrer replaces how the settle delay is scheduled.
func (s *Scheduler) SetDeferrer(d Deferrer) { s.deferrer = d }

// SetLogger sets the logger.
func (s *Scheduler) SetLogger(l *log.Logger) { s.logger = l }

// SetSegmenter replaces the text segmenter.
func (s *Scheduler) SetSegmenter(seg *Segmenter) { s.segmenter = seg }

// OnChange registers an observer called after every visible change.
func (s *Scheduler) OnChange(fn func(Snapshot)) {
	s.observers = append(s.observers, fn)
}

// Snapshot returns the current view.
func (s *Scheduler) Snapshot() Snapshot {
	return Snapshot{
		State:       s.sm.state(),
		Active:      s.active,
		Current:     s.caption.Current(),
		Previous:    s.caption.Previous(),
		Outstanding: s.outstanding,
		Pointer:     s.pointer,
		Phrases:     len(s.phrases),
		Units:       s.units,
		Token:       s.guard.Current(),
	}
}

// Active reports whether narration is audible or about to be.
func (s *Scheduler) Active() bool { return s.active }

// State returns the lifecycle state.
func (s *Scheduler) State() State { return s.sm.state() }

// Start supersedes any running session and narrates text. Active is true
// when Start returns. Units are dispatched after the settle delay.
func (s *Scheduler) Start(text string) Token {
	if s.sm.state().Busy() {
		s.backend.Cancel()
	}

	tok := s.guard.Mint()
	s.guard.Accept(tok)
	s.reset()
	s.sm.transition(StateLoading)
	s.active = true
	s.logger.Debug("session loading", "token", tok, "chars", len(text))
	s.notify()

	s.deferrer(s.config.SettleDelay, func() { s.dispatch(tok, text) })
	return tok
}

func (s *Scheduler) dispatch(tok Token, text string) {
	if !s.guard.Valid(tok) || s.sm.state() != StateLoading {
		s.ignore("dispatch", tok, ErrStaleCallback)
		return
	}

	plan := BuildPlan(s.segmenter.Segment(text))
	if len(plan.Units) == 0 {
		s.logger.Debug("session finished early", "token", tok, "err", ErrEmptyInput)
		s.finish()
		return
	}

	s.outstanding = len(plan.Units)
	s.units = len(plan.Units)
	s.phrases = plan.Phrases
	s.sm.transition(StatePlaying)
	s.logger.Debug("session playing", "token", tok, "units", s.units, "phrases", len(s.phrases), "silence", plan.Silence())
	s.notify()

	for _, u := range plan.Units {
		if !s.guard.Valid(tok) || s.sm.state() != StatePlaying {
			break
		}
		s.backend.Speak(Utterance{Unit: u, Voice: s.config.Voice, Token: tok}, s.sink)
	}
}

// HandleEvent applies a backend event. Events from other sessions, or that
// arrive while not playing, are ignored.
func (s *Scheduler) HandleEvent(ev Event) {
	switch ev.Kind {
	case EventStarted:
		s.onUnitStart(ev.Unit, ev.Token)
	case EventCompleted:
		s.onUnitComplete(ev.Unit, ev.Token)
	}
}

func (s *Scheduler) onUnitStart(u Unit, tok Token) {
	if !s.accepts("start", tok) {
		return
	}
	if u.Kind != UnitSpeech || s.pointer >= len(s.phrases) {
		return
	}
	s.caption.Shift(s.phrases[s.pointer])
	s.pointer++
	s.notify()
}

func (s *Scheduler) onUnitComplete(u Unit, tok Token) {
	if !s.accepts("complete", tok) {
		return
	}
	if s.outstanding == 0 {
		s.ignore("complete", tok, ErrRedundantCompletion)
		return
	}

	s.outstanding--
	if s.outstanding == 0 {
		s.finish()
		return
	}
	s.notify()
}

// Stop cancels the backend and ends the session whatever its state.
func (s *Scheduler) Stop() {
	s.backend.Cancel()
	s.outstanding = 0
	s.caption.Clear()
	s.active = false
	s.sm.transition(StateStopped)
	s.guard.Revoke()
	s.notify()
}

func (s *Scheduler) finish() {
	s.caption.Clear()
	s.active = false
	s.sm.transition(StateStopped)
	s.notify()
}

func (s *Scheduler) reset() {
	s.outstanding = 0
	s.pointer = 0
	s.phrases = nil
	s.units = 0
	s.caption.Clear()
}

func (s *Scheduler) accepts(what string, tok Token) bool {
	if !s.guard.Valid(tok) || s.sm.state() != StatePlaying {
		s.ignore(what, tok, ErrStaleCallback)
		return false
	}
	return true
}

func (s *Scheduler) ignore(what string, tok Token, err error) {
	s.stale.Do(func() {
		s.logger.Debug("ignoring callback", "event", what, "token", tok, "state", s.sm.state(), "err", err)
	})
}

func (s *Scheduler) notify() {
	if len(s.observers) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range s.observers {
		fn(snap)
	}
}
