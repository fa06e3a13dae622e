package narration

import "time"

// UnitKind distinguishes speech from silence.
type UnitKind int

const (
	UnitSpeech UnitKind = iota
	UnitSilence
)

func (k UnitKind) String() string {
	switch k {
	case UnitSpeech:
		return "speech"
	case UnitSilence:
		return "silence"
	default:
		return "unknown"
	}
}

// Unit is the atom dispatched to a backend. Speech units carry Text,
// silence units carry Duration. Index is the unit's position in its plan.
type Unit struct {
	Kind     UnitKind
	Text     string
	Duration time.Duration
	Index    int
}

// Plan is the ordered unit sequence for one session, plus the texts of
// its speech units in order.
type Plan struct {
	Units   []Unit
	Phrases []string
}

// BuildPlan expands each segment into a speech unit followed by the
// chunked silence units for its pause.
func BuildPlan(segs []Segment) Plan {
	var p Plan
	for _, seg := range segs {
		p.Units = append(p.Units, Unit{Kind: UnitSpeech, Text: seg.Phrase})
		p.Phrases = append(p.Phrases, seg.Phrase)
		p.Units = append(p.Units, ChunkPause(seg.Pause)...)
	}
	for i := range p.Units {
		p.Units[i].Index = i
	}
	return p
}

// Silence sums the silence in the plan. Speech length depends on the
// backend and is not included.
func (p Plan) Silence() time.Duration {
	var total time.Duration
	for _, u := range p.Units {
		if u.Kind == UnitSilence {
			total += u.Duration
		}
	}
	return total
}
