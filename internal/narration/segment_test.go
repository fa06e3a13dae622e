package narration

import (
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"
)

func mustSegmenter(t *testing.T) *Segmenter {
	t.Helper()
	seg, err := NewSegmenter(MarkerPattern)
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}
	return seg
}

func TestSegment(t *testing.T) {
	seg := mustSegmenter(t)

	tests := []struct {
		name string
		text string
		want []Segment
	}{
		{
			name: "explicit markers per line",
			text: "Breathe in. (3s)\nBreathe out. (3s)",
			want: []Segment{{"Breathe in.", 3 * time.Second}, {"Breathe out.", 3 * time.Second}},
		},
		{
			name: "long pause",
			text: "Relax now. (14s)",
			want: []Segment{{"Relax now.", 14 * time.Second}},
		},
		{
			name: "minutes and fractions",
			text: "Rest. (1.5m) Return. (0.5s)",
			want: []Segment{{"Rest.", 90 * time.Second}, {"Return.", 500 * time.Millisecond}},
		},
		{
			name: "mid sentence marker",
			text: "Breathe (2s) deeply. (3s)",
			want: []Segment{{"Breathe", 2 * time.Second}, {"deeply.", 3 * time.Second}},
		},
		{
			name: "trailing text has no pause",
			text: "Begin. (3s) And rest",
			want: []Segment{{"Begin.", 3 * time.Second}, {"And rest", 0}},
		},
		{
			name: "empty phrase drops its pause",
			text: "(5s) Begin. (3s)",
			want: []Segment{{"Begin.", 3 * time.Second}},
		},
		{
			name: "question marks stripped with markers",
			text: "How do you feel? (5s) Calm.",
			want: []Segment{{"How do you feel", 5 * time.Second}, {"Calm.", 0}},
		},
		{
			name: "digit parenthetical removed",
			text: "Count (1, 2, 3) slowly. (4s)",
			want: []Segment{{"Count slowly.", 4 * time.Second}},
		},
		{
			name: "whitespace collapsed",
			text: "  Soft\t\tand   slow.  (2s)",
			want: []Segment{{"Soft and slow.", 2 * time.Second}},
		},
		{
			// The paragraph pause is added to the sentence pause of the
			// paragraph's last sentence rather than emitted on its own.
			name: "auto pauses",
			text: "Breathe in. Hold it.\nLet go!",
			want: []Segment{
				{"Breathe in.", SentencePause},
				{"Hold it.", SentencePause + ParagraphPause},
				{"Let go!", SentencePause},
			},
		},
		{
			name: "auto pauses skip blank lines",
			text: "One.\n\n\nTwo.\n",
			want: []Segment{{"One.", SentencePause + ParagraphPause}, {"Two.", SentencePause}},
		},
		{
			name: "auto pauses strip question marks",
			text: "Are you here? Good.",
			want: []Segment{{"Are you here", SentencePause}, {"Good.", SentencePause}},
		},
		{
			name: "no punctuation",
			text: "just breathe",
			want: []Segment{{"just breathe", SentencePause}},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "blank",
			text: " \n\t ",
			want: nil,
		},
		{
			name: "markers only",
			text: "(3s)(4m)",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := seg.Segment(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Segment(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSegmentClampsHugePause(t *testing.T) {
	seg := mustSegmenter(t)
	got := seg.Segment("Wait. (99999999999999999999999999m)")
	if len(got) != 1 || got[0].Pause != MaxPause {
		t.Errorf("Segment() = %v, want one segment with pause %v", got, MaxPause)
	}
}

func TestSegmentDegraded(t *testing.T) {
	seg, err := NewSegmenter("(")
	if !errors.Is(err, ErrParseDegraded) {
		t.Fatalf("NewSegmenter() error = %v, want %v", err, ErrParseDegraded)
	}
	if !seg.Degraded() {
		t.Fatal("Degraded() = false, want true")
	}

	var nerr *Error
	if !errors.As(err, &nerr) || nerr.Code != ErrorCodeParseDegraded || !nerr.Degrades() {
		t.Errorf("error = %#v, want degrading %s", err, ErrorCodeParseDegraded)
	}

	got := seg.Segment("Breathe in. (3s) Out?\nAgain.")
	want := []Segment{{"Breathe in. Out Again.", 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Segment() = %v, want %v", got, want)
	}
	if got := seg.Segment(""); got != nil {
		t.Errorf("Segment(\"\") = %v, want nil", got)
	}
}

func TestNewSegmenterNeedsGroups(t *testing.T) {
	if _, err := NewSegmenter(`\(\d+s\)`); !errors.Is(err, ErrParseDegraded) {
		t.Errorf("NewSegmenter() error = %v, want %v", err, ErrParseDegraded)
	}
}

func TestSanitizeRemovesMarkers(t *testing.T) {
	marker := regexp.MustCompile(MarkerPattern)
	seg := mustSegmenter(t)

	inputs := []string{
		"Relax ((3s)s) now (2s)",
		"(1(2s)s) breathe",
		"a (3s(4s)) b",
		"x (12 seconds) y (3m)",
		"((((1s)s)s)s) end",
		"(2.5s)(2.5m)(25)",
		"Stay (10",
	}

	for _, in := range inputs {
		for _, s := range seg.Segment(in) {
			if marker.MatchString(s.Phrase) {
				t.Errorf("Segment(%q) phrase %q contains a marker", in, s.Phrase)
			}
			if again := Sanitize(s.Phrase); again != s.Phrase {
				t.Errorf("Sanitize(%q) = %q, want unchanged", s.Phrase, again)
			}
		}
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize(Sanitize(%q)) = %q, want %q", in, twice, once)
		}
	}
}
