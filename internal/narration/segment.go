package narration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// MarkerPattern matches an inline pause annotation such as "(3s)" or
// "(1.5m)". The number is the first group and the unit is the last.
const MarkerPattern = `\((\d+(\.\d+)?)(s|m)\)`

const (
	// SentencePause follows every sentence of unannotated text.
	SentencePause = 2 * time.Second
	// ParagraphPause follows every paragraph but the last of unannotated text.
	ParagraphPause = 4 * time.Second
	// MaxPause caps a single annotation so absurd values cannot overflow.
	MaxPause = 24 * time.Hour
)

var (
	digitParen = regexp.MustCompile(`\(\d[^)]*\)`)
	sentence   = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// Segment is a phrase followed by a pause.
type Segment struct {
	Phrase string
	Pause  time.Duration
}

// Segmenter splits annotated text into segments.
type Segmenter struct {
	marker *regexp.Regexp
}

// NewSegmenter compiles pattern as the pause marker. If the pattern does
// not compile the returned segmenter is still usable: it narrates the whole
// text as one phrase, and the error wraps ErrParseDegraded.
func NewSegmenter(pattern string) (*Segmenter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return &Segmenter{}, NewError(ErrorCodeParseDegraded, fmt.Sprintf("compile %q", pattern),
			errors.Join(ErrParseDegraded, err))
	}
	if re.NumSubexp() < 2 {
		return &Segmenter{}, NewError(ErrorCodeParseDegraded, fmt.Sprintf("pattern %q needs value and unit groups", pattern),
			ErrParseDegraded)
	}
	return &Segmenter{marker: re}, nil
}

// Degraded reports whether the segmenter ignores pause markers.
func (s *Segmenter) Degraded() bool {
	return s.marker == nil
}

// Segment returns the ordered segments of text. Empty text yields nil.
func (s *Segmenter) Segment(text string) []Segment {
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	stripped := stripQuestionMarks(text)
	switch {
	case s.marker == nil:
		return appendSegment(nil, stripped, 0)
	case s.marker.MatchString(stripped):
		return s.parse(stripped)
	default:
		return autoPause(text)
	}
}

// parse assigns the text before each marker to that marker's pause. Text
// after the last marker becomes a final phrase with no pause.
func (s *Segmenter) parse(text string) []Segment {
	var segs []Segment
	prev := 0
	for _, m := range s.marker.FindAllStringSubmatchIndex(text, -1) {
		var pause time.Duration
		if last := len(m) - 2; m[2] >= 0 && m[last] >= 0 {
			pause = markerDuration(text[m[2]:m[3]], text[m[last]:m[last+1]])
		}
		segs = appendSegment(segs, text[prev:m[0]], pause)
		prev = m[1]
	}
	return appendSegment(segs, text[prev:], 0)
}

// autoPause handles text without any markers. Paragraphs are lines, and a
// paragraph's trailing pause is added to its last sentence.
func autoPause(text string) []Segment {
	var paragraphs [][]Segment
	for _, line := range strings.Split(text, "\n") {
		var para []Segment
		for _, sent := range sentence.FindAllString(line, -1) {
			para = appendSegment(para, stripQuestionMarks(sent), SentencePause)
		}
		if len(para) > 0 {
			paragraphs = append(paragraphs, para)
		}
	}

	var segs []Segment
	for i, para := range paragraphs {
		if i < len(paragraphs)-1 {
			para[len(para)-1].Pause += ParagraphPause
		}
		segs = append(segs, para...)
	}
	return segs
}

// appendSegment sanitizes phrase and appends it. A phrase that ends up
// empty is dropped along with its pause.
func appendSegment(segs []Segment, phrase string, pause time.Duration) []Segment {
	phrase = Sanitize(phrase)
	if phrase == "" {
		return segs
	}
	return append(segs, Segment{Phrase: phrase, Pause: pause})
}

// Sanitize removes every marker-shaped substring and every parenthetical
// opening with a digit, then collapses whitespace. It is idempotent.
func Sanitize(phrase string) string {
	phrase = collapse(phrase)
	for {
		next := collapse(digitParen.ReplaceAllString(phrase, " "))
		if next == phrase {
			return phrase
		}
		phrase = next
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripQuestionMarks(s string) string {
	return strings.ReplaceAll(s, "?", "")
}

func markerDuration(value, unit string) time.Duration {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	secs := v
	if unit == "m" {
		secs *= 60
	}
	if math.IsInf(secs, 0) || secs*float64(time.Second) >= float64(MaxPause) {
		return MaxPause
	}
	return time.Duration(secs * float64(time.Second))
}
