package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/narration"
)

// sayBaseRate is say's default speaking rate in words per minute.
const sayBaseRate = 175

// Say speaks through the macOS say command. Silence units are rendered
// with the [[slnc ms]] embedded command.
type Say struct {
	*worker
	binary string
	voice  string
	logger *log.Logger
}

// NewSay creates a say backend. When voice is not installed the system
// voice is used instead and a warning wrapping ErrBackendUnavailable is
// logged.
func NewSay(ctx context.Context, binary, voice string, logger *log.Logger) *Say {
	s := &Say{binary: binary, logger: logger}
	if voice != "" {
		voices, err := s.Voices(ctx)
		switch {
		case err != nil:
			logger.Warn("using default voice", "voice", voice, "err",
				narration.NewError(narration.ErrorCodeBackendUnavailable, "list voices", fmt.Errorf("%w: %w", narration.ErrBackendUnavailable, err)))
		case !contains(voices, voice):
			logger.Warn("using default voice", "voice", voice, "err",
				narration.NewError(narration.ErrorCodeBackendUnavailable, "voice not installed", narration.ErrBackendUnavailable))
		default:
			s.voice = voice
		}
	}
	s.worker = newWorker(s.perform, logger)
	return s
}

// Name returns the backend name.
func (s *Say) Name() string { return "say" }

// Voice returns the voice in use, or "" for the system default.
func (s *Say) Voice() string { return s.voice }

// Voices lists installed voice names.
func (s *Say) Voices(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, s.binary, "-v", "?").Output()
	if err != nil {
		return nil, fmt.Errorf("%s -v ?: %w", s.binary, err)
	}
	return parseVoices(out), nil
}

// Args returns the command line for u.
func (s *Say) Args(u narration.Utterance) []string {
	var args []string
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	if rate := u.Voice.Rate; rate > 0 && rate != 1 {
		args = append(args, "-r", strconv.Itoa(int(math.Round(sayBaseRate*rate))))
	}

	switch u.Unit.Kind {
	case narration.UnitSilence:
		args = append(args, fmt.Sprintf("[[slnc %d]]", u.Unit.Duration.Milliseconds()))
	default:
		args = append(args, "--", u.Unit.Text)
	}
	return args
}

func (s *Say) perform(ctx context.Context, u narration.Utterance) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.binary, s.Args(u)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w, stderr: %s", s.binary, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// parseVoices reads the name column of `say -v ?`. Names may contain
// spaces, so the name ends where the locale column begins.
func parseVoices(out []byte) []string {
	var voices []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// The last field is the locale.
		voices = append(voices, strings.Join(fields[:len(fields)-1], " "))
	}
	return voices
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
