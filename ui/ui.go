// Package ui provides the terminal view that narrates a file.
package ui

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	te "github.com/muesli/termenv"

	"github.com/dgnsrekt/narrate/internal/narration"
)

const (
	statusMessageTimeout = time.Second * 3
	callTimeout          = time.Second * 5
)

// Narrator is the part of the narration loop the view drives.
type Narrator interface {
	Start(ctx context.Context, text string) (narration.Token, error)
	Stop(ctx context.Context) error
}

// NewProgram returns a new Tea program narrating text. Scheduler changes
// reach the program through the loop's observer.
func NewProgram(ctx context.Context, cfg Config, loop *narration.Loop, text string) (*tea.Program, error) {
	log.Debug("Starting narrate", "path", cfg.Path, "watch", cfg.Watch)

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(newModel(ctx, cfg, loop, text), opts...)

	err := loop.OnChange(ctx, func(s narration.Snapshot) {
		p.Send(snapshotMsg(s))
	})
	return p, err
}

type (
	snapshotMsg   narration.Snapshot
	startedMsg    narration.Token
	reloadMsg     string
	watcherMsg    *fsnotify.Watcher
	errMsg        struct{ err error }
	statusTimeout struct{ seq int }
)

func (e errMsg) Error() string { return e.err.Error() }

type model struct {
	ctx      context.Context
	cfg      Config
	narrator Narrator
	text     string

	snapshot narration.Snapshot
	token    narration.Token
	spinner  spinner.Model
	watcher  *fsnotify.Watcher

	width, height int
	status        string
	statusSeq     int
	err           error
	quitting      bool
}

func newModel(ctx context.Context, cfg Config, n Narrator, text string) model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = sp.Style.Foreground(loadingColor)

	return model{
		ctx:      ctx,
		cfg:      cfg,
		narrator: n,
		text:     text,
		spinner:  sp,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.start()}
	if m.cfg.Watch && m.cfg.Path != "" {
		cmds = append(cmds, initWatcher(m.cfg.Path))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case snapshotMsg:
		prev := m.snapshot.State
		m.snapshot = narration.Snapshot(msg)
		finished := prev == narration.StatePlaying &&
			m.snapshot.State == narration.StateStopped &&
			!m.snapshot.Token.IsZero()
		if finished && m.cfg.ExitOnFinish {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case startedMsg:
		m.token = narration.Token(msg)
		return m, nil

	case watcherMsg:
		m.watcher = msg
		return m, m.watchFile()

	case reloadMsg:
		m.text = string(msg)
		status := m.setStatus("Reloaded")
		return m, tea.Batch(m.start(), status, m.watchFile())

	case statusTimeout:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		log.Error("narration", "error", msg.err)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		m.unwatchFile()
		return m, tea.Sequence(m.stop(), tea.Quit)
	case "s", " ":
		status := m.setStatus("Stopped")
		return m, tea.Batch(m.stop(), status)
	case "r":
		status := m.setStatus("Restarted")
		return m, tea.Batch(m.start(), status)
	case "c":
		line := m.snapshot.Current
		if line == "" {
			line = m.snapshot.Previous
		}
		if line == "" {
			return m, nil
		}
		// Write to both OSC 52 and the system clipboard.
		te.Copy(line)
		_ = clipboard.WriteAll(line)
		status := m.setStatus("Copied")
		return m, status
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	width := m.wrapWidth()

	var b strings.Builder
	title := m.cfg.Title
	if title == "" && m.cfg.Path != "" {
		title = filepath.Base(m.cfg.Path)
	}
	if title == "" {
		title = "narrate"
	}
	b.WriteString(titleStyle.Render(truncate.StringWithTail(title, uint(width), ellipsis))) //nolint:gosec
	b.WriteString("\n\n")

	b.WriteString(m.captions(width))

	if m.err != nil {
		b.WriteString("\n" + helpStyle.Render(m.err.Error()) + "\n")
	}

	lines := strings.Count(b.String(), "\n")
	if pad := m.height - lines - 1; pad > 0 {
		b.WriteString(strings.Repeat("\n", pad))
	}
	b.WriteString(statusBar(m.snapshot, m.status, max(m.width, width)))
	return b.String()
}

func (m model) captions(width int) string {
	s := m.snapshot
	switch {
	case s.State == narration.StateLoading:
		return m.spinner.View() + " Preparing narration…\n"
	case s.Current == "" && s.Previous == "":
		if s.State == narration.StateStopped {
			return helpStyle.Render("Press r to narrate again or q to quit.") + "\n"
		}
		return "\n"
	}

	var b strings.Builder
	if s.Previous != "" {
		b.WriteString(previousStyle.Render(wordwrap.String(s.Previous, width)))
		b.WriteString("\n\n")
	}
	if s.Current != "" {
		b.WriteString(currentStyle.Render(wordwrap.String(s.Current, width)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) wrapWidth() int {
	w := m.cfg.Width
	if m.width > 0 && (w == 0 || w > m.width) {
		w = m.width
	}
	if w <= 0 {
		w = 80
	}
	return w
}

func (m *model) setStatus(s string) tea.Cmd {
	m.status = s
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusTimeout{seq: seq}
	})
}

func (m model) start() tea.Cmd {
	n, ctx, text := m.narrator, m.ctx, m.text
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		tok, err := n.Start(ctx, text)
		if err != nil {
			return errMsg{err}
		}
		return startedMsg(tok)
	}
}

func (m model) stop() tea.Cmd {
	n, ctx := m.narrator, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		if err := n.Stop(ctx); err != nil {
			return errMsg{err}
		}
		return nil
	}
}
