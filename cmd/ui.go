package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wadbctl/host/internal/config"
	"github.com/wadbctl/host/internal/session"
	"github.com/wadbctl/host/internal/status"
)

// --- BUBBLE TEA MESSAGES ---

type statusMsg struct{ snap status.Snapshot }

type modeChangeFailedMsg struct{ code string }

type modeChangeSettledMsg struct{}

type copiedMsg struct{ err error }

type clearNoticeMsg struct{}

type sessionOpenedMsg struct{}

// Seams for tests.
var (
	writeClipboard = clipboard.WriteAll
	runProgram     = func(m tea.Model) error {
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	}
)

// uiEvents carries session notifications into the program. Sends give up
// once the program is gone.
type uiEvents struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

func newUIEvents() *uiEvents {
	return &uiEvents{ch: make(chan tea.Msg, 64), done: make(chan struct{})}
}

func (e *uiEvents) stop() {
	e.once.Do(func() { close(e.done) })
}

func (e *uiEvents) send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	case <-e.done:
	}
}

func (e *uiEvents) OnStatusChanged(snap status.Snapshot) { e.send(statusMsg{snap: snap}) }

func (e *uiEvents) OnModeChangeFailed(code string) { e.send(modeChangeFailedMsg{code: code}) }

func (e *uiEvents) OnModeChangeSettled() { e.send(modeChangeSettledMsg{}) }

// wait delivers the next session notification.
func (e *uiEvents) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-e.ch:
			return msg
		case <-e.done:
			return nil
		}
	}
}

// --- MODEL ---

type uiModel struct {
	cfg     *config.Config
	session *session.Session
	events  *uiEvents
	spinner spinner.Model

	snap     status.Snapshot
	opened   bool
	busy     bool
	notice   string
	noticeOK bool
	quitting bool
}

func newUIModel(cfg *config.Config, s *session.Session, events *uiEvents) uiModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))
	return uiModel{cfg: cfg, session: s, events: events, spinner: sp}
}

func (m uiModel) Init() tea.Cmd {
	s := m.session
	open := func() tea.Msg {
		s.Open()
		return sessionOpenedMsg{}
	}
	return tea.Batch(open, m.events.wait(), m.spinner.Tick)
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionOpenedMsg:
		m.opened = true
		return m, nil

	case statusMsg:
		m.snap = msg.snap
		return m, m.events.wait()

	case modeChangeFailedMsg:
		m.notice = "Mode change failed: " + msg.code
		m.noticeOK = false
		return m, m.events.wait()

	case modeChangeSettledMsg:
		m.busy = false
		return m, m.events.wait()

	case copiedMsg:
		if msg.err != nil {
			m.notice = "Copy failed: " + msg.err.Error()
			m.noticeOK = false
		} else {
			m.notice = "Copied!"
			m.noticeOK = true
		}
		return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg { return clearNoticeMsg{} })

	case clearNoticeMsg:
		m.notice = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m uiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		if m.quitting {
			return m, nil
		}
		m.quitting = true
		m.events.stop()
		m.session.Close()
		return m, tea.Quit

	case "r":
		s := m.session
		return m, func() tea.Msg {
			s.Refresh(true)
			return nil
		}

	case "t":
		if m.busy {
			return m, nil
		}
		if _, ok := session.ToggleTarget(m.snap); !ok {
			m.notice = "Nothing to toggle"
			m.noticeOK = false
			return m, nil
		}
		if m.session.Toggle(true) {
			m.busy = true
			m.notice = ""
		}
		return m, nil

	case "c":
		connect, ok := status.ConnectString(m.cfg.ConnectVerb, m.snap)
		if !ok {
			m.notice = "Not connectable"
			m.noticeOK = false
			return m, nil
		}
		return m, func() tea.Msg {
			return copiedMsg{err: writeClipboard(connect)}
		}
	}
	return m, nil
}

func (m uiModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Wireless debugging"))
	b.WriteString("\n\n")

	if !m.opened && m.snap.Status == "" {
		b.WriteString(m.spinner.View() + " Checking...\n")
	} else {
		b.WriteString(labelStyle.Render("Status:  ") + styleStatus(m.snap.Status).Render(describeStatus(m.snap.Status)) + "\n")
		if m.snap.IPAddress != "" {
			b.WriteString(labelStyle.Render("Address: ") + valueStyle.Render(m.snap.IPAddress) + "\n")
		}
		if connect, ok := status.ConnectString(m.cfg.ConnectVerb, m.snap); ok {
			b.WriteString(labelStyle.Render("Connect: ") + valueStyle.Render(connect) + "\n")
		}
	}

	if m.busy {
		b.WriteString("\n" + m.spinner.View() + " Switching wireless debugging...\n")
	}
	if m.notice != "" {
		style := errorStyle
		if m.noticeOK {
			style = copiedStyle
		}
		b.WriteString("\n" + style.Render(m.notice) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("r refresh • t toggle • c copy • q quit"))
	return docStyle.Render(b.String())
}

func styleStatus(s status.Status) lipgloss.Style {
	switch s {
	case status.Up:
		return upStyle
	case status.Down:
		return downStyle
	case status.NoNetwork, status.NoAdbd:
		return warnStyle
	default:
		return downStyle
	}
}

// runUI opens the interactive popup.
// Usage: wadbctl ui
func runUI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wadbctl ui [options]\n\nKeys: r refresh, t toggle, c copy connect string, q quit.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	// The terminal belongs to the program, so logs only go to a file.
	restore, err := setupLogging(cfg, io.Discard)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer restore()

	events := newUIEvents()
	s := newSession(cfg, newEnvironment(cfg), events, nil)
	defer s.Close()
	defer events.stop()

	if err := runProgram(newUIModel(cfg, s, events)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
