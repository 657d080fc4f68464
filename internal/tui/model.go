// Package tui implements the interactive environment switcher: a status
// view gated by a multi-tap trigger, a selector list of environments, and a
// credential-entry form. All state mutations go through the environment
// manager; the TUI re-renders from manager snapshots.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"envswitch/internal/manager"
	"envswitch/internal/validate"
	"envswitch/pkg/logging"
)

type mode int

const (
	// modeStatus shows the current environment; the switcher opens from here.
	modeStatus mode = iota
	// modeList shows the environment selector.
	modeList
	// modeForm collects credentials before a switch.
	modeForm
)

// Messages
type stateChangedMsg struct {
	snap manager.Snapshot
}

type switchResultMsg struct {
	name string
	err  error
}

type credentialsClearedMsg struct {
	name string
	err  error
}

type clearStatusMsg struct{}

type logEntryMsg struct {
	entry logging.LogEntry
}

const (
	defaultTapCount  = 3
	defaultTapWindow = 2 * time.Second
	statusTimeout    = 3 * time.Second
	maxActivityLines = 8
)

// Model is the bubbletea model for the switcher.
type Model struct {
	mgr      *manager.Manager
	registry *validate.Registry

	keys    KeyMap
	help    help.Model
	trigger *Trigger

	mode mode
	list list.Model
	form *credentialsForm
	snap manager.Snapshot

	status    string
	statusErr bool

	logCh       <-chan logging.LogEntry
	activityLog []string

	width  int
	height int
}

// NewModel creates the switcher model over an initialized manager.
func NewModel(mgr *manager.Manager, registry *validate.Registry) Model {
	snap := mgr.Snapshot()

	delegate := list.NewDefaultDelegate()
	l := list.New(buildItems(snap), delegate, 0, 0)
	l.Title = "Select environment"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)

	return Model{
		mgr:      mgr,
		registry: registry,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		trigger:  NewTrigger(defaultTapCount, defaultTapWindow),
		mode:     modeStatus,
		list:     l,
		snap:     snap,
	}
}

func buildItems(snap manager.Snapshot) []list.Item {
	currentName := ""
	if snap.HasCurrent {
		currentName = snap.Current.Name
	}
	return buildEnvironmentItems(snap.Environments, currentName, snap.HasCredentials)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return listenForLogs(m.logCh)
}

// listenForLogs waits for the next log entry. The update loop re-issues the
// command after each delivered entry so the stream keeps flowing.
func listenForLogs(ch <-chan logging.LogEntry) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return nil
		}
		return logEntryMsg{entry: entry}
	}
}

// formatLogEntry renders one entry as an activity-log line.
func formatLogEntry(entry logging.LogEntry) string {
	line := fmt.Sprintf("%s [%s] [%s] %s",
		entry.Timestamp.Format("15:04:05"),
		entry.Level.String(),
		entry.Subsystem,
		entry.Message)
	if entry.Err != nil {
		line = fmt.Sprintf("%s: %v", line, entry.Err)
	}
	return line
}

// setStatus installs a transient status-bar message.
func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.status = msg
	m.statusErr = isErr
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

// Run starts the switcher over an initialized manager and blocks until the
// user quits. Manager change notifications are forwarded into the program so
// every surface observing the same manager stays in sync; log entries from
// logCh feed the activity pane in the status view.
func Run(mgr *manager.Manager, registry *validate.Registry, logCh <-chan logging.LogEntry) error {
	if registry == nil {
		registry = validate.NewRegistry()
	}
	m := NewModel(mgr, registry)
	m.logCh = logCh
	p := tea.NewProgram(m, tea.WithAltScreen())

	cancel := mgr.Subscribe(func(snap manager.Snapshot) {
		p.Send(stateChangedMsg{snap: snap})
	})
	defer cancel()

	_, err := p.Run()
	return err
}
