package tui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-2, msg.Height-4)
		m.help.Width = msg.Width
		return m, nil

	case logEntryMsg:
		m.activityLog = append(m.activityLog, formatLogEntry(msg.entry))
		if len(m.activityLog) > maxActivityLines {
			m.activityLog = m.activityLog[len(m.activityLog)-maxActivityLines:]
		}
		return m, listenForLogs(m.logCh)

	case stateChangedMsg:
		m.snap = msg.snap
		m.list.SetItems(buildItems(m.snap))
		return m, nil

	case switchResultMsg:
		if msg.err != nil {
			return m, m.setStatus(fmt.Sprintf("Switch failed: %v", msg.err), true)
		}
		m.mode = modeStatus
		m.form = nil
		return m, m.setStatus(fmt.Sprintf("Switched to %s", msg.name), false)

	case credentialsClearedMsg:
		if msg.err != nil {
			return m, m.setStatus(fmt.Sprintf("Clear failed: %v", msg.err), true)
		}
		return m, m.setStatus(fmt.Sprintf("Cleared credentials for %s", msg.name), false)

	case clearStatusMsg:
		m.status = ""
		m.statusErr = false
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeStatus:
			return m.updateStatusMode(msg)
		case modeList:
			return m.updateListMode(msg)
		case modeForm:
			return m.updateFormMode(msg)
		}
	}

	return m, nil
}

func (m Model) updateStatusMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Activate):
		if m.trigger.Tap() {
			m.mode = modeList
			m.list.SetItems(buildItems(m.snap))
			m.status = ""
			return m, nil
		}
		count, required := m.trigger.Progress()
		return m, m.setStatus(fmt.Sprintf("Tap %d/%d", count, required), false)

	case key.Matches(msg, m.keys.CopyURL):
		if !m.snap.HasCurrent {
			return m, m.setStatus("No environment selected", true)
		}
		if err := clipboard.WriteAll(m.snap.Current.BaseURL); err != nil {
			return m, m.setStatus(fmt.Sprintf("Copy failed: %v", err), true)
		}
		return m, m.setStatus("Base URL copied to clipboard", false)
	}

	return m, nil
}

func (m Model) updateListMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let the list handle keys while its filter input is active.
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Esc):
		m.mode = modeStatus
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		item, ok := m.list.SelectedItem().(environmentItem)
		if !ok {
			return m, nil
		}
		return m.applySelection(item)

	case key.Matches(msg, m.keys.Clear):
		item, ok := m.list.SelectedItem().(environmentItem)
		if !ok {
			return m, nil
		}
		return m, m.clearCredentialsCmd(item.env.Name)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// applySelection starts the switch flow for the chosen environment: prompt
// for credentials when they are required and not already cached, otherwise
// switch directly.
func (m Model) applySelection(item environmentItem) (tea.Model, tea.Cmd) {
	env := item.env
	if env.RequiresCredentials && !m.mgr.HasCredentials(env.Name) {
		m.form = newCredentialsForm(env, m.mgr.Credentials(env.Name))
		m.mode = modeForm
		return m, nil
	}
	return m, m.switchCmd(env.Name, nil)
}

func (m Model) updateFormMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Esc):
		// Explicit cancellation; the manager is never called.
		m.form = nil
		m.mode = modeList
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.form.focusNext()
		return m, nil

	case key.Matches(msg, m.keys.ShiftTab):
		m.form.focusPrev()
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if !m.form.atLastField() {
			m.form.focusNext()
			return m, nil
		}
		if err := m.form.validate(context.Background(), m.registry); err != nil {
			m.form.errMsg = err.Error()
			return m, nil
		}
		m.form.errMsg = ""
		return m, m.switchCmd(m.form.env.Name, m.form.Values())
	}

	return m, m.form.Update(msg)
}

// switchCmd performs the manager switch off the update loop.
func (m Model) switchCmd(name string, credentials map[string]string) tea.Cmd {
	mgr := m.mgr
	return func() tea.Msg {
		err := mgr.Switch(context.Background(), name, credentials)
		return switchResultMsg{name: name, err: err}
	}
}

func (m Model) clearCredentialsCmd(name string) tea.Cmd {
	mgr := m.mgr
	return func() tea.Msg {
		err := mgr.ClearCredentials(context.Background(), name)
		return credentialsClearedMsg{name: name, err: err}
	}
}
