package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"envswitch/internal/envconfig"
)

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch m.mode {
	case modeList:
		body = m.list.View()
	case modeForm:
		body = m.form.View()
	default:
		body = m.statusView()
	}

	statusLine := ""
	if m.status != "" {
		style := statusOKStyle
		if m.statusErr {
			style = statusErrStyle
		}
		statusLine = "\n" + style.Render(m.status)
	}

	return body + statusLine + "\n" + m.helpView() + "\n"
}

// helpView renders the key bindings relevant to the active mode.
func (m Model) helpView() string {
	switch m.mode {
	case modeList:
		return m.help.ShortHelpView([]key.Binding{m.keys.Enter, m.keys.Clear, m.keys.Esc, m.keys.Quit})
	case modeForm:
		return m.help.ShortHelpView([]key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Enter, m.keys.Esc})
	default:
		return m.help.View(m.keys)
	}
}

func (m Model) statusView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("envswitch"))
	b.WriteString("\n\n")

	if !m.snap.HasCurrent {
		b.WriteString(statusStyle.Render("No environment selected"))
		b.WriteString("\n")
	} else {
		env := m.snap.Current
		b.WriteString(currentEnvStyle.Render(env.Label()))
		if env.Storage == envconfig.StorageTemporary {
			b.WriteString("  " + temporaryBadgeStyle.Render("[temporary]"))
		}
		b.WriteString("\n")
		b.WriteString(baseURLStyle.Render(truncate(env.BaseURL, 70)))
		b.WriteString("\n")
		if env.RequiresCredentials {
			if m.snap.HasCredentials[env.Name] {
				b.WriteString(statusStyle.Render("Credentials: cached"))
			} else {
				b.WriteString(statusStyle.Render("Credentials: not set"))
			}
			b.WriteString("\n")
		}
	}

	if len(m.activityLog) > 0 {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("Activity"))
		b.WriteString("\n")
		for _, line := range m.activityLog {
			b.WriteString(helpStyle.Render(truncate(line, 100)))
			b.WriteString("\n")
		}
	}

	return b.String()
}
