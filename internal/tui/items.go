package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/mattn/go-runewidth"

	"envswitch/internal/envconfig"
)

// environmentItem represents one environment in the selector list.
type environmentItem struct {
	env            envconfig.Environment
	current        bool
	hasCredentials bool
}

// Title returns the display title, marking the current selection.
func (i environmentItem) Title() string {
	title := i.env.Label()
	if i.current {
		title = "● " + title + " (current)"
	} else {
		title = "  " + title
	}
	return title
}

// Description returns the base URL plus storage-mode and credential markers.
func (i environmentItem) Description() string {
	desc := "  " + truncate(i.env.BaseURL, 60)
	if i.env.Storage == envconfig.StorageTemporary {
		desc += "  " + temporaryBadgeStyle.Render("[temporary]")
	}
	if i.env.RequiresCredentials {
		if i.hasCredentials {
			desc += "  🔑"
		} else {
			desc += "  🔒"
		}
	}
	return desc
}

// FilterValue makes environments filterable by name.
func (i environmentItem) FilterValue() string {
	return i.env.Name
}

// buildEnvironmentItems converts a manager snapshot into selector list items.
func buildEnvironmentItems(envs []envconfig.Environment, currentName string, hasCreds map[string]bool) []list.Item {
	items := make([]list.Item, 0, len(envs))
	for _, env := range envs {
		items = append(items, environmentItem{
			env:            env,
			current:        env.Name == currentName,
			hasCredentials: hasCreds[env.Name],
		})
	}
	return items
}

// truncate shortens s to the given display width.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}
