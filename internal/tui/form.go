package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"envswitch/internal/envconfig"
	"envswitch/internal/validate"
)

// credentialsForm renders one text input per declared credential field and
// collects a completed string map, or reports an explicit cancellation.
type credentialsForm struct {
	env     envconfig.Environment
	inputs  []textinput.Model
	focused int
	errMsg  string
}

// newCredentialsForm builds the form for env, pre-filling cached values first
// and declared defaults second.
func newCredentialsForm(env envconfig.Environment, existing map[string]string) *credentialsForm {
	f := &credentialsForm{env: env}

	for i, field := range env.CredentialFields {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.CharLimit = 256
		if field.Hint != "" {
			ti.Placeholder = field.Hint
		}
		if field.Password {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		if v, ok := existing[field.Key]; ok {
			ti.SetValue(v)
		} else if field.Default != "" {
			ti.SetValue(field.Default)
		}
		if i == 0 {
			ti.Focus()
		}
		f.inputs = append(f.inputs, ti)
	}

	return f
}

// Values returns the entered credential map, omitting empty fields.
func (f *credentialsForm) Values() map[string]string {
	creds := make(map[string]string)
	for i, field := range f.env.CredentialFields {
		if v := strings.TrimSpace(f.inputs[i].Value()); v != "" {
			creds[field.Key] = v
		}
	}
	return creds
}

// validate runs the structural required check, then per-field validators,
// then the environment-level callback. The first failure wins.
func (f *credentialsForm) validate(ctx context.Context, registry *validate.Registry) error {
	creds := f.Values()
	if err := validate.CheckRequired(f.env, creds); err != nil {
		return err
	}
	for _, field := range f.env.CredentialFields {
		if err := registry.ValidateField(ctx, f.env.Name, field.Key, creds[field.Key]); err != nil {
			return err
		}
	}
	return registry.Validate(ctx, f.env.Name, creds)
}

func (f *credentialsForm) focusNext() {
	if len(f.inputs) == 0 {
		return
	}
	f.inputs[f.focused].Blur()
	f.focused = (f.focused + 1) % len(f.inputs)
	f.inputs[f.focused].Focus()
}

func (f *credentialsForm) focusPrev() {
	if len(f.inputs) == 0 {
		return
	}
	f.inputs[f.focused].Blur()
	f.focused = (f.focused - 1 + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focused].Focus()
}

func (f *credentialsForm) atLastField() bool {
	return f.focused == len(f.inputs)-1
}

// Update forwards a message to the focused input.
func (f *credentialsForm) Update(msg tea.Msg) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	return cmd
}

// View renders the form.
func (f *credentialsForm) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Credentials for %s", f.env.Label())))
	b.WriteString("\n\n")

	for i, field := range f.env.CredentialFields {
		label := field.Label
		if label == "" {
			label = field.Key
		}
		if field.Required {
			label += " *"
		}
		b.WriteString(formLabelStyle.Render(label))
		b.WriteString("\n")
		b.WriteString(f.inputs[i].View())
		if field.Hint != "" && f.inputs[i].Value() != "" {
			b.WriteString("  " + formHintStyle.Render(field.Hint))
		}
		b.WriteString("\n\n")
	}

	if f.errMsg != "" {
		b.WriteString(statusErrStyle.Render(f.errMsg))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter: next/submit • tab: next field • esc: cancel"))
	return b.String()
}
