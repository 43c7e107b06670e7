package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"ideagen/internal/modulefile"
	"ideagen/internal/workspace"
)

var errCancelled = errors.New("cancelled")

// field is one setting on the init form. A blank answer keeps def.
type field struct {
	label string
	def   string
	input textinput.Model
}

// settingsForm shows every init setting at once. Enter moves to the next
// field and submits on the last one.
type settingsForm struct {
	fields    []field
	focus     int
	submitted bool
}

func newSettingsForm() settingsForm {
	f := settingsForm{fields: []field{
		{label: "Local repository root", input: textinput.New()},
		{label: "Descriptor name classifier", def: modulefile.DefaultClassifier, input: textinput.New()},
	}}
	f.fields[0].input.Placeholder = "~/.m2/repository"
	f.fields[1].input.Placeholder = modulefile.DefaultClassifier
	f.fields[0].input.Focus()
	return f
}

func (f settingsForm) Init() tea.Cmd { return textinput.Blink }

func (f settingsForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return f, tea.Quit
		case tea.KeyEnter:
			if f.focus == len(f.fields)-1 {
				f.submitted = true
				return f, tea.Quit
			}
			return f.move(1), textinput.Blink
		case tea.KeyTab, tea.KeyDown:
			return f.move(1), textinput.Blink
		case tea.KeyShiftTab, tea.KeyUp:
			return f.move(-1), textinput.Blink
		}
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return f, cmd
}

// move shifts focus by step, wrapping at both ends.
func (f settingsForm) move(step int) settingsForm {
	fields := append([]field(nil), f.fields...)
	fields[f.focus].input.Blur()
	f.focus = (f.focus + step + len(fields)) % len(fields)
	fields[f.focus].input.Focus()
	f.fields = fields
	return f
}

func (f settingsForm) View() string {
	if f.submitted {
		return ""
	}
	var b strings.Builder
	for i, fd := range f.fields {
		marker := "  "
		if i == f.focus {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s: %s\n", marker, fd.label, fd.input.View())
	}
	b.WriteString("\nenter: next, esc: cancel\n")
	return b.String()
}

// settings returns the answers with defaults applied.
func (f settingsForm) settings() workspace.Settings {
	values := make([]string, len(f.fields))
	for i, fd := range f.fields {
		values[i] = strings.TrimSpace(fd.input.Value())
		if values[i] == "" {
			values[i] = fd.def
		}
	}
	return workspace.Settings{Repository: values[0], Classifier: values[1]}
}

// askSettings runs the init form on the terminal.
func askSettings() (workspace.Settings, error) {
	result, err := tea.NewProgram(newSettingsForm()).Run()
	if err != nil {
		return workspace.Settings{}, err
	}
	f, ok := result.(settingsForm)
	if !ok || !f.submitted {
		return workspace.Settings{}, errCancelled
	}
	return f.settings(), nil
}
